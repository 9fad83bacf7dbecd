package cli

import (
	"context"
	"fmt"
)

// ListSessions prints the known session IDs.
func ListSessions(opts RunOptions) error {
	app, err := buildFromOptions(opts)
	if err != nil {
		return err
	}

	ids, err := app.Sessions().List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		printSystemMessage("No sessions found.")
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

// DeleteSession removes a session checkpoint.
func DeleteSession(opts RunOptions, id string) error {
	app, err := buildFromOptions(opts)
	if err != nil {
		return err
	}

	if err := app.Sessions().Delete(context.Background(), id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	printSystemMessage("Session '%s' deleted.", id)
	return nil
}
