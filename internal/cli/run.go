package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/pipeline"
	"github.com/aretw0/arbor/pkg/session"
)

// RunOptions configures an interactive run.
type RunOptions struct {
	ConfigPath string
	Template   string
	SessionID  string
	OutDir     string
	Auto       bool
	Debug      bool
}

// RunSession starts a new generation run and drives it interactively.
func RunSession(opts RunOptions, prompt string) error {
	app, err := buildFromOptions(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := isInteractive()
	if interactive {
		tui.PrintBanner(arbor.Version)
	}
	printSystemMessage("Generating data model...")

	snap, err := app.Sessions().Start(ctx, opts.SessionID, prompt)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return drive(ctx, app, snap, opts, interactive)
}

// ResumeSession reattaches to an existing session.
func ResumeSession(opts RunOptions) error {
	app, err := buildFromOptions(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := isInteractive()
	if interactive {
		tui.PrintBanner(arbor.Version)
	}

	snap, err := app.Sessions().Status(ctx, opts.SessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	printSystemMessage("Resuming session '%s' at '%s'.", snap.ID, snap.State)
	return drive(ctx, app, snap, opts, interactive)
}

func buildFromOptions(opts RunOptions) (*arbor.App, error) {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Template != "" {
		cfg.Template = opts.Template
	}
	return BuildApp(cfg, opts.Debug)
}

// drive loops over review gates until the run finishes or the user
// detaches. Every accepted event is already checkpointed by the
// session manager, so quitting loses nothing.
func drive(ctx context.Context, app *arbor.App, snap session.Snapshot, opts RunOptions, interactive bool) error {
	render := tui.NewRenderer()
	reader := bufio.NewReader(os.Stdin)

	for {
		printSnapshot(snap, render, interactive)

		if snap.Done {
			return finish(snap, opts)
		}

		if opts.Auto {
			next, err := app.Sessions().Confirm(ctx, snap.ID)
			if err != nil {
				return err
			}
			snap = next
			continue
		}

		fmt.Print("confirm [c] / feedback [f] / quit [q] > ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return finish(snap, opts)
		}

		switch strings.TrimSpace(line) {
		case "c", "confirm", "":
			next, err := app.Sessions().Confirm(ctx, snap.ID)
			if err != nil {
				return err
			}
			snap = next
		case "f", "feedback":
			fmt.Print("feedback > ")
			text, err := reader.ReadString('\n')
			if err != nil {
				return finish(snap, opts)
			}
			text = strings.TrimSpace(text)
			if text == "" {
				printSystemMessage("Feedback cannot be empty.")
				continue
			}
			next, err := app.Sessions().Feedback(ctx, snap.ID, text)
			if err != nil {
				return err
			}
			snap = next
		case "q", "quit", "exit":
			printSystemMessage("Detached. Resume with: arbor resume %s", snap.ID)
			return nil
		default:
			printSystemMessage("Unknown choice.")
		}
	}
}

// finish reports the outcome and exports the files when requested.
func finish(snap session.Snapshot, opts RunOptions) error {
	if snap.State == pipeline.StateFailure {
		if snap.Kind != "" {
			return fmt.Errorf("generation failed (%s): %s", snap.Kind, snap.Error)
		}
		return fmt.Errorf("generation failed: %s", snap.Error)
	}

	if opts.OutDir != "" && len(snap.Files) > 0 {
		if err := exportFiles(snap.Files, opts.OutDir); err != nil {
			return err
		}
		printSystemMessage("Application written to %s (%d files).", opts.OutDir, len(snap.Files))
	}
	return nil
}

func exportFiles(files map[string]string, dir string) error {
	for path, content := range files {
		dst := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("failed to export %s: %w", path, err)
		}
		if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to export %s: %w", path, err)
		}
	}
	return nil
}

// printSnapshot summarizes the session as markdown and renders it when
// the terminal allows.
func printSnapshot(snap session.Snapshot, render func(string) (string, error), interactive bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", strings.ReplaceAll(snap.State, "_", " "))

	if snap.Error != "" {
		fmt.Fprintf(&b, "**Error (%s):** %s\n", snap.Kind, snap.Error)
	} else if len(snap.Files) > 0 {
		paths := make([]string, 0, len(snap.Files))
		for path := range snap.Files {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			fmt.Fprintf(&b, "- `%s` (%d bytes)\n", path, len(snap.Files[path]))
		}
	}

	out := b.String()
	if interactive {
		if rendered, err := render(out); err == nil {
			out = rendered
		}
	}
	fmt.Println(out)
}
