package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner with the version.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Green-to-teal gradient.
	s1 := termenv.String("            _                ").Foreground(p.Color("#4ade80"))
	s2 := termenv.String("   __ _ _ _| |__   ___  _ __ ").Foreground(p.Color("#34d399"))
	s3 := termenv.String("  / _` | '__| '_ \\ / _ \\| '__|").Foreground(p.Color("#2dd4bf"))
	s4 := termenv.String(" | (_| | |  | |_) | (_) | |   ").Foreground(p.Color("#22d3ee"))
	s5 := termenv.String("  \\__,_|_|  |_.__/ \\___/|_|   ").Foreground(p.Color("#38bdf8"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	if v := strings.TrimSpace(version); v != "" {
		fmt.Println(termenv.String("  v" + v).Foreground(p.Color("#64748b")))
	}
	fmt.Println()
}
