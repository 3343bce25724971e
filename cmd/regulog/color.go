package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// initColorState decides whether to colorize streaming output, ground on
// pkg/log/printer/color.go's priority chain: explicit flag, NO_COLOR,
// then TTY auto-detection.
func initColorState(explicit *bool, writer io.Writer) bool {
	if explicit != nil {
		color.NoColor = !*explicit
		return *explicit
	}
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
		return false
	}
	if f, ok := writer.(*os.File); ok {
		enabled := isatty.IsTerminal(f.Fd())
		color.NoColor = !enabled
		return enabled
	}
	color.NoColor = true
	return false
}
