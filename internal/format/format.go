// Package format renders command output in the styles the console supports:
// an aligned table for humans, json and yaml for scripting, and plain text.
package format

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Formatter renders one command result to a writer.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// New returns the formatter for a named output style.
func New(name string, colors bool) (Formatter, error) {
	switch name {
	case "table", "":
		return &TableFormatter{colors: colors}, nil
	case "json":
		return &JSONFormatter{pretty: true}, nil
	case "json-compact":
		return &JSONFormatter{}, nil
	case "yaml":
		return &YAMLFormatter{}, nil
	case "text":
		return &TextFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", name)
	}
}

// Success prints a green confirmation line, plain when colors are off.
func Success(w io.Writer, colors bool, msg string, args ...any) {
	if colors {
		color.New(color.FgGreen).Fprintf(w, msg+"\n", args...)
		return
	}
	fmt.Fprintf(w, msg+"\n", args...)
}

// Warn prints a yellow warning line.
func Warn(w io.Writer, colors bool, msg string, args ...any) {
	if colors {
		color.New(color.FgYellow).Fprintf(w, msg+"\n", args...)
		return
	}
	fmt.Fprintf(w, "Warning: "+msg+"\n", args...)
}

// Fail prints a red error line.
func Fail(w io.Writer, colors bool, msg string, args ...any) {
	if colors {
		color.New(color.FgRed).Fprintf(w, msg+"\n", args...)
		return
	}
	fmt.Fprintf(w, "Error: "+msg+"\n", args...)
}
