// Package ui formats CLI output for apply-patch.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/marcius-llmus/apply-patch/patch"
)

// Color definitions for consistent output. The color package disables
// itself automatically when the stream is not a terminal.
var (
	addedColor    = color.New(color.FgGreen)
	modifiedColor = color.New(color.FgYellow)
	deletedColor  = color.New(color.FgRed)
	errorColor    = color.New(color.FgRed)
)

// Writer prints patch results with consistent prefixes and optional colors.
type Writer struct {
	stdout io.Writer
	stderr io.Writer
}

// NewWriter creates a Writer bound to the process streams.
func NewWriter() *Writer {
	return &Writer{stdout: os.Stdout, stderr: os.Stderr}
}

// Summary prints the success header and one line per affected path,
// prefixed A/M/D for added/modified/deleted.
func (w *Writer) Summary(affected *patch.AffectedPaths) {
	fmt.Fprintln(w.stdout, "Success. Updated the following files:")
	for _, p := range affected.Added {
		addedColor.Fprintf(w.stdout, "A %s\n", p)
	}
	for _, p := range affected.Modified {
		modifiedColor.Fprintf(w.stdout, "M %s\n", p)
	}
	for _, p := range affected.Deleted {
		deletedColor.Fprintf(w.stdout, "D %s\n", p)
	}
}

// Error prints a failure message to the error stream.
func (w *Writer) Error(err error) {
	errorColor.Fprintln(w.stderr, err)
}

// Usage prints the usage text to the error stream.
func (w *Writer) Usage(text string) {
	fmt.Fprintln(w.stderr, text)
}
