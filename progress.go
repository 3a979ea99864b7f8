package main

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Progress reports pipeline progress with elapsed time. It writes to stderr
// unless another writer is given.
type Progress struct {
	out      io.Writer
	start    time.Time
	verbose  bool
	warnings int
}

// NewProgress creates a progress reporter on stderr.
func NewProgress(verbose bool) *Progress {
	return NewProgressTo(os.Stderr, verbose)
}

// NewProgressTo creates a progress reporter on w.
func NewProgressTo(w io.Writer, verbose bool) *Progress {
	return &Progress{out: w, start: time.Now(), verbose: verbose}
}

// Log prints a progress message with elapsed time prefix.
func (p *Progress) Log(format string, args ...any) {
	elapsed := time.Since(p.start)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	fmt.Fprintf(p.out, "[%02d:%02d] %s\n", mins, secs, fmt.Sprintf(format, args...))
}

// Verbose prints only when verbose mode is enabled.
func (p *Progress) Verbose(format string, args ...any) {
	if p.verbose {
		p.Log(format, args...)
	}
}

// Warn logs a recoverable problem and counts it for the final report.
func (p *Progress) Warn(format string, args ...any) {
	p.warnings++
	p.Log("Warning: "+format, args...)
}

// Warnings returns the number of Warn calls so far.
func (p *Progress) Warnings() int { return p.warnings }

// Writer exposes the underlying writer for multi-line diagnostics.
func (p *Progress) Writer() io.Writer { return p.out }
