package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter provides progress feedback while a batch of documents is ingested.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish(summary string)
}

// NewReporter returns a CIReporter when the CI or GITHUB_ACTIONS environment
// variable is set and a TerminalReporter otherwise. Both write to stderr.
func NewReporter(label string) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return NewCIReporter(os.Stderr, label)
	}
	return &TerminalReporter{label: label}
}

// TerminalReporter displays a progress bar in the terminal.
type TerminalReporter struct {
	label string
	bar   *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(r.label),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, message string) {
	if r.bar != nil {
		r.bar.Describe(message)
		_ = r.bar.Set(current)
	}
}

func (r *TerminalReporter) Finish(summary string) {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
	if summary != "" {
		fmt.Fprintln(os.Stderr, summary)
	}
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct {
	w     io.Writer
	label string
	total int
}

func NewCIReporter(w io.Writer, label string) *CIReporter {
	return &CIReporter{w: w, label: label}
}

func (r *CIReporter) Start(total int) {
	r.total = total
	fmt.Fprintf(r.w, "%s: %d file(s)\n", r.label, total)
}

func (r *CIReporter) Update(current int, message string) {
	fmt.Fprintf(r.w, "[%d/%d] %s\n", current, r.total, message)
}

func (r *CIReporter) Finish(summary string) {
	if summary == "" {
		summary = r.label + ": done"
	}
	fmt.Fprintln(r.w, summary)
}
