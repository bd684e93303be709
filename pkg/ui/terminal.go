// Package ui renders igfetch's command-line output: colored status lines
// and download progress bars.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"igfetch/pkg/strategy"
)

// Logo printed by the serve command on startup
const Logo = `
  _       __      _       _
 (_) __ _/ _| ___| |_ ___| |__
 | |/ _' | |_ / _ \ __/ __| '_ \
 | | (_| |  _|  __/ || (__| | | |
 |_|\__, |_|  \___|\__\___|_| |_|
    |___/
`

const (
	colorCyan   = "\033[36m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorDim    = "\033[2m"
	colorReset  = "\033[0m"
)

// Printer writes human-readable status lines. Colors are used only when
// the destination is a terminal.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter creates a Printer for w
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, color: IsTerminal(w)}
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Writer returns the destination
func (p *Printer) Writer() io.Writer {
	return p.w
}

func (p *Printer) paint(color, text string) string {
	if !p.color {
		return text
	}
	return color + text + colorReset
}

// Logo prints the banner
func (p *Printer) Logo() {
	fmt.Fprint(p.w, p.paint(colorCyan, Logo))
}

// Error prints an error line, optionally followed by its cause
func (p *Printer) Error(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintln(p.w, p.paint(colorRed, msg))
}

// Success prints a success line
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.w, p.paint(colorGreen, msg))
}

// Warning prints a warning line
func (p *Printer) Warning(msg string) {
	fmt.Fprintln(p.w, p.paint(colorYellow, msg))
}

// Info prints a label: value pair
func (p *Printer) Info(label, value string) {
	fmt.Fprintf(p.w, "%s: %s\n", p.paint(colorCyan, label), p.paint(colorYellow, value))
}

// Hint prints dimmed text, one line per input line
func (p *Printer) Hint(text string) {
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintln(p.w, p.paint(colorDim, line))
	}
}

// Result prints a finished download
func (p *Printer) Result(r *strategy.Result) {
	p.Success("Downloaded " + r.FileName)
	p.Info("Title", r.Title)
	p.Info("Author", r.Author)
	p.Info("Caption", firstLine(r.Caption))
	if r.ThumbnailURL != "" {
		p.Info("Thumbnail", r.ThumbnailURL)
	}
	p.Info("Size", FormatBytes(r.FileSize))
	p.Info("Method", string(r.Strategy))
	p.Info("File", r.FilePath)
}

// FormatBytes renders n with a binary unit
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
