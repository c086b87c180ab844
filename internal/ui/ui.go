// Package ui renders gantry's human-readable terminal output. Tables go to
// the output writer (stdout); status lines go to the message writer
// (stderr). Styling degrades to plain text when the writer is not a
// terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Palette.
const (
	colorPrimary = lipgloss.Color("#00BFFF") // Cyan, headers
	colorAccent  = lipgloss.Color("#FFD700") // Gold, warnings
	colorSuccess = lipgloss.Color("#00E676") // Green
	colorDanger  = lipgloss.Color("#FF5252") // Red, critical and errors
	colorMuted   = lipgloss.Color("#8C8C8C") // Gray, secondary text
)

// Printer writes styled output.
type Printer struct {
	out io.Writer
	msg io.Writer

	header   lipgloss.Style
	cell     lipgloss.Style
	critical lipgloss.Style
	muted    lipgloss.Style
	success  lipgloss.Style
	warn     lipgloss.Style
	danger   lipgloss.Style
	border   lipgloss.Style
}

// New returns a Printer writing tables to stdout and messages to stderr.
func New() *Printer {
	return NewWithWriters(os.Stdout, os.Stderr)
}

// NewWithWriters returns a Printer over arbitrary writers. Color support is
// detected per writer.
func NewWithWriters(out, msg io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:      out,
		msg:      msg,
		header:   r.NewStyle().Bold(true).Foreground(colorPrimary).Padding(0, 1),
		cell:     r.NewStyle().Padding(0, 1),
		critical: r.NewStyle().Padding(0, 1).Bold(true).Foreground(colorDanger),
		muted:    r.NewStyle().Foreground(colorMuted),
		success:  r.NewStyle().Bold(true).Foreground(colorSuccess),
		warn:     r.NewStyle().Bold(true).Foreground(colorAccent),
		danger:   r.NewStyle().Bold(true).Foreground(colorDanger),
		border:   r.NewStyle().Foreground(colorMuted),
	}
}

// Error prints an error line to the message writer.
func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.msg, "%s %s\n", p.danger.Render("error:"), msg)
}

// Warn prints a warning line to the message writer.
func (p *Printer) Warn(msg string) {
	fmt.Fprintf(p.msg, "%s %s\n", p.warn.Render("⚠"), msg)
}

// Info prints a de-emphasized line to the message writer.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.msg, p.muted.Render(msg))
}

// Success prints a confirmation line to the message writer.
func (p *Printer) Success(msg string) {
	fmt.Fprintf(p.msg, "%s %s\n", p.success.Render("✓"), msg)
}

// table renders headers and rows; rows for which highlight returns true
// are drawn in the critical style.
func (p *Printer) table(headers []string, rows [][]string, highlight func(row int) bool) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return p.header
			case highlight != nil && highlight(row):
				return p.critical
			default:
				return p.cell
			}
		})
	fmt.Fprintln(p.out, t.String())
}

// num formats a float compactly: at most two decimals, trailing zeros
// dropped.
func num(v float64) string {
	return strconv.FormatFloat(roundTo(v, 2), 'f', -1, 64)
}

func roundTo(v float64, places int) float64 {
	s := strconv.FormatFloat(v, 'f', places, 64)
	r, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return v
	}
	if r == 0 {
		return 0 // no "-0"
	}
	return r
}
