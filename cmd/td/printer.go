package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// printer styles the one-line outcome messages. Styles degrade to plain
// text when stdout is not a terminal.
type printer struct {
	out     io.Writer
	success lipgloss.Style
	subtle  lipgloss.Style
}

var pr = newPrinter(os.Stdout)

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:     out,
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		subtle:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Successf prints a styled outcome line.
func (p *printer) Successf(format string, args ...any) {
	fmt.Fprintln(p.out, p.success.Render(fmt.Sprintf(format, args...)))
}

// Subtlef prints a dimmed line for no-op outcomes.
func (p *printer) Subtlef(format string, args ...any) {
	fmt.Fprintln(p.out, p.subtle.Render(fmt.Sprintf(format, args...)))
}
