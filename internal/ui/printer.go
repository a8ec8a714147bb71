package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ColorMode picks when output is colored.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// Printer writes themed CLI output. Out gets results, Err gets failures
// and hints.
type Printer struct {
	Out, Err io.Writer
	Theme    Theme
	r        *lipgloss.Renderer
}

// NewPrinter renders for out. With ColorAuto, color is used only when out
// is a terminal.
func NewPrinter(out, errw io.Writer, theme string, mode ColorMode) *Printer {
	r := lipgloss.NewRenderer(out)
	switch mode {
	case ColorAlways:
		r.SetColorProfile(termenv.ANSI256)
	case ColorNever:
		r.SetColorProfile(termenv.Ascii)
	default:
		if !IsTerminal(out) {
			r.SetColorProfile(termenv.Ascii)
		}
	}
	return &Printer{Out: out, Err: errw, Theme: NewTheme(theme, r), r: r}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Renderer is the lipgloss renderer bound to Out.
func (p *Printer) Renderer() *lipgloss.Renderer { return p.r }

func (p *Printer) OK(msg string) {
	fmt.Fprintln(p.Out, p.Theme.Success.Render(p.Theme.SymDone+" "+msg))
}

func (p *Printer) Fail(msg string) {
	fmt.Fprintln(p.Err, p.Theme.Error.Render(p.Theme.SymFail+" "+msg))
}

// Hint prints a muted follow-up line to Err.
func (p *Printer) Hint(msg string) {
	fmt.Fprintln(p.Err, p.Theme.Muted.Render(msg))
}

func (p *Printer) Println(a ...any) { fmt.Fprintln(p.Out, a...) }

func (p *Printer) Printf(format string, a ...any) { fmt.Fprintf(p.Out, format, a...) }

// Panel draws lines inside the theme's border.
func (p *Printer) Panel(lines []string) {
	fmt.Fprintln(p.Out, p.Box(lines))
}

// Box renders lines inside the theme's border.
func (p *Printer) Box(lines []string) string {
	return p.r.NewStyle().
		Border(p.Theme.Border).
		BorderForeground(p.Theme.BorderColor).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// ProgressBar renders a bar with a percentage, e.g. "███░░  60%".
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width < 5 {
		width = 5
	}
	filled := done * width / total
	if filled > width {
		filled = width
	}
	pct := done * 100 / total
	return fmt.Sprintf("%s %3d%%", strings.Repeat("█", filled)+strings.Repeat("░", width-filled), pct)
}

// Colored reports whether Out receives color.
func (p *Printer) Colored() bool { return p.r.ColorProfile() != termenv.Ascii }
