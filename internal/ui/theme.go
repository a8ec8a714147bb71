package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme bundles palette, symbols and box border for one renderer.
type Theme struct {
	Name                                          string
	Title, Muted, Accent, Success, Error, Pending lipgloss.Style
	Border                                        lipgloss.Border
	BorderColor                                   lipgloss.TerminalColor
	BoxUnchecked, BoxChecked                      string
	SymDone, SymPending, SymFail                  string
}

// Themes lists the names NewTheme understands.
var Themes = []string{"classic", "neon", "mono"}

// NewTheme builds the named theme on r. Unknown names fall back to classic;
// mono also drops colors.
func NewTheme(name string, r *lipgloss.Renderer) Theme {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	s := r.NewStyle
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "neon":
		return Theme{
			Name:    "neon",
			Title:   s().Bold(true).Foreground(lipgloss.Color("213")),
			Muted:   s().Foreground(lipgloss.Color("245")),
			Accent:  s().Foreground(lipgloss.Color("51")),
			Success: s().Foreground(lipgloss.Color("48")),
			Error:   s().Bold(true).Foreground(lipgloss.Color("197")),
			Pending: s().Foreground(lipgloss.Color("227")),
			Border:  lipgloss.RoundedBorder(), BorderColor: lipgloss.Color("99"),
			BoxUnchecked: "◻", BoxChecked: "◼",
			SymDone: "✔", SymPending: "•", SymFail: "✖",
		}
	case "mono":
		r.SetColorProfile(termenv.Ascii)
		return Theme{
			Name:  "mono",
			Title: s(), Muted: s(), Accent: s(), Success: s(), Error: s(), Pending: s(),
			Border: lipgloss.ASCIIBorder(), BorderColor: lipgloss.NoColor{},
			BoxUnchecked: "[ ]", BoxChecked: "[x]",
			SymDone: "x", SymPending: "-", SymFail: "!",
		}
	default:
		return Theme{
			Name:    "classic",
			Title:   s().Bold(true),
			Muted:   s().Faint(true),
			Accent:  s().Foreground(lipgloss.Color("12")),
			Success: s().Foreground(lipgloss.Color("42")),
			Error:   s().Bold(true).Foreground(lipgloss.Color("9")),
			Pending: s().Foreground(lipgloss.Color("214")),
			Border:  lipgloss.NormalBorder(), BorderColor: lipgloss.Color("8"),
			BoxUnchecked: "☐", BoxChecked: "☑",
			SymDone: "✔", SymPending: "•", SymFail: "✖",
		}
	}
}
