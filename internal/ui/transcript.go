package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders assistant replies. A zero Markdown, or one whose
// renderer failed to build, returns text unchanged.
type Markdown struct {
	r *glamour.TermRenderer
}

// NewMarkdown builds a renderer wrapping at width. color=false uses the
// plain style.
func NewMarkdown(width int, color bool) (*Markdown, error) {
	style := "dark"
	if !color {
		style = "notty"
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return &Markdown{}, err
	}
	return &Markdown{r: r}, nil
}

// Render returns text as terminal markdown, trimmed of glamour's margins.
func (m *Markdown) Render(text string) string {
	if m == nil || m.r == nil {
		return text
	}
	out, err := m.r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
