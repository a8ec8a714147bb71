package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/neontodo/internal/ui"
)

type styles struct {
	frame, formBox           lipgloss.Style
	selected, done, deleted  lipgloss.Style
	tab, tabActive           lipgloss.Style
	brand, user              lipgloss.Style
	you, assistant, thinking lipgloss.Style
}

func newStyles(th ui.Theme) styles {
	return styles{
		frame:     lipgloss.NewStyle().Border(th.Border).BorderForeground(th.BorderColor).Padding(0, 1),
		formBox:   lipgloss.NewStyle().Border(th.Border).BorderForeground(th.BorderColor).Padding(0, 1),
		selected:  th.Accent.Bold(true),
		done:      th.Muted.Strikethrough(true),
		deleted:   th.Muted.Strikethrough(true).Italic(true),
		tab:       th.Muted.Padding(0, 1),
		tabActive: th.Title.Reverse(true).Padding(0, 1),
		brand:     th.Title,
		user:      th.Muted,
		you:       th.Accent.Bold(true),
		assistant: th.Title,
		thinking:  th.Muted.Italic(true),
	}
}
