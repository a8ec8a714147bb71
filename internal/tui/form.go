package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/neontodo/internal/ui"
)

// form is a stack of text inputs with one focused field, shared by the
// login, add and edit views.
type form struct {
	title  string
	labels []string
	fields []textinput.Model
	focus  int
	err    string
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	return ti
}

func newForm(title string, labels []string, fields ...textinput.Model) form {
	f := form{title: title, labels: labels, fields: fields}
	f.fields[0].Focus()
	return f
}

func (f *form) value(i int) string { return strings.TrimSpace(f.fields[i].Value()) }

// raw is the unmodified value, for passwords.
func (f *form) raw(i int) string { return f.fields[i].Value() }

func (f *form) last() bool { return f.focus == len(f.fields)-1 }

func (f *form) next(delta int) tea.Cmd {
	f.fields[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.fields)) % len(f.fields)
	return f.fields[f.focus].Focus()
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.fields[f.focus], cmd = f.fields[f.focus].Update(msg)
	return cmd
}

func (f *form) height() int { return 3 + 2*len(f.fields) }

func (f *form) view(th ui.Theme, st styles, width int) string {
	head := th.Title.Render(f.title)
	if f.err != "" {
		head += "  " + th.Error.Render(f.err)
	}
	lines := []string{head}
	for i, in := range f.fields {
		lines = append(lines, th.Muted.Render(f.labels[i]), in.View())
	}
	box := st.formBox
	if width > 4 {
		box = box.Width(width - 4)
	}
	return box.Render(strings.Join(lines, "\n"))
}
