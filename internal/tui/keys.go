package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle, Delete, Add, Edit   key.Binding
	NextFilter, Chat, Refresh   key.Binding
	Logout, Dismiss, Quit       key.Binding
	Send, Back, NextField, Exit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Toggle:     key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
		Delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "trash")),
		Add:        key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		NextFilter: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "view")),
		Chat:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "assistant")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Logout:     key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "sign out")),
		Dismiss:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "dismiss")),
		Quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Send:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		NextField:  key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next field")),
		Exit:       key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// listKeys are appended to the list's own help.
func (k keyMap) listKeys() []key.Binding {
	return []key.Binding{k.Toggle, k.Delete, k.Add, k.Edit, k.NextFilter, k.Chat, k.Refresh, k.Dismiss, k.Logout}
}

// chatHelp implements help.KeyMap for the assistant pane.
type chatHelp struct{ k keyMap }

func (h chatHelp) ShortHelp() []key.Binding  { return []key.Binding{h.k.Send, h.k.Back} }
func (h chatHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }

// formHelp implements help.KeyMap for the login and task forms.
type formHelp struct{ k keyMap }

func (h formHelp) ShortHelp() []key.Binding {
	return []key.Binding{h.k.NextField, key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")), h.k.Back}
}
func (h formHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }
