package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/neontodo/internal/model"
	"github.com/idilsaglam/neontodo/internal/ui"
)

// taskItem adapts model.Task to bubbles/list.Item.
type taskItem struct {
	task model.Task
}

func (i taskItem) Title() string       { return i.task.Title }
func (i taskItem) Description() string { return i.task.Description }
func (i taskItem) FilterValue() string { return i.task.Title + " " + i.task.Description }

func toItems(tasks []model.Task) []list.Item {
	out := make([]list.Item, len(tasks))
	for i, t := range tasks {
		out[i] = taskItem{task: t}
	}
	return out
}

// itemDelegate renders one line per task, description muted after the title.
type itemDelegate struct {
	theme ui.Theme
	st    styles
}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(taskItem)
	if !ok {
		return
	}
	t := it.task
	th := d.theme

	box := th.Pending.Render(th.BoxUnchecked)
	title := ui.Truncate(t.Title, max(10, m.Width()-12))
	switch {
	case t.IsDeleted:
		box = th.Muted.Render(th.BoxUnchecked)
		title = d.st.deleted.Render(title)
	case t.Completed:
		box = th.Success.Render(th.BoxChecked)
		title = d.st.done.Render(title)
	}

	line := fmt.Sprintf("%s %s", box, title)
	if desc := strings.TrimSpace(t.Description); desc != "" {
		room := m.Width() - len([]rune(t.Title)) - 8
		if room > 8 {
			line += th.Muted.Render("  " + ui.Truncate(desc, room))
		}
	}
	prefix := "  "
	if index == m.Index() {
		prefix = d.st.selected.Render("> ")
	}
	fmt.Fprint(w, prefix+line)
}
