package ui

import (
	"fmt"
	"strings"

	"github.com/idilsaglam/neontodo/internal/model"
)

const maxTitle = 80

// Counts summarises the visible collection for the panel header.
type Counts struct {
	Active, Completed int
}

// CountTasks counts tasks that are not deleted.
func CountTasks(tasks []model.Task) Counts {
	var c Counts
	for _, t := range tasks {
		switch {
		case t.IsDeleted:
		case t.Completed:
			c.Completed++
		default:
			c.Active++
		}
	}
	return c
}

// EmptyText is shown when a filter matches nothing.
func EmptyText(f model.Filter) string {
	switch f {
	case model.FilterCompleted:
		return "No completed tasks yet"
	case model.FilterToday:
		return "Nothing created today"
	default:
		return "No active tasks found"
	}
}

// Truncate shortens s to n runes, ending with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 4 {
		return s
	}
	return string(r[:n-3]) + "..."
}

// TaskLines renders one numbered line per task. Numbers are 1-based
// positions in tasks, which is what the CLI accepts as an index.
func (p *Printer) TaskLines(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for i, t := range tasks {
		out = append(out, p.taskLine(i+1, t))
	}
	return out
}

func (p *Printer) taskLine(n int, t model.Task) string {
	th := p.Theme
	box, style := th.BoxUnchecked, th.Pending
	if t.Completed {
		box, style = th.BoxChecked, th.Success
	}
	title := Truncate(t.Title, maxTitle)
	if t.IsDeleted {
		title = th.Muted.Strikethrough(true).Render(title)
	}
	line := fmt.Sprintf("%s %s %s", th.Muted.Render(fmt.Sprintf("%2d.", n)), style.Render(box), title)
	if d := strings.TrimSpace(t.Description); d != "" {
		line += th.Muted.Render("  " + Truncate(d, maxTitle/2))
	}
	return line
}

// TaskPanel prints the filtered view with a header, progress bar and
// either the tasks or the empty state. all is the whole cache and feeds
// the counts.
func (p *Printer) TaskPanel(f model.Filter, view, all []model.Task, group bool) {
	th := p.Theme
	c := CountTasks(all)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		th.Title.Render(f.Title()),
		th.Success.Render(th.SymDone), c.Completed,
		th.Pending.Render(th.SymPending), c.Active,
		th.Accent.Render("Total"), c.Active+c.Completed,
	)
	lines := []string{header, th.Muted.Render(ProgressBar(c.Completed, c.Active+c.Completed, 28)), ""}

	switch {
	case len(view) == 0:
		lines = append(lines, th.Muted.Render(EmptyText(f)))
	case group:
		lines = append(lines, p.groupLines(view)...)
	default:
		lines = append(lines, p.TaskLines(view)...)
	}
	lines = append(lines, "", th.Muted.Render("Tip: add with `neontodo add \"Buy milk\"`"))
	p.Panel(lines)
}

// groupLines keeps each task's position in the flat view as its number.
func (p *Printer) groupLines(tasks []model.Task) []string {
	section := func(name string, done bool) []string {
		lines := []string{p.Theme.Accent.Render(name)}
		for i, t := range tasks {
			if t.Completed == done {
				lines = append(lines, p.taskLine(i+1, t))
			}
		}
		if len(lines) == 1 {
			lines = append(lines, p.Theme.Muted.Render("(none)"))
		}
		return lines
	}
	out := section("Pending", false)
	out = append(out, "")
	return append(out, section("Done", true)...)
}
