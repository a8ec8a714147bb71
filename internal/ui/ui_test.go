package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/neontodo/internal/model"
)

func printer(theme string) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errb bytes.Buffer
	return NewPrinter(&out, &errb, theme, ColorNever), &out, &errb
}

func TestProgressBar(t *testing.T) {
	require.Equal(t, "█████░░░░░  50%", ProgressBar(1, 2, 10))
	require.Equal(t, "░░░░░   0%", ProgressBar(0, 0, 1))
	require.Equal(t, "██████████ 100%", ProgressBar(3, 3, 10))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 10))
	require.Equal(t, "héllo w...", Truncate("héllo world!", 10))
}

func TestOKAndFailGoToSeparateWriters(t *testing.T) {
	p, out, errb := printer("classic")
	p.OK("added")
	p.Fail("boom")
	require.Equal(t, "✔ added\n", out.String())
	require.Equal(t, "✖ boom\n", errb.String())
}

func TestTaskPanelEmptyState(t *testing.T) {
	p, out, _ := printer("mono")
	p.TaskPanel(model.FilterCompleted, nil, nil, false)
	s := out.String()
	require.Contains(t, s, "Completed Tasks")
	require.Contains(t, s, "No completed tasks yet")
	require.True(t, strings.HasPrefix(s, "+"))
}

func TestTaskPanelListsView(t *testing.T) {
	p, out, _ := printer("mono")
	all := []model.Task{
		{ID: "1", Title: "buy milk", Description: "2 litres"},
		{ID: "2", Title: "file taxes", Completed: true},
		{ID: "3", Title: "gone", IsDeleted: true},
	}
	p.TaskPanel(model.FilterAll, all[:1], all, false)
	s := out.String()
	require.Contains(t, s, " 1. [ ] buy milk  2 litres")
	require.Contains(t, s, "x 1  - 1  Total 2")
	require.NotContains(t, s, "gone")
}

func TestGroupKeepsFlatNumbers(t *testing.T) {
	p, _, _ := printer("mono")
	lines := p.groupLines([]model.Task{
		{Title: "a", Completed: true},
		{Title: "b"},
	})
	require.Equal(t, []string{"Pending", " 2. [ ] b", "", "Done", " 1. [x] a"}, lines)
}

func TestCountTasks(t *testing.T) {
	c := CountTasks([]model.Task{{}, {Completed: true}, {IsDeleted: true}, {Completed: true, IsDeleted: true}})
	require.Equal(t, Counts{Active: 1, Completed: 1}, c)
}

func TestUnknownThemeFallsBack(t *testing.T) {
	p, _, _ := printer("vaporwave")
	require.Equal(t, "classic", p.Theme.Name)
}

func TestMarkdownPlain(t *testing.T) {
	md, err := NewMarkdown(40, false)
	require.NoError(t, err)
	require.Contains(t, md.Render("I've added **milk**."), "milk")

	var zero *Markdown
	require.Equal(t, "raw", zero.Render("raw"))
}
