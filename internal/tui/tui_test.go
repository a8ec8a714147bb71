package tui

import (
	"context"
	"net/http"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/neontodo/internal/api"
	"github.com/idilsaglam/neontodo/internal/apitest"
	"github.com/idilsaglam/neontodo/internal/chat"
	"github.com/idilsaglam/neontodo/internal/model"
	"github.com/idilsaglam/neontodo/internal/notify"
	"github.com/idilsaglam/neontodo/internal/session"
	"github.com/idilsaglam/neontodo/internal/tasklist"
)

const email = "ada@example.com"

type harness struct {
	srv  *apitest.Server
	deps Deps
}

func newHarness(t *testing.T, signedIn bool, seed ...model.Task) *harness {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	srv.Seed(email, seed...)

	sess := session.New(session.NewMemoryStorage(), session.WithGetenv(func(string) string { return "" }))
	if signedIn {
		require.NoError(t, sess.Begin(model.Session{Token: srv.Token(email), User: model.User{Email: email}}))
	}
	client, err := api.New(srv.URL, api.WithTokenSource(sess))
	require.NoError(t, err)

	notes := notify.New(notify.DefaultDelay)
	t.Cleanup(notes.Stop)
	tasks := tasklist.New(client, sess, notes)
	return &harness{srv: srv, deps: Deps{
		Auth:    client,
		Session: sess,
		Tasks:   tasks,
		Relay:   chat.New(client, tasks, sess, notes),
		Notes:   notes,
		Theme:   "mono",
	}}
}

// drive runs cmd and feeds back the results that carry application state.
// Blink, tick and quit messages are dropped.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drive(t, m, c)
		}
	case loadedMsg, settledMsg, savedMsg, loginMsg, chatMsg, historyMsg:
		next, c := m.Update(msg)
		m = drive(t, next.(Model), c)
	}
	return m
}

func press(t *testing.T, m Model, msgs ...tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range msgs {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(Model)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func start(t *testing.T, h *harness) Model {
	t.Helper()
	m := New(context.Background(), h.deps)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(Model)
	return drive(t, m, m.Init())
}

func TestLoginThenList(t *testing.T) {
	h := newHarness(t, false, model.Task{Title: "existing"})
	m := start(t, h)
	require.Equal(t, modeLogin, m.mode)
	require.Contains(t, m.View(), "Sign in")

	m, cmd := press(t, m, runes(email), tab, runes("hunter2"), enter)
	require.True(t, m.busy)
	m = drive(t, m, cmd)

	require.Equal(t, modeList, m.mode)
	require.True(t, h.deps.Session.Authenticated())
	require.Len(t, m.list.Items(), 1)
	require.Contains(t, m.View(), "Signed in as "+email)
}

func TestLoginBlankPasswordShowsError(t *testing.T) {
	h := newHarness(t, false)
	m := start(t, h)

	m, cmd := press(t, m, runes(email), tab, enter)
	m = drive(t, m, cmd)
	require.Equal(t, modeLogin, m.mode)
	require.Equal(t, "Email and password are required", m.form.err)
	require.Zero(t, h.srv.Calls(http.MethodPost, "/auth"))
}

func TestToggleShowsBeforeServerAnswers(t *testing.T) {
	h := newHarness(t, true, model.Task{Title: "walk dog"})
	m := start(t, h)
	id := m.list.Items()[0].(taskItem).task.ID

	m, cmd := press(t, m, space)
	require.Empty(t, m.list.Items())
	got, _ := h.deps.Tasks.Get(id)
	require.True(t, got.Completed)

	m = drive(t, m, cmd)
	stored, _ := h.srv.Task(id)
	require.True(t, stored.Completed)
	require.Contains(t, m.View(), "Task moved to Completed folder!")
}

func TestToggleFailureRollsBackView(t *testing.T) {
	h := newHarness(t, true, model.Task{Title: "walk dog"})
	m := start(t, h)
	h.srv.FailNext(http.MethodPut, "/todos/", http.StatusInternalServerError, "")

	m, cmd := press(t, m, space)
	m = drive(t, m, cmd)
	require.Len(t, m.list.Items(), 1)
	require.Contains(t, m.View(), "Failed to update task status")
}

func TestAddFromCompletedSwitchesToAll(t *testing.T) {
	h := newHarness(t, true)
	m := start(t, h)
	m, _ = press(t, m, tab, tab)
	require.Equal(t, model.FilterCompleted, m.filter)

	m, _ = press(t, m, runes("a"))
	require.Equal(t, modeAdd, m.mode)
	m, cmd := press(t, m, runes("buy milk"), enter)
	m = drive(t, m, cmd)

	require.Equal(t, modeList, m.mode)
	require.Equal(t, model.FilterAll, m.filter)
	sel, ok := m.selected()
	require.True(t, ok)
	require.Equal(t, "buy milk", sel.Title)
}

func TestAddBlankTitleStaysOpen(t *testing.T) {
	h := newHarness(t, true)
	m := start(t, h)
	calls := h.srv.TotalCalls()

	m, _ = press(t, m, runes("a"), enter)
	require.Equal(t, modeAdd, m.mode)
	require.Equal(t, "Title cannot be empty", m.form.err)
	require.Equal(t, calls, h.srv.TotalCalls())

	m, _ = press(t, m, esc)
	require.Equal(t, modeList, m.mode)
}

func TestEditFailureKeepsForm(t *testing.T) {
	h := newHarness(t, true, model.Task{Title: "draft"})
	m := start(t, h)
	h.srv.FailNext(http.MethodPut, "/todos/", http.StatusInternalServerError, "")

	m, _ = press(t, m, runes("e"))
	require.Equal(t, modeEdit, m.mode)
	require.Equal(t, "draft", m.form.value(0))
	m, cmd := press(t, m, runes(" v2"), enter)
	m = drive(t, m, cmd)
	require.Equal(t, modeEdit, m.mode)
	require.Equal(t, "draft v2", m.form.value(0))

	m, cmd = press(t, m, enter)
	m = drive(t, m, cmd)
	require.Equal(t, modeList, m.mode)
	sel, _ := m.selected()
	require.Equal(t, "draft v2", sel.Title)
}

func TestUnauthorizedReturnsToLogin(t *testing.T) {
	h := newHarness(t, true, model.Task{Title: "a"})
	m := start(t, h)
	h.srv.Revoke()

	m, cmd := press(t, m, runes("r"))
	m = drive(t, m, cmd)
	require.Equal(t, modeLogin, m.mode)
	require.Empty(t, m.list.Items())
	require.False(t, h.deps.Session.Authenticated())
}

func TestChatCreatesTask(t *testing.T) {
	h := newHarness(t, true)
	m := start(t, h)

	m, cmd := press(t, m, runes("c"))
	require.Equal(t, modeChat, m.mode)
	m = drive(t, m, cmd)
	require.True(t, m.history)

	m, cmd = press(t, m, runes("add walk the dog"), enter)
	require.True(t, h.deps.Relay.Busy())
	m = drive(t, m, cmd)
	require.False(t, h.deps.Relay.Busy())
	require.Contains(t, m.chat.View(), "walk the dog")

	m, _ = press(t, m, esc)
	require.Equal(t, modeList, m.mode)
	require.Len(t, m.list.Items(), 1)
}

func TestEmptyStateText(t *testing.T) {
	h := newHarness(t, true)
	m := start(t, h)
	require.Contains(t, m.View(), "No active tasks found")

	m, _ = press(t, m, tab, tab)
	require.Contains(t, m.View(), "No completed tasks yet")
}
