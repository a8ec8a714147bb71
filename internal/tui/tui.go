// Package tui is the interactive terminal front end: a sign-in form, the
// filtered task list with inline add and edit, and the assistant pane.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/idilsaglam/neontodo/internal/api"
	"github.com/idilsaglam/neontodo/internal/chat"
	"github.com/idilsaglam/neontodo/internal/logging"
	"github.com/idilsaglam/neontodo/internal/model"
	"github.com/idilsaglam/neontodo/internal/notify"
	"github.com/idilsaglam/neontodo/internal/session"
	"github.com/idilsaglam/neontodo/internal/tasklist"
	"github.com/idilsaglam/neontodo/internal/ui"
)

// Authenticator exchanges credentials for a session.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (model.Session, error)
}

// Deps is what the program drives.
type Deps struct {
	Auth    Authenticator
	Session *session.Context
	Tasks   *tasklist.Controller
	Relay   *chat.Relay
	Notes   *notify.Notifier
	Theme   string
	Color   bool
	Logger  *log.Logger
}

type mode int

const (
	modeLogin mode = iota
	modeList
	modeAdd
	modeEdit
	modeChat
)

// Results of commands run off the update loop.
type (
	loadedMsg  struct{ err error }
	settledMsg struct{ err error }
	savedMsg   struct {
		task    model.Task
		created bool
		err     error
	}
	loginMsg struct {
		sess model.Session
		err  error
	}
	chatMsg    struct{ err error }
	historyMsg struct{ err error }
	noticeMsg  struct{}
)

// Model is the Bubble Tea model.
type Model struct {
	d     Deps
	ctx   context.Context
	keys  keyMap
	theme ui.Theme
	st    styles
	help  help.Model
	md    *ui.Markdown

	mode   mode
	filter model.Filter
	list   list.Model
	form   form
	editID string
	busy   bool

	chat      viewport.Model
	chatIn    textinput.Model
	spin      spinner.Model
	history   bool
	rendered  map[string]string
	lastWidth int

	width, height int
}

// New builds the model. It starts on the sign-in form unless the session
// is already live.
func New(ctx context.Context, d Deps) Model {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	th := ui.NewTheme(d.Theme, lipgloss.DefaultRenderer())
	st := newStyles(th)
	keys := newKeyMap()

	l := list.New(nil, itemDelegate{theme: th, st: st}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(true)
	l.SetShowStatusBar(true)
	l.SetShowPagination(true)
	l.SetFilteringEnabled(true)
	l.SetStatusBarItemName("task", "tasks")
	l.FilterInput.Prompt = "/ "
	l.Styles.HelpStyle = th.Muted
	l.Styles.PaginationStyle = th.Muted
	l.AdditionalShortHelpKeys = keys.listKeys
	l.AdditionalFullHelpKeys = keys.listKeys

	in := newInput("Ask the assistant, e.g. \"add a task to buy milk\"", 500)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = th.Accent

	m := Model{
		d: d, ctx: ctx, keys: keys, theme: th, st: st, help: help.New(),
		list: l, chat: viewport.New(0, 0), chatIn: in, spin: sp,
		rendered: map[string]string{},
		width:    80, height: 24,
	}
	if d.Session.Authenticated() {
		m.mode = modeList
	} else {
		m.form = loginForm()
	}
	m.layout()
	return m
}

func loginForm() form {
	pw := newInput("password", 128)
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '•'
	return newForm("Sign in", []string{"Email", "Password"}, newInput("you@example.com", 254), pw)
}

// Run starts the program on the alternate screen and blocks until it exits.
func Run(ctx context.Context, d Deps, opts ...tea.ProgramOption) error {
	m := New(ctx, d)
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		m.resize(w, h)
	}
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(m, opts...)
	d.Notes.OnChange(func(notify.Message, bool) { p.Send(noticeMsg{}) })
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	if m.mode == modeLogin {
		return textinput.Blink
	}
	return m.refresh()
}

// ---------------------------------------------------
// commands
// ---------------------------------------------------

func (m *Model) refresh() tea.Cmd {
	ctx, tasks := m.ctx, m.d.Tasks
	return func() tea.Msg { return loadedMsg{err: tasks.Refresh(ctx)} }
}

func settle(ctx context.Context, op *tasklist.Op) tea.Cmd {
	return func() tea.Msg { return settledMsg{err: op.Settle(ctx)} }
}

func (m *Model) loadHistory() tea.Cmd {
	ctx, relay := m.ctx, m.d.Relay
	return func() tea.Msg { return historyMsg{err: relay.LoadHistory(ctx)} }
}

// ---------------------------------------------------
// update
// ---------------------------------------------------

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Exit) {
			return m, tea.Quit
		}

	case noticeMsg:
		return m, nil

	case loadedMsg, settledMsg:
		m.syncList()
		return m, m.checkSession()

	case savedMsg:
		return m.saved(msg)

	case loginMsg:
		return m.loggedIn(msg)

	case historyMsg:
		m.history = msg.err == nil
		m.syncChat()
		return m, m.checkSession()

	case chatMsg:
		m.syncChat()
		m.syncList()
		return m, m.checkSession()

	case spinner.TickMsg:
		if !m.d.Relay.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	switch m.mode {
	case modeLogin:
		return m.updateLogin(msg)
	case modeAdd, modeEdit:
		return m.updateForm(msg)
	case modeChat:
		return m.updateChat(msg)
	default:
		return m.updateList(msg)
	}
}

// checkSession drops back to the sign-in form after a teardown, which
// the controller triggers on any 401.
func (m *Model) checkSession() tea.Cmd {
	if m.mode == modeLogin || m.d.Session.Authenticated() {
		return nil
	}
	return m.toLogin()
}

func (m *Model) toLogin() tea.Cmd {
	m.mode = modeLogin
	m.form = loginForm()
	m.busy, m.history, m.editID = false, false, ""
	m.rendered = map[string]string{}
	m.chatIn.Reset()
	m.chatIn.Blur()
	m.syncList()
	m.layout()
	return textinput.Blink
}

func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, m.form.update(msg)
	}
	switch {
	case key.Matches(k, m.keys.Back):
		return m, tea.Quit
	case key.Matches(k, m.keys.NextField):
		delta := 1
		if k.String() == "shift+tab" {
			delta = -1
		}
		return m, m.form.next(delta)
	case k.Type == tea.KeyEnter:
		if !m.form.last() {
			return m, m.form.next(1)
		}
		if m.busy {
			return m, nil
		}
		m.busy, m.form.err = true, ""
		ctx, auth := m.ctx, m.d.Auth
		email, password := m.form.value(0), m.form.raw(1)
		return m, func() tea.Msg {
			s, err := auth.Login(ctx, email, password)
			return loginMsg{sess: s, err: err}
		}
	}
	return m, m.form.update(msg)
}

func (m Model) loggedIn(msg loginMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		m.form.err = loginError(msg.err)
		return m, nil
	}
	if err := m.d.Session.Begin(msg.sess); err != nil {
		m.form.err = "Could not save session"
		m.d.Logger.Error("save session", "err", err)
		return m, nil
	}
	m.mode = modeList
	m.form = form{}
	m.layout()
	return m, m.refresh()
}

func loginError(err error) string {
	switch {
	case errors.Is(err, api.ErrMissingCredentials):
		return "Email and password are required"
	case api.IsTransport(err):
		return "Could not connect to the server. Is the backend running?"
	}
	if se, ok := api.AsStatus(err); ok && se.Detail != "" {
		return se.Detail
	}
	return "Login failed"
}

func (m Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, isKey := msg.(tea.KeyMsg)
	if !isKey || m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(k, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(k, m.keys.Toggle):
		if t, ok := m.selected(); ok {
			if op, err := m.d.Tasks.BeginToggle(t.ID); err == nil {
				m.syncList()
				return m, settle(m.ctx, op)
			}
		}
		return m, nil
	case key.Matches(k, m.keys.Delete):
		if t, ok := m.selected(); ok {
			if op, err := m.d.Tasks.BeginRemove(t.ID); err == nil {
				m.syncList()
				return m, settle(m.ctx, op)
			}
		}
		return m, nil
	case key.Matches(k, m.keys.Add):
		return m, m.openForm(modeAdd, model.Task{})
	case key.Matches(k, m.keys.Edit):
		if t, ok := m.selected(); ok {
			return m, m.openForm(modeEdit, t)
		}
		return m, nil
	case key.Matches(k, m.keys.NextFilter):
		m.setFilter(nextFilter(m.filter))
		return m, nil
	case key.Matches(k, m.keys.Chat):
		m.mode = modeChat
		m.layout()
		m.syncChat()
		cmds := []tea.Cmd{m.chatIn.Focus()}
		if !m.history {
			cmds = append(cmds, m.loadHistory())
		}
		return m, tea.Batch(cmds...)
	case key.Matches(k, m.keys.Refresh):
		return m, m.refresh()
	case key.Matches(k, m.keys.Dismiss):
		m.d.Notes.Dismiss()
		return m, nil
	case key.Matches(k, m.keys.Logout):
		if err := m.d.Session.Teardown(); err != nil {
			m.d.Logger.Error("sign out", "err", err)
		}
		return m, m.toLogin()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func nextFilter(f model.Filter) model.Filter {
	for i, x := range model.Filters {
		if x == f {
			return model.Filters[(i+1)%len(model.Filters)]
		}
	}
	return model.FilterAll
}

func (m *Model) setFilter(f model.Filter) {
	m.filter = f
	m.list.ResetFilter()
	m.syncList()
	m.list.Select(0)
}

func (m *Model) selected() (model.Task, bool) {
	it, ok := m.list.SelectedItem().(taskItem)
	return it.task, ok
}

func (m *Model) openForm(md mode, t model.Task) tea.Cmd {
	title := newInput("What needs to be done?", 200)
	desc := newInput("Optional details", 500)
	name := "Add task"
	if md == modeEdit {
		name = "Edit task"
		title.SetValue(t.Title)
		title.CursorEnd()
		desc.SetValue(t.Description)
		m.editID = t.ID
	}
	m.mode = md
	m.form = newForm(name, []string{"Title", "Description"}, title, desc)
	m.layout()
	return textinput.Blink
}

func (m *Model) closeForm() {
	m.mode = modeList
	m.form = form{}
	m.editID = ""
	m.layout()
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, m.form.update(msg)
	}
	switch {
	case key.Matches(k, m.keys.Back):
		m.closeForm()
		return m, nil
	case key.Matches(k, m.keys.NextField):
		delta := 1
		if k.String() == "shift+tab" {
			delta = -1
		}
		return m, m.form.next(delta)
	case k.Type == tea.KeyEnter:
		if m.busy {
			return m, nil
		}
		title, desc := m.form.value(0), m.form.value(1)
		if title == "" {
			m.form.err = "Title cannot be empty"
			return m, nil
		}
		m.busy, m.form.err = true, ""
		ctx, tasks, id := m.ctx, m.d.Tasks, m.editID
		if m.mode == modeAdd {
			return m, func() tea.Msg {
				t, err := tasks.Create(ctx, title, desc)
				return savedMsg{task: t, created: true, err: err}
			}
		}
		return m, func() tea.Msg {
			t, err := tasks.Edit(ctx, id, title, desc)
			return savedMsg{task: t, err: err}
		}
	}
	return m, m.form.update(msg)
}

// saved closes the form on success. On failure the form stays open with
// its input so the user can retry.
func (m Model) saved(msg savedMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		if errors.Is(msg.err, tasklist.ErrEmptyTitle) {
			m.form.err = "Title cannot be empty"
		}
		m.syncList()
		return m, m.checkSession()
	}
	m.closeForm()
	if msg.created && m.filter == model.FilterCompleted {
		m.filter = model.FilterAll
	}
	m.syncList()
	if msg.created {
		m.list.Select(0)
	}
	return m, nil
}

func (m Model) updateChat(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}
	switch {
	case key.Matches(k, m.keys.Back):
		m.chatIn.Blur()
		m.mode = modeList
		m.layout()
		return m, nil
	case k.Type == tea.KeyEnter:
		p, err := m.d.Relay.Begin(m.chatIn.Value())
		if err != nil {
			return m, nil
		}
		m.chatIn.Reset()
		m.syncChat()
		ctx := m.ctx
		return m, tea.Batch(
			func() tea.Msg {
				_, err := p.Settle(ctx)
				return chatMsg{err: err}
			},
			m.spin.Tick,
		)
	case k.Type == tea.KeyPgUp, k.Type == tea.KeyPgDown, k.Type == tea.KeyUp, k.Type == tea.KeyDown:
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.chatIn, cmd = m.chatIn.Update(msg)
	return m, cmd
}

// ---------------------------------------------------
// state -> widgets
// ---------------------------------------------------

func (m *Model) syncList() {
	m.list.SetItems(toItems(m.d.Tasks.List(m.filter)))
}

func (m *Model) syncChat() {
	if m.md == nil || m.lastWidth != m.chat.Width {
		md, err := ui.NewMarkdown(m.chat.Width-2, m.d.Color)
		if err != nil {
			m.d.Logger.Debug("markdown renderer", "err", err)
		}
		m.md, m.lastWidth = md, m.chat.Width
		m.rendered = map[string]string{}
	}
	var b strings.Builder
	for _, e := range m.d.Relay.Entries() {
		stamp := m.theme.Muted.Render(" " + e.At.Local().Format("15:04"))
		if e.Sender == chat.SenderUser {
			b.WriteString(m.st.you.Render("you") + stamp + "\n" + e.Text + "\n\n")
			continue
		}
		out, ok := m.rendered[e.ID]
		if !ok {
			out = m.md.Render(e.Text)
			m.rendered[e.ID] = out
		}
		b.WriteString(m.st.assistant.Render("assistant") + stamp + "\n" + out + "\n\n")
	}
	m.chat.SetContent(strings.TrimRight(b.String(), "\n"))
	m.chat.GotoBottom()
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	m.layout()
	if m.mode == modeChat {
		m.syncChat()
	}
}

// layout sizes the widgets for the current mode. The frame takes two
// rows and columns of border plus horizontal padding; the header and
// status line take three rows.
func (m *Model) layout() {
	inner := max(20, m.width-4)
	body := max(3, m.height-2-3-1)
	if m.mode == modeAdd || m.mode == modeEdit {
		body = max(3, body-m.form.height())
	}
	m.list.SetSize(inner, body)
	m.help.Width = inner
	m.chatIn.Width = max(10, inner-4)
	m.chat.Width = inner
	m.chat.Height = max(3, body-3)
}

// ---------------------------------------------------
// view
// ---------------------------------------------------

func (m Model) View() string {
	if m.mode == modeLogin {
		return m.loginView()
	}
	var sections []string
	sections = append(sections, m.header())
	switch m.mode {
	case modeChat:
		sections = append(sections, m.chatView())
	default:
		sections = append(sections, m.tabs(), m.listView())
		if m.mode == modeAdd || m.mode == modeEdit {
			sections = append(sections, m.form.view(m.theme, m.st, m.width-2))
		}
	}
	sections = append(sections, m.status())
	return m.st.frame.Render(strings.Join(sections, "\n"))
}

func (m Model) header() string {
	left := m.st.brand.Render("neontodo")
	if m.mode == modeChat {
		left += m.theme.Muted.Render(" · AI Todo Assistant")
	} else {
		left += m.theme.Muted.Render(" · " + m.filter.Title())
	}
	right := ""
	if email := m.d.Session.User().Email; email != "" {
		right = m.st.user.Render("Signed in as " + email)
	}
	gap := max(1, m.width-4-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) tabs() string {
	c := ui.CountTasks(m.d.Tasks.Tasks())
	var parts []string
	for _, f := range model.Filters {
		style := m.st.tab
		if f == m.filter {
			style = m.st.tabActive
		}
		parts = append(parts, style.Render(f.Title()))
	}
	counts := m.theme.Muted.Render(fmt.Sprintf("  %s %d  %s %d",
		m.theme.SymDone, c.Completed, m.theme.SymPending, c.Active))
	return strings.Join(parts, " ") + counts
}

func (m Model) listView() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() == list.Unfiltered {
		msg := ui.EmptyText(m.filter)
		if !m.d.Tasks.Loaded() {
			msg = "Loading tasks..."
		}
		blank := max(0, m.list.Height()-2)
		return m.theme.Muted.Render(msg) + strings.Repeat("\n", blank) + "\n" +
			m.help.ShortHelpView(append([]key.Binding{m.keys.Quit}, m.keys.listKeys()...))
	}
	return m.list.View()
}

func (m Model) chatView() string {
	input := m.chatIn.View()
	if m.d.Relay.Busy() {
		input = m.spin.View() + m.st.thinking.Render(" Thinking...")
	}
	return strings.Join([]string{m.chat.View(), "", input, m.help.View(chatHelp{m.keys})}, "\n")
}

func (m Model) status() string {
	msg, ok := m.d.Notes.Current()
	if !ok {
		return ""
	}
	if msg.Kind == notify.KindError {
		return m.theme.Error.Render(m.theme.SymFail + " " + msg.Text)
	}
	return m.theme.Success.Render(m.theme.SymDone + " " + msg.Text)
}

func (m Model) loginView() string {
	title := m.st.brand.Render("neontodo") + m.theme.Muted.Render(" · sign in to manage your tasks")
	body := m.form.view(m.theme, m.st, min(m.width, 60))
	hint := m.help.View(formHelp{m.keys})
	if m.busy {
		hint = m.st.thinking.Render("Signing in...")
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, title, "", body, hint))
}
