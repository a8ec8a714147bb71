package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/neontodo/internal/apitest"
	"github.com/idilsaglam/neontodo/internal/config"
	"github.com/idilsaglam/neontodo/internal/model"
	"github.com/idilsaglam/neontodo/internal/session"
	"github.com/idilsaglam/neontodo/internal/ui"
)

type env struct {
	t    *testing.T
	srv  *apitest.Server
	cfg  *config.Config
	vars map[string]string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	cfg := config.Default()
	cfg.APIURL = srv.URL
	cfg.StateDir = t.TempDir()
	cfg.Theme = "mono"
	return &env{t: t, srv: srv, cfg: cfg, vars: map[string]string{}}
}

type result struct {
	code        int
	out, errOut string
}

func (e *env) run(stdin string, args ...string) result {
	e.t.Helper()
	var out, errb bytes.Buffer
	code := Run(args, Options{
		Config: e.cfg,
		Color:  ui.ColorNever,
		Stdin:  strings.NewReader(stdin),
		Stdout: &out,
		Stderr: &errb,
		Getenv: func(k string) string { return e.vars[k] },
	})
	return result{code: code, out: out.String(), errOut: errb.String()}
}

func (e *env) login() {
	e.t.Helper()
	r := e.run("hunter2\n", "login", "ada@example.com")
	require.Equal(e.t, ExitOK, r.code, r.errOut)
}

func (e *env) listJSON(filter string) []model.Task {
	e.t.Helper()
	r := e.run("", "ls", "-filter", filter, "-o", "json")
	require.Equal(e.t, ExitOK, r.code, r.errOut)
	var tasks []model.Task
	require.NoError(e.t, json.Unmarshal([]byte(r.out), &tasks))
	return tasks
}

func TestHelpAndUnknown(t *testing.T) {
	e := newEnv(t)
	r := e.run("", "help")
	require.Equal(t, ExitOK, r.code)
	require.Contains(t, r.out, "neontodo [root flags] <subcommand>")

	r = e.run("", "frobnicate")
	require.Equal(t, ExitUsage, r.code)
	require.Contains(t, r.errOut, "unknown subcommand: frobnicate")

	require.Equal(t, ExitUsage, Run(nil, Options{Stdout: &bytes.Buffer{}}))
}

func TestLoginPersistsSession(t *testing.T) {
	e := newEnv(t)
	r := e.run("hunter2\n", "login", "ada@example.com")
	require.Equal(t, ExitOK, r.code, r.errOut)
	require.Contains(t, r.out, "Signed in as ada@example.com")

	r = e.run("", "status")
	require.Contains(t, r.out, "user:    ada@example.com")
	require.Contains(t, r.out, "source:  file")
	require.Contains(t, r.out, "session: "+e.cfg.SessionPath())

	r = e.run("", "whoami")
	require.Equal(t, ExitOK, r.code)
	require.Contains(t, r.out, "email:   ada@example.com")
}

func TestLoginPromptsForEmail(t *testing.T) {
	e := newEnv(t)
	r := e.run("ada@example.com\nhunter2\n", "login")
	require.Equal(t, ExitOK, r.code, r.errOut)
	require.Contains(t, r.out, "Email: ")
}

func TestLoginBlankPassword(t *testing.T) {
	e := newEnv(t)
	r := e.run("\n", "login", "ada@example.com")
	require.Equal(t, ExitUsage, r.code)
	require.Zero(t, e.srv.Calls(http.MethodPost, "/auth"))
}

func TestCommandsNeedSession(t *testing.T) {
	e := newEnv(t)
	r := e.run("", "ls")
	require.Equal(t, ExitError, r.code)
	require.Contains(t, r.errOut, "not signed in")
	require.Contains(t, r.errOut, "neontodo login")
	require.Zero(t, e.srv.TotalCalls())
}

func TestAddListToggleRemove(t *testing.T) {
	e := newEnv(t)
	e.login()

	r := e.run("", "add", "-d", "2 litres", "buy", "milk")
	require.Equal(t, ExitOK, r.code, r.errOut)
	require.Contains(t, r.out, "Task added successfully!")

	r = e.run("", "ls")
	require.Equal(t, ExitOK, r.code)
	require.Contains(t, r.out, "Active Tasks")
	require.Contains(t, r.out, " 1. [ ] buy milk  2 litres")

	r = e.run("", "done", "1")
	require.Equal(t, ExitOK, r.code, r.errOut)
	require.Contains(t, r.out, "Task moved to Completed folder!")
	require.Empty(t, e.listJSON("all"))
	done := e.listJSON("completed")
	require.Len(t, done, 1)

	r = e.run("", "rm", done[0].ID)
	require.Equal(t, ExitOK, r.code, r.errOut)
	require.Contains(t, r.out, "Task moved to Trash!")
	require.Empty(t, e.listJSON("completed"))
	stored, _ := e.srv.Task(done[0].ID)
	require.True(t, stored.IsDeleted)
}

func TestListYAML(t *testing.T) {
	e := newEnv(t)
	e.login()
	e.run("", "add", "file", "taxes")

	r := e.run("", "ls", "-o", "yaml")
	require.Equal(t, ExitOK, r.code)
	require.Contains(t, r.out, "title: file taxes")
	require.Contains(t, r.out, "completed: false")
}

func TestListBadFlags(t *testing.T) {
	e := newEnv(t)
	e.login()
	require.Equal(t, ExitUsage, e.run("", "ls", "-filter", "someday").code)
	require.Equal(t, ExitUsage, e.run("", "ls", "-o", "xml").code)
}

func TestIndexOutOfRange(t *testing.T) {
	e := newEnv(t)
	e.login()
	r := e.run("", "done", "3")
	require.Equal(t, ExitUsage, r.code)
	require.Contains(t, r.errOut, "index out of range: have 0, got 3")
}

func TestEditKeepsDescriptionUnlessGiven(t *testing.T) {
	e := newEnv(t)
	e.login()
	e.run("", "add", "-d", "details", "draft")

	r := e.run("", "edit", "1", "final", "copy")
	require.Equal(t, ExitOK, r.code, r.errOut)
	require.Contains(t, r.out, "Task updated successfully!")
	tasks := e.listJSON("all")
	require.Equal(t, "final copy", tasks[0].Title)
	require.Equal(t, "details", tasks[0].Description)

	require.Equal(t, ExitOK, e.run("", "edit", "-d", "", "1", "final").code)
	require.Empty(t, e.listJSON("all")[0].Description)
}

func TestServerFailureReported(t *testing.T) {
	e := newEnv(t)
	e.login()
	e.run("", "add", "x")
	e.srv.FailNext(http.MethodPut, "/todos/", http.StatusInternalServerError, "")

	r := e.run("", "done", "1")
	require.Equal(t, ExitError, r.code)
	require.Contains(t, r.errOut, "Failed to update task status")
}

func TestUnauthorizedClearsSession(t *testing.T) {
	e := newEnv(t)
	e.login()
	e.srv.Revoke()

	r := e.run("", "ls")
	require.Equal(t, ExitError, r.code)

	r = e.run("", "status")
	require.Contains(t, r.out, "not signed in")
}

func TestChat(t *testing.T) {
	e := newEnv(t)
	e.login()

	r := e.run("", "chat", "add", "call", "mom")
	require.Equal(t, ExitOK, r.code, r.errOut)
	require.Contains(t, r.out, "call mom")
	require.Contains(t, r.out, "Task added successfully!")
	require.Len(t, e.listJSON("all"), 1)

	r = e.run("", "chat", "history")
	require.Equal(t, ExitOK, r.code)
	require.Contains(t, r.out, "AI Todo Assistant")
	require.Contains(t, r.out, "add call mom")
}

func TestChatServerError(t *testing.T) {
	e := newEnv(t)
	e.login()
	e.srv.FailNext(http.MethodPost, "/chatbot/process", http.StatusServiceUnavailable, "")

	r := e.run("", "chat", "hello")
	require.Equal(t, ExitError, r.code)
	require.Contains(t, r.out, "Error: 503 - Service Unavailable.")
}

func TestChatAfterRevokedTokenExplains(t *testing.T) {
	e := newEnv(t)
	e.login()
	e.srv.Revoke()

	r := e.run("", "chat", "add", "buy", "milk")
	require.Equal(t, ExitError, r.code)
	require.Contains(t, r.errOut, "not signed in")
	require.Contains(t, r.errOut, "neontodo login")
	require.Zero(t, e.srv.Calls(http.MethodPost, "/chatbot/process"))

	r = e.run("", "status")
	require.Contains(t, r.out, "not signed in")
}

func TestEnvTokenAndLogout(t *testing.T) {
	e := newEnv(t)
	e.vars[session.EnvToken] = e.srv.Token("env@example.com")

	r := e.run("", "whoami")
	require.Equal(t, ExitOK, r.code, r.errOut)
	require.Contains(t, r.out, "env@example.com")
	require.Contains(t, r.out, "source:  env")

	r = e.run("", "logout")
	require.Equal(t, ExitOK, r.code)
	require.Contains(t, r.errOut, session.EnvToken+" is still set")
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	e.login()
	require.Equal(t, ExitOK, e.run("", "logout").code)
	r := e.run("", "whoami")
	require.Equal(t, ExitError, r.code)
}

func TestConfigShowsSettings(t *testing.T) {
	e := newEnv(t)
	r := e.run("", "config")
	require.Equal(t, ExitOK, r.code, r.errOut)
	require.Contains(t, r.out, "# file: (none)")
	require.Contains(t, r.out, `api_url = "`+e.srv.URL+`"`)
	require.Contains(t, r.out, `theme = "mono"`)
	require.Contains(t, r.out, "[log]")

	r = e.run("", "config", "example")
	require.Equal(t, ExitOK, r.code)
	require.Equal(t, config.Example, r.out)

	require.Equal(t, ExitUsage, e.run("", "config", "bogus").code)
}
