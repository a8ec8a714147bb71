package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/idilsaglam/neontodo/internal/api"
	"github.com/idilsaglam/neontodo/internal/chat"
	"github.com/idilsaglam/neontodo/internal/config"
	"github.com/idilsaglam/neontodo/internal/logging"
	"github.com/idilsaglam/neontodo/internal/notify"
	"github.com/idilsaglam/neontodo/internal/session"
	"github.com/idilsaglam/neontodo/internal/store/jsonstore"
	"github.com/idilsaglam/neontodo/internal/tasklist"
	"github.com/idilsaglam/neontodo/internal/ui"
)

// Options tune behavior from root flags and let tests swap the process
// environment.
type Options struct {
	Group  bool // list grouped by pending/done
	Config *config.Config
	Color  ui.ColorMode
	Logger *log.Logger

	Stdin          io.Reader
	Stdout, Stderr io.Writer
	Getenv         func(string) string
}

func (o Options) withDefaults() Options {
	if o.Config == nil {
		o.Config = config.Default()
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
	return o
}

// app is everything a subcommand may need, wired once per Run.
type app struct {
	opt    Options
	cfg    *config.Config
	log    *log.Logger
	out    *ui.Printer
	in     *bufio.Reader
	store  *jsonstore.Store
	sess   *session.Context
	client *api.Client
	note   *notify.Notifier
	tasks  *tasklist.Controller
	relay  *chat.Relay
	md     *ui.Markdown
}

func newApp(opt Options) (*app, error) {
	cfg := opt.Config
	store := jsonstore.Open(cfg.SessionPath())
	sess := session.New(store,
		session.WithLogger(opt.Logger),
		session.WithGetenv(opt.Getenv),
	)
	if err := sess.Init(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	apiOpts := []api.Option{api.WithTokenSource(sess), api.WithLogger(opt.Logger)}
	if d := cfg.Timeout(); d > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(d))
	}
	if cfg.RequestsPerSecond > 0 {
		apiOpts = append(apiOpts, api.WithRateLimit(cfg.RequestsPerSecond, 1))
	}
	client, err := api.New(cfg.APIURL, apiOpts...)
	if err != nil {
		return nil, err
	}

	note := notify.New(cfg.NotifyDelay())
	tasks := tasklist.New(client, sess, note, tasklist.WithLogger(opt.Logger))
	relay := chat.New(client, tasks, sess, note, chat.WithLogger(opt.Logger))

	return &app{
		opt:    opt,
		cfg:    cfg,
		log:    opt.Logger,
		out:    ui.NewPrinter(opt.Stdout, opt.Stderr, cfg.Theme, opt.Color),
		in:     bufio.NewReader(opt.Stdin),
		store:  store,
		sess:   sess,
		client: client,
		note:   note,
		tasks:  tasks,
		relay:  relay,
	}, nil
}

func (a *app) close() { a.note.Stop() }

// flush prints the status line the last operation left behind.
func (a *app) flush() {
	msg, ok := a.note.Current()
	if !ok {
		return
	}
	if msg.Kind == notify.KindError {
		a.out.Fail(msg.Text)
	} else {
		a.out.OK(msg.Text)
	}
	a.note.Dismiss()
}

// requireAuth prints the login hint when there is no session.
func (a *app) requireAuth() bool {
	if a.sess.Authenticated() {
		return true
	}
	a.out.Fail("not signed in")
	a.out.Hint("Hint: run `neontodo login` or set " + session.EnvToken)
	return false
}

func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.opt.Stdout, label)
	line, err := a.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// password reads without echo from a terminal, or a plain line otherwise.
func (a *app) password(label string) (string, error) {
	if f, ok := a.opt.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.opt.Stdout, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.opt.Stdout)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return a.prompt(label)
}
