// Package cli is the neontodo command-line front end.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/idilsaglam/neontodo/internal/ui"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// ---------------------------------------------------
// CLI router
// ---------------------------------------------------

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string, opt Options) int {
	opt = opt.withDefaults()
	if len(args) == 0 {
		PrintHelp(opt.Stdout)
		return ExitUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(opt.Stdout)
		return ExitOK
	}

	h, ok := commands[cmd]
	if !ok {
		p := ui.NewPrinter(opt.Stdout, opt.Stderr, opt.Config.Theme, opt.Color)
		p.Fail("unknown subcommand: " + cmd)
		fmt.Fprintln(opt.Stderr)
		PrintHelp(opt.Stderr)
		return ExitUsage
	}

	a, err := newApp(opt)
	if err != nil {
		ui.NewPrinter(opt.Stdout, opt.Stderr, opt.Config.Theme, opt.Color).Fail(err.Error())
		return ExitError
	}
	defer a.close()
	return h(a, rest)
}

type handler func(a *app, args []string) int

var commands map[string]handler

func init() {
	commands = map[string]handler{
		"login":  (*app).doLogin,
		"logout": (*app).doLogout,
		"status": (*app).doStatus,
		"whoami": (*app).doWhoAmI,
		"ls":     (*app).doList,
		"add":    (*app).doAdd,
		"done":   (*app).doToggle,
		"rm":     (*app).doRemove,
		"edit":   (*app).doEdit,
		"chat":   (*app).doChat,
		"ui":     (*app).doUI,
		"config": (*app).doConfig,
	}
}

// PrintHelp writes usage to w.
func PrintHelp(w io.Writer) {
	fmt.Fprint(w, strings.TrimLeft(`
neontodo - tasks and an AI assistant from your terminal

Usage:
  neontodo [root flags] <subcommand> [args]

Root flags:
  -config <path>     config file (default ~/.tada/config.toml)
  -api <url>         API base URL
  -theme <name>      classic, neon or mono
  -group             group ls output by pending/done
  -no-color          disable colors
  -v                 debug logging

Subcommands:
  login [email]                      Sign in (password is prompted)
  logout                             Sign out and forget the session
  status                             Show API and session details
  whoami                             Show the signed-in user's token claims
  ls [-filter f] [-o text|json|yaml] List tasks (filters: all, today, completed)
  add [-d desc] <title...>           Add a task
  done [-filter f] <index|id>        Toggle completion
  rm [-filter f] <index|id>          Move a task to the trash
  edit [-filter f] [-d desc] <index|id> <title...>
                                     Change title and description
  chat <message...>                  Send a command to the assistant
  chat history                       Show the conversation so far
  ui                                 Interactive terminal UI
  config [example]                   Show effective settings, or print a sample file

Indexes are the 1-based positions printed by ls for the same filter.

Examples:
  neontodo login ada@example.com
  neontodo add -d "2 litres" Buy milk
  neontodo done 2
  neontodo chat add a task to call mom
`, "\n"))
}
