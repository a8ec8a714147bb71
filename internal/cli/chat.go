package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/idilsaglam/neontodo/internal/chat"
	"github.com/idilsaglam/neontodo/internal/session"
	"github.com/idilsaglam/neontodo/internal/ui"
)

// ---------------------------------------------------
// Chat subcommands
// ---------------------------------------------------

func (a *app) doChat(args []string) int {
	if len(args) == 0 {
		a.out.Fail("usage: neontodo chat <message...> | chat history")
		return ExitUsage
	}
	if !a.requireAuth() {
		return ExitError
	}
	ctx := context.Background()
	if len(args) == 1 && args[0] == "history" {
		return a.chatHistory(ctx)
	}

	// Load the list first so task changes the assistant makes are reported.
	if err := a.tasks.Refresh(ctx); err != nil {
		if !a.sess.Authenticated() {
			a.flush()
			a.requireAuth()
			return ExitError
		}
		a.note.Dismiss()
		a.log.Warn("chat without task list", "err", err)
	}
	reply, err := a.relay.Submit(ctx, strings.Join(args, " "))
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		a.out.Fail("chat: empty message")
		return ExitUsage
	case errors.Is(err, chat.ErrSignedOut):
		a.requireAuth()
		return ExitError
	}
	if reply.Text != "" {
		a.printEntry(reply)
	}
	a.flush()
	if err != nil {
		if !a.sess.Authenticated() {
			a.requireAuth()
		}
		return ExitError
	}
	return ExitOK
}

func (a *app) chatHistory(ctx context.Context) int {
	if err := a.relay.LoadHistory(ctx); err != nil {
		a.out.Fail("could not load chat history")
		if !a.sess.Authenticated() {
			a.out.Hint("Hint: run `neontodo login` or set " + session.EnvToken)
		}
		return ExitError
	}
	for _, e := range a.relay.Entries() {
		a.printEntry(e)
	}
	return ExitOK
}

func (a *app) printEntry(e chat.Entry) {
	th := a.out.Theme
	if e.Sender == chat.SenderUser {
		a.out.Println(th.Accent.Render("you") + th.Muted.Render(" "+e.At.Local().Format("15:04")))
		a.out.Println(e.Text)
		a.out.Println()
		return
	}
	a.out.Println(th.Title.Render("assistant") + th.Muted.Render(" "+e.At.Local().Format("15:04")))
	a.out.Println(a.markdown().Render(e.Text))
	a.out.Println()
}

func (a *app) markdown() *ui.Markdown {
	if a.md == nil {
		md, err := ui.NewMarkdown(80, a.out.Colored())
		if err != nil {
			a.log.Debug("markdown renderer", "err", err)
		}
		a.md = md
	}
	return a.md
}
