package cli

import (
	"context"

	"github.com/idilsaglam/neontodo/internal/tui"
)

func (a *app) doUI(args []string) int {
	if len(args) != 0 {
		a.out.Fail("usage: neontodo ui")
		return ExitUsage
	}
	err := tui.Run(context.Background(), tui.Deps{
		Auth:    a.client,
		Session: a.sess,
		Tasks:   a.tasks,
		Relay:   a.relay,
		Notes:   a.note,
		Theme:   a.cfg.Theme,
		Color:   a.out.Colored(),
		Logger:  a.log,
	})
	if err != nil {
		a.out.Fail("ui: " + err.Error())
		return ExitError
	}
	return ExitOK
}
