package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/idilsaglam/neontodo/internal/model"
	"github.com/idilsaglam/neontodo/internal/tasklist"
)

// ---------------------------------------------------
// Task subcommands
// ---------------------------------------------------

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.opt.Stderr)
	return fs
}

// load fetches the server snapshot, reporting failure the way the
// controller phrased it.
func (a *app) load(ctx context.Context) bool {
	if !a.requireAuth() {
		return false
	}
	if err := a.tasks.Refresh(ctx); err != nil {
		a.flush()
		return false
	}
	return true
}

func (a *app) doList(args []string) int {
	fs := a.flags("ls")
	filter := fs.String("filter", "all", "all, today or completed")
	format := fs.String("o", "text", "output format: text, json or yaml")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		a.out.Fail("usage: neontodo ls [-filter f] [-o text|json|yaml]")
		return ExitUsage
	}
	f, err := model.ParseFilter(*filter)
	if err != nil {
		a.out.Fail(err.Error())
		return ExitUsage
	}
	switch *format {
	case "text", "json", "yaml":
	default:
		a.out.Fail("unknown output format: " + *format)
		return ExitUsage
	}

	if !a.load(context.Background()) {
		return ExitError
	}
	view := a.tasks.List(f)
	switch *format {
	case "json":
		err = writeJSON(a.opt.Stdout, view)
	case "yaml":
		err = writeYAML(a.opt.Stdout, view)
	default:
		a.out.TaskPanel(f, view, a.tasks.Tasks(), a.opt.Group)
	}
	if err != nil {
		a.out.Fail("encode: " + err.Error())
		return ExitError
	}
	return ExitOK
}

func writeJSON(w io.Writer, tasks []model.Task) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tasks)
}

func writeYAML(w io.Writer, tasks []model.Task) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(tasks); err != nil {
		return err
	}
	return enc.Close()
}

func (a *app) doAdd(args []string) int {
	fs := a.flags("add")
	desc := fs.String("d", "", "description")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		a.out.Fail("usage: neontodo add [-d description] <title...>")
		return ExitUsage
	}
	if !a.requireAuth() {
		return ExitError
	}
	t, err := a.tasks.Create(context.Background(), strings.Join(fs.Args(), " "), *desc)
	switch {
	case errors.Is(err, tasklist.ErrEmptyTitle):
		a.out.Fail("add: empty title")
		return ExitUsage
	case err != nil:
		a.flush()
		return ExitError
	}
	a.flush()
	a.log.Debug("added", "id", t.ID)
	return ExitOK
}

// target parses "[-filter f] <index|id> [rest...]" shared by done, rm and edit.
type target struct {
	filter model.Filter
	ref    string
	rest   []string
	desc   *string
}

func (a *app) parseTarget(name, usage string, args []string, withDesc bool) (target, bool) {
	fs := a.flags(name)
	filter := fs.String("filter", "all", "filter the index refers to")
	var desc *string
	if withDesc {
		desc = fs.String("d", "", "description")
	}
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		a.out.Fail("usage: " + usage)
		return target{}, false
	}
	f, err := model.ParseFilter(*filter)
	if err != nil {
		a.out.Fail(err.Error())
		return target{}, false
	}
	t := target{filter: f, ref: fs.Arg(0), rest: fs.Args()[1:]}
	if withDesc {
		fs.Visit(func(fl *flag.Flag) {
			if fl.Name == "d" {
				t.desc = desc
			}
		})
	}
	return t, true
}

// resolve maps an index into the filtered view, or an id into the cache.
func (a *app) resolve(t target) (model.Task, bool) {
	view := a.tasks.List(t.filter)
	if n, err := strconv.Atoi(t.ref); err == nil {
		if n < 1 || n > len(view) {
			a.out.Fail(fmt.Sprintf("index out of range: have %d, got %d", len(view), n))
			a.out.Hint("Hint: run `neontodo ls -filter " + t.filter.String() + "` to see valid indexes")
			return model.Task{}, false
		}
		return view[n-1], true
	}
	task, ok := a.tasks.Get(t.ref)
	if !ok {
		a.out.Fail("no task with id " + t.ref)
		return model.Task{}, false
	}
	return task, true
}

func (a *app) doToggle(args []string) int {
	return a.mutate("done", args, a.tasks.Toggle)
}

func (a *app) doRemove(args []string) int {
	return a.mutate("rm", args, a.tasks.Remove)
}

func (a *app) mutate(name string, args []string, fn func(context.Context, string) error) int {
	t, ok := a.parseTarget(name, "neontodo "+name+" [-filter f] <index|id>", args, false)
	if !ok || len(t.rest) != 0 {
		if ok {
			a.out.Fail("usage: neontodo " + name + " [-filter f] <index|id>")
		}
		return ExitUsage
	}
	ctx := context.Background()
	if !a.load(ctx) {
		return ExitError
	}
	task, ok := a.resolve(t)
	if !ok {
		return ExitUsage
	}
	err := fn(ctx, task.ID)
	a.flush()
	if err != nil {
		return ExitError
	}
	return ExitOK
}

func (a *app) doEdit(args []string) int {
	const usage = "neontodo edit [-filter f] [-d description] <index|id> <title...>"
	t, ok := a.parseTarget("edit", usage, args, true)
	if !ok {
		return ExitUsage
	}
	if len(t.rest) == 0 {
		a.out.Fail("usage: " + usage)
		return ExitUsage
	}
	ctx := context.Background()
	if !a.load(ctx) {
		return ExitError
	}
	task, ok := a.resolve(t)
	if !ok {
		return ExitUsage
	}
	desc := task.Description
	if t.desc != nil {
		desc = *t.desc
	}
	_, err := a.tasks.Edit(ctx, task.ID, strings.Join(t.rest, " "), desc)
	switch {
	case errors.Is(err, tasklist.ErrEmptyTitle):
		a.out.Fail("edit: empty title")
		return ExitUsage
	case err != nil:
		a.flush()
		return ExitError
	}
	a.flush()
	return ExitOK
}
