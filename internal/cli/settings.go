package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/idilsaglam/neontodo/internal/config"
)

// doConfig prints the settings in effect after file, env and flags, or a
// sample file to start from.
func (a *app) doConfig(args []string) int {
	switch {
	case len(args) == 1 && args[0] == "example":
		fmt.Fprint(a.opt.Stdout, config.Example)
		return ExitOK
	case len(args) != 0:
		a.out.Fail("usage: neontodo config [example]")
		return ExitUsage
	}
	fmt.Fprintf(a.opt.Stdout, "# file: %s\n", orNone(a.cfg.Path))
	if err := toml.NewEncoder(a.opt.Stdout).Encode(a.cfg); err != nil {
		a.out.Fail("config: " + err.Error())
		return ExitError
	}
	return ExitOK
}
