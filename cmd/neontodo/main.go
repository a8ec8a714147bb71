package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/idilsaglam/neontodo/internal/cli"
	"github.com/idilsaglam/neontodo/internal/config"
	"github.com/idilsaglam/neontodo/internal/logging"
	"github.com/idilsaglam/neontodo/internal/ui"
)

func main() {
	// Root flags (apply to every subcommand)
	configPath := flag.String("config", "", "config file (default ~/.tada/config.toml)")
	apiURL := flag.String("api", "", "API base URL")
	theme := flag.String("theme", "", "classic, neon or mono")
	groupPending := flag.Bool("group", false, "group output by pending/done")
	noColor := flag.Bool("no-color", false, "disable colors")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() { cli.PrintHelp(os.Stderr) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintHelp(os.Stderr)
		os.Exit(cli.ExitUsage)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "neontodo:", err)
		os.Exit(cli.ExitUsage)
	}
	if *apiURL != "" {
		cfg.APIURL = strings.TrimSpace(*apiURL)
	}
	if *theme != "" {
		cfg.Theme = *theme
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "neontodo:", err)
		os.Exit(cli.ExitUsage)
	}

	// The TUI owns the terminal, so its log always goes to a file.
	logFile := cfg.Log.File
	if args[0] == "ui" {
		logFile = cfg.LogPath()
	}
	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   logFile,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "neontodo:", err)
		os.Exit(cli.ExitError)
	}

	color := ui.ColorAuto
	if *noColor || os.Getenv("NO_COLOR") != "" {
		color = ui.ColorNever
	}

	code := cli.Run(args, cli.Options{
		Group:  *groupPending,
		Config: cfg,
		Color:  color,
		Logger: logger,
	})
	_ = closer.Close()
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	os.Exit(code)
}
