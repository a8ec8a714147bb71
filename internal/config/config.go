// Package config loads neontodo settings.
//
// Sources, later ones winning: built-in defaults, the TOML file
// (~/.tada/config.toml unless a path is given), NEONTODO_* environment
// variables, then whatever the caller sets from command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL      = "http://localhost:8000"
	DefaultTimeoutSecs = 15
	DefaultNotifyMS    = 3000
	DefaultTheme       = "neon"
	DefaultLogLevel    = "error"
	DefaultLogFormat   = "text"

	dirName     = ".tada"
	fileName    = "config.toml"
	sessionFile = "session.json"
	logFile     = "neontodo.log"
)

// Environment overrides.
const (
	EnvAPIURL   = "NEONTODO_API_URL"
	EnvLogLevel = "NEONTODO_LOG_LEVEL"
	EnvTheme    = "NEONTODO_THEME"
)

// Log configures the logger.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Config is the resolved configuration.
type Config struct {
	APIURL            string  `toml:"api_url"`
	TimeoutSecs       int     `toml:"timeout_secs"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	NotifyDelayMS     int     `toml:"notify_delay_ms"`
	Theme             string  `toml:"theme"`
	StateDir          string  `toml:"state_dir"`
	Log               Log     `toml:"log"`

	// Path is the file the config was read from, empty if none.
	Path string `toml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIURL:        DefaultAPIURL,
		TimeoutSecs:   DefaultTimeoutSecs,
		NotifyDelayMS: DefaultNotifyMS,
		Theme:         DefaultTheme,
		StateDir:      defaultStateDir(),
		Log:           Log{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return dirName
	}
	return filepath.Join(home, dirName)
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string { return filepath.Join(defaultStateDir(), fileName) }

// Load resolves the configuration. An explicit path must exist; the
// default path is optional.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	md, err := toml.DecodeFile(path, cfg)
	switch {
	case err == nil:
		cfg.Path = path
		if undec := md.Undecoded(); len(undec) > 0 {
			return nil, fmt.Errorf("config %s: unknown key %q", path, undec[0].String())
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.applyEnv(getenv)
	cfg.StateDir = expandHome(cfg.StateDir)
	cfg.Log.File = expandHome(cfg.Log.File)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvAPIURL)); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(getenv(EnvTheme)); v != "" {
		c.Theme = v
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Validate checks the values a user can get wrong.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url %q: want an http(s) URL", c.APIURL)
	}
	if c.TimeoutSecs < 0 {
		return fmt.Errorf("timeout_secs must not be negative, got %d", c.TimeoutSecs)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative, got %s",
			strconv.FormatFloat(c.RequestsPerSecond, 'f', -1, 64))
	}
	if c.NotifyDelayMS < 0 {
		return fmt.Errorf("notify_delay_ms must not be negative, got %d", c.NotifyDelayMS)
	}
	switch c.Log.Format {
	case "", "text", "json", "logfmt":
	default:
		return fmt.Errorf("log.format %q: want text, json or logfmt", c.Log.Format)
	}
	if c.StateDir == "" {
		return errors.New("state_dir must not be empty")
	}
	return nil
}

// Timeout is the HTTP timeout; zero means the client default.
func (c *Config) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }

// NotifyDelay is how long status messages stay up.
func (c *Config) NotifyDelay() time.Duration {
	return time.Duration(c.NotifyDelayMS) * time.Millisecond
}

// SessionPath is the session key-value file.
func (c *Config) SessionPath() string { return filepath.Join(c.StateDir, sessionFile) }

// LogPath is where the TUI logs when log.file is unset.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.StateDir, logFile)
}

// Example is a commented config file.
const Example = `# neontodo configuration
api_url = "http://localhost:8000"
timeout_secs = 15
# requests_per_second = 5
notify_delay_ms = 3000
theme = "neon"          # classic, neon or mono
# state_dir = "~/.tada"

[log]
level = "error"         # debug, info, warn, error
format = "text"         # text, json or logfmt
# file = "~/.tada/neontodo.log"
`
