package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultConfigFile is looked up in the scenarios directory when --config is not set.
const DefaultConfigFile = "steprun.toml"

// Config is the project configuration file.
//
// Every field mirrors a run flag. Flags given on the command line win.
type Config struct {
	Dialect    string `toml:"dialect"`
	Workers    int    `toml:"workers"`
	Strict     bool   `toml:"strict"`
	Filter     string `toml:"filter"`
	Shell      string `toml:"shell"`
	MetricsOut string `toml:"metrics_out"`
	EventsOut  string `toml:"events_out"`
	Durations  bool   `toml:"durations"`
}

// ConfigError is returned for an unreadable or invalid config file.
type ConfigError struct {
	Path    string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Path, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadConfig decodes a config file. Unknown keys are an error.
// Relative output paths are resolved against the file's directory.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, &ConfigError{Path: path, Message: "decode failed", Err: err}
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, &ConfigError{Path: path, Message: "unknown keys: " + strings.Join(keys, ", ")}
	}

	if cfg.Workers < 0 {
		return nil, &ConfigError{Path: path, Message: fmt.Sprintf("workers must be >= 0, got %d", cfg.Workers)}
	}

	base := filepath.Dir(path)
	cfg.MetricsOut = resolvePath(base, cfg.MetricsOut)
	cfg.EventsOut = resolvePath(base, cfg.EventsOut)
	return &cfg, nil
}

// findConfig returns the config file to load: explicit wins, then the
// default file in dir. Empty when there is none.
func findConfig(explicit, dir string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	path := filepath.Join(dir, DefaultConfigFile)
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", &ConfigError{Path: path, Message: "stat failed", Err: err}
	}
	return path, nil
}

// apply copies config values into opts for every flag not set explicitly.
// changed reports whether a flag was given (cmd.Flags().Changed).
func (cfg *Config) apply(opts *RunOptions, changed func(name string) bool) {
	if !changed("dialect") && cfg.Dialect != "" {
		opts.Dialect = cfg.Dialect
	}
	if !changed("workers") && cfg.Workers != 0 {
		opts.Workers = cfg.Workers
	}
	if !changed("strict") && cfg.Strict {
		opts.Strict = true
	}
	if !changed("filter") && cfg.Filter != "" {
		opts.Filter = cfg.Filter
	}
	if !changed("shell") && cfg.Shell != "" {
		opts.Shell = cfg.Shell
	}
	if !changed("metrics-out") && cfg.MetricsOut != "" {
		opts.MetricsOut = cfg.MetricsOut
	}
	if !changed("events-out") && cfg.EventsOut != "" {
		opts.EventsOut = cfg.EventsOut
	}
	if !changed("durations") && cfg.Durations {
		opts.Durations = true
	}
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
