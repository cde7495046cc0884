// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/petrel-chat/petrel/lib/config"
)

// ConfigFlags holds the configuration selection flags every Petrel
// tool accepts.
type ConfigFlags struct {
	// Path is an explicit config file, overriding PETREL_CONFIG and
	// the default location.
	Path string

	// Profile is a profile to apply on top of the loaded file. It is
	// applied after the file's own profile key and PETREL_PROFILE, so
	// the flag wins where they overlap.
	Profile string
}

// AddFlags registers the configuration flags on a flag set.
func (f *ConfigFlags) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.Path, "config", "", "config file (default ~/.config/petrel/config.yaml)")
	flags.StringVar(&f.Profile, "profile", "", "config profile to apply")
}

// Load loads and validates the configuration the flags select.
func (f *ConfigFlags) Load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.Path != "" {
		cfg, err = config.LoadFile(f.Path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if f.Profile != "" {
		if err := cfg.ApplyProfile(f.Profile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger builds the tool's slog logger on stderr from the output
// configuration. Format "auto" picks text when stderr is a terminal
// and JSON otherwise.
func NewLogger(output config.OutputConfig) (*slog.Logger, error) {
	level, err := ParseLevel(output.LogLevel)
	if err != nil {
		return nil, err
	}

	format := output.LogFormat
	if format == "" || format == "auto" {
		if term.IsTerminal(int(os.Stderr.Fd())) {
			format = "text"
		} else {
			format = "json"
		}
	}

	options := &slog.HandlerOptions{Level: level}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, options)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, options)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want auto, text, or json)", format)
	}
}

// ParseLevel maps a config log level name to a slog level. The empty
// string means info.
func ParseLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q (want debug, info, warn, or error)", name)
}
