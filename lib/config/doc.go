// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Petrel
// command-line tools.
//
// Configuration is loaded from a single file: the path in the
// PETREL_CONFIG environment variable, the path given to a --config
// flag (via [LoadFile]), or the per-user default location reported by
// [DefaultPath]. A missing default file is not an error; every field
// has a usable default and flags can supply the rest.
//
// The file supports named profile sections that override base values,
// so one file can describe several servers:
//
//	server:
//	  url: wss://chat.example.net/stream
//	profiles:
//	  staging:
//	    server:
//	      url: wss://staging.example.net/stream
//
// The active profile is chosen by the file's top-level profile key,
// the PETREL_PROFILE environment variable, or [Config.ApplyProfile]
// for --profile flags. Environment variables never override
// individual config values; they only select which file and which
// profile to load.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded.
//
// Key exports:
//
//   - [Config] -- the full configuration with Server, Session, Output,
//     and Capture sections
//   - [Default] -- a Config with working defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other Petrel packages.
package config
