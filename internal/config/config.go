// Copyright 2025 The Cardbind Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads cardexpand's CLI configuration by layering, in
// increasing precedence, built-in defaults, an optional YAML config file,
// and flag values, with koanf — the way the teacher's go.mod dependency on
// knadh/koanf/v2 + koanf/providers/confmap is meant to be used (no
// config-loading source was retrieved from the teacher itself; this follows
// koanf's own provider-layering idiom, documented at
// github.com/knadh/koanf's "cascading config" examples).
package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is cardexpand's resolved configuration.
type Config struct {
	// Debug enables verbose (debug-level) logging.
	Debug bool `koanf:"debug"`

	// DataFormat is the encoding of the --data file: "json" or "yaml".
	DataFormat string `koanf:"data-format"`

	// NullPlaceholder overrides the default "${path}" null-substitution
	// text template; "%s" in the string is replaced with the path.
	NullPlaceholder string `koanf:"null-placeholder"`
}

func defaults() map[string]any {
	return map[string]any{
		"debug":            false,
		"data-format":      "json",
		"null-placeholder": "${%s}",
	}
}

// Load builds a Config by layering, in increasing precedence: built-in
// defaults, a YAML config file (if configPath names one that exists), then
// flags. flags may be nil to skip that layer.
func Load(configPath string, flags map[string]any) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, err
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return Config{}, err
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	if flags != nil {
		if err := k.Load(confmap.Provider(flags, "."), nil); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
