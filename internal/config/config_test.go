// Copyright 2025 The Cardbind Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Debug {
		t.Error("Debug default should be false")
	}
	if cfg.DataFormat != "json" {
		t.Errorf("DataFormat = %q, want json", cfg.DataFormat)
	}
	if cfg.NullPlaceholder != "${%s}" {
		t.Errorf("NullPlaceholder = %q, want ${%%s}", cfg.NullPlaceholder)
	}
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", map[string]any{"debug": true, "data-format": "yaml"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Debug {
		t.Error("expected debug flag to override default")
	}
	if cfg.DataFormat != "yaml" {
		t.Errorf("DataFormat = %q, want yaml", cfg.DataFormat)
	}
	if cfg.NullPlaceholder != "${%s}" {
		t.Errorf("unrelated default NullPlaceholder should survive: got %q", cfg.NullPlaceholder)
	}
}

func TestLoadConfigFileOverridesDefaultsButNotFlags(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "cardexpand.yaml")
	contents := "data-format: yaml\nnull-placeholder: \"<<%s>>\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path, map[string]any{"debug": true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataFormat != "yaml" {
		t.Errorf("DataFormat = %q, want yaml (from config file)", cfg.DataFormat)
	}
	if cfg.NullPlaceholder != "<<%s>>" {
		t.Errorf("NullPlaceholder = %q, want <<%%s>> (from config file)", cfg.NullPlaceholder)
	}
	if !cfg.Debug {
		t.Error("expected the flag layer to still apply on top of the config file")
	}
}

func TestLoadMissingConfigFileIsNotAnError(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
}
