// Copyright 2025 The Cardbind Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging constructs the logr.Logger the CLI and library callers
// share, backed by zap the same way the teacher's controllers obtain a
// logr.Logger from controller-runtime's manager — generalized here outside
// controller-runtime, since this module has no reconcile loop to thread a
// logger through.
package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

// Level selects a logging verbosity, mirrored from the flag names cobra
// CLIs in this ecosystem commonly expose.
type Level int

const (
	LevelInfo Level = iota
	LevelDebug
)

// New builds a logr.Logger. development=true uses zap's development config
// (console encoding, caller info, stack traces on warn); false uses the
// production config (JSON encoding) for scripted/CI use.
func New(level Level, development bool) (logr.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if level == LevelDebug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	zl, err := cfg.Build()
	if err != nil {
		return logr.Logger{}, err
	}
	return zapr.NewLogger(zl), nil
}
