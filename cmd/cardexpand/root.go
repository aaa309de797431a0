// Copyright 2025 The Cardbind Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cardbind/expand/internal/config"
	"github.com/cardbind/expand/internal/logging"
)

var (
	debugFlag  bool
	configFile string
	log        logr.Logger
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cardexpand",
	Short: "Expand Adaptive Card templates against a data document",
	Long: `cardexpand evaluates $data / $root / $when / $index directives and
${...} expressions in an Adaptive Card JSON template against a caller-supplied
data document, and prints the resulting JSON.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configFile, map[string]any{"debug": debugFlag})
		if err != nil {
			return err
		}
		cfg = loaded
		level := logging.LevelInfo
		if cfg.Debug {
			level = logging.LevelDebug
		}
		l, err := logging.New(level, cfg.Debug)
		if err != nil {
			return err
		}
		log = l.WithValues("correlationID", uuid.NewString())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to an optional YAML config file")
	rootCmd.AddCommand(expandCmd, patchCmd)
}
