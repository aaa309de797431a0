// Copyright 2025 The Cardbind Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/cardbind/expand/internal/expand"
)

var (
	templatePath string
	dataPath     string
	dataFormat   string
	showStats    bool
)

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Expand a template file against a data file and print the result",
	RunE:  runExpand,
}

func init() {
	expandCmd.Flags().StringVar(&templatePath, "template", "", "path to the template JSON file (required)")
	expandCmd.Flags().StringVar(&dataPath, "data", "", "path to the data file (JSON or YAML, optional)")
	expandCmd.Flags().StringVar(&dataFormat, "data-format", "json", "data file encoding: json or yaml")
	expandCmd.Flags().BoolVar(&showStats, "stats", false, "print expansion stats to stderr")
	_ = expandCmd.MarkFlagRequired("template")
}

func runExpand(cmd *cobra.Command, args []string) error {
	templateBytes, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}

	var dataText string
	if dataPath != "" {
		raw, err := os.ReadFile(dataPath)
		if err != nil {
			return fmt.Errorf("read data: %w", err)
		}
		if dataFormat == "yaml" {
			jsonBytes, err := yaml.YAMLToJSON(raw)
			if err != nil {
				return fmt.Errorf("convert data from yaml: %w", err)
			}
			dataText = string(jsonBytes)
		} else {
			dataText = string(raw)
		}
	}

	var opts []expand.Option
	if showStats {
		opts = append(opts, expand.WithStats())
	}
	if placeholder := cfg.NullPlaceholder; strings.Contains(placeholder, "%s") {
		opts = append(opts, expand.WithNullSubstitution(func(path string) any {
			return fmt.Sprintf(placeholder, path)
		}))
	}

	out, stats, err := expand.ExpandWithStats(string(templateBytes), dataText, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), out)
	if showStats {
		log.Info("expand stats",
			"objectsVisited", stats.ObjectsVisited,
			"objectsDropped", stats.ObjectsDropped,
			"arrayFanouts", stats.ArrayFanouts,
			"arrayElementsEmitted", stats.ArrayElementsEmitted,
			"expressionsEvaluated", stats.ExpressionsEvaluated,
			"expressionsSwallowed", stats.ExpressionsSwallowed,
			"maxStackDepth", stats.MaxStackDepth,
		)
	}
	return nil
}
