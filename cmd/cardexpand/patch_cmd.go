// Copyright 2025 The Cardbind Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cardbind/expand/internal/overlay"
)

var (
	documentPath string
	opsPath      string
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Apply a binding override overlay to an already-expanded card document",
	RunE:  runPatch,
}

func init() {
	patchCmd.Flags().StringVar(&documentPath, "document", "", "path to the expanded card JSON (required)")
	patchCmd.Flags().StringVar(&opsPath, "ops", "", "path to a JSON array of overlay operations (required)")
	_ = patchCmd.MarkFlagRequired("document")
	_ = patchCmd.MarkFlagRequired("ops")
}

func runPatch(cmd *cobra.Command, args []string) error {
	docBytes, err := os.ReadFile(documentPath)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(docBytes, &doc); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	opsBytes, err := os.ReadFile(opsPath)
	if err != nil {
		return fmt.Errorf("read ops: %w", err)
	}
	var ops []overlay.Op
	if err := json.Unmarshal(opsBytes, &ops); err != nil {
		return fmt.Errorf("parse ops: %w", err)
	}

	if err := overlay.Apply(doc, ops); err != nil {
		return fmt.Errorf("apply overlay: %w", err)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
