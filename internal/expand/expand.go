// Copyright 2025 The Cardbind Authors
// SPDX-License-Identifier: Apache-2.0

// Package expand is the library entry point of spec.md §6: it wires the
// CST front end (package cst), the Context Stack (package datacontext),
// and the Expression Evaluator (package expr) into one Expand call.
package expand

import (
	"fmt"

	"github.com/cardbind/expand/internal/cst"
	"github.com/cardbind/expand/internal/datacontext"
)

// Expand rewrites templateText against dataText, evaluating every `${...}`
// placeholder and `$data`/`$when` directive it contains, and returns the
// resulting output string. dataText may be empty, in which case no root
// Data Context is pushed and every `${...}` passes through unchanged
// (spec.md §6).
//
// Expand never returns an error for a malformed template: a subtree the
// grammar front end cannot parse, or an expression the evaluator cannot
// evaluate, is emitted as its original source text instead (spec.md §7).
// Apart from a failure to construct the expression evaluator, the only
// errors are ErrInvalidArgument (templateText is empty) and
// ErrMalformedData (dataText is non-empty and not valid JSON, wrapped;
// match it with errors.Is).
func Expand(templateText, dataText string, opts ...Option) (string, error) {
	out, _, err := ExpandWithStats(templateText, dataText, opts...)
	return out, err
}

// ExpandWithStats is Expand plus an ExpandStats snapshot of the call, for
// callers that want counters to log or assert on. ExpandStats is only
// populated when WithStats() is among opts; otherwise it is returned zero.
func ExpandWithStats(templateText, dataText string, opts ...Option) (string, ExpandStats, error) {
	if templateText == "" {
		return "", ExpandStats{}, ErrInvalidArgument
	}

	o := resolveOptions(opts)
	ee, err := newEvaluator(o)
	if err != nil {
		return "", ExpandStats{}, fmt.Errorf("construct expression evaluator: %w", err)
	}

	var stats *ExpandStats
	if o.CollectStats {
		stats = &ExpandStats{}
	}
	v := &visitor{ee: ee, stats: stats}

	if dataText != "" {
		root, err := datacontext.NewCallRoot(dataText)
		if err != nil {
			return "", ExpandStats{}, err
		}
		v.push(root)
	}

	tree := cst.Parse(templateText)
	output, _ := v.visitValue(tree)

	if dataText != "" {
		v.pop()
	}
	if v.cs.Len() != 0 {
		// Unreachable if every push site is paired with exactly one pop,
		// but kept as a hard invariant check per spec.md §5's resource
		// discipline — surfacing an unbalanced stack as a panic is far
		// easier to debug than silently returning wrong output.
		panic(fmt.Sprintf("expand: context stack imbalance, depth=%d", v.cs.Len()))
	}

	result := ExpandStats{}
	if stats != nil {
		result = *stats
	}
	return output, result, nil
}
