// Copyright 2025 The Cardbind Authors
// SPDX-License-Identifier: Apache-2.0

package expand

import "github.com/cardbind/expand/internal/expr"

// Options configures a single Expand call. Mirrored in shape from the
// teacher's RenderOptions/DefaultRenderOptions.
type Options struct {
	// NullSubstitution overrides the policy invoked when a `${...}`
	// expression references a name the active data context cannot
	// resolve. The zero value uses expr.DefaultNullSubstitution
	// (path ↦ "${path}"), spec.md §4.4's mandated default.
	NullSubstitution expr.NullSubstitution

	// CollectStats causes ExpandWithStats's returned ExpandStats to be
	// populated; Expand discards the collected stats.
	CollectStats bool
}

// DefaultOptions returns the options Expand uses when none are supplied.
func DefaultOptions() Options {
	return Options{
		NullSubstitution: expr.DefaultNullSubstitution,
	}
}

// Option mutates an Options value being built up by Expand/ExpandWithStats.
type Option func(*Options)

// WithNullSubstitution overrides the default `${path}` null-substitution
// policy (spec.md §6 "expand(template_text, data_text, null_substitution?)").
func WithNullSubstitution(fn expr.NullSubstitution) Option {
	return func(o *Options) { o.NullSubstitution = fn }
}

// WithStats enables ExpandStats collection.
func WithStats() Option {
	return func(o *Options) { o.CollectStats = true }
}

func newEvaluator(o Options) (*expr.Evaluator, error) {
	return expr.New(o.NullSubstitution)
}

func resolveOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if o.NullSubstitution == nil {
		o.NullSubstitution = expr.DefaultNullSubstitution
	}
	return o
}

// ExpandStats is instrumentation about one Expand call, mirrored in shape
// from the teacher's RenderMetadata — a value the caller can use for
// logging or metrics without the core needing an observability dependency
// of its own.
type ExpandStats struct {
	// ObjectsVisited is the number of Object nodes the visitor walked.
	ObjectsVisited int

	// ObjectsDropped is the number of Object nodes omitted entirely
	// because every fan-out iteration's $when evaluated false.
	ObjectsDropped int

	// ArrayFanouts is the number of $data-bound array fan-outs performed.
	ArrayFanouts int

	// ArrayElementsEmitted is the total element count across all arrays
	// in the output, after drops.
	ArrayElementsEmitted int

	// ExpressionsEvaluated counts every `${...}` value or `$when` body
	// handed to the Expression Evaluator, successful or not. `$data`
	// binding expressions are not counted.
	ExpressionsEvaluated int

	// ExpressionsSwallowed counts expressions whose parse or evaluation
	// failed and were swallowed per spec.md §4.3/§7.
	ExpressionsSwallowed int

	// MaxStackDepth is the deepest the Context Stack reached during the
	// call, for asserting spec.md §8 property 1 (stack balance) in tests.
	MaxStackDepth int
}
