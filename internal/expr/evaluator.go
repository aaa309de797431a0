// Copyright 2025 The Cardbind Authors
// SPDX-License-Identifier: Apache-2.0

// Package expr is the Expression Evaluator (EE) of spec.md §4.4, backed by
// Google CEL (the teacher's own expression engine — internal/template
// wires cel-go the same way). It exposes exactly the two operations the
// core relies on: parse a `${...}` body, and evaluate it against a
// datacontext.MemoryView under a null-substitution policy.
package expr

import (
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/interpreter"

	"github.com/cardbind/expand/internal/datacontext"
)

// NullSubstitution is invoked when an identifier referenced by an
// expression cannot be resolved against the active MemoryView. The core's
// default, set by New when nullSub is nil, is path ↦ "${path}" (spec.md
// §4.4).
type NullSubstitution func(path string) any

// DefaultNullSubstitution re-emits the unresolved path as a placeholder,
// the core's mandated default policy.
func DefaultNullSubstitution(path string) any {
	return "${" + path + "}"
}

// Evaluator is a ready-to-use Expression Evaluator for a single expand
// call: one cel.Env, shared by every `${...}` body evaluated during that
// call, plus the null-substitution policy in effect for the call.
type Evaluator struct {
	env     *cel.Env
	nullSub NullSubstitution
}

// New constructs an Evaluator. A nil nullSub falls back to
// DefaultNullSubstitution.
func New(nullSub NullSubstitution) (*Evaluator, error) {
	env, err := cel.NewEnv(BaseExtensions()...)
	if err != nil {
		return nil, err
	}
	if nullSub == nil {
		nullSub = DefaultNullSubstitution
	}
	return &Evaluator{env: env, nullSub: nullSub}, nil
}

// EvaluateRaw implements datacontext.ExpressionEvaluator: it parses and
// evaluates body against view, returning ok=false for any parse or
// evaluation failure. Per spec.md §4.1/§4.3, callers must treat ok=false
// as "swallow silently and proceed under the unchanged parent scope" — it
// is never surfaced as a Go error.
func (e *Evaluator) EvaluateRaw(body string, view datacontext.MemoryView) (value any, ok bool) {
	ast, iss := e.env.Parse(body)
	if iss != nil && iss.Err() != nil {
		return nil, false
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, false
	}
	out, _, err := prg.Eval(&memoryActivation{view: view, nullSub: e.nullSub})
	if err != nil {
		return nil, false
	}
	if _, isNull := out.(types.Null); isNull {
		return nil, true
	}
	return out.Value(), true
}

// Unwrap returns v unchanged: EvaluateRaw already reports an omit() result
// as Omitted, so there is no internal sentinel form left to convert.
func Unwrap(v any) any { return v }

// memoryActivation adapts a datacontext.MemoryView into a CEL
// interpreter.Activation. Every name resolves successfully: a name the
// MemoryView has is returned as-is, and any other name is resolved through
// nullSub so that CEL evaluates the expression to the substituted
// placeholder value instead of failing with "no such attribute" — this is
// the mechanism spec.md §4.4's Options.null_substitution describes.
type memoryActivation struct {
	view    datacontext.MemoryView
	nullSub NullSubstitution
}

func (a *memoryActivation) ResolveName(name string) (any, bool) {
	if v, ok := a.view.Get(name); ok {
		return v, true
	}
	return a.nullSub(name), true
}

func (a *memoryActivation) Parent() interpreter.Activation { return nil }
