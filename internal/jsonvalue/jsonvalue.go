// Copyright 2025 The Cardbind Authors
// SPDX-License-Identifier: Apache-2.0

// Package jsonvalue implements the JSON Value (JV) domain the expander's
// data contexts are built from: plain Go values produced by encoding/json,
// plus the handful of inspection helpers the visitor needs.
package jsonvalue

import (
	"encoding/json"
	"fmt"
)

// Parse decodes text into a JV. Objects decode to map[string]any, arrays to
// []any, strings to string, numbers to float64, matching encoding/json's
// default decoding into an interface{}.
func Parse(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("parse json value: %w", err)
	}
	return v, nil
}

// IsArray reports whether v is a JSON array.
func IsArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

// IsObject reports whether v is a JSON object.
func IsObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

// IsString reports whether v is a JSON string.
func IsString(v any) bool {
	_, ok := v.(string)
	return ok
}

// Len returns the element count of an array JV. Callers must check IsArray first.
func Len(v any) int {
	arr, _ := v.([]any)
	return len(arr)
}

// Index returns the element at i of an array JV. The caller bounds i; an
// out-of-range index is a programming error per §4.1.
func Index(v any, i int) any {
	arr := v.([]any)
	return arr[i]
}

// Stringify renders a JV for concatenation into expander output.
//
//   - strings render without quotes (the caller decides whether to wrap them)
//   - everything else (numbers, objects, arrays, bool, null) round-trips
//     through encoding/json to produce compact JSON text
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// QuoteString renders s as a double-quoted, escaped JSON string literal,
// for emitting a whole-template expression result that evaluated to a
// string (spec.md §4.2 "surround with double quotes").
func QuoteString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `"` + s + `"`
	}
	return string(b)
}

// EmptyObject returns a fresh empty JSON object, used to seed a MemoryView
// when a data context's bound token is not itself an object (§3 invariant).
func EmptyObject() map[string]any {
	return map[string]any{}
}
