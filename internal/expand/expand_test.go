// Copyright 2025 The Cardbind Authors
// SPDX-License-Identifier: Apache-2.0

package expand

import (
	"errors"
	"testing"
)

// Scenarios S1-S6 from spec.md §8.

func TestScenarioRootBinding(t *testing.T) {
	t.Parallel()

	out, err := Expand(`{"type":"TextBlock","text":"Hello ${name}"}`, `{"name":"Matt"}`)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := `{"type":"TextBlock","text":"Hello Matt"}`
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestScenarioArrayFanout(t *testing.T) {
	t.Parallel()

	out, err := Expand(
		`{"items":[{"$data":"${people}","text":"${n}"}]}`,
		`{"people":[{"n":"A"},{"n":"B"}]}`,
	)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := `{"items":[{"text":"A"},{"text":"B"}]}`
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestScenarioWhenDrop(t *testing.T) {
	t.Parallel()

	out, err := Expand(
		`{"items":[{"$when":"${x == 2}","text":"keep"}]}`,
		`{"x":1}`,
	)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := `{"items":[]}`
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestScenarioNestedData(t *testing.T) {
	t.Parallel()

	out, err := Expand(`{"$data":"${a}","text":"${b}"}`, `{"a":{"b":"inner"}}`)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := `{"text":"inner"}`
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestScenarioUnresolvedPlaceholder(t *testing.T) {
	t.Parallel()

	out, err := Expand(`{"text":"${missing}"}`, `{}`)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := `{"text":"${missing}"}`
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestScenarioNonStringInline(t *testing.T) {
	t.Parallel()

	out, err := Expand(`{"n":"${count}"}`, `{"count":3}`)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := `{"n":3}`
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

// Testable properties, spec.md §8.

func TestPropertyStackBalance(t *testing.T) {
	t.Parallel()

	_, stats, err := ExpandWithStats(
		`{"items":[{"$data":"${people}","text":"${n}"}]}`,
		`{"people":[{"n":"A"},{"n":"B"}]}`,
		WithStats(),
	)
	if err != nil {
		t.Fatalf("ExpandWithStats: %v", err)
	}
	if stats.MaxStackDepth == 0 {
		t.Error("expected the context stack to have been used at all")
	}
	// expand.go asserts this already via its panic check; this test exists
	// to exercise that code path rather than just trust it.
}

func TestPropertyIdempotenceOnStaticInput(t *testing.T) {
	t.Parallel()

	const tmpl = `{"type":"TextBlock","text":"hello world","count":5,"ok":true,"nothing":null}`
	out, err := Expand(tmpl, `{"irrelevant":1}`)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if out != tmpl {
		t.Errorf("out = %q, want unchanged %q", out, tmpl)
	}
}

func TestPropertyArrayFanoutCountMatchesDroppedCount(t *testing.T) {
	t.Parallel()

	out, err := Expand(
		`{"items":[{"$data":"${people}","$when":"${keep}","text":"${n}"}]}`,
		`{"people":[{"n":"A","keep":true},{"n":"B","keep":false},{"n":"C","keep":true}]}`,
	)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := `{"items":[{"text":"A"},{"text":"C"}]}`
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestPropertyQuoteElision(t *testing.T) {
	t.Parallel()

	out, err := Expand(`{"$data":{"n":5},"v":"${n}"}`, `{}`)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if want := `{"v":5}`; out != want {
		t.Errorf("numeric case: out = %q, want %q", out, want)
	}

	out, err = Expand(`{"v":"${string_field}"}`, `{"string_field":"hi"}`)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if want := `{"v":"hi"}`; out != want {
		t.Errorf("string case: out = %q, want %q", out, want)
	}
}

func TestPropertyNullSubstitutionOverride(t *testing.T) {
	t.Parallel()

	out, err := Expand(`{"text":"${missing}"}`, `{}`,
		WithNullSubstitution(func(path string) any { return "N/A" }))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if want := `{"text":"N/A"}`; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestPropertySwallowedFailuresNeverPropagate(t *testing.T) {
	t.Parallel()

	out, err := Expand(`{"text":"${this is not valid cel (((}"}`, `{}`)
	if err != nil {
		t.Fatalf("Expand returned an error instead of swallowing: %v", err)
	}
	if out == "" {
		t.Error("expected output even though the expression could not evaluate")
	}
}

// Open Question pinning tests, per DESIGN.md.

func TestOpenQuestion2PartialTemplateNonStringSegmentKeepsQuotes(t *testing.T) {
	t.Parallel()

	out, err := Expand(`{"text":"value: ${count}"}`, `{"count":3}`)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := `{"text":"value: 3"}`
	if out != want {
		t.Errorf("out = %q, want %q (surrounding quotes must survive a non-string segment)", out, want)
	}
}

func TestOpenQuestion1WhenDeferredDuringFanoutActsPerIteration(t *testing.T) {
	t.Parallel()

	// $when sits alongside $data on the fan-out object itself; per the
	// resolved open question, it is evaluated once per iteration (against
	// each element's own context) rather than once against the array.
	out, err := Expand(
		`{"items":[{"$data":"${people}","$when":"${n == \"A\"}","text":"${n}"}]}`,
		`{"people":[{"n":"A"},{"n":"B"}]}`,
	)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := `{"items":[{"text":"A"}]}`
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

// Other behavioral coverage.

func TestExpandEmptyTemplateIsInvalidArgument(t *testing.T) {
	t.Parallel()

	if _, err := Expand("", `{}`); err != ErrInvalidArgument {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestExpandMalformedDataText(t *testing.T) {
	t.Parallel()

	if _, err := Expand(`{"text":"hi"}`, `{not json`); !errors.Is(err, ErrMalformedData) {
		t.Errorf("err = %v, want ErrMalformedData", err)
	}
}

func TestExpandNoDataTextPassesThroughExpressions(t *testing.T) {
	t.Parallel()

	out, err := Expand(`{"text":"${anything}"}`, "")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := `{"text":"${anything}"}`
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestExpandOmitDropsPair(t *testing.T) {
	t.Parallel()

	out, err := Expand(`{"keep":"yes","drop":"${omit()}"}`, `{}`)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := `{"keep":"yes"}`
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestExpandParseErrorSubtreePassesThrough(t *testing.T) {
	t.Parallel()

	out, err := Expand(`{"a":1,"b":nope,"c":3}`, `{}`)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := `{"a":1,"b":nope,"c":3}`
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestExpandWholeObjectDroppedWhenWhenFalse(t *testing.T) {
	t.Parallel()

	// Single (non-fan-out) object whose own $when is false: it is dropped
	// from the enclosing array entirely, with no dangling delimiter.
	out, err := Expand(
		`{"items":[{"$when":"${false}","text":"a"},{"text":"b"}]}`,
		`{}`,
	)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := `{"items":[{"text":"b"}]}`
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestExpandInvalidArgumentIsDistinctFromMalformedData(t *testing.T) {
	t.Parallel()

	if ErrInvalidArgument == ErrMalformedData {
		t.Fatal("the two fatal error kinds must be distinguishable")
	}
}
