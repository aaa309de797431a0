// Copyright 2025 The Cardbind Authors
// SPDX-License-Identifier: Apache-2.0

package expand

import (
	"strings"

	"github.com/cardbind/expand/internal/cst"
	"github.com/cardbind/expand/internal/datacontext"
	"github.com/cardbind/expand/internal/expr"
	"github.com/cardbind/expand/internal/jsonvalue"
)

// visitor is the Template Visitor (TV) of spec.md §4.2: a tree walk over
// the CST that consults the Context Stack and the Expression Evaluator to
// rewrite template nodes into output text.
type visitor struct {
	cs    datacontext.Stack
	ee    *expr.Evaluator
	stats *ExpandStats
}

func (v *visitor) push(c *datacontext.Context) {
	v.cs.Push(c)
	if v.stats != nil && v.cs.Len() > v.stats.MaxStackDepth {
		v.stats.MaxStackDepth = v.cs.Len()
	}
}

func (v *visitor) pop() { v.cs.Pop() }

func (v *visitor) top() *datacontext.Context {
	c, _ := v.cs.Peek()
	return c
}

// eval evaluates body against the current top of stack, bookkeeping stats.
// ok is false whenever the expression must be treated as swallowed per
// spec.md §4.3/§7.
func (v *visitor) eval(body string) (any, bool) {
	if v.stats != nil {
		v.stats.ExpressionsEvaluated++
	}
	top := v.top()
	if top == nil {
		if v.stats != nil {
			v.stats.ExpressionsSwallowed++
		}
		return nil, false
	}
	val, ok := v.ee.EvaluateRaw(body, top.Memory())
	if !ok && v.stats != nil {
		v.stats.ExpressionsSwallowed++
	}
	return val, ok
}

// visitValue dispatches a Value node (spec.md §6's Value production) and
// reports whether it must be dropped entirely from its container — true
// only for an Object all of whose fan-out iterations were dropped, or a
// templated-string value that evaluated to expr.Omitted.
func (v *visitor) visitValue(n *cst.Node) (string, bool) {
	switch n.Kind {
	case cst.KindObject:
		return v.visitObject(n)
	case cst.KindArray:
		return v.visitArray(n), false
	case cst.KindTemplatedString:
		return v.visitTemplatedString(n)
	default:
		// KindString, KindNumber, KindBool, KindNull, KindParseError: pass
		// through verbatim (spec.md §4.2 "Primitive tokens").
		return n.Source, false
	}
}

// visitObject implements spec.md §4.2's Object node algorithm.
func (v *visitor) visitObject(n *cst.Node) (string, bool) {
	if v.stats != nil {
		v.stats.ObjectsVisited++
	}

	var dataPair *cst.Node
	for _, p := range n.Pairs {
		if p.IsDataKey() {
			dataPair = p
			break
		}
	}

	pushedOwnBinding := false
	if dataPair != nil && v.cs.HasContext() {
		if c, ok := v.bindData(dataPair.Value); ok {
			v.push(c)
			pushedOwnBinding = true
		}
		// ok == false: swallowed per spec.md §4.1 new_from_expression /
		// JSON-parse-error contract. Expansion proceeds under the
		// unchanged parent scope: dataPair is still left out of the
		// output, and if that parent scope is array-kind the object fans
		// out over it below.
	}

	repeats := 1
	fanout := false
	if dataPair != nil {
		if top := v.top(); top != nil && top.IsArray() {
			repeats = jsonvalue.Len(top.Token())
			fanout = true
			if v.stats != nil {
				v.stats.ArrayFanouts++
			}
		}
	}

	// Each iteration emits its own complete `{...}` object: a fan-out
	// replicates the whole object once per array element (spec.md §4.2
	// steps 3b/3d emit the braces inside the per-iteration loop), so the
	// non-dropped iterations are sibling objects joined by commas, not
	// fields merged into one object.
	var out strings.Builder
	anyKept := false

	for i := 0; i < repeats; i++ {
		if fanout {
			v.push(datacontext.DeriveAtIndex(v.top(), i))
		}

		var buf strings.Builder
		whenFalse := false
		first := true
		for _, p := range n.Pairs {
			if p == dataPair {
				continue
			}
			if p.IsWhenKey() {
				if !v.evalWhen(p) {
					whenFalse = true
				}
				continue
			}
			text, dropped := v.visitPair(p)
			if dropped {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			buf.WriteString(text)
			first = false
		}

		if fanout {
			v.pop()
		}

		if whenFalse {
			continue
		}
		if anyKept {
			out.WriteByte(',')
			// The enclosing array counts this object's text as one
			// element; each further kept iteration is one more sibling.
			if v.stats != nil && fanout {
				v.stats.ArrayElementsEmitted++
			}
		}
		out.WriteByte('{')
		out.WriteString(buf.String())
		out.WriteByte('}')
		anyKept = true
	}

	if pushedOwnBinding {
		v.pop()
	}

	if !anyKept {
		if v.stats != nil {
			v.stats.ObjectsDropped++
		}
		return "", true
	}
	return out.String(), false
}

// bindData implements spec.md §4.1 step 1's four documented value shapes
// for a $data pair. parent must be the current top of stack; ok is false
// whenever no DC could be bound (the caller treats this as "no push").
func (v *visitor) bindData(value *cst.Node) (*datacontext.Context, bool) {
	parent := v.top()
	switch {
	case value.Kind == cst.KindObject || value.Kind == cst.KindArray:
		c, err := datacontext.NewRoot(value.Source, parent.Root())
		if err != nil {
			return nil, false
		}
		return c, true
	case value.IsWholeTemplate():
		return datacontext.NewFromExpression(parent, cst.Unescape(value.ExprBody()), v.ee)
	case value.Kind == cst.KindString:
		return datacontext.NewFromExpression(parent, value.PlainText(), v.ee)
	default:
		return nil, false
	}
}

// evalWhen implements spec.md §4.2's $when pair contract, including the
// array-typed-DC defer case recorded as Open Question 1 in DESIGN.md: this
// visitor always pushes a fan-out's per-index Context before visiting
// sibling pairs, so an array-kind top of stack here only arises from the
// genuinely ambiguous case the spec leaves unresolved; it is treated the
// same as a missing/failed evaluation (kept).
func (v *visitor) evalWhen(p *cst.Node) bool {
	top := v.top()
	if top == nil || top.IsArray() {
		return true
	}
	body := whenExprBody(p.Value)
	if body == "" {
		return true
	}
	val, ok := v.eval(body)
	if !ok {
		return true
	}
	b, isBool := val.(bool)
	if !isBool {
		return true
	}
	return b
}

func whenExprBody(n *cst.Node) string {
	switch {
	case n.IsWholeTemplate():
		return cst.Unescape(n.ExprBody())
	case n.Kind == cst.KindString:
		return n.PlainText()
	default:
		return ""
	}
}

// visitPair implements spec.md §4.2's Pair node: key text, `:`, then the
// visited value. A value that evaluated to expr.Omitted drops the whole
// pair (§11's domain-stack extension of the drop mechanism to single
// fields, generalized from the teacher's omit()).
func (v *visitor) visitPair(p *cst.Node) (string, bool) {
	text, dropped := v.visitValue(p.Value)
	if dropped {
		return "", true
	}
	return p.KeyRaw + ":" + text, false
}

// visitArray implements spec.md §4.2's Array node: dropped elements (and
// their delimiter) are skipped entirely.
func (v *visitor) visitArray(n *cst.Node) string {
	var out strings.Builder
	out.WriteByte('[')
	first := true
	for _, el := range n.Elements {
		text, dropped := v.visitValue(el)
		if dropped {
			continue
		}
		if !first {
			out.WriteByte(',')
		}
		out.WriteString(text)
		first = false
		if v.stats != nil {
			v.stats.ArrayElementsEmitted++
		}
	}
	out.WriteByte(']')
	return out.String()
}

// visitTemplatedString implements spec.md §4.2's Templated-string and
// Partially templated string cases, plus §4.3's expression-expansion
// contract (swallow on any EE failure, re-emit the original text).
func (v *visitor) visitTemplatedString(n *cst.Node) (string, bool) {
	if !v.cs.HasContext() {
		// spec.md §6: with no root DC pushed, every ${...} passes through
		// unchanged.
		return n.Source, false
	}

	if n.IsWholeTemplate() {
		val, ok := v.eval(cst.Unescape(n.ExprBody()))
		if !ok {
			return n.Source, false
		}
		if _, isOmit := val.(expr.Omitted); isOmit {
			return "", true
		}
		if s, isStr := val.(string); isStr {
			return jsonvalue.QuoteString(s), false
		}
		return jsonvalue.Stringify(val), false
	}

	var sb strings.Builder
	sb.WriteByte('"')
	for _, seg := range n.Segments {
		if !seg.IsExpr {
			sb.WriteString(seg.Text)
			continue
		}
		val, ok := v.eval(cst.Unescape(seg.Text))
		if !ok {
			sb.WriteString("${")
			sb.WriteString(seg.Text)
			sb.WriteByte('}')
			continue
		}
		if _, isOmit := val.(expr.Omitted); isOmit {
			continue
		}
		// Open Question 2 (DESIGN.md): surrounding quotes are always kept
		// for a partial template, even when a segment's value is
		// non-string.
		sb.WriteString(jsonvalue.Stringify(val))
	}
	sb.WriteByte('"')
	return sb.String(), false
}
