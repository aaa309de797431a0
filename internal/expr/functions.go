// Copyright 2025 The Cardbind Authors
// SPDX-License-Identifier: Apache-2.0

package expr

import (
	"fmt"
	"hash/fnv"
	"reflect"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
	"golang.org/x/exp/maps"
)

// BaseExtensions returns the CEL environment options every evaluator in
// this package is built with: the general-purpose extension libraries plus
// this package's own custom functions, mirrored from
// internal/template/custom_functions.go's BaseCELExtensions.
func BaseExtensions() []cel.EnvOption {
	opts := []cel.EnvOption{
		cel.OptionalTypes(),
		ext.Strings(),
		ext.Encoders(),
		ext.Math(),
		ext.Lists(),
		ext.Sets(),
		ext.TwoVarComprehensions(),
	}
	return append(opts, CustomFunctions()...)
}

// Omitted is the sentinel value the visitor in internal/expand recognizes:
// when a pair's value expression evaluates to Omitted, the enclosing pair
// is dropped from output entirely, the way a $when=false drops an object.
// Generalized from the teacher's omitValue/omitSentinel pair, which the
// teacher's post-render pass prunes from maps, slices and struct fields.
type Omitted struct{}

var omitSentinel = Omitted{}

// omitCELValue lets omit() return a valid CEL value (instead of erroring)
// that survives being placed inside map literals and list literals; its
// Value() is Omitted, which is what EvaluateRaw hands back to the visitor.
type omitCELValue struct{}

var (
	omitCEL     = &omitCELValue{}
	omitTypeVal = cel.ObjectType("cardbind.omit")
)

func (o *omitCELValue) ConvertToNative(reflect.Type) (interface{}, error) { return omitSentinel, nil }
func (o *omitCELValue) ConvertToType(ref.Type) ref.Val                    { return o }
func (o *omitCELValue) Equal(other ref.Val) ref.Val {
	if _, ok := other.(*omitCELValue); ok {
		return types.True
	}
	return types.False
}
func (o *omitCELValue) Type() ref.Type      { return omitTypeVal }
func (o *omitCELValue) Value() interface{}  { return omitSentinel }

// CustomFunctions returns the CEL environment options for this package's
// three domain functions: omit(), merge(map, map), and hash(string).
// Adapted from CustomFunctions() in custom_functions.go, dropping the
// Kubernetes-naming functions (oc_generate_name, envFrom, volumeMounts,
// volumes) that have no Adaptive Card analog.
func CustomFunctions() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function("omit",
			cel.Overload("omit", []*cel.Type{}, cel.DynType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					return omitCEL
				}),
			),
		),
		cel.Function("merge",
			cel.Overload("merge_map_map", []*cel.Type{cel.DynType, cel.DynType}, cel.DynType,
				cel.BinaryBinding(mergeMaps),
			),
		),
		cel.Function("hash",
			cel.Overload("hash_string", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(val ref.Val) ref.Val {
					s, ok := val.Value().(string)
					if !ok {
						return types.NewErr("hash: expected string, got %v", val.Type())
					}
					return types.String(hashString(s))
				}),
			),
		),
	}
}

// mergeMaps implements the binary merge() CEL function: a shallow merge of
// rhs's keys over lhs, rhs winning on conflicts. Adapted from
// mergeMapFunction in custom_functions.go, including its two-shape handling
// of CEL map values: a map literal like {"a":1} evaluates to
// map[ref.Val]ref.Val, while a value threaded through from Go (a $data
// field) is already map[string]any.
func mergeMaps(lhs, rhs ref.Val) ref.Val {
	lm, ok := toStringMap(lhs.Value())
	if !ok {
		return types.NewErr("merge: first argument must be a map, got %v", lhs.Type())
	}
	rm, ok := toStringMap(rhs.Value())
	if !ok {
		return types.NewErr("merge: second argument must be a map, got %v", rhs.Type())
	}
	out := make(map[string]any, len(lm)+len(rm))
	maps.Copy(out, lm)
	maps.Copy(out, rm)

	celOut := make(map[ref.Val]ref.Val, len(out))
	for k, v := range out {
		celOut[types.String(k)] = types.DefaultTypeAdapter.NativeToValue(v)
	}
	return types.NewDynamicMap(types.DefaultTypeAdapter, celOut)
}

func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[ref.Val]ref.Val:
		out := make(map[string]any, len(m))
		for k, val := range m {
			s, ok := k.(types.String)
			if !ok {
				return nil, false
			}
			out[string(s)] = val.Value()
		}
		return out, true
	default:
		return nil, false
	}
}

// hashString generates an 8-hex-digit FNV-1a digest, identical in shape to
// generateHashString in custom_functions.go.
func hashString(input string) string {
	h := fnv.New32a()
	h.Write([]byte(input))
	return fmt.Sprintf("%08x", h.Sum32())
}
