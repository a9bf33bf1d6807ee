// Package options merges partial visualizer configurations into the options schema.
//
// A partial configuration is a Tree: nested string-keyed records as produced by
// decoding YAML or built in code. Merging is constrained by the target: keys the
// target does not declare are ignored, values whose kind does not match the
// target's are dropped, and records are always merged recursively.
package options

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Tree is a nested configuration record.
type Tree = map[string]any

type kind int

const (
	kindOther kind = iota
	kindRecord
	kindInteger
	kindFloat
	kindString
	kindBool
	kindList
)

func kindOf(v any) kind {
	switch v.(type) {
	case map[string]any, map[any]any:
		return kindRecord
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return kindInteger
	case float32, float64:
		return kindFloat
	case string:
		return kindString
	case bool:
		return kindBool
	case []any:
		return kindList
	default:
		return kindOther
	}
}

// Merge copies values from source into target along keys target already has.
//
// For each key in source: it is skipped when target lacks the key or the two
// values are of different kinds; records are merged recursively; any other
// value overwrites the target's. A float target accepts integers, and an
// integer target accepts floats with no fractional part.
//
// Merge never adds keys and never panics. It is deterministic and idempotent.
func Merge(target, source Tree) {
	if target == nil || source == nil {
		return
	}
	for key, sv := range source {
		tv, ok := target[key]
		if !ok {
			continue
		}

		if kindOf(tv) == kindRecord || kindOf(sv) == kindRecord {
			tRec, tOK := asRecord(tv)
			sRec, sOK := asRecord(sv)
			if tOK && sOK {
				Merge(tRec, sRec)
				target[key] = tRec
			}
			continue
		}

		if v, ok := coerce(tv, sv); ok {
			target[key] = v
		}
	}
}

// coerce converts src to the kind of dst. ok is false on a mismatch,
// including integers that do not fit an int.
func coerce(dst, src any) (any, bool) {
	dk, sk := kindOf(dst), kindOf(src)
	switch dk {
	case kindInteger:
		switch sk {
		case kindInteger:
			return toInt(src)
		case kindFloat:
			return floatToInt(toFloat(src))
		}
	case kindFloat:
		switch sk {
		case kindFloat:
			f := toFloat(src)
			if math.IsNaN(f) {
				return nil, false
			}
			return f, true
		case kindInteger:
			return intToFloat(src), true
		}
	case kindString, kindBool:
		if dk == sk {
			return src, true
		}
	case kindList:
		if sk == kindList {
			l := src.([]any)
			return append([]any(nil), l...), true
		}
	}
	return nil, false
}

// asRecord returns v as a string-keyed record. Records decoded with
// non-string keys are converted when every key is a string.
func asRecord(v any) (Tree, bool) {
	switch r := v.(type) {
	case map[string]any:
		return r, true
	case map[any]any:
		out := make(Tree, len(r))
		for k, val := range r {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}

// toInt converts an integer of any width. ok is false when it overflows int.
func toInt(v any) (any, bool) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		n := rv.Int()
		if n < math.MinInt || n > math.MaxInt {
			return nil, false
		}
		return int(n), true
	case rv.CanUint():
		n := rv.Uint()
		if n > math.MaxInt {
			return nil, false
		}
		return int(n), true
	}
	return nil, false
}

// floatToInt accepts finite floats without a fractional part that fit an int.
func floatToInt(f float64) (any, bool) {
	limit := math.Exp2(strconv.IntSize - 1)
	if math.IsNaN(f) || f != math.Trunc(f) || f < -limit || f >= limit {
		return nil, false
	}
	return int(f), true
}

func intToFloat(v any) float64 {
	rv := reflect.ValueOf(v)
	if rv.CanInt() {
		return float64(rv.Int())
	}
	return float64(rv.Uint())
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	}
	panic(fmt.Sprintf("options: %T is not a float", v))
}

// Clone returns a deep copy of t.
func Clone(t Tree) Tree {
	if t == nil {
		return nil
	}
	out := make(Tree, len(t))
	for k, v := range t {
		if rec, ok := asRecord(v); ok {
			out[k] = Clone(rec)
			continue
		}
		if l, ok := v.([]any); ok {
			out[k] = append([]any(nil), l...)
			continue
		}
		out[k] = v
	}
	return out
}
