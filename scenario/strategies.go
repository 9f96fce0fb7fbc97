package scenario

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/odvcencio/furry-keys/state"
)

func deriveByName(name string) (state.DeriveFunc, error) {
	switch name {
	case "":
		return nil, nil
	case "sum":
		return deriveSum, nil
	case "concat":
		return deriveConcat, nil
	case "count":
		return deriveCount, nil
	case "first":
		return deriveFirst, nil
	case "tuple":
		return deriveTuple, nil
	default:
		return nil, fmt.Errorf("unknown derive %q", name)
	}
}

func equalByName(name string) (state.EqualFunc, error) {
	switch name {
	case "", "identity":
		return nil, nil
	case "deep":
		return reflect.DeepEqual, nil
	case "numeric":
		return equalNumeric, nil
	default:
		return nil, fmt.Errorf("unknown equal %q", name)
	}
}

// deriveSum adds numeric values, staying integral while every value is an int.
func deriveSum(values []any) any {
	total, ftotal, isFloat := 0, 0.0, false
	for _, v := range values {
		switch n := v.(type) {
		case int:
			total += n
		case int64:
			total += int(n)
		case float64:
			ftotal += n
			isFloat = true
		}
	}
	if isFloat {
		return float64(total) + ftotal
	}
	return total
}

func deriveConcat(values []any) any {
	var b strings.Builder
	for _, v := range values {
		if v != nil {
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}

func deriveCount(values []any) any {
	n := 0
	for _, v := range values {
		if v != nil {
			n++
		}
	}
	return n
}

func deriveFirst(values []any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// deriveTuple returns a fresh slice on every call; pair it with equal: deep.
func deriveTuple(values []any) any {
	return append([]any(nil), values...)
}

func equalNumeric(a, b any) bool {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		return fa == fb
	}
	return state.Identical(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// valuesEqual compares an observed value with an expected one from YAML.
func valuesEqual(got, want any) bool {
	if fg, ok := toFloat(got); ok {
		if fw, ok := toFloat(want); ok {
			return fg == fw
		}
	}
	return reflect.DeepEqual(got, want)
}
