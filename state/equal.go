package state

import (
	"math"
	"reflect"
)

// DeriveFunc reduces the values of a reader's keys, in key order, to one value.
// It must be pure and must not panic for the values it is given.
type DeriveFunc func(values []any) any

// EqualFunc compares two derived values.
// It must be pure and must not panic for the values it is given.
type EqualFunc func(a, b any) bool

// EqualComparable compares comparable values with ==.
func EqualComparable[T comparable](a, b T) bool {
	return a == b
}

// DeriveAs adapts a typed derivation into a DeriveFunc.
func DeriveAs[D any](fn func(values []any) D) DeriveFunc {
	if fn == nil {
		return nil
	}
	return func(values []any) any {
		return fn(values)
	}
}

// EqualAs adapts a typed equality into an EqualFunc.
// Operands that do not both hold a D fall back to Identical.
func EqualAs[D any](fn func(a, b D) bool) EqualFunc {
	if fn == nil {
		return nil
	}
	return func(a, b any) bool {
		da, okA := a.(D)
		db, okB := b.(D)
		if !okA || !okB {
			return Identical(a, b)
		}
		return fn(da, db)
	}
}

// Identical reports whether a and b are the same unchanged value.
//
// Scalars compare by value; floats follow SameValue rules, so NaN is
// identical to NaN and +0 is not identical to -0. Pointers, channels, maps
// and funcs compare by reference (funcs by code pointer). Slices compare by
// backing array and length. Structs, arrays and interfaces compare with ==
// when every element is comparable and are never identical otherwise.
func Identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Float32, reflect.Float64:
		return sameFloat(va.Float(), vb.Float())
	case reflect.Complex64, reflect.Complex128:
		ca, cb := va.Complex(), vb.Complex()
		return sameFloat(real(ca), real(cb)) && sameFloat(imag(ca), imag(cb))
	case reflect.Map, reflect.Func:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	default:
		return va.Comparable() && a == b
	}
}

func sameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if a == 0 && b == 0 {
		return math.Signbit(a) == math.Signbit(b)
	}
	return a == b
}
