// Package pv implements the process-variable database of the simulator: a
// typed, hierarchically-namespaced store of named values, some externally
// writable (control knobs), some derived and read-only.
package pv

import "fmt"

// Kind tags the type of a process variable.
type Kind int

// The supported process-variable kinds.
const (
	Invalid Kind = iota
	Int
	Float
	IntArray
	FloatArray
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case IntArray:
		return "int_array"
	case FloatArray:
		return "float_array"
	default:
		return "invalid"
	}
}

// IsArray tells if the kind is an array kind.
func (k Kind) IsArray() bool {
	return k == IntArray || k == FloatArray
}

// A Value is one typed process-variable value. Values are immutable; array
// contents are copied on construction and on access.
type Value struct {
	kind Kind
	i    int64
	f    float64
	is   []int64
	fs   []float64
}

// NewInt creates an Int Value.
func NewInt(v int64) Value {
	return Value{kind: Int, i: v}
}

// NewFloat creates a Float Value.
func NewFloat(v float64) Value {
	return Value{kind: Float, f: v}
}

// NewInts creates an IntArray Value. The slice is copied.
func NewInts(vs []int64) Value {
	cp := make([]int64, len(vs))
	copy(cp, vs)
	return Value{kind: IntArray, is: cp}
}

// NewFloats creates a FloatArray Value. The slice is copied.
func NewFloats(vs []float64) Value {
	cp := make([]float64, len(vs))
	copy(cp, vs)
	return Value{kind: FloatArray, fs: cp}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Int returns the scalar integer content.
func (v Value) Int() int64 {
	return v.i
}

// Float returns the scalar float content.
func (v Value) Float() float64 {
	return v.f
}

// Ints returns a copy of the integer array content.
func (v Value) Ints() []int64 {
	cp := make([]int64, len(v.is))
	copy(cp, v.is)
	return cp
}

// Floats returns a copy of the float array content.
func (v Value) Floats() []float64 {
	cp := make([]float64, len(v.fs))
	copy(cp, v.fs)
	return cp
}

// Len returns the number of elements for array values and 1 for scalars.
func (v Value) Len() int {
	switch v.kind {
	case IntArray:
		return len(v.is)
	case FloatArray:
		return len(v.fs)
	default:
		return 1
	}
}

// Interface returns the content as a plain Go value, suitable for JSON
// encoding.
func (v Value) Interface() any {
	switch v.kind {
	case Int:
		return v.i
	case Float:
		return v.f
	case IntArray:
		return v.Ints()
	case FloatArray:
		return v.Floats()
	default:
		return nil
	}
}

// convertTo coerces the value to the given kind. Scalar kinds coerce into
// each other numerically; array kinds must match exactly.
func (v Value) convertTo(k Kind) (Value, error) {
	if v.kind == k {
		return v, nil
	}

	switch {
	case v.kind == Int && k == Float:
		return NewFloat(float64(v.i)), nil
	case v.kind == Float && k == Int:
		return NewInt(int64(v.f)), nil
	default:
		return Value{}, fmt.Errorf(
			"cannot store %s value into %s variable", v.kind, k)
	}
}
