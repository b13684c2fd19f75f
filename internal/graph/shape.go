// Package graph defines the compiler's graph intermediate representation:
// nodes with pin bundles, connections between pins, and the shape and rate
// annotations inference attaches to them.
package graph

import "fmt"

// Scalar is a primitive element type. ScalarUnknown marks a pin whose
// scalar has not been resolved yet; no unknown may survive inference.
type Scalar uint8

const (
	ScalarUnknown Scalar = iota
	ScalarI32
	ScalarI64
	ScalarF32
	ScalarF64
	ScalarBool
)

func (s Scalar) String() string {
	switch s {
	case ScalarI32:
		return "i32"
	case ScalarI64:
		return "i64"
	case ScalarF32:
		return "f32"
	case ScalarF64:
		return "f64"
	case ScalarBool:
		return "bool"
	default:
		return "unknown"
	}
}

// ScalarFromName maps a source-level type literal to its Scalar.
func ScalarFromName(name string) (Scalar, bool) {
	switch name {
	case "i32":
		return ScalarI32, true
	case "i64":
		return ScalarI64, true
	case "f32":
		return ScalarF32, true
	case "f64":
		return ScalarF64, true
	case "bool":
		return ScalarBool, true
	}
	return ScalarUnknown, false
}

func (s Scalar) IsInteger() bool { return s == ScalarI32 || s == ScalarI64 }
func (s Scalar) IsFloat() bool   { return s == ScalarF32 || s == ScalarF64 }
func (s Scalar) IsNumeric() bool { return s.IsInteger() || s.IsFloat() }

// Join returns the least upper bound of two scalars on the promotion
// lattice (i32 ≤ i64, f32 ≤ f64). Integers never join with floats and
// bool only joins with bool; ok is false for those pairs. Unknown joins
// with anything.
func Join(a, b Scalar) (Scalar, bool) {
	if a == ScalarUnknown {
		return b, true
	}
	if b == ScalarUnknown || a == b {
		return a, true
	}
	if a.IsInteger() && b.IsInteger() {
		return ScalarI64, true
	}
	if a.IsFloat() && b.IsFloat() {
		return ScalarF64, true
	}
	return ScalarUnknown, false
}

// Shape is the static signature of a value on an edge: an element type and
// a channel count. Width 0 marks an unresolved width.
type Shape struct {
	Scalar Scalar
	Width  int
}

func (s Shape) String() string {
	return fmt.Sprintf("%s(%d)", s.Scalar, s.Width)
}

func (s Shape) Resolved() bool {
	return s.Scalar != ScalarUnknown && s.Width > 0
}

// Rate says how often a value may change.
type Rate uint8

const (
	RateConstant Rate = iota // same for the program lifetime
	RateBlock                // stable within a block
	RateSample               // may change every sample
)

func (r Rate) String() string {
	switch r {
	case RateConstant:
		return "c"
	case RateBlock:
		return "b"
	case RateSample:
		return "s"
	}
	return "?"
}

// MaxRate returns the faster of two rates (C < B < S).
func MaxRate(a, b Rate) Rate {
	if a > b {
		return a
	}
	return b
}
