package folder

import (
	"math"
	"math/big"

	"github.com/synthizer/waveling/internal/config"
	"github.com/synthizer/waveling/internal/graph"
)

// binaryNumeric applies a pointwise binary op. Floats go through big.Float
// at FoldPrecision and round exactly once into the result scalar; integer
// arithmetic wraps at the declared width like the runtime does.
func binaryNumeric(a, b *graph.Constant, scalar graph.Scalar, ff func(x, y *big.Float) *big.Float, fi func(x, y int64) int64) *graph.Constant {
	if a.Width() != b.Width() {
		return nil
	}
	switch {
	case a.F != nil && b.F != nil:
		out := make([]float64, len(a.F))
		for i := range a.F {
			x := new(big.Float).SetPrec(config.FoldPrecision).SetFloat64(a.F[i])
			y := new(big.Float).SetPrec(config.FoldPrecision).SetFloat64(b.F[i])
			out[i] = roundTo(ff(x, y), scalar)
		}
		return &graph.Constant{Scalar: scalar, F: out}
	case a.I != nil && b.I != nil:
		out := make([]int64, len(a.I))
		for i := range a.I {
			out[i] = wrapInt(fi(a.I[i], b.I[i]), scalar)
		}
		return &graph.Constant{Scalar: scalar, I: out}
	}
	return nil
}

func unaryNumeric(a *graph.Constant, scalar graph.Scalar, ff func(x *big.Float) *big.Float, fi func(x int64) int64) *graph.Constant {
	switch {
	case a.F != nil:
		out := make([]float64, len(a.F))
		for i := range a.F {
			x := new(big.Float).SetPrec(config.FoldPrecision).SetFloat64(a.F[i])
			out[i] = roundTo(ff(x), scalar)
		}
		return &graph.Constant{Scalar: scalar, F: out}
	case a.I != nil:
		out := make([]int64, len(a.I))
		for i := range a.I {
			out[i] = wrapInt(fi(a.I[i]), scalar)
		}
		return &graph.Constant{Scalar: scalar, I: out}
	}
	return nil
}

// roundTo performs the single rounding from extended precision into the
// declared float type.
func roundTo(v *big.Float, scalar graph.Scalar) float64 {
	f, _ := v.Float64()
	if scalar == graph.ScalarF32 {
		return float64(float32(f))
	}
	return f
}

// wrapInt narrows to the declared integer width.
func wrapInt(v int64, scalar graph.Scalar) int64 {
	if scalar == graph.ScalarI32 {
		return int64(int32(v))
	}
	return v
}

func shift(a, b *graph.Constant, left bool) *graph.Constant {
	if a.I == nil || b.I == nil || len(b.I) != 1 {
		return nil
	}
	amount := b.I[0]
	if amount < 0 || amount > 63 {
		return nil
	}
	out := make([]int64, len(a.I))
	for i, v := range a.I {
		if left {
			out[i] = wrapInt(v<<amount, a.Scalar)
		} else {
			out[i] = v >> amount
		}
	}
	return &graph.Constant{Scalar: a.Scalar, I: out}
}

func bitwise(n *graph.Node, a, b *graph.Constant) *graph.Constant {
	if a.B != nil && b.B != nil {
		if len(a.B) != len(b.B) {
			return nil
		}
		out := make([]bool, len(a.B))
		for i := range a.B {
			switch n.Kind {
			case graph.KindBitAnd:
				out[i] = a.B[i] && b.B[i]
			case graph.KindBitOr:
				out[i] = a.B[i] || b.B[i]
			case graph.KindBitXor:
				out[i] = a.B[i] != b.B[i]
			}
		}
		return &graph.Constant{Scalar: graph.ScalarBool, B: out}
	}

	// The (T, bool) masking form of &.
	if n.Kind == graph.KindBitAnd {
		if mask := maskOperands(a, b); mask != nil {
			return mask
		}
	}

	if a.I == nil || b.I == nil || len(a.I) != len(b.I) {
		return nil
	}
	out := make([]int64, len(a.I))
	for i := range a.I {
		switch n.Kind {
		case graph.KindBitAnd:
			out[i] = a.I[i] & b.I[i]
		case graph.KindBitOr:
			out[i] = a.I[i] | b.I[i]
		case graph.KindBitXor:
			out[i] = a.I[i] ^ b.I[i]
		}
	}
	return &graph.Constant{Scalar: a.Scalar, I: out}
}

// maskOperands folds `value & mask` into value-or-zero.
func maskOperands(a, b *graph.Constant) *graph.Constant {
	val, mask := a, b
	if a.B != nil {
		val, mask = b, a
	}
	if mask.B == nil || val.B != nil || len(mask.B) != val.Width() {
		return nil
	}
	out := &graph.Constant{Scalar: val.Scalar}
	if val.I != nil {
		out.I = make([]int64, len(val.I))
		for i, v := range val.I {
			if mask.B[i] {
				out.I[i] = v
			}
		}
		return out
	}
	out.F = make([]float64, len(val.F))
	for i, v := range val.F {
		if mask.B[i] {
			out.F[i] = v
		}
	}
	return out
}

func compare(kind graph.Kind, a, b *graph.Constant) *graph.Constant {
	w := a.Width()
	if b.Width() != w {
		return nil
	}
	cmp := func(i int) (int, bool) {
		switch {
		case a.I != nil && b.I != nil:
			switch {
			case a.I[i] < b.I[i]:
				return -1, true
			case a.I[i] > b.I[i]:
				return 1, true
			}
			return 0, true
		case a.F != nil && b.F != nil:
			switch {
			case a.F[i] < b.F[i]:
				return -1, true
			case a.F[i] > b.F[i]:
				return 1, true
			}
			return 0, true
		case a.B != nil && b.B != nil:
			if kind != graph.KindEq && kind != graph.KindNe {
				return 0, false
			}
			if a.B[i] == b.B[i] {
				return 0, true
			}
			return 1, true
		}
		return 0, false
	}

	out := make([]bool, w)
	for i := 0; i < w; i++ {
		c, ok := cmp(i)
		if !ok {
			return nil
		}
		switch kind {
		case graph.KindEq:
			out[i] = c == 0
		case graph.KindNe:
			out[i] = c != 0
		case graph.KindLt:
			out[i] = c < 0
		case graph.KindLe:
			out[i] = c <= 0
		case graph.KindGt:
			out[i] = c > 0
		case graph.KindGe:
			out[i] = c >= 0
		}
	}
	return &graph.Constant{Scalar: graph.ScalarBool, B: out}
}

func castConstant(c *graph.Constant, to graph.Scalar) *graph.Constant {
	w := c.Width()
	switch to {
	case graph.ScalarI32, graph.ScalarI64:
		out := make([]int64, w)
		for i := 0; i < w; i++ {
			switch {
			case c.I != nil:
				out[i] = c.I[i]
			case c.F != nil:
				out[i] = int64(c.F[i])
			case c.B != nil:
				if c.B[i] {
					out[i] = 1
				}
			}
			out[i] = wrapInt(out[i], to)
		}
		return &graph.Constant{Scalar: to, I: out}
	case graph.ScalarF32, graph.ScalarF64:
		out := make([]float64, w)
		for i := 0; i < w; i++ {
			switch {
			case c.I != nil:
				out[i] = float64(c.I[i])
			case c.F != nil:
				out[i] = c.F[i]
			case c.B != nil:
				if c.B[i] {
					out[i] = 1
				}
			}
			if to == graph.ScalarF32 {
				out[i] = float64(float32(out[i]))
			}
		}
		return &graph.Constant{Scalar: to, F: out}
	case graph.ScalarBool:
		out := make([]bool, w)
		for i := 0; i < w; i++ {
			switch {
			case c.I != nil:
				out[i] = c.I[i] != 0
			case c.F != nil:
				out[i] = c.F[i] != 0
			case c.B != nil:
				out[i] = c.B[i]
			}
		}
		return &graph.Constant{Scalar: graph.ScalarBool, B: out}
	}
	return nil
}

// broadcastConstant zero-extends to the destination width.
func broadcastConstant(c *graph.Constant, width int) *graph.Constant {
	if width <= c.Width() {
		return nil
	}
	out := &graph.Constant{Scalar: c.Scalar}
	switch {
	case c.B != nil:
		out.B = make([]bool, width)
		copy(out.B, c.B)
	case c.I != nil:
		out.I = make([]int64, width)
		copy(out.I, c.I)
	default:
		out.F = make([]float64, width)
		copy(out.F, c.F)
	}
	return out
}

func mergeConstants(in []*graph.Constant) *graph.Constant {
	if len(in) == 0 {
		return nil
	}
	out := &graph.Constant{Scalar: in[0].Scalar}
	for _, c := range in {
		if c.Scalar != out.Scalar {
			return nil
		}
		out.B = append(out.B, c.B...)
		out.I = append(out.I, c.I...)
		out.F = append(out.F, c.F...)
	}
	return out
}

func selectConstant(cond, a, b *graph.Constant) *graph.Constant {
	if cond.B == nil || a.Scalar != b.Scalar || a.Width() != b.Width() || len(cond.B) != a.Width() {
		return nil
	}
	out := &graph.Constant{Scalar: a.Scalar}
	for i, take := range cond.B {
		switch {
		case a.I != nil:
			if take {
				out.I = append(out.I, a.I[i])
			} else {
				out.I = append(out.I, b.I[i])
			}
		case a.F != nil:
			if take {
				out.F = append(out.F, a.F[i])
			} else {
				out.F = append(out.F, b.F[i])
			}
		case a.B != nil:
			if take {
				out.B = append(out.B, a.B[i])
			} else {
				out.B = append(out.B, b.B[i])
			}
		}
	}
	return out
}

var mathFolds1 = map[string]func(float64) float64{
	"sin": math.Sin, "cos": math.Cos, "tan": math.Tan,
	"asin": math.Asin, "acos": math.Acos, "atan": math.Atan,
	"exp": math.Exp, "log": math.Log, "sqrt": math.Sqrt,
	"floor": math.Floor, "ceil": math.Ceil, "abs": math.Abs,
}

var mathFolds2 = map[string]func(float64, float64) float64{
	"min": math.Min, "max": math.Max,
	"pow": math.Pow, "atan2": math.Atan2,
}

func mathConstant(fn string, in []*graph.Constant, scalar graph.Scalar) *graph.Constant {
	switch {
	case len(in) == 1:
		if in[0].I != nil {
			// Integer abs/min/max keep integer arithmetic.
			if fn != "abs" {
				return nil
			}
			out := make([]int64, len(in[0].I))
			for i, v := range in[0].I {
				if v < 0 {
					v = -v
				}
				out[i] = v
			}
			return &graph.Constant{Scalar: scalar, I: out}
		}
		f, ok := mathFolds1[fn]
		if !ok || in[0].F == nil {
			return nil
		}
		out := make([]float64, len(in[0].F))
		for i, v := range in[0].F {
			r := f(v)
			if scalar == graph.ScalarF32 {
				r = float64(float32(r))
			}
			out[i] = r
		}
		return &graph.Constant{Scalar: scalar, F: out}

	case len(in) == 2:
		if in[0].I != nil && in[1].I != nil {
			var fi func(a, b int64) int64
			switch fn {
			case "min":
				fi = func(a, b int64) int64 {
					if a < b {
						return a
					}
					return b
				}
			case "max":
				fi = func(a, b int64) int64 {
					if a > b {
						return a
					}
					return b
				}
			default:
				return nil
			}
			return binaryNumeric(in[0], in[1], scalar, nil, fi)
		}
		f, ok := mathFolds2[fn]
		if !ok || in[0].F == nil || in[1].F == nil || len(in[0].F) != len(in[1].F) {
			return nil
		}
		out := make([]float64, len(in[0].F))
		for i := range in[0].F {
			r := f(in[0].F[i], in[1].F[i])
			if scalar == graph.ScalarF32 {
				r = float64(float32(r))
			}
			out[i] = r
		}
		return &graph.Constant{Scalar: scalar, F: out}

	case len(in) == 3 && fn == "clamp":
		lo := mathConstant("max", []*graph.Constant{in[0], in[1]}, scalar)
		if lo == nil {
			return nil
		}
		return mathConstant("min", []*graph.Constant{lo, in[2]}, scalar)
	}
	return nil
}
