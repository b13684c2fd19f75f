// Package folder collapses constant-rate subgraphs into single literal
// nodes. Floating-point + - * / run at extended precision (math/big) and
// round once into the declared scalar; the math built-ins (sin, pow, ...)
// are computed in float64 and then rounded into the declared scalar. The
// evaluation itself is pure, so
// the validator reuses it for capacity and delay checks.
package folder

import (
	"math"
	"math/big"

	"github.com/synthizer/waveling/internal/config"
	"github.com/synthizer/waveling/internal/graph"
)

// Eval computes the constant value of a node's output, or reports that the
// node is not constant-evaluable. It never mutates the graph.
func Eval(g *graph.Program, id graph.NodeID) (*graph.Constant, bool) {
	return eval(g, id, make(map[graph.NodeID]*graph.Constant))
}

func eval(g *graph.Program, id graph.NodeID, memo map[graph.NodeID]*graph.Constant) (*graph.Constant, bool) {
	if c, ok := memo[id]; ok {
		return c, c != nil
	}
	memo[id] = nil // cycle guard; cycles are never constant

	n := g.Node(id)
	var result *graph.Constant

	switch {
	case n.Kind == graph.KindConst:
		result = n.Value

	case n.Kind == graph.KindSr:
		result = graph.NewIntConstant(graph.ScalarI64, g.SR)

	case foldable(n.Kind):
		inputs := make([]*graph.Constant, len(n.In))
		for idx := range n.In {
			c, ok := evalPin(g, n, idx, memo)
			if !ok {
				return nil, false
			}
			inputs[idx] = c
		}
		result = apply(n, inputs)
	}

	if result == nil {
		return nil, false
	}
	memo[id] = result
	return result, true
}

// evalPin folds one input pin, summing (or OR-ing for bool) constant
// fan-in the way the runtime would.
func evalPin(g *graph.Program, n *graph.Node, pin int, memo map[graph.NodeID]*graph.Constant) (*graph.Constant, bool) {
	edges := g.InEdgesTo(n.ID, pin)
	if len(edges) == 0 {
		return nil, false
	}
	var acc *graph.Constant
	for _, e := range edges {
		src := g.Node(e.From)
		var c *graph.Constant
		if src.Kind == graph.KindSplit {
			// A split is a channel view of its input: fold the input and
			// carve out this output's range.
			whole, ok := evalPin(g, src, 0, memo)
			if !ok {
				return nil, false
			}
			c = splitChannel(src, e.FromPin, whole)
			if c == nil {
				return nil, false
			}
		} else {
			if e.FromPin != 0 {
				return nil, false
			}
			var ok bool
			c, ok = eval(g, e.From, memo)
			if !ok {
				return nil, false
			}
		}
		if acc == nil {
			acc = c
			continue
		}
		acc = fanIn(acc, c)
		if acc == nil {
			return nil, false
		}
	}
	return acc, true
}

func foldable(k graph.Kind) bool {
	switch k {
	case graph.KindAdd, graph.KindSub, graph.KindMul, graph.KindDiv, graph.KindMod,
		graph.KindShl, graph.KindShr, graph.KindBitAnd, graph.KindBitOr, graph.KindBitXor,
		graph.KindEq, graph.KindNe, graph.KindLt, graph.KindLe, graph.KindGt, graph.KindGe,
		graph.KindNeg, graph.KindNot, graph.KindBitNot,
		graph.KindCast, graph.KindBroadcast, graph.KindTruncate,
		graph.KindMerge, graph.KindSlice, graph.KindSelect, graph.KindMath:
		return true
	}
	return false
}

// fanIn combines two constants arriving on the same pin: numeric fan-in
// sums, bool fan-in ORs.
func fanIn(a, b *graph.Constant) *graph.Constant {
	if a.Scalar != b.Scalar || a.Width() != b.Width() {
		return nil
	}
	if a.Scalar == graph.ScalarBool {
		out := make([]bool, len(a.B))
		for i := range a.B {
			out[i] = a.B[i] || b.B[i]
		}
		return &graph.Constant{Scalar: graph.ScalarBool, B: out}
	}
	return binaryNumeric(a, b, a.Scalar, addBig, func(x, y int64) int64 { return x + y })
}

func splitChannel(n *graph.Node, pin int, in *graph.Constant) *graph.Constant {
	widths, _ := n.Attrs["widths"].([]int64)
	if pin >= len(widths) {
		return nil
	}
	start := 0
	for i := 0; i < pin; i++ {
		start += int(widths[i])
	}
	end := start + int(widths[pin])
	if end > in.Width() {
		return nil
	}
	return sliceConstant(in, start, end)
}

func sliceConstant(c *graph.Constant, start, end int) *graph.Constant {
	out := &graph.Constant{Scalar: c.Scalar}
	switch {
	case c.B != nil:
		out.B = append([]bool(nil), c.B[start:end]...)
	case c.I != nil:
		out.I = append([]int64(nil), c.I[start:end]...)
	default:
		out.F = append([]float64(nil), c.F[start:end]...)
	}
	return out
}

// apply computes one node over fully-constant inputs. A nil return means
// the operation faulted (the caller reports F002) or is not constant.
func apply(n *graph.Node, in []*graph.Constant) *graph.Constant {
	switch n.Kind {
	case graph.KindAdd:
		return binaryNumeric(in[0], in[1], outScalar(n), addBig, func(a, b int64) int64 { return a + b })
	case graph.KindSub:
		return binaryNumeric(in[0], in[1], outScalar(n),
			func(a, b *big.Float) *big.Float { return new(big.Float).SetPrec(config.FoldPrecision).Sub(a, b) },
			func(a, b int64) int64 { return a - b })
	case graph.KindMul:
		return binaryNumeric(in[0], in[1], outScalar(n),
			func(a, b *big.Float) *big.Float { return new(big.Float).SetPrec(config.FoldPrecision).Mul(a, b) },
			func(a, b int64) int64 { return a * b })
	case graph.KindDiv:
		if divByZero(in[1]) {
			return nil
		}
		return binaryNumeric(in[0], in[1], outScalar(n),
			func(a, b *big.Float) *big.Float { return new(big.Float).SetPrec(config.FoldPrecision).Quo(a, b) },
			func(a, b int64) int64 { return a / b })
	case graph.KindMod:
		if divByZero(in[1]) {
			return nil
		}
		return binaryNumeric(in[0], in[1], outScalar(n),
			func(a, b *big.Float) *big.Float {
				af, _ := a.Float64()
				bf, _ := b.Float64()
				return big.NewFloat(math.Mod(af, bf))
			},
			func(a, b int64) int64 { return a % b })

	case graph.KindShl:
		return shift(in[0], in[1], true)
	case graph.KindShr:
		return shift(in[0], in[1], false)

	case graph.KindBitAnd, graph.KindBitOr, graph.KindBitXor:
		return bitwise(n, in[0], in[1])

	case graph.KindEq, graph.KindNe, graph.KindLt, graph.KindLe, graph.KindGt, graph.KindGe:
		return compare(n.Kind, in[0], in[1])

	case graph.KindNeg:
		return unaryNumeric(in[0], outScalar(n),
			func(a *big.Float) *big.Float { return new(big.Float).SetPrec(config.FoldPrecision).Neg(a) },
			func(a int64) int64 { return -a })
	case graph.KindNot:
		if in[0].B == nil {
			return nil
		}
		out := make([]bool, len(in[0].B))
		for i, v := range in[0].B {
			out[i] = !v
		}
		return &graph.Constant{Scalar: graph.ScalarBool, B: out}
	case graph.KindBitNot:
		if in[0].B != nil {
			out := make([]bool, len(in[0].B))
			for i, v := range in[0].B {
				out[i] = !v
			}
			return &graph.Constant{Scalar: graph.ScalarBool, B: out}
		}
		if in[0].I == nil {
			return nil
		}
		out := make([]int64, len(in[0].I))
		for i, v := range in[0].I {
			out[i] = ^v
			if in[0].Scalar == graph.ScalarI32 {
				out[i] = int64(^int32(v))
			}
		}
		return &graph.Constant{Scalar: in[0].Scalar, I: out}

	case graph.KindCast:
		return castConstant(in[0], outScalar(n))

	case graph.KindBroadcast:
		return broadcastConstant(in[0], n.Out[0].Shape.Width)
	case graph.KindTruncate:
		if n.Out[0].Shape.Width > in[0].Width() {
			return nil
		}
		return sliceConstant(in[0], 0, n.Out[0].Shape.Width)
	case graph.KindMerge:
		return mergeConstants(in)
	case graph.KindSlice:
		offset, _ := n.IntAttr(graph.AttrOffset)
		end, _ := n.IntAttr(graph.AttrEnd)
		if end == -1 {
			end = int64(in[0].Width())
		}
		if offset < 0 || end > int64(in[0].Width()) || offset >= end {
			return nil
		}
		return sliceConstant(in[0], int(offset), int(end))

	case graph.KindSelect:
		return selectConstant(in[0], in[1], in[2])

	case graph.KindMath:
		fn, _ := n.StrAttr(graph.AttrFn)
		return mathConstant(fn, in, outScalar(n))
	}
	return nil
}

func outScalar(n *graph.Node) graph.Scalar {
	if len(n.Out) == 0 {
		return graph.ScalarUnknown
	}
	return n.Out[0].Shape.Scalar
}

func divByZero(c *graph.Constant) bool {
	if c.I == nil {
		return false
	}
	for _, v := range c.I {
		if v == 0 {
			return true
		}
	}
	return false
}

func addBig(a, b *big.Float) *big.Float {
	return new(big.Float).SetPrec(config.FoldPrecision).Add(a, b)
}
