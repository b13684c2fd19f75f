package infer

import (
	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/graph"
)

var floatOnlyMath = map[string]bool{
	"sin": true, "cos": true, "tan": true,
	"asin": true, "acos": true, "atan": true,
	"exp": true, "log": true, "sqrt": true,
	"pow": true, "atan2": true,
	"floor": true, "ceil": true,
}

func isArithmetic(k graph.Kind) bool {
	switch k {
	case graph.KindAdd, graph.KindSub, graph.KindMul, graph.KindDiv, graph.KindMod:
		return true
	}
	return false
}

func isComparison(k graph.Kind) bool {
	switch k {
	case graph.KindEq, graph.KindNe, graph.KindLt, graph.KindLe, graph.KindGt, graph.KindGe:
		return true
	}
	return false
}

func isBitwise(k graph.Kind) bool {
	switch k {
	case graph.KindBitAnd, graph.KindBitOr, graph.KindBitXor:
		return true
	}
	return false
}

// seedNode plants everything known about a node before propagation.
func (inf *Inferencer) seedNode(n *graph.Node) {
	switch n.Kind {
	case graph.KindConst:
		if n.Value == nil {
			return
		}
		key := pinKey{n.ID, graph.DirOut, 0}
		inf.setWidth(key, n.Value.Width(), n.Tok)
		if n.Value.Scalar != graph.ScalarUnknown {
			inf.setScalar(key, n.Value.Scalar, n.Tok)
		} else if n.Value.F != nil {
			inf.constrain(key, famFloat)
		} else {
			inf.constrain(key, famNumeric)
		}

	case graph.KindCast:
		target, _ := n.StrAttr(graph.AttrCastTo)
		scalar, _ := graph.ScalarFromName(target)
		inf.setScalar(pinKey{n.ID, graph.DirOut, 0}, scalar, n.Tok)

	case graph.KindXoroshiro:
		inf.setScalar(pinKey{n.ID, graph.DirOut, 0}, graph.ScalarF64, n.Tok)
		inf.setWidth(pinKey{n.ID, graph.DirOut, 0}, 1, n.Tok)

	case graph.KindSr, graph.KindClock:
		inf.setScalar(pinKey{n.ID, graph.DirOut, 0}, graph.ScalarI64, n.Tok)
		inf.setWidth(pinKey{n.ID, graph.DirOut, 0}, 1, n.Tok)

	case graph.KindDelRead:
		buf := inf.bufferOf(n)
		if buf != nil {
			inf.setScalar(pinKey{n.ID, graph.DirOut, 0}, buf.Shape.Scalar, n.Tok)
			inf.setWidth(pinKey{n.ID, graph.DirOut, 0}, buf.Shape.Width, n.Tok)
		}
		delayKey := pinKey{n.ID, graph.DirIn, 0}
		inf.constrain(delayKey, famInt)
		inf.setWidth(delayKey, 1, n.Tok)

	case graph.KindDelWrite:
		buf := inf.bufferOf(n)
		if buf != nil {
			inf.setScalar(pinKey{n.ID, graph.DirIn, 0}, buf.Shape.Scalar, n.Tok)
			inf.setWidth(pinKey{n.ID, graph.DirIn, 0}, buf.Shape.Width, n.Tok)
		}

	case graph.KindBiquad:
		for _, name := range []string{"frequency", "q"} {
			if idx, ok := n.InIndex(name); ok {
				key := pinKey{n.ID, graph.DirIn, idx}
				inf.constrain(key, famFloat)
				inf.setWidth(key, 1, n.Tok)
			}
		}
		if idx, ok := n.InIndex("input"); ok {
			inf.constrain(pinKey{n.ID, graph.DirIn, idx}, famFloat)
		}
		inf.constrain(pinKey{n.ID, graph.DirOut, 0}, famFloat)

	case graph.KindSelect:
		if idx, ok := n.InIndex("cond"); ok {
			inf.constrain(pinKey{n.ID, graph.DirIn, idx}, famBool)
		}

	case graph.KindMath:
		fn, _ := n.StrAttr(graph.AttrFn)
		fam := famNumeric
		if floatOnlyMath[fn] {
			fam = famFloat
		}
		for idx := range n.In {
			inf.constrain(pinKey{n.ID, graph.DirIn, idx}, fam)
		}
		inf.constrain(pinKey{n.ID, graph.DirOut, 0}, fam)

	case graph.KindShl, graph.KindShr:
		inf.constrain(pinKey{n.ID, graph.DirIn, 0}, famInt)
		inf.constrain(pinKey{n.ID, graph.DirIn, 1}, famInt)
		inf.setWidth(pinKey{n.ID, graph.DirIn, 1}, 1, n.Tok)
		inf.constrain(pinKey{n.ID, graph.DirOut, 0}, famInt)

	case graph.KindNeg:
		inf.constrain(pinKey{n.ID, graph.DirIn, 0}, famNumeric)
		inf.constrain(pinKey{n.ID, graph.DirOut, 0}, famNumeric)

	case graph.KindNot:
		inf.constrain(pinKey{n.ID, graph.DirIn, 0}, famBool)
		inf.constrain(pinKey{n.ID, graph.DirOut, 0}, famBool)

	case graph.KindSplit:
		widths, _ := n.Attrs["widths"].([]int64)
		sum := 0
		for i, w := range widths {
			if i < len(n.Out) {
				inf.setWidth(pinKey{n.ID, graph.DirOut, i}, int(w), n.Tok)
			}
			sum += int(w)
		}
		inf.setWidth(pinKey{n.ID, graph.DirIn, 0}, sum, n.Tok)
	}

	if isArithmetic(n.Kind) {
		for idx := range n.In {
			inf.constrain(pinKey{n.ID, graph.DirIn, idx}, famNumeric)
		}
		inf.constrain(pinKey{n.ID, graph.DirOut, 0}, famNumeric)
	}
	if isComparison(n.Kind) {
		inf.constrain(pinKey{n.ID, graph.DirOut, 0}, famBool)
		inf.setScalar(pinKey{n.ID, graph.DirOut, 0}, graph.ScalarBool, n.Tok)
	}
	if n.Kind == graph.KindBitAnd || n.Kind == graph.KindBitOr || n.Kind == graph.KindBitXor {
		if logical, _ := n.IntAttr("logical"); logical == 1 {
			for idx := range n.In {
				inf.constrain(pinKey{n.ID, graph.DirIn, idx}, famBool)
			}
			inf.constrain(pinKey{n.ID, graph.DirOut, 0}, famBool)
		}
	}
}

// applyNodeRule propagates shapes across one node, both directions.
func (inf *Inferencer) applyNodeRule(n *graph.Node) {
	switch {
	case isArithmetic(n.Kind):
		inf.unifyOperands(n)
		inf.copyShape(n, 0)

	case isComparison(n.Kind):
		inf.unifyOperands(n)
		// Output is bool of the operand width.
		if n.In[0].Shape.Width != 0 {
			inf.setWidth(pinKey{n.ID, graph.DirOut, 0}, n.In[0].Shape.Width, n.Tok)
		}

	case isBitwise(n.Kind):
		if n.Kind == graph.KindBitAnd {
			a, bScalar := n.In[0].Shape.Scalar, n.In[1].Shape.Scalar
			if a == graph.ScalarUnknown || bScalar == graph.ScalarUnknown {
				// The (T, bool) form only shows once both operands resolve;
				// until then only widths may equalize.
				inf.matchWidths(n)
				return
			}
			if inf.maskForm(n) {
				// (T, bool) form: the output is T (or zero-of-T).
				numeric := 0
				if a == graph.ScalarBool {
					numeric = 1
				}
				inf.matchWidths(n)
				inf.setScalar(pinKey{n.ID, graph.DirOut, 0}, n.In[numeric].Shape.Scalar, n.Tok)
				return
			}
		}
		inf.unifyOperands(n)
		inf.copyShape(n, 0)

	case n.Kind == graph.KindShl || n.Kind == graph.KindShr:
		// Output mirrors the shifted operand.
		inf.unifyPins(n, pinKey{n.ID, graph.DirIn, 0}, pinKey{n.ID, graph.DirOut, 0})

	case n.Kind == graph.KindNeg || n.Kind == graph.KindNot || n.Kind == graph.KindBitNot:
		inf.unifyPins(n, pinKey{n.ID, graph.DirIn, 0}, pinKey{n.ID, graph.DirOut, 0})

	case n.Kind == graph.KindCast:
		// Width passes through; the scalar is fixed by the target.
		inf.copyWidthBoth(n, pinKey{n.ID, graph.DirIn, 0}, pinKey{n.ID, graph.DirOut, 0})

	case n.Kind == graph.KindBroadcast || n.Kind == graph.KindTruncate:
		// Scalar passes through; widths differ by design and resolve from
		// each side's own edges.
		inf.copyScalarBoth(n, pinKey{n.ID, graph.DirIn, 0}, pinKey{n.ID, graph.DirOut, 0})

	case n.Kind == graph.KindMerge:
		inf.applyMerge(n)

	case n.Kind == graph.KindSplit:
		for idx := range n.Out {
			inf.copyScalarBoth(n, pinKey{n.ID, graph.DirIn, 0}, pinKey{n.ID, graph.DirOut, idx})
		}

	case n.Kind == graph.KindSlice:
		inf.applySlice(n)

	case n.Kind == graph.KindSelect:
		a := pinKey{n.ID, graph.DirIn, 1}
		bKey := pinKey{n.ID, graph.DirIn, 2}
		out := pinKey{n.ID, graph.DirOut, 0}
		inf.unifyPins(n, a, bKey)
		inf.unifyPins(n, a, out)
		// cond is bool of the same width
		if n.In[1].Shape.Width != 0 {
			inf.setWidth(pinKey{n.ID, graph.DirIn, 0}, n.In[1].Shape.Width, n.Tok)
		}

	case n.Kind == graph.KindMath:
		inf.applyMath(n)

	case n.Kind == graph.KindBiquad:
		inIdx, _ := n.InIndex("input")
		inf.unifyPins(n, pinKey{n.ID, graph.DirIn, inIdx}, pinKey{n.ID, graph.DirOut, 0})
	}
}

// unifyOperands makes binary operand pins agree with each other.
func (inf *Inferencer) unifyOperands(n *graph.Node) {
	inf.unifyPins(n, pinKey{n.ID, graph.DirIn, 0}, pinKey{n.ID, graph.DirIn, 1})
}

// matchWidths equalizes the widths of binary operands without touching
// scalars.
func (inf *Inferencer) matchWidths(n *graph.Node) {
	a := pinKey{n.ID, graph.DirIn, 0}
	b := pinKey{n.ID, graph.DirIn, 1}
	out := pinKey{n.ID, graph.DirOut, 0}
	for _, pair := range [][2]pinKey{{a, b}, {a, out}, {b, out}} {
		p1, p2 := inf.pin(pair[0]), inf.pin(pair[1])
		if p1.Shape.Width != 0 {
			inf.setWidth(pair[1], p1.Shape.Width, n.Tok)
		} else if p2.Shape.Width != 0 {
			inf.setWidth(pair[0], p2.Shape.Width, n.Tok)
		}
	}
}

// maskForm reports whether a & node is the (T, bool) special form.
func (inf *Inferencer) maskForm(n *graph.Node) bool {
	if logical, _ := n.IntAttr("logical"); logical == 1 {
		return false
	}
	a := n.In[0].Shape.Scalar
	b := n.In[1].Shape.Scalar
	return (a == graph.ScalarBool && b.IsNumeric()) || (b == graph.ScalarBool && a.IsNumeric())
}

// unifyPins joins two pins' scalars and equalizes widths bidirectionally.
func (inf *Inferencer) unifyPins(n *graph.Node, k1, k2 pinKey) {
	p1, p2 := inf.pin(k1), inf.pin(k2)
	if p1.Shape.Width != 0 {
		inf.setWidth(k2, p1.Shape.Width, n.Tok)
	} else if p2.Shape.Width != 0 {
		inf.setWidth(k1, p2.Shape.Width, n.Tok)
	}
	if p1.Shape.Scalar != graph.ScalarUnknown {
		inf.setScalar(k2, p1.Shape.Scalar, n.Tok)
	}
	if p2.Shape.Scalar != graph.ScalarUnknown {
		inf.setScalar(k1, p2.Shape.Scalar, n.Tok)
	}
}

// copyShape mirrors operand shape onto the output (scalar join included).
func (inf *Inferencer) copyShape(n *graph.Node, outIdx int) {
	out := pinKey{n.ID, graph.DirOut, outIdx}
	for idx := range n.In {
		in := n.In[idx]
		if in.Shape.Width != 0 {
			inf.setWidth(out, in.Shape.Width, n.Tok)
		}
		if in.Shape.Scalar != graph.ScalarUnknown {
			inf.setScalar(out, in.Shape.Scalar, n.Tok)
		}
	}
	// Backward: a known output narrows unknown operands.
	outPin := inf.pin(out)
	for idx := range n.In {
		key := pinKey{n.ID, graph.DirIn, idx}
		if outPin.Shape.Width != 0 {
			inf.setWidth(key, outPin.Shape.Width, n.Tok)
		}
		if outPin.Shape.Scalar != graph.ScalarUnknown && inf.pin(key).Shape.Scalar == graph.ScalarUnknown {
			inf.setScalar(key, outPin.Shape.Scalar, n.Tok)
		}
	}
}

func (inf *Inferencer) copyWidthBoth(n *graph.Node, k1, k2 pinKey) {
	p1, p2 := inf.pin(k1), inf.pin(k2)
	if p1.Shape.Width != 0 {
		inf.setWidth(k2, p1.Shape.Width, n.Tok)
	} else if p2.Shape.Width != 0 {
		inf.setWidth(k1, p2.Shape.Width, n.Tok)
	}
}

func (inf *Inferencer) copyScalarBoth(n *graph.Node, k1, k2 pinKey) {
	p1, p2 := inf.pin(k1), inf.pin(k2)
	if p1.Shape.Scalar != graph.ScalarUnknown {
		inf.setScalar(k2, p1.Shape.Scalar, n.Tok)
	} else if p2.Shape.Scalar != graph.ScalarUnknown {
		inf.setScalar(k1, p2.Shape.Scalar, n.Tok)
	}
}

// applyMerge: the output width is the sum of the input widths; scalars
// unify across every pin.
func (inf *Inferencer) applyMerge(n *graph.Node) {
	out := pinKey{n.ID, graph.DirOut, 0}
	sum := 0
	known := true
	for idx := range n.In {
		inf.copyScalarBoth(n, pinKey{n.ID, graph.DirIn, idx}, out)
		if n.In[idx].Shape.Width == 0 {
			known = false
			continue
		}
		sum += n.In[idx].Shape.Width
	}
	if known {
		inf.setWidth(out, sum, n.Tok)
	}
}

// applySlice resolves the output width from the attribute bounds once the
// input width is known, and validates the bounds.
func (inf *Inferencer) applySlice(n *graph.Node) {
	inf.copyScalarBoth(n, pinKey{n.ID, graph.DirIn, 0}, pinKey{n.ID, graph.DirOut, 0})

	inWidth := n.In[0].Shape.Width
	if inWidth == 0 {
		return
	}
	offset, _ := n.IntAttr(graph.AttrOffset)
	end, _ := n.IntAttr(graph.AttrEnd)
	if end == -1 {
		end = int64(inWidth)
	}
	if offset >= int64(inWidth) || end > int64(inWidth) {
		if !inf.sliceReported(n) {
			inf.errorf(diagnostics.ErrS005, n.Tok,
				"slice [%d, %d) is out of range for width %d", offset, end, inWidth)
		}
		return
	}
	inf.setWidth(pinKey{n.ID, graph.DirOut, 0}, int(end-offset), n.Tok)
}

func (inf *Inferencer) sliceReported(n *graph.Node) bool {
	if _, ok := n.Attrs["slice_err"]; ok {
		return true
	}
	n.SetAttr("slice_err", int64(1))
	return false
}

// applyMath unifies operands and output for math functions; comparisons to
// the scalar family were seeded.
func (inf *Inferencer) applyMath(n *graph.Node) {
	out := pinKey{n.ID, graph.DirOut, 0}
	for idx := range n.In {
		inf.unifyPins(n, pinKey{n.ID, graph.DirIn, idx}, out)
	}
}

func (inf *Inferencer) bufferOf(n *graph.Node) *graph.Buffer {
	idx, ok := n.IntAttr(graph.AttrBuffer)
	if !ok || int(idx) >= len(inf.g.Buffers) {
		return nil
	}
	return inf.g.Buffers[idx]
}

// checkOperands enforces the post-resolution operand requirements that
// propagation alone cannot express.
func (inf *Inferencer) checkOperands() {
	for _, n := range inf.g.Nodes {
		switch {
		case isArithmetic(n.Kind) || n.Kind == graph.KindNeg:
			for idx := range n.In {
				if n.In[idx].Shape.Scalar == graph.ScalarBool {
					inf.errorf(diagnostics.ErrS004, n.Tok, "%s needs numeric operands, got bool", n.Kind)
					break
				}
			}
		case isBitwise(n.Kind):
			if n.Kind == graph.KindBitAnd && inf.maskForm(n) {
				continue
			}
			for idx := range n.In {
				s := n.In[idx].Shape.Scalar
				if s.IsFloat() {
					inf.errorf(diagnostics.ErrS004, n.Tok, "%s needs integral or bool operands, got %s", n.Kind, s)
					break
				}
			}
		case n.Kind == graph.KindBroadcast:
			in, out := n.In[0].Shape.Width, n.Out[0].Shape.Width
			if in > 0 && out > 0 && out <= in {
				inf.errorf(diagnostics.ErrS001, n.Tok,
					"broadcast must widen: destination width %d is not larger than %d", out, in)
			}
		case n.Kind == graph.KindTruncate:
			in, out := n.In[0].Shape.Width, n.Out[0].Shape.Width
			if in > 0 && out > 0 && out >= in {
				inf.errorf(diagnostics.ErrS001, n.Tok,
					"truncate must narrow: destination width %d is not smaller than %d", out, in)
			}
		}
	}
}
