package folder_test

import (
	"testing"

	"github.com/synthizer/waveling/internal/folder"
	"github.com/synthizer/waveling/internal/graph"
	"github.com/synthizer/waveling/internal/token"
)

func constNode(g *graph.Program, c *graph.Constant) *graph.Node {
	n := g.AddNode(graph.KindConst, 0, token.Token{})
	n.Value = c
	n.Out[0].Shape = c.Shape()
	return n
}

func binop(t *testing.T, kind graph.Kind, a, b *graph.Constant, scalar graph.Scalar) *graph.Constant {
	t.Helper()
	g := graph.NewProgram("t", 48000, 64)
	left := constNode(g, a)
	right := constNode(g, b)
	op := g.AddNode(kind, 0, token.Token{})
	op.Out[0].Shape = graph.Shape{Scalar: scalar, Width: a.Width()}
	if _, err := g.Connect(left.ID, 0, op.ID, 0, token.Token{}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Connect(right.ID, 0, op.ID, 1, token.Token{}); err != nil {
		t.Fatal(err)
	}
	c, ok := folder.Eval(g, op.ID)
	if !ok {
		t.Fatalf("%s of constants did not evaluate", kind)
	}
	return c
}

func TestFoldArithmetic(t *testing.T) {
	sum := binop(t, graph.KindAdd,
		graph.NewIntConstant(graph.ScalarI64, 2),
		graph.NewIntConstant(graph.ScalarI64, 3),
		graph.ScalarI64)
	if sum.I[0] != 5 {
		t.Errorf("2 + 3 folded to %d", sum.I[0])
	}

	prod := binop(t, graph.KindMul,
		graph.NewFloatConstant(graph.ScalarF32, 0.5),
		graph.NewFloatConstant(graph.ScalarF32, 4),
		graph.ScalarF32)
	if prod.F[0] != 2 {
		t.Errorf("0.5 * 4 folded to %v", prod.F[0])
	}
}

func TestFoldRoundsOnceToF32(t *testing.T) {
	// 0.1 + 0.2 in extended precision, rounded once into f32.
	sum := binop(t, graph.KindAdd,
		graph.NewFloatConstant(graph.ScalarF32, 0.1),
		graph.NewFloatConstant(graph.ScalarF32, 0.2),
		graph.ScalarF32)
	want := float64(float32(0.1 + 0.2))
	if sum.F[0] != want {
		t.Errorf("folded %v, want %v", sum.F[0], want)
	}
}

func TestFoldComparisons(t *testing.T) {
	lt := binop(t, graph.KindLt,
		graph.NewIntConstant(graph.ScalarI64, 1),
		graph.NewIntConstant(graph.ScalarI64, 2),
		graph.ScalarBool)
	if !lt.B[0] {
		t.Error("1 < 2 folded to false")
	}
}

func TestFoldDivisionByZeroFails(t *testing.T) {
	g := graph.NewProgram("t", 48000, 64)
	num := constNode(g, graph.NewIntConstant(graph.ScalarI64, 1))
	den := constNode(g, graph.NewIntConstant(graph.ScalarI64, 0))
	div := g.AddNode(graph.KindDiv, 0, token.Token{})
	div.Out[0].Shape = graph.Shape{Scalar: graph.ScalarI64, Width: 1}
	g.Connect(num.ID, 0, div.ID, 0, token.Token{})
	g.Connect(den.ID, 0, div.ID, 1, token.Token{})

	if _, ok := folder.Eval(g, div.ID); ok {
		t.Error("integer division by zero must not fold")
	}
}

func TestFanInSumsDuringFolding(t *testing.T) {
	g := graph.NewProgram("t", 48000, 64)
	a := constNode(g, graph.NewIntConstant(graph.ScalarI64, 1))
	b := constNode(g, graph.NewIntConstant(graph.ScalarI64, 2))
	c := constNode(g, graph.NewIntConstant(graph.ScalarI64, 4))
	neg := g.AddNode(graph.KindNeg, 0, token.Token{})
	neg.Out[0].Shape = graph.Shape{Scalar: graph.ScalarI64, Width: 1}
	// Three edges into one pin: implicit summation.
	g.Connect(a.ID, 0, neg.ID, 0, token.Token{})
	g.Connect(b.ID, 0, neg.ID, 0, token.Token{})
	g.Connect(c.ID, 0, neg.ID, 0, token.Token{})

	v, ok := folder.Eval(g, neg.ID)
	if !ok {
		t.Fatal("fan-in of constants did not evaluate")
	}
	if v.I[0] != -7 {
		t.Errorf("-(1+2+4) folded to %d", v.I[0])
	}
}

func TestFoldNonConstantInputRefuses(t *testing.T) {
	g := graph.NewProgram("t", 48000, 64)
	in := g.AddNode(graph.KindExternalInput, -1, token.Token{})
	in.Out[0].Shape = graph.Shape{Scalar: graph.ScalarF32, Width: 1}
	neg := g.AddNode(graph.KindNeg, 0, token.Token{})
	g.Connect(in.ID, 0, neg.ID, 0, token.Token{})

	if _, ok := folder.Eval(g, neg.ID); ok {
		t.Error("an external input is never constant")
	}
}

func TestFoldMergeAndSlice(t *testing.T) {
	g := graph.NewProgram("t", 48000, 64)
	a := constNode(g, graph.NewFloatConstant(graph.ScalarF64, 1, 2))
	b := constNode(g, graph.NewFloatConstant(graph.ScalarF64, 3))
	m := g.AddNode(graph.KindMerge, 0, token.Token{})
	m.In = append(m.In, graph.Pin{}, graph.Pin{})
	m.Out[0].Shape = graph.Shape{Scalar: graph.ScalarF64, Width: 3}
	g.Connect(a.ID, 0, m.ID, 0, token.Token{})
	g.Connect(b.ID, 0, m.ID, 1, token.Token{})

	merged, ok := folder.Eval(g, m.ID)
	if !ok || merged.Width() != 3 {
		t.Fatalf("merge of constants failed (ok=%v)", ok)
	}
	if merged.F[2] != 3 {
		t.Errorf("merged channels are %v", merged.F)
	}

	sl := g.AddNode(graph.KindSlice, 0, token.Token{})
	sl.SetAttr(graph.AttrOffset, int64(1))
	sl.SetAttr(graph.AttrEnd, int64(3))
	sl.Out[0].Shape = graph.Shape{Scalar: graph.ScalarF64, Width: 2}
	g.Connect(m.ID, 0, sl.ID, 0, token.Token{})

	sliced, ok := folder.Eval(g, sl.ID)
	if !ok || sliced.Width() != 2 || sliced.F[0] != 2 || sliced.F[1] != 3 {
		t.Errorf("slice folded to %v (ok=%v)", sliced, ok)
	}
}
