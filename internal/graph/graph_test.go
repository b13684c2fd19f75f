package graph_test

import (
	"testing"

	"github.com/synthizer/waveling/internal/graph"
	"github.com/synthizer/waveling/internal/token"
)

func TestJoin(t *testing.T) {
	testCases := []struct {
		name string
		a, b graph.Scalar
		want graph.Scalar
		ok   bool
	}{
		{"same", graph.ScalarF32, graph.ScalarF32, graph.ScalarF32, true},
		{"int_widen", graph.ScalarI32, graph.ScalarI64, graph.ScalarI64, true},
		{"float_widen", graph.ScalarF64, graph.ScalarF32, graph.ScalarF64, true},
		{"int_float", graph.ScalarI32, graph.ScalarF32, graph.ScalarUnknown, false},
		{"bool_int", graph.ScalarBool, graph.ScalarI64, graph.ScalarUnknown, false},
		{"unknown_left", graph.ScalarUnknown, graph.ScalarF32, graph.ScalarF32, true},
		{"unknown_right", graph.ScalarI64, graph.ScalarUnknown, graph.ScalarI64, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := graph.Join(tc.a, tc.b)
			if ok != tc.ok || (ok && got != tc.want) {
				t.Errorf("Join(%s, %s) = (%s, %v), want (%s, %v)", tc.a, tc.b, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestMaxRate(t *testing.T) {
	if graph.MaxRate(graph.RateConstant, graph.RateBlock) != graph.RateBlock {
		t.Error("C ⊔ B should be B")
	}
	if graph.MaxRate(graph.RateSample, graph.RateBlock) != graph.RateSample {
		t.Error("S ⊔ B should be S")
	}
}

func TestTopoOrderExcludesBackEdges(t *testing.T) {
	g := graph.NewProgram("t", 48000, 64)
	cell := g.AddNode(graph.KindCell, 0, token.Token{})
	add := g.AddNode(graph.KindAdd, 0, token.Token{})
	lit := g.AddNode(graph.KindConst, 0, token.Token{})
	lit.Value = graph.NewFloatConstant(graph.ScalarF32, 0.5)

	// lit -> add, cell.start -> add, add -> cell.end: a one-cell loop.
	mustConnect(t, g, lit.ID, 0, add.ID, 0)
	mustConnect(t, g, cell.ID, 0, add.ID, 1)
	edge, err := g.Connect(add.ID, 0, cell.ID, 0, token.Token{})
	if err != nil {
		t.Fatal(err)
	}
	if !edge.Back {
		t.Fatal("edge into a cell's end pin must be marked as a back-edge")
	}

	order, cyclic := g.TopoOrder()
	if len(cyclic) != 0 {
		t.Fatalf("loop through the cell should not count as a cycle, got %d trapped nodes", len(cyclic))
	}
	if len(order) != 3 {
		t.Fatalf("want all 3 nodes ordered, got %d", len(order))
	}

	pos := make(map[graph.NodeID]int)
	for i, id := range order {
		pos[id] = i
	}
	if pos[add.ID] < pos[lit.ID] || pos[add.ID] < pos[cell.ID] {
		t.Error("add must come after both of its forward dependencies")
	}
}

func TestTopoOrderReportsRealCycles(t *testing.T) {
	g := graph.NewProgram("t", 48000, 64)
	a := g.AddNode(graph.KindAdd, 0, token.Token{})
	b := g.AddNode(graph.KindAdd, 0, token.Token{})
	mustConnect(t, g, a.ID, 0, b.ID, 0)
	mustConnect(t, g, b.ID, 0, a.ID, 0)

	_, cyclic := g.TopoOrder()
	if len(cyclic) != 2 {
		t.Fatalf("want both nodes reported cyclic, got %d", len(cyclic))
	}
}

func TestConnectValidatesPins(t *testing.T) {
	g := graph.NewProgram("t", 48000, 64)
	lit := g.AddNode(graph.KindConst, 0, token.Token{})
	add := g.AddNode(graph.KindAdd, 0, token.Token{})

	if _, err := g.Connect(lit.ID, 1, add.ID, 0, token.Token{}); err == nil {
		t.Error("connecting from a missing output pin should fail")
	}
	if _, err := g.Connect(lit.ID, 0, add.ID, 5, token.Token{}); err == nil {
		t.Error("connecting to a missing input pin should fail")
	}
	if _, err := g.Connect(lit.ID, 0, 99, 0, token.Token{}); err == nil {
		t.Error("connecting to a missing node should fail")
	}
}

func TestPinNameAliases(t *testing.T) {
	g := graph.NewProgram("t", 48000, 64)
	bq := g.AddNode(graph.KindBiquad, 0, token.Token{})

	idx, ok := bq.InIndex("frequency")
	if !ok || idx != 1 {
		t.Errorf("frequency resolves to %d, want index 1", idx)
	}
	if _, ok := bq.InIndex("resonance"); ok {
		t.Error("unknown pin name should not resolve")
	}
	if outIdx, ok := bq.OutIndex("out"); !ok || outIdx != 0 {
		t.Error("biquad out pin should alias index 0")
	}
}

func mustConnect(t *testing.T, g *graph.Program, from graph.NodeID, fromPin int, to graph.NodeID, toPin int) {
	t.Helper()
	if _, err := g.Connect(from, fromPin, to, toPin, token.Token{}); err != nil {
		t.Fatal(err)
	}
}
