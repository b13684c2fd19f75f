package waveling_test

import (
	"strings"
	"testing"

	waveling "github.com/synthizer/waveling"
	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/ir"
)

const header = `program t;
external {
  sr: 48000,
  block_size: 128,
  inputs: [ { name: a, width: 1 }, { name: b, width: 1 } ],
  outputs: [ { name: o, width: 1 }, { name: wide, width: 2 } ],
  properties: [ { name: gain, type: f32, rate: b } ]
}
`

func compile(t *testing.T, body string) *waveling.Result {
	t.Helper()
	return waveling.Compile(header+body, "test.wave")
}

func requireOK(t *testing.T, res *waveling.Result) *ir.Document {
	t.Helper()
	if res.Failed() {
		var msgs []string
		for _, d := range res.Diagnostics {
			msgs = append(msgs, d.Error())
		}
		t.Fatalf("compilation failed:\n%s", strings.Join(msgs, "\n"))
	}
	if res.IR == nil {
		t.Fatal("successful compilation produced no IR")
	}
	return res.IR
}

func requireError(t *testing.T, res *waveling.Result, code diagnostics.ErrorCode) {
	t.Helper()
	if !res.Failed() {
		t.Fatal("expected compilation to fail")
	}
	for _, d := range res.Diagnostics {
		if d.Code == code && d.Severity == diagnostics.SeverityError {
			return
		}
	}
	var msgs []string
	for _, d := range res.Diagnostics {
		msgs = append(msgs, d.Error())
	}
	t.Fatalf("expected a %s diagnostic, got:\n%s", code, strings.Join(msgs, "\n"))
}

func nodesOfKind(doc *ir.Document, name string) []ir.Node {
	var out []ir.Node
	for _, n := range doc.Nodes {
		if n.Name == name {
			out = append(out, n)
		}
	}
	return out
}

func TestPointwiseMix(t *testing.T) {
	doc := requireOK(t, compile(t, `stage main() { a + b -> o; }`))

	adds := nodesOfKind(doc, "add")
	if len(adds) != 1 {
		t.Fatalf("want one add node, got %d", len(adds))
	}
	if len(nodesOfKind(doc, "external_input")) != 2 {
		t.Fatalf("want two external inputs")
	}
	outs := nodesOfKind(doc, "external_output")
	if len(outs) != 1 {
		t.Fatalf("want one external output sink")
	}

	add := adds[0]
	for _, pin := range append(add.Inputs, add.Outputs...) {
		if pin.Shape.Scalar != "f32" || pin.Shape.Width != 1 {
			t.Errorf("add pin is %s(%d), want f32(1)", pin.Shape.Scalar, pin.Shape.Width)
		}
		if pin.Rate != "s" {
			t.Errorf("add pin rate is %s, want s", pin.Rate)
		}
	}
	if len(doc.Edges) != 3 {
		t.Errorf("want 3 edges, got %d", len(doc.Edges))
	}
}

func TestStereoBroadcast(t *testing.T) {
	doc := requireOK(t, compile(t, `stage main() { broadcast(a) -> wide; }`))

	bcasts := nodesOfKind(doc, "broadcast")
	if len(bcasts) != 1 {
		t.Fatalf("want one broadcast node, got %d", len(bcasts))
	}
	bc := bcasts[0]
	if bc.Inputs[0].Shape.Width != 1 || bc.Outputs[0].Shape.Width != 2 {
		t.Errorf("broadcast widened %d -> %d, want 1 -> 2",
			bc.Inputs[0].Shape.Width, bc.Outputs[0].Shape.Width)
	}
}

func TestOnePoleFeedback(t *testing.T) {
	doc := requireOK(t, compile(t, `stage main() {
  cell (prev, nxt): f32(1);
  nxt <- (input[0] * 0.1f32) + (prev * 0.9f32);
  prev -> output[0];
}`))

	cells := nodesOfKind(doc, "cell")
	if len(cells) != 1 {
		t.Fatalf("want one cell, got %d", len(cells))
	}

	back := 0
	for _, e := range doc.Edges {
		if e.Back {
			back++
			if e.To != cells[0].ID {
				t.Errorf("back-edge targets node %d, want the cell %d", e.To, cells[0].ID)
			}
		}
	}
	if back != 1 {
		t.Fatalf("want exactly one back-edge, got %d", back)
	}

	if cells[0].Outputs[0].Rate != "s" {
		t.Errorf("cell output rate is %s, want s", cells[0].Outputs[0].Rate)
	}
}

func TestDelayLine(t *testing.T) {
	doc := requireOK(t, compile(t, `stage main() {
  buffer buf(128): f32(1);
  delwrite(buf, input[0]);
  delread(buf, 64) -> output[0];
}`))

	if len(doc.Buffers) != 1 {
		t.Fatalf("want one buffer, got %d", len(doc.Buffers))
	}
	buf := doc.Buffers[0]
	if buf.Name != "buf" || buf.Capacity != 128 {
		t.Errorf("buffer is %q capacity %d, want buf capacity 128", buf.Name, buf.Capacity)
	}
	if buf.Shape.Scalar != "f32" || buf.Shape.Width != 1 {
		t.Errorf("buffer shape is %s(%d), want f32(1)", buf.Shape.Scalar, buf.Shape.Width)
	}

	reads := nodesOfKind(doc, "delread")
	if len(reads) != 1 || len(nodesOfKind(doc, "delwrite")) != 1 {
		t.Fatal("want one delread and one delwrite")
	}
	if reads[0].Outputs[0].Rate != "s" {
		t.Errorf("delread rate is %s, want s", reads[0].Outputs[0].Rate)
	}
}

func TestConstantFolding(t *testing.T) {
	doc := requireOK(t, compile(t, `stage main() { let k = (2 + 3) * 4 -> f32; }`))

	for _, name := range []string{"add", "mul", "cast"} {
		if n := len(nodesOfKind(doc, name)); n != 0 {
			t.Errorf("want no %s nodes after folding, got %d", name, n)
		}
	}
	consts := nodesOfKind(doc, "const")
	if len(consts) != 1 {
		t.Fatalf("want a single literal node, got %d", len(consts))
	}
	c := consts[0]
	if c.Outputs[0].Shape.Scalar != "f32" {
		t.Errorf("folded literal is %s, want f32", c.Outputs[0].Shape.Scalar)
	}
	vals, ok := c.Value.([]float64)
	if !ok || len(vals) != 1 || vals[0] != 20 {
		t.Errorf("folded value is %#v, want [20]", c.Value)
	}
}

func TestCapacityRateViolation(t *testing.T) {
	res := compile(t, `stage main() { buffer buf(input[0]): f32(1); delwrite(buf, a); }`)
	requireError(t, res, diagnostics.ErrR001)
}

func TestUnsuffixedLiteralWithoutContext(t *testing.T) {
	res := compile(t, `stage main() { 1 + 1; }`)
	requireError(t, res, diagnostics.ErrS003)
}

func TestSumIntoCastSucceeds(t *testing.T) {
	doc := requireOK(t, compile(t, `stage main() { 1 + 1 -> f32; }`))
	consts := nodesOfKind(doc, "const")
	if len(consts) != 1 {
		t.Fatalf("want the sum folded to one literal, got %d const nodes", len(consts))
	}
	vals, ok := consts[0].Value.([]float64)
	if !ok || len(vals) != 1 || vals[0] != 2 {
		t.Errorf("folded value is %#v, want [2]", consts[0].Value)
	}
}

func TestCellZeroRejected(t *testing.T) {
	res := compile(t, `stage main() { cell(0) (p, n): f32(1); n <- a; p -> o; }`)
	requireError(t, res, diagnostics.ErrP004)
}

func TestDelayExceedsCapacity(t *testing.T) {
	res := compile(t, `stage main() {
  buffer buf(1): f32(1);
  delwrite(buf, a);
  delread(buf, 1) -> o;
}`)
	requireError(t, res, diagnostics.ErrV005)
}

func TestWidthMismatchRejected(t *testing.T) {
	res := compile(t, `stage main() { a -> wide; }`)
	requireError(t, res, diagnostics.ErrS001)
}

func TestIntFloatMixRejected(t *testing.T) {
	res := compile(t, `stage main() { 1i32 + 0.5f32 -> o; }`)
	requireError(t, res, diagnostics.ErrS002)
}

func TestOutputStackingMatchesMerge(t *testing.T) {
	doc := requireOK(t, compile(t, `stage main() { a, b -> wide; }`))
	merges := nodesOfKind(doc, "merge")
	if len(merges) != 1 {
		t.Fatalf("want one merge node for the stack, got %d", len(merges))
	}
	m := merges[0]
	if m.Outputs[0].Shape.Width != 2 {
		t.Errorf("stacked width is %d, want 2", m.Outputs[0].Shape.Width)
	}
	if len(m.Inputs) != 2 {
		t.Errorf("stack arity is %d, want 2", len(m.Inputs))
	}
}

func TestCrossStageFromDeclaredOutput(t *testing.T) {
	doc := requireOK(t, compile(t, `stage gen(sig = f32(1)) { sig = a; }
stage use() { gen.outputs.sig -> o; }`))

	if len(doc.Stages) != 2 {
		t.Fatalf("want two stages, got %d", len(doc.Stages))
	}
	if len(nodesOfKind(doc, "stage_output")) != 1 {
		t.Fatal("want one stage_output node")
	}
}

func TestCrossStageResolutionIsOrderIndependent(t *testing.T) {
	doc := requireOK(t, compile(t, `stage use() { gen.outputs.sig -> o; }
stage gen(sig = f32(1)) { sig = a; }`))
	if len(doc.Stages) != 2 {
		t.Fatalf("want two stages, got %d", len(doc.Stages))
	}
}

func TestCrossStageUnknownOutputRejected(t *testing.T) {
	res := compile(t, `stage gen(sig = f32(1)) { sig = a; }
stage use() { gen.outputs.hidden -> o; }`)
	requireError(t, res, diagnostics.ErrN003)
}

func TestIllegalCycleRejected(t *testing.T) {
	res := compile(t, `stage main() { let x = a + a; x -> x.inputs[0]; x -> o; }`)
	requireError(t, res, diagnostics.ErrV003)
}

func TestUndrivenStageOutputRejected(t *testing.T) {
	res := compile(t, `stage gen(sig = f32(1)) { a -> o; }`)
	requireError(t, res, diagnostics.ErrV006)
}

func TestPropertyIsBlockRateF64(t *testing.T) {
	doc := requireOK(t, compile(t, `stage main() { gain -> f32 -> o; }`))

	props := nodesOfKind(doc, "property")
	if len(props) != 1 {
		t.Fatalf("want one property node, got %d", len(props))
	}
	p := props[0]
	if p.Outputs[0].Shape.Scalar != "f64" {
		t.Errorf("property reads as %s, want f64 semantics", p.Outputs[0].Shape.Scalar)
	}
	if p.Outputs[0].Rate != "b" {
		t.Errorf("property rate is %s, want b", p.Outputs[0].Rate)
	}
}

func TestFanInSums(t *testing.T) {
	doc := requireOK(t, compile(t, `stage main() { a -> o; b -> o; }`))

	sink := nodesOfKind(doc, "external_output")[0]
	arrivals := 0
	for _, e := range doc.Edges {
		if e.To == sink.ID {
			arrivals++
		}
	}
	if arrivals != 2 {
		t.Errorf("want 2 fan-in edges on the output, got %d", arrivals)
	}
}

func TestDiscardedOutputsAreListed(t *testing.T) {
	doc := requireOK(t, compile(t, `stage main() { sin(a); a -> o; }`))

	maths := nodesOfKind(doc, "math")
	if len(maths) != 1 {
		t.Fatalf("want the discarded sin node present, got %d math nodes", len(maths))
	}
	found := false
	for _, ref := range doc.Discarded {
		if ref.Node == maths[0].ID {
			found = true
		}
	}
	if !found {
		t.Error("discarded sin output is not listed in the discarded set")
	}
}

func TestMissingRequiredPinRejected(t *testing.T) {
	res := compile(t, `stage main() { { a, frequency: 440f32 } -> biquad.lowpass -> o; }`)
	requireError(t, res, diagnostics.ErrV001)
}

func TestUnknownNamedPinRejected(t *testing.T) {
	res := compile(t, `stage main() { { a, resonance: 0.7f32 } -> biquad.lowpass -> o; }`)
	requireError(t, res, diagnostics.ErrV002)
}

func TestSelectNeedsBoolCondition(t *testing.T) {
	res := compile(t, `stage main() { select(a, a, b) -> o; }`)
	requireError(t, res, diagnostics.ErrS002)
}

func TestSelectSwitchesOnComparison(t *testing.T) {
	doc := requireOK(t, compile(t, `stage main() { select(a > b, a, b) -> o; }`))
	if len(nodesOfKind(doc, "select")) != 1 || len(nodesOfKind(doc, "gt")) != 1 {
		t.Fatal("want one select and one gt node")
	}
}

func TestHeaderAndExternalsEmitted(t *testing.T) {
	doc := requireOK(t, compile(t, `stage main() { a -> o; }`))

	if doc.ProgramName != "t" || doc.SR != 48000 || doc.BlockSize != 128 {
		t.Errorf("bad header: %q sr=%d block=%d", doc.ProgramName, doc.SR, doc.BlockSize)
	}
	if len(doc.Externals.Inputs) != 2 || len(doc.Externals.Outputs) != 2 {
		t.Fatal("externals not normalized")
	}
	if doc.Externals.Properties[0].Rate != "b" || doc.Externals.Properties[0].Declared != "f32" {
		t.Error("property declaration not recorded")
	}
	if doc.BuildID == "" {
		t.Error("missing build id")
	}
}

func TestEdgeShapesAgreeAfterAdapters(t *testing.T) {
	doc := requireOK(t, compile(t, `stage main() {
  let m = a * 0.5f32;
  m -> o;
  broadcast(m) -> wide;
}`))

	byID := make(map[int]ir.Node, len(doc.Nodes))
	for _, n := range doc.Nodes {
		byID[n.ID] = n
	}
	for _, e := range doc.Edges {
		src := byID[e.From].Outputs[e.FromPin].Shape
		dst := byID[e.To].Inputs[e.ToPin].Shape
		if src != dst {
			t.Errorf("edge %d.%d -> %d.%d shapes disagree: %v vs %v",
				e.From, e.FromPin, e.To, e.ToPin, src, dst)
		}
	}
}

func TestImplicitPromotionInsertsAdapter(t *testing.T) {
	doc := requireOK(t, compile(t, `stage main() {
  let x = i32(a) + i64(b);
  x -> f32 -> o;
}`))

	// i32 meets i64: the add joins at i64 and the i32 side gets a cast.
	casts := nodesOfKind(doc, "cast")
	if len(casts) == 0 {
		t.Fatal("expected at least one cast adapter to survive")
	}
	adds := nodesOfKind(doc, "add")
	if len(adds) != 1 {
		t.Fatalf("want one add, got %d", len(adds))
	}
	for _, pin := range adds[0].Inputs {
		if pin.Shape.Scalar != "i64" {
			t.Errorf("add operand is %s, want i64 after promotion", pin.Shape.Scalar)
		}
	}
}
