// Package infer assigns every pin a (scalar, width) shape and a rate, and
// inserts implicit promotion adapters on edges whose endpoints resolve to
// different scalars. Shapes propagate in both directions until fixpoint:
// forward from seeded sources, backward into unresolved literals.
package infer

import (
	"fmt"

	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/graph"
	"github.com/synthizer/waveling/internal/pipeline"
	"github.com/synthizer/waveling/internal/token"
)

// family is a partial scalar constraint used before a pin resolves.
type family uint8

const (
	famAny family = iota
	famInt
	famFloat
	famNumeric
	famBool
)

type pinKey struct {
	node graph.NodeID
	dir  graph.Direction
	idx  int
}

type Inferencer struct {
	ctx *pipeline.PipelineContext
	g   *graph.Program

	families map[pinKey]family
	changed  bool
	failed   map[*graph.Edge]bool
}

func New(ctx *pipeline.PipelineContext, g *graph.Program) *Inferencer {
	return &Inferencer{
		ctx:      ctx,
		g:        g,
		families: make(map[pinKey]family),
		failed:   make(map[*graph.Edge]bool),
	}
}

// Run performs shape resolution, adapter insertion, and rate assignment.
func (inf *Inferencer) Run() {
	inf.seed()
	inf.fixpoint()
	inf.applyDefaults()
	inf.fixpoint()
	inf.castDefaults()
	inf.fixpoint()
	inf.reportUnresolved()
	inf.checkOperands()
	if !inf.ctx.HasErrors() {
		inf.reconcileConstants()
		inf.insertAdapters()
	}
	inf.assignRates()
}

func (inf *Inferencer) errorf(code diagnostics.ErrorCode, tok token.Token, format string, args ...any) {
	inf.ctx.AddError(diagnostics.NewError(code, tok, fmt.Sprintf(format, args...)))
}

// constrain narrows a pin's family; conflicting constraints surface later
// as unresolved or mismatched scalars.
func (inf *Inferencer) constrain(key pinKey, fam family) {
	cur, ok := inf.families[key]
	if !ok || cur == famAny || cur == famNumeric && (fam == famInt || fam == famFloat) {
		inf.families[key] = fam
	}
}

func (inf *Inferencer) familyOf(key pinKey) family {
	return inf.families[key]
}

func familyAllows(fam family, s graph.Scalar) bool {
	switch fam {
	case famInt:
		return s.IsInteger()
	case famFloat:
		return s.IsFloat()
	case famNumeric:
		return s.IsNumeric()
	case famBool:
		return s == graph.ScalarBool
	}
	return true
}

func (inf *Inferencer) pin(key pinKey) *graph.Pin {
	n := inf.g.Node(key.node)
	if key.dir == graph.DirIn {
		return &n.In[key.idx]
	}
	return &n.Out[key.idx]
}

// setScalar resolves a pin's scalar, checking its family constraint.
func (inf *Inferencer) setScalar(key pinKey, s graph.Scalar, tok token.Token) {
	if s == graph.ScalarUnknown {
		return
	}
	pin := inf.pin(key)
	if pin.Shape.Scalar == s {
		return
	}
	if !familyAllows(inf.familyOf(key), s) {
		inf.errorf(diagnostics.ErrS002, tok, "cannot use %s here", s)
		return
	}
	if pin.Shape.Scalar != graph.ScalarUnknown {
		joined, ok := graph.Join(pin.Shape.Scalar, s)
		if !ok {
			inf.errorf(diagnostics.ErrS002, tok,
				"incompatible scalar types %s and %s (conversions are explicit)", pin.Shape.Scalar, s)
			return
		}
		if joined == pin.Shape.Scalar {
			return
		}
		s = joined
	}
	pin.Shape.Scalar = s
	inf.changed = true
}

// setWidth resolves a pin's width; a conflicting known width is an error.
func (inf *Inferencer) setWidth(key pinKey, w int, tok token.Token) {
	if w <= 0 {
		return
	}
	pin := inf.pin(key)
	if pin.Shape.Width == w {
		return
	}
	if pin.Shape.Width != 0 {
		inf.errorf(diagnostics.ErrS001, tok,
			"width mismatch: %d vs %d (broadcast and truncate are explicit)", pin.Shape.Width, w)
		return
	}
	pin.Shape.Width = w
	inf.changed = true
}

// seed plants the shapes that are known before propagation starts.
func (inf *Inferencer) seed() {
	for _, n := range inf.g.Nodes {
		inf.seedNode(n)
	}
	// Buffer capacities are integers; the expression node is referenced by
	// the buffer record rather than an edge, so constrain it directly.
	for _, buf := range inf.g.Buffers {
		if buf.CapacityNode == graph.NoNode {
			continue
		}
		n := inf.g.Node(buf.CapacityNode)
		if len(n.Out) > 0 {
			inf.constrain(pinKey{n.ID, graph.DirOut, 0}, famInt)
		}
	}
}

// fixpoint alternates edge unification and node rules until stable.
func (inf *Inferencer) fixpoint() {
	// A round that changes nothing ends the loop; the limit, which grows
	// with the node and edge counts, only guards against non-termination.
	limit := 2*len(inf.g.Nodes) + len(inf.g.Edges) + 8
	for i := 0; i < limit; i++ {
		inf.changed = false
		for _, e := range inf.g.Edges {
			inf.unifyEdge(e)
		}
		for _, n := range inf.g.Nodes {
			inf.applyNodeRule(n)
		}
		if !inf.changed {
			return
		}
	}
}

// unifyEdge makes both endpoints of an edge agree: widths are copied in
// either direction and must match; the destination scalar is the join of
// everything arriving, while an unknown source adopts the destination.
func (inf *Inferencer) unifyEdge(e *graph.Edge) {
	if inf.failed[e] {
		return
	}
	srcKey := pinKey{e.From, graph.DirOut, e.FromPin}
	dstKey := pinKey{e.To, graph.DirIn, e.ToPin}
	src := inf.pin(srcKey)
	dst := inf.pin(dstKey)

	before := len(inf.ctx.Errors)

	if src.Shape.Width != 0 {
		inf.setWidth(dstKey, src.Shape.Width, e.Tok)
	} else if dst.Shape.Width != 0 {
		inf.setWidth(srcKey, dst.Shape.Width, e.Tok)
	}

	if src.Shape.Scalar != graph.ScalarUnknown {
		inf.setScalar(dstKey, src.Shape.Scalar, e.Tok)
	} else if dst.Shape.Scalar != graph.ScalarUnknown {
		inf.setScalar(srcKey, dst.Shape.Scalar, e.Tok)
	}

	if len(inf.ctx.Errors) > before {
		// Report each broken edge once.
		inf.failed[e] = true
	}
}

// castDefaults lets an explicit conversion give its operand a type when
// nothing else did: once propagation stabilizes with a cast input still
// unresolved, the input adopts the cast target, which then flows backward
// into the unresolved literals feeding it (`1 + 1 -> f32`).
func (inf *Inferencer) castDefaults() {
	for _, n := range inf.g.Nodes {
		if n.Kind != graph.KindCast {
			continue
		}
		if n.In[0].Shape.Scalar != graph.ScalarUnknown {
			continue
		}
		target, _ := n.StrAttr(graph.AttrCastTo)
		scalar, ok := graph.ScalarFromName(target)
		if !ok {
			continue
		}
		inf.setScalar(pinKey{n.ID, graph.DirIn, 0}, scalar, n.Tok)
	}
}

// applyDefaults resolves family-constrained pins that no concrete context
// reached: float-constrained pins become f64, integer-constrained pins
// become i64. Fully unconstrained pins stay unresolved and error out.
func (inf *Inferencer) applyDefaults() {
	for _, n := range inf.g.Nodes {
		for idx := range n.In {
			inf.defaultPin(pinKey{n.ID, graph.DirIn, idx}, n.Tok)
		}
		for idx := range n.Out {
			inf.defaultPin(pinKey{n.ID, graph.DirOut, idx}, n.Tok)
		}
	}
}

func (inf *Inferencer) defaultPin(key pinKey, tok token.Token) {
	pin := inf.pin(key)
	if pin.Shape.Scalar != graph.ScalarUnknown {
		return
	}
	switch inf.familyOf(key) {
	case famFloat:
		inf.setScalar(key, graph.ScalarF64, tok)
	case famInt:
		inf.setScalar(key, graph.ScalarI64, tok)
	case famBool:
		inf.setScalar(key, graph.ScalarBool, tok)
	}
}

// reportUnresolved flags every pin whose shape survived every fixpoint
// without resolving.
func (inf *Inferencer) reportUnresolved() {
	for _, n := range inf.g.Nodes {
		reported := false
		report := func(pin *graph.Pin) {
			if reported {
				return
			}
			reported = true
			if n.Kind == graph.KindConst {
				inf.errorf(diagnostics.ErrS003, n.Tok,
					"cannot infer the type of this literal; add a suffix or give it context")
				return
			}
			inf.errorf(diagnostics.ErrS003, n.Tok,
				"cannot infer the shape of %s (%s so far)", n.Kind, pin.Shape)
		}
		for idx := range n.In {
			if !n.In[idx].Shape.Resolved() {
				report(&n.In[idx])
			}
		}
		for idx := range n.Out {
			if !n.Out[idx].Shape.Resolved() {
				report(&n.Out[idx])
			}
		}
	}
}

// reconcileConstants rewrites const node values whose representation no
// longer matches the resolved scalar, e.g. an unsuffixed `1` that context
// resolved to f32.
func (inf *Inferencer) reconcileConstants() {
	for _, n := range inf.g.Nodes {
		if n.Kind != graph.KindConst || n.Value == nil {
			continue
		}
		scalar := n.Out[0].Shape.Scalar
		n.Value.Scalar = scalar
		if scalar.IsFloat() && n.Value.I != nil {
			floats := make([]float64, len(n.Value.I))
			for i, v := range n.Value.I {
				floats[i] = float64(v)
			}
			n.Value.F = floats
			n.Value.I = nil
		}
	}
}

// insertAdapters splices a cast node into every edge whose source scalar
// was promoted at the destination. Adapters are ordinary nodes in the
// final IR.
func (inf *Inferencer) insertAdapters() {
	edges := make([]*graph.Edge, len(inf.g.Edges))
	copy(edges, inf.g.Edges)
	for _, e := range edges {
		src := inf.g.Node(e.From).Out[e.FromPin]
		dst := inf.g.Node(e.To).In[e.ToPin]
		if src.Shape.Scalar == dst.Shape.Scalar || dst.Shape.Scalar == graph.ScalarUnknown {
			continue
		}

		adapter := inf.g.AddNode(graph.KindCast, inf.g.Node(e.To).Stage, e.Tok)
		adapter.SetAttr(graph.AttrCastTo, dst.Shape.Scalar.String())
		adapter.In[0].Shape = src.Shape
		adapter.Out[0].Shape = dst.Shape
		adapter.In[0].Rate = src.Rate
		adapter.Out[0].Rate = src.Rate

		inf.g.RemoveEdge(e)
		inf.g.Connect(e.From, e.FromPin, adapter.ID, 0, e.Tok)
		if _, err := inf.g.Connect(adapter.ID, 0, e.To, e.ToPin, e.Tok); err == nil {
			// Preserve the back-edge marking the adapter now sits on.
			inf.g.Edges[len(inf.g.Edges)-1].Back = e.Back
		}
	}
}
