// Package emitter freezes a validated, folded graph into the serialized
// backend contract of internal/ir.
package emitter

import (
	"github.com/google/uuid"

	"github.com/synthizer/waveling/internal/config"
	"github.com/synthizer/waveling/internal/graph"
	"github.com/synthizer/waveling/internal/ir"
	"github.com/synthizer/waveling/internal/pipeline"
)

type EmitterProcessor struct{}

func (ep *EmitterProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Graph == nil || ctx.HasErrors() {
		return ctx
	}

	ctx.IR = Emit(ctx.Graph)
	return ctx
}

// Emit serializes the graph. The graph must be frozen: no pass mutates it
// after emission.
func Emit(g *graph.Program) *ir.Document {
	doc := &ir.Document{
		IRVersion:   config.IRVersion,
		BuildID:     uuid.NewString(),
		ProgramName: g.Name,
		SR:          g.SR,
		BlockSize:   g.BlockSize,
	}

	doc.Externals.Inputs = make([]ir.PortDecl, 0, len(g.Inputs))
	for _, port := range g.Inputs {
		doc.Externals.Inputs = append(doc.Externals.Inputs, ir.PortDecl{Name: port.Name, Width: port.Width})
	}
	doc.Externals.Outputs = make([]ir.PortDecl, 0, len(g.Outputs))
	for _, port := range g.Outputs {
		doc.Externals.Outputs = append(doc.Externals.Outputs, ir.PortDecl{Name: port.Name, Width: port.Width})
	}
	doc.Externals.Properties = make([]ir.PropertyDecl, 0, len(g.Properties))
	for _, prop := range g.Properties {
		doc.Externals.Properties = append(doc.Externals.Properties, ir.PropertyDecl{
			Name:     prop.Name,
			Declared: prop.Declared.String(),
			Rate:     prop.Rate.String(),
		})
	}

	doc.Buffers = make([]ir.Buffer, 0, len(g.Buffers))
	for i, buf := range g.Buffers {
		doc.Buffers = append(doc.Buffers, ir.Buffer{
			ID:       i,
			Name:     buf.Name,
			Shape:    irShape(buf.Shape),
			Capacity: buf.Capacity,
		})
	}

	stageNodes := make(map[int][]int)
	doc.Nodes = make([]ir.Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		doc.Nodes = append(doc.Nodes, emitNode(n))
		if n.Stage >= 0 {
			stageNodes[n.Stage] = append(stageNodes[n.Stage], int(n.ID))
		}
	}

	doc.Stages = make([]ir.Stage, 0, len(g.Stages))
	for i, info := range g.Stages {
		stage := ir.Stage{ID: i, Name: info.Name, Nodes: stageNodes[i]}
		if stage.Nodes == nil {
			stage.Nodes = []int{}
		}
		for _, out := range info.Outputs {
			stage.Outputs = append(stage.Outputs, ir.Stageport{
				Name:  out.Name,
				Shape: irShape(out.Shape),
				Node:  int(out.Node),
			})
		}
		doc.Stages = append(doc.Stages, stage)
	}

	doc.Edges = make([]ir.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		doc.Edges = append(doc.Edges, ir.Edge{
			From:    int(e.From),
			FromPin: e.FromPin,
			To:      int(e.To),
			ToPin:   e.ToPin,
			Back:    e.Back,
		})
	}

	doc.Discarded = discardedPins(g)
	return doc
}

func emitNode(n *graph.Node) ir.Node {
	out := ir.Node{
		ID:    int(n.ID),
		Kind:  int(n.Kind),
		Name:  n.Kind.String(),
		Stage: n.Stage,
	}

	if len(n.Attrs) > 0 {
		out.Attrs = make(map[string]any, len(n.Attrs))
		for k, v := range n.Attrs {
			if k == "slice_err" || k == "logical" {
				continue // inference bookkeeping, not contract
			}
			out.Attrs[k] = v
		}
		if len(out.Attrs) == 0 {
			out.Attrs = nil
		}
	}

	if n.Value != nil {
		switch {
		case n.Value.B != nil:
			out.Value = n.Value.B
		case n.Value.I != nil:
			out.Value = n.Value.I
		default:
			out.Value = n.Value.F
		}
	}

	out.Inputs = make([]ir.Pin, 0, len(n.In))
	for _, pin := range n.In {
		out.Inputs = append(out.Inputs, irPin(pin, "in"))
	}
	out.Outputs = make([]ir.Pin, 0, len(n.Out))
	for _, pin := range n.Out {
		out.Outputs = append(out.Outputs, irPin(pin, "out"))
	}
	return out
}

func irPin(pin graph.Pin, dir string) ir.Pin {
	return ir.Pin{
		Name:      pin.Name,
		Direction: dir,
		Shape:     irShape(pin.Shape),
		Rate:      pin.Rate.String(),
	}
}

func irShape(s graph.Shape) ir.Shape {
	return ir.Shape{Scalar: s.Scalar.String(), Width: s.Width}
}

// discardedPins lists every output no edge consumes. These still execute;
// the list exists so backends can elide them knowingly.
func discardedPins(g *graph.Program) []ir.PinRef {
	consumed := make(map[[2]int]bool, len(g.Edges))
	for _, e := range g.Edges {
		consumed[[2]int{int(e.From), e.FromPin}] = true
	}
	refs := []ir.PinRef{}
	for _, n := range g.Nodes {
		for idx := range n.Out {
			if !consumed[[2]int{int(n.ID), idx}] {
				refs = append(refs, ir.PinRef{Node: int(n.ID), Pin: idx})
			}
		}
	}
	return refs
}
