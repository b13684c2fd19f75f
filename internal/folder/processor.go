package folder

import (
	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/graph"
	"github.com/synthizer/waveling/internal/pipeline"
)

type FolderProcessor struct{}

func (fp *FolderProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Graph == nil || ctx.HasErrors() {
		return ctx
	}

	f := &Folder{ctx: ctx, g: ctx.Graph}
	f.Run()
	return ctx
}

type Folder struct {
	ctx *pipeline.PipelineContext
	g   *graph.Program

	// candidates are nodes whose consumers were folded away; they become
	// dead once their own out-edges are gone.
	candidates map[graph.NodeID]bool
	dead       map[graph.NodeID]bool
}

// Run folds every constant-rate subgraph down to a single literal node,
// finalizes buffer capacities, and compacts the arena.
func (f *Folder) Run() {
	f.candidates = make(map[graph.NodeID]bool)
	f.dead = make(map[graph.NodeID]bool)

	f.foldBufferCapacities()

	order, _ := f.g.TopoOrder()
	for _, id := range order {
		f.foldNode(id)
	}

	f.sweep()
	f.compact()
}

// foldNode collapses one constant-rate node into a literal in place; the
// arena id is stable so downstream edges stay valid.
func (f *Folder) foldNode(id graph.NodeID) {
	n := f.g.Node(id)
	if n.Kind == graph.KindConst || (!foldable(n.Kind) && n.Kind != graph.KindSr) {
		return
	}
	if len(n.Out) != 1 || n.Out[0].Rate != graph.RateConstant {
		return
	}

	value, ok := Eval(f.g, id)
	if !ok {
		// A constant-rate foldable node that will not evaluate faulted
		// (division by zero and friends).
		f.ctx.AddError(diagnostics.NewError(diagnostics.ErrF002, n.Tok,
			"constant expression faults at runtime"))
		return
	}

	for _, e := range f.g.InEdges(id) {
		f.candidates[e.From] = true
		f.g.RemoveEdge(e)
	}

	shape := n.Out[0].Shape
	rate := n.Out[0].Rate
	n.Kind = graph.KindConst
	n.Value = value
	n.In = nil
	n.Attrs = nil
	n.Out = []graph.Pin{{Shape: shape, Rate: rate}}
}

// foldBufferCapacities evaluates each buffer's capacity expression into
// the buffer record. The capacity subgraph is then dead.
func (f *Folder) foldBufferCapacities() {
	for _, buf := range f.g.Buffers {
		if buf.CapacityNode == graph.NoNode {
			continue
		}
		value, ok := Eval(f.g, buf.CapacityNode)
		if !ok {
			continue // the validator reported non-constant capacity
		}
		if capacity, isInt := value.AsInt(); isInt && capacity > 0 {
			buf.Capacity = capacity
		}
		f.candidates[buf.CapacityNode] = true
		buf.CapacityNode = graph.NoNode
	}
}

// sweep removes nodes orphaned by folding: pure nodes whose every consumer
// was folded. Nodes a user discarded on purpose keep their everything-
// executes semantics and stay.
func (f *Folder) sweep() {
	for {
		removed := false
		for id := range f.candidates {
			if f.dead[id] {
				continue
			}
			n := f.g.Node(id)
			if !foldable(n.Kind) && n.Kind != graph.KindConst && n.Kind != graph.KindSr {
				continue
			}
			if len(f.g.OutEdges(id)) > 0 {
				continue
			}
			for _, e := range f.g.InEdges(id) {
				f.candidates[e.From] = true
				f.g.RemoveEdge(e)
			}
			f.dead[id] = true
			removed = true
		}
		if !removed {
			return
		}
	}
}

// compact rebuilds the arena without dead nodes, remapping every id the
// program stores.
func (f *Folder) compact() {
	if len(f.dead) == 0 {
		return
	}

	remap := make(map[graph.NodeID]graph.NodeID, len(f.g.Nodes))
	var nodes []*graph.Node
	for _, n := range f.g.Nodes {
		if f.dead[n.ID] {
			continue
		}
		remap[n.ID] = graph.NodeID(len(nodes))
		n.ID = graph.NodeID(len(nodes))
		nodes = append(nodes, n)
	}
	f.g.Nodes = nodes

	var edges []*graph.Edge
	for _, e := range f.g.Edges {
		from, okFrom := remap[e.From]
		to, okTo := remap[e.To]
		if !okFrom || !okTo {
			continue
		}
		e.From, e.To = from, to
		edges = append(edges, e)
	}
	f.g.Edges = edges

	for _, info := range f.g.Stages {
		for i := range info.Outputs {
			if id, ok := remap[info.Outputs[i].Node]; ok {
				info.Outputs[i].Node = id
			}
		}
	}
}
