package graph

import (
	"fmt"

	"github.com/synthizer/waveling/internal/token"
)

// Port is one external input or output array. External ports are always
// f32 at the language boundary.
type Port struct {
	Name  string
	Width int
}

// Property is one external property. The declared scalar is recorded for
// backends but properties are f64 semantically in this version.
type Property struct {
	Name     string
	Declared Scalar
	Rate     Rate // RateBlock or RateSample
}

// Buffer is a circular delay-line buffer. CapacityNode refers to the
// capacity expression until folding collapses it into Capacity.
type Buffer struct {
	Name         string
	Shape        Shape
	CapacityNode NodeID
	Capacity     int64 // valid once folded; 0 before
	Tok          token.Token
}

// StageOut is one declared stage output and the stage_output node that
// carries it.
type StageOut struct {
	Name  string
	Shape Shape
	Node  NodeID
}

// StageInfo is one named subgraph.
type StageInfo struct {
	Name    string
	Outputs []StageOut
	Tok     token.Token
}

// Program is the graph IR for one compilation: the external contract plus
// the node arena and flat edge list. All state is created by the builder,
// mutated only by inference and folding, and frozen before emission.
type Program struct {
	Name      string
	SR        int64
	BlockSize int64

	Inputs     []Port
	Outputs    []Port
	Properties []Property
	Buffers    []*Buffer
	Stages     []*StageInfo

	Nodes []*Node
	Edges []*Edge
}

func NewProgram(name string, sr, blockSize int64) *Program {
	return &Program{Name: name, SR: sr, BlockSize: blockSize}
}

// AddNode appends a node of the given kind, constructing its pin bundles
// from the kind metadata. Variadic kinds start empty; the builder adds
// their pins explicitly.
func (p *Program) AddNode(kind Kind, stage int, tok token.Token) *Node {
	spec := kind.Spec()
	n := &Node{
		ID:    NodeID(len(p.Nodes)),
		Kind:  kind,
		Stage: stage,
		Tok:   tok,
	}
	for _, ps := range spec.In {
		n.In = append(n.In, Pin{Name: ps.Name})
	}
	for _, ps := range spec.Out {
		n.Out = append(n.Out, Pin{Name: ps.Name})
	}
	p.Nodes = append(p.Nodes, n)
	return n
}

// Node returns the node with the given id.
func (p *Program) Node(id NodeID) *Node {
	return p.Nodes[id]
}

// Connect adds an edge from an output pin to an input pin. Edges into a
// cell's end pin are the permitted back-edges and are marked as such.
func (p *Program) Connect(from NodeID, fromPin int, to NodeID, toPin int, tok token.Token) (*Edge, error) {
	if int(from) >= len(p.Nodes) || int(to) >= len(p.Nodes) || from < 0 || to < 0 {
		return nil, fmt.Errorf("connect: node out of range")
	}
	src := p.Nodes[from]
	dst := p.Nodes[to]
	if fromPin < 0 || fromPin >= len(src.Out) {
		return nil, fmt.Errorf("connect: %s has no output pin %d", src.Kind, fromPin)
	}
	if toPin < 0 || toPin >= len(dst.In) {
		return nil, fmt.Errorf("connect: %s has no input pin %d", dst.Kind, toPin)
	}
	e := &Edge{
		From:    from,
		FromPin: fromPin,
		To:      to,
		ToPin:   toPin,
		Back:    dst.Kind == KindCell,
		Tok:     tok,
	}
	p.Edges = append(p.Edges, e)
	return e, nil
}

// InEdges returns all edges into the node.
func (p *Program) InEdges(id NodeID) []*Edge {
	var out []*Edge
	for _, e := range p.Edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

// InEdgesTo returns all edges into one input pin.
func (p *Program) InEdgesTo(id NodeID, pin int) []*Edge {
	var out []*Edge
	for _, e := range p.Edges {
		if e.To == id && e.ToPin == pin {
			out = append(out, e)
		}
	}
	return out
}

// OutEdges returns all edges out of the node.
func (p *Program) OutEdges(id NodeID) []*Edge {
	var out []*Edge
	for _, e := range p.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// RemoveEdge unlinks a single edge.
func (p *Program) RemoveEdge(target *Edge) {
	for i, e := range p.Edges {
		if e == target {
			p.Edges = append(p.Edges[:i], p.Edges[i+1:]...)
			return
		}
	}
}

// TopoOrder computes a topological order of the node set with back-edges
// excised. When the remaining edges still contain a cycle, the second
// return value lists the nodes trapped in it and the order is partial.
func (p *Program) TopoOrder() (order []NodeID, cyclic []NodeID) {
	indegree := make([]int, len(p.Nodes))
	for _, e := range p.Edges {
		if e.Back {
			continue
		}
		indegree[e.To]++
	}

	var queue []NodeID
	for i := range p.Nodes {
		if indegree[i] == 0 {
			queue = append(queue, NodeID(i))
		}
	}

	seen := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		seen++
		for _, e := range p.Edges {
			if e.Back || e.From != id {
				continue
			}
			indegree[e.To]--
			if indegree[e.To] == 0 {
				queue = append(queue, e.To)
			}
		}
	}

	if seen < len(p.Nodes) {
		inOrder := make(map[NodeID]bool, len(order))
		for _, id := range order {
			inOrder[id] = true
		}
		for i := range p.Nodes {
			if !inOrder[NodeID(i)] {
				cyclic = append(cyclic, NodeID(i))
			}
		}
	}
	return order, cyclic
}

// BufferIndex resolves a buffer by name.
func (p *Program) BufferIndex(name string) (int, bool) {
	for i, b := range p.Buffers {
		if b.Name == name {
			return i, true
		}
	}
	return 0, false
}

// StageIndex resolves a stage by name.
func (p *Program) StageIndex(name string) (int, bool) {
	for i, s := range p.Stages {
		if s.Name == name {
			return i, true
		}
	}
	return 0, false
}
