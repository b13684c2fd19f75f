package infer

import (
	"github.com/synthizer/waveling/internal/graph"
)

// assignRates propagates rates bottom-up along a topological order with
// back-edges excised: a node's outputs run at the max of its dependency
// rates unless its kind overrides. Once every output is rated, input pins
// take the rate of the value arriving on them (back-edges included).
func (inf *Inferencer) assignRates() {
	order, cyclic := inf.g.TopoOrder()

	for _, id := range order {
		inf.rateOutputs(inf.g.Node(id))
	}
	// Nodes trapped in an illegal cycle still get a defensive rate so the
	// validator can report the cycle without tripping over zero values.
	for _, id := range cyclic {
		n := inf.g.Node(id)
		for idx := range n.Out {
			n.Out[idx].Rate = graph.RateSample
		}
	}

	for _, n := range inf.g.Nodes {
		for idx := range n.In {
			pinRate := graph.RateConstant
			for _, e := range inf.g.InEdgesTo(n.ID, idx) {
				src := inf.g.Node(e.From)
				pinRate = graph.MaxRate(pinRate, src.Out[e.FromPin].Rate)
			}
			n.In[idx].Rate = pinRate
		}
	}
}

func (inf *Inferencer) rateOutputs(n *graph.Node) {
	incoming := graph.RateConstant
	for idx := range n.In {
		for _, e := range inf.g.InEdgesTo(n.ID, idx) {
			if e.Back {
				// The cell decouples its loop; the back-edge rate does
				// not feed forward.
				continue
			}
			src := inf.g.Node(e.From)
			incoming = graph.MaxRate(incoming, src.Out[e.FromPin].Rate)
		}
	}

	var out graph.Rate
	switch n.Kind.Spec().Rate {
	case graph.RateAlwaysConstant:
		out = graph.RateConstant
	case graph.RateAlwaysSample:
		out = graph.RateSample
	case graph.RateFromDecl:
		out = inf.propertyRate(n)
	default:
		out = incoming
	}
	for idx := range n.Out {
		n.Out[idx].Rate = out
	}
}

func (inf *Inferencer) propertyRate(n *graph.Node) graph.Rate {
	idx, ok := n.IntAttr(graph.AttrProp)
	if !ok || int(idx) >= len(inf.g.Properties) {
		return graph.RateBlock
	}
	return inf.g.Properties[idx].Rate
}
