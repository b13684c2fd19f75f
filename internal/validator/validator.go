// Package validator enforces the structural invariants of a built, typed
// graph: required pins, cycle legality, stage-crossing rules, and the
// constant-rate requirements on buffer and cell attributes.
package validator

import (
	"fmt"

	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/folder"
	"github.com/synthizer/waveling/internal/graph"
	"github.com/synthizer/waveling/internal/pipeline"
	"github.com/synthizer/waveling/internal/token"
)

type ValidatorProcessor struct{}

func (vp *ValidatorProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Graph == nil || ctx.HasErrors() {
		return ctx
	}

	v := &Validator{ctx: ctx, g: ctx.Graph}
	v.Run()
	return ctx
}

type Validator struct {
	ctx *pipeline.PipelineContext
	g   *graph.Program
}

func (v *Validator) Run() {
	v.checkRequiredPins()
	v.checkCycles()
	v.checkStageCrossings()
	v.checkStageOutputs()
	v.checkExternalOutputs()
	v.checkBuffers()
	v.checkCells()
}

func (v *Validator) errorf(code diagnostics.ErrorCode, tok token.Token, format string, args ...any) {
	v.ctx.AddError(diagnostics.NewError(code, tok, fmt.Sprintf(format, args...)))
}

func (v *Validator) warnf(code diagnostics.ErrorCode, tok token.Token, format string, args ...any) {
	v.ctx.AddError(diagnostics.NewWarning(code, tok, fmt.Sprintf(format, args...)))
}

// checkRequiredPins verifies every required input pin has at least one
// connection. Variadic pins (merge inputs) were all created by actual
// arguments and count as required.
func (v *Validator) checkRequiredPins() {
	for _, n := range v.g.Nodes {
		// Stage and external outputs report through their own checks with
		// friendlier messages.
		if n.Kind == graph.KindStageOutput || n.Kind == graph.KindExternalOutput {
			continue
		}
		spec := n.Kind.Spec()
		for idx := range n.In {
			required := spec.VariadicIn || n.Kind == graph.KindMath
			if !required && idx < len(spec.In) {
				required = spec.In[idx].Required
			}
			if !required {
				continue
			}
			if len(v.g.InEdgesTo(n.ID, idx)) == 0 {
				name := n.In[idx].Name
				if name == "" {
					name = fmt.Sprintf("%d", idx)
				}
				v.errorf(diagnostics.ErrV001, n.Tok, "%s is missing its %s input", n.Kind, name)
			}
		}
	}
}

// checkCycles rejects any cycle that survives back-edge excision. Cells
// (and the buffer write→read pairing, which never produces a direct edge)
// are the only legal ways to close a loop.
func (v *Validator) checkCycles() {
	_, cyclic := v.g.TopoOrder()
	if len(cyclic) == 0 {
		return
	}
	n := v.g.Node(cyclic[0])
	err := diagnostics.NewError(diagnostics.ErrV003, n.Tok,
		fmt.Sprintf("this graph has a cycle that does not pass through a cell (%d node(s) involved)", len(cyclic)))
	for _, id := range cyclic[1:] {
		if len(err.Secondary) >= 4 {
			break
		}
		other := v.g.Node(id)
		err = err.WithSecondary(other.Tok, fmt.Sprintf("%s is also part of the cycle", other.Kind))
	}
	v.ctx.AddError(err)
}

// checkStageCrossings ensures a cross-stage edge originates from a
// declared stage output. Program-level nodes (external ports, properties)
// belong to no stage and may connect anywhere.
func (v *Validator) checkStageCrossings() {
	for _, e := range v.g.Edges {
		src := v.g.Node(e.From)
		dst := v.g.Node(e.To)
		if src.Stage < 0 || dst.Stage < 0 || src.Stage == dst.Stage {
			continue
		}
		if src.Kind == graph.KindStageOutput {
			continue
		}
		v.errorf(diagnostics.ErrV004, e.Tok,
			"cross-stage connections must come from a declared stage output, not %s", src.Kind)
	}
}

// checkStageOutputs requires every declared stage output to be driven.
func (v *Validator) checkStageOutputs() {
	for _, info := range v.g.Stages {
		for _, out := range info.Outputs {
			if len(v.g.InEdgesTo(out.Node, 0)) == 0 {
				v.errorf(diagnostics.ErrV006, v.g.Node(out.Node).Tok,
					"stage %q never drives its declared output %q", info.Name, out.Name)
			}
		}
	}
}

// checkExternalOutputs verifies driven external outputs match their
// declared widths, and warns about outputs nothing drives.
func (v *Validator) checkExternalOutputs() {
	driven := make([]bool, len(v.g.Outputs))
	for _, n := range v.g.Nodes {
		if n.Kind != graph.KindExternalOutput {
			continue
		}
		port, _ := n.IntAttr(graph.AttrPort)
		if len(v.g.InEdgesTo(n.ID, 0)) > 0 {
			driven[port] = true
		}
		want := v.g.Outputs[port].Width
		if got := n.In[0].Shape.Width; got != 0 && got != want {
			v.errorf(diagnostics.ErrS001, n.Tok,
				"output %q is declared with width %d but is driven with width %d",
				v.g.Outputs[port].Name, want, got)
		}
	}
	for i, ok := range driven {
		if !ok {
			// A silent output plays zeros; legal, but rarely intended.
			v.warnf(diagnostics.ErrV006, token.Token{},
				"external output %q is never driven", v.g.Outputs[i].Name)
		}
	}
}

// checkBuffers validates capacities (constant rate, positive integer) and
// rejects constant delays that can never fit the buffer.
func (v *Validator) checkBuffers() {
	for _, buf := range v.g.Buffers {
		if buf.CapacityNode == graph.NoNode {
			v.errorf(diagnostics.ErrV005, buf.Tok, "buffer %q has no capacity", buf.Name)
			continue
		}
		capNode := v.g.Node(buf.CapacityNode)
		if len(capNode.Out) == 0 {
			v.errorf(diagnostics.ErrV005, buf.Tok, "buffer %q has an invalid capacity expression", buf.Name)
			continue
		}
		if capNode.Out[0].Rate != graph.RateConstant {
			v.errorf(diagnostics.ErrR001, buf.Tok,
				"buffer %q needs a constant capacity, got a %s-rate expression", buf.Name, capNode.Out[0].Rate)
			continue
		}
		value, ok := folder.Eval(v.g, buf.CapacityNode)
		if !ok {
			v.errorf(diagnostics.ErrF001, buf.Tok, "buffer %q capacity does not fold to a constant", buf.Name)
			continue
		}
		capacity, isInt := value.AsInt()
		if !isInt || capacity < 1 {
			v.errorf(diagnostics.ErrV005, buf.Tok, "buffer %q capacity must be a positive integer", buf.Name)
			continue
		}
		v.checkBufferReads(buf, capacity)
	}

	// A read from a buffer nothing writes yields whatever the backend
	// zero-filled it with; worth a warning, not an error.
	written := make(map[int64]bool)
	for _, n := range v.g.Nodes {
		if n.Kind == graph.KindDelWrite {
			idx, _ := n.IntAttr(graph.AttrBuffer)
			written[idx] = true
		}
	}
	for _, n := range v.g.Nodes {
		if n.Kind != graph.KindDelRead {
			continue
		}
		idx, _ := n.IntAttr(graph.AttrBuffer)
		if !written[idx] && int(idx) < len(v.g.Buffers) {
			v.warnf(diagnostics.ErrV005, n.Tok, "buffer %q is read but never written", v.g.Buffers[idx].Name)
		}
	}
}

func (v *Validator) checkBufferReads(buf *graph.Buffer, capacity int64) {
	bufIdx := int64(-1)
	for i, candidate := range v.g.Buffers {
		if candidate == buf {
			bufIdx = int64(i)
		}
	}
	for _, n := range v.g.Nodes {
		if n.Kind != graph.KindDelRead {
			continue
		}
		if idx, _ := n.IntAttr(graph.AttrBuffer); idx != bufIdx {
			continue
		}
		edges := v.g.InEdgesTo(n.ID, 0)
		if len(edges) != 1 {
			continue
		}
		delaySrc := edges[0].From
		value, ok := folder.Eval(v.g, delaySrc)
		if !ok {
			continue // dynamic delay clamps at runtime
		}
		delay, isInt := value.AsInt()
		if !isInt {
			continue
		}
		if delay < 0 {
			v.errorf(diagnostics.ErrV005, n.Tok, "delay must be non-negative, got %d", delay)
			continue
		}
		if delay >= capacity {
			v.errorf(diagnostics.ErrV005, n.Tok,
				"delay %d can never fit buffer %q of capacity %d", delay, buf.Name, capacity)
		}
	}
}

// checkCells re-validates the delay attribute the parser already bounded,
// so a hand-built graph cannot smuggle a zero-delay cell through.
func (v *Validator) checkCells() {
	for _, n := range v.g.Nodes {
		if n.Kind != graph.KindCell {
			continue
		}
		delay, ok := n.IntAttr(graph.AttrDelay)
		if !ok || delay < 1 {
			v.errorf(diagnostics.ErrV005, n.Tok, "a cell must delay at least one sample")
		}
	}
}
