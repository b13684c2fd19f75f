package builder

import (
	"github.com/synthizer/waveling/internal/ast"
	"github.com/synthizer/waveling/internal/graph"
	"github.com/synthizer/waveling/internal/token"
)

// valueKind classifies what a routing expression has reduced to so far.
type valueKind int

const (
	valInvalid valueKind = iota
	valLiteral           // a literal not yet materialized as a const node
	valNode              // a node; output 0 as source, input 0 as destination
	valOutPin            // a specific output pin
	valInPin             // a specific input pin
	valBundle            // a bundle literal awaiting a destination
	valBuiltin           // an uninstantiated non-nullary built-in
	valModule            // a built-in namespace (biquad)
	valPortGroup         // the input / output pseudo-arrays
	valStage             // a stage name
	valStageOuts         // stage.outputs
	valNodeOuts          // node.outputs
	valNodeIns           // node.inputs
	valBuffer            // a declared buffer name
)

// value is the operand produced while reducing an expression. Exactly the
// fields relevant to its kind are set.
type value struct {
	kind valueKind
	tok  token.Token

	node    graph.NodeID
	pin     int
	lit     ast.Expression
	entries []bundleEntry
	builtin builtinEntry
	isInput bool // valPortGroup: input side?
	index   int  // valBuffer / valStage / valStageOuts
}

type bundleEntry struct {
	name string
	val  value
	tok  token.Token
}

func invalid() value {
	return value{kind: valInvalid}
}

func nodeValue(n *graph.Node, tok token.Token) value {
	return value{kind: valNode, node: n.ID, tok: tok}
}

func outPin(id graph.NodeID, pin int, tok token.Token) value {
	return value{kind: valOutPin, node: id, pin: pin, tok: tok}
}

func inPin(id graph.NodeID, pin int, tok token.Token) value {
	return value{kind: valInPin, node: id, pin: pin, tok: tok}
}
