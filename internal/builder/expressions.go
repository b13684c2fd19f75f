package builder

import (
	"github.com/synthizer/waveling/internal/ast"
	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/graph"
	"github.com/synthizer/waveling/internal/symbols"
	"github.com/synthizer/waveling/internal/token"
)

var binaryKinds = map[string]graph.Kind{
	"+":  graph.KindAdd,
	"-":  graph.KindSub,
	"*":  graph.KindMul,
	"/":  graph.KindDiv,
	"%":  graph.KindMod,
	"<<": graph.KindShl,
	">>": graph.KindShr,
	"&":  graph.KindBitAnd,
	"^":  graph.KindBitXor,
	"|":  graph.KindBitOr,
	// Logical forms lower to bitwise on bools; no short-circuit exists.
	"&&": graph.KindBitAnd,
	"||": graph.KindBitOr,
	"==": graph.KindEq,
	"!=": graph.KindNe,
	"<":  graph.KindLt,
	"<=": graph.KindLe,
	">":  graph.KindGt,
	">=": graph.KindGe,
}

// lower reduces an expression to a value, creating nodes eagerly.
func (b *Builder) lower(expr ast.Expression) value {
	switch e := expr.(type) {
	case *ast.Identifier:
		sym, ok := b.tbl.Resolve(e.Value)
		if !ok {
			b.errorf(diagnostics.ErrN001, e.Token, "undeclared name %q", e.Value)
			return invalid()
		}
		return b.symbolValue(sym, e.Token)

	case *ast.IntegerLiteral, *ast.FloatLiteral, *ast.BoolLiteral:
		return value{kind: valLiteral, lit: expr, tok: expr.GetToken()}

	case *ast.PrefixExpression:
		return b.lowerPrefix(e)

	case *ast.InfixExpression:
		return b.lowerInfix(e)

	case *ast.PathExpression:
		return b.lowerPath(e)

	case *ast.IndexExpression:
		return b.lowerIndex(e)

	case *ast.CallExpression:
		return b.lowerCall(e)

	case *ast.BundleLiteral:
		val := value{kind: valBundle, tok: e.Token}
		for _, entry := range e.Entries {
			lowered := b.lower(entry.Value)
			if lowered.kind == valInvalid {
				return invalid()
			}
			val.entries = append(val.entries, bundleEntry{name: entry.Name, val: lowered, tok: entry.Token})
		}
		return val
	}
	return invalid()
}

func (b *Builder) lowerPrefix(e *ast.PrefixExpression) value {
	operand := b.lower(e.Right)
	if operand.kind == valInvalid {
		return invalid()
	}

	var kind graph.Kind
	switch e.Operator {
	case "+":
		// Unary plus is the identity; no node.
		return operand
	case "-":
		kind = graph.KindNeg
	case "!":
		kind = graph.KindNot
	case "~":
		kind = graph.KindBitNot
	default:
		return invalid()
	}

	n := b.g.AddNode(kind, b.stage, e.Token)
	src, ok := b.asSource(operand)
	if !ok {
		return invalid()
	}
	if _, err := b.g.Connect(src.node, src.pin, n.ID, 0, e.Token); err != nil {
		b.errorf(diagnostics.ErrN004, e.Token, "%s", err.Error())
		return invalid()
	}
	return nodeValue(n, e.Token)
}

func (b *Builder) lowerInfix(e *ast.InfixExpression) value {
	switch e.Operator {
	case "->":
		src := b.lower(e.Left)
		dst := b.lower(e.Right)
		if src.kind == valInvalid || dst.kind == valInvalid {
			return invalid()
		}
		return b.route(src, dst, e.Token)
	case "<-":
		dst := b.lower(e.Left)
		src := b.lower(e.Right)
		if src.kind == valInvalid || dst.kind == valInvalid {
			return invalid()
		}
		return b.route(src, dst, e.Token)
	case ",":
		return b.lowerStack(e)
	}

	kind, ok := binaryKinds[e.Operator]
	if !ok {
		return invalid()
	}
	left := b.lower(e.Left)
	right := b.lower(e.Right)
	if left.kind == valInvalid || right.kind == valInvalid {
		return invalid()
	}

	n := b.g.AddNode(kind, b.stage, e.Token)
	if e.Operator == "&&" || e.Operator == "||" {
		n.SetAttr("logical", int64(1))
	}
	for i, operand := range []value{left, right} {
		src, ok := b.asSource(operand)
		if !ok {
			return invalid()
		}
		if _, err := b.g.Connect(src.node, src.pin, n.ID, i, e.Token); err != nil {
			b.errorf(diagnostics.ErrN004, e.Token, "%s", err.Error())
			return invalid()
		}
	}
	return nodeValue(n, e.Token)
}

// lowerStack lowers the output-stacking comma into a merge node: the
// composite carries the concatenated channels.
func (b *Builder) lowerStack(e *ast.InfixExpression) value {
	left := b.lower(e.Left)
	right := b.lower(e.Right)
	if left.kind == valInvalid || right.kind == valInvalid {
		return invalid()
	}

	n := b.g.AddNode(graph.KindMerge, b.stage, e.Token)
	n.In = append(n.In, graph.Pin{}, graph.Pin{})
	for i, operand := range []value{left, right} {
		src, ok := b.asSource(operand)
		if !ok {
			return invalid()
		}
		if _, err := b.g.Connect(src.node, src.pin, n.ID, i, e.Token); err != nil {
			b.errorf(diagnostics.ErrN004, e.Token, "%s", err.Error())
			return invalid()
		}
	}
	return nodeValue(n, e.Token)
}

func (b *Builder) lowerPath(e *ast.PathExpression) value {
	left := b.lower(e.Left)
	switch left.kind {
	case valInvalid:
		return invalid()

	case valModule:
		// biquad.<designer>
		if !biquadModes[e.Member] {
			b.errorf(diagnostics.ErrN003, e.Token, "unknown biquad designer %q", e.Member)
			return invalid()
		}
		mode := e.Member
		entry := builtinEntry{
			name: "biquad." + mode,
			build: func(b *Builder, tok token.Token, args []value) value {
				n := b.g.AddNode(graph.KindBiquad, b.stage, tok)
				n.SetAttr(graph.AttrMode, mode)
				return b.routeArgs(n, tok, args)
			},
		}
		return value{kind: valBuiltin, builtin: entry, tok: e.Token}

	case valStage:
		if e.Member != "outputs" {
			b.errorf(diagnostics.ErrN003, e.Token, "a stage only exposes .outputs")
			return invalid()
		}
		return value{kind: valStageOuts, index: left.index, tok: e.Token}

	case valStageOuts:
		info := b.g.Stages[left.index]
		for _, out := range info.Outputs {
			if out.Name == e.Member {
				return outPin(out.Node, 0, e.Token)
			}
		}
		b.errorf(diagnostics.ErrN003, e.Token, "stage %q has no declared output %q", info.Name, e.Member)
		return invalid()

	case valNode:
		switch e.Member {
		case "outputs":
			return value{kind: valNodeOuts, node: left.node, tok: e.Token}
		case "inputs":
			return value{kind: valNodeIns, node: left.node, tok: e.Token}
		}
		n := b.g.Node(left.node)
		if idx, ok := n.OutIndex(e.Member); ok {
			return outPin(left.node, idx, e.Token)
		}
		if idx, ok := n.InIndex(e.Member); ok {
			return inPin(left.node, idx, e.Token)
		}
		b.errorf(diagnostics.ErrN003, e.Token, "%s has no pin named %q", n.Kind, e.Member)
		return invalid()

	case valNodeOuts:
		n := b.g.Node(left.node)
		if idx, ok := n.OutIndex(e.Member); ok {
			return outPin(left.node, idx, e.Token)
		}
		b.errorf(diagnostics.ErrN003, e.Token, "%s has no output pin named %q", n.Kind, e.Member)
		return invalid()

	case valNodeIns:
		n := b.g.Node(left.node)
		if idx, ok := n.InIndex(e.Member); ok {
			return inPin(left.node, idx, e.Token)
		}
		b.errorf(diagnostics.ErrN003, e.Token, "%s has no input pin named %q", n.Kind, e.Member)
		return invalid()
	}

	b.errorf(diagnostics.ErrN003, e.Token, "path selection is not available here")
	return invalid()
}

func (b *Builder) lowerIndex(e *ast.IndexExpression) value {
	left := b.lower(e.Left)
	if left.kind == valInvalid {
		return invalid()
	}

	lit, ok := e.Index.(*ast.IntegerLiteral)
	if !ok {
		b.errorf(diagnostics.ErrN004, e.Token, "pin index must be an integer literal")
		return invalid()
	}
	idx := int(lit.Value)

	switch left.kind {
	case valPortGroup:
		if left.isInput {
			if idx < 0 || idx >= len(b.g.Inputs) {
				b.errorf(diagnostics.ErrN001, e.Token, "input index %d out of range (program has %d)", idx, len(b.g.Inputs))
				return invalid()
			}
			return nodeValue(b.g.Node(b.externalInput(idx, e.Token)), e.Token)
		}
		if idx < 0 || idx >= len(b.g.Outputs) {
			b.errorf(diagnostics.ErrN001, e.Token, "output index %d out of range (program has %d)", idx, len(b.g.Outputs))
			return invalid()
		}
		return nodeValue(b.g.Node(b.externalOutput(idx, e.Token)), e.Token)

	case valNode, valNodeOuts:
		n := b.g.Node(left.node)
		if idx < 0 || idx >= len(n.Out) {
			b.errorf(diagnostics.ErrN003, e.Token, "%s has no output %d", n.Kind, idx)
			return invalid()
		}
		return outPin(left.node, idx, e.Token)

	case valNodeIns:
		n := b.g.Node(left.node)
		if idx < 0 || idx >= len(n.In) {
			b.errorf(diagnostics.ErrN003, e.Token, "%s has no input %d", n.Kind, idx)
			return invalid()
		}
		return inPin(left.node, idx, e.Token)
	}

	b.errorf(diagnostics.ErrN004, e.Token, "indexing is not available here")
	return invalid()
}

func (b *Builder) lowerCall(e *ast.CallExpression) value {
	callee := b.lower(e.Callee)
	switch callee.kind {
	case valInvalid:
		return invalid()
	case valBuiltin:
		var args []value
		for _, arg := range e.Arguments {
			lowered := b.lower(arg)
			if lowered.kind == valInvalid {
				return invalid()
			}
			args = append(args, lowered)
		}
		return callee.builtin.build(b, e.Token, args)
	case valModule:
		b.errorf(diagnostics.ErrN003, e.Token, "biquad needs a designer: biquad.lowpass(...)")
		return invalid()
	}
	b.errorf(diagnostics.ErrN004, e.Token, "only built-ins can be called")
	return invalid()
}

func (b *Builder) symbolValue(sym symbols.Symbol, tok token.Token) value {
	switch sym.Kind {
	case symbols.BuiltinSymbol:
		entry := builtins[sym.Builtin]
		if sym.Builtin == "biquad" {
			return value{kind: valModule, tok: tok}
		}
		if entry.nullary {
			return entry.build(b, tok, nil)
		}
		return value{kind: valBuiltin, builtin: entry, tok: tok}
	case symbols.LetSymbol:
		return value{kind: valNode, node: sym.Node, tok: tok}
	case symbols.CellPinSymbol:
		if sym.Dir == graph.DirOut {
			return outPin(sym.Node, sym.Pin, tok)
		}
		return inPin(sym.Node, sym.Pin, tok)
	case symbols.InputSymbol:
		return nodeValue(b.g.Node(b.externalInput(sym.Index, tok)), tok)
	case symbols.OutputSymbol:
		return nodeValue(b.g.Node(b.externalOutput(sym.Index, tok)), tok)
	case symbols.PropertySymbol:
		return nodeValue(b.g.Node(b.propertyNode(sym.Index, tok)), tok)
	case symbols.StageSymbol:
		return value{kind: valStage, index: sym.Index, tok: tok}
	case symbols.BufferSymbol:
		return value{kind: valBuffer, index: sym.Index, tok: tok}
	case symbols.StageOutSymbol:
		return value{kind: valNode, node: sym.Node, tok: tok}
	case symbols.PortGroupSymbol:
		return value{kind: valPortGroup, isInput: sym.Index == 0, tok: tok}
	}
	return invalid()
}

// asSource normalizes a value to a single output pin, materializing
// pending literals. It reports its own diagnostic on failure.
func (b *Builder) asSource(v value) (value, bool) {
	switch v.kind {
	case valInvalid:
		return invalid(), false
	case valLiteral:
		n := b.materializeLiteral(v.lit)
		return outPin(n.ID, 0, v.tok), true
	case valNode:
		n := b.g.Node(v.node)
		if len(n.Out) == 0 {
			b.errorf(diagnostics.ErrN004, v.tok, "%s produces no output", n.Kind)
			return invalid(), false
		}
		return outPin(v.node, 0, v.tok), true
	case valOutPin:
		return v, true
	case valInPin:
		b.errorf(diagnostics.ErrN004, v.tok, "an input pin cannot be used as a signal source")
	case valBundle:
		b.errorf(diagnostics.ErrN004, v.tok, "a bundle can only be routed into a node")
	case valBuiltin, valModule:
		b.errorf(diagnostics.ErrN004, v.tok, "a built-in needs arguments or a routed input here")
	case valStage, valStageOuts:
		b.errorf(diagnostics.ErrN004, v.tok, "use stage.outputs.<name> to read a stage output")
	case valBuffer:
		b.errorf(diagnostics.ErrN004, v.tok, "a buffer is read with delread and written with delwrite")
	case valPortGroup:
		b.errorf(diagnostics.ErrN004, v.tok, "index the port array, e.g. input[0]")
	}
	return invalid(), false
}

// route implements A -> B over the operand-kind table. The routing
// expression evaluates to its destination operand, which enables chains.
func (b *Builder) route(src, dst value, tok token.Token) value {
	// A built-in in destination position instantiates with no arguments:
	// `x -> f32` routes into a fresh cast node.
	if dst.kind == valBuiltin {
		dst = dst.builtin.build(b, tok, nil)
	}
	if dst.kind == valInvalid {
		return invalid()
	}

	if src.kind == valBundle {
		if dst.kind != valNode {
			b.errorf(diagnostics.ErrN004, tok, "a bundle can only be routed into a node")
			return invalid()
		}
		return b.routeBundle(src, dst, tok)
	}

	from, ok := b.asSource(src)
	if !ok {
		return invalid()
	}

	var toNode graph.NodeID
	var toPin int
	switch dst.kind {
	case valNode:
		n := b.g.Node(dst.node)
		if len(n.In) == 0 {
			b.errorf(diagnostics.ErrN004, dst.tok, "%s accepts no input", n.Kind)
			return invalid()
		}
		toNode, toPin = dst.node, 0
	case valInPin:
		toNode, toPin = dst.node, dst.pin
	case valOutPin:
		b.errorf(diagnostics.ErrN004, dst.tok, "cannot route into an output pin")
		return invalid()
	default:
		b.errorf(diagnostics.ErrN004, dst.tok, "this is not a routable destination")
		return invalid()
	}

	if _, err := b.g.Connect(from.node, from.pin, toNode, toPin, tok); err != nil {
		b.errorf(diagnostics.ErrN004, tok, "%s", err.Error())
		return invalid()
	}
	return dst
}

// routeBundle wires each bundle entry into the destination node: positional
// entries by pin index, named entries through the name→index map.
func (b *Builder) routeBundle(src, dst value, tok token.Token) value {
	n := b.g.Node(dst.node)
	positional := 0
	for _, entry := range src.entries {
		var pin int
		if entry.name == "" {
			if positional >= len(n.In) {
				b.errorf(diagnostics.ErrV002, entry.tok, "%s has only %d input pin(s)", n.Kind, len(n.In))
				return invalid()
			}
			pin = positional
			positional++
		} else {
			idx, ok := n.InIndex(entry.name)
			if !ok {
				b.errorf(diagnostics.ErrV002, entry.tok, "%s has no input pin named %q", n.Kind, entry.name)
				return invalid()
			}
			pin = idx
		}

		from, ok := b.asSource(entry.val)
		if !ok {
			return invalid()
		}
		if _, err := b.g.Connect(from.node, from.pin, dst.node, pin, entry.tok); err != nil {
			b.errorf(diagnostics.ErrN004, entry.tok, "%s", err.Error())
			return invalid()
		}
	}
	return dst
}

// materializeLiteral creates a const node for a literal used as a signal.
// An unsuffixed integer is fully polymorphic; an unsuffixed float is
// constrained to the float family. Both must be resolved by context.
func (b *Builder) materializeLiteral(lit ast.Expression) *graph.Node {
	n := b.g.AddNode(graph.KindConst, b.stage, lit.GetToken())
	switch l := lit.(type) {
	case *ast.IntegerLiteral:
		switch l.Suffix {
		case "i32":
			n.Value = graph.NewIntConstant(graph.ScalarI32, l.Value)
		case "i64":
			n.Value = graph.NewIntConstant(graph.ScalarI64, l.Value)
		case "f32":
			n.Value = graph.NewFloatConstant(graph.ScalarF32, float64(l.Value))
		case "f64":
			n.Value = graph.NewFloatConstant(graph.ScalarF64, float64(l.Value))
		default:
			n.Value = graph.NewIntConstant(graph.ScalarUnknown, l.Value)
		}
	case *ast.FloatLiteral:
		switch l.Suffix {
		case "f32":
			n.Value = graph.NewFloatConstant(graph.ScalarF32, l.Value)
		case "f64":
			n.Value = graph.NewFloatConstant(graph.ScalarF64, l.Value)
		default:
			n.Value = graph.NewFloatConstant(graph.ScalarUnknown, l.Value)
		}
	case *ast.BoolLiteral:
		n.Value = graph.NewBoolConstant(l.Value)
	}
	return n
}
