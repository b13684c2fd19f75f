// Package builder lowers the AST into the graph IR: it resolves names
// against the three scope tiers while reducing expressions to nodes, pins,
// and edges, applying the routing semantics of the language.
package builder

import (
	"github.com/synthizer/waveling/internal/ast"
	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/graph"
	"github.com/synthizer/waveling/internal/pipeline"
	"github.com/synthizer/waveling/internal/symbols"
	"github.com/synthizer/waveling/internal/token"
)

type Builder struct {
	ctx *pipeline.PipelineContext
	g   *graph.Program
	tbl *symbols.Table

	stage int // current stage index; -1 outside stage bodies

	// One node per external port / property, shared by every reference so
	// fan-in and fan-out meet on the same pins.
	inputNodes  map[int]graph.NodeID
	outputNodes map[int]graph.NodeID
	propNodes   map[int]graph.NodeID
}

func New(ctx *pipeline.PipelineContext) *Builder {
	return &Builder{
		ctx:         ctx,
		tbl:         symbols.NewTable(),
		stage:       -1,
		inputNodes:  make(map[int]graph.NodeID),
		outputNodes: make(map[int]graph.NodeID),
		propNodes:   make(map[int]graph.NodeID),
	}
}

// Build lowers one parsed program.
func (b *Builder) Build(prog *ast.Program) *graph.Program {
	ext := prog.External
	if ext == nil {
		ext = &ast.External{}
	}
	b.g = graph.NewProgram(prog.Name, ext.SampleRate, ext.BlockSize)

	b.registerBuiltinScope()
	b.tbl.Push(symbols.ScopeProgram)
	b.registerExternals(ext)
	b.registerStages(prog.Stages)
	b.registerBuffers(prog.Stages)

	for i, stage := range prog.Stages {
		b.buildStage(i, stage)
	}

	return b.g
}

func (b *Builder) registerBuiltinScope() {
	for name := range builtins {
		b.tbl.Define(symbols.Symbol{Name: name, Kind: symbols.BuiltinSymbol, Builtin: name})
	}
	b.tbl.Define(symbols.Symbol{Name: "input", Kind: symbols.PortGroupSymbol, Index: 0})
	b.tbl.Define(symbols.Symbol{Name: "output", Kind: symbols.PortGroupSymbol, Index: 1})
}

func (b *Builder) registerExternals(ext *ast.External) {
	for i, port := range ext.Inputs {
		b.g.Inputs = append(b.g.Inputs, graph.Port{Name: port.Name, Width: int(port.Width)})
		if !b.tbl.Define(symbols.Symbol{Name: port.Name, Kind: symbols.InputSymbol, Index: i}) {
			b.errorf(diagnostics.ErrN002, port.Token, "%q is already declared in the external block", port.Name)
		}
	}
	for i, port := range ext.Outputs {
		b.g.Outputs = append(b.g.Outputs, graph.Port{Name: port.Name, Width: int(port.Width)})
		if !b.tbl.Define(symbols.Symbol{Name: port.Name, Kind: symbols.OutputSymbol, Index: i}) {
			b.errorf(diagnostics.ErrN002, port.Token, "%q is already declared in the external block", port.Name)
		}
	}
	for i, prop := range ext.Properties {
		scalar, _ := graph.ScalarFromName(prop.Type)
		rate := graph.RateBlock
		if prop.Rate == "s" {
			rate = graph.RateSample
		}
		b.g.Properties = append(b.g.Properties, graph.Property{Name: prop.Name, Declared: scalar, Rate: rate})
		if !b.tbl.Define(symbols.Symbol{Name: prop.Name, Kind: symbols.PropertySymbol, Index: i}) {
			b.errorf(diagnostics.ErrN002, prop.Token, "%q is already declared in the external block", prop.Name)
		}
	}
}

// registerStages creates every stage's info and stage_output nodes up
// front, so stage references resolve independently of declaration order.
func (b *Builder) registerStages(stages []*ast.Stage) {
	for i, stage := range stages {
		info := &graph.StageInfo{Name: stage.Name, Tok: stage.GetToken()}
		for pinIdx, decl := range stage.Outputs {
			scalar, _ := graph.ScalarFromName(decl.Shape.Scalar)
			shape := graph.Shape{Scalar: scalar, Width: int(decl.Shape.Width)}
			n := b.g.AddNode(graph.KindStageOutput, i, decl.Token)
			n.SetAttr(graph.AttrStage, decl.Name)
			n.SetAttr(graph.AttrDeclPin, int64(pinIdx))
			n.In[0].Shape = shape
			n.Out[0].Shape = shape
			info.Outputs = append(info.Outputs, graph.StageOut{Name: decl.Name, Shape: shape, Node: n.ID})
		}
		b.g.Stages = append(b.g.Stages, info)
		if !b.tbl.Define(symbols.Symbol{Name: stage.Name, Kind: symbols.StageSymbol, Index: i}) {
			b.errorf(diagnostics.ErrN002, stage.GetToken(), "stage %q is already declared", stage.Name)
		}
	}
}

// registerBuffers pre-registers buffer names in the program scope; buffers
// are program-wide resources even when declared inside a stage body.
func (b *Builder) registerBuffers(stages []*ast.Stage) {
	for _, stage := range stages {
		for _, stmt := range stage.Body {
			decl, ok := stmt.(*ast.BufferStatement)
			if !ok {
				continue
			}
			scalar, _ := graph.ScalarFromName(decl.Shape.Scalar)
			buf := &graph.Buffer{
				Name:         decl.Name,
				Shape:        graph.Shape{Scalar: scalar, Width: int(decl.Shape.Width)},
				CapacityNode: graph.NoNode,
				Tok:          decl.Token,
			}
			idx := len(b.g.Buffers)
			if !b.tbl.Define(symbols.Symbol{Name: decl.Name, Kind: symbols.BufferSymbol, Index: idx}) {
				b.errorf(diagnostics.ErrN002, decl.Token, "buffer %q is already declared", decl.Name)
				continue
			}
			b.g.Buffers = append(b.g.Buffers, buf)
		}
	}
}

func (b *Builder) buildStage(index int, stage *ast.Stage) {
	b.stage = index
	b.tbl.Push(symbols.ScopeStage)
	defer func() {
		b.tbl.Pop()
		b.stage = -1
	}()

	// Declared outputs are destination signals inside their stage.
	for pinIdx, decl := range stage.Outputs {
		node := b.g.Stages[index].Outputs[pinIdx].Node
		if !b.tbl.Define(symbols.Symbol{Name: decl.Name, Kind: symbols.StageOutSymbol, Node: node}) {
			b.errorf(diagnostics.ErrN002, decl.Token, "stage output %q is already declared", decl.Name)
		}
	}

	for _, stmt := range stage.Body {
		b.buildStatement(stmt)
	}
}

func (b *Builder) buildStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.LetStatement:
		b.buildLet(s)
	case *ast.AssignStatement:
		b.buildAssign(s)
	case *ast.CellStatement:
		b.buildCell(s)
	case *ast.BufferStatement:
		b.buildBuffer(s)
	case *ast.ExpressionStatement:
		// Routed for its side effects; the value is discarded.
		b.lower(s.Value)
	}
}

func (b *Builder) buildLet(s *ast.LetStatement) {
	val := b.lower(s.Value)
	if val.kind == valInvalid {
		return
	}
	src, ok := b.asSource(val)
	if !ok {
		return
	}
	var sym symbols.Symbol
	if src.kind == valOutPin && src.pin != 0 {
		sym = symbols.Symbol{Name: s.Name, Kind: symbols.CellPinSymbol, Node: src.node, Pin: src.pin, Dir: graph.DirOut}
	} else {
		sym = symbols.Symbol{Name: s.Name, Kind: symbols.LetSymbol, Node: src.node}
	}
	if !b.tbl.Define(sym) {
		b.errorf(diagnostics.ErrN002, s.GetToken(), "%q is already declared in this scope", s.Name)
	}
}

func (b *Builder) buildAssign(s *ast.AssignStatement) {
	sym, ok := b.tbl.Resolve(s.Name)
	if !ok {
		b.errorf(diagnostics.ErrN001, s.GetToken(), "undeclared name %q", s.Name)
		return
	}

	var dst value
	switch sym.Kind {
	case symbols.StageOutSymbol, symbols.OutputSymbol:
		dst = b.symbolValue(sym, s.GetToken())
	case symbols.CellPinSymbol:
		if sym.Dir != graph.DirIn {
			b.errorf(diagnostics.ErrN004, s.GetToken(), "%q is a cell output and cannot be assigned", s.Name)
			return
		}
		dst = b.symbolValue(sym, s.GetToken())
	default:
		b.errorf(diagnostics.ErrN004, s.GetToken(), "%q is not an assignable destination; use let for new bindings", s.Name)
		return
	}

	src := b.lower(s.Value)
	if src.kind == valInvalid {
		return
	}
	b.route(src, dst, s.GetToken())
}

func (b *Builder) buildCell(s *ast.CellStatement) {
	n := b.g.AddNode(graph.KindCell, b.stage, s.Token)
	n.SetAttr(graph.AttrDelay, s.Delay)
	scalar, _ := graph.ScalarFromName(s.Shape.Scalar)
	shape := graph.Shape{Scalar: scalar, Width: int(s.Shape.Width)}
	n.In[0].Shape = shape
	n.Out[0].Shape = shape

	if !b.tbl.Define(symbols.Symbol{Name: s.Start, Kind: symbols.CellPinSymbol, Node: n.ID, Pin: 0, Dir: graph.DirOut}) {
		b.errorf(diagnostics.ErrN002, s.Token, "%q is already declared in this scope", s.Start)
	}
	if s.End == s.Start {
		b.errorf(diagnostics.ErrN002, s.Token, "cell pins need distinct names")
		return
	}
	if !b.tbl.Define(symbols.Symbol{Name: s.End, Kind: symbols.CellPinSymbol, Node: n.ID, Pin: 0, Dir: graph.DirIn}) {
		b.errorf(diagnostics.ErrN002, s.Token, "%q is already declared in this scope", s.End)
	}
}

func (b *Builder) buildBuffer(s *ast.BufferStatement) {
	idx, ok := b.g.BufferIndex(s.Name)
	if !ok {
		return // registration already reported a duplicate
	}
	buf := b.g.Buffers[idx]
	if buf.CapacityNode != graph.NoNode {
		return // duplicate declaration, reported during registration
	}

	capVal := b.lower(s.Capacity)
	src, ok := b.asSource(capVal)
	if !ok {
		return
	}
	buf.CapacityNode = src.node
}

// externalInput returns the shared node reading external input port idx.
func (b *Builder) externalInput(idx int, tok token.Token) graph.NodeID {
	if id, ok := b.inputNodes[idx]; ok {
		return id
	}
	n := b.g.AddNode(graph.KindExternalInput, -1, tok)
	n.SetAttr(graph.AttrPort, int64(idx))
	n.Out[0].Shape = graph.Shape{Scalar: graph.ScalarF32, Width: b.g.Inputs[idx].Width}
	b.inputNodes[idx] = n.ID
	return n.ID
}

// externalOutput returns the shared node writing external output port idx.
func (b *Builder) externalOutput(idx int, tok token.Token) graph.NodeID {
	if id, ok := b.outputNodes[idx]; ok {
		return id
	}
	n := b.g.AddNode(graph.KindExternalOutput, -1, tok)
	n.SetAttr(graph.AttrPort, int64(idx))
	n.In[0].Shape = graph.Shape{Scalar: graph.ScalarF32, Width: b.g.Outputs[idx].Width}
	b.outputNodes[idx] = n.ID
	return n.ID
}

func (b *Builder) propertyNode(idx int, tok token.Token) graph.NodeID {
	if id, ok := b.propNodes[idx]; ok {
		return id
	}
	n := b.g.AddNode(graph.KindProperty, -1, tok)
	n.SetAttr(graph.AttrProp, int64(idx))
	// Properties are f64 semantically regardless of declared type.
	n.Out[0].Shape = graph.Shape{Scalar: graph.ScalarF64, Width: 1}
	b.propNodes[idx] = n.ID
	return n.ID
}
