package parser_test

import (
	"strings"
	"testing"

	"github.com/synthizer/waveling/internal/ast"
	"github.com/synthizer/waveling/internal/lexer"
	"github.com/synthizer/waveling/internal/parser"
	"github.com/synthizer/waveling/internal/pipeline"
)

func parse(t *testing.T, input string) (*ast.Program, *pipeline.PipelineContext) {
	t.Helper()
	ctx := pipeline.NewPipelineContext(input, "test.wave")
	ctx = (&lexer.LexerProcessor{}).Process(ctx)
	ctx = (&parser.ParserProcessor{}).Process(ctx)
	return ctx.AstRoot, ctx
}

func parseOK(t *testing.T, input string) *ast.Program {
	t.Helper()
	prog, ctx := parse(t, input)
	if len(ctx.Errors) > 0 {
		var msgs []string
		for _, err := range ctx.Errors {
			msgs = append(msgs, err.Error())
		}
		t.Fatalf("parsing failed with errors:\n%s", strings.Join(msgs, "\n"))
	}
	return prog
}

const minimalExternal = `external { sr: 48000, block_size: 64, inputs: [ { name: in, width: 1 } ], outputs: [ { name: out, width: 1 } ] }`

func wrap(body string) string {
	return "program test;\n" + minimalExternal + "\nstage main() {\n" + body + "\n}"
}

func TestProgramStructure(t *testing.T) {
	prog := parseOK(t, wrap("in -> out;"))

	if prog.Name != "test" {
		t.Errorf("program name %q, want test", prog.Name)
	}
	if prog.External.SampleRate != 48000 || prog.External.BlockSize != 64 {
		t.Errorf("external sr=%d block=%d", prog.External.SampleRate, prog.External.BlockSize)
	}
	if len(prog.External.Inputs) != 1 || prog.External.Inputs[0].Name != "in" {
		t.Error("inputs not parsed")
	}
	if len(prog.Stages) != 1 || prog.Stages[0].Name != "main" {
		t.Error("stage not parsed")
	}
}

func TestExternalProperties(t *testing.T) {
	prog := parseOK(t, `program p;
external {
  sr: 44100,
  block_size: 256,
  inputs: [],
  outputs: [],
  properties: [ { name: cutoff, type: f32, rate: s }, { name: gain } ]
}
stage main() { 1 -> f32; }`)

	props := prog.External.Properties
	if len(props) != 2 {
		t.Fatalf("want 2 properties, got %d", len(props))
	}
	if props[0].Name != "cutoff" || props[0].Type != "f32" || props[0].Rate != "s" {
		t.Errorf("first property parsed as %+v", props[0])
	}
	// Defaults: type f64, rate b.
	if props[1].Type != "f64" || props[1].Rate != "b" {
		t.Errorf("property defaults are %q/%q, want f64/b", props[1].Type, props[1].Rate)
	}
}

func TestStageOutputDecls(t *testing.T) {
	prog := parseOK(t, `program p;
`+minimalExternal+`
stage gen(sig = f32(2), trig = bool(1)) { sig = in; trig = in > in; }`)

	outs := prog.Stages[0].Outputs
	if len(outs) != 2 {
		t.Fatalf("want 2 declared outputs, got %d", len(outs))
	}
	if outs[0].Name != "sig" || outs[0].Shape.Scalar != "f32" || outs[0].Shape.Width != 2 {
		t.Errorf("first output parsed as %+v", outs[0])
	}
	if outs[1].Name != "trig" || outs[1].Shape.Scalar != "bool" {
		t.Errorf("second output parsed as %+v", outs[1])
	}
}

func TestPrecedence(t *testing.T) {
	// a + b * c -> out must parse as (a + (b * c)) -> out.
	prog := parseOK(t, wrap("in + in * in -> out;"))

	stmt := prog.Stages[0].Body[0].(*ast.ExpressionStatement)
	route := stmt.Value.(*ast.InfixExpression)
	if route.Operator != "->" {
		t.Fatalf("root operator %q, want ->", route.Operator)
	}
	sum := route.Left.(*ast.InfixExpression)
	if sum.Operator != "+" {
		t.Fatalf("left of route is %q, want +", sum.Operator)
	}
	if mul := sum.Right.(*ast.InfixExpression); mul.Operator != "*" {
		t.Fatalf("right of + is %q, want *", mul.Operator)
	}
}

func TestRouteTighterThanReverseRoute(t *testing.T) {
	// x <- a -> b parses as x <- (a -> b).
	prog := parseOK(t, wrap("out <- in -> sin;"))

	stmt := prog.Stages[0].Body[0].(*ast.ExpressionStatement)
	rev := stmt.Value.(*ast.InfixExpression)
	if rev.Operator != "<-" {
		t.Fatalf("root operator %q, want <-", rev.Operator)
	}
	if fwd := rev.Right.(*ast.InfixExpression); fwd.Operator != "->" {
		t.Fatalf("right of <- is %q, want ->", fwd.Operator)
	}
}

func TestCommaStacksBelowRoute(t *testing.T) {
	// a, b -> out parses as (a, b) -> out.
	prog := parseOK(t, wrap("in, in -> out;"))

	stmt := prog.Stages[0].Body[0].(*ast.ExpressionStatement)
	route := stmt.Value.(*ast.InfixExpression)
	if route.Operator != "->" {
		t.Fatalf("root operator %q, want ->", route.Operator)
	}
	if stack := route.Left.(*ast.InfixExpression); stack.Operator != "," {
		t.Fatalf("left of route is %q, want ,", stack.Operator)
	}
}

func TestStatements(t *testing.T) {
	prog := parseOK(t, wrap(`let x = in * 2f32;
x = in;
cell (prev, nxt): f32(1);
cell(4) (p2, n2): i64(2);
buffer echo(128): f32(1);
sin(x);`))

	body := prog.Stages[0].Body
	if len(body) != 6 {
		t.Fatalf("want 6 statements, got %d", len(body))
	}

	if let := body[0].(*ast.LetStatement); let.Name != "x" {
		t.Errorf("let name %q", let.Name)
	}
	if assign := body[1].(*ast.AssignStatement); assign.Name != "x" {
		t.Errorf("assign name %q", assign.Name)
	}
	cell := body[2].(*ast.CellStatement)
	if cell.Delay != 1 || cell.Start != "prev" || cell.End != "nxt" {
		t.Errorf("cell parsed as %+v", cell)
	}
	cell2 := body[3].(*ast.CellStatement)
	if cell2.Delay != 4 || cell2.Shape.Scalar != "i64" || cell2.Shape.Width != 2 {
		t.Errorf("delayed cell parsed as %+v", cell2)
	}
	buf := body[4].(*ast.BufferStatement)
	if buf.Name != "echo" || buf.Shape.Scalar != "f32" {
		t.Errorf("buffer parsed as %+v", buf)
	}
	if _, ok := body[5].(*ast.ExpressionStatement); !ok {
		t.Error("bare call did not parse as an expression statement")
	}
}

func TestBundleLiteral(t *testing.T) {
	prog := parseOK(t, wrap("{ in, frequency: 440f32, q: 0.7f32 } -> biquad.lowpass;"))

	stmt := prog.Stages[0].Body[0].(*ast.ExpressionStatement)
	route := stmt.Value.(*ast.InfixExpression)
	bundle := route.Left.(*ast.BundleLiteral)
	if len(bundle.Entries) != 3 {
		t.Fatalf("want 3 bundle entries, got %d", len(bundle.Entries))
	}
	if bundle.Entries[0].Name != "" {
		t.Error("first entry should be positional")
	}
	if bundle.Entries[1].Name != "frequency" || bundle.Entries[2].Name != "q" {
		t.Error("named entries not parsed")
	}
	if path := route.Right.(*ast.PathExpression); path.Member != "lowpass" {
		t.Errorf("path member %q, want lowpass", path.Member)
	}
}

func TestIndexAndCall(t *testing.T) {
	prog := parseOK(t, wrap("slice(input[0], 0, 1) -> out;"))

	stmt := prog.Stages[0].Body[0].(*ast.ExpressionStatement)
	route := stmt.Value.(*ast.InfixExpression)
	call := route.Left.(*ast.CallExpression)
	if callee := call.Callee.(*ast.Identifier); callee.Value != "slice" {
		t.Errorf("callee %q", callee.Value)
	}
	if len(call.Arguments) != 3 {
		t.Fatalf("want 3 call arguments, got %d", len(call.Arguments))
	}
	idx := call.Arguments[0].(*ast.IndexExpression)
	if name := idx.Left.(*ast.Identifier); name.Value != "input" {
		t.Errorf("indexed name %q", name.Value)
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"missing_program", minimalExternal + "\nstage main() { in -> out; }"},
		{"missing_external", "program p;\nstage main() { in -> out; }"},
		{"no_stages", "program p;\n" + minimalExternal},
		{"missing_semicolon", wrap("in -> out")},
		{"bad_shape", wrap("cell (a, b): q7(1);")},
		{"cell_zero", wrap("cell(0) (a, b): f32(1);")},
		{"unterminated_stage", "program p;\n" + minimalExternal + "\nstage main() { in -> out;"},
		{"bad_external_value", "program p;\nexternal { sr: [], block_size: 64 }\nstage main() { 1 -> f32; }"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, ctx := parse(t, tc.input)
			if len(ctx.Errors) == 0 {
				t.Fatal("expected parse errors")
			}
		})
	}
}
