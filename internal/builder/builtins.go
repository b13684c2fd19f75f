package builder

import (
	"fmt"

	"github.com/synthizer/waveling/internal/ast"
	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/graph"
	"github.com/synthizer/waveling/internal/token"
)

// builtinEntry is one tier-1 name. Nullary entries materialize a node the
// moment they are referenced; the rest wait for a call or a routing
// destination position.
type builtinEntry struct {
	name    string
	nullary bool
	build   func(b *Builder, tok token.Token, args []value) value
}

// mathArity gives the input count per math function.
var mathArity = map[string]int{
	"sin": 1, "cos": 1, "tan": 1,
	"asin": 1, "acos": 1, "atan": 1,
	"exp": 1, "log": 1, "sqrt": 1,
	"abs": 1, "floor": 1, "ceil": 1,
	"min": 2, "max": 2, "pow": 2, "atan2": 2,
	"clamp": 3,
}

// biquadModes are the filter designers reachable as biquad.<mode>.
var biquadModes = map[string]bool{
	"lowpass":  true,
	"highpass": true,
	"bandpass": true,
	"notch":    true,
}

var builtins map[string]builtinEntry

func init() {
	builtins = map[string]builtinEntry{}

	for _, cast := range []string{"i32", "i64", "f32", "f64", "bool"} {
		target := cast
		builtins[target] = builtinEntry{
			name: target,
			build: func(b *Builder, tok token.Token, args []value) value {
				n := b.g.AddNode(graph.KindCast, b.stage, tok)
				n.SetAttr(graph.AttrCastTo, target)
				return b.routeArgs(n, tok, args)
			},
		}
	}

	for fn, arity := range mathArity {
		fn, arity := fn, arity
		builtins[fn] = builtinEntry{
			name: fn,
			build: func(b *Builder, tok token.Token, args []value) value {
				n := b.g.AddNode(graph.KindMath, b.stage, tok)
				n.SetAttr(graph.AttrFn, fn)
				for i := 0; i < arity; i++ {
					n.In = append(n.In, graph.Pin{})
				}
				if len(args) > arity {
					b.errorf(diagnostics.ErrV002, tok, "%s takes %d argument(s), got %d", fn, arity, len(args))
					return invalid()
				}
				return b.routeArgs(n, tok, args)
			},
		}
	}

	for name, val := range map[string]float64{
		"pi":  3.141592653589793,
		"e":   2.718281828459045,
		"tau": 6.283185307179586,
	} {
		val := val
		builtins[name] = builtinEntry{
			name:    name,
			nullary: true,
			build: func(b *Builder, tok token.Token, args []value) value {
				n := b.g.AddNode(graph.KindConst, b.stage, tok)
				n.Value = graph.NewFloatConstant(graph.ScalarF64, val)
				return nodeValue(n, tok)
			},
		}
	}

	builtins["sr"] = builtinEntry{
		name:    "sr",
		nullary: true,
		build: func(b *Builder, tok token.Token, args []value) value {
			return nodeValue(b.g.AddNode(graph.KindSr, b.stage, tok), tok)
		},
	}
	builtins["clock"] = builtinEntry{
		name:    "clock",
		nullary: true,
		build: func(b *Builder, tok token.Token, args []value) value {
			return nodeValue(b.g.AddNode(graph.KindClock, b.stage, tok), tok)
		},
	}

	selectBuild := func(b *Builder, tok token.Token, args []value) value {
		n := b.g.AddNode(graph.KindSelect, b.stage, tok)
		return b.routeArgs(n, tok, args)
	}
	builtins["select"] = builtinEntry{name: "select", build: selectBuild}
	builtins["if"] = builtinEntry{name: "if", build: selectBuild}

	builtins["broadcast"] = builtinEntry{
		name: "broadcast",
		build: func(b *Builder, tok token.Token, args []value) value {
			n := b.g.AddNode(graph.KindBroadcast, b.stage, tok)
			return b.routeArgs(n, tok, args)
		},
	}
	builtins["truncate"] = builtinEntry{
		name: "truncate",
		build: func(b *Builder, tok token.Token, args []value) value {
			n := b.g.AddNode(graph.KindTruncate, b.stage, tok)
			return b.routeArgs(n, tok, args)
		},
	}
	builtins["merge"] = builtinEntry{
		name: "merge",
		build: func(b *Builder, tok token.Token, args []value) value {
			if len(args) == 0 {
				b.errorf(diagnostics.ErrV001, tok, "merge needs at least one input")
				return invalid()
			}
			n := b.g.AddNode(graph.KindMerge, b.stage, tok)
			for range args {
				n.In = append(n.In, graph.Pin{})
			}
			return b.routeArgs(n, tok, args)
		},
	}
	builtins["split"] = builtinEntry{name: "split", build: buildSplit}
	builtins["slice"] = builtinEntry{name: "slice", build: buildSlice}
	builtins["xoroshiro"] = builtinEntry{name: "xoroshiro", build: buildXoroshiro}
	builtins["delwrite"] = builtinEntry{name: "delwrite", build: buildDelWrite}
	builtins["delread"] = builtinEntry{name: "delread", build: buildDelRead}
	builtins["biquad"] = builtinEntry{
		name: "biquad",
		build: func(b *Builder, tok token.Token, args []value) value {
			b.errorf(diagnostics.ErrN003, tok, "biquad needs a designer: biquad.lowpass, biquad.highpass, biquad.bandpass, or biquad.notch")
			return invalid()
		},
	}
}

func buildSplit(b *Builder, tok token.Token, args []value) value {
	if len(args) < 2 {
		b.errorf(diagnostics.ErrV001, tok, "split needs an input and at least one width")
		return invalid()
	}
	n := b.g.AddNode(graph.KindSplit, b.stage, tok)
	var widths []int64
	for _, arg := range args[1:] {
		w, ok := b.constIntArg(arg)
		if !ok || w < 1 {
			b.errorf(diagnostics.ErrS005, tok, "split widths must be positive integer literals")
			return invalid()
		}
		widths = append(widths, w)
		n.Out = append(n.Out, graph.Pin{})
	}
	n.SetAttr("widths", widths)
	return b.routeArgs(n, tok, args[:1])
}

func buildSlice(b *Builder, tok token.Token, args []value) value {
	if len(args) < 2 || len(args) > 3 {
		b.errorf(diagnostics.ErrV001, tok, "slice takes an input and one or two channel indices")
		return invalid()
	}
	n := b.g.AddNode(graph.KindSlice, b.stage, tok)
	offset, ok := b.constIntArg(args[1])
	if !ok || offset < 0 {
		b.errorf(diagnostics.ErrS005, tok, "slice indices must be non-negative integer literals")
		return invalid()
	}
	n.SetAttr(graph.AttrOffset, offset)
	end := int64(-1)
	if len(args) == 3 {
		end, ok = b.constIntArg(args[2])
		if !ok || end <= offset {
			b.errorf(diagnostics.ErrS005, tok, "slice end must be an integer literal greater than the offset")
			return invalid()
		}
	}
	n.SetAttr(graph.AttrEnd, end)
	return b.routeArgs(n, tok, args[:1])
}

func buildXoroshiro(b *Builder, tok token.Token, args []value) value {
	if len(args) != 1 {
		b.errorf(diagnostics.ErrV001, tok, "xoroshiro takes exactly one seed")
		return invalid()
	}
	seed, ok := b.constIntArg(args[0])
	if !ok || seed < 1 {
		b.errorf(diagnostics.ErrV005, tok, "xoroshiro seed must be a positive integer literal")
		return invalid()
	}
	n := b.g.AddNode(graph.KindXoroshiro, b.stage, tok)
	n.SetAttr(graph.AttrSeed, seed)
	return nodeValue(n, tok)
}

func buildDelWrite(b *Builder, tok token.Token, args []value) value {
	if len(args) != 2 {
		b.errorf(diagnostics.ErrV001, tok, "delwrite takes a buffer and a value")
		return invalid()
	}
	idx, ok := b.bufferArg(args[0])
	if !ok {
		return invalid()
	}
	n := b.g.AddNode(graph.KindDelWrite, b.stage, tok)
	n.SetAttr(graph.AttrBuffer, int64(idx))
	return b.routeArgs(n, tok, args[1:])
}

func buildDelRead(b *Builder, tok token.Token, args []value) value {
	if len(args) != 2 {
		b.errorf(diagnostics.ErrV001, tok, "delread takes a buffer and a delay")
		return invalid()
	}
	idx, ok := b.bufferArg(args[0])
	if !ok {
		return invalid()
	}
	n := b.g.AddNode(graph.KindDelRead, b.stage, tok)
	n.SetAttr(graph.AttrBuffer, int64(idx))
	n.SetAttr(graph.AttrClamp, "capacity-1")
	return b.routeArgs(n, tok, args[1:])
}

// routeArgs wires call arguments into a node's input pins positionally and
// returns the node as a value.
func (b *Builder) routeArgs(n *graph.Node, tok token.Token, args []value) value {
	if len(args) > len(n.In) {
		b.errorf(diagnostics.ErrV002, tok, "%s takes at most %d argument(s), got %d", n.Kind, len(n.In), len(args))
		return invalid()
	}
	for i, arg := range args {
		src, ok := b.asSource(arg)
		if !ok {
			return invalid()
		}
		if _, err := b.g.Connect(src.node, src.pin, n.ID, i, arg.tok); err != nil {
			b.errorf(diagnostics.ErrN004, arg.tok, "%s", err.Error())
			return invalid()
		}
	}
	return nodeValue(n, tok)
}

// constIntArg extracts an integer literal argument. Builder lowering wraps
// literal arguments as pending literals precisely so attribute positions
// (seeds, widths, indices) never materialize const nodes.
func (b *Builder) constIntArg(v value) (int64, bool) {
	if v.kind == valLiteral {
		if lit, ok := v.lit.(*ast.IntegerLiteral); ok && (lit.Suffix == "" || lit.Suffix == "i32" || lit.Suffix == "i64") {
			return lit.Value, true
		}
	}
	return 0, false
}

func (b *Builder) bufferArg(v value) (int, bool) {
	if v.kind != valBuffer {
		b.errorf(diagnostics.ErrN004, v.tok, "expected a buffer name")
		return 0, false
	}
	return v.index, true
}

func (b *Builder) errorf(code diagnostics.ErrorCode, tok token.Token, format string, args ...any) {
	b.ctx.AddError(diagnostics.NewError(code, tok, fmt.Sprintf(format, args...)))
}
