package symbols_test

import (
	"testing"

	"github.com/synthizer/waveling/internal/symbols"
)

func TestShadowingWalksInnerToOuter(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.Define(symbols.Symbol{Name: "sin", Kind: symbols.BuiltinSymbol, Builtin: "sin"})

	tbl.Push(symbols.ScopeProgram)
	tbl.Define(symbols.Symbol{Name: "sin", Kind: symbols.InputSymbol, Index: 3})

	sym, ok := tbl.Resolve("sin")
	if !ok || sym.Kind != symbols.InputSymbol {
		t.Fatal("a program-scope name must shadow the built-in")
	}

	tbl.Push(symbols.ScopeStage)
	tbl.Define(symbols.Symbol{Name: "sin", Kind: symbols.LetSymbol, Node: 7})
	sym, _ = tbl.Resolve("sin")
	if sym.Kind != symbols.LetSymbol {
		t.Fatal("a stage let must shadow the program scope")
	}

	tbl.Pop()
	sym, _ = tbl.Resolve("sin")
	if sym.Kind != symbols.InputSymbol {
		t.Fatal("popping the stage scope must restore the outer binding")
	}
}

func TestRedeclarationInSameScopeFails(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.Push(symbols.ScopeStage)

	if !tbl.Define(symbols.Symbol{Name: "x", Kind: symbols.LetSymbol}) {
		t.Fatal("first definition must succeed")
	}
	if tbl.Define(symbols.Symbol{Name: "x", Kind: symbols.LetSymbol}) {
		t.Fatal("redefinition in the same scope must fail")
	}
	if !tbl.DefinedInCurrent("x") {
		t.Error("DefinedInCurrent should see the binding")
	}
}
