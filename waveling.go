// Package waveling compiles Waveling source text into the validated graph
// IR that backends consume. The compiler is synchronous and single-
// threaded; phases run in strict order over a shared context and no state
// survives a compilation.
package waveling

import (
	"github.com/synthizer/waveling/internal/builder"
	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/emitter"
	"github.com/synthizer/waveling/internal/folder"
	"github.com/synthizer/waveling/internal/infer"
	"github.com/synthizer/waveling/internal/ir"
	"github.com/synthizer/waveling/internal/lexer"
	"github.com/synthizer/waveling/internal/parser"
	"github.com/synthizer/waveling/internal/pipeline"
	"github.com/synthizer/waveling/internal/validator"
)

// Result is the outcome of one compilation. IR is nil when Failed.
type Result struct {
	IR          *ir.Document
	Diagnostics []*diagnostics.DiagnosticError
}

// Failed reports whether any error-severity diagnostic was produced.
func (r *Result) Failed() bool {
	return diagnostics.HasErrors(r.Diagnostics)
}

// Compile runs the full front-end and middle-end over one source text.
func Compile(source, filePath string) *Result {
	ctx := pipeline.NewPipelineContext(source, filePath)

	pipe := pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&builder.BuilderProcessor{},
		&infer.InferProcessor{},
		&validator.ValidatorProcessor{},
		&folder.FolderProcessor{},
		&emitter.EmitterProcessor{},
	)
	ctx = pipe.Run(ctx)

	res := &Result{Diagnostics: ctx.Errors}
	if !res.Failed() {
		res.IR = ctx.IR
	}
	return res
}
