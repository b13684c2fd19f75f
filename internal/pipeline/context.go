package pipeline

import (
	"github.com/synthizer/waveling/internal/ast"
	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/graph"
	"github.com/synthizer/waveling/internal/ir"
	"github.com/synthizer/waveling/internal/token"
)

// PipelineContext is the shared state threaded through every pass of one
// compilation. Each pass owns it exclusively while running.
type PipelineContext struct {
	FilePath   string
	SourceCode string

	TokenStream *token.Stream
	AstRoot     *ast.Program
	Graph       *graph.Program
	IR          *ir.Document

	Errors []*diagnostics.DiagnosticError
}

func NewPipelineContext(source, filePath string) *PipelineContext {
	return &PipelineContext{SourceCode: source, FilePath: filePath}
}

// AddError appends a diagnostic, stamping the file path.
func (ctx *PipelineContext) AddError(err *diagnostics.DiagnosticError) {
	if err.File == "" {
		err.File = ctx.FilePath
	}
	ctx.Errors = append(ctx.Errors, err)
}

// HasErrors reports whether any error-severity diagnostic was collected.
func (ctx *PipelineContext) HasErrors() bool {
	return diagnostics.HasErrors(ctx.Errors)
}
