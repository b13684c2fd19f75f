package builder

import (
	"github.com/synthizer/waveling/internal/pipeline"
)

type BuilderProcessor struct{}

func (bp *BuilderProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.AstRoot == nil || ctx.HasErrors() {
		// Lowering a broken tree produces cascades, not new information.
		return ctx
	}

	b := New(ctx)
	ctx.Graph = b.Build(ctx.AstRoot)
	return ctx
}
