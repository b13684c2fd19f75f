package infer

import (
	"github.com/synthizer/waveling/internal/pipeline"
)

type InferProcessor struct{}

func (ip *InferProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Graph == nil || ctx.HasErrors() {
		return ctx
	}

	New(ctx, ctx.Graph).Run()
	return ctx
}
