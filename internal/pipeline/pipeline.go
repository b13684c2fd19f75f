package pipeline

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

// Processor is one compilation pass: it reads and extends the shared
// context. Passes that depend on a broken invariant return the context
// untouched; independent passes keep running so one compile surfaces as
// many diagnostics as possible.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		// Continue on errors to collect diagnostics from all stages.
	}
	return ctx
}
