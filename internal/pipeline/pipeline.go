// Package pipeline wires the preprocess/lex/parse/check stages together as
// a sequence of Processors running over a shared PipelineContext, the same
// shape the host toolchain (CLI, cache, gRPC service) drives a compilation
// through.
package pipeline

// Processor transforms a PipelineContext, producing the next stage's
// inputs from the previous stage's outputs.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline is an ordered sequence of Processors.
type Pipeline struct {
	processors []Processor
}

// New builds a Pipeline from processors, run in order.
func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes every stage in order, always continuing past a stage that
// recorded a diagnostic so later stages can still contribute their own
// (e.g. a cache layer wants both parse and semantic diagnostics even when
// parsing already failed).
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	return ctx
}
