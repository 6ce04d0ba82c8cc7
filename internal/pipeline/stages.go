package pipeline

import (
	"github.com/nerdalytics/tinywhale/internal/check"
	"github.com/nerdalytics/tinywhale/internal/diagnostics"
	"github.com/nerdalytics/tinywhale/internal/intern"
	"github.com/nerdalytics/tinywhale/internal/lexer"
	"github.com/nerdalytics/tinywhale/internal/parser"
	"github.com/nerdalytics/tinywhale/internal/preprocess"
	"github.com/nerdalytics/tinywhale/internal/token"
)

// PreprocessProcessor normalizes raw source text into the marker-laden
// stream the tokenizer expects. A preprocessor error is structural per
// spec.md §7 ("only preprocess errors abort the pipeline") and short-
// circuits every later stage.
type PreprocessProcessor struct{}

func (PreprocessProcessor) Process(ctx *PipelineContext) *PipelineContext {
	normalized, err := preprocess.Run(ctx.Source, ctx.Mode)
	if err != nil {
		ctx.FatalErr = err
		return ctx
	}
	ctx.Normalized = normalized
	return ctx
}

// LexProcessor tokenizes the normalized stream. Unlike preprocess errors,
// a bad character is recoverable: it is recorded as a diagnostic and
// scanning continues, the same fault-tolerant shape the checker uses.
type LexProcessor struct{}

func (LexProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Aborted() {
		return ctx
	}
	ctx.Strings = intern.NewStringTable()
	ctx.Floats = intern.NewFloatTable()
	tokens, lexErrs := lexer.Tokenize(ctx.Normalized, ctx.Strings, ctx.Floats)
	ctx.Tokens = tokens
	for _, e := range lexErrs {
		ctx.Diagnostics.Add(diagnostics.New(diagnostics.CodeUnexpectedChar, token.Token{Line: e.Line, Column: e.Column}, "%s", e.Error()))
	}
	return ctx
}

// ParseProcessor builds the postorder parse tree from the token stream.
type ParseProcessor struct{}

func (ParseProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Aborted() || ctx.Tokens == nil {
		return ctx
	}
	tr, parseDiags := parser.Parse(ctx.Tokens)
	ctx.Tree = tr
	ctx.absorb(parseDiags)
	return ctx
}

// CheckProcessor runs semantic checking over the parse tree, producing the
// four SemIR stores and whatever diagnostics the checker accumulated.
type CheckProcessor struct{}

func (CheckProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Aborted() || ctx.Tree == nil {
		return ctx
	}
	result, checkDiags := check.Check(ctx.Tree, ctx.Tokens, ctx.Strings, ctx.Floats)
	ctx.Check = result
	ctx.absorb(checkDiags)
	return ctx
}

// Standard is the full tokenize -> parse -> check pipeline spec.md §5
// names as the compiler's sequential phase order.
func Standard() *Pipeline {
	return New(PreprocessProcessor{}, LexProcessor{}, ParseProcessor{}, CheckProcessor{})
}
