package pipeline

import (
	"github.com/nerdalytics/tinywhale/internal/check"
	"github.com/nerdalytics/tinywhale/internal/diagnostics"
	"github.com/nerdalytics/tinywhale/internal/intern"
	"github.com/nerdalytics/tinywhale/internal/preprocess"
	"github.com/nerdalytics/tinywhale/internal/token"
	"github.com/nerdalytics/tinywhale/internal/tree"
)

// PipelineContext is the single value that flows through every stage of a
// compilation, accumulating outputs as each Processor runs. A stage reads
// what the previous one produced and either fills in its own fields or, on
// a structural failure, sets FatalErr and leaves the rest untouched.
type PipelineContext struct {
	FilePath string
	Source   string
	Mode     preprocess.Mode

	Normalized string

	Tokens  *token.Store
	Strings *intern.StringTable
	Floats  *intern.FloatTable

	Tree *tree.Store

	Check *check.Result

	// Diagnostics accumulates every soft (recoverable) diagnostic emitted
	// by any stage, in encounter order, per spec.md §5's ordering
	// guarantee. FatalErr is reserved for the one class of error that
	// aborts the pipeline outright: a structural preprocessor failure.
	Diagnostics *diagnostics.Bag
	FatalErr    error
}

// NewPipelineContext seeds a context from raw source text, ready for the
// first Processor in a Pipeline.
func NewPipelineContext(filePath, source string, mode preprocess.Mode) *PipelineContext {
	return &PipelineContext{
		FilePath:    filePath,
		Source:      source,
		Mode:        mode,
		Diagnostics: &diagnostics.Bag{},
	}
}

// Aborted reports whether a prior stage hit a structural failure that
// later stages cannot meaningfully run past.
func (c *PipelineContext) Aborted() bool {
	return c.FatalErr != nil
}

func (c *PipelineContext) absorb(other *diagnostics.Bag) {
	for _, d := range other.All() {
		c.Diagnostics.Add(d)
	}
}

// FatalDiagnostic renders FatalErr as a coded Diagnostic for display,
// mapping a preprocess.IndentationError's Reason to its TWLEX0xx code so
// a structural abort still surfaces through the same "[CODE] message"
// format as every recoverable diagnostic. Callers must check Aborted()
// first; it panics on a nil FatalErr.
func (c *PipelineContext) FatalDiagnostic() *diagnostics.Diagnostic {
	indentErr, ok := c.FatalErr.(*preprocess.IndentationError)
	if !ok {
		return diagnostics.New(diagnostics.CodeBadDedent, token.Token{}, "%s", c.FatalErr.Error())
	}
	tok := token.Token{Line: indentErr.Line, Column: indentErr.Column}
	return diagnostics.New(indentationCode(indentErr.Reason), tok, "%s", indentErr.Error())
}

func indentationCode(reason string) diagnostics.Code {
	switch reason {
	case "mixed tabs and spaces in indentation":
		return diagnostics.CodeMixedIndent
	case "file uses tab indentation; space found", "file uses space indentation; tab found":
		return diagnostics.CodeIndentMismatch
	case "indent increases by more than one level":
		return diagnostics.CodeIndentJump
	case "dedent does not align to an open indent level":
		return diagnostics.CodeBadDedent
	case "indentation is not a multiple of the established unit":
		return diagnostics.CodeNonUnitIndent
	default:
		return diagnostics.CodeBadDedent
	}
}
