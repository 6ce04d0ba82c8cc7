// Package compiler is TinyWhale's single public pipeline entry point, per
// spec.md §6: source text and an options record in, a compile result or a
// typed CompileError out.
package compiler

import (
	"github.com/google/uuid"

	"github.com/nerdalytics/tinywhale/internal/config"
	"github.com/nerdalytics/tinywhale/internal/diagnostics"
	"github.com/nerdalytics/tinywhale/internal/pipeline"
	"github.com/nerdalytics/tinywhale/pkg/semir"
)

// Options is the recognized options record spec.md §6 describes:
// `filename?` for diagnostic rendering, `optimize?` passed through
// unchanged to the external emitter. Mode is TinyWhale's own addition
// (not named in spec.md, since the original language has no such
// knob) — it selects the indentation discipline a caller's
// config.ProjectConfig would otherwise supply.
type Options struct {
	FilePath string
	config.CompileOptions
}

// CompileError is the typed error a failed Compile returns, carrying the
// first formatted diagnostic in encounter order, per spec.md §7's
// "top-level entry surfaces the first error after pretty-formatting."
type CompileError struct {
	Diagnostic *diagnostics.Diagnostic
}

func (e *CompileError) Error() string {
	return e.Diagnostic.Error()
}

// CompilationContext is the per-call identity and diagnostic surface
// spec.md §5 describes ("the only shared state is the CompilationContext
// and its interners"). ID is a fresh uuid minted per Compile call; the
// gRPC service returns it as compilation_id. The cache keys its entries by
// a content hash, not by this ID.
type CompilationContext struct {
	id  uuid.UUID
	ctx *pipeline.PipelineContext
}

// ID returns the compilation's identity, minted once per Compile call.
func (c *CompilationContext) ID() uuid.UUID {
	return c.id
}

// SortedDiagnostics implements spec.md §5's "consumers must sort by
// (line, column) if positional order is required" as an explicit method,
// rather than leaving every caller to remember to call Bag.Sorted itself.
func (c *CompilationContext) SortedDiagnostics() []*diagnostics.Diagnostic {
	return c.ctx.Diagnostics.Sorted()
}

// Result is what a successful or partially-successful Compile call
// returns. Binary/text WASM output is not produced here — the encoder is
// explicitly out of scope per spec.md's overview ("a downstream emitter
// (out of scope) consumes SemIR") — so Result exposes the SemIR view that
// emitter would consume instead.
type Result struct {
	Valid    bool
	Warnings []*diagnostics.Diagnostic
	SemIR    *semir.View
	Context  *CompilationContext
}

// Compile runs the full tokenize -> parse -> check pipeline over source
// and returns a Result, or a *CompileError wrapping the first diagnostic
// when the compilation produced at least one error.
func Compile(source string, opts Options) (*Result, error) {
	pctx := pipeline.NewPipelineContext(opts.FilePath, source, opts.Mode)
	pctx = pipeline.Standard().Run(pctx)

	cc := &CompilationContext{id: uuid.New(), ctx: pctx}

	if pctx.Aborted() {
		return nil, &CompileError{Diagnostic: pctx.FatalDiagnostic()}
	}

	sorted := cc.SortedDiagnostics()
	if pctx.Diagnostics.HasErrors() {
		return nil, &CompileError{Diagnostic: firstError(sorted)}
	}

	return &Result{
		Valid:    true,
		Warnings: sorted,
		SemIR:    semir.Export(pctx.Check),
		Context:  cc,
	}, nil
}

func firstError(sorted []*diagnostics.Diagnostic) *diagnostics.Diagnostic {
	for _, d := range sorted {
		if d.Severity == diagnostics.SeverityError {
			return d
		}
	}
	return sorted[0]
}
