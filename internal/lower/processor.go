package lower

import (
	"errors"

	"github.com/funvibe/alchemist/internal/diagnostics"
	"github.com/funvibe/alchemist/internal/pipeline"
	"github.com/funvibe/alchemist/internal/token"
)

// LowerProcessor runs the builder over the decoded unit.
type LowerProcessor struct{}

func (lp *LowerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.IR == nil {
		// A decode failure was already recorded; nothing to lower.
		return ctx
	}

	b := New(ctx.IR, ctx.Config)
	modules, err := b.BuildUnit()
	if err != nil {
		var diag *diagnostics.DiagnosticError
		if !errors.As(err, &diag) {
			diag = diagnostics.NewError(diagnostics.ErrL005,
				token.Span{File: ctx.FilePath}, err.Error())
		}
		if diag.Span.File == "" {
			diag.Span.File = ctx.FilePath
		}
		ctx.Errors = append(ctx.Errors, diag)
		return ctx
	}

	ctx.Lowered = modules
	ctx.ReviewNotes = append(ctx.ReviewNotes, b.Context().ReviewNotes...)
	return ctx
}
