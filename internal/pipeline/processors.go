package pipeline

import (
	"github.com/funvibe/alchemist/internal/diagnostics"
	"github.com/funvibe/alchemist/internal/ir"
	"github.com/funvibe/alchemist/internal/prettyprinter"
	"github.com/funvibe/alchemist/internal/token"
)

// DecodeProcessor turns the front-end's IR dump into the typed module.
type DecodeProcessor struct{}

func (dp *DecodeProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if len(ctx.Source) == 0 {
		err := diagnostics.NewError(diagnostics.ErrD001,
			token.Span{File: ctx.FilePath}, "decode: empty input")
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}

	unit, err := ir.DecodeModule(ctx.Source)
	if err != nil {
		if err.Span.File == "" {
			err.Span.File = ctx.FilePath
		}
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.IR = unit
	return ctx
}

// RenderProcessor serializes the lowered modules to the debug text the
// CLI dumps and the cache fingerprints.
type RenderProcessor struct{}

func (rp *RenderProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Lowered == nil {
		return ctx
	}
	ctx.Output = prettyprinter.PrintModules(ctx.Lowered)
	return ctx
}
