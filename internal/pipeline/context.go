// Package pipeline wires the compilation stages of one unit: decode the
// front-end's IR dump, lower it to target modules, render the debug
// text. Each stage is a Processor over a shared PipelineContext.
package pipeline

import (
	"github.com/google/uuid"

	"github.com/funvibe/alchemist/internal/config"
	"github.com/funvibe/alchemist/internal/diagnostics"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
)

// Processor is one pipeline stage.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// PipelineContext carries one compilation unit through the stages.
type PipelineContext struct {
	// UnitID tags the unit across logs, caching and diagnostics.
	UnitID   uuid.UUID
	FilePath string
	Source   []byte
	Config   *config.Config

	IR      *ir.Module
	Lowered []*elixir.ModuleDef

	// Output is the rendered debug text of the lowered unit.
	Output string

	// ReviewNotes are non-fatal lowering oddities surfaced to the CLI.
	ReviewNotes []string

	Errors []*diagnostics.DiagnosticError
}

// NewContext creates the context for one unit with a fresh id.
func NewContext(filePath string, source []byte, cfg *config.Config) *PipelineContext {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &PipelineContext{
		UnitID:   uuid.New(),
		FilePath: filePath,
		Source:   source,
		Config:   cfg,
	}
}

// HasErrors reports whether any stage recorded a diagnostic.
func (ctx *PipelineContext) HasErrors() bool { return len(ctx.Errors) > 0 }
