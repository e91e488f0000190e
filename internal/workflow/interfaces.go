// Package workflow composes the pipeline: outcome loading, reference
// retrieval, schema synthesis, serialization, query planning, artifact
// writing and code generation.
// Related: internal/workflow/driver.go, internal/workflow/factory.go
package workflow

import (
	"context"

	"github.com/ariel-frischer/outcomegen/internal/codegen"
	"github.com/ariel-frischer/outcomegen/internal/generate"
	"github.com/ariel-frischer/outcomegen/internal/outcome"
	"github.com/ariel-frischer/outcomegen/internal/refdocs"
)

// Retriever fetches reference documentation for ontology hints.
//
// Primary implementation: *refdocs.Retriever
type Retriever interface {
	Retrieve(ctx context.Context, hints []outcome.OntologyHint) refdocs.Results
}

// Codegen runs lint, generation and the smoke test against a written schema.
//
// Primary implementation: *codegen.Orchestrator
type Codegen interface {
	Run(ctx context.Context, schemaPath, outputPath string) (*codegen.Report, error)
}

// Dependencies are the collaborators a Driver uses. Nil fields are built from
// the configuration by NewDriver.
type Dependencies struct {
	Backend   generate.Backend
	Retriever Retriever
	Codegen   Codegen
}
