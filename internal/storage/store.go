package storage

import (
	"context"

	"biogenesis/internal/model"
)

// Store defines transaction-like persistence operations for core evolution entities.
type Store interface {
	Init(ctx context.Context) error
	SaveOrganism(ctx context.Context, organism model.OrganismRecord) error
	GetOrganism(ctx context.Context, id string) (model.OrganismRecord, bool, error)
	SaveColony(ctx context.Context, colony model.ColonyRecord) error
	GetColony(ctx context.Context, id string) (model.ColonyRecord, bool, error)
	SaveEnvironmentSummary(ctx context.Context, summary model.EnvironmentSummary) error
	GetEnvironmentSummary(ctx context.Context, name string) (model.EnvironmentSummary, bool, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
	SaveLineage(ctx context.Context, runID string, lineage []model.LineageRecord) error
	GetLineage(ctx context.Context, runID string) ([]model.LineageRecord, bool, error)
}
