package storage

import (
	"context"
	"sync"

	"biogenesis/internal/model"
)

type MemoryStore struct {
	mu           sync.RWMutex
	initialized  bool
	organisms    map[string]model.OrganismRecord
	colonies     map[string]model.ColonyRecord
	environments map[string]model.EnvironmentSummary
	history      map[string][]float64
	diagnostics  map[string][]model.GenerationDiagnostics
	lineage      map[string][]model.LineageRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.organisms = make(map[string]model.OrganismRecord)
	s.colonies = make(map[string]model.ColonyRecord)
	s.environments = make(map[string]model.EnvironmentSummary)
	s.history = make(map[string][]float64)
	s.diagnostics = make(map[string][]model.GenerationDiagnostics)
	s.lineage = make(map[string][]model.LineageRecord)
	return nil
}

func (s *MemoryStore) SaveOrganism(_ context.Context, organism model.OrganismRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.organisms[organism.ID] = organism
	return nil
}

func (s *MemoryStore) GetOrganism(_ context.Context, id string) (model.OrganismRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	organism, ok := s.organisms[id]
	return organism, ok, nil
}

func (s *MemoryStore) SaveColony(_ context.Context, colony model.ColonyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.colonies[colony.ID] = colony
	return nil
}

func (s *MemoryStore) GetColony(_ context.Context, id string) (model.ColonyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	colony, ok := s.colonies[id]
	return colony, ok, nil
}

func (s *MemoryStore) DeleteColony(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.colonies, id)
	return nil
}

func (s *MemoryStore) SaveEnvironmentSummary(_ context.Context, summary model.EnvironmentSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.environments[summary.Name] = summary
	return nil
}

func (s *MemoryStore) GetEnvironmentSummary(_ context.Context, name string) (model.EnvironmentSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.environments[name]
	return summary, ok, nil
}

func (s *MemoryStore) SaveFitnessHistory(_ context.Context, runID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := append([]float64(nil), history...)
	s.history[runID] = copied
	return nil
}

func (s *MemoryStore) GetFitnessHistory(_ context.Context, runID string) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	copied := append([]float64(nil), history...)
	return copied, true, nil
}

func (s *MemoryStore) SaveGenerationDiagnostics(_ context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	s.diagnostics[runID] = copied
	return nil
}

func (s *MemoryStore) GetGenerationDiagnostics(_ context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	diagnostics, ok := s.diagnostics[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	return copied, true, nil
}

func (s *MemoryStore) SaveLineage(_ context.Context, runID string, lineage []model.LineageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.LineageRecord, len(lineage))
	copy(copied, lineage)
	s.lineage[runID] = copied
	return nil
}

func (s *MemoryStore) GetLineage(_ context.Context, runID string) ([]model.LineageRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lineage, ok := s.lineage[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.LineageRecord, len(lineage))
	copy(copied, lineage)
	return copied, true, nil
}
