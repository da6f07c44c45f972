//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"biogenesis/internal/model"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "biogenesis.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	organism := model.OrganismRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              "o1",
		Generation:      1,
		Fitness:         0.7,
		Traits:          map[string]float64{"height": 0.5},
	}
	if err := store.SaveOrganism(ctx, organism); err != nil {
		t.Fatalf("save organism: %v", err)
	}

	loadedOrganism, ok, err := store.GetOrganism(ctx, organism.ID)
	if err != nil {
		t.Fatalf("get organism: %v", err)
	}
	if !ok {
		t.Fatalf("expected organism %s", organism.ID)
	}
	if loadedOrganism.ID != organism.ID || loadedOrganism.Fitness != organism.Fitness {
		t.Fatalf("unexpected organism loaded: %+v", loadedOrganism)
	}

	colony := model.ColonyRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              "c1",
		Generation:      3,
		OrganismIDs:     []string{"o1", "o2"},
	}
	if err := store.SaveColony(ctx, colony); err != nil {
		t.Fatalf("save colony: %v", err)
	}

	loadedColony, ok, err := store.GetColony(ctx, colony.ID)
	if err != nil {
		t.Fatalf("get colony: %v", err)
	}
	if !ok {
		t.Fatalf("expected colony %s", colony.ID)
	}
	if loadedColony.ID != colony.ID || loadedColony.Generation != colony.Generation {
		t.Fatalf("unexpected colony loaded: %+v", loadedColony)
	}

	summary := model.EnvironmentSummary{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		Name:            "temperate",
		Description:     "mild single-factor environment",
		BestFitness:     0.95,
	}
	if err := store.SaveEnvironmentSummary(ctx, summary); err != nil {
		t.Fatalf("save environment summary: %v", err)
	}
	loadedSummary, ok, err := store.GetEnvironmentSummary(ctx, "temperate")
	if err != nil {
		t.Fatalf("get environment summary: %v", err)
	}
	if !ok {
		t.Fatal("expected environment summary temperate")
	}
	if loadedSummary.BestFitness != summary.BestFitness {
		t.Fatalf("unexpected environment summary loaded: %+v", loadedSummary)
	}

	history := []float64{0.5, 0.7, 0.9}
	if err := store.SaveFitnessHistory(ctx, "run-1", history); err != nil {
		t.Fatalf("save history: %v", err)
	}
	loadedHistory, ok, err := store.GetFitnessHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if !ok {
		t.Fatal("expected fitness history run-1")
	}
	if len(loadedHistory) != len(history) || loadedHistory[1] != history[1] {
		t.Fatalf("unexpected history loaded: %+v", loadedHistory)
	}

	diagnostics := []model.GenerationDiagnostics{
		{Generation: 1, BestFitness: 0.7, MeanFitness: 0.5, MinFitness: 0.1, Population: 10, Survivors: 6, Casualties: 4},
	}
	if err := store.SaveGenerationDiagnostics(ctx, "run-1", diagnostics); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	loadedDiagnostics, ok, err := store.GetGenerationDiagnostics(ctx, "run-1")
	if err != nil {
		t.Fatalf("get diagnostics: %v", err)
	}
	if !ok {
		t.Fatal("expected diagnostics run-1")
	}
	if len(loadedDiagnostics) != 1 || loadedDiagnostics[0].Generation != 1 {
		t.Fatalf("unexpected diagnostics loaded: %+v", loadedDiagnostics)
	}

	lineage := []model.LineageRecord{
		{
			VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
			OrganismID:      "o1",
			ParentID:        "",
			Generation:      0,
			Operation:       "seed",
		},
	}
	if err := store.SaveLineage(ctx, "run-1", lineage); err != nil {
		t.Fatalf("save lineage: %v", err)
	}
	loadedLineage, ok, err := store.GetLineage(ctx, "run-1")
	if err != nil {
		t.Fatalf("get lineage: %v", err)
	}
	if !ok {
		t.Fatal("expected lineage run-1")
	}
	if len(loadedLineage) != 1 || loadedLineage[0].OrganismID != "o1" {
		t.Fatalf("unexpected lineage loaded: %+v", loadedLineage)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "biogenesis.db")

	first := NewSQLiteStore(dbPath)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("first init: %v", err)
	}
	organism := model.OrganismRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              "persisted-organism",
	}
	if err := first.SaveOrganism(ctx, organism); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	second := NewSQLiteStore(dbPath)
	if err := second.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	t.Cleanup(func() {
		_ = second.Close()
	})

	loaded, ok, err := second.GetOrganism(ctx, organism.ID)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if !ok || loaded.ID != organism.ID {
		t.Fatalf("expected persisted organism, got ok=%t value=%+v", ok, loaded)
	}
}
