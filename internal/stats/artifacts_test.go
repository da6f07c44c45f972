package stats

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"biogenesis/internal/model"
)

func TestSummarize(t *testing.T) {
	fitnesses := []float64{0.2, 0.4, 0.9}
	diagnostics := Summarize(3, fitnesses, GenerationCounts{Survivors: 1, Casualties: 2})

	if diagnostics.Generation != 3 {
		t.Fatalf("unexpected generation: %d", diagnostics.Generation)
	}
	if diagnostics.Population != 3 || diagnostics.Survivors != 1 || diagnostics.Casualties != 2 {
		t.Fatalf("unexpected counts: %+v", diagnostics)
	}
	if diagnostics.BestFitness != 0.9 || diagnostics.MinFitness != 0.2 {
		t.Fatalf("unexpected extremes: %+v", diagnostics)
	}
	if math.Abs(diagnostics.MeanFitness-0.5) > 1e-12 {
		t.Fatalf("unexpected mean: %f", diagnostics.MeanFitness)
	}
	if diagnostics.StdDev <= 0 {
		t.Fatalf("expected positive std dev, got %f", diagnostics.StdDev)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	diagnostics := Summarize(1, nil, GenerationCounts{})
	if diagnostics.Population != 0 || diagnostics.BestFitness != 0 || diagnostics.MeanFitness != 0 {
		t.Fatalf("expected zeroed diagnostics, got %+v", diagnostics)
	}
}

func TestBestByGeneration(t *testing.T) {
	diagnostics := []model.GenerationDiagnostics{
		{Generation: 1, BestFitness: 0.5},
		{Generation: 2, BestFitness: 0.7},
	}
	series := BestByGeneration(diagnostics)
	if len(series) != 2 || series[0] != 0.5 || series[1] != 0.7 {
		t.Fatalf("unexpected series: %+v", series)
	}
}

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	runID := "run-123"
	artifacts := RunArtifacts{
		Config: RunConfig{
			RunID:          runID,
			Environment:    "temperate",
			PopulationSize: 4,
			Generations:    3,
			BroodSize:      2,
			Seed:           1,
		},
		BestByGeneration: []float64{0.5, 0.6, 0.7},
		GenerationDiagnostics: []model.GenerationDiagnostics{
			{Generation: 0, BestFitness: 0.5, MeanFitness: 0.4, Population: 4, Survivors: 2, Casualties: 2},
			{Generation: 1, BestFitness: 0.6, MeanFitness: 0.5, Population: 4, Survivors: 3, Casualties: 1},
		},
		FinalBestFitness: 0.7,
		Lineage: []model.LineageRecord{{
			OrganismID: "o1",
			ParentID:   "",
			Generation: 0,
			Operation:  "seed",
		}},
	}

	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	for _, file := range []string{"config.json", "fitness_history.json", "lineage.json", "generation_diagnostics.json", "diagnostics.csv", "lineage.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	rows, ok, err := ReadDiagnosticsCSV(baseDir, runID)
	if err != nil {
		t.Fatalf("read diagnostics csv: %v", err)
	}
	if !ok {
		t.Fatal("expected diagnostics csv")
	}
	if len(rows) != 2 || rows[1].Survivors != 3 {
		t.Fatalf("unexpected diagnostics rows: %+v", rows)
	}

	exportedDir, err := ExportRunArtifacts(baseDir, runID, outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}

	for _, file := range []string{"config.json", "fitness_history.json", "lineage.json", "generation_diagnostics.json", "diagnostics.csv", "lineage.csv"} {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	_, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{})
	if err == nil {
		t.Fatal("expected missing run id error")
	}
}

func TestRunIndexAppendAndList(t *testing.T) {
	baseDir := t.TempDir()

	first := RunIndexEntry{RunID: "run-1", Environment: "temperate", FinalBestFitness: 0.6, CreatedAtUTC: "2026-01-01T00:00:00Z"}
	second := RunIndexEntry{RunID: "run-2", Environment: "temperate", FinalBestFitness: 0.8, CreatedAtUTC: "2026-01-02T00:00:00Z"}

	if err := AppendRunIndex(baseDir, first); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := AppendRunIndex(baseDir, second); err != nil {
		t.Fatalf("append second: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("unexpected entry count: %d", len(entries))
	}
	if entries[0].RunID != "run-2" {
		t.Fatalf("expected most recent run first, got %s", entries[0].RunID)
	}

	first.FinalBestFitness = 0.9
	if err := AppendRunIndex(baseDir, first); err != nil {
		t.Fatalf("append replace: %v", err)
	}
	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index after replace: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("unexpected entry count after replace: %d", len(entries))
	}
	for _, entry := range entries {
		if entry.RunID == "run-1" && entry.FinalBestFitness != 0.9 {
			t.Fatalf("expected replaced entry, got %+v", entry)
		}
	}
}

func TestRunConfigRoundTrip(t *testing.T) {
	baseDir := t.TempDir()

	cfg := RunConfig{RunID: "run-7", Environment: "arid", PopulationSize: 8, Generations: 5, Seed: 42}
	if err := WriteRunConfig(baseDir, "run-7", cfg); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, ok, err := ReadRunConfig(baseDir, "run-7")
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !ok {
		t.Fatal("expected run config")
	}
	if loaded.Environment != "arid" || loaded.Seed != 42 {
		t.Fatalf("unexpected config: %+v", loaded)
	}

	if err := WriteRunConfig(baseDir, "run-7", RunConfig{RunID: "other"}); err == nil {
		t.Fatal("expected run id mismatch error")
	}
}
