package biogenesis

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"biogenesis/internal/visualizer"
)

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	base := t.TempDir()
	if opts.StoreKind == "" {
		opts.StoreKind = "memory"
	}
	if opts.ArtifactsDir == "" {
		opts.ArtifactsDir = filepath.Join(base, "artifacts")
	}
	if opts.ExportsDir == "" {
		opts.ExportsDir = filepath.Join(base, "exports")
	}

	client, err := New(opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestClientRunRunsAndExport(t *testing.T) {
	client := newTestClient(t, Options{})
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	summary, err := client.Run(context.Background(), RunRequest{
		Environment: "temperate",
		Population:  8,
		Generations: 2,
		Seed:        42,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if !strings.HasPrefix(summary.RunID, "temperate-") {
		t.Fatalf("unexpected run id: %s", summary.RunID)
	}
	if len(summary.BestByGeneration) != 2 {
		t.Fatalf("unexpected generation history length: %d", len(summary.BestByGeneration))
	}

	runs, err := client.Runs(context.Background(), RunsRequest{Limit: 5})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) == 0 || runs[0].RunID != summary.RunID {
		t.Fatalf("expected latest run %s in runs list: %+v", summary.RunID, runs)
	}
	if runs[0].Environment != "temperate" {
		t.Fatalf("unexpected environment in run item: %+v", runs[0])
	}

	lineage, err := client.Lineage(context.Background(), LineageRequest{RunID: summary.RunID, Limit: 20})
	if err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if len(lineage) == 0 {
		t.Fatal("expected non-empty lineage")
	}
	if lineage[0].Operation != "seed" {
		t.Fatalf("expected founders first in lineage: %+v", lineage[0])
	}
	history, err := client.FitnessHistory(context.Background(), FitnessHistoryRequest{RunID: summary.RunID, Limit: 10})
	if err != nil {
		t.Fatalf("fitness history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("unexpected fitness history length: %d", len(history))
	}
	diagnostics, err := client.Diagnostics(context.Background(), DiagnosticsRequest{RunID: summary.RunID, Limit: 10})
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if len(diagnostics) != 2 {
		t.Fatalf("unexpected diagnostics length: %d", len(diagnostics))
	}
	if diagnostics[0].Seeded != 8 {
		t.Fatalf("expected founding generation to record seeded count: %+v", diagnostics[0])
	}
	envSummary, err := client.EnvironmentSummary(context.Background(), "temperate")
	if err != nil {
		t.Fatalf("environment summary: %v", err)
	}
	if envSummary.Name != "temperate" || envSummary.BestFitness != summary.FinalBestFitness {
		t.Fatalf("unexpected environment summary: %+v", envSummary)
	}

	exported, err := client.Export(context.Background(), ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export latest: %v", err)
	}
	if exported.RunID != summary.RunID {
		t.Fatalf("exported run mismatch: got=%s want=%s", exported.RunID, summary.RunID)
	}

	for _, file := range []string{"config.json", "fitness_history.json", "lineage.json", "generation_diagnostics.json", "diagnostics.csv", "lineage.csv"} {
		if _, err := os.Stat(filepath.Join(exported.Directory, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}
}

func TestClientRunRequiresRegisteredEnvironment(t *testing.T) {
	client := newTestClient(t, Options{})
	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	_, err := client.Run(context.Background(), RunRequest{
		Environment: "abyss",
		Population:  4,
		Generations: 1,
	})
	if err == nil {
		t.Fatal("expected unregistered environment error")
	}
}

func TestClientRegisterEnvironmentDefaultsLoci(t *testing.T) {
	client := newTestClient(t, Options{})

	err := client.RegisterEnvironment(context.Background(), "reef", map[string]float64{
		"camouflage": 0.6,
		"buoyancy":   0.4,
	})
	if err != nil {
		t.Fatalf("register environment: %v", err)
	}

	envs, err := client.Environments(context.Background())
	if err != nil {
		t.Fatalf("environments: %v", err)
	}
	if len(envs) != 1 || envs[0] != "reef" {
		t.Fatalf("unexpected environments: %v", envs)
	}

	summary, err := client.Run(context.Background(), RunRequest{
		Environment: "reef",
		Population:  6,
		Generations: 1,
		Seed:        7,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, "config.json")); err != nil {
		t.Fatalf("expected run config artifact: %v", err)
	}
}

func TestClientRegisterEnvironmentValidation(t *testing.T) {
	client := newTestClient(t, Options{})

	if err := client.RegisterEnvironment(context.Background(), "", map[string]float64{"height": 0.5}); err == nil {
		t.Fatal("expected name validation error")
	}
	if err := client.RegisterEnvironment(context.Background(), "void", nil); err == nil {
		t.Fatal("expected factor validation error")
	}
}

func TestClientRunStopsAtFitnessGoal(t *testing.T) {
	client := newTestClient(t, Options{})
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	// With a temperate eco value of 0.5 the proximity score is at least
	// 0.5 for any trait in [0, 1], so a 0.4 goal is met immediately.
	summary, err := client.Run(context.Background(), RunRequest{
		Environment: "temperate",
		Population:  6,
		Generations: 10,
		FitnessGoal: 0.4,
		Seed:        1,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !summary.GoalReached {
		t.Fatal("expected goal to be reached")
	}
	if len(summary.BestByGeneration) != 1 {
		t.Fatalf("expected run to stop after first generation: %d", len(summary.BestByGeneration))
	}
}

func TestClientRunNotifiesVisualizer(t *testing.T) {
	recorder := &visualizer.Recorder{}
	client := newTestClient(t, Options{Visualizer: recorder})
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err := client.Run(context.Background(), RunRequest{
		Environment: "temperate",
		Population:  4,
		Generations: 2,
		Seed:        3,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if recorder.Count(visualizer.EventCreate) == 0 {
		t.Fatal("expected avatar create events")
	}
	if recorder.Count(visualizer.EventUpdate) == 0 {
		t.Fatal("expected avatar update events")
	}
}

func TestClientQueryRequestValidation(t *testing.T) {
	client := newTestClient(t, Options{})

	if _, err := client.Lineage(context.Background(), LineageRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected run id / latest conflict error")
	}
	if _, err := client.FitnessHistory(context.Background(), FitnessHistoryRequest{RunID: "x", Limit: -1}); err == nil {
		t.Fatal("expected limit validation error")
	}
	if _, err := client.Diagnostics(context.Background(), DiagnosticsRequest{}); err == nil {
		t.Fatal("expected missing run id error")
	}
	if _, err := client.Export(context.Background(), ExportRequest{}); err == nil {
		t.Fatal("expected export selector error")
	}
	if _, err := client.Export(context.Background(), ExportRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected export conflict error")
	}
}

func TestClientRunsLimit(t *testing.T) {
	client := newTestClient(t, Options{})
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	for seed := int64(0); seed < 3; seed++ {
		if _, err := client.Run(context.Background(), RunRequest{
			Environment: "wetland",
			Population:  4,
			Generations: 1,
			Seed:        seed,
		}); err != nil {
			t.Fatalf("run %d: %v", seed, err)
		}
	}

	runs, err := client.Runs(context.Background(), RunsRequest{Limit: 2})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("unexpected runs length: %d", len(runs))
	}
}
