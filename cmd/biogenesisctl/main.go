package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"biogenesis/internal/metrics"
	"biogenesis/internal/storage"
	"biogenesis/internal/visualizer"
	bioapi "biogenesis/pkg/biogenesis"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "start":
		return runStart(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "lineage":
		return runLineage(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "environments":
		return runEnvironments(ctx, args[1:])
	case "environment-summary":
		return runEnvironmentSummary(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: biogenesisctl <init|start|run|runs|fitness|diagnostics|lineage|export|environments|environment-summary> [flags]", msg)
}

// loadCommandConfig parses the shared -config/-store/-db-path flags and
// folds explicitly set flags over the loaded configuration.
func loadCommandConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	configPath := fs.String("config", "", "optional YAML config path")
	storeKind := fs.String("store", "", "store backend: memory|sqlite (default from config)")
	dbPath := fs.String("db-path", "", "sqlite database path (default from config)")
	artifactsDir := fs.String("artifacts-dir", "", "run artifacts directory (default from config)")
	exportsDir := fs.String("exports-dir", "", "exports directory (default from config)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return nil, err
	}
	if *storeKind != "" {
		cfg.Store.Kind = *storeKind
	}
	if *dbPath != "" {
		cfg.Store.DBPath = *dbPath
	}
	if *artifactsDir != "" {
		cfg.Dirs.Artifacts = *artifactsDir
	}
	if *exportsDir != "" {
		cfg.Dirs.Exports = *exportsDir
	}
	if cfg.Store.Kind == "" {
		cfg.Store.Kind = storage.DefaultStoreKind()
	}
	return cfg, nil
}

func newClient(cfg *Config, vis visualizer.Visualizer, collector *metrics.Collector) (*bioapi.Client, error) {
	return bioapi.New(bioapi.Options{
		StoreKind:    cfg.Store.Kind,
		DBPath:       cfg.Store.DBPath,
		ArtifactsDir: cfg.Dirs.Artifacts,
		ExportsDir:   cfg.Dirs.Exports,
		Metrics:      collector,
		Visualizer:   vis,
	})
}

func registerConfiguredEnvironments(ctx context.Context, client *bioapi.Client, cfg *Config) error {
	for _, env := range cfg.Environments {
		if err := client.RegisterEnvironment(ctx, env.Name, env.Factors); err != nil {
			return fmt.Errorf("register environment %s: %w", env.Name, err)
		}
	}
	return nil
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	cfg, err := loadCommandConfig(fs, args)
	if err != nil {
		return err
	}

	client, err := newClient(cfg, nil, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s\n", cfg.Store.Kind)
	return nil
}

func runStart(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	cfg, err := loadCommandConfig(fs, args)
	if err != nil {
		return err
	}

	client, err := newClient(cfg, nil, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := registerConfiguredEnvironments(ctx, client, cfg); err != nil {
		return err
	}
	envs, err := client.Environments(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("started store=%s environments=%v\n", cfg.Store.Kind, envs)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	envName := fs.String("env", "", "environment name (default from config)")
	population := fs.Int("pop", 0, "population size (default from config)")
	generations := fs.Int("gens", 0, "generation count (default from config)")
	broodSize := fs.Int("brood", 0, "offspring per surviving organism (default from config)")
	sequenceLength := fs.Int("seq-len", 0, "bases per allele sequence (default from config)")
	sexual := fs.Bool("sexual", false, "use a sexual genome")
	fitnessGoal := fs.Float64("fitness-goal", -1, "early-stop best fitness goal (0 disables, default from config)")
	seed := fs.Int64("seed", -1, "rng seed (default from config)")
	loci := fs.String("loci", "", "comma-separated locus names (default: environment factors)")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address during the run")
	watchAddr := fs.String("watch-addr", "", "serve avatar events over WebSocket on this address during the run")
	cfg, err := loadCommandConfig(fs, args)
	if err != nil {
		return err
	}

	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})
	if setFlags["env"] {
		cfg.Run.Environment = *envName
	}
	if setFlags["pop"] {
		cfg.Run.Population = *population
	}
	if setFlags["gens"] {
		cfg.Run.Generations = *generations
	}
	if setFlags["brood"] {
		cfg.Run.BroodSize = *broodSize
	}
	if setFlags["seq-len"] {
		cfg.Run.SequenceLength = *sequenceLength
	}
	if setFlags["sexual"] {
		cfg.Run.Sexual = *sexual
	}
	if setFlags["fitness-goal"] {
		cfg.Run.FitnessGoal = *fitnessGoal
	}
	if setFlags["seed"] {
		cfg.Run.Seed = *seed
	}
	if setFlags["loci"] {
		cfg.Run.Loci = splitList(*loci)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var vis visualizer.Visualizer
	if *watchAddr != "" {
		hub := visualizer.NewWebSocketHub()
		if err := hub.Start(ctx); err != nil {
			return err
		}
		defer func() {
			_ = hub.Stop(context.Background())
		}()
		if err := serveHTTP(ctx, *watchAddr, "/avatars", hub); err != nil {
			return err
		}
		vis = hub
	}

	var collector *metrics.Collector
	if *metricsAddr != "" {
		collector = metrics.NewCollector()
		registry := prometheus.NewRegistry()
		if err := collector.Register(registry); err != nil {
			return err
		}
		if err := serveHTTP(ctx, *metricsAddr, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})); err != nil {
			return err
		}
	}

	client, err := newClient(cfg, vis, collector)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := registerConfiguredEnvironments(ctx, client, cfg); err != nil {
		return err
	}

	started := time.Now()
	summary, err := client.Run(ctx, bioapi.RunRequest{
		Environment:    cfg.Run.Environment,
		Population:     cfg.Run.Population,
		Generations:    cfg.Run.Generations,
		BroodSize:      cfg.Run.BroodSize,
		SequenceLength: cfg.Run.SequenceLength,
		Loci:           cfg.Run.Loci,
		Sexual:         cfg.Run.Sexual,
		FitnessGoal:    cfg.Run.FitnessGoal,
		Seed:           cfg.Run.Seed,
	})
	if err != nil {
		return err
	}

	evaluated := int64(cfg.Run.Population) * int64(len(summary.BestByGeneration))
	fmt.Printf("run_id=%s artifacts=%s\n", summary.RunID, summary.ArtifactsDir)
	fmt.Printf("generations=%d final_best=%.6f goal_reached=%t\n",
		len(summary.BestByGeneration), summary.FinalBestFitness, summary.GoalReached)
	fmt.Printf("evaluated about %s organisms in %s\n",
		humanize.Comma(evaluated), time.Since(started).Round(time.Millisecond))
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to print")
	jsonOut := fs.Bool("json", false, "emit runs as JSON")
	cfg, err := loadCommandConfig(fs, args)
	if err != nil {
		return err
	}

	client, err := newClient(cfg, nil, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, bioapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	for _, item := range runs {
		created := item.CreatedAtUTC
		if at, err := time.Parse(time.RFC3339Nano, item.CreatedAtUTC); err == nil {
			created = humanize.Time(at)
		}
		fmt.Printf("run_id=%s env=%s seed=%d pop=%d gens=%d best=%.6f created=%s\n",
			item.RunID, item.Environment, item.Seed, item.Population,
			item.Generations, item.FinalBestFitness, created)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	cfg, err := loadCommandConfig(fs, args)
	if err != nil {
		return err
	}
	if err := requireRunSelector(*runID, *latest, "fitness"); err != nil {
		return err
	}

	client, err := newClient(cfg, nil, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, bioapi.FitnessHistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	for i, best := range history {
		fmt.Printf("generation=%d best_fitness=%.6f\n", i+1, best)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	cfg, err := loadCommandConfig(fs, args)
	if err != nil {
		return err
	}
	if err := requireRunSelector(*runID, *latest, "diagnostics"); err != nil {
		return err
	}

	client, err := newClient(cfg, nil, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, bioapi.DiagnosticsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(diagnostics)
	}

	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%.6f mean=%.6f min=%.6f stddev=%.6f population=%d survivors=%d casualties=%d seeded=%d\n",
			d.Generation,
			d.BestFitness,
			d.MeanFitness,
			d.MinFitness,
			d.StdDev,
			d.Population,
			d.Survivors,
			d.Casualties,
			d.Seeded,
		)
	}
	return nil
}

func runLineage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lineage", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show lineage for the most recent run")
	limit := fs.Int("limit", 50, "max lineage rows to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit lineage rows as JSON")
	cfg, err := loadCommandConfig(fs, args)
	if err != nil {
		return err
	}
	if err := requireRunSelector(*runID, *latest, "lineage"); err != nil {
		return err
	}

	client, err := newClient(cfg, nil, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	lineage, err := client.Lineage(ctx, bioapi.LineageRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(lineage) == 0 {
		fmt.Println("no lineage records")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lineage)
	}

	for _, rec := range lineage {
		fmt.Printf("gen=%d organism_id=%s parent_id=%s op=%s\n",
			rec.Generation, rec.OrganismID, rec.ParentID, rec.Operation)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", "", "output directory (default from config)")
	cfg, err := loadCommandConfig(fs, args)
	if err != nil {
		return err
	}
	if err := requireRunSelector(*runID, *latest, "export"); err != nil {
		return err
	}

	client, err := newClient(cfg, nil, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, bioapi.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
	return nil
}

func runEnvironments(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("environments", flag.ContinueOnError)
	cfg, err := loadCommandConfig(fs, args)
	if err != nil {
		return err
	}

	client, err := newClient(cfg, nil, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := registerConfiguredEnvironments(ctx, client, cfg); err != nil {
		return err
	}
	envs, err := client.Environments(ctx)
	if err != nil {
		return err
	}
	for _, name := range envs {
		fmt.Println(name)
	}
	return nil
}

func runEnvironmentSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("environment-summary", flag.ContinueOnError)
	name := fs.String("env", "", "environment name")
	cfg, err := loadCommandConfig(fs, args)
	if err != nil {
		return err
	}
	if *name == "" {
		return errors.New("environment-summary requires --env")
	}

	client, err := newClient(cfg, nil, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.EnvironmentSummary(ctx, *name)
	if err != nil {
		return err
	}
	fmt.Printf("environment=%s best_fitness=%.6f description=%q\n",
		summary.Name, summary.BestFitness, summary.Description)
	return nil
}

func requireRunSelector(runID string, latest bool, command string) error {
	if runID != "" && latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if runID == "" && !latest {
		return fmt.Errorf("%s requires --run-id or --latest", command)
	}
	return nil
}

// serveHTTP starts a best-effort HTTP listener that lives for the duration
// of the surrounding command.
func serveHTTP(ctx context.Context, addr, pattern string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle(pattern, handler)
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

func splitList(value string) []string {
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
