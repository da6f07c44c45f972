// Package biogenesis is the embeddable client surface: it owns a store,
// lazily boots a biosphere, and exposes run, query, and export operations
// over evolution runs.
package biogenesis

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"biogenesis/internal/dna"
	"biogenesis/internal/metrics"
	"biogenesis/internal/model"
	"biogenesis/internal/platform"
	"biogenesis/internal/stats"
	"biogenesis/internal/storage"
	"biogenesis/internal/visualizer"
)

const (
	defaultArtifactsDir = "artifacts"
	defaultExportsDir   = "exports"
	defaultDBPath       = "biogenesis.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string

	// Metrics is optional; a nil collector disables metric updates.
	Metrics *metrics.Collector
	// Visualizer is optional; it receives avatar events for every run
	// started through this client.
	Visualizer visualizer.Visualizer
}

type Client struct {
	store     storage.Store
	biosphere *platform.Biosphere

	storeKind    string
	artifactsDir string
	exportsDir   string
	collector    *metrics.Collector
	visualizer   visualizer.Visualizer
}

type RunRequest struct {
	Environment    string
	Population     int
	Generations    int
	BroodSize      int
	SequenceLength int
	Loci           []string
	Sexual         bool
	FitnessGoal    float64
	Seed           int64
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	BestByGeneration []float64
	FinalBestFitness float64
	GoalReached      bool
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	Environment      string
	Seed             int64
	Population       int
	Generations      int
	FinalBestFitness float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type LineageRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type LineageItem struct {
	OrganismID string
	ParentID   string
	Generation int
	Operation  string
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type EnvironmentSummaryItem struct {
	Name        string
	Description string
	BestFitness float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		storeKind:    storeKind,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
		collector:    opts.Metrics,
		visualizer:   opts.Visualizer,
	}, nil
}

func (c *Client) Close() error {
	if c.biosphere != nil {
		c.biosphere.Stop()
		c.biosphere = nil
	}
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureBiosphere(ctx)
	return err
}

// Start initializes the biosphere and registers the built-in environments.
func (c *Client) Start(ctx context.Context) error {
	b, err := c.ensureBiosphere(ctx)
	if err != nil {
		return err
	}
	return registerDefaultEnvironments(b)
}

// RegisterEnvironment adds a named environment whose eco-factor values are
// the targets organisms are scored against.
func (c *Client) RegisterEnvironment(ctx context.Context, name string, factors map[string]float64) error {
	if name == "" {
		return errors.New("environment name is required")
	}
	if len(factors) == 0 {
		return errors.New("environment requires at least one factor")
	}
	b, err := c.ensureBiosphere(ctx)
	if err != nil {
		return err
	}
	return b.RegisterEnvironment(dna.NewEnvironment(name, factors))
}

func (c *Client) Environments(ctx context.Context) ([]string, error) {
	b, err := c.ensureBiosphere(ctx)
	if err != nil {
		return nil, err
	}
	return b.RegisteredEnvironments(), nil
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Environment == "" {
		req.Environment = "temperate"
	}
	if req.Population <= 0 {
		req.Population = 50
	}
	if req.Generations <= 0 {
		req.Generations = 100
	}
	if req.BroodSize <= 0 {
		req.BroodSize = 1
	}
	if req.SequenceLength <= 0 {
		req.SequenceLength = 16
	}

	b, err := c.ensureBiosphere(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	env, ok := b.GetEnvironment(req.Environment)
	if !ok {
		return RunSummary{}, fmt.Errorf("environment not registered: %s", req.Environment)
	}
	if len(req.Loci) == 0 {
		req.Loci = factorNames(env)
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("%s-%s", req.Environment, uuid.NewString())

	result, err := b.RunEvolution(ctx, platform.EvolutionConfig{
		RunID:          runID,
		Environment:    req.Environment,
		Loci:           req.Loci,
		SequenceLength: req.SequenceLength,
		Sexual:         req.Sexual,
		PopulationSize: req.Population,
		Generations:    req.Generations,
		BroodSize:      req.BroodSize,
		FitnessGoal:    req.FitnessGoal,
		Seed:           req.Seed,
		Visualizer:     c.visualizer,
	})
	if err != nil {
		return RunSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:          runID,
			Environment:    req.Environment,
			PopulationSize: req.Population,
			Generations:    req.Generations,
			BroodSize:      req.BroodSize,
			SequenceLength: req.SequenceLength,
			Sexual:         req.Sexual,
			FitnessGoal:    req.FitnessGoal,
			Seed:           req.Seed,
			StoreBackend:   c.storeKind,
		},
		BestByGeneration:      result.BestByGeneration,
		GenerationDiagnostics: result.GenerationDiagnostics,
		FinalBestFitness:      result.BestFinalFitness,
		Lineage:               result.Lineage,
	})
	if err != nil {
		return RunSummary{}, err
	}

	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:            runID,
		Environment:      req.Environment,
		PopulationSize:   req.Population,
		Generations:      req.Generations,
		Seed:             req.Seed,
		FinalBestFitness: result.BestFinalFitness,
		CreatedAtUTC:     now.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            runID,
		ArtifactsDir:     filepath.Clean(runDir),
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		FinalBestFitness: result.BestFinalFitness,
		GoalReached:      result.GoalReached,
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:            e.RunID,
			CreatedAtUTC:     e.CreatedAtUTC,
			Environment:      e.Environment,
			Seed:             e.Seed,
			Population:       e.PopulationSize,
			Generations:      e.Generations,
			FinalBestFitness: e.FinalBestFitness,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) Lineage(ctx context.Context, req LineageRequest) ([]LineageItem, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, req.Limit, "lineage")
	if err != nil {
		return nil, err
	}

	if _, err := c.ensureBiosphere(ctx); err != nil {
		return nil, err
	}
	lineage, ok, err := c.store.GetLineage(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("lineage not found for run id: %s", runID)
	}

	if req.Limit > 0 && len(lineage) > req.Limit {
		lineage = lineage[:req.Limit]
	}

	out := make([]LineageItem, 0, len(lineage))
	for _, rec := range lineage {
		out = append(out, LineageItem{
			OrganismID: rec.OrganismID,
			ParentID:   rec.ParentID,
			Generation: rec.Generation,
			Operation:  rec.Operation,
		})
	}
	return out, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, req.Limit, "fitness history")
	if err != nil {
		return nil, err
	}

	if _, err := c.ensureBiosphere(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, req.Limit, "diagnostics")
	if err != nil {
		return nil, err
	}

	if _, err := c.ensureBiosphere(ctx); err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

func (c *Client) EnvironmentSummary(ctx context.Context, name string) (EnvironmentSummaryItem, error) {
	if name == "" {
		return EnvironmentSummaryItem{}, errors.New("environment name is required")
	}
	if _, err := c.ensureBiosphere(ctx); err != nil {
		return EnvironmentSummaryItem{}, err
	}
	summary, ok, err := c.store.GetEnvironmentSummary(ctx, name)
	if err != nil {
		return EnvironmentSummaryItem{}, err
	}
	if !ok {
		return EnvironmentSummaryItem{}, fmt.Errorf("environment summary not found: %s", name)
	}
	return EnvironmentSummaryItem{
		Name:        summary.Name,
		Description: summary.Description,
		BestFitness: summary.BestFitness,
	}, nil
}

// resolveRunID applies the shared run id / latest / limit request rules.
func (c *Client) resolveRunID(runID string, latest bool, limit int, what string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if limit < 0 {
		return "", errors.New("limit must be >= 0")
	}

	if latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", errors.New("no runs available")
		}
		return entries[0].RunID, nil
	}
	if runID == "" {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	return runID, nil
}

func (c *Client) ensureBiosphere(ctx context.Context) (*platform.Biosphere, error) {
	if c.biosphere != nil {
		return c.biosphere, nil
	}
	b := platform.NewBiosphere(platform.Config{Store: c.store, Metrics: c.collector})
	if err := b.Init(ctx); err != nil {
		return nil, err
	}
	c.biosphere = b
	return c.biosphere, nil
}

func registerDefaultEnvironments(b *platform.Biosphere) error {
	defaults := []dna.Environment{
		dna.NewEnvironment("temperate", map[string]float64{"height": 0.5}),
		dna.NewEnvironment("alpine", map[string]float64{"height": 0.8, "insulation": 0.7}),
		dna.NewEnvironment("wetland", map[string]float64{"height": 0.3, "camouflage": 0.6}),
	}
	for _, env := range defaults {
		if err := b.RegisterEnvironment(env); err != nil {
			return err
		}
	}
	return nil
}

func factorNames(env dna.Environment) []string {
	names := make([]string, 0, len(env.Ecology.Factors))
	for name := range env.Ecology.Factors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
