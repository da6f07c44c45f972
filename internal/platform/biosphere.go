// Package platform hosts the biosphere: the long-lived process that owns
// the store, the registered environments, and the support modules, and
// that drives whole evolution runs to completion.
package platform

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"biogenesis/internal/colony"
	"biogenesis/internal/dna"
	"biogenesis/internal/metrics"
	"biogenesis/internal/model"
	"biogenesis/internal/stats"
	"biogenesis/internal/storage"
	"biogenesis/internal/visualizer"
)

type Config struct {
	Store          storage.Store
	SupportModules []SupportModule
	Environments   []dna.Environment
	Metrics        *metrics.Collector
}

type SupportModule interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type StopReason string

const (
	StopReasonNormal   StopReason = "normal"
	StopReasonShutdown StopReason = "shutdown"
)

// EvolutionConfig describes one run: the genome shape, the target
// environment, and the generation loop bounds.
type EvolutionConfig struct {
	RunID          string
	Environment    string
	Loci           []string
	SequenceLength int
	Sexual         bool
	PopulationSize int
	Generations    int
	BroodSize      int
	FitnessGoal    float64
	Seed           int64
	Visualizer     visualizer.Visualizer
	Listeners      []dna.Listener
}

type EvolutionResult struct {
	RunID                 string
	BestByGeneration      []float64
	GenerationDiagnostics []model.GenerationDiagnostics
	BestFinalFitness      float64
	GoalReached           bool
	FinalPopulation       []model.OrganismRecord
	Lineage               []model.LineageRecord
}

// Biosphere is the orchestration root. One biosphere runs per process;
// the Default helpers manage that shared instance.
type Biosphere struct {
	store   storage.Store
	metrics *metrics.Collector

	mu sync.RWMutex

	environments   map[string]dna.Environment
	supportModules map[string]SupportModule
	started        bool
	lastStopReason StopReason

	config Config
}

var (
	defaultBiosphereMu sync.Mutex
	defaultBiosphere   *Biosphere
)

func NewBiosphere(cfg Config) *Biosphere {
	return &Biosphere{
		store:          cfg.Store,
		metrics:        cfg.Metrics,
		environments:   make(map[string]dna.Environment),
		supportModules: make(map[string]SupportModule),
		config:         cfg,
		lastStopReason: StopReasonNormal,
	}
}

func StartDefault(ctx context.Context, cfg Config) (*Biosphere, error) {
	defaultBiosphereMu.Lock()
	defer defaultBiosphereMu.Unlock()

	if defaultBiosphere != nil && defaultBiosphere.Started() {
		return defaultBiosphere, nil
	}

	b := NewBiosphere(cfg)
	if err := b.Init(ctx); err != nil {
		return nil, err
	}
	defaultBiosphere = b
	return defaultBiosphere, nil
}

func Default() (*Biosphere, bool) {
	defaultBiosphereMu.Lock()
	b := defaultBiosphere
	defaultBiosphereMu.Unlock()

	if b == nil || !b.Started() {
		return nil, false
	}
	return b, true
}

func StopDefault(reason StopReason) error {
	defaultBiosphereMu.Lock()
	b := defaultBiosphere
	defaultBiosphereMu.Unlock()
	if b == nil {
		return nil
	}
	if err := b.StopWithReason(reason); err != nil {
		return err
	}
	defaultBiosphereMu.Lock()
	if defaultBiosphere == b {
		defaultBiosphere = nil
	}
	defaultBiosphereMu.Unlock()
	return nil
}

func (b *Biosphere) Init(ctx context.Context) error {
	if b.store == nil {
		return fmt.Errorf("store is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return nil
	}
	if err := b.store.Init(ctx); err != nil {
		return err
	}

	startedModules := make([]SupportModule, 0, len(b.config.SupportModules))
	fail := func(err error) error {
		stopSupportModules(ctx, startedModules)
		b.supportModules = make(map[string]SupportModule)
		b.environments = make(map[string]dna.Environment)
		return err
	}

	for i, module := range b.config.SupportModules {
		if module == nil {
			return fail(fmt.Errorf("support module is nil at index %d", i))
		}
		name := module.Name()
		if name == "" {
			return fail(fmt.Errorf("support module name is required at index %d", i))
		}
		if _, exists := b.supportModules[name]; exists {
			return fail(fmt.Errorf("duplicate support module: %s", name))
		}
		if err := module.Start(ctx); err != nil {
			return fail(fmt.Errorf("start support module %s: %w", name, err))
		}
		b.supportModules[name] = module
		startedModules = append(startedModules, module)
	}

	for i, env := range b.config.Environments {
		if err := env.Validate(); err != nil {
			return fail(fmt.Errorf("environment at index %d: %w", i, err))
		}
		if _, exists := b.environments[env.Name]; exists {
			return fail(fmt.Errorf("duplicate environment: %s", env.Name))
		}
		b.environments[env.Name] = env
	}

	b.started = true
	return nil
}

func (b *Biosphere) RegisterEnvironment(env dna.Environment) error {
	if err := env.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return fmt.Errorf("biosphere is not initialized")
	}
	b.environments[env.Name] = env
	return nil
}

func (b *Biosphere) GetEnvironment(name string) (dna.Environment, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	env, ok := b.environments[name]
	return env, ok
}

func (b *Biosphere) Stop() {
	_ = b.StopWithReason(StopReasonNormal)
}

func (b *Biosphere) Shutdown() {
	_ = b.StopWithReason(StopReasonShutdown)
}

func (b *Biosphere) StopWithReason(reason StopReason) error {
	if reason == "" {
		reason = StopReasonNormal
	}
	switch reason {
	case StopReasonNormal, StopReasonShutdown:
	default:
		return fmt.Errorf("unsupported stop reason: %s", reason)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, module := range b.supportModules {
		if withReason, ok := module.(reasonAwareSupportModule); ok {
			_ = withReason.StopWithReason(context.Background(), reason)
		} else {
			_ = module.Stop(context.Background())
		}
	}

	b.started = false
	b.lastStopReason = reason
	b.environments = make(map[string]dna.Environment)
	b.supportModules = make(map[string]SupportModule)
	return nil
}

// RunEvolution seeds a colony and drives it through the configured number
// of generations, topping the population back up to size after every
// advance. All results are persisted under the run id before returning.
func (b *Biosphere) RunEvolution(ctx context.Context, cfg EvolutionConfig) (EvolutionResult, error) {
	if cfg.Environment == "" {
		return EvolutionResult{}, fmt.Errorf("environment name is required")
	}
	if cfg.PopulationSize <= 0 {
		return EvolutionResult{}, fmt.Errorf("population size must be > 0")
	}
	if cfg.Generations <= 0 {
		return EvolutionResult{}, fmt.Errorf("generations must be > 0")
	}

	b.mu.RLock()
	env, ok := b.environments[cfg.Environment]
	started := b.started
	b.mu.RUnlock()

	if !started {
		return EvolutionResult{}, fmt.Errorf("biosphere is not initialized")
	}
	if !ok {
		return EvolutionResult{}, fmt.Errorf("environment not registered: %s", cfg.Environment)
	}

	runID := cfg.RunID
	if runID == "" {
		runID = fmt.Sprintf("evo:%s:%d", cfg.Environment, cfg.Seed)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	genome := dna.NewGenome(cfg.Loci, cfg.SequenceLength, cfg.Sexual)

	col, err := colony.New(dna.Config{
		Genome:      genome,
		Environment: env,
		Version:     colony.Generation(0),
		BroodSize:   cfg.BroodSize,
		Visualizer:  cfg.Visualizer,
		Listeners:   cfg.Listeners,
	})
	if err != nil {
		return EvolutionResult{}, err
	}

	col, err = col.SeedMembers(cfg.PopulationSize, rng)
	if err != nil {
		return EvolutionResult{}, err
	}
	lineage := appendLineage(nil, col.Members(), "seed")
	b.metrics.OrganismsCreated(col.Size())

	result := EvolutionResult{RunID: runID}
	seeded := cfg.PopulationSize

	for generation := 0; generation < cfg.Generations; generation++ {
		if err := ctx.Err(); err != nil {
			return EvolutionResult{}, err
		}

		fitnesses := make([]float64, 0, col.Size())
		counts := stats.GenerationCounts{Seeded: seeded}
		for _, o := range col.Members() {
			fitness, defined, err := o.Fitness(col.Environment())
			if err != nil {
				return EvolutionResult{}, err
			}
			if !defined {
				return EvolutionResult{}, fmt.Errorf("organism %s: %w", o.ID(), colony.ErrFitnessUndefined)
			}
			fitnesses = append(fitnesses, float64(fitness))
			if fitness.Fit() {
				counts.Survivors++
			} else {
				counts.Casualties++
			}
		}
		seeded = 0

		diagnostics := stats.Summarize(col.Version().Int(), fitnesses, counts)
		result.GenerationDiagnostics = append(result.GenerationDiagnostics, diagnostics)
		result.BestByGeneration = append(result.BestByGeneration, diagnostics.BestFitness)

		b.metrics.ObserveBestFitness(diagnostics.BestFitness)
		b.metrics.ObservePopulation(col.Size())
		b.metrics.OrganismsCulled(counts.Casualties)
		b.metrics.GenerationCompleted()

		if cfg.FitnessGoal > 0 && diagnostics.BestFitness >= cfg.FitnessGoal {
			result.GoalReached = true
			col.NotifyGeneration()
			break
		}

		next, err := col.Advance(rng)
		if err != nil {
			return EvolutionResult{}, err
		}
		lineage = appendLineage(lineage, next.Members(), "clone")
		b.metrics.OrganismsCreated(next.Size())

		if shortfall := cfg.PopulationSize - next.Size(); shortfall > 0 {
			reseeded, err := next.SeedMembers(shortfall, rng)
			if err != nil {
				return EvolutionResult{}, err
			}
			lineage = appendLineage(lineage, reseeded.Members()[next.Size():], "seed")
			b.metrics.OrganismsCreated(shortfall)
			seeded = shortfall
			next = reseeded
		}

		col = next
		col.NotifyGeneration()
	}
	col.NotifyTerminated()

	result.Lineage = lineage
	if len(result.BestByGeneration) > 0 {
		for _, best := range result.BestByGeneration {
			if best > result.BestFinalFitness {
				result.BestFinalFitness = best
			}
		}
	}

	finalPopulation, err := organismRecords(col)
	if err != nil {
		return EvolutionResult{}, err
	}
	result.FinalPopulation = finalPopulation

	if err := b.persistRun(ctx, runID, col, result); err != nil {
		return EvolutionResult{}, err
	}
	return result, nil
}

func (b *Biosphere) persistRun(ctx context.Context, runID string, col *dna.Colony, result EvolutionResult) error {
	if err := b.store.SaveFitnessHistory(ctx, runID, result.BestByGeneration); err != nil {
		return err
	}
	if err := b.store.SaveGenerationDiagnostics(ctx, runID, result.GenerationDiagnostics); err != nil {
		return err
	}
	if err := b.store.SaveLineage(ctx, runID, result.Lineage); err != nil {
		return err
	}

	organismIDs := make([]string, 0, len(result.FinalPopulation))
	for _, record := range result.FinalPopulation {
		if err := b.store.SaveOrganism(ctx, record); err != nil {
			return err
		}
		organismIDs = append(organismIDs, record.ID)
	}
	snapshot := model.ColonyRecord{
		VersionedRecord: currentVersions(),
		ID:              runID,
		Generation:      col.Version().Int(),
		OrganismIDs:     organismIDs,
	}
	if err := b.store.SaveColony(ctx, snapshot); err != nil {
		return err
	}
	return b.updateEnvironmentSummary(ctx, col.Environment().Name, result.BestFinalFitness)
}

func (b *Biosphere) updateEnvironmentSummary(ctx context.Context, name string, fitness float64) error {
	summary, ok, err := b.store.GetEnvironmentSummary(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		summary = model.EnvironmentSummary{
			VersionedRecord: currentVersions(),
			Name:            name,
			Description:     fmt.Sprintf("best observed fitness for environment %s", name),
		}
	}
	if fitness > summary.BestFitness {
		summary.BestFitness = fitness
	}
	return b.store.SaveEnvironmentSummary(ctx, summary)
}

func organismRecords(col *dna.Colony) ([]model.OrganismRecord, error) {
	members := col.Members()
	records := make([]model.OrganismRecord, 0, len(members))
	for _, o := range members {
		record := model.OrganismRecord{
			VersionedRecord: currentVersions(),
			ID:              o.ID(),
			ParentID:        o.ParentID(),
			Generation:      o.Generation(),
		}

		phenotype, err := o.Phenotype()
		if err != nil {
			return nil, err
		}
		traits := make(map[string]float64, len(phenotype.Traits))
		for _, trait := range phenotype.Traits {
			traits[trait.Characteristic.Name] = trait.Value
		}
		record.Traits = traits

		fitness, defined, err := o.Fitness(col.Environment())
		if err != nil {
			return nil, err
		}
		if defined {
			record.Fitness = float64(fitness)
		}
		records = append(records, record)
	}
	return records, nil
}

func appendLineage(lineage []model.LineageRecord, members []*dna.Organism, operation string) []model.LineageRecord {
	for _, o := range members {
		if operation == "clone" && o.ParentID() == "" {
			continue
		}
		lineage = append(lineage, model.LineageRecord{
			VersionedRecord: currentVersions(),
			OrganismID:      o.ID(),
			ParentID:        o.ParentID(),
			Generation:      o.Generation(),
			Operation:       operation,
		})
	}
	return lineage
}

func currentVersions() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: storage.CurrentSchemaVersion,
		CodecVersion:  storage.CurrentCodecVersion,
	}
}

func (b *Biosphere) RegisteredEnvironments() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.environments))
	for name := range b.environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Biosphere) ActiveSupportModules() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.supportModules))
	for name := range b.supportModules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Biosphere) Started() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.started
}

func (b *Biosphere) LastStopReason() StopReason {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastStopReason
}

func (b *Biosphere) Store() storage.Store {
	return b.store
}

type reasonAwareSupportModule interface {
	SupportModule
	StopWithReason(ctx context.Context, reason StopReason) error
}

func stopSupportModules(ctx context.Context, modules []SupportModule) {
	for i := len(modules) - 1; i >= 0; i-- {
		_ = modules[i].Stop(ctx)
	}
}
