// Package colony implements the evolution engine: a colony owns one
// generation's population, evaluates fitness against its environment,
// culls, and produces the next generation. Each colony is an immutable
// snapshot; every operation that changes the population returns a new
// colony. The engine is single threaded and threads its random source
// explicitly for reproducibility.
package colony

import (
	"errors"
	"fmt"
	"math/rand"

	"biogenesis/internal/ecology"
	"biogenesis/internal/genetics"
	"biogenesis/internal/organism"
	"biogenesis/internal/visualizer"
)

// ErrFitnessUndefined marks an organism whose fitness evaluation yields no
// value. This is an unrecoverable logic error, never "unfit".
var ErrFitnessUndefined = errors.New("fitness undefined")

// ErrExhausted marks a colony with no members left to evolve.
var ErrExhausted = errors.New("colony exhausted")

// Listener is notified once per completed generation, and once more with a
// nil colony when the overall evolution terminates. Listeners must tolerate
// the terminal nil.
type Listener[B comparable, G, T, X any, V Version[V]] interface {
	OnGeneration(c *Colony[B, G, T, X, V])
}

// Config assembles a colony. Genome and Environment are required; the rest
// defaults: brood size 1, noop visualizer, hex id factory.
type Config[B comparable, G, T, X any, V Version[V]] struct {
	Genome      genetics.Genome[B, G, T]
	Environment ecology.Environment[T, X]
	Version     V
	BroodSize   int
	Visualizer  visualizer.Visualizer
	Listeners   []Listener[B, G, T, X, V]
	NewID       func(rng *rand.Rand) string
}

// Colony is one generation's full population together with its environment
// and reproduction rules.
type Colony[B comparable, G, T, X any, V Version[V]] struct {
	version   V
	genome    genetics.Genome[B, G, T]
	env       ecology.Environment[T, X]
	members   []*organism.Organism[B, G, T, X]
	brood     int
	vis       visualizer.Visualizer
	listeners []Listener[B, G, T, X, V]
	newID     func(rng *rand.Rand) string
}

func New[B comparable, G, T, X any, V Version[V]](cfg Config[B, G, T, X, V]) (*Colony[B, G, T, X, V], error) {
	if err := cfg.Genome.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Environment.Validate(); err != nil {
		return nil, err
	}
	if cfg.BroodSize < 0 {
		return nil, fmt.Errorf("brood size must be >= 0")
	}
	if cfg.BroodSize == 0 {
		cfg.BroodSize = 1
	}
	if cfg.Visualizer == nil {
		cfg.Visualizer = visualizer.Noop{}
	}
	if cfg.NewID == nil {
		cfg.NewID = DefaultIDFactory("org")
	}
	return &Colony[B, G, T, X, V]{
		version:   cfg.Version,
		genome:    cfg.Genome,
		env:       cfg.Environment,
		brood:     cfg.BroodSize,
		vis:       cfg.Visualizer,
		listeners: cfg.Listeners,
		newID:     cfg.NewID,
	}, nil
}

// DefaultIDFactory derives organism identifiers from the run's random
// source, keeping id assignment as reproducible as every other draw.
func DefaultIDFactory(prefix string) func(rng *rand.Rand) string {
	return func(rng *rand.Rand) string {
		return fmt.Sprintf("%s-%08x%08x", prefix, rng.Uint32(), rng.Uint32())
	}
}

func (c *Colony[B, G, T, X, V]) Version() V {
	return c.version
}

func (c *Colony[B, G, T, X, V]) Genome() genetics.Genome[B, G, T] {
	return c.genome
}

func (c *Colony[B, G, T, X, V]) Environment() ecology.Environment[T, X] {
	return c.env
}

func (c *Colony[B, G, T, X, V]) Size() int {
	return len(c.members)
}

// Exhausted reports the terminal state: an empty population produces no
// further generations.
func (c *Colony[B, G, T, X, V]) Exhausted() bool {
	return len(c.members) == 0
}

// Members returns the generation's organisms in order.
func (c *Colony[B, G, T, X, V]) Members() []*organism.Organism[B, G, T, X] {
	return append([]*organism.Organism[B, G, T, X](nil), c.members...)
}

// derive copies the colony shell at the given version with the given
// members, sharing the read-only configuration.
func (c *Colony[B, G, T, X, V]) derive(version V, members []*organism.Organism[B, G, T, X]) *Colony[B, G, T, X, V] {
	return &Colony[B, G, T, X, V]{
		version:   version,
		genome:    c.genome,
		env:       c.env,
		members:   members,
		brood:     c.brood,
		vis:       c.vis,
		listeners: c.listeners,
		newID:     c.newID,
	}
}

// SeedMembers draws size fresh organisms from the genome, threading the
// random source sequentially so a fixed seed reproduces the population.
// Seeding does not advance the generation: the returned colony stays at the
// caller's version, with the new organisms appended.
func (c *Colony[B, G, T, X, V]) SeedMembers(size int, rng *rand.Rand) (*Colony[B, G, T, X, V], error) {
	if size <= 0 {
		return nil, fmt.Errorf("seed size must be > 0")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}

	members := append([]*organism.Organism[B, G, T, X](nil), c.members...)
	for i := 0; i < size; i++ {
		nucleus := c.genome.Recombine(rng)
		seeded, err := c.createOrganism(c.newID(rng), nucleus)
		if err != nil {
			return nil, err
		}
		members = append(members, seeded)
	}
	return c.derive(c.version, members), nil
}

func (c *Colony[B, G, T, X, V]) createOrganism(id string, nucleus genetics.Nucleus[B]) (*organism.Organism[B, G, T, X], error) {
	o, err := organism.New[B, G, T, X](id, c.version.Int(), c.genome, nucleus)
	if err != nil {
		return nil, err
	}
	c.notifyCreated(o)
	return o, nil
}

// notifyCreated is the single emission point for avatar create events.
func (c *Colony[B, G, T, X, V]) notifyCreated(o *organism.Organism[B, G, T, X]) {
	c.vis.CreateAvatar(visualizer.Event{OrganismID: o.ID(), Generation: o.Generation()})
}

// CullMembers advances the generation version by one increment and returns
// a colony with an empty population at the new version. Repopulation is a
// separate, explicit step composed by the caller.
func (c *Colony[B, G, T, X, V]) CullMembers() (*Colony[B, G, T, X, V], error) {
	next, err := c.version.Next()
	if err != nil {
		return nil, err
	}
	return c.derive(next, nil), nil
}

// EvaluateFitness computes an organism's fitness against the colony's
// environment and applies the survival threshold. Undefined fitness is
// fatal, not "unfit".
func (c *Colony[B, G, T, X, V]) EvaluateFitness(o *organism.Organism[B, G, T, X]) (bool, error) {
	fitness, ok, err := o.Fitness(c.env)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("organism %s: %w", o.ID(), ErrFitnessUndefined)
	}
	return fitness.Fit(), nil
}

// UpdateOrganism notifies the external visualizer of one organism
// transition. kill=true signals removal, false a state update. One way, no
// return value, no retry.
func (c *Colony[B, G, T, X, V]) UpdateOrganism(o *organism.Organism[B, G, T, X], kill bool) {
	event := visualizer.Event{OrganismID: o.ID(), Generation: o.Generation()}
	if fitness, ok, err := o.Fitness(c.env); err == nil && ok {
		value := float64(fitness)
		event.Fitness = &value
	}
	if kill {
		c.vis.DestroyAvatar(event)
		return
	}
	c.vis.UpdateAvatar(event)
}

// Offspring builds the reproduction output of the current population.
//
// For sexual genomes it yields the reproduction candidates: members whose
// fitness clears the viability bound (>= 0, deliberately looser than the
// survival threshold). The pairing itself is not implemented.
//
// For asexual genomes each member produces its own brood; all broods are
// concatenated in member order.
func (c *Colony[B, G, T, X, V]) Offspring(rng *rand.Rand) ([]*organism.Organism[B, G, T, X], error) {
	if c.genome.Sexual {
		candidates := make([]*organism.Organism[B, G, T, X], 0, len(c.members))
		for _, o := range c.members {
			fitness, ok, err := o.Fitness(c.env)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("organism %s: %w", o.ID(), ErrFitnessUndefined)
			}
			if fitness.Viable() {
				candidates = append(candidates, o)
			}
		}
		return candidates, nil
	}

	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	nextID := func() string { return c.newID(rng) }
	children := make([]*organism.Organism[B, G, T, X], 0, len(c.members)*c.brood)
	for _, o := range c.members {
		brood, err := o.Offspring(c.brood, nextID)
		if err != nil {
			return nil, err
		}
		children = append(children, brood...)
	}
	return children, nil
}

// Apply would evaluate a free-standing phenotype against the colony's
// ecology. It is intentionally left unimplemented.
func (c *Colony[B, G, T, X, V]) Apply(p genetics.Phenotype[T]) (ecology.Adaptatype[X], error) {
	return ecology.Adaptatype[X]{}, fmt.Errorf("colony apply of phenotype %s: %w", p.ID, organism.ErrUnimplemented)
}

// Advance runs one full generation step: evaluate every member, partition
// into survivors and casualties, notify the visualizer of each transition,
// cull, then reproduce the survivors into the next generation's population.
// An empty next generation is the terminal Exhausted state.
func (c *Colony[B, G, T, X, V]) Advance(rng *rand.Rand) (*Colony[B, G, T, X, V], error) {
	if c.Exhausted() {
		return nil, fmt.Errorf("generation %d: %w", c.version.Int(), ErrExhausted)
	}

	survivors := make([]*organism.Organism[B, G, T, X], 0, len(c.members))
	casualties := make([]*organism.Organism[B, G, T, X], 0, len(c.members))
	for _, o := range c.members {
		fit, err := c.EvaluateFitness(o)
		if err != nil {
			return nil, err
		}
		if fit {
			survivors = append(survivors, o)
		} else {
			casualties = append(casualties, o)
		}
	}
	for _, o := range survivors {
		c.UpdateOrganism(o, false)
	}
	for _, o := range casualties {
		c.UpdateOrganism(o, true)
	}

	next, err := c.CullMembers()
	if err != nil {
		return nil, err
	}
	if len(survivors) == 0 {
		return next, nil
	}
	if c.genome.Sexual {
		return nil, fmt.Errorf("sexual reproduction: %w", organism.ErrUnimplemented)
	}

	children, err := c.derive(c.version, survivors).Offspring(rng)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		c.notifyCreated(child)
	}
	next.members = children
	return next, nil
}

// NotifyGeneration tells every listener this generation completed.
func (c *Colony[B, G, T, X, V]) NotifyGeneration() {
	for _, listener := range c.listeners {
		listener.OnGeneration(c)
	}
}

// NotifyTerminated sends the terminal sentinel: a nil colony.
func (c *Colony[B, G, T, X, V]) NotifyTerminated() {
	for _, listener := range c.listeners {
		listener.OnGeneration(nil)
	}
}
