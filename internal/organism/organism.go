// Package organism models one member of a population: it owns genetic
// material, derives its phenotype on demand, and scores itself against an
// environment.
package organism

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"biogenesis/internal/ecology"
	"biogenesis/internal/genetics"
)

// ErrUnimplemented marks features the engine exposes but does not implement.
// Sexual pairing is the principal case; callers must fail loudly rather than
// silently no-op.
var ErrUnimplemented = errors.New("feature not implemented")

// Organism is one member of a population. Identity is assigned at
// construction and immutable afterwards; the phenotype is derived lazily and
// cached.
type Organism[B comparable, G, T, X any] struct {
	id         string
	parentID   string
	generation int
	genome     genetics.Genome[B, G, T]
	nucleus    genetics.Nucleus[B]
	phenotype  *genetics.Phenotype[T]
}

func New[B comparable, G, T, X any](id string, generation int, genome genetics.Genome[B, G, T], nucleus genetics.Nucleus[B]) (*Organism[B, G, T, X], error) {
	if id == "" {
		return nil, fmt.Errorf("organism id is required")
	}
	if generation < 0 {
		return nil, fmt.Errorf("generation must be >= 0")
	}
	if err := genome.Validate(); err != nil {
		return nil, fmt.Errorf("organism %s: %w", id, err)
	}
	if len(nucleus) == 0 {
		return nil, fmt.Errorf("organism %s: nucleus is required", id)
	}
	return &Organism[B, G, T, X]{
		id:         id,
		generation: generation,
		genome:     genome,
		nucleus:    genetics.CloneNucleus(nucleus),
	}, nil
}

func (o *Organism[B, G, T, X]) ID() string {
	return o.id
}

// ParentID is empty for seeded organisms.
func (o *Organism[B, G, T, X]) ParentID() string {
	return o.parentID
}

func (o *Organism[B, G, T, X]) Generation() int {
	return o.generation
}

func (o *Organism[B, G, T, X]) Nucleus() genetics.Nucleus[B] {
	return genetics.CloneNucleus(o.nucleus)
}

// Phenotype transcribes and expresses the organism's nucleus, caching the
// result. Transcription failure propagates.
func (o *Organism[B, G, T, X]) Phenotype() (genetics.Phenotype[T], error) {
	if o.phenotype != nil {
		return *o.phenotype, nil
	}
	genotype, err := o.genome.Transcribe(o.nucleus)
	if err != nil {
		return genetics.Phenotype[T]{}, fmt.Errorf("organism %s: %w", o.id, err)
	}
	phenotype := o.genome.Express(o.id, genotype)
	o.phenotype = &phenotype
	return phenotype, nil
}

// Fitness evaluates the organism in an environment. The boolean is false
// when fitness is undefined, which happens only when the adaptatype carries
// no adaptations. The scalar is the arithmetic mean over the adaptation
// scores.
func (o *Organism[B, G, T, X]) Fitness(env ecology.Environment[T, X]) (ecology.Fitness, bool, error) {
	phenotype, err := o.Phenotype()
	if err != nil {
		return 0, false, err
	}
	adaptatype, err := env.Ecology.Apply(phenotype)
	if err != nil {
		return 0, false, fmt.Errorf("organism %s: %w", o.id, err)
	}
	if len(adaptatype.Adaptations) == 0 {
		return 0, false, nil
	}
	scores := make([]float64, 0, len(adaptatype.Adaptations))
	for _, adaptation := range adaptatype.Adaptations {
		scores = append(scores, float64(adaptation.Fitness))
	}
	return ecology.Fitness(stat.Mean(scores, nil)), true, nil
}

// Offspring produces a clonal brood of the given size for asexual genomes.
// Children carry a copy of the parent's nucleus, the next generation tag,
// and identities drawn from nextID in brood order.
func (o *Organism[B, G, T, X]) Offspring(brood int, nextID func() string) ([]*Organism[B, G, T, X], error) {
	if o.genome.Sexual {
		return nil, fmt.Errorf("organism %s: sexual offspring requires mating: %w", o.id, ErrUnimplemented)
	}
	if brood <= 0 {
		return nil, fmt.Errorf("brood size must be > 0")
	}
	if nextID == nil {
		return nil, fmt.Errorf("id factory is required")
	}

	children := make([]*Organism[B, G, T, X], 0, brood)
	for i := 0; i < brood; i++ {
		child, err := New[B, G, T, X](nextID(), o.generation+1, o.genome, o.nucleus)
		if err != nil {
			return nil, err
		}
		child.parentID = o.id
		children = append(children, child)
	}
	return children, nil
}

// Mate is the sexual pairing entry point. The pairing logic is not
// implemented; any call fails distinctly from other error kinds.
func (o *Organism[B, G, T, X]) Mate(partner *Organism[B, G, T, X], nextID func() string) ([]*Organism[B, G, T, X], error) {
	_ = partner
	_ = nextID
	return nil, fmt.Errorf("organism %s: mating: %w", o.id, ErrUnimplemented)
}
