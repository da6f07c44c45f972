// Package ecology evaluates phenotypes against named environmental factors
// to produce adaptations and fitness scores.
package ecology

import (
	"errors"
	"fmt"

	"biogenesis/internal/genetics"
)

// SurvivalThreshold is the inclusive fitness bound for surviving a cull.
const SurvivalThreshold = 0.5

// Fitness is a scalar fitness measure.
type Fitness float64

// Fit reports whether the score clears the survival threshold. The bound is
// inclusive: exactly 0.5 survives.
func (f Fitness) Fit() bool {
	return f >= SurvivalThreshold
}

// Viable reports whether the score qualifies an organism as a reproduction
// candidate. This is a looser bound than Fit: viable to attempt reproduction
// is not the same as fit enough to survive.
func (f Fitness) Viable() bool {
	return f >= 0
}

// Factor is one named environmental dimension an organism is exposed to.
type Factor[X any] struct {
	Name  string `json:"name"`
	Value X      `json:"value"`
}

// Adaptation is the fitness contribution for one matched factor.
type Adaptation[X any] struct {
	Factor  Factor[X] `json:"factor"`
	Fitness Fitness   `json:"fitness"`
}

// Adaptatype is the result of evaluating a phenotype against an ecology,
// one adaptation per successfully matched factor. Its identity derives from
// the source phenotype's identity.
type Adaptatype[X any] struct {
	ID          string          `json:"id"`
	Adaptations []Adaptation[X] `json:"adaptations"`
}

// FunctionKind selects the fitness-function shape for a factor/trait pair.
type FunctionKind string

const (
	FunctionProximity FunctionKind = "proximity"
	FunctionThreshold FunctionKind = "threshold"
)

// FitnessFunction scores one trait value against one eco value. It must be
// pure and total over its declared domain; partiality belongs to the Adapter
// layer.
type FitnessFunction[T, X any] func(traitValue T, kind FunctionKind, ecoValue X) Fitness

// Adapter pairs a factor with a trait through a fitness function. A false
// return fails the whole adaptatype construction.
type Adapter[T, X any] func(factor Factor[X], trait genetics.Trait[T], fn FitnessFunction[T, X]) (Adaptation[X], bool)

// ErrAdaptation marks an adapter rejecting a matched factor/trait pair.
var ErrAdaptation = errors.New("adaptation failed")

// Ecology maps trait space onto eco space: factors keyed by characteristic
// name, an adapter, and the fitness function the adapter applies.
type Ecology[T, X any] struct {
	Factors  map[string]Factor[X]
	Adapter  Adapter[T, X]
	Function FitnessFunction[T, X]
}

func (e Ecology[T, X]) Validate() error {
	if len(e.Factors) == 0 {
		return fmt.Errorf("ecology requires at least one factor")
	}
	for name, factor := range e.Factors {
		if factor.Name != name {
			return fmt.Errorf("factor key %q does not match factor name %q", name, factor.Name)
		}
	}
	if e.Adapter == nil {
		return fmt.Errorf("adapter is required")
	}
	if e.Function == nil {
		return fmt.Errorf("fitness function is required")
	}
	return nil
}

// Apply evaluates a phenotype trait by trait. Traits with no matching factor
// are dropped without error. A matched pair the adapter rejects aborts the
// whole construction.
func (e Ecology[T, X]) Apply(p genetics.Phenotype[T]) (Adaptatype[X], error) {
	adaptations := make([]Adaptation[X], 0, len(p.Traits))
	for _, trait := range p.Traits {
		factor, ok := e.Factors[trait.Characteristic.Name]
		if !ok {
			// Unknown characteristic: the trait has no ecological meaning
			// here and contributes nothing.
			continue
		}
		adaptation, ok := e.Adapter(factor, trait, e.Function)
		if !ok {
			return Adaptatype[X]{}, fmt.Errorf("factor %s rejected trait of phenotype %s: %w", factor.Name, p.ID, ErrAdaptation)
		}
		adaptations = append(adaptations, adaptation)
	}
	return Adaptatype[X]{ID: p.ID, Adaptations: adaptations}, nil
}

// Environment supplies the ecology an organism is evaluated in. It is
// immutable during a generation's evaluation.
type Environment[T, X any] struct {
	Name    string
	Ecology Ecology[T, X]
}

func (e Environment[T, X]) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("environment name is required")
	}
	return e.Ecology.Validate()
}
