// Package dna provides the default concrete instantiation of the genetics
// core: a four-symbol base alphabet, diploid ploidy, string gene values, and
// float64 trait and eco values.
package dna

import (
	"math"

	"biogenesis/internal/colony"
	"biogenesis/internal/ecology"
	"biogenesis/internal/genetics"
	"biogenesis/internal/organism"
)

// Base is one nucleobase.
type Base uint8

const (
	Adenine Base = iota
	Cytosine
	Guanine
	Thymine
)

func (b Base) String() string {
	switch b {
	case Adenine:
		return "A"
	case Cytosine:
		return "C"
	case Guanine:
		return "G"
	case Thymine:
		return "T"
	default:
		return "?"
	}
}

// Alphabet is the full base domain in sampling order.
var Alphabet = []Base{Adenine, Cytosine, Guanine, Thymine}

// Diploid is the default ploidy.
const Diploid = 2

// Concrete instantiations of the generic core.
type (
	Sequence    = genetics.Sequence[Base]
	Nucleus     = genetics.Nucleus[Base]
	Genome      = genetics.Genome[Base, string, float64]
	Genotype    = genetics.Genotype[string]
	Phenotype   = genetics.Phenotype[float64]
	Environment = ecology.Environment[float64, float64]
	Ecology     = ecology.Ecology[float64, float64]
	Factor      = ecology.Factor[float64]
	Adaptatype  = ecology.Adaptatype[float64]
	Organism    = organism.Organism[Base, string, float64, float64]
	Colony      = colony.Colony[Base, string, float64, float64, colony.Generation]
	Config      = colony.Config[Base, string, float64, float64, colony.Generation]
	Listener    = colony.Listener[Base, string, float64, float64, colony.Generation]
)

// Transcribe reads a sequence into its letter string. An empty sequence
// does not transcribe.
func Transcribe(seq Sequence, _ genetics.Locus) (genetics.Allele[string], bool) {
	if len(seq) == 0 {
		return genetics.Allele[string]{}, false
	}
	letters := make([]byte, 0, len(seq))
	for _, base := range seq {
		letters = append(letters, base.String()[0])
	}
	return genetics.Allele[string]{Value: string(letters)}, true
}

// Express surfaces a gene as its GC content, averaged across alleles. The
// value lands in [0, 1]; a gene with no sequence data yields no trait.
func Express(c genetics.Characteristic, gene genetics.Gene[string]) (genetics.Trait[float64], bool) {
	total, gc := 0.0, 0.0
	for _, allele := range gene.Alleles {
		for _, letter := range allele.Value {
			total++
			if letter == 'G' || letter == 'C' {
				gc++
			}
		}
	}
	if total == 0 {
		return genetics.Trait[float64]{}, false
	}
	return genetics.Trait[float64]{Characteristic: c, Value: gc / total}, true
}

// Fitness is the default fitness function: proximity scores closeness of the
// trait to the eco value on a unit scale, threshold scores a hard cutoff.
func Fitness(trait float64, kind ecology.FunctionKind, eco float64) ecology.Fitness {
	switch kind {
	case ecology.FunctionThreshold:
		if trait >= eco {
			return 1
		}
		return 0
	default:
		score := 1 - math.Abs(trait-eco)
		if score < 0 {
			score = 0
		}
		return ecology.Fitness(score)
	}
}

// Adapt is the default adapter. It is total except for non-finite trait
// values, which it rejects so that partiality never reaches the fitness
// function.
func Adapt(factor Factor, trait genetics.Trait[float64], fn ecology.FitnessFunction[float64, float64]) (ecology.Adaptation[float64], bool) {
	if math.IsNaN(trait.Value) || math.IsInf(trait.Value, 0) {
		return ecology.Adaptation[float64]{}, false
	}
	return ecology.Adaptation[float64]{Factor: factor, Fitness: fn(trait.Value, ecology.FunctionProximity, factor.Value)}, true
}

// NewGenome builds a natural-DNA genome over the named loci.
func NewGenome(loci []string, sequenceLength int, sexual bool) Genome {
	characteristics := make([]genetics.Characteristic, 0, len(loci))
	for _, name := range loci {
		characteristics = append(characteristics, genetics.Characteristic{Name: name})
	}
	return Genome{
		Loci:           characteristics,
		Ploidy:         Diploid,
		Sexual:         sexual,
		SequenceLength: sequenceLength,
		Alphabet:       Alphabet,
		Transcriber:    Transcribe,
		Expresser:      Express,
	}
}

// NewEnvironment builds an environment over named eco-factor values using
// the default adapter and fitness function.
func NewEnvironment(name string, factors map[string]float64) Environment {
	mapped := make(map[string]Factor, len(factors))
	for factorName, value := range factors {
		mapped[factorName] = Factor{Name: factorName, Value: value}
	}
	return Environment{
		Name: name,
		Ecology: Ecology{
			Factors:  mapped,
			Adapter:  Adapt,
			Function: Fitness,
		},
	}
}
