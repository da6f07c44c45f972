// Package genetics models raw genetic material and the rules that turn it
// into observable traits: a Nucleus of base sequences is transcribed into a
// Genotype of genes and expressed into a Phenotype of traits.
package genetics

// Sequence is an ordered run of bases.
type Sequence[B comparable] []B

// SequenceSet holds the homologous copies of one locus; its length equals
// the genome's ploidy.
type SequenceSet[B comparable] []Sequence[B]

// Nucleus is the full genetic material of one organism, one sequence set per
// locus in karyotype order.
type Nucleus[B comparable] []SequenceSet[B]

// Locus is a position within the karyotype.
type Locus int

// Characteristic names one dimension linking trait space to eco space.
// Names are unique within an ecology's factor mapping.
type Characteristic struct {
	Name string `json:"name"`
}

// Allele is one transcribed value at a locus copy.
type Allele[G any] struct {
	Value G `json:"value"`
}

// Gene is one expressed genetic locus; the allele count equals the genome's
// ploidy.
type Gene[G any] struct {
	Characteristic Characteristic `json:"characteristic"`
	Alleles        []Allele[G]    `json:"alleles"`
}

// Genotype is the ordered set of genes derived from a Nucleus.
type Genotype[G any] []Gene[G]

// Trait is one observable characteristic value.
type Trait[T any] struct {
	Characteristic Characteristic `json:"characteristic"`
	Value          T              `json:"value"`
}

// Phenotype is the ordered set of traits expressed from a Genotype. The ID
// is the identity of the organism the phenotype belongs to; adaptatypes
// derive their identity from it.
type Phenotype[T any] struct {
	ID     string     `json:"id"`
	Traits []Trait[T] `json:"traits"`
}

// Trait returns the trait for the named characteristic, if present.
func (p Phenotype[T]) Trait(name string) (Trait[T], bool) {
	for _, trait := range p.Traits {
		if trait.Characteristic.Name == name {
			return trait, true
		}
	}
	return Trait[T]{}, false
}

// CloneNucleus returns a deep copy of a nucleus.
func CloneNucleus[B comparable](n Nucleus[B]) Nucleus[B] {
	if n == nil {
		return nil
	}
	out := make(Nucleus[B], len(n))
	for i, set := range n {
		copied := make(SequenceSet[B], len(set))
		for j, seq := range set {
			copied[j] = append(Sequence[B](nil), seq...)
		}
		out[i] = copied
	}
	return out
}
