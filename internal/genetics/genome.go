package genetics

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrTranscription marks a failed required locus; a partial genotype is not
// well-formed for downstream expression, so the whole construction aborts.
var ErrTranscription = errors.New("transcription failed")

// Transcriber derives one allele from one homologous sequence copy. A false
// return means the locus does not transcribe.
type Transcriber[B comparable, G any] func(seq Sequence[B], locus Locus) (Allele[G], bool)

// Expresser derives one trait from one gene. A false return means the gene
// surfaces no observable trait, which is not an error.
type Expresser[G, T any] func(c Characteristic, gene Gene[G]) (Trait[T], bool)

// Genome binds the transcription and expression rules for a lineage. It is
// shared, read-only configuration: stateless with respect to organisms.
type Genome[B comparable, G, T any] struct {
	Loci           []Characteristic
	Ploidy         int
	Sexual         bool
	SequenceLength int
	Alphabet       []B
	Transcriber    Transcriber[B, G]
	Expresser      Expresser[G, T]
}

func (g Genome[B, G, T]) Validate() error {
	if len(g.Loci) == 0 {
		return fmt.Errorf("genome requires at least one locus")
	}
	seen := make(map[string]struct{}, len(g.Loci))
	for i, c := range g.Loci {
		if c.Name == "" {
			return fmt.Errorf("locus name is required at index %d", i)
		}
		if _, exists := seen[c.Name]; exists {
			return fmt.Errorf("duplicate locus: %s", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	if g.Ploidy <= 0 {
		return fmt.Errorf("ploidy must be > 0")
	}
	if g.SequenceLength <= 0 {
		return fmt.Errorf("sequence length must be > 0")
	}
	if len(g.Alphabet) == 0 {
		return fmt.Errorf("alphabet is required")
	}
	if g.Transcriber == nil {
		return fmt.Errorf("transcriber is required")
	}
	if g.Expresser == nil {
		return fmt.Errorf("expresser is required")
	}
	return nil
}

// Transcribe applies the transcriber per locus copy. Any locus that fails to
// transcribe aborts the whole genotype construction. Deterministic given an
// identical nucleus.
func (g Genome[B, G, T]) Transcribe(n Nucleus[B]) (Genotype[G], error) {
	if len(n) != len(g.Loci) {
		return nil, fmt.Errorf("karyotype mismatch: got=%d want=%d: %w", len(n), len(g.Loci), ErrTranscription)
	}

	genotype := make(Genotype[G], 0, len(g.Loci))
	for i, c := range g.Loci {
		set := n[i]
		if len(set) != g.Ploidy {
			return nil, fmt.Errorf("locus %s: ploidy mismatch: got=%d want=%d: %w", c.Name, len(set), g.Ploidy, ErrTranscription)
		}
		alleles := make([]Allele[G], 0, g.Ploidy)
		for _, seq := range set {
			allele, ok := g.Transcriber(seq, Locus(i))
			if !ok {
				return nil, fmt.Errorf("locus %s does not transcribe: %w", c.Name, ErrTranscription)
			}
			alleles = append(alleles, allele)
		}
		genotype = append(genotype, Gene[G]{Characteristic: c, Alleles: alleles})
	}
	return genotype, nil
}

// Express applies the expresser per gene. Genes whose expresser yields no
// trait are skipped: the organism simply lacks that trait, so a phenotype
// shorter than its genotype is valid.
func (g Genome[B, G, T]) Express(id string, genotype Genotype[G]) Phenotype[T] {
	traits := make([]Trait[T], 0, len(genotype))
	for _, gene := range genotype {
		trait, ok := g.Expresser(gene.Characteristic, gene)
		if !ok {
			continue
		}
		traits = append(traits, trait)
	}
	return Phenotype[T]{ID: id, Traits: traits}
}

// Recombine samples a fresh nucleus from the random source. Draw order is
// fixed (locus, then copy, then position) so that a seeded rand.Rand yields
// reproducible material.
func (g Genome[B, G, T]) Recombine(rng *rand.Rand) Nucleus[B] {
	nucleus := make(Nucleus[B], 0, len(g.Loci))
	for range g.Loci {
		set := make(SequenceSet[B], 0, g.Ploidy)
		for c := 0; c < g.Ploidy; c++ {
			seq := make(Sequence[B], g.SequenceLength)
			for p := range seq {
				seq[p] = g.Alphabet[rng.Intn(len(g.Alphabet))]
			}
			set = append(set, seq)
		}
		nucleus = append(nucleus, set)
	}
	return nucleus
}
