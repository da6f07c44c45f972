package genetics

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func testGenome() Genome[byte, string, int] {
	return Genome[byte, string, int]{
		Loci:           []Characteristic{{Name: "height"}, {Name: "color"}},
		Ploidy:         2,
		SequenceLength: 4,
		Alphabet:       []byte{'a', 'b'},
		Transcriber: func(seq Sequence[byte], _ Locus) (Allele[string], bool) {
			if len(seq) == 0 {
				return Allele[string]{}, false
			}
			return Allele[string]{Value: string(seq)}, true
		},
		Expresser: func(c Characteristic, gene Gene[string]) (Trait[int], bool) {
			total := 0
			for _, allele := range gene.Alleles {
				total += len(allele.Value)
			}
			return Trait[int]{Characteristic: c, Value: total}, true
		},
	}
}

func TestGenomeValidate(t *testing.T) {
	if err := testGenome().Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	broken := testGenome()
	broken.Loci = append(broken.Loci, Characteristic{Name: "height"})
	if err := broken.Validate(); err == nil {
		t.Fatal("expected duplicate locus error")
	}

	broken = testGenome()
	broken.Ploidy = 0
	if err := broken.Validate(); err == nil {
		t.Fatal("expected ploidy error")
	}
}

func TestTranscribeDeterministic(t *testing.T) {
	genome := testGenome()
	nucleus := genome.Recombine(rand.New(rand.NewSource(7)))

	first, err := genome.Transcribe(nucleus)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	second, err := genome.Transcribe(nucleus)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical genotypes for identical nucleus")
	}
	if len(first) != len(genome.Loci) {
		t.Fatalf("genotype length: got=%d want=%d", len(first), len(genome.Loci))
	}
	for _, gene := range first {
		if len(gene.Alleles) != genome.Ploidy {
			t.Fatalf("allele count: got=%d want=%d", len(gene.Alleles), genome.Ploidy)
		}
	}
}

func TestTranscribeFailsWhole(t *testing.T) {
	genome := testGenome()
	nucleus := genome.Recombine(rand.New(rand.NewSource(7)))
	nucleus[1][0] = Sequence[byte]{}

	if _, err := genome.Transcribe(nucleus); !errors.Is(err, ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
}

func TestTranscribeKaryotypeMismatch(t *testing.T) {
	genome := testGenome()
	nucleus := genome.Recombine(rand.New(rand.NewSource(7)))

	if _, err := genome.Transcribe(nucleus[:1]); !errors.Is(err, ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}

	nucleus[0] = nucleus[0][:1]
	if _, err := genome.Transcribe(nucleus); !errors.Is(err, ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
}

func TestExpressSkipsSilently(t *testing.T) {
	genome := testGenome()
	genome.Expresser = func(c Characteristic, gene Gene[string]) (Trait[int], bool) {
		if c.Name == "color" {
			return Trait[int]{}, false
		}
		return Trait[int]{Characteristic: c, Value: 1}, true
	}

	nucleus := genome.Recombine(rand.New(rand.NewSource(7)))
	genotype, err := genome.Transcribe(nucleus)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}

	phenotype := genome.Express("org-1", genotype)
	if phenotype.ID != "org-1" {
		t.Fatalf("phenotype id: got=%s", phenotype.ID)
	}
	if len(phenotype.Traits) != 1 {
		t.Fatalf("trait count: got=%d want=1", len(phenotype.Traits))
	}
	if _, ok := phenotype.Trait("color"); ok {
		t.Fatal("expected color trait to be absent")
	}
	if _, ok := phenotype.Trait("height"); !ok {
		t.Fatal("expected height trait to be present")
	}
}

func TestRecombineReproducible(t *testing.T) {
	genome := testGenome()

	first := genome.Recombine(rand.New(rand.NewSource(11)))
	second := genome.Recombine(rand.New(rand.NewSource(11)))
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical nuclei for identical seed")
	}

	if len(first) != len(genome.Loci) {
		t.Fatalf("karyotype count: got=%d want=%d", len(first), len(genome.Loci))
	}
	for _, set := range first {
		if len(set) != genome.Ploidy {
			t.Fatalf("ploidy: got=%d want=%d", len(set), genome.Ploidy)
		}
		for _, seq := range set {
			if len(seq) != genome.SequenceLength {
				t.Fatalf("sequence length: got=%d want=%d", len(seq), genome.SequenceLength)
			}
		}
	}
}

func TestCloneNucleusIsIndependent(t *testing.T) {
	genome := testGenome()
	original := genome.Recombine(rand.New(rand.NewSource(3)))

	clone := CloneNucleus(original)
	if !reflect.DeepEqual(original, clone) {
		t.Fatal("expected equal clone")
	}
	clone[0][0][0] = 'z'
	if reflect.DeepEqual(original, clone) {
		t.Fatal("expected clone mutation to leave original untouched")
	}
}
