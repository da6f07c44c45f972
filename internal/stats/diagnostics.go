package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"biogenesis/internal/model"
)

// GenerationCounts captures the population flow of one generation.
type GenerationCounts struct {
	Survivors  int
	Casualties int
	Seeded     int
}

// Summarize computes the fitness distribution of one evaluated generation.
// An empty fitness slice yields zeroed statistics.
func Summarize(generation int, fitnesses []float64, counts GenerationCounts) model.GenerationDiagnostics {
	diagnostics := model.GenerationDiagnostics{
		Generation: generation,
		Population: len(fitnesses),
		Survivors:  counts.Survivors,
		Casualties: counts.Casualties,
		Seeded:     counts.Seeded,
	}
	if len(fitnesses) == 0 {
		return diagnostics
	}

	diagnostics.BestFitness = floats.Max(fitnesses)
	diagnostics.MinFitness = floats.Min(fitnesses)
	diagnostics.MeanFitness = stat.Mean(fitnesses, nil)
	if len(fitnesses) > 1 {
		diagnostics.StdDev = stat.StdDev(fitnesses, nil)
	}
	return diagnostics
}

// BestByGeneration extracts the per-generation best fitness series.
func BestByGeneration(diagnostics []model.GenerationDiagnostics) []float64 {
	series := make([]float64, 0, len(diagnostics))
	for _, d := range diagnostics {
		series = append(series, d.BestFitness)
	}
	return series
}
