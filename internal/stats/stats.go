// Package stats summarizes population state at generation boundaries for
// monitoring and persistence.
package stats

import (
	"gonum.org/v1/gonum/stat"

	"symbion/internal/evo"
)

// PopulationStats is a point-in-time summary of one population.
type PopulationStats struct {
	Population       string  `json:"population"`
	Generation       int     `json:"generation"`
	Size             int     `json:"size"`
	MeanComplexity   float64 `json:"mean_complexity"`
	MaxComplexity    int     `json:"max_complexity"`
	StdDevComplexity float64 `json:"stddev_complexity"`
	MeanAge          float64 `json:"mean_age"`
	MeanEvaluations  float64 `json:"mean_evaluations"`
	ViableFraction   float64 `json:"viable_fraction"`
}

// Summarize computes population statistics at the given generation. Age is
// measured in generations since each member's birth.
func Summarize[G evo.Genome](name string, generation int, population []G) PopulationStats {
	out := PopulationStats{
		Population: name,
		Generation: generation,
		Size:       len(population),
	}
	if len(population) == 0 {
		return out
	}

	complexity := make([]float64, len(population))
	ages := make([]float64, len(population))
	evaluations := make([]float64, len(population))
	viable := 0
	for i, g := range population {
		c := g.Complexity()
		complexity[i] = float64(c)
		if c > out.MaxComplexity {
			out.MaxComplexity = c
		}
		ages[i] = float64(generation - g.BirthGeneration())
		evaluations[i] = float64(g.Evaluation().EvaluationCount)
		if g.Evaluation().IsViable {
			viable++
		}
	}

	out.MeanComplexity = stat.Mean(complexity, nil)
	if len(complexity) > 1 {
		out.StdDevComplexity = stat.StdDev(complexity, nil)
	}
	out.MeanAge = stat.Mean(ages, nil)
	out.MeanEvaluations = stat.Mean(evaluations, nil)
	out.ViableFraction = float64(viable) / float64(len(population))
	return out
}
