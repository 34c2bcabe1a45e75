// Package evo contains the coevolutionary engine: the minimal-criterion
// evaluators that decide viability against the opposing population, and the
// queueing evolutionary algorithm that advances one population by a batch of
// offspring per generation with age-based eviction.
package evo

import (
	"context"
	"math/rand"
	"sync/atomic"

	"symbion/internal/genotype"
)

// Genome is the population member contract shared by both genome kinds.
type Genome interface {
	Identity() genotype.GenomeID
	BirthGeneration() int
	Complexity() int
	Evaluation() *genotype.EvaluationInfo
	ClusterFeatures() []float64
}

// Breeder creates seed genomes and offspring. The genotype factories satisfy
// this for their respective genome kinds; reproduction retries internally
// until the offspring decodes to a valid phenotype.
type Breeder[G Genome] interface {
	CreateGenomeList(count, birthGeneration int, rng *rand.Rand) []G
	Reproduce(parent, mate G, birthGeneration int, rng *rand.Rand) (G, error)
}

// BatchEvaluator judges a whole offspring batch against the opposing
// population, setting each genome's EvaluationInfo. A failed criterion is a
// normal outcome; only malformed phenotypes or I/O faults return an error.
type BatchEvaluator[G Genome] interface {
	EvaluateBatch(ctx context.Context, batch []G, generation int) error
	Reset()
}

// EvaluationCounter is the run-wide trial counter shared by both
// populations' evaluators.
type EvaluationCounter struct {
	n atomic.Int64
}

// Next increments the counter and returns the new trial ordinal.
func (c *EvaluationCounter) Next() int64 { return c.n.Add(1) }

// Count reports the trials recorded so far.
func (c *EvaluationCounter) Count() int64 { return c.n.Load() }
