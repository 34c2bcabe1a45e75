// Package genotype holds the evolvable genome representations for both
// coevolving populations: neural-network controllers (agents) and maze
// layouts (environments). Genome identifiers are allocated from a shared
// monotonic sequence so every genome created during a run is unique across
// both populations.
package genotype

import "sync/atomic"

type GenomeID uint64

// Sequence hands out strictly increasing genome identifiers. Safe for
// concurrent use by both population factories.
type Sequence struct {
	last atomic.Uint64
}

func NewSequence() *Sequence {
	return &Sequence{}
}

func (s *Sequence) Next() GenomeID {
	return GenomeID(s.last.Add(1))
}

// Current returns the most recently issued identifier.
func (s *Sequence) Current() GenomeID {
	return GenomeID(s.last.Load())
}

// Advance raises the sequence to at least id, so identifiers issued after
// adopting a stored population never collide with the adopted genomes.
func (s *Sequence) Advance(id GenomeID) {
	for {
		current := s.last.Load()
		if current >= uint64(id) || s.last.CompareAndSwap(current, uint64(id)) {
			return
		}
	}
}

// EvaluationInfo records the outcome of minimal-criterion evaluation for a
// genome. It is written by the evaluator that judged the genome and read by
// the queueing engine's acceptance logic.
type EvaluationInfo struct {
	IsViable        bool      `json:"is_viable"`
	Fitness         float64   `json:"fitness"`
	Behavior        []float64 `json:"behavior,omitempty"`
	EvaluationCount int       `json:"evaluation_count"`
	OpponentsSolved int       `json:"opponents_solved"`
	OpponentsFailed int       `json:"opponents_failed"`
}
