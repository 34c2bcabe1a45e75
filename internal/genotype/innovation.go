package genotype

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// InnovationTable allocates structural innovation numbers and de-duplicates
// them by structural signature, so the same topological change discovered in
// two lineages receives the same number. Safe for concurrent mutation calls.
type InnovationTable struct {
	last  atomic.Uint64
	known sync.Map
}

// NewInnovationTable reserves identifiers up to base for pre-assigned
// structures (the fixed sensor and actuator nodes of seed genomes).
func NewInnovationTable(base uint64) *InnovationTable {
	t := &InnovationTable{}
	t.last.Store(base)
	return t
}

func (t *InnovationTable) signatureFor(kind string, from, to uint64) string {
	return fmt.Sprintf("%s:%d>%d", kind, from, to)
}

// ConnectionInnovation returns the innovation number for a connection between
// two nodes, allocating one on first sight.
func (t *InnovationTable) ConnectionInnovation(from, to uint64) uint64 {
	return t.lookup(t.signatureFor("conn", from, to))
}

// NodeInnovation returns the innovation number for a node inserted by
// splitting the connection between from and to.
func (t *InnovationTable) NodeInnovation(from, to uint64) uint64 {
	return t.lookup(t.signatureFor("node", from, to))
}

// Advance raises the allocation floor to at least n. Used when adopting
// genomes whose innovation numbers were assigned in an earlier run.
func (t *InnovationTable) Advance(n uint64) {
	for {
		current := t.last.Load()
		if current >= n || t.last.CompareAndSwap(current, n) {
			return
		}
	}
}

func (t *InnovationTable) lookup(signature string) uint64 {
	if v, ok := t.known.Load(signature); ok {
		return v.(uint64)
	}
	candidate := t.last.Add(1)
	actual, loaded := t.known.LoadOrStore(signature, candidate)
	if loaded {
		return actual.(uint64)
	}
	return candidate
}
