package scape

import (
	"fmt"
	"sync"
	"sync/atomic"

	"symbion/internal/genotype"
	"symbion/internal/maze"
)

type mazeEntry struct {
	structure *maze.Structure
	successes atomic.Int64
}

// MazeUsage is a read-only view of one maze's solve counter, surfaced for
// persistence and monitoring.
type MazeUsage struct {
	GenomeID  genotype.GenomeID `json:"genome_id"`
	Successes int64             `json:"successes"`
}

// MazeWorldFactory bridges the current maze population to simulation-ready
// worlds. Decoded structures are cached per maze genome id and evicted when
// the genome leaves the population, so the cache key set always mirrors the
// opposing population. Success counters survive reconfiguration for mazes
// that remain in the population.
type MazeWorldFactory struct {
	worldCfg WorldConfig

	mu      sync.RWMutex
	order   []genotype.GenomeID
	entries map[genotype.GenomeID]*mazeEntry
}

func NewMazeWorldFactory(worldCfg WorldConfig) *MazeWorldFactory {
	return &MazeWorldFactory{
		worldCfg: worldCfg,
		entries:  make(map[genotype.GenomeID]*mazeEntry),
	}
}

// SetMazeConfigurations replaces the usable maze set with the incoming
// structures: new genomes are inserted, genomes absent from the incoming
// set are evicted. Safe to call while evaluations hold handles from an
// earlier snapshot; their counters simply stop mattering after eviction.
func (f *MazeWorldFactory) SetMazeConfigurations(structures []*maze.Structure) {
	f.mu.Lock()
	defer f.mu.Unlock()

	incoming := make(map[genotype.GenomeID]struct{}, len(structures))
	order := make([]genotype.GenomeID, 0, len(structures))
	for _, s := range structures {
		incoming[s.GenomeID] = struct{}{}
		order = append(order, s.GenomeID)
		if _, cached := f.entries[s.GenomeID]; !cached {
			f.entries[s.GenomeID] = &mazeEntry{structure: s}
		}
	}
	for id := range f.entries {
		if _, keep := incoming[id]; !keep {
			delete(f.entries, id)
		}
	}
	f.order = order
}

func (f *MazeWorldFactory) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.order)
}

func (f *MazeWorldFactory) MazeID(index int) (genotype.GenomeID, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if index < 0 || index >= len(f.order) {
		return 0, fmt.Errorf("maze index out of range: %d", index)
	}
	return f.order[index], nil
}

// CreateMazeNavigationWorld builds a fresh world for the cached maze at
// index. Safe to call concurrently.
func (f *MazeWorldFactory) CreateMazeNavigationWorld(index int, characterization BehaviorCharacterization) (*World, error) {
	entry, err := f.entryAt(index)
	if err != nil {
		return nil, err
	}
	return NewWorld(entry.structure, f.worldCfg, characterization), nil
}

// CreateAdHocWorld builds a world for a structure outside the cache, used
// when evaluating candidate mazes that are not (yet) population members.
func (f *MazeWorldFactory) CreateAdHocWorld(structure *maze.Structure, characterization BehaviorCharacterization) *World {
	return NewWorld(structure, f.worldCfg, characterization)
}

// IsMazeUnderResourceLimit reports whether further successful navigations
// of the maze still count toward minimal-criterion satisfaction. A limit of
// zero or below means unlimited.
func (f *MazeWorldFactory) IsMazeUnderResourceLimit(index, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	entry, err := f.entryAt(index)
	if err != nil {
		return false, err
	}
	return entry.successes.Load() < int64(limit), nil
}

// IncrementSuccessfulMazeNavigationCount atomically records one successful
// solve of the maze at index; many agent evaluations update the same
// counter concurrently.
func (f *MazeWorldFactory) IncrementSuccessfulMazeNavigationCount(index int) error {
	entry, err := f.entryAt(index)
	if err != nil {
		return err
	}
	entry.successes.Add(1)
	return nil
}

// Usage snapshots every cached maze's solve counter in population order.
func (f *MazeWorldFactory) Usage() []MazeUsage {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]MazeUsage, 0, len(f.order))
	for _, id := range f.order {
		entry := f.entries[id]
		out = append(out, MazeUsage{GenomeID: id, Successes: entry.successes.Load()})
	}
	return out
}

// Reset discards all cached configurations and counters.
func (f *MazeWorldFactory) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = nil
	f.entries = make(map[genotype.GenomeID]*mazeEntry)
}

func (f *MazeWorldFactory) entryAt(index int) (*mazeEntry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if index < 0 || index >= len(f.order) {
		return nil, fmt.Errorf("maze index out of range: %d", index)
	}
	return f.entries[f.order[index]], nil
}

// MazeSet is a point-in-time view of the usable maze population. An
// evaluation pass captures one set up front and addresses mazes through it,
// so reconfiguring the factory mid-pass never redirects an in-flight trial
// to a different maze. Counters are shared with the factory; updates to a
// maze evicted after the capture stop mattering once it leaves the
// population.
type MazeSet struct {
	worldCfg WorldConfig
	ids      []genotype.GenomeID
	entries  []*mazeEntry
}

// Snapshot captures the current maze set in population order.
func (f *MazeWorldFactory) Snapshot() *MazeSet {
	f.mu.RLock()
	defer f.mu.RUnlock()
	set := &MazeSet{
		worldCfg: f.worldCfg,
		ids:      append([]genotype.GenomeID(nil), f.order...),
		entries:  make([]*mazeEntry, len(f.order)),
	}
	for i, id := range f.order {
		set.entries[i] = f.entries[id]
	}
	return set
}

func (s *MazeSet) Count() int { return len(s.entries) }

// MazeID returns the genome id of the maze at index.
func (s *MazeSet) MazeID(index int) genotype.GenomeID { return s.ids[index] }

// CreateMazeNavigationWorld builds a fresh world for the captured maze at
// index. Safe to call concurrently.
func (s *MazeSet) CreateMazeNavigationWorld(index int, characterization BehaviorCharacterization) *World {
	return NewWorld(s.entries[index].structure, s.worldCfg, characterization)
}

// IsMazeUnderResourceLimit reports whether further successful navigations
// of the captured maze still count toward minimal-criterion satisfaction.
// A limit of zero or below means unlimited.
func (s *MazeSet) IsMazeUnderResourceLimit(index, limit int) bool {
	if limit <= 0 {
		return true
	}
	return s.entries[index].successes.Load() < int64(limit)
}

// IncrementSuccessfulMazeNavigationCount atomically records one successful
// solve of the captured maze at index.
func (s *MazeSet) IncrementSuccessfulMazeNavigationCount(index int) {
	s.entries[index].successes.Add(1)
}
