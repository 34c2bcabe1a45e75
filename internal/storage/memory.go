package storage

import (
	"context"
	"sort"
	"sync"

	"symbion/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunSummary
	snapshots   map[string]model.PopulationSnapshot
	generations map[string][]model.GenerationRecord
	mazeUsage   map[string][]model.MazeUsageRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunSummary)
	s.snapshots = make(map[string]model.PopulationSnapshot)
	s.generations = make(map[string][]model.GenerationRecord)
	s.mazeUsage = make(map[string][]model.MazeUsageRecord)
	return nil
}

func (s *MemoryStore) SaveRunSummary(_ context.Context, summary model.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[summary.RunID] = summary
	return nil
}

func (s *MemoryStore) GetRunSummary(_ context.Context, runID string) (model.RunSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.runs[runID]
	return summary, ok, nil
}

func (s *MemoryStore) ListRunSummaries(_ context.Context) ([]model.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]model.RunSummary, 0, len(s.runs))
	for _, summary := range s.runs {
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].StartedAt.Equal(summaries[j].StartedAt) {
			return summaries[i].RunID < summaries[j].RunID
		}
		return summaries[i].StartedAt.Before(summaries[j].StartedAt)
	})
	return summaries, nil
}

// SavePopulationSnapshot round-trips the snapshot through the codec so the
// stored genomes detach from the live population.
func (s *MemoryStore) SavePopulationSnapshot(_ context.Context, snapshot model.PopulationSnapshot) error {
	payload, err := EncodePopulationSnapshot(snapshot)
	if err != nil {
		return err
	}
	detached, err := DecodePopulationSnapshot(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snapshotKey(snapshot.RunID, snapshot.Population)] = detached
	return nil
}

func (s *MemoryStore) GetPopulationSnapshot(_ context.Context, runID, population string) (model.PopulationSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[snapshotKey(runID, population)]
	return snapshot, ok, nil
}

func (s *MemoryStore) SaveGenerationHistory(_ context.Context, runID, population string, history []model.GenerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.GenerationRecord, len(history))
	copy(copied, history)
	s.generations[snapshotKey(runID, population)] = copied
	return nil
}

func (s *MemoryStore) GetGenerationHistory(_ context.Context, runID, population string) ([]model.GenerationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.generations[snapshotKey(runID, population)]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.GenerationRecord, len(history))
	copy(copied, history)
	return copied, true, nil
}

func (s *MemoryStore) SaveMazeUsage(_ context.Context, runID string, usage []model.MazeUsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.MazeUsageRecord, len(usage))
	copy(copied, usage)
	s.mazeUsage[runID] = copied
	return nil
}

func (s *MemoryStore) GetMazeUsage(_ context.Context, runID string) ([]model.MazeUsageRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usage, ok := s.mazeUsage[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.MazeUsageRecord, len(usage))
	copy(copied, usage)
	return copied, true, nil
}

func snapshotKey(runID, population string) string {
	return runID + "/" + population
}
