package storage

import (
	"context"

	"symbion/internal/model"
)

// Store defines the persistence operations for coevolution run artifacts.
type Store interface {
	Init(ctx context.Context) error
	SaveRunSummary(ctx context.Context, summary model.RunSummary) error
	GetRunSummary(ctx context.Context, runID string) (model.RunSummary, bool, error)
	ListRunSummaries(ctx context.Context) ([]model.RunSummary, error)
	SavePopulationSnapshot(ctx context.Context, snapshot model.PopulationSnapshot) error
	GetPopulationSnapshot(ctx context.Context, runID, population string) (model.PopulationSnapshot, bool, error)
	SaveGenerationHistory(ctx context.Context, runID, population string, history []model.GenerationRecord) error
	GetGenerationHistory(ctx context.Context, runID, population string) ([]model.GenerationRecord, bool, error)
	SaveMazeUsage(ctx context.Context, runID string, usage []model.MazeUsageRecord) error
	GetMazeUsage(ctx context.Context, runID string) ([]model.MazeUsageRecord, bool, error)
}
