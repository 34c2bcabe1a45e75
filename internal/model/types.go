// Package model defines the persistent record types for coevolution runs:
// run summaries, population snapshots, generation history, and maze usage.
package model

import (
	"time"

	"symbion/internal/genotype"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunSummary is the per-run header record. It is written when a run starts
// and updated as the run progresses and finishes.
type RunSummary struct {
	VersionedRecord
	RunID             string    `json:"run_id"`
	State             string    `json:"state"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	Evaluations       int64     `json:"evaluations"`
	BootstrapRestarts int       `json:"bootstrap_restarts"`
	AgentGenerations  int       `json:"agent_generations"`
	MazeGenerations   int       `json:"maze_generations"`
}

// PopulationSnapshot preserves one population at a generation boundary.
// Exactly one of Agents or Mazes is set, matching the Population tag.
type PopulationSnapshot struct {
	VersionedRecord
	RunID      string                  `json:"run_id"`
	Population string                  `json:"population"`
	Generation int                     `json:"generation"`
	Agents     []*genotype.AgentGenome `json:"agents,omitempty"`
	Mazes      []*genotype.MazeGenome  `json:"mazes,omitempty"`
}

// GenerationRecord is one row of a population's generation history.
type GenerationRecord struct {
	Population     string  `json:"population"`
	Generation     int     `json:"generation"`
	Evaluations    int64   `json:"evaluations"`
	BatchSize      int     `json:"batch_size"`
	Accepted       int     `json:"accepted"`
	PopulationSize int     `json:"population_size"`
	MeanComplexity float64 `json:"mean_complexity"`
	MaxComplexity  int     `json:"max_complexity"`
	ViableFraction float64 `json:"viable_fraction"`
}

// MazeUsageRecord counts how many agents solved a maze, for resource-limit
// reporting.
type MazeUsageRecord struct {
	MazeID    uint64 `json:"maze_id"`
	Successes int64  `json:"successes"`
}
