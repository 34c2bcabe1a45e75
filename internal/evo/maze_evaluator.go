package evo

import (
	"context"
	"fmt"
	"sync"

	"symbion/internal/datalog"
	"symbion/internal/genotype"
	"symbion/internal/maze"
	"symbion/internal/nn"
	"symbion/internal/scape"
)

// AgentPhenome is one decoded member of the opposing agent population. The
// network is a snapshot copy owned by the evaluator; workers clone it again
// per trial so concurrent evaluations never share activation state.
type AgentPhenome struct {
	ID  genotype.GenomeID
	Net *nn.Network
}

type MazeEvaluatorConfig struct {
	// MinimumSolvedBy and MinimumFailedBy form the maze's minimal
	// criterion: at least this many opposing agents must solve it AND at
	// least this many must fail it, so accepted mazes are neither trivial
	// nor impossible.
	MinimumSolvedBy int
	MinimumFailedBy int
	// Workers bounds batch evaluation parallelism; <= 0 means 1.
	Workers int
	// RunPhase and Population tag trial log rows.
	RunPhase   string
	Population string
}

// MazeEvaluator decides maze viability by running the candidate maze
// against the opposing agent phenotypes.
type MazeEvaluator struct {
	cfg         MazeEvaluatorConfig
	decodeCfg   maze.DecodeConfig
	worldCfg    scape.WorldConfig
	evaluations *EvaluationCounter
	trials      datalog.TrialLogger

	mu        sync.RWMutex
	opponents []AgentPhenome
}

func NewMazeEvaluator(cfg MazeEvaluatorConfig, decodeCfg maze.DecodeConfig, worldCfg scape.WorldConfig, evaluations *EvaluationCounter, trials datalog.TrialLogger) (*MazeEvaluator, error) {
	if cfg.MinimumSolvedBy <= 0 {
		return nil, fmt.Errorf("minimum solved-by count must be > 0, got %d", cfg.MinimumSolvedBy)
	}
	if cfg.MinimumFailedBy < 0 {
		return nil, fmt.Errorf("minimum failed-by count must be >= 0, got %d", cfg.MinimumFailedBy)
	}
	if evaluations == nil {
		return nil, fmt.Errorf("evaluation counter is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if trials == nil {
		trials = datalog.NopTrialLogger{}
	}
	return &MazeEvaluator{
		cfg:         cfg,
		decodeCfg:   decodeCfg,
		worldCfg:    worldCfg,
		evaluations: evaluations,
		trials:      trials,
	}, nil
}

// RefreshOpponents replaces the opposing agent snapshot. The caller hands
// over cloned networks; the evaluator takes ownership of the slice.
func (e *MazeEvaluator) RefreshOpponents(opponents []AgentPhenome) {
	e.mu.Lock()
	e.opponents = opponents
	e.mu.Unlock()
}

// Opponents returns the current opposing snapshot, for coupling checks.
func (e *MazeEvaluator) Opponents() []AgentPhenome {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.opponents
}

// EvaluateBatch judges the whole offspring batch in parallel against a
// point-in-time snapshot of the opposing agents.
func (e *MazeEvaluator) EvaluateBatch(ctx context.Context, batch []*genotype.MazeGenome, generation int) error {
	if len(batch) == 0 {
		return nil
	}
	opponents := e.Opponents()

	type result struct {
		idx int
		err error
	}
	jobs := make(chan int)
	results := make(chan result, len(batch))

	workerCount := e.cfg.Workers
	if workerCount > len(batch) {
		workerCount = len(batch)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: idx, err: err}
					continue
				}
				results <- result{idx: idx, err: e.evaluateOne(batch[idx], opponents, generation)}
			}
		}()
	}

	for i := range batch {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(results)

	for res := range results {
		if res.err != nil {
			return fmt.Errorf("evaluate maze %d: %w", batch[res.idx].ID, res.err)
		}
	}
	return nil
}

func (e *MazeEvaluator) evaluateOne(candidate *genotype.MazeGenome, opponents []AgentPhenome, generation int) error {
	structure, err := maze.Decode(candidate, e.decodeCfg)
	if err != nil {
		return fmt.Errorf("decode phenotype: %w", err)
	}

	eval := candidate.Evaluation()
	eval.OpponentsSolved = 0
	eval.OpponentsFailed = 0

	solved := 0
	failed := 0
	rows := make([]datalog.TrialRow, 0, len(opponents))
	for _, opponent := range opponents {
		if solved >= e.cfg.MinimumSolvedBy && failed >= e.cfg.MinimumFailedBy {
			break
		}
		world := scape.NewWorld(structure, e.worldCfg, nil)
		_, goalReached, err := world.RunFitnessTrial(opponent.Net.Clone())
		if err != nil {
			return err
		}
		ordinal := e.evaluations.Next()
		eval.EvaluationCount++
		if goalReached {
			solved++
		} else {
			failed++
		}
		rows = append(rows, datalog.TrialRow{
			RunPhase:   e.cfg.RunPhase,
			Population: e.cfg.Population,
			Generation: generation,
			Evaluation: ordinal,
			GenomeID:   uint64(candidate.ID),
			OpponentID: uint64(opponent.ID),
			Solved:     goalReached,
			Counted:    goalReached,
			Distance:   world.DistanceToTarget(),
			Timesteps:  world.ElapsedTimesteps(),
		})
	}

	eval.OpponentsSolved = solved
	eval.OpponentsFailed = failed
	eval.IsViable = solved >= e.cfg.MinimumSolvedBy && failed >= e.cfg.MinimumFailedBy

	// Rows are logged only after the verdict, so every trial row carries
	// the candidate's end-of-evaluation viability.
	for _, row := range rows {
		row.Viable = eval.IsViable
		if err := e.trials.Log(row); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops the opposing snapshot.
func (e *MazeEvaluator) Reset() {
	e.mu.Lock()
	e.opponents = nil
	e.mu.Unlock()
}
