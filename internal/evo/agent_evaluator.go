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

// AgentDecoder turns an agent genome into its network phenotype. The agent
// genome factory satisfies this.
type AgentDecoder interface {
	Decode(g *genotype.AgentGenome) (*nn.Network, error)
}

type AgentEvaluatorConfig struct {
	// MinimumSolvedMazes is the agent's minimal criterion: solve at least
	// this many mazes from the opposing population.
	MinimumSolvedMazes int
	// MazeResourceLimit caps how many successful solves of one maze count
	// toward any agent's criterion; <= 0 means unlimited.
	MazeResourceLimit int
	// Workers bounds batch evaluation parallelism; <= 0 means 1.
	Workers int
	// RunPhase tags trial log rows ("bootstrap", "coevolution").
	RunPhase string
	// Population tags trial log rows.
	Population string
}

// AgentEvaluator decides agent viability by running the candidate against
// successively chosen mazes until the solve threshold is reached or the maze
// set is exhausted.
type AgentEvaluator struct {
	cfg         AgentEvaluatorConfig
	decoder     AgentDecoder
	worlds      *scape.MazeWorldFactory
	evaluations *EvaluationCounter
	trials      datalog.TrialLogger
}

func NewAgentEvaluator(cfg AgentEvaluatorConfig, decoder AgentDecoder, worlds *scape.MazeWorldFactory, evaluations *EvaluationCounter, trials datalog.TrialLogger) (*AgentEvaluator, error) {
	if cfg.MinimumSolvedMazes <= 0 {
		return nil, fmt.Errorf("minimum solved mazes must be > 0, got %d", cfg.MinimumSolvedMazes)
	}
	if decoder == nil {
		return nil, fmt.Errorf("agent decoder is required")
	}
	if worlds == nil {
		return nil, fmt.Errorf("maze world factory is required")
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
	return &AgentEvaluator{
		cfg:         cfg,
		decoder:     decoder,
		worlds:      worlds,
		evaluations: evaluations,
		trials:      trials,
	}, nil
}

// RefreshOpponents repoints the evaluator at the opposing maze population.
// Retained mazes keep their success counters.
func (e *AgentEvaluator) RefreshOpponents(structures []*maze.Structure) {
	e.worlds.SetMazeConfigurations(structures)
}

// EvaluateBatch judges the whole offspring batch in parallel and sets each
// genome's EvaluationInfo. Criterion failure is a normal verdict; only a
// malformed phenotype aborts.
func (e *AgentEvaluator) EvaluateBatch(ctx context.Context, batch []*genotype.AgentGenome, generation int) error {
	if len(batch) == 0 {
		return nil
	}

	// One point-in-time maze set for the whole batch. The maze EA may
	// refresh the factory concurrently; trials in flight must keep
	// addressing the mazes they started against.
	mazes := e.worlds.Snapshot()

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
				results <- result{idx: idx, err: e.evaluateOne(batch[idx], mazes, generation)}
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
			return fmt.Errorf("evaluate agent %d: %w", batch[res.idx].ID, res.err)
		}
	}
	return nil
}

func (e *AgentEvaluator) evaluateOne(candidate *genotype.AgentGenome, mazes *scape.MazeSet, generation int) error {
	net, err := e.decoder.Decode(candidate)
	if err != nil {
		return fmt.Errorf("decode phenotype: %w", err)
	}

	eval := candidate.Evaluation()
	eval.OpponentsSolved = 0
	eval.OpponentsFailed = 0
	bestFitness := 0.0
	counted := 0
	rows := make([]datalog.TrialRow, 0, mazes.Count())

	for i := 0; i < mazes.Count() && counted < e.cfg.MinimumSolvedMazes; i++ {
		world := mazes.CreateMazeNavigationWorld(i, nil)
		fitness, solved, err := world.RunFitnessTrial(net)
		if err != nil {
			return err
		}
		ordinal := e.evaluations.Next()
		eval.EvaluationCount++
		if fitness > bestFitness {
			bestFitness = fitness
		}

		countsTowardCriterion := false
		if solved {
			eval.OpponentsSolved++
			if mazes.IsMazeUnderResourceLimit(i, e.cfg.MazeResourceLimit) {
				mazes.IncrementSuccessfulMazeNavigationCount(i)
				counted++
				countsTowardCriterion = true
			}
		} else {
			eval.OpponentsFailed++
		}

		rows = append(rows, datalog.TrialRow{
			RunPhase:   e.cfg.RunPhase,
			Population: e.cfg.Population,
			Generation: generation,
			Evaluation: ordinal,
			GenomeID:   uint64(candidate.ID),
			OpponentID: uint64(mazes.MazeID(i)),
			Solved:     solved,
			Counted:    countsTowardCriterion,
			Distance:   world.DistanceToTarget(),
			Timesteps:  world.ElapsedTimesteps(),
		})
	}

	eval.Fitness = bestFitness
	eval.IsViable = counted >= e.cfg.MinimumSolvedMazes

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

// Reset drops the cached maze set and its counters.
func (e *AgentEvaluator) Reset() {
	e.worlds.Reset()
}
