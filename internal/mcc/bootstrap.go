package mcc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"symbion/internal/datalog"
	"symbion/internal/evo"
	"symbion/internal/genotype"
	"symbion/internal/maze"
	"symbion/internal/scape"
)

type SeedStatus int

const (
	SeedFound SeedStatus = iota
	SeedBudgetExceeded
)

func (s SeedStatus) String() string {
	switch s {
	case SeedFound:
		return "seed_found"
	case SeedBudgetExceeded:
		return "seed_budget_exceeded"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// SeedOutcome reports one per-maze bootstrap run. A budget-exceeded outcome
// is a normal result the caller reacts to by restarting with a fresh random
// population; it is not an error.
type SeedOutcome struct {
	Status      SeedStatus
	Solvers     []*genotype.AgentGenome
	NonSolvers  []*genotype.AgentGenome
	Population  []*genotype.AgentGenome
	Evaluations int64
}

type BootstrapConfig struct {
	// PopulationSize of the internal generational EA run per maze.
	PopulationSize int
	// SolversPerMaze agents that reach the goal are collected per maze;
	// NonSolversPerMaze agents that fail are kept too, since behavioral
	// diversity matters as much as success for seeding.
	SolversPerMaze    int
	NonSolversPerMaze int
	// TargetSolverCount unique solvers end the bootstrap.
	TargetSolverCount int
	// EvaluationBudgetPerMaze bounds one per-maze run; exceeding it yields
	// a SeedBudgetExceeded outcome.
	EvaluationBudgetPerMaze int64
	// MaxRestarts caps fresh-population restarts across the whole
	// bootstrap before giving up for good.
	MaxRestarts int
	// MaxContinuations caps the random-maze continuation loop.
	MaxContinuations int
	Seed             int64
}

func (c BootstrapConfig) validate() error {
	if c.PopulationSize <= 1 {
		return fmt.Errorf("bootstrap population size must be > 1, got %d", c.PopulationSize)
	}
	if c.SolversPerMaze <= 0 {
		return fmt.Errorf("solvers per maze must be > 0, got %d", c.SolversPerMaze)
	}
	if c.NonSolversPerMaze < 0 {
		return fmt.Errorf("non-solvers per maze must be >= 0, got %d", c.NonSolversPerMaze)
	}
	if c.TargetSolverCount <= 0 {
		return fmt.Errorf("target solver count must be > 0, got %d", c.TargetSolverCount)
	}
	if c.EvaluationBudgetPerMaze <= 0 {
		return fmt.Errorf("evaluation budget per maze must be > 0, got %d", c.EvaluationBudgetPerMaze)
	}
	return nil
}

// Bootstrap produces the first viable agent seed population by running a
// plain fitness-based generational EA against one seed maze at a time.
// Coevolution cannot start from random agents: the minimal criteria on both
// sides must already be mutually satisfiable.
type Bootstrap struct {
	cfg         BootstrapConfig
	factory     *genotype.AgentFactory
	decodeCfg   maze.DecodeConfig
	worldCfg    scape.WorldConfig
	evaluations *evo.EvaluationCounter
	trials      datalog.TrialLogger
	rng         *rand.Rand

	restarts int
}

func NewBootstrap(cfg BootstrapConfig, factory *genotype.AgentFactory, decodeCfg maze.DecodeConfig, worldCfg scape.WorldConfig, evaluations *evo.EvaluationCounter, trials datalog.TrialLogger) (*Bootstrap, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, fmt.Errorf("agent factory is required")
	}
	if evaluations == nil {
		return nil, fmt.Errorf("evaluation counter is required")
	}
	if cfg.MaxContinuations <= 0 {
		cfg.MaxContinuations = 100
	}
	if trials == nil {
		trials = datalog.NopTrialLogger{}
	}
	return &Bootstrap{
		cfg:         cfg,
		factory:     factory,
		decodeCfg:   decodeCfg,
		worldCfg:    worldCfg,
		evaluations: evaluations,
		trials:      trials,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Restarts reports how many fresh-population restarts the bootstrap needed,
// for operator visibility.
func (b *Bootstrap) Restarts() int { return b.restarts }

// EvolveSeedAgents walks the seed mazes collecting solvers and non-solvers,
// then keeps evolving on randomly chosen seed mazes until enough unique
// solvers exist. Agents duplicating an already-collected solver are removed
// from the working pool, shrinking it across iterations.
func (b *Bootstrap) EvolveSeedAgents(ctx context.Context, seedMazes []*genotype.MazeGenome) ([]*genotype.AgentGenome, []*genotype.AgentGenome, error) {
	if len(seedMazes) == 0 {
		return nil, nil, fmt.Errorf("at least one seed maze is required")
	}
	structures := make([]*maze.Structure, 0, len(seedMazes))
	for _, g := range seedMazes {
		s, err := maze.Decode(g, b.decodeCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("decode seed maze %d: %w", g.ID, err)
		}
		structures = append(structures, s)
	}

	collected := make(map[genotype.GenomeID]struct{})
	solvers := make([]*genotype.AgentGenome, 0, b.cfg.TargetSolverCount)
	nonSolvers := make([]*genotype.AgentGenome, 0, b.cfg.NonSolversPerMaze*len(structures))
	var pool []*genotype.AgentGenome

	for _, structure := range structures {
		outcome, err := b.evolveAgainstMaze(ctx, structure, nil)
		if err != nil {
			return nil, nil, err
		}
		for outcome.Status == SeedBudgetExceeded {
			b.restarts++
			if b.restarts > b.cfg.MaxRestarts {
				return nil, nil, fmt.Errorf("bootstrap exceeded its evaluation budget on maze %d after %d restarts", structure.GenomeID, b.restarts-1)
			}
			outcome, err = b.evolveAgainstMaze(ctx, structure, nil)
			if err != nil {
				return nil, nil, err
			}
		}
		for _, s := range outcome.Solvers {
			if _, dup := collected[s.ID]; dup {
				continue
			}
			collected[s.ID] = struct{}{}
			solvers = append(solvers, s)
		}
		nonSolvers = append(nonSolvers, outcome.NonSolvers...)
		pool = outcome.Population
	}

	for iteration := 0; len(solvers) < b.cfg.TargetSolverCount; iteration++ {
		if iteration >= b.cfg.MaxContinuations {
			return nil, nil, fmt.Errorf("bootstrap found %d of %d unique solvers within %d continuation runs", len(solvers), b.cfg.TargetSolverCount, b.cfg.MaxContinuations)
		}
		structure := structures[b.rng.Intn(len(structures))]

		// Drop pool members that duplicate an already-collected solver, so
		// the continuation keeps searching for new genomes instead of
		// re-finding old ones.
		retained := pool[:0]
		for _, g := range pool {
			if _, dup := collected[g.ID]; !dup {
				retained = append(retained, g)
			}
		}
		pool = retained
		if len(pool) < 2 {
			pool = nil
		}

		outcome, err := b.evolveAgainstMaze(ctx, structure, pool)
		if err != nil {
			return nil, nil, err
		}
		if outcome.Status == SeedBudgetExceeded {
			b.restarts++
			if b.restarts > b.cfg.MaxRestarts {
				return nil, nil, fmt.Errorf("bootstrap continuation exceeded its evaluation budget after %d restarts", b.restarts-1)
			}
			pool = nil
			continue
		}
		for _, s := range outcome.Solvers {
			if _, dup := collected[s.ID]; dup {
				continue
			}
			collected[s.ID] = struct{}{}
			solvers = append(solvers, s)
		}
		pool = outcome.Population
	}

	return solvers, nonSolvers, nil
}

// evolveAgainstMaze runs the internal generational EA against one maze
// until enough solvers are collected or the evaluation budget runs out.
// A nil initial population starts from fresh random genomes.
func (b *Bootstrap) evolveAgainstMaze(ctx context.Context, structure *maze.Structure, initial []*genotype.AgentGenome) (SeedOutcome, error) {
	population := initial
	if len(population) == 0 {
		population = b.factory.CreateGenomeList(b.cfg.PopulationSize, 0, b.rng)
	}

	outcome := SeedOutcome{}
	solved := make(map[genotype.GenomeID]struct{})

	for generation := 0; ; generation++ {
		if err := ctx.Err(); err != nil {
			return SeedOutcome{}, err
		}

		verdicts := make([]trialVerdict, 0, len(population))
		for _, g := range population {
			net, err := b.factory.Decode(g)
			if err != nil {
				return SeedOutcome{}, fmt.Errorf("decode bootstrap agent %d: %w", g.ID, err)
			}
			world := scape.NewWorld(structure, b.worldCfg, nil)
			fitness, goalReached, err := world.RunFitnessTrial(net)
			if err != nil {
				return SeedOutcome{}, err
			}
			ordinal := b.evaluations.Next()
			outcome.Evaluations++
			eval := g.Evaluation()
			eval.Fitness = fitness
			eval.EvaluationCount++
			if err := b.trials.Log(datalog.TrialRow{
				RunPhase:   "bootstrap",
				Population: "agents",
				Generation: generation,
				Evaluation: ordinal,
				GenomeID:   uint64(g.ID),
				OpponentID: uint64(structure.GenomeID),
				Solved:     goalReached,
				Counted:    goalReached,
				Distance:   world.DistanceToTarget(),
				Timesteps:  world.ElapsedTimesteps(),
			}); err != nil {
				return SeedOutcome{}, err
			}
			verdicts = append(verdicts, trialVerdict{genome: g, fitness: fitness, solved: goalReached})
		}

		for _, v := range verdicts {
			if v.solved {
				if _, seen := solved[v.genome.ID]; !seen && len(outcome.Solvers) < b.cfg.SolversPerMaze {
					solved[v.genome.ID] = struct{}{}
					v.genome.Evaluation().IsViable = true
					outcome.Solvers = append(outcome.Solvers, v.genome)
				}
			} else if len(outcome.NonSolvers) < b.cfg.NonSolversPerMaze {
				outcome.NonSolvers = append(outcome.NonSolvers, v.genome)
			}
		}

		if len(outcome.Solvers) >= b.cfg.SolversPerMaze {
			outcome.Status = SeedFound
			outcome.Population = population
			return outcome, nil
		}
		if outcome.Evaluations >= b.cfg.EvaluationBudgetPerMaze {
			outcome.Status = SeedBudgetExceeded
			outcome.Population = population
			return outcome, nil
		}

		population = b.nextGeneration(verdicts, generation+1)
	}
}

type trialVerdict struct {
	genome  *genotype.AgentGenome
	fitness float64
	solved  bool
}

// nextGeneration keeps the fitter half as elites and refills the rest with
// their mutated offspring.
func (b *Bootstrap) nextGeneration(ranked []trialVerdict, birthGeneration int) []*genotype.AgentGenome {
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].fitness > ranked[j].fitness })

	eliteCount := len(ranked) / 2
	if eliteCount < 1 {
		eliteCount = 1
	}
	next := make([]*genotype.AgentGenome, 0, b.cfg.PopulationSize)
	for i := 0; i < eliteCount; i++ {
		next = append(next, ranked[i].genome)
	}
	for len(next) < b.cfg.PopulationSize {
		parent := ranked[b.rng.Intn(eliteCount)].genome
		child, err := b.factory.Reproduce(parent, nil, birthGeneration, b.rng)
		if errors.Is(err, genotype.ErrReproductionFailed) {
			// A hostile lineage that exhausts the retry budget is replaced
			// by a fresh random genome rather than aborting the bootstrap.
			next = append(next, b.factory.CreateGenomeList(1, birthGeneration, b.rng)...)
			continue
		}
		if err != nil {
			next = append(next, b.factory.CreateGenomeList(1, birthGeneration, b.rng)...)
			continue
		}
		next = append(next, child)
	}
	return next
}

// VerifyPreevolvedSeedAgents cross-evaluates the assembled seed populations
// before coevolution: every retained agent must satisfy the agent criterion
// against the seed mazes, and every seed maze must satisfy the maze
// criterion against the retained agents. Non-viable agents (typically the
// collected non-solvers) are dropped; too few survivors is fatal.
func (b *Bootstrap) VerifyPreevolvedSeedAgents(ctx context.Context, agents []*genotype.AgentGenome, seedMazes []*genotype.MazeGenome, agentEval *evo.AgentEvaluator, mazeEval *evo.MazeEvaluator) ([]*genotype.AgentGenome, error) {
	structures := make([]*maze.Structure, 0, len(seedMazes))
	for _, g := range seedMazes {
		s, err := maze.Decode(g, b.decodeCfg)
		if err != nil {
			return nil, fmt.Errorf("decode seed maze %d: %w", g.ID, err)
		}
		structures = append(structures, s)
	}

	agentEval.RefreshOpponents(structures)
	if err := agentEval.EvaluateBatch(ctx, agents, 0); err != nil {
		return nil, fmt.Errorf("verify seed agents: %w", err)
	}
	retained := make([]*genotype.AgentGenome, 0, len(agents))
	for _, g := range agents {
		if g.Evaluation().IsViable {
			retained = append(retained, g)
		}
	}
	if len(retained) < b.cfg.TargetSolverCount {
		return nil, fmt.Errorf("only %d of %d seed agents satisfy the minimal criterion, need %d", len(retained), len(agents), b.cfg.TargetSolverCount)
	}

	phenomes := make([]evo.AgentPhenome, 0, len(retained))
	for _, g := range retained {
		net, err := b.factory.Decode(g)
		if err != nil {
			return nil, fmt.Errorf("decode seed agent %d: %w", g.ID, err)
		}
		phenomes = append(phenomes, evo.AgentPhenome{ID: g.ID, Net: net.Clone()})
	}
	mazeEval.RefreshOpponents(phenomes)
	if err := mazeEval.EvaluateBatch(ctx, seedMazes, 0); err != nil {
		return nil, fmt.Errorf("verify seed mazes: %w", err)
	}
	for _, g := range seedMazes {
		if !g.Evaluation().IsViable {
			return nil, fmt.Errorf("seed maze %d is not mutually satisfiable with the seed agents (solved by %d, failed by %d)", g.ID, g.Evaluation().OpponentsSolved, g.Evaluation().OpponentsFailed)
		}
	}

	// Verification trials must not leak success counts into coevolution.
	agentEval.Reset()
	return retained, nil
}
