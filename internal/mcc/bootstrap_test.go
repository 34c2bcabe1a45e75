package mcc

import (
	"context"
	"math/rand"
	"testing"

	"symbion/internal/evo"
	"symbion/internal/genotype"
	"symbion/internal/maze"
	"symbion/internal/scape"
)

func testDecodeConfig() maze.DecodeConfig {
	return maze.DecodeConfig{
		Scale:            20,
		PassageWidth:     60,
		AgentRadius:      8,
		BaseTimesteps:    50,
		TimestepsPerUnit: 1,
	}
}

// instantWinWorld makes every trial a solve on timestep zero.
func instantWinWorld() scape.WorldConfig {
	return scape.WorldConfig{MinSuccessDistance: 1e9}
}

// impossibleWorld makes a solve unreachable within any budget.
func impossibleWorld() scape.WorldConfig {
	return scape.WorldConfig{MinSuccessDistance: 1e-9}
}

func newAgentFactory(t *testing.T) *genotype.AgentFactory {
	t.Helper()
	factory, err := genotype.NewAgentFactory(genotype.NewSequence(), scape.SensorCount, scape.ActuatorCount)
	if err != nil {
		t.Fatalf("agent factory: %v", err)
	}
	return factory
}

func newSeedMazes(t *testing.T, count int) []*genotype.MazeGenome {
	t.Helper()
	factory, err := genotype.NewMazeFactory(genotype.NewSequence(), genotype.MazeFactoryConfig{
		SeedWidth:  10,
		SeedHeight: 10,
		MaxWidth:   14,
		MaxHeight:  14,
		MaxWalls:   6,
		SeedWalls:  0,
	})
	if err != nil {
		t.Fatalf("maze factory: %v", err)
	}
	return factory.CreateGenomeList(count, 0, rand.New(rand.NewSource(21)))
}

func TestBootstrapCollectsSolversAcrossSeedMazes(t *testing.T) {
	factory := newAgentFactory(t)
	mazes := newSeedMazes(t, 2)

	b, err := NewBootstrap(BootstrapConfig{
		PopulationSize:          6,
		SolversPerMaze:          2,
		NonSolversPerMaze:       0,
		TargetSolverCount:       4,
		EvaluationBudgetPerMaze: 100,
		MaxRestarts:             1,
		Seed:                    1,
	}, factory, testDecodeConfig(), instantWinWorld(), &evo.EvaluationCounter{}, nil)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	solvers, _, err := b.EvolveSeedAgents(context.Background(), mazes)
	if err != nil {
		t.Fatalf("evolve seed agents: %v", err)
	}
	if len(solvers) < 4 {
		t.Fatalf("collected %d solvers, want at least 4", len(solvers))
	}
	seen := map[genotype.GenomeID]bool{}
	for _, s := range solvers {
		if seen[s.ID] {
			t.Fatalf("duplicate solver %d collected", s.ID)
		}
		seen[s.ID] = true
		if !s.Evaluation().IsViable {
			t.Fatalf("collected solver %d not marked viable", s.ID)
		}
	}
	if b.Restarts() != 0 {
		t.Fatalf("no restarts expected, got %d", b.Restarts())
	}
}

func TestBootstrapBudgetExceededIsCappedByRestarts(t *testing.T) {
	factory := newAgentFactory(t)
	mazes := newSeedMazes(t, 1)

	b, err := NewBootstrap(BootstrapConfig{
		PopulationSize:          4,
		SolversPerMaze:          1,
		TargetSolverCount:       1,
		EvaluationBudgetPerMaze: 8,
		MaxRestarts:             2,
		Seed:                    2,
	}, factory, testDecodeConfig(), impossibleWorld(), &evo.EvaluationCounter{}, nil)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if _, _, err := b.EvolveSeedAgents(context.Background(), mazes); err == nil {
		t.Fatalf("expected failure once the restart cap is hit")
	}
	if b.Restarts() <= 2 {
		t.Fatalf("restart counter must exceed the cap when giving up, got %d", b.Restarts())
	}
}

func TestBootstrapContinuationFindsUniqueSolvers(t *testing.T) {
	factory := newAgentFactory(t)
	mazes := newSeedMazes(t, 1)

	b, err := NewBootstrap(BootstrapConfig{
		PopulationSize:          5,
		SolversPerMaze:          1,
		TargetSolverCount:       3,
		EvaluationBudgetPerMaze: 200,
		MaxRestarts:             1,
		Seed:                    3,
	}, factory, testDecodeConfig(), instantWinWorld(), &evo.EvaluationCounter{}, nil)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	solvers, _, err := b.EvolveSeedAgents(context.Background(), mazes)
	if err != nil {
		t.Fatalf("evolve seed agents: %v", err)
	}
	if len(solvers) < 3 {
		t.Fatalf("continuation must keep collecting: got %d solvers", len(solvers))
	}
	seen := map[genotype.GenomeID]bool{}
	for _, s := range solvers {
		if seen[s.ID] {
			t.Fatalf("continuation re-collected solver %d", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestVerifyPreevolvedSeedAgents(t *testing.T) {
	factory := newAgentFactory(t)
	mazes := newSeedMazes(t, 2)
	agents := factory.CreateGenomeList(4, 0, rand.New(rand.NewSource(7)))

	counter := &evo.EvaluationCounter{}
	worlds := scape.NewMazeWorldFactory(instantWinWorld())
	agentEval, err := evo.NewAgentEvaluator(evo.AgentEvaluatorConfig{
		MinimumSolvedMazes: 1,
	}, factory, worlds, counter, nil)
	if err != nil {
		t.Fatalf("agent evaluator: %v", err)
	}
	mazeEval, err := evo.NewMazeEvaluator(evo.MazeEvaluatorConfig{
		MinimumSolvedBy: 1,
		MinimumFailedBy: 0,
	}, testDecodeConfig(), instantWinWorld(), counter, nil)
	if err != nil {
		t.Fatalf("maze evaluator: %v", err)
	}

	b, err := NewBootstrap(BootstrapConfig{
		PopulationSize:          4,
		SolversPerMaze:          1,
		TargetSolverCount:       4,
		EvaluationBudgetPerMaze: 100,
		Seed:                    4,
	}, factory, testDecodeConfig(), instantWinWorld(), counter, nil)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	retained, err := b.VerifyPreevolvedSeedAgents(context.Background(), agents, mazes, agentEval, mazeEval)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(retained) != len(agents) {
		t.Fatalf("all agents solve everything, retained %d of %d", len(retained), len(agents))
	}
	for _, g := range retained {
		if !g.Evaluation().IsViable {
			t.Fatalf("retained agent %d not viable", g.ID)
		}
	}
	for _, g := range mazes {
		if !g.Evaluation().IsViable {
			t.Fatalf("seed maze %d not viable", g.ID)
		}
	}
}

func TestVerifyFailsWhenMazeCriterionUnsatisfiable(t *testing.T) {
	factory := newAgentFactory(t)
	mazes := newSeedMazes(t, 1)
	agents := factory.CreateGenomeList(3, 0, rand.New(rand.NewSource(8)))

	counter := &evo.EvaluationCounter{}
	worlds := scape.NewMazeWorldFactory(instantWinWorld())
	agentEval, err := evo.NewAgentEvaluator(evo.AgentEvaluatorConfig{
		MinimumSolvedMazes: 1,
	}, factory, worlds, counter, nil)
	if err != nil {
		t.Fatalf("agent evaluator: %v", err)
	}
	// Every agent solves every maze, so no maze can accumulate failers.
	mazeEval, err := evo.NewMazeEvaluator(evo.MazeEvaluatorConfig{
		MinimumSolvedBy: 1,
		MinimumFailedBy: 1,
	}, testDecodeConfig(), instantWinWorld(), counter, nil)
	if err != nil {
		t.Fatalf("maze evaluator: %v", err)
	}

	b, err := NewBootstrap(BootstrapConfig{
		PopulationSize:          4,
		SolversPerMaze:          1,
		TargetSolverCount:       1,
		EvaluationBudgetPerMaze: 100,
		Seed:                    5,
	}, factory, testDecodeConfig(), instantWinWorld(), counter, nil)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if _, err := b.VerifyPreevolvedSeedAgents(context.Background(), agents, mazes, agentEval, mazeEval); err == nil {
		t.Fatalf("verification must fail when seed mazes cannot meet their criterion")
	}
}
