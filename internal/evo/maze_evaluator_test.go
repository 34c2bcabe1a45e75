package evo

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"symbion/internal/datalog"
	"symbion/internal/genotype"
	"symbion/internal/maze"
	"symbion/internal/scape"
)

func testMazeDecodeConfig() maze.DecodeConfig {
	return maze.DecodeConfig{
		Scale:            20,
		PassageWidth:     60,
		AgentRadius:      8,
		BaseTimesteps:    20,
		TimestepsPerUnit: 0,
	}
}

func newMazeCandidates(t *testing.T, count int) []*genotype.MazeGenome {
	t.Helper()
	ids := genotype.NewSequence()
	factory, err := genotype.NewMazeFactory(ids, genotype.MazeFactoryConfig{
		SeedWidth:  10,
		SeedHeight: 10,
		MaxWidth:   16,
		MaxHeight:  16,
		MaxWalls:   8,
		SeedWalls:  0,
	})
	if err != nil {
		t.Fatalf("maze factory: %v", err)
	}
	return factory.CreateGenomeList(count, 0, rand.New(rand.NewSource(5)))
}

func opponentPhenomes(t *testing.T, count int) []AgentPhenome {
	t.Helper()
	factory, agents := newTestAgents(t, count)
	out := make([]AgentPhenome, 0, count)
	for _, agent := range agents {
		net, err := factory.Decode(agent)
		if err != nil {
			t.Fatalf("decode agent: %v", err)
		}
		out = append(out, AgentPhenome{ID: agent.ID, Net: net.Clone()})
	}
	return out
}

func TestMazeEvaluatorViableWhenSolvedAndFailedThresholdsMet(t *testing.T) {
	candidates := newMazeCandidates(t, 1)
	opponents := opponentPhenomes(t, 4)

	counter := &EvaluationCounter{}
	// An effectively infinite success distance makes every agent a solver,
	// so a zero failed-by requirement must short-circuit after MinimumSolvedBy trials.
	evaluator, err := NewMazeEvaluator(MazeEvaluatorConfig{
		MinimumSolvedBy: 2,
		MinimumFailedBy: 0,
	}, testMazeDecodeConfig(), scape.WorldConfig{MinSuccessDistance: 1e9}, counter, nil)
	if err != nil {
		t.Fatalf("evaluator: %v", err)
	}
	evaluator.RefreshOpponents(opponents)

	if err := evaluator.EvaluateBatch(context.Background(), candidates, 1); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	eval := candidates[0].Evaluation()
	if !eval.IsViable {
		t.Fatalf("maze solved by every opponent must be viable with no failed-by requirement")
	}
	if eval.OpponentsSolved != 2 {
		t.Fatalf("early stop after 2 solvers, got %d", eval.OpponentsSolved)
	}
	if got := counter.Count(); got != 2 {
		t.Fatalf("trial count: got %d, want 2", got)
	}
}

func TestMazeEvaluatorRejectsImpossibleMaze(t *testing.T) {
	candidates := newMazeCandidates(t, 1)
	opponents := opponentPhenomes(t, 3)

	counter := &EvaluationCounter{}
	// A near-zero success distance means no opponent can ever register a
	// solve inside the timestep budget.
	evaluator, err := NewMazeEvaluator(MazeEvaluatorConfig{
		MinimumSolvedBy: 1,
		MinimumFailedBy: 1,
	}, testMazeDecodeConfig(), scape.WorldConfig{MinSuccessDistance: 1e-9}, counter, nil)
	if err != nil {
		t.Fatalf("evaluator: %v", err)
	}
	evaluator.RefreshOpponents(opponents)

	if err := evaluator.EvaluateBatch(context.Background(), candidates, 1); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	eval := candidates[0].Evaluation()
	if eval.IsViable {
		t.Fatalf("maze no opponent solves cannot be viable")
	}
	if eval.OpponentsFailed != len(opponents) {
		t.Fatalf("failing maze must exhaust the opponent set: failed %d of %d", eval.OpponentsFailed, len(opponents))
	}
	if got := counter.Count(); got != int64(len(opponents)) {
		t.Fatalf("trial count: got %d, want %d", got, len(opponents))
	}
}

func TestMazeEvaluatorTrialRowsCarryVerdict(t *testing.T) {
	candidates := newMazeCandidates(t, 1)
	opponents := opponentPhenomes(t, 2)

	var log strings.Builder
	trials := datalog.NewCSVTrialLogger(&log)
	evaluator, err := NewMazeEvaluator(MazeEvaluatorConfig{
		MinimumSolvedBy: 1,
		MinimumFailedBy: 1,
	}, testMazeDecodeConfig(), scape.WorldConfig{MinSuccessDistance: 1e-9}, &EvaluationCounter{}, trials)
	if err != nil {
		t.Fatalf("evaluator: %v", err)
	}
	evaluator.RefreshOpponents(opponents)

	if err := evaluator.EvaluateBatch(context.Background(), candidates, 1); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if candidates[0].Evaluation().IsViable {
		t.Fatalf("maze no opponent solves cannot be viable")
	}

	// The verdict is only known after the last trial, yet every row of the
	// evaluation reports it.
	lines := strings.Split(strings.TrimSpace(log.String()), "\n")
	if len(lines) != len(opponents)+1 {
		t.Fatalf("expected header plus %d trial rows, got %d lines", len(opponents), len(lines))
	}
	for _, line := range lines[1:] {
		if fields := strings.Split(line, ","); fields[8] != "false" {
			t.Fatalf("trial row must carry the viable verdict: %s", line)
		}
	}
}

func TestMazeEvaluatorRefreshReplacesSnapshot(t *testing.T) {
	evaluator, err := NewMazeEvaluator(MazeEvaluatorConfig{
		MinimumSolvedBy: 1,
		MinimumFailedBy: 1,
	}, testMazeDecodeConfig(), scape.WorldConfig{}, &EvaluationCounter{}, nil)
	if err != nil {
		t.Fatalf("evaluator: %v", err)
	}

	first := opponentPhenomes(t, 2)
	second := opponentPhenomes(t, 3)

	evaluator.RefreshOpponents(first)
	if got := evaluator.Opponents(); len(got) != 2 || got[0].ID != first[0].ID {
		t.Fatalf("snapshot after first refresh does not match")
	}
	evaluator.RefreshOpponents(second)
	if got := evaluator.Opponents(); len(got) != 3 || got[0].ID != second[0].ID {
		t.Fatalf("evaluation must reflect the latest snapshot, not the earlier one")
	}

	evaluator.Reset()
	if got := evaluator.Opponents(); len(got) != 0 {
		t.Fatalf("reset must drop the snapshot, kept %d opponents", len(got))
	}
}
