package scape

import (
	"fmt"
	"testing"

	"symbion/internal/geom"
	"symbion/internal/maze"
)

// scriptedNavigator replays a constant actuator vector every timestep.
type scriptedNavigator struct {
	outputs []float64
	resets  int
}

func (n *scriptedNavigator) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != SensorCount {
		return nil, fmt.Errorf("got %d sensor inputs, want %d", len(inputs), SensorCount)
	}
	return n.outputs, nil
}

func (n *scriptedNavigator) Reset() { n.resets++ }

func borderWalls(width, height float64) []geom.Segment {
	return []geom.Segment{
		{A: geom.Point{X: 0, Y: 0}, B: geom.Point{X: width, Y: 0}},
		{A: geom.Point{X: width, Y: 0}, B: geom.Point{X: width, Y: height}},
		{A: geom.Point{X: width, Y: height}, B: geom.Point{X: 0, Y: height}},
		{A: geom.Point{X: 0, Y: height}, B: geom.Point{X: 0, Y: 0}},
	}
}

func TestTrialEndsImmediatelyWhenStartIsAtGoal(t *testing.T) {
	structure := &maze.Structure{
		GenomeID:     1,
		Width:        200,
		Height:       200,
		Walls:        borderWalls(200, 200),
		Start:        geom.Point{X: 100, Y: 100},
		Goal:         geom.Point{X: 100, Y: 100},
		MaxTimesteps: 50,
	}
	agent := &scriptedNavigator{outputs: []float64{0.5, 1}}
	world := NewWorld(structure, WorldConfig{}, nil)

	result, err := world.Run(agent)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.GoalReached {
		t.Fatalf("trial starting at the goal must succeed")
	}
	if result.Timesteps != 0 {
		t.Fatalf("trial starting at the goal must take 0 timesteps, took %d", result.Timesteps)
	}
	if agent.resets != 1 {
		t.Fatalf("navigator must be reset exactly once, got %d", agent.resets)
	}
}

func TestTrialExhaustsBudgetWhenSealedIn(t *testing.T) {
	// A box around the start leaves the agent nowhere to go.
	walls := append(borderWalls(400, 400),
		geom.Segment{A: geom.Point{X: 30, Y: 30}, B: geom.Point{X: 70, Y: 30}},
		geom.Segment{A: geom.Point{X: 70, Y: 30}, B: geom.Point{X: 70, Y: 70}},
		geom.Segment{A: geom.Point{X: 70, Y: 70}, B: geom.Point{X: 30, Y: 70}},
		geom.Segment{A: geom.Point{X: 30, Y: 70}, B: geom.Point{X: 30, Y: 30}},
	)
	structure := &maze.Structure{
		GenomeID:     2,
		Width:        400,
		Height:       400,
		Walls:        walls,
		Start:        geom.Point{X: 50, Y: 50},
		Goal:         geom.Point{X: 350, Y: 350},
		MaxTimesteps: 25,
	}
	agent := &scriptedNavigator{outputs: []float64{0.5, 1}}
	world := NewWorld(structure, WorldConfig{}, &EndPointCharacterization{})

	result, err := world.Run(agent)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.GoalReached {
		t.Fatalf("sealed-in agent cannot reach the goal")
	}
	if result.Timesteps != structure.MaxTimesteps {
		t.Fatalf("failed trial must consume the whole budget: got %d, want %d",
			result.Timesteps, structure.MaxTimesteps)
	}
	// The agent may wander inside the chamber but can never leave it.
	x, y := result.Behavior[0], result.Behavior[1]
	if x < 30 || x > 70 || y < 30 || y > 70 {
		t.Fatalf("sealed-in agent escaped the chamber: final position (%f, %f)", x, y)
	}
}

func TestStraightRunReachesGoal(t *testing.T) {
	structure := &maze.Structure{
		GenomeID:     3,
		Width:        300,
		Height:       100,
		Walls:        borderWalls(300, 100),
		Start:        geom.Point{X: 20, Y: 50},
		Goal:         geom.Point{X: 220, Y: 50},
		MaxTimesteps: 200,
	}
	// No steering, full throttle: heading 0 points straight at the goal.
	agent := &scriptedNavigator{outputs: []float64{0.5, 1}}
	world := NewWorld(structure, WorldConfig{}, &EndPointCharacterization{})

	result, err := world.Run(agent)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.GoalReached {
		t.Fatalf("straight run must reach the goal, final distance %f after %d steps",
			result.FinalDistance, result.Timesteps)
	}
	if result.Timesteps <= 0 || result.Timesteps >= structure.MaxTimesteps {
		t.Fatalf("unexpected step count %d", result.Timesteps)
	}
	if result.Fitness <= 0 {
		t.Fatalf("solving trial must score positive fitness, got %f", result.Fitness)
	}
	if len(result.Behavior) != 2 {
		t.Fatalf("endpoint characterization must yield 2 values, got %d", len(result.Behavior))
	}
}

func TestFitnessIsNeverNegative(t *testing.T) {
	structure := &maze.Structure{
		GenomeID:     4,
		Width:        100,
		Height:       100,
		Walls:        borderWalls(100, 100),
		Start:        geom.Point{X: 50, Y: 50},
		Goal:         geom.Point{X: 90, Y: 90},
		MaxTimesteps: 5,
	}
	agent := &scriptedNavigator{outputs: []float64{0.5, 0}}
	// MaxDistance far below the actual goal distance would drive fitness
	// negative without the floor.
	world := NewWorld(structure, WorldConfig{MaxDistance: 1}, nil)

	fitness, solved, err := world.RunFitnessTrial(agent)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if solved {
		t.Fatalf("idle agent cannot solve")
	}
	if fitness != 0 {
		t.Fatalf("fitness must floor at zero, got %f", fitness)
	}
}

func TestTrajectoryCharacterizationGrowsPerStep(t *testing.T) {
	structure := &maze.Structure{
		GenomeID:     5,
		Width:        400,
		Height:       400,
		Walls:        borderWalls(400, 400),
		Start:        geom.Point{X: 50, Y: 50},
		Goal:         geom.Point{X: 350, Y: 350},
		MaxTimesteps: 10,
	}
	agent := &scriptedNavigator{outputs: []float64{0.5, 1}}
	world := NewWorld(structure, WorldConfig{}, &TrajectoryCharacterization{})

	behavior, _, err := world.RunBehaviorTrial(agent)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(behavior) != 2*structure.MaxTimesteps {
		t.Fatalf("trajectory must record one point per step: got %d values, want %d",
			len(behavior), 2*structure.MaxTimesteps)
	}
}

func TestCharacterizationFactoryByName(t *testing.T) {
	for _, kind := range []string{"", "endpoint", "trajectory"} {
		if _, err := NewCharacterizationFactory(kind); err != nil {
			t.Fatalf("factory for %q: %v", kind, err)
		}
	}
	if _, err := NewCharacterizationFactory("novelty"); err == nil {
		t.Fatalf("unknown characterization must be rejected")
	}
}
