// Package scape hosts the maze-navigation simulation: the trial world that
// pits one navigator controller against one maze, the behavior
// characterization strategies, and the multi-maze world factory that caches
// decoded mazes for a generation and tracks per-maze solve counters.
package scape

import "fmt"

// Navigator is the black-box controller under trial: sensor vector in,
// actuator vector out. Reset clears internal state between trials.
type Navigator interface {
	Activate(inputs []float64) ([]float64, error)
	Reset()
}

const (
	// RangefinderCount ray sensors plus RadarCount goal-direction arcs make
	// up the sensor vector; two actuators drive turning and speed.
	RangefinderCount = 6
	RadarCount       = 4
	SensorCount      = RangefinderCount + RadarCount
	ActuatorCount    = 2
)

// TrialResult is the outcome of a single navigation trial.
type TrialResult struct {
	Fitness       float64
	Behavior      []float64
	GoalReached   bool
	Timesteps     int
	FinalDistance float64
}

// BehaviorCharacterization summarizes a trial's trajectory into a fixed
// descriptor. Implementations are single-trial objects, never shared.
type BehaviorCharacterization interface {
	UpdateBehaviors(x, y float64)
	GetBehaviorCharacterizationAsArray() []float64
}

// CharacterizationFactory builds a fresh characterization per trial.
type CharacterizationFactory interface {
	New() BehaviorCharacterization
}

// NewCharacterizationFactory resolves a strategy by name. The strategy is
// chosen once at configuration time and held for the whole run.
func NewCharacterizationFactory(kind string) (CharacterizationFactory, error) {
	switch kind {
	case "", "endpoint":
		return endPointFactory{}, nil
	case "trajectory":
		return trajectoryFactory{}, nil
	default:
		return nil, fmt.Errorf("unsupported behavior characterization: %s", kind)
	}
}
