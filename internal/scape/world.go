package scape

import (
	"fmt"
	"math"

	"symbion/internal/geom"
	"symbion/internal/maze"
)

// WorldConfig fixes the physical constants of navigation trials. Zero
// values fall back to defaults scaled for mazes decoded at the standard
// scale.
type WorldConfig struct {
	MinSuccessDistance float64
	// MaxDistance normalizes fitness; 0 uses the maze diagonal.
	MaxDistance float64
	AgentRadius float64
	SensorRange float64
	MaxSpeed    float64
	// MaxTurnRate is radians per timestep.
	MaxTurnRate float64
	// MaxTimesteps overrides the maze's own budget when > 0.
	MaxTimesteps int
}

func (c WorldConfig) withDefaults() WorldConfig {
	if c.MinSuccessDistance <= 0 {
		c.MinSuccessDistance = 10
	}
	if c.AgentRadius <= 0 {
		c.AgentRadius = 8
	}
	if c.SensorRange <= 0 {
		c.SensorRange = 100
	}
	if c.MaxSpeed <= 0 {
		c.MaxSpeed = 3
	}
	if c.MaxTurnRate <= 0 {
		c.MaxTurnRate = math.Pi / 8
	}
	return c
}

// World simulates exactly one navigator-versus-maze trial. A World is cheap
// to construct and is not reused across trials; the factory builds a fresh
// one per trial so telemetry reads are race free.
type World struct {
	walls              []geom.Segment
	start              geom.Point
	goal               geom.Point
	minSuccessDistance float64
	maxDistance        float64
	agentRadius        float64
	sensorRange        float64
	maxSpeed           float64
	maxTurnRate        float64
	maxTimesteps       int
	characterization   BehaviorCharacterization

	finalDistance float64
	elapsed       int
}

func NewWorld(structure *maze.Structure, cfg WorldConfig, characterization BehaviorCharacterization) *World {
	cfg = cfg.withDefaults()
	maxDistance := cfg.MaxDistance
	if maxDistance <= 0 {
		maxDistance = structure.MaxDistance()
	}
	maxTimesteps := cfg.MaxTimesteps
	if maxTimesteps <= 0 {
		maxTimesteps = structure.MaxTimesteps
	}
	return &World{
		walls:              structure.Walls,
		start:              structure.Start,
		goal:               structure.Goal,
		minSuccessDistance: cfg.MinSuccessDistance,
		maxDistance:        maxDistance,
		agentRadius:        cfg.AgentRadius,
		sensorRange:        cfg.SensorRange,
		maxSpeed:           cfg.MaxSpeed,
		maxTurnRate:        cfg.MaxTurnRate,
		maxTimesteps:       maxTimesteps,
		characterization:   characterization,
	}
}

// RunFitnessTrial runs the simulation loop and reports distance-based
// fitness: the maximum possible distance to target minus the final
// distance, so higher is better and solving scores near the maximum.
func (w *World) RunFitnessTrial(agent Navigator) (float64, bool, error) {
	result, err := w.Run(agent)
	if err != nil {
		return 0, false, err
	}
	return result.Fitness, result.GoalReached, nil
}

// RunBehaviorTrial runs the identical loop but reports the behavior
// characterization vector instead of fitness.
func (w *World) RunBehaviorTrial(agent Navigator) ([]float64, bool, error) {
	result, err := w.Run(agent)
	if err != nil {
		return nil, false, err
	}
	return result.Behavior, result.GoalReached, nil
}

// Run drives the trial to goal-reached or timestep exhaustion. There are no
// internal retries and no wall-clock deadline: the budget is the only clock.
func (w *World) Run(agent Navigator) (TrialResult, error) {
	agent.Reset()

	position := w.start
	heading := 0.0
	speed := 0.0
	angularVelocity := 0.0
	distance := position.DistanceTo(w.goal)
	goalReached := false
	steps := 0

	for t := 0; t < w.maxTimesteps; t++ {
		if distance < w.minSuccessDistance {
			goalReached = true
			steps = t
			break
		}

		outputs, err := agent.Activate(w.senseInputs(position, heading))
		if err != nil {
			return TrialResult{}, fmt.Errorf("activate navigator: %w", err)
		}
		if len(outputs) < ActuatorCount {
			return TrialResult{}, fmt.Errorf("navigator produced %d outputs, need %d", len(outputs), ActuatorCount)
		}

		angularVelocity = clamp(angularVelocity+(outputs[0]-0.5)*w.maxTurnRate, -w.maxTurnRate, w.maxTurnRate)
		speed = clamp(speed+(outputs[1]-0.5)*2, -w.maxSpeed, w.maxSpeed)
		heading = geom.NormalizeAngle(heading + angularVelocity)

		candidate := position.Translate(math.Cos(heading)*speed, math.Sin(heading)*speed)
		if !w.collides(position, candidate) {
			position = candidate
		}
		if w.characterization != nil {
			w.characterization.UpdateBehaviors(position.X, position.Y)
		}

		distance = position.DistanceTo(w.goal)
		steps = t + 1
	}
	if !goalReached && distance < w.minSuccessDistance {
		goalReached = true
	}

	w.finalDistance = distance
	w.elapsed = steps

	fitness := w.maxDistance - distance
	if fitness < 0 {
		fitness = 0
	}
	var behavior []float64
	if w.characterization != nil {
		behavior = w.characterization.GetBehaviorCharacterizationAsArray()
	}
	return TrialResult{
		Fitness:       fitness,
		Behavior:      behavior,
		GoalReached:   goalReached,
		Timesteps:     steps,
		FinalDistance: distance,
	}, nil
}

// DistanceToTarget reports the final goal distance of the last trial.
func (w *World) DistanceToTarget() float64 {
	return w.finalDistance
}

// ElapsedTimesteps reports the step count of the last trial.
func (w *World) ElapsedTimesteps() int {
	return w.elapsed
}

// senseInputs assembles the sensor vector: rangefinder distances normalized
// to [0,1] (1 = nothing in range) followed by a one-hot goal radar over four
// heading-relative quadrants.
func (w *World) senseInputs(position geom.Point, heading float64) []float64 {
	inputs := make([]float64, 0, SensorCount)

	offsets := [RangefinderCount]float64{
		-math.Pi / 2, -math.Pi / 4, 0, math.Pi / 4, math.Pi / 2, math.Pi,
	}
	for _, offset := range offsets {
		ray := geom.Ray(position, geom.NormalizeAngle(heading+offset), w.sensorRange)
		nearest := w.sensorRange
		for _, wall := range w.walls {
			if hit, ok := ray.Intersection(wall); ok {
				if d := position.DistanceTo(hit); d < nearest {
					nearest = d
				}
			}
		}
		inputs = append(inputs, nearest/w.sensorRange)
	}

	goalAngle := geom.NormalizeAngle(position.AngleTo(w.goal) - heading)
	quadrant := int(geom.NormalizeAngle(goalAngle+math.Pi/4) / (math.Pi / 2))
	if quadrant >= RadarCount {
		quadrant = RadarCount - 1
	}
	for i := 0; i < RadarCount; i++ {
		if i == quadrant {
			inputs = append(inputs, 1)
		} else {
			inputs = append(inputs, 0)
		}
	}
	return inputs
}

// collides prevents movement through or into a wall: the step is rejected
// if the travel segment crosses a wall or the destination sits within the
// agent radius of one.
func (w *World) collides(from, to geom.Point) bool {
	travel := geom.Segment{A: from, B: to}
	for _, wall := range w.walls {
		if wall.DistanceToPoint(to) < w.agentRadius {
			return true
		}
		if travel.Intersects(wall) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
