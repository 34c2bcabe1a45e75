package scape

// EndPointCharacterization records only the final position: two samples of
// the same trajectory that end in the same place are considered identical
// behavior.
type EndPointCharacterization struct {
	x, y float64
}

func (c *EndPointCharacterization) UpdateBehaviors(x, y float64) {
	c.x = x
	c.y = y
}

func (c *EndPointCharacterization) GetBehaviorCharacterizationAsArray() []float64 {
	return []float64{c.x, c.y}
}

type endPointFactory struct{}

func (endPointFactory) New() BehaviorCharacterization {
	return &EndPointCharacterization{}
}

// TrajectoryCharacterization records every visited position in order.
type TrajectoryCharacterization struct {
	points []float64
}

func (c *TrajectoryCharacterization) UpdateBehaviors(x, y float64) {
	c.points = append(c.points, x, y)
}

func (c *TrajectoryCharacterization) GetBehaviorCharacterizationAsArray() []float64 {
	return c.points
}

type trajectoryFactory struct{}

func (trajectoryFactory) New() BehaviorCharacterization {
	return &TrajectoryCharacterization{}
}
