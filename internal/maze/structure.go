// Package maze decodes maze genomes into simulation-ready structures: wall
// segments in world coordinates, start and goal points, and the timestep
// budget for navigation trials.
package maze

import (
	"symbion/internal/genotype"
	"symbion/internal/geom"
)

// Structure is the decoded, immutable phenotype of a maze genome. Instances
// are shared across evaluation workers and must never be mutated after
// decoding.
type Structure struct {
	GenomeID     genotype.GenomeID
	Width        float64
	Height       float64
	Walls        []geom.Segment
	Start        geom.Point
	Goal         geom.Point
	MaxTimesteps int
}

// MaxDistance is the diagonal of the maze extent, used to normalize trial
// fitness.
func (s *Structure) MaxDistance() float64 {
	diag := geom.Point{}.DistanceTo(geom.Point{X: s.Width, Y: s.Height})
	return diag
}
