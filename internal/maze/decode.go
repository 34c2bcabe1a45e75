package maze

import (
	"errors"
	"fmt"

	"symbion/internal/genotype"
	"symbion/internal/geom"
)

var (
	ErrUnsolvable = errors.New("maze has no path from start to goal")
)

// DecodeConfig fixes the genome-to-world translation. The same config must
// be used for every decode within a run so phenotypes stay comparable.
type DecodeConfig struct {
	// Scale converts one maze unit to world units.
	Scale float64
	// PassageWidth is the gap left in every dividing wall, in world units.
	PassageWidth float64
	// AgentRadius is the navigator's collision radius, used by the
	// solvability check.
	AgentRadius float64
	// BaseTimesteps plus TimestepsPerUnit times the maze extent gives the
	// trial budget, so larger mazes get proportionally more time.
	BaseTimesteps    int
	TimestepsPerUnit int
}

func (c DecodeConfig) normalized() (DecodeConfig, error) {
	if c.Scale <= 0 {
		c.Scale = 20
	}
	if c.PassageWidth <= 0 {
		c.PassageWidth = 3 * c.Scale
	}
	if c.AgentRadius <= 0 {
		c.AgentRadius = c.Scale / 4
	}
	if c.BaseTimesteps <= 0 {
		c.BaseTimesteps = 200
	}
	if c.TimestepsPerUnit < 0 {
		return c, fmt.Errorf("timesteps per unit must be >= 0")
	}
	if c.TimestepsPerUnit == 0 {
		c.TimestepsPerUnit = 10
	}
	if c.PassageWidth <= 2*c.AgentRadius {
		return c, fmt.Errorf("passage width %f does not admit agent radius %f", c.PassageWidth, c.AgentRadius)
	}
	return c, nil
}

type chamber struct {
	xMin, yMin, xMax, yMax float64
}

// Decode translates a maze genome into world geometry. Wall genes are
// applied round-robin over the current chamber list: each gene splits one
// chamber with a dividing wall carrying a single passage gap. Genes that
// land in a chamber too small to split are skipped rather than rejected.
// The decoded maze is checked for solvability; an unsolvable layout is a
// degenerate decode and reported as an error so reproduction can retry.
func Decode(g *genotype.MazeGenome, cfg DecodeConfig) (*Structure, error) {
	if g == nil {
		return nil, fmt.Errorf("maze genome is required")
	}
	if g.Width <= 0 || g.Height <= 0 {
		return nil, fmt.Errorf("maze genome %d: extent must be positive, got %dx%d", g.ID, g.Width, g.Height)
	}
	cfg, err := cfg.normalized()
	if err != nil {
		return nil, fmt.Errorf("maze genome %d: %w", g.ID, err)
	}

	width := float64(g.Width) * cfg.Scale
	height := float64(g.Height) * cfg.Scale

	walls := []geom.Segment{
		{A: geom.Point{X: 0, Y: 0}, B: geom.Point{X: width, Y: 0}},
		{A: geom.Point{X: width, Y: 0}, B: geom.Point{X: width, Y: height}},
		{A: geom.Point{X: width, Y: height}, B: geom.Point{X: 0, Y: height}},
		{A: geom.Point{X: 0, Y: height}, B: geom.Point{X: 0, Y: 0}},
	}

	chambers := []chamber{{xMin: 0, yMin: 0, xMax: width, yMax: height}}
	minSplit := 2 * cfg.PassageWidth

	for i, gene := range g.Walls {
		ci := i % len(chambers)
		c := chambers[ci]
		if gene.Horizontal {
			if c.yMax-c.yMin < minSplit {
				continue
			}
			y := clampToRange(c.yMin+gene.Position*(c.yMax-c.yMin), c.yMin+cfg.PassageWidth, c.yMax-cfg.PassageWidth)
			gapLo, gapHi := passageBounds(c.xMin, c.xMax, gene.Passage, cfg.PassageWidth)
			if gapLo > c.xMin {
				walls = append(walls, geom.Segment{A: geom.Point{X: c.xMin, Y: y}, B: geom.Point{X: gapLo, Y: y}})
			}
			if gapHi < c.xMax {
				walls = append(walls, geom.Segment{A: geom.Point{X: gapHi, Y: y}, B: geom.Point{X: c.xMax, Y: y}})
			}
			chambers[ci] = chamber{xMin: c.xMin, yMin: c.yMin, xMax: c.xMax, yMax: y}
			chambers = append(chambers, chamber{xMin: c.xMin, yMin: y, xMax: c.xMax, yMax: c.yMax})
		} else {
			if c.xMax-c.xMin < minSplit {
				continue
			}
			x := clampToRange(c.xMin+gene.Position*(c.xMax-c.xMin), c.xMin+cfg.PassageWidth, c.xMax-cfg.PassageWidth)
			gapLo, gapHi := passageBounds(c.yMin, c.yMax, gene.Passage, cfg.PassageWidth)
			if gapLo > c.yMin {
				walls = append(walls, geom.Segment{A: geom.Point{X: x, Y: c.yMin}, B: geom.Point{X: x, Y: gapLo}})
			}
			if gapHi < c.yMax {
				walls = append(walls, geom.Segment{A: geom.Point{X: x, Y: gapHi}, B: geom.Point{X: x, Y: c.yMax}})
			}
			chambers[ci] = chamber{xMin: c.xMin, yMin: c.yMin, xMax: x, yMax: c.yMax}
			chambers = append(chambers, chamber{xMin: x, yMin: c.yMin, xMax: c.xMax, yMax: c.yMax})
		}
	}

	inset := cfg.PassageWidth / 2
	structure := &Structure{
		GenomeID:     g.ID,
		Width:        width,
		Height:       height,
		Walls:        walls,
		Start:        geom.Point{X: inset, Y: inset},
		Goal:         geom.Point{X: width - inset, Y: height - inset},
		MaxTimesteps: cfg.BaseTimesteps + cfg.TimestepsPerUnit*(g.Width+g.Height),
	}

	if !solvable(structure, cfg) {
		return nil, fmt.Errorf("maze genome %d: %w", g.ID, ErrUnsolvable)
	}
	return structure, nil
}

// NewValidator adapts Decode into the genome factory's validation hook.
func NewValidator(cfg DecodeConfig) func(*genotype.MazeGenome) error {
	return func(g *genotype.MazeGenome) error {
		_, err := Decode(g, cfg)
		return err
	}
}

func passageBounds(lo, hi, passage, width float64) (float64, float64) {
	center := lo + passage*(hi-lo)
	gapLo := center - width/2
	gapHi := center + width/2
	if gapLo < lo {
		gapLo = lo
		gapHi = lo + width
	}
	if gapHi > hi {
		gapHi = hi
		gapLo = hi - width
	}
	if gapLo < lo {
		gapLo = lo
	}
	return gapLo, gapHi
}

func clampToRange(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
