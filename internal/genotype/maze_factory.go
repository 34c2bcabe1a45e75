package genotype

import (
	"fmt"
	"math/rand"
)

const (
	mazePerturbWallProb    = 0.35
	mazePerturbPassageProb = 0.35
	mazeAddWallProb        = 0.15
	mazeDeleteWallProb     = 0.05
	// remainder expands the maze extent

	mazePositionMin = 0.05
	mazePositionMax = 0.95
)

// MazeFactoryConfig bounds the evolvable maze space.
type MazeFactoryConfig struct {
	SeedWidth  int
	SeedHeight int
	MaxWidth   int
	MaxHeight  int
	MaxWalls   int
	SeedWalls  int
}

// MazeFactory creates and reproduces maze genomes. Structural validity is
// delegated to the decoder via the Validate hook, so the genotype package
// stays independent of maze geometry.
type MazeFactory struct {
	ids      *Sequence
	cfg      MazeFactoryConfig
	Validate func(*MazeGenome) error
}

func NewMazeFactory(ids *Sequence, cfg MazeFactoryConfig) (*MazeFactory, error) {
	if ids == nil {
		return nil, fmt.Errorf("id sequence is required")
	}
	if cfg.SeedWidth <= 0 || cfg.SeedHeight <= 0 {
		return nil, fmt.Errorf("seed maze extent must be > 0")
	}
	if cfg.MaxWidth < cfg.SeedWidth || cfg.MaxHeight < cfg.SeedHeight {
		return nil, fmt.Errorf("max maze extent must cover the seed extent")
	}
	if cfg.MaxWalls <= 0 {
		return nil, fmt.Errorf("max wall count must be > 0")
	}
	if cfg.SeedWalls < 0 || cfg.SeedWalls > cfg.MaxWalls {
		return nil, fmt.Errorf("seed wall count must be in [0, max walls]")
	}
	return &MazeFactory{ids: ids, cfg: cfg}, nil
}

func (f *MazeFactory) CreateGenomeList(count, birthGeneration int, rng *rand.Rand) []*MazeGenome {
	out := make([]*MazeGenome, 0, count)
	for i := 0; i < count; i++ {
		g := &MazeGenome{
			ID:     f.ids.Next(),
			Birth:  birthGeneration,
			Width:  f.cfg.SeedWidth,
			Height: f.cfg.SeedHeight,
		}
		for w := 0; w < f.cfg.SeedWalls; w++ {
			g.Walls = append(g.Walls, randomWallGene(rng))
		}
		out = append(out, g)
	}
	return out
}

// Adopt registers genomes created by an earlier run, advancing the shared
// id sequence past their identifiers.
func (f *MazeFactory) Adopt(genomes []*MazeGenome) {
	for _, g := range genomes {
		f.ids.Advance(g.ID)
	}
}

// Reproduce builds one offspring, retrying mutation until the child decodes
// to a solvable maze structure.
func (f *MazeFactory) Reproduce(parent, mate *MazeGenome, birthGeneration int, rng *rand.Rand) (*MazeGenome, error) {
	for attempt := 0; attempt < maxReproductionAttempts; attempt++ {
		var child *MazeGenome
		if mate != nil {
			child = f.crossover(parent, mate, rng, birthGeneration)
		} else {
			child = parent.Clone(f.ids.Next(), birthGeneration)
		}
		f.mutate(child, rng)
		if f.Validate == nil || f.Validate(child) == nil {
			return child, nil
		}
	}
	return nil, fmt.Errorf("%w: parent=%d attempts=%d", ErrReproductionFailed, parent.ID, maxReproductionAttempts)
}

func (f *MazeFactory) mutate(g *MazeGenome, rng *rand.Rand) {
	roll := rng.Float64()
	switch {
	case roll < mazePerturbWallProb:
		if len(g.Walls) > 0 {
			i := rng.Intn(len(g.Walls))
			g.Walls[i].Position = clampPosition(g.Walls[i].Position + rng.NormFloat64()*0.1)
		} else {
			g.Walls = append(g.Walls, randomWallGene(rng))
		}
	case roll < mazePerturbWallProb+mazePerturbPassageProb:
		if len(g.Walls) > 0 {
			i := rng.Intn(len(g.Walls))
			g.Walls[i].Passage = clampPosition(g.Walls[i].Passage + rng.NormFloat64()*0.1)
		} else {
			g.Walls = append(g.Walls, randomWallGene(rng))
		}
	case roll < mazePerturbWallProb+mazePerturbPassageProb+mazeAddWallProb:
		if len(g.Walls) < f.cfg.MaxWalls {
			g.Walls = append(g.Walls, randomWallGene(rng))
		}
	case roll < mazePerturbWallProb+mazePerturbPassageProb+mazeAddWallProb+mazeDeleteWallProb:
		if len(g.Walls) > 1 {
			i := rng.Intn(len(g.Walls))
			g.Walls = append(g.Walls[:i], g.Walls[i+1:]...)
		}
	default:
		if rng.Float64() < 0.5 {
			if g.Width < f.cfg.MaxWidth {
				g.Width++
			}
		} else {
			if g.Height < f.cfg.MaxHeight {
				g.Height++
			}
		}
	}
}

// crossover keeps the primary parent's extent and mixes overlapping wall
// genes gene-by-gene.
func (f *MazeFactory) crossover(primary, secondary *MazeGenome, rng *rand.Rand, birthGeneration int) *MazeGenome {
	child := primary.Clone(f.ids.Next(), birthGeneration)
	for i := range child.Walls {
		if i < len(secondary.Walls) && rng.Float64() < 0.5 {
			child.Walls[i] = secondary.Walls[i]
		}
	}
	return child
}

func randomWallGene(rng *rand.Rand) WallGene {
	return WallGene{
		Position:   mazePositionMin + rng.Float64()*(mazePositionMax-mazePositionMin),
		Passage:    mazePositionMin + rng.Float64()*(mazePositionMax-mazePositionMin),
		Horizontal: rng.Float64() < 0.5,
	}
}

func clampPosition(v float64) float64 {
	if v < mazePositionMin {
		return mazePositionMin
	}
	if v > mazePositionMax {
		return mazePositionMax
	}
	return v
}
