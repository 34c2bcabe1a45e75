package genotype

// WallGene places one dividing wall inside a maze chamber. Position picks
// where the chamber is split, Passage where the gap in that wall sits; both
// are relative to the chamber extent so genes stay meaningful as the maze
// grows.
type WallGene struct {
	Position   float64 `json:"position"`
	Passage    float64 `json:"passage"`
	Horizontal bool    `json:"horizontal"`
}

// MazeGenome encodes a maze environment: an outer rectangle of Width x
// Height maze units subdivided by wall genes. Start and goal placement is
// derived during decoding.
type MazeGenome struct {
	ID     GenomeID       `json:"id"`
	Birth  int            `json:"birth_generation"`
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Walls  []WallGene     `json:"walls"`
	Eval   EvaluationInfo `json:"evaluation"`
}

func (g *MazeGenome) Identity() GenomeID {
	return g.ID
}

func (g *MazeGenome) BirthGeneration() int {
	return g.Birth
}

func (g *MazeGenome) Evaluation() *EvaluationInfo {
	return &g.Eval
}

// Complexity grows with both the wall count and the maze extent.
func (g *MazeGenome) Complexity() int {
	return len(g.Walls) + g.Width + g.Height
}

func (g *MazeGenome) ClusterFeatures() []float64 {
	meanPosition := 0.0
	if len(g.Walls) > 0 {
		for _, w := range g.Walls {
			meanPosition += w.Position
		}
		meanPosition /= float64(len(g.Walls))
	}
	return []float64{float64(len(g.Walls)), float64(g.Width), float64(g.Height), meanPosition}
}

func (g *MazeGenome) Clone(id GenomeID, birth int) *MazeGenome {
	walls := make([]WallGene, len(g.Walls))
	copy(walls, g.Walls)
	return &MazeGenome{
		ID:     id,
		Birth:  birth,
		Width:  g.Width,
		Height: g.Height,
		Walls:  walls,
	}
}
