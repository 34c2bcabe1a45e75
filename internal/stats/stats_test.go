package stats

import (
	"math"
	"testing"

	"symbion/internal/genotype"
)

type statGenome struct {
	id         genotype.GenomeID
	birth      int
	complexity int
	eval       genotype.EvaluationInfo
}

func (g *statGenome) Identity() genotype.GenomeID          { return g.id }
func (g *statGenome) BirthGeneration() int                 { return g.birth }
func (g *statGenome) Complexity() int                      { return g.complexity }
func (g *statGenome) Evaluation() *genotype.EvaluationInfo { return &g.eval }
func (g *statGenome) ClusterFeatures() []float64           { return []float64{float64(g.complexity)} }

func TestSummarize(t *testing.T) {
	population := []*statGenome{
		{id: 1, birth: 0, complexity: 10, eval: genotype.EvaluationInfo{IsViable: true, EvaluationCount: 4}},
		{id: 2, birth: 2, complexity: 20, eval: genotype.EvaluationInfo{IsViable: true, EvaluationCount: 2}},
		{id: 3, birth: 4, complexity: 30, eval: genotype.EvaluationInfo{IsViable: false, EvaluationCount: 6}},
	}

	s := Summarize("agents", 4, population)
	if s.Size != 3 || s.Population != "agents" || s.Generation != 4 {
		t.Fatalf("header fields: %+v", s)
	}
	if s.MeanComplexity != 20 {
		t.Fatalf("mean complexity: %f", s.MeanComplexity)
	}
	if s.MaxComplexity != 30 {
		t.Fatalf("max complexity: %d", s.MaxComplexity)
	}
	if math.Abs(s.StdDevComplexity-10) > 1e-9 {
		t.Fatalf("stddev complexity: %f", s.StdDevComplexity)
	}
	if math.Abs(s.MeanAge-2) > 1e-9 {
		t.Fatalf("mean age: %f", s.MeanAge)
	}
	if math.Abs(s.MeanEvaluations-4) > 1e-9 {
		t.Fatalf("mean evaluations: %f", s.MeanEvaluations)
	}
	if math.Abs(s.ViableFraction-2.0/3.0) > 1e-9 {
		t.Fatalf("viable fraction: %f", s.ViableFraction)
	}
}

func TestSummarizeEmptyPopulation(t *testing.T) {
	s := Summarize[*statGenome]("mazes", 7, nil)
	if s.Size != 0 || s.MeanComplexity != 0 || s.ViableFraction != 0 {
		t.Fatalf("empty population must summarize to zeros: %+v", s)
	}
}
