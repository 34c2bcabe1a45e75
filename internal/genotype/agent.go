package genotype

import (
	"math"

	"symbion/internal/nn"
)

type NodeKind string

const (
	NodeInput  NodeKind = "input"
	NodeOutput NodeKind = "output"
	NodeHidden NodeKind = "hidden"
)

type NodeGene struct {
	Innovation uint64   `json:"innovation"`
	Kind       NodeKind `json:"kind"`
	Activation string   `json:"activation"`
	Bias       float64  `json:"bias"`
}

type ConnectionGene struct {
	Innovation uint64  `json:"innovation"`
	From       uint64  `json:"from"`
	To         uint64  `json:"to"`
	Weight     float64 `json:"weight"`
	Enabled    bool    `json:"enabled"`
}

// AgentGenome encodes a maze-navigator controller. Nodes and connections are
// kept sorted by innovation number; the decoded network is cached until the
// genome is cloned for mutation. A genome is owned by a single engine thread
// at a time, so the cache needs no locking.
type AgentGenome struct {
	ID          GenomeID         `json:"id"`
	Birth       int              `json:"birth_generation"`
	Nodes       []NodeGene       `json:"nodes"`
	Connections []ConnectionGene `json:"connections"`
	Eval        EvaluationInfo   `json:"evaluation"`

	phenome *nn.Network
}

func (g *AgentGenome) Identity() GenomeID {
	return g.ID
}

func (g *AgentGenome) BirthGeneration() int {
	return g.Birth
}

func (g *AgentGenome) Evaluation() *EvaluationInfo {
	return &g.Eval
}

// Complexity counts nodes plus enabled connections.
func (g *AgentGenome) Complexity() int {
	total := len(g.Nodes)
	for _, c := range g.Connections {
		if c.Enabled {
			total++
		}
	}
	return total
}

// ClusterFeatures summarizes the genome for genetic-distance clustering.
func (g *AgentGenome) ClusterFeatures() []float64 {
	enabled := 0
	weightSum := 0.0
	for _, c := range g.Connections {
		if !c.Enabled {
			continue
		}
		enabled++
		weightSum += math.Abs(c.Weight)
	}
	meanWeight := 0.0
	if enabled > 0 {
		meanWeight = weightSum / float64(enabled)
	}
	return []float64{float64(len(g.Nodes)), float64(enabled), meanWeight}
}

// Clone copies the genome under a new identity. The phenome cache does not
// carry over; a clone is expected to be mutated before use.
func (g *AgentGenome) Clone(id GenomeID, birth int) *AgentGenome {
	nodes := make([]NodeGene, len(g.Nodes))
	copy(nodes, g.Nodes)
	connections := make([]ConnectionGene, len(g.Connections))
	copy(connections, g.Connections)
	return &AgentGenome{
		ID:          id,
		Birth:       birth,
		Nodes:       nodes,
		Connections: connections,
	}
}

func (g *AgentGenome) nodeIndex(innovation uint64) (int, bool) {
	for i, n := range g.Nodes {
		if n.Innovation == innovation {
			return i, true
		}
	}
	return 0, false
}

func (g *AgentGenome) hasConnection(from, to uint64) bool {
	for _, c := range g.Connections {
		if c.From == from && c.To == to {
			return true
		}
	}
	return false
}
