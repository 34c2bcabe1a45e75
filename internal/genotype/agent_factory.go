package genotype

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"symbion/internal/nn"
)

const (
	weightMutateProb   = 0.80
	addConnectionProb  = 0.12
	weightPerturbProb  = 0.90
	weightPerturbScale = 0.4
	weightRange        = 1.0

	// A mutated child that fails to decode is re-mutated from the same
	// parent; this caps the internal retry loop.
	maxReproductionAttempts = 50
)

var ErrReproductionFailed = errors.New("reproduction failed to produce a valid genome")

// AgentFactory creates and reproduces navigator genomes. Identifier and
// innovation allocation are thread safe; the random source is always passed
// in by the owning engine so runs stay deterministic under a fixed seed.
type AgentFactory struct {
	ids         *Sequence
	innovations *InnovationTable
	inputCount  int
	outputCount int
}

func NewAgentFactory(ids *Sequence, inputCount, outputCount int) (*AgentFactory, error) {
	if ids == nil {
		return nil, fmt.Errorf("id sequence is required")
	}
	if inputCount <= 0 || outputCount <= 0 {
		return nil, fmt.Errorf("input and output counts must be > 0")
	}
	return &AgentFactory{
		ids:         ids,
		innovations: NewInnovationTable(uint64(inputCount + outputCount)),
		inputCount:  inputCount,
		outputCount: outputCount,
	}, nil
}

// CreateGenomeList builds count fresh seed genomes: inputs fully connected
// to outputs with random weights.
func (f *AgentFactory) CreateGenomeList(count, birthGeneration int, rng *rand.Rand) []*AgentGenome {
	out := make([]*AgentGenome, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, f.createSeedGenome(birthGeneration, rng))
	}
	return out
}

func (f *AgentFactory) createSeedGenome(birthGeneration int, rng *rand.Rand) *AgentGenome {
	g := &AgentGenome{
		ID:    f.ids.Next(),
		Birth: birthGeneration,
	}
	for i := 0; i < f.inputCount; i++ {
		g.Nodes = append(g.Nodes, NodeGene{
			Innovation: uint64(i + 1),
			Kind:       NodeInput,
			Activation: "identity",
		})
	}
	for i := 0; i < f.outputCount; i++ {
		g.Nodes = append(g.Nodes, NodeGene{
			Innovation: uint64(f.inputCount + i + 1),
			Kind:       NodeOutput,
			Activation: "sigmoid",
			Bias:       randomWeight(rng),
		})
	}
	for _, in := range g.Nodes[:f.inputCount] {
		for _, out := range g.Nodes[f.inputCount:] {
			g.Connections = append(g.Connections, ConnectionGene{
				Innovation: f.innovations.ConnectionInnovation(in.Innovation, out.Innovation),
				From:       in.Innovation,
				To:         out.Innovation,
				Weight:     randomWeight(rng),
				Enabled:    true,
			})
		}
	}
	sortConnections(g)
	return g
}

// Adopt registers genomes created by an earlier run, advancing the id
// sequence and innovation table past everything they use.
func (f *AgentFactory) Adopt(genomes []*AgentGenome) {
	for _, g := range genomes {
		f.ids.Advance(g.ID)
		for _, n := range g.Nodes {
			f.innovations.Advance(n.Innovation)
		}
		for _, c := range g.Connections {
			f.innovations.Advance(c.Innovation)
		}
	}
}

// Reproduce builds one offspring from parent, optionally crossed with mate,
// retrying mutation until the child decodes to a structurally valid network.
func (f *AgentFactory) Reproduce(parent, mate *AgentGenome, birthGeneration int, rng *rand.Rand) (*AgentGenome, error) {
	for attempt := 0; attempt < maxReproductionAttempts; attempt++ {
		var child *AgentGenome
		if mate != nil {
			child = f.crossover(parent, mate, rng, birthGeneration)
		} else {
			child = parent.Clone(f.ids.Next(), birthGeneration)
		}
		f.mutate(child, rng)
		if _, err := f.Decode(child); err == nil {
			return child, nil
		}
	}
	return nil, fmt.Errorf("%w: parent=%d attempts=%d", ErrReproductionFailed, parent.ID, maxReproductionAttempts)
}

func (f *AgentFactory) mutate(g *AgentGenome, rng *rand.Rand) {
	roll := rng.Float64()
	switch {
	case roll < weightMutateProb:
		f.mutateWeights(g, rng)
	case roll < weightMutateProb+addConnectionProb:
		f.mutateAddConnection(g, rng)
	default:
		f.mutateAddNode(g, rng)
	}
	g.phenome = nil
}

func (f *AgentFactory) mutateWeights(g *AgentGenome, rng *rand.Rand) {
	for i := range g.Connections {
		if rng.Float64() < weightPerturbProb {
			g.Connections[i].Weight += rng.NormFloat64() * weightPerturbScale
		} else {
			g.Connections[i].Weight = randomWeight(rng)
		}
	}
	for i := range g.Nodes {
		if g.Nodes[i].Kind != NodeInput && rng.Float64() < 0.1 {
			g.Nodes[i].Bias += rng.NormFloat64() * weightPerturbScale
		}
	}
}

func (f *AgentFactory) mutateAddConnection(g *AgentGenome, rng *rand.Rand) {
	// A handful of draws is enough; dense genomes simply fall back to a
	// weight perturbation.
	for attempt := 0; attempt < 10; attempt++ {
		from := g.Nodes[rng.Intn(len(g.Nodes))]
		to := g.Nodes[rng.Intn(len(g.Nodes))]
		if to.Kind == NodeInput {
			continue
		}
		if g.hasConnection(from.Innovation, to.Innovation) {
			continue
		}
		g.Connections = append(g.Connections, ConnectionGene{
			Innovation: f.innovations.ConnectionInnovation(from.Innovation, to.Innovation),
			From:       from.Innovation,
			To:         to.Innovation,
			Weight:     randomWeight(rng),
			Enabled:    true,
		})
		sortConnections(g)
		return
	}
	f.mutateWeights(g, rng)
}

func (f *AgentFactory) mutateAddNode(g *AgentGenome, rng *rand.Rand) {
	enabled := make([]int, 0, len(g.Connections))
	for i, c := range g.Connections {
		if c.Enabled {
			enabled = append(enabled, i)
		}
	}
	if len(enabled) == 0 {
		return
	}
	idx := enabled[rng.Intn(len(enabled))]
	split := &g.Connections[idx]
	split.Enabled = false

	nodeInnovation := f.innovations.NodeInnovation(split.From, split.To)
	if _, exists := g.nodeIndex(nodeInnovation); exists {
		split.Enabled = true
		f.mutateWeights(g, rng)
		return
	}
	g.Nodes = append(g.Nodes, NodeGene{
		Innovation: nodeInnovation,
		Kind:       NodeHidden,
		Activation: "tanh",
	})
	g.Connections = append(g.Connections,
		ConnectionGene{
			Innovation: f.innovations.ConnectionInnovation(split.From, nodeInnovation),
			From:       split.From,
			To:         nodeInnovation,
			Weight:     1,
			Enabled:    true,
		},
		ConnectionGene{
			Innovation: f.innovations.ConnectionInnovation(nodeInnovation, split.To),
			From:       nodeInnovation,
			To:         split.To,
			Weight:     split.Weight,
			Enabled:    true,
		},
	)
	sortConnections(g)
}

// crossover aligns connections by innovation number. Matching genes take a
// random parent's weight; disjoint and excess genes come from the primary
// parent, which keeps the child decodable from a known-good topology.
func (f *AgentFactory) crossover(primary, secondary *AgentGenome, rng *rand.Rand, birthGeneration int) *AgentGenome {
	child := primary.Clone(f.ids.Next(), birthGeneration)
	byInnovation := make(map[uint64]ConnectionGene, len(secondary.Connections))
	for _, c := range secondary.Connections {
		byInnovation[c.Innovation] = c
	}
	for i := range child.Connections {
		other, ok := byInnovation[child.Connections[i].Innovation]
		if !ok {
			continue
		}
		if rng.Float64() < 0.5 {
			child.Connections[i].Weight = other.Weight
		}
		if !child.Connections[i].Enabled && other.Enabled {
			child.Connections[i].Enabled = true
		}
	}
	return child
}

// Decode turns the genome into its phenotype network, caching the result on
// the genome. A genome with no enabled sensor-to-actuator pathway is
// degenerate and fails to decode.
func (f *AgentFactory) Decode(g *AgentGenome) (*nn.Network, error) {
	if g.phenome != nil {
		return g.phenome, nil
	}

	indexByInnovation := make(map[uint64]int, len(g.Nodes))
	specs := make([]nn.NodeSpec, len(g.Nodes))
	var inputs, outputs []int
	for i, node := range g.Nodes {
		indexByInnovation[node.Innovation] = i
		specs[i] = nn.NodeSpec{Activation: node.Activation, Bias: node.Bias}
		switch node.Kind {
		case NodeInput:
			inputs = append(inputs, i)
		case NodeOutput:
			outputs = append(outputs, i)
		}
	}
	if len(inputs) != f.inputCount || len(outputs) != f.outputCount {
		return nil, fmt.Errorf("genome %d: io mismatch: inputs=%d outputs=%d", g.ID, len(inputs), len(outputs))
	}

	edges := make([]nn.EdgeSpec, 0, len(g.Connections))
	for _, c := range g.Connections {
		if !c.Enabled {
			continue
		}
		fromIdx, okFrom := indexByInnovation[c.From]
		toIdx, okTo := indexByInnovation[c.To]
		if !okFrom || !okTo {
			return nil, fmt.Errorf("genome %d: connection %d references missing node", g.ID, c.Innovation)
		}
		edges = append(edges, nn.EdgeSpec{From: fromIdx, To: toIdx, Weight: c.Weight})
	}
	if err := checkReachability(len(g.Nodes), inputs, outputs, edges); err != nil {
		return nil, fmt.Errorf("genome %d: %w", g.ID, err)
	}

	net, err := nn.New(specs, inputs, outputs, edges)
	if err != nil {
		return nil, fmt.Errorf("genome %d: %w", g.ID, err)
	}
	g.phenome = net
	return net, nil
}

// checkReachability requires at least one output reachable from some input
// over enabled edges.
func checkReachability(nodeCount int, inputs, outputs []int, edges []nn.EdgeSpec) error {
	adjacency := make([][]int, nodeCount)
	for _, e := range edges {
		adjacency[e.From] = append(adjacency[e.From], e.To)
	}
	visited := make([]bool, nodeCount)
	stack := append([]int(nil), inputs...)
	for _, idx := range stack {
		visited[idx] = true
	}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range adjacency[current] {
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	for _, idx := range outputs {
		if visited[idx] {
			return nil
		}
	}
	return errors.New("no output reachable from inputs")
}

func sortConnections(g *AgentGenome) {
	sort.Slice(g.Connections, func(i, j int) bool {
		return g.Connections[i].Innovation < g.Connections[j].Innovation
	})
}

func randomWeight(rng *rand.Rand) float64 {
	return (rng.Float64()*2 - 1) * weightRange
}
