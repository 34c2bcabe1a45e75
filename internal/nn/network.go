package nn

import "fmt"

// NodeSpec describes one node in the arena. Input nodes receive their value
// from the sensor vector and ignore activation and bias.
type NodeSpec struct {
	Activation string
	Bias       float64
}

// EdgeSpec is a directed weighted edge between arena indices.
type EdgeSpec struct {
	From   int
	To     int
	Weight float64
}

type edge struct {
	from   int
	weight float64
}

// Network is a black-box controller: input vector in, activation, output
// vector out. Node state persists across activations so recurrent edges see
// the previous step's values; Reset clears it. A Network is not safe for
// concurrent trials; use Clone to run the same topology on another worker.
type Network struct {
	activations []ActivationFunc
	biases      []float64
	incoming    [][]edge
	inputs      []int
	outputs     []int
	isInput     []bool

	values []float64
	next   []float64
}

func New(nodes []NodeSpec, inputs, outputs []int, edges []EdgeSpec) (*Network, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("network requires at least one node")
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("network requires input and output nodes")
	}

	activations := make([]ActivationFunc, len(nodes))
	biases := make([]float64, len(nodes))
	for i, spec := range nodes {
		fn, err := GetActivation(spec.Activation)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		activations[i] = fn
		biases[i] = spec.Bias
	}

	isInput := make([]bool, len(nodes))
	for _, idx := range inputs {
		if idx < 0 || idx >= len(nodes) {
			return nil, fmt.Errorf("input index out of range: %d", idx)
		}
		isInput[idx] = true
	}
	for _, idx := range outputs {
		if idx < 0 || idx >= len(nodes) {
			return nil, fmt.Errorf("output index out of range: %d", idx)
		}
	}

	incoming := make([][]edge, len(nodes))
	for _, e := range edges {
		if e.From < 0 || e.From >= len(nodes) || e.To < 0 || e.To >= len(nodes) {
			return nil, fmt.Errorf("edge index out of range: %d -> %d", e.From, e.To)
		}
		incoming[e.To] = append(incoming[e.To], edge{from: e.From, weight: e.Weight})
	}

	return &Network{
		activations: activations,
		biases:      biases,
		incoming:    incoming,
		inputs:      append([]int(nil), inputs...),
		outputs:     append([]int(nil), outputs...),
		isInput:     isInput,
		values:      make([]float64, len(nodes)),
		next:        make([]float64, len(nodes)),
	}, nil
}

// Activate performs one synchronous update: all non-input nodes compute from
// the previous step's values, which makes recurrent edges well defined.
func (n *Network) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(n.inputs) {
		return nil, fmt.Errorf("input length mismatch: got=%d want=%d", len(inputs), len(n.inputs))
	}

	for i, idx := range n.inputs {
		n.values[idx] = inputs[i]
	}

	copy(n.next, n.values)
	for idx := range n.activations {
		if n.isInput[idx] {
			continue
		}
		total := n.biases[idx]
		for _, e := range n.incoming[idx] {
			total += n.values[e.from] * e.weight
		}
		n.next[idx] = n.activations[idx](total)
	}
	n.values, n.next = n.next, n.values

	out := make([]float64, len(n.outputs))
	for i, idx := range n.outputs {
		out[i] = n.values[idx]
	}
	return out, nil
}

// Reset clears persistent node state between trials.
func (n *Network) Reset() {
	for i := range n.values {
		n.values[i] = 0
		n.next[i] = 0
	}
}

// Clone shares the immutable topology but owns fresh node state, so the
// clone can run trials concurrently with the original.
func (n *Network) Clone() *Network {
	return &Network{
		activations: n.activations,
		biases:      n.biases,
		incoming:    n.incoming,
		inputs:      n.inputs,
		outputs:     n.outputs,
		isInput:     n.isInput,
		values:      make([]float64, len(n.values)),
		next:        make([]float64, len(n.next)),
	}
}

// InputCount returns the size of the expected sensor vector.
func (n *Network) InputCount() int {
	return len(n.inputs)
}

// OutputCount returns the size of the actuator vector.
func (n *Network) OutputCount() int {
	return len(n.outputs)
}
