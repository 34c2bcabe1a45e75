// Package mcc couples two queueing EAs into one minimal-criteria
// coevolution run: agents must solve mazes drawn from the maze population,
// mazes must be solvable-but-not-trivial for the agent population. The
// package also hosts the bootstrap initializer that produces the first
// mutually satisfiable seed populations.
package mcc

import (
	"context"
	"fmt"
	"sync"

	"symbion/internal/evo"
	"symbion/internal/genotype"
	"symbion/internal/maze"
	"symbion/internal/stats"
)

const (
	agentTaskName = "agents-ea"
	mazeTaskName  = "mazes-ea"
)

// ContainerStats is the read-only monitoring view over both populations.
type ContainerStats struct {
	Agents      stats.PopulationStats `json:"agents"`
	Mazes       stats.PopulationStats `json:"mazes"`
	Evaluations int64                 `json:"evaluations"`
	State       string                `json:"state"`
}

// Container owns exactly two queueing EAs and keeps their evaluators
// cross-wired: after every generation of one population, the opposing
// evaluator's phenotype snapshot is refreshed before that side's next
// generation is judged.
type Container struct {
	agents *evo.QueueingEA[*genotype.AgentGenome]
	mazes  *evo.QueueingEA[*genotype.MazeGenome]

	agentEval *evo.AgentEvaluator
	mazeEval  *evo.MazeEvaluator

	decoder     evo.AgentDecoder
	decodeCfg   maze.DecodeConfig
	evaluations *evo.EvaluationCounter
	supervisor  *Supervisor

	mu          sync.Mutex
	initialized bool
	observer    func(evo.GenerationSummary)
	fatalErr    error
}

func NewContainer(
	agents *evo.QueueingEA[*genotype.AgentGenome],
	mazes *evo.QueueingEA[*genotype.MazeGenome],
	agentEval *evo.AgentEvaluator,
	mazeEval *evo.MazeEvaluator,
	decoder evo.AgentDecoder,
	decodeCfg maze.DecodeConfig,
	evaluations *evo.EvaluationCounter,
) (*Container, error) {
	if agents == nil || mazes == nil {
		return nil, fmt.Errorf("both population EAs are required")
	}
	if agentEval == nil || mazeEval == nil {
		return nil, fmt.Errorf("both evaluators are required")
	}
	if decoder == nil {
		return nil, fmt.Errorf("agent decoder is required")
	}
	if evaluations == nil {
		return nil, fmt.Errorf("evaluation counter is required")
	}

	c := &Container{
		agents:      agents,
		mazes:       mazes,
		agentEval:   agentEval,
		mazeEval:    mazeEval,
		decoder:     decoder,
		decodeCfg:   decodeCfg,
		evaluations: evaluations,
	}
	c.supervisor = NewSupervisor(func(name string, err error) {
		c.mu.Lock()
		if c.fatalErr == nil {
			c.fatalErr = fmt.Errorf("%s: %w", name, err)
		}
		c.mu.Unlock()
	})
	return c, nil
}

// SetObserver registers a callback invoked with every generation summary
// from either EA, on that EA's loop goroutine. Must be called before
// Initialize.
func (c *Container) SetObserver(fn func(evo.GenerationSummary)) {
	c.mu.Lock()
	c.observer = fn
	c.mu.Unlock()
}

// Initialize seeds both EAs and cross-wires the evaluators so each side's
// first generation already evaluates against the opposing seed population.
// Seed genomes must carry viable evaluation records (the bootstrap's
// verification step guarantees this).
func (c *Container) Initialize(seedAgents []*genotype.AgentGenome, seedMazes []*genotype.MazeGenome) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return fmt.Errorf("container already initialized")
	}
	c.mu.Unlock()

	if err := c.agents.Seed(seedAgents); err != nil {
		return fmt.Errorf("seed agent population: %w", err)
	}
	if err := c.mazes.Seed(seedMazes); err != nil {
		return fmt.Errorf("seed maze population: %w", err)
	}

	if err := c.refreshAgentEvaluator(); err != nil {
		return fmt.Errorf("cross-wire agent evaluator: %w", err)
	}
	if err := c.refreshMazeEvaluator(); err != nil {
		return fmt.Errorf("cross-wire maze evaluator: %w", err)
	}

	// Every maze generation repoints the agent evaluator, every agent
	// generation repoints the maze evaluator. The refresh runs on the
	// producing EA's goroutine before it starts its own next generation,
	// so the opposing side never falls more than one generation behind.
	c.agents.OnGeneration(func(s evo.GenerationSummary) {
		if err := c.refreshMazeEvaluator(); err != nil {
			c.recordFatal(err)
		}
		c.notify(s)
	})
	c.mazes.OnGeneration(func(s evo.GenerationSummary) {
		if err := c.refreshAgentEvaluator(); err != nil {
			c.recordFatal(err)
		}
		c.notify(s)
	})

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()
	return nil
}

// refreshAgentEvaluator rebuilds the agent evaluator's maze set from the
// current maze population. Counters of retained mazes survive.
func (c *Container) refreshAgentEvaluator() error {
	population := c.mazes.Population()
	structures := make([]*maze.Structure, 0, len(population))
	for _, g := range population {
		s, err := maze.Decode(g, c.decodeCfg)
		if err != nil {
			return fmt.Errorf("decode maze %d: %w", g.ID, err)
		}
		structures = append(structures, s)
	}
	c.agentEval.RefreshOpponents(structures)
	return nil
}

// refreshMazeEvaluator snapshots the current agent population as cloned
// phenotypes for the maze evaluator.
func (c *Container) refreshMazeEvaluator() error {
	population := c.agents.Population()
	phenomes := make([]evo.AgentPhenome, 0, len(population))
	for _, g := range population {
		net, err := c.decoder.Decode(g)
		if err != nil {
			return fmt.Errorf("decode agent %d: %w", g.ID, err)
		}
		phenomes = append(phenomes, evo.AgentPhenome{ID: g.ID, Net: net.Clone()})
	}
	c.mazeEval.RefreshOpponents(phenomes)
	return nil
}

func (c *Container) recordFatal(err error) {
	c.mu.Lock()
	if c.fatalErr == nil {
		c.fatalErr = err
	}
	c.mu.Unlock()
	go c.RequestTerminateAndWait()
}

func (c *Container) notify(s evo.GenerationSummary) {
	c.mu.Lock()
	observer := c.observer
	c.mu.Unlock()
	if observer != nil {
		observer(s)
	}
}

// StartContinue launches both EA loops under the supervisor. Valid from
// the initialized Ready state or from Paused.
func (c *Container) StartContinue() error {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return fmt.Errorf("container is not initialized")
	}
	c.mu.Unlock()

	if err := c.supervisor.Start(agentTaskName, func(ctx context.Context) error {
		return c.agents.Run(ctx)
	}); err != nil {
		return err
	}
	if err := c.supervisor.Start(mazeTaskName, func(ctx context.Context) error {
		return c.mazes.Run(ctx)
	}); err != nil {
		c.agents.RequestPauseAndWait()
		return err
	}
	return nil
}

// RequestPauseAndWait pauses both EAs at their next generation boundaries
// and blocks until both loops have stopped.
func (c *Container) RequestPauseAndWait() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.agents.RequestPauseAndWait() }()
	go func() { defer wg.Done(); c.mazes.RequestPauseAndWait() }()
	wg.Wait()
}

// RequestTerminateAndWait drives both EAs to Terminated and waits for the
// supervised loops to finish.
func (c *Container) RequestTerminateAndWait() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.agents.RequestTerminateAndWait() }()
	go func() { defer wg.Done(); c.mazes.RequestTerminateAndWait() }()
	wg.Wait()
	c.supervisor.StopAll()
}

// Wait blocks until both EA loops finish on their own (stop conditions or
// requested termination) and reports the first fatal error, if any.
func (c *Container) Wait() error {
	if err := c.supervisor.Wait(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatalErr
}

// State mirrors the union of both EAs: Terminated or Paused only when both
// sides reached it, Running when either side still runs.
func (c *Container) State() evo.RunState {
	a, m := c.agents.State(), c.mazes.State()
	switch {
	case a == evo.StateRunning || m == evo.StateRunning:
		return evo.StateRunning
	case a == evo.StateTerminated && m == evo.StateTerminated:
		return evo.StateTerminated
	case a == evo.StatePaused || m == evo.StatePaused:
		return evo.StatePaused
	default:
		return evo.StateReady
	}
}

// Champions reports the most complex member of each population.
func (c *Container) Champions() (*genotype.AgentGenome, *genotype.MazeGenome) {
	agent, _ := c.agents.Champion()
	mz, _ := c.mazes.Champion()
	return agent, mz
}

// Stats summarizes both populations for monitoring. Safe to poll from any
// goroutine; it never blocks the EA loops beyond a snapshot copy.
func (c *Container) Stats() ContainerStats {
	return ContainerStats{
		Agents:      stats.Summarize("agents", c.agents.Generation(), c.agents.Population()),
		Mazes:       stats.Summarize("mazes", c.mazes.Generation(), c.mazes.Population()),
		Evaluations: c.evaluations.Count(),
		State:       c.State().String(),
	}
}

// Populations returns copies of both current populations.
func (c *Container) Populations() ([]*genotype.AgentGenome, []*genotype.MazeGenome) {
	return c.agents.Population(), c.mazes.Population()
}

// Tasks exposes supervisor status for the CLI.
func (c *Container) Tasks() []TaskStatus {
	return c.supervisor.Tasks()
}

// Reset tears down both EAs so the container can be re-initialized.
func (c *Container) Reset() error {
	if err := c.agents.Reset(); err != nil {
		return err
	}
	if err := c.mazes.Reset(); err != nil {
		return err
	}
	c.mu.Lock()
	c.initialized = false
	c.fatalErr = nil
	c.mu.Unlock()
	return nil
}
