package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"symbion/internal/genotype"
)

type RunState int32

const (
	StateReady RunState = iota
	StateRunning
	StatePaused
	StateTerminated
)

func (s RunState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// GenerationSummary is handed to the OnGeneration callback after each
// completed generation tick.
type GenerationSummary struct {
	Population     string `json:"population"`
	Generation     int    `json:"generation"`
	Evaluations    int64  `json:"evaluations"`
	BatchSize      int    `json:"batch_size"`
	Accepted       int    `json:"accepted"`
	PopulationSize int    `json:"population_size"`
}

type QueueingConfig struct {
	// Name tags summaries and snapshots ("agents", "mazes").
	Name           string
	PopulationSize int
	// BatchSize offspring are produced and judged per generation.
	BatchSize int
	// SpeciesCount fixes the number of FIFO queues the population is
	// clustered into at seeding time.
	SpeciesCount int
	// CrossoverProbability selects sexual reproduction with a mate from
	// the parent's own queue; otherwise offspring are asexual mutants.
	CrossoverProbability float64
	// MaxGenerations and MaxEvaluations stop the loop; 0 disables the
	// bound. MaxEvaluations reads the run-wide shared counter.
	MaxGenerations int
	MaxEvaluations int64
	Seed           int64
}

// QueueingEA is the steady-state engine for one population: each generation
// it breeds a fixed-size offspring batch, judges it against the minimal
// criterion, accepts only viable offspring, and retires the oldest members
// of the same species queue to hold size. There is no fitness ranking
// anywhere in the loop.
type QueueingEA[G Genome] struct {
	cfg         QueueingConfig
	breeder     Breeder[G]
	evaluator   BatchEvaluator[G]
	evaluations *EvaluationCounter
	rng         *rand.Rand

	mu         sync.Mutex
	cond       *sync.Cond
	state      RunState
	queues     [][]G
	capacities []int
	generation int

	pauseRequested     atomic.Bool
	terminateRequested atomic.Bool

	onGeneration func(GenerationSummary)
}

func NewQueueingEA[G Genome](cfg QueueingConfig, breeder Breeder[G], evaluator BatchEvaluator[G], evaluations *EvaluationCounter) (*QueueingEA[G], error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("population name is required")
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be > 0")
	}
	if cfg.SpeciesCount <= 0 {
		cfg.SpeciesCount = 1
	}
	if cfg.SpeciesCount > cfg.PopulationSize {
		return nil, fmt.Errorf("species count %d exceeds population size %d", cfg.SpeciesCount, cfg.PopulationSize)
	}
	if cfg.CrossoverProbability < 0 || cfg.CrossoverProbability > 1 {
		return nil, fmt.Errorf("crossover probability must be in [0, 1], got %f", cfg.CrossoverProbability)
	}
	if breeder == nil {
		return nil, fmt.Errorf("breeder is required")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if evaluations == nil {
		return nil, fmt.Errorf("evaluation counter is required")
	}

	ea := &QueueingEA[G]{
		cfg:         cfg,
		breeder:     breeder,
		evaluator:   evaluator,
		evaluations: evaluations,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		state:       StateReady,
	}
	ea.cond = sync.NewCond(&ea.mu)
	return ea, nil
}

func (ea *QueueingEA[G]) Name() string { return ea.cfg.Name }

// OnGeneration registers the per-generation callback. Must be set before
// the loop starts; the callback runs on the loop goroutine.
func (ea *QueueingEA[G]) OnGeneration(fn func(GenerationSummary)) {
	ea.mu.Lock()
	ea.onGeneration = fn
	ea.mu.Unlock()
}

// Seed installs the initial population, clustering it into the configured
// species queues. Every seed must already carry a viable evaluation record.
func (ea *QueueingEA[G]) Seed(initial []G) error {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	if ea.state != StateReady {
		return fmt.Errorf("cannot seed %s population in state %s", ea.cfg.Name, ea.state)
	}
	if len(initial) > ea.cfg.PopulationSize {
		return fmt.Errorf("seed population %d exceeds population size %d", len(initial), ea.cfg.PopulationSize)
	}
	for _, g := range initial {
		if !g.Evaluation().IsViable {
			return fmt.Errorf("seed genome %d is not viable", g.Identity())
		}
	}

	groups, err := clusterPopulation(initial, ea.cfg.SpeciesCount, ea.rng)
	if err != nil {
		return fmt.Errorf("cluster %s population: %w", ea.cfg.Name, err)
	}

	queues := make([][]G, len(groups))
	for qi, group := range groups {
		queue := make([]G, 0, len(group))
		for _, idx := range group {
			queue = append(queue, initial[idx])
		}
		queues[qi] = queue
	}

	// Each queue's capacity is its seeded size. Acceptance into a full
	// queue evicts exactly one genome, so the total population stays at
	// the seeded count from the first generation onward.
	capacities := make([]int, len(groups))
	for qi := range capacities {
		capacities[qi] = len(queues[qi])
	}

	ea.queues = queues
	ea.capacities = capacities
	ea.generation = 0
	return nil
}

// Run executes the generation loop until a stop condition, pause, or
// terminate request, all honored only at generation boundaries. It blocks;
// callers run it on a dedicated goroutine.
func (ea *QueueingEA[G]) Run(ctx context.Context) error {
	if err := ea.transitionToRunning(); err != nil {
		return err
	}

	for {
		if ea.terminateRequested.Load() {
			ea.setState(StateTerminated)
			return nil
		}
		if ea.pauseRequested.Load() {
			ea.pauseRequested.Store(false)
			ea.setState(StatePaused)
			return nil
		}
		if err := ctx.Err(); err != nil {
			ea.setState(StatePaused)
			return err
		}
		if done, state := ea.stopConditionMet(); done {
			ea.setState(state)
			return nil
		}

		if err := ea.runGeneration(ctx); err != nil {
			ea.setState(StateTerminated)
			return fmt.Errorf("%s generation %d: %w", ea.cfg.Name, ea.Generation()+1, err)
		}
	}
}

func (ea *QueueingEA[G]) stopConditionMet() (bool, RunState) {
	if ea.cfg.MaxGenerations > 0 && ea.Generation() >= ea.cfg.MaxGenerations {
		return true, StateTerminated
	}
	if ea.cfg.MaxEvaluations > 0 && ea.evaluations.Count() >= ea.cfg.MaxEvaluations {
		return true, StateTerminated
	}
	return false, StateRunning
}

// RequestPauseAndWait asks the loop to pause at the next generation
// boundary and blocks until it does. No-op unless running.
func (ea *QueueingEA[G]) RequestPauseAndWait() {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	if ea.state != StateRunning {
		return
	}
	ea.pauseRequested.Store(true)
	for ea.state == StateRunning {
		ea.cond.Wait()
	}
}

// RequestTerminateAndWait drives the EA to Terminated: a running loop stops
// at the next generation boundary; a ready or paused EA terminates
// immediately.
func (ea *QueueingEA[G]) RequestTerminateAndWait() {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	switch ea.state {
	case StateRunning:
		ea.terminateRequested.Store(true)
		for ea.state == StateRunning {
			ea.cond.Wait()
		}
	case StateReady, StatePaused:
		ea.state = StateTerminated
		ea.cond.Broadcast()
	}
}

// Reset tears down population and evaluator state so the EA can be seeded
// again. Only valid from Ready, Paused, or Terminated.
func (ea *QueueingEA[G]) Reset() error {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	if ea.state == StateRunning {
		return fmt.Errorf("cannot reset %s population while running", ea.cfg.Name)
	}
	ea.queues = nil
	ea.capacities = nil
	ea.generation = 0
	ea.pauseRequested.Store(false)
	ea.terminateRequested.Store(false)
	ea.evaluator.Reset()
	ea.state = StateReady
	ea.cond.Broadcast()
	return nil
}

func (ea *QueueingEA[G]) runGeneration(ctx context.Context) error {
	offspring, homes, err := ea.breedBatch()
	if err != nil {
		return err
	}

	nextGeneration := ea.Generation() + 1
	if err := ea.evaluator.EvaluateBatch(ctx, offspring, nextGeneration); err != nil {
		return err
	}

	ea.mu.Lock()
	accepted := 0
	for i, child := range offspring {
		if !child.Evaluation().IsViable {
			continue
		}
		qi := homes[i]
		ea.queues[qi] = append(ea.queues[qi], child)
		if len(ea.queues[qi]) > ea.capacities[qi] {
			ea.queues[qi] = ea.queues[qi][1:]
		}
		accepted++
	}
	ea.generation++
	summary := GenerationSummary{
		Population:     ea.cfg.Name,
		Generation:     ea.generation,
		Evaluations:    ea.evaluations.Count(),
		BatchSize:      len(offspring),
		Accepted:       accepted,
		PopulationSize: ea.populationSizeLocked(),
	}
	callback := ea.onGeneration
	ea.mu.Unlock()

	if callback != nil {
		callback(summary)
	}
	return nil
}

// breedBatch selects parents and produces the offspring batch. A parent
// whose lineage exhausts the reproduction retry budget contributes no
// offspring this generation; that slot is simply lost.
func (ea *QueueingEA[G]) breedBatch() ([]G, []int, error) {
	ea.mu.Lock()
	defer ea.mu.Unlock()

	offspring := make([]G, 0, ea.cfg.BatchSize)
	homes := make([]int, 0, ea.cfg.BatchSize)
	birth := ea.generation + 1

	for b := 0; b < ea.cfg.BatchSize; b++ {
		qi := ea.pickQueueLocked()
		queue := ea.queues[qi]
		parent := queue[ea.rng.Intn(len(queue))]

		var mate G
		if len(queue) > 1 && ea.rng.Float64() < ea.cfg.CrossoverProbability {
			mate = queue[ea.rng.Intn(len(queue))]
			if mate.Identity() == parent.Identity() {
				mate = queue[ea.rng.Intn(len(queue))]
			}
		}

		child, err := ea.breeder.Reproduce(parent, mate, birth, ea.rng)
		if err != nil {
			if errors.Is(err, genotype.ErrReproductionFailed) {
				continue
			}
			return nil, nil, err
		}
		offspring = append(offspring, child)
		homes = append(homes, qi)
	}
	return offspring, homes, nil
}

// pickQueueLocked selects a queue with probability proportional to its
// current size, so parent selection is uniform over the population.
func (ea *QueueingEA[G]) pickQueueLocked() int {
	total := ea.populationSizeLocked()
	r := ea.rng.Intn(total)
	for qi, queue := range ea.queues {
		if r < len(queue) {
			return qi
		}
		r -= len(queue)
	}
	return len(ea.queues) - 1
}

func (ea *QueueingEA[G]) transitionToRunning() error {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	switch ea.state {
	case StateReady:
		if len(ea.queues) == 0 {
			return fmt.Errorf("%s population is not seeded", ea.cfg.Name)
		}
	case StatePaused:
	default:
		return fmt.Errorf("cannot start %s population from state %s", ea.cfg.Name, ea.state)
	}
	ea.state = StateRunning
	ea.cond.Broadcast()
	return nil
}

func (ea *QueueingEA[G]) setState(state RunState) {
	ea.mu.Lock()
	ea.state = state
	ea.cond.Broadcast()
	ea.mu.Unlock()
}

func (ea *QueueingEA[G]) State() RunState {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	return ea.state
}

func (ea *QueueingEA[G]) Generation() int {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	return ea.generation
}

// Population returns a flat copy of the current population, oldest first
// within each species queue.
func (ea *QueueingEA[G]) Population() []G {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	out := make([]G, 0, ea.populationSizeLocked())
	for _, queue := range ea.queues {
		out = append(out, queue...)
	}
	return out
}

// Champion reports the most complex current member. With no fitness signal
// in the loop, structural complexity is the monitoring proxy for progress.
func (ea *QueueingEA[G]) Champion() (G, bool) {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	var champion G
	found := false
	for _, queue := range ea.queues {
		for _, g := range queue {
			if !found || g.Complexity() > champion.Complexity() {
				champion = g
				found = true
			}
		}
	}
	return champion, found
}

func (ea *QueueingEA[G]) populationSizeLocked() int {
	total := 0
	for _, queue := range ea.queues {
		total += len(queue)
	}
	return total
}
