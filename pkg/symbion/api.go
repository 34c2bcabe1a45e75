// Package symbion is the public client facade: it assembles a full
// minimal-criteria coevolution run from a configuration, drives bootstrap,
// verification, and the coevolution container, and persists run artifacts.
package symbion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"symbion/internal/config"
	"symbion/internal/datalog"
	"symbion/internal/evo"
	"symbion/internal/genotype"
	"symbion/internal/maze"
	"symbion/internal/mcc"
	"symbion/internal/model"
	"symbion/internal/scape"
	"symbion/internal/storage"
)

type Options struct {
	ConfigPath string
	// StoreKind, DBPath, and TrialLog override the loaded config when set.
	StoreKind string
	DBPath    string
	TrialLog  string
}

type Client struct {
	cfg   *config.Config
	store storage.Store
}

type RunRequest struct {
	// RunID defaults to a fresh UUID.
	RunID string
	// Seed overrides the configured seed when non-zero.
	Seed int64
	// ContinueFrom names a stored run whose population snapshots seed this
	// run in place of a fresh bootstrap.
	ContinueFrom string
	// Observer, when set, receives every generation summary from both
	// populations on the producing EA's goroutine.
	Observer func(evo.GenerationSummary)
}

type RunResult struct {
	RunID             string  `json:"run_id"`
	State             string  `json:"state"`
	Evaluations       int64   `json:"evaluations"`
	AgentGenerations  int     `json:"agent_generations"`
	MazeGenerations   int     `json:"maze_generations"`
	BootstrapRestarts int     `json:"bootstrap_restarts"`
	SeedAgents        int     `json:"seed_agents"`
	ChampionAgentID   uint64  `json:"champion_agent_id"`
	ChampionMazeID    uint64  `json:"champion_maze_id"`
	ChampionSolved    bool    `json:"champion_solved"`
	ChampionFitness   float64 `json:"champion_fitness"`
}

type BootstrapResult struct {
	Solvers    int `json:"solvers"`
	NonSolvers int `json:"non_solvers"`
	Verified   int `json:"verified"`
	Restarts   int `json:"restarts"`
}

type HistoryRequest struct {
	Limit int
}

type ExportRequest struct {
	RunID  string
	OutDir string
}

func New(opts Options) (*Client, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.StoreKind != "" {
		cfg.Run.Store = opts.StoreKind
	}
	if opts.DBPath != "" {
		cfg.Run.SQLitePath = opts.DBPath
	}
	if opts.TrialLog != "" {
		cfg.Run.TrialLog = opts.TrialLog
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.Run.Store, cfg.Run.SQLitePath)
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, store: store}, nil
}

func (c *Client) Config() *config.Config {
	return c.cfg
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// runComponents bundles everything a single run constructs from the config.
type runComponents struct {
	seq          *genotype.Sequence
	agentFactory *genotype.AgentFactory
	mazeFactory  *genotype.MazeFactory
	counter      *evo.EvaluationCounter
	trials       datalog.TrialLogger
	worlds       *scape.MazeWorldFactory
	agentEval    *evo.AgentEvaluator
	mazeEval     *evo.MazeEvaluator
	behavior     scape.CharacterizationFactory
	decodeCfg    maze.DecodeConfig
	worldCfg     scape.WorldConfig
	seed         int64
}

func (c *Client) buildComponents(seed int64) (*runComponents, error) {
	worldCfg := scape.WorldConfig{
		MinSuccessDistance: c.cfg.World.MinSuccessDistance,
		MaxDistance:        c.cfg.World.MaxDistance,
		AgentRadius:        c.cfg.World.AgentRadius,
		SensorRange:        c.cfg.World.SensorRange,
		MaxSpeed:           c.cfg.World.MaxSpeed,
		MaxTurnRate:        c.cfg.World.MaxTurnRate,
		MaxTimesteps:       c.cfg.World.MaxTimesteps,
	}
	decodeCfg := maze.DecodeConfig{
		Scale:            c.cfg.Maze.Scale,
		PassageWidth:     c.cfg.Maze.PassageWidth,
		AgentRadius:      c.cfg.World.AgentRadius,
		BaseTimesteps:    c.cfg.Maze.BaseTimesteps,
		TimestepsPerUnit: c.cfg.Maze.TimestepsPerUnit,
	}

	behavior, err := scape.NewCharacterizationFactory(c.cfg.Run.Behavior)
	if err != nil {
		return nil, err
	}

	seq := genotype.NewSequence()
	agentFactory, err := genotype.NewAgentFactory(seq, scape.SensorCount, scape.ActuatorCount)
	if err != nil {
		return nil, err
	}
	mazeFactory, err := genotype.NewMazeFactory(seq, genotype.MazeFactoryConfig{
		SeedWidth:  c.cfg.Maze.SeedWidth,
		SeedHeight: c.cfg.Maze.SeedHeight,
		MaxWidth:   c.cfg.Maze.MaxWidth,
		MaxHeight:  c.cfg.Maze.MaxHeight,
		MaxWalls:   c.cfg.Maze.MaxWalls,
		SeedWalls:  c.cfg.Maze.SeedWalls,
	})
	if err != nil {
		return nil, err
	}
	mazeFactory.Validate = maze.NewValidator(decodeCfg)

	trials := datalog.TrialLogger(datalog.NopTrialLogger{})
	if c.cfg.Run.TrialLog != "" {
		f, err := os.Create(c.cfg.Run.TrialLog)
		if err != nil {
			return nil, fmt.Errorf("open trial log: %w", err)
		}
		trials = datalog.NewCSVTrialLogger(f)
	}

	counter := &evo.EvaluationCounter{}
	worlds := scape.NewMazeWorldFactory(worldCfg)

	agentEval, err := evo.NewAgentEvaluator(evo.AgentEvaluatorConfig{
		MinimumSolvedMazes: c.cfg.Criteria.MinimumSolvedMazes,
		MazeResourceLimit:  c.cfg.Criteria.MazeResourceLimit,
		Workers:            c.cfg.Run.Workers,
		RunPhase:           "coevolution",
		Population:         "agents",
	}, agentFactory, worlds, counter, trials)
	if err != nil {
		return nil, err
	}
	mazeEval, err := evo.NewMazeEvaluator(evo.MazeEvaluatorConfig{
		MinimumSolvedBy: c.cfg.Criteria.MinimumSolvedBy,
		MinimumFailedBy: c.cfg.Criteria.MinimumFailedBy,
		Workers:         c.cfg.Run.Workers,
		RunPhase:        "coevolution",
		Population:      "mazes",
	}, decodeCfg, worldCfg, counter, trials)
	if err != nil {
		return nil, err
	}

	return &runComponents{
		seq:          seq,
		agentFactory: agentFactory,
		mazeFactory:  mazeFactory,
		counter:      counter,
		trials:       trials,
		worlds:       worlds,
		agentEval:    agentEval,
		mazeEval:     mazeEval,
		behavior:     behavior,
		decodeCfg:    decodeCfg,
		worldCfg:     worldCfg,
		seed:         seed,
	}, nil
}

// seedPopulations runs bootstrap and verification, returning the verified
// seed agents and the seed maze population both EAs start from.
func (c *Client) seedPopulations(ctx context.Context, parts *runComponents) ([]*genotype.AgentGenome, []*genotype.MazeGenome, *mcc.Bootstrap, error) {
	rng := rand.New(rand.NewSource(parts.seed))
	seedMazes := parts.mazeFactory.CreateGenomeList(c.cfg.Mazes.PopulationSize, 0, rng)

	bootstrap, err := mcc.NewBootstrap(mcc.BootstrapConfig{
		PopulationSize:          c.cfg.Bootstrap.PopulationSize,
		SolversPerMaze:          c.cfg.Bootstrap.SolversPerMaze,
		NonSolversPerMaze:       c.cfg.Bootstrap.NonSolversPerMaze,
		TargetSolverCount:       c.cfg.Bootstrap.TargetSolverCount,
		EvaluationBudgetPerMaze: c.cfg.Bootstrap.EvaluationBudgetPerMaze,
		MaxRestarts:             c.cfg.Bootstrap.MaxRestarts,
		MaxContinuations:        c.cfg.Bootstrap.MaxContinuations,
		Seed:                    parts.seed + 1,
	}, parts.agentFactory, parts.decodeCfg, parts.worldCfg, parts.counter, parts.trials)
	if err != nil {
		return nil, nil, nil, err
	}

	solvers, nonSolvers, err := bootstrap.EvolveSeedAgents(ctx, seedMazes)
	if err != nil {
		return nil, nil, bootstrap, err
	}

	candidates := append(append([]*genotype.AgentGenome{}, solvers...), nonSolvers...)
	if len(candidates) > c.cfg.Agents.PopulationSize {
		candidates = candidates[:c.cfg.Agents.PopulationSize]
	}

	verified, err := bootstrap.VerifyPreevolvedSeedAgents(ctx, candidates, seedMazes, parts.agentEval, parts.mazeEval)
	if err != nil {
		return nil, nil, bootstrap, err
	}
	return verified, seedMazes, bootstrap, nil
}

// loadSeedPopulations seeds a new run from another run's stored snapshots.
// Only viable genomes carry over; the factories adopt their identifiers so
// offspring ids and innovations never collide with the stored lineage.
func (c *Client) loadSeedPopulations(ctx context.Context, fromRunID string, parts *runComponents) ([]*genotype.AgentGenome, []*genotype.MazeGenome, error) {
	agentsSnap, ok, err := c.store.GetPopulationSnapshot(ctx, fromRunID, "agents")
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("no agents snapshot stored for run %s", fromRunID)
	}
	mazesSnap, ok, err := c.store.GetPopulationSnapshot(ctx, fromRunID, "mazes")
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("no mazes snapshot stored for run %s", fromRunID)
	}

	agents := make([]*genotype.AgentGenome, 0, len(agentsSnap.Agents))
	for _, g := range agentsSnap.Agents {
		if g.Eval.IsViable {
			agents = append(agents, g)
		}
	}
	mazes := make([]*genotype.MazeGenome, 0, len(mazesSnap.Mazes))
	for _, g := range mazesSnap.Mazes {
		if g.Eval.IsViable {
			mazes = append(mazes, g)
		}
	}
	if len(agents) == 0 || len(mazes) == 0 {
		return nil, nil, fmt.Errorf("run %s has no viable stored genomes to continue from", fromRunID)
	}
	if len(agents) > c.cfg.Agents.PopulationSize {
		agents = agents[:c.cfg.Agents.PopulationSize]
	}
	if len(mazes) > c.cfg.Mazes.PopulationSize {
		mazes = mazes[:c.cfg.Mazes.PopulationSize]
	}

	parts.agentFactory.Adopt(agents)
	parts.mazeFactory.Adopt(mazes)
	return agents, mazes, nil
}

// persistSeedSnapshots stores the generation-zero populations. A finished
// run overwrites them with its final snapshots.
func (c *Client) persistSeedSnapshots(ctx context.Context, runID string, agents []*genotype.AgentGenome, mazes []*genotype.MazeGenome) error {
	if err := c.store.SavePopulationSnapshot(ctx, model.PopulationSnapshot{
		VersionedRecord: currentVersion(),
		RunID:           runID,
		Population:      "agents",
		Generation:      0,
		Agents:          agents,
	}); err != nil {
		return err
	}
	return c.store.SavePopulationSnapshot(ctx, model.PopulationSnapshot{
		VersionedRecord: currentVersion(),
		RunID:           runID,
		Population:      "mazes",
		Generation:      0,
		Mazes:           mazes,
	})
}

/// Run executes a complete coevolution run: bootstrap, verification, the
// container loop until a stop condition, and artifact persistence.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	if c.cfg.Agents.MaxGenerations == 0 && c.cfg.Agents.MaxEvaluations == 0 {
		return RunResult{}, errors.New("agents population has no stop condition; set agents.max_generations or agents.max_evaluations")
	}
	if c.cfg.Mazes.MaxGenerations == 0 && c.cfg.Mazes.MaxEvaluations == 0 {
		return RunResult{}, errors.New("mazes population has no stop condition; set mazes.max_generations or mazes.max_evaluations")
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	seed := c.cfg.Run.Seed
	if req.Seed != 0 {
		seed = req.Seed
	}

	parts, err := c.buildComponents(seed)
	if err != nil {
		return RunResult{}, err
	}
	defer func() {
		_ = parts.trials.Close()
	}()

	initialState := "bootstrapping"
	if req.ContinueFrom != "" {
		initialState = "seeding"
	}
	startedAt := time.Now().UTC()
	if err := c.store.SaveRunSummary(ctx, model.RunSummary{
		VersionedRecord: currentVersion(),
		RunID:           runID,
		State:           initialState,
		StartedAt:       startedAt,
	}); err != nil {
		return RunResult{}, err
	}

	var (
		seedAgents []*genotype.AgentGenome
		seedMazes  []*genotype.MazeGenome
		restarts   int
	)
	if req.ContinueFrom != "" {
		seedAgents, seedMazes, err = c.loadSeedPopulations(ctx, req.ContinueFrom, parts)
		if err != nil {
			_ = c.store.SaveRunSummary(ctx, model.RunSummary{
				VersionedRecord: currentVersion(),
				RunID:           runID,
				State:           "failed",
				StartedAt:       startedAt,
				FinishedAt:      time.Now().UTC(),
			})
			return RunResult{}, fmt.Errorf("continue from %s: %w", req.ContinueFrom, err)
		}
	} else {
		var bootstrap *mcc.Bootstrap
		seedAgents, seedMazes, bootstrap, err = c.seedPopulations(ctx, parts)
		if bootstrap != nil {
			restarts = bootstrap.Restarts()
		}
		if err != nil {
			_ = c.store.SaveRunSummary(ctx, model.RunSummary{
				VersionedRecord:   currentVersion(),
				RunID:             runID,
				State:             "failed",
				StartedAt:         startedAt,
				FinishedAt:        time.Now().UTC(),
				Evaluations:       parts.counter.Count(),
				BootstrapRestarts: restarts,
			})
			return RunResult{}, fmt.Errorf("bootstrap: %w", err)
		}
	}

	// The seed populations are stored as generation-zero snapshots, so a
	// later run can continue from them even if this run never finishes.
	if err := c.persistSeedSnapshots(ctx, runID, seedAgents, seedMazes); err != nil {
		return RunResult{}, err
	}

	agentsEA, err := evo.NewQueueingEA[*genotype.AgentGenome](evo.QueueingConfig{
		Name:                 "agents",
		PopulationSize:       c.cfg.Agents.PopulationSize,
		BatchSize:            c.cfg.Agents.BatchSize,
		SpeciesCount:         c.cfg.Agents.SpeciesCount,
		CrossoverProbability: c.cfg.Agents.CrossoverProbability,
		MaxGenerations:       c.cfg.Agents.MaxGenerations,
		MaxEvaluations:       c.cfg.Agents.MaxEvaluations,
		Seed:                 seed + 2,
	}, parts.agentFactory, parts.agentEval, parts.counter)
	if err != nil {
		return RunResult{}, err
	}
	mazesEA, err := evo.NewQueueingEA[*genotype.MazeGenome](evo.QueueingConfig{
		Name:                 "mazes",
		PopulationSize:       c.cfg.Mazes.PopulationSize,
		BatchSize:            c.cfg.Mazes.BatchSize,
		SpeciesCount:         c.cfg.Mazes.SpeciesCount,
		CrossoverProbability: c.cfg.Mazes.CrossoverProbability,
		MaxGenerations:       c.cfg.Mazes.MaxGenerations,
		MaxEvaluations:       c.cfg.Mazes.MaxEvaluations,
		Seed:                 seed + 3,
	}, parts.mazeFactory, parts.mazeEval, parts.counter)
	if err != nil {
		return RunResult{}, err
	}

	container, err := mcc.NewContainer(agentsEA, mazesEA, parts.agentEval, parts.mazeEval, parts.agentFactory, parts.decodeCfg, parts.counter)
	if err != nil {
		return RunResult{}, err
	}

	var historyMu sync.Mutex
	history := map[string][]model.GenerationRecord{}
	container.SetObserver(func(s evo.GenerationSummary) {
		cs := container.Stats()
		side := cs.Agents
		if s.Population == "mazes" {
			side = cs.Mazes
		}
		record := model.GenerationRecord{
			Population:     s.Population,
			Generation:     s.Generation,
			Evaluations:    s.Evaluations,
			BatchSize:      s.BatchSize,
			Accepted:       s.Accepted,
			PopulationSize: s.PopulationSize,
			MeanComplexity: side.MeanComplexity,
			MaxComplexity:  side.MaxComplexity,
			ViableFraction: side.ViableFraction,
		}
		historyMu.Lock()
		history[s.Population] = append(history[s.Population], record)
		historyMu.Unlock()
		if req.Observer != nil {
			req.Observer(s)
		}
	})

	if err := container.Initialize(seedAgents, seedMazes); err != nil {
		return RunResult{}, err
	}
	if err := c.store.SaveRunSummary(ctx, model.RunSummary{
		VersionedRecord:   currentVersion(),
		RunID:             runID,
		State:             "running",
		StartedAt:         startedAt,
		BootstrapRestarts: restarts,
	}); err != nil {
		return RunResult{}, err
	}
	if err := container.StartContinue(); err != nil {
		return RunResult{}, err
	}
	runErr := container.Wait()

	result := RunResult{
		RunID:             runID,
		State:             container.State().String(),
		Evaluations:       parts.counter.Count(),
		AgentGenerations:  agentsEA.Generation(),
		MazeGenerations:   mazesEA.Generation(),
		BootstrapRestarts: restarts,
		SeedAgents:        len(seedAgents),
	}

	c.recordChampionTrial(container, parts, &result)

	if err := c.persistRun(ctx, runID, startedAt, container, parts, history, &result); err != nil {
		return result, err
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return result, runErr
	}
	return result, nil
}

// recordChampionTrial runs the champion agent through the champion maze
// with the configured behavior characterization, so the persisted champion
// carries a behavior sample.
func (c *Client) recordChampionTrial(container *mcc.Container, parts *runComponents, result *RunResult) {
	agent, mz := container.Champions()
	if agent == nil || mz == nil {
		return
	}
	structure, err := maze.Decode(mz, parts.decodeCfg)
	if err != nil {
		return
	}
	net, err := parts.agentFactory.Decode(agent)
	if err != nil {
		return
	}
	world := parts.worlds.CreateAdHocWorld(structure, parts.behavior.New())
	behavior, solved, err := world.RunBehaviorTrial(net.Clone())
	if err != nil {
		return
	}
	agent.Eval.Behavior = behavior
	result.ChampionAgentID = uint64(agent.ID)
	result.ChampionMazeID = uint64(mz.ID)
	result.ChampionSolved = solved
	result.ChampionFitness = agent.Eval.Fitness
}

func (c *Client) persistRun(
	ctx context.Context,
	runID string,
	startedAt time.Time,
	container *mcc.Container,
	parts *runComponents,
	history map[string][]model.GenerationRecord,
	result *RunResult,
) error {
	agents, mazes := container.Populations()
	if err := c.store.SavePopulationSnapshot(ctx, model.PopulationSnapshot{
		VersionedRecord: currentVersion(),
		RunID:           runID,
		Population:      "agents",
		Generation:      result.AgentGenerations,
		Agents:          agents,
	}); err != nil {
		return err
	}
	if err := c.store.SavePopulationSnapshot(ctx, model.PopulationSnapshot{
		VersionedRecord: currentVersion(),
		RunID:           runID,
		Population:      "mazes",
		Generation:      result.MazeGenerations,
		Mazes:           mazes,
	}); err != nil {
		return err
	}

	for _, population := range []string{"agents", "mazes"} {
		if err := c.store.SaveGenerationHistory(ctx, runID, population, history[population]); err != nil {
			return err
		}
	}

	usage := parts.worlds.Usage()
	records := make([]model.MazeUsageRecord, 0, len(usage))
	for _, u := range usage {
		records = append(records, model.MazeUsageRecord{MazeID: uint64(u.GenomeID), Successes: u.Successes})
	}
	if err := c.store.SaveMazeUsage(ctx, runID, records); err != nil {
		return err
	}

	return c.store.SaveRunSummary(ctx, model.RunSummary{
		VersionedRecord:   currentVersion(),
		RunID:             runID,
		State:             result.State,
		StartedAt:         startedAt,
		FinishedAt:        time.Now().UTC(),
		Evaluations:       result.Evaluations,
		BootstrapRestarts: result.BootstrapRestarts,
		AgentGenerations:  result.AgentGenerations,
		MazeGenerations:   result.MazeGenerations,
	})
}

// Bootstrap runs only the seed phase: evolve seed agents against a fresh
// seed maze population and verify mutual satisfiability.
func (c *Client) Bootstrap(ctx context.Context, seed int64) (BootstrapResult, error) {
	if seed == 0 {
		seed = c.cfg.Run.Seed
	}
	parts, err := c.buildComponents(seed)
	if err != nil {
		return BootstrapResult{}, err
	}
	defer func() {
		_ = parts.trials.Close()
	}()

	rng := rand.New(rand.NewSource(seed))
	seedMazes := parts.mazeFactory.CreateGenomeList(c.cfg.Mazes.PopulationSize, 0, rng)

	bootstrap, err := mcc.NewBootstrap(mcc.BootstrapConfig{
		PopulationSize:          c.cfg.Bootstrap.PopulationSize,
		SolversPerMaze:          c.cfg.Bootstrap.SolversPerMaze,
		NonSolversPerMaze:       c.cfg.Bootstrap.NonSolversPerMaze,
		TargetSolverCount:       c.cfg.Bootstrap.TargetSolverCount,
		EvaluationBudgetPerMaze: c.cfg.Bootstrap.EvaluationBudgetPerMaze,
		MaxRestarts:             c.cfg.Bootstrap.MaxRestarts,
		MaxContinuations:        c.cfg.Bootstrap.MaxContinuations,
		Seed:                    seed + 1,
	}, parts.agentFactory, parts.decodeCfg, parts.worldCfg, parts.counter, parts.trials)
	if err != nil {
		return BootstrapResult{}, err
	}

	solvers, nonSolvers, err := bootstrap.EvolveSeedAgents(ctx, seedMazes)
	if err != nil {
		return BootstrapResult{Restarts: bootstrap.Restarts()}, err
	}

	candidates := append(append([]*genotype.AgentGenome{}, solvers...), nonSolvers...)
	verified, err := bootstrap.VerifyPreevolvedSeedAgents(ctx, candidates, seedMazes, parts.agentEval, parts.mazeEval)
	if err != nil {
		return BootstrapResult{
			Solvers:    len(solvers),
			NonSolvers: len(nonSolvers),
			Restarts:   bootstrap.Restarts(),
		}, err
	}
	return BootstrapResult{
		Solvers:    len(solvers),
		NonSolvers: len(nonSolvers),
		Verified:   len(verified),
		Restarts:   bootstrap.Restarts(),
	}, nil
}

// History lists stored run summaries, oldest first.
func (c *Client) History(ctx context.Context, req HistoryRequest) ([]model.RunSummary, error) {
	summaries, err := c.store.ListRunSummaries(ctx)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(summaries) > req.Limit {
		summaries = summaries[len(summaries)-req.Limit:]
	}
	return summaries, nil
}

// Population fetches the stored final snapshot of one population.
func (c *Client) Population(ctx context.Context, runID, population string) (model.PopulationSnapshot, error) {
	if population != "agents" && population != "mazes" {
		return model.PopulationSnapshot{}, fmt.Errorf("population must be agents or mazes, got %q", population)
	}
	snapshot, ok, err := c.store.GetPopulationSnapshot(ctx, runID, population)
	if err != nil {
		return model.PopulationSnapshot{}, err
	}
	if !ok {
		return model.PopulationSnapshot{}, fmt.Errorf("no %s snapshot stored for run %s", population, runID)
	}
	return snapshot, nil
}

// Generations fetches one population's stored generation history.
func (c *Client) Generations(ctx context.Context, runID, population string) ([]model.GenerationRecord, error) {
	history, ok, err := c.store.GetGenerationHistory(ctx, runID, population)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no %s generation history stored for run %s", population, runID)
	}
	return history, nil
}

// NavStats fetches the stored per-maze navigation success counts.
func (c *Client) NavStats(ctx context.Context, runID string) ([]model.MazeUsageRecord, error) {
	usage, ok, err := c.store.GetMazeUsage(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no navigation stats stored for run %s", runID)
	}
	return usage, nil
}

// Export writes every stored artifact of a run as JSON files under
// OutDir/<runID> and returns the directory.
func (c *Client) Export(ctx context.Context, req ExportRequest) (string, error) {
	if req.RunID == "" {
		return "", errors.New("export requires a run id")
	}
	if req.OutDir == "" {
		req.OutDir = "exports"
	}

	summary, ok, err := c.store.GetRunSummary(ctx, req.RunID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("run %s not found", req.RunID)
	}

	dir := filepath.Join(req.OutDir, req.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(dir, "run.json"), summary); err != nil {
		return "", err
	}
	for _, population := range []string{"agents", "mazes"} {
		snapshot, ok, err := c.store.GetPopulationSnapshot(ctx, req.RunID, population)
		if err != nil {
			return "", err
		}
		if ok {
			if err := writeJSON(filepath.Join(dir, population+".json"), snapshot); err != nil {
				return "", err
			}
		}
		history, ok, err := c.store.GetGenerationHistory(ctx, req.RunID, population)
		if err != nil {
			return "", err
		}
		if ok {
			if err := writeJSON(filepath.Join(dir, "generations_"+population+".json"), history); err != nil {
				return "", err
			}
		}
	}
	usage, ok, err := c.store.GetMazeUsage(ctx, req.RunID)
	if err != nil {
		return "", err
	}
	if ok {
		if err := writeJSON(filepath.Join(dir, "navstats.json"), usage); err != nil {
			return "", err
		}
	}
	return filepath.Clean(dir), nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func currentVersion() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: storage.CurrentSchemaVersion,
		CodecVersion:  storage.CurrentCodecVersion,
	}
}
