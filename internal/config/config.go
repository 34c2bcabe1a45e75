// Package config loads experiment configuration for coevolution runs.
// Embedded defaults are always parsed first; a user-supplied YAML file
// overrides only the fields it names.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds every numeric parameter a run consumes. Validate must pass
// before any component is constructed; a run never starts on a partially
// valid configuration.
type Config struct {
	Run       RunConfig        `yaml:"run"`
	Agents    PopulationConfig `yaml:"agents"`
	Mazes     PopulationConfig `yaml:"mazes"`
	Criteria  CriteriaConfig   `yaml:"criteria"`
	World     WorldConfig      `yaml:"world"`
	Maze      MazeConfig       `yaml:"maze"`
	Bootstrap BootstrapConfig  `yaml:"bootstrap"`
}

// RunConfig holds run-wide settings.
type RunConfig struct {
	Seed       int64  `yaml:"seed"`
	Store      string `yaml:"store"`       // memory or sqlite
	SQLitePath string `yaml:"sqlite_path"` // required when store is sqlite
	TrialLog   string `yaml:"trial_log"`   // CSV path; empty disables trial logging
	Behavior   string `yaml:"behavior"`    // endpoint or trajectory
	Workers    int    `yaml:"workers"`     // evaluation workers per population
}

// PopulationConfig parameterizes one queueing EA.
type PopulationConfig struct {
	PopulationSize       int     `yaml:"population_size"`
	BatchSize            int     `yaml:"batch_size"`
	SpeciesCount         int     `yaml:"species_count"`
	CrossoverProbability float64 `yaml:"crossover_probability"`
	MaxGenerations       int     `yaml:"max_generations"` // 0 disables the bound
	MaxEvaluations       int64   `yaml:"max_evaluations"` // 0 disables the bound
}

// CriteriaConfig holds the minimal-criterion thresholds for both sides.
type CriteriaConfig struct {
	MinimumSolvedMazes int   `yaml:"minimum_solved_mazes"`
	MazeResourceLimit  int `yaml:"maze_resource_limit"` // 0 disables the limit
	MinimumSolvedBy    int   `yaml:"minimum_solved_by"`
	MinimumFailedBy    int   `yaml:"minimum_failed_by"`
}

// WorldConfig parameterizes maze trial physics.
type WorldConfig struct {
	MinSuccessDistance float64 `yaml:"min_success_distance"`
	MaxDistance        float64 `yaml:"max_distance"` // 0 uses the maze diagonal
	AgentRadius        float64 `yaml:"agent_radius"`
	SensorRange        float64 `yaml:"sensor_range"`
	MaxSpeed           float64 `yaml:"max_speed"`
	MaxTurnRate        float64 `yaml:"max_turn_rate"`
	MaxTimesteps       int     `yaml:"max_timesteps"` // 0 uses the maze's own budget
}

// MazeConfig parameterizes the maze genome bounds and the genome-to-world
// decoder.
type MazeConfig struct {
	Scale            float64 `yaml:"scale"`
	PassageWidth     float64 `yaml:"passage_width"`
	BaseTimesteps    int     `yaml:"base_timesteps"`
	TimestepsPerUnit int     `yaml:"timesteps_per_unit"`
	SeedWidth        int     `yaml:"seed_width"`
	SeedHeight       int     `yaml:"seed_height"`
	MaxWidth         int     `yaml:"max_width"`
	MaxHeight        int     `yaml:"max_height"`
	MaxWalls         int     `yaml:"max_walls"`
	SeedWalls        int     `yaml:"seed_walls"`
}

// BootstrapConfig parameterizes seed agent evolution.
type BootstrapConfig struct {
	PopulationSize          int   `yaml:"population_size"`
	SolversPerMaze          int   `yaml:"solvers_per_maze"`
	NonSolversPerMaze       int   `yaml:"non_solvers_per_maze"`
	TargetSolverCount       int   `yaml:"target_solver_count"`
	EvaluationBudgetPerMaze int64 `yaml:"evaluation_budget_per_maze"`
	MaxRestarts             int   `yaml:"max_restarts"`
	MaxContinuations        int   `yaml:"max_continuations"`
}

// Load parses the embedded defaults and, when path is non-empty, overlays
// the user file. The result is validated before it is returned.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks every parameter and reports the first violation.
func (c *Config) Validate() error {
	switch c.Run.Store {
	case "", "memory":
	case "sqlite":
		if c.Run.SQLitePath == "" {
			return fmt.Errorf("run.sqlite_path is required when run.store is sqlite")
		}
	default:
		return fmt.Errorf("run.store must be memory or sqlite, got %q", c.Run.Store)
	}
	switch c.Run.Behavior {
	case "", "endpoint", "trajectory":
	default:
		return fmt.Errorf("run.behavior must be endpoint or trajectory, got %q", c.Run.Behavior)
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("run.workers must be >= 0, got %d", c.Run.Workers)
	}

	if err := c.Agents.validate("agents"); err != nil {
		return err
	}
	if err := c.Mazes.validate("mazes"); err != nil {
		return err
	}

	if c.Criteria.MinimumSolvedMazes <= 0 {
		return fmt.Errorf("criteria.minimum_solved_mazes must be > 0, got %d", c.Criteria.MinimumSolvedMazes)
	}
	if c.Criteria.MazeResourceLimit < 0 {
		return fmt.Errorf("criteria.maze_resource_limit must be >= 0, got %d", c.Criteria.MazeResourceLimit)
	}
	if c.Criteria.MinimumSolvedBy <= 0 {
		return fmt.Errorf("criteria.minimum_solved_by must be > 0, got %d", c.Criteria.MinimumSolvedBy)
	}
	if c.Criteria.MinimumFailedBy < 0 {
		return fmt.Errorf("criteria.minimum_failed_by must be >= 0, got %d", c.Criteria.MinimumFailedBy)
	}

	if c.World.MinSuccessDistance <= 0 {
		return fmt.Errorf("world.min_success_distance must be > 0, got %f", c.World.MinSuccessDistance)
	}
	if c.World.MaxDistance < 0 {
		return fmt.Errorf("world.max_distance must be >= 0, got %f", c.World.MaxDistance)
	}
	if c.World.AgentRadius <= 0 {
		return fmt.Errorf("world.agent_radius must be > 0, got %f", c.World.AgentRadius)
	}
	if c.World.SensorRange <= 0 {
		return fmt.Errorf("world.sensor_range must be > 0, got %f", c.World.SensorRange)
	}
	if c.World.MaxSpeed <= 0 {
		return fmt.Errorf("world.max_speed must be > 0, got %f", c.World.MaxSpeed)
	}
	if c.World.MaxTurnRate <= 0 {
		return fmt.Errorf("world.max_turn_rate must be > 0, got %f", c.World.MaxTurnRate)
	}
	if c.World.MaxTimesteps < 0 {
		return fmt.Errorf("world.max_timesteps must be >= 0, got %d", c.World.MaxTimesteps)
	}

	if c.Maze.Scale <= 0 {
		return fmt.Errorf("maze.scale must be > 0, got %f", c.Maze.Scale)
	}
	if c.Maze.PassageWidth <= 0 {
		return fmt.Errorf("maze.passage_width must be > 0, got %f", c.Maze.PassageWidth)
	}
	if c.Maze.BaseTimesteps <= 0 {
		return fmt.Errorf("maze.base_timesteps must be > 0, got %d", c.Maze.BaseTimesteps)
	}
	if c.Maze.TimestepsPerUnit <= 0 {
		return fmt.Errorf("maze.timesteps_per_unit must be > 0, got %d", c.Maze.TimestepsPerUnit)
	}
	if c.Maze.SeedWidth <= 1 || c.Maze.SeedHeight <= 1 {
		return fmt.Errorf("maze.seed_width and maze.seed_height must be > 1, got %dx%d", c.Maze.SeedWidth, c.Maze.SeedHeight)
	}
	if c.Maze.MaxWidth < c.Maze.SeedWidth || c.Maze.MaxHeight < c.Maze.SeedHeight {
		return fmt.Errorf("maze.max_width/max_height %dx%d must cover seed extent %dx%d",
			c.Maze.MaxWidth, c.Maze.MaxHeight, c.Maze.SeedWidth, c.Maze.SeedHeight)
	}
	if c.Maze.MaxWalls <= 0 {
		return fmt.Errorf("maze.max_walls must be > 0, got %d", c.Maze.MaxWalls)
	}
	if c.Maze.SeedWalls < 0 || c.Maze.SeedWalls > c.Maze.MaxWalls {
		return fmt.Errorf("maze.seed_walls must be in [0, %d], got %d", c.Maze.MaxWalls, c.Maze.SeedWalls)
	}

	if c.Bootstrap.PopulationSize <= 0 {
		return fmt.Errorf("bootstrap.population_size must be > 0, got %d", c.Bootstrap.PopulationSize)
	}
	if c.Bootstrap.SolversPerMaze <= 0 {
		return fmt.Errorf("bootstrap.solvers_per_maze must be > 0, got %d", c.Bootstrap.SolversPerMaze)
	}
	if c.Bootstrap.NonSolversPerMaze < 0 {
		return fmt.Errorf("bootstrap.non_solvers_per_maze must be >= 0, got %d", c.Bootstrap.NonSolversPerMaze)
	}
	if c.Bootstrap.TargetSolverCount <= 0 {
		return fmt.Errorf("bootstrap.target_solver_count must be > 0, got %d", c.Bootstrap.TargetSolverCount)
	}
	if c.Bootstrap.TargetSolverCount > c.Agents.PopulationSize {
		return fmt.Errorf("bootstrap.target_solver_count %d exceeds agents.population_size %d",
			c.Bootstrap.TargetSolverCount, c.Agents.PopulationSize)
	}
	if c.Bootstrap.EvaluationBudgetPerMaze <= 0 {
		return fmt.Errorf("bootstrap.evaluation_budget_per_maze must be > 0, got %d", c.Bootstrap.EvaluationBudgetPerMaze)
	}
	if c.Bootstrap.MaxRestarts < 0 {
		return fmt.Errorf("bootstrap.max_restarts must be >= 0, got %d", c.Bootstrap.MaxRestarts)
	}
	if c.Bootstrap.MaxContinuations < 0 {
		return fmt.Errorf("bootstrap.max_continuations must be >= 0, got %d", c.Bootstrap.MaxContinuations)
	}
	return nil
}

func (p PopulationConfig) validate(section string) error {
	if p.PopulationSize <= 0 {
		return fmt.Errorf("%s.population_size must be > 0, got %d", section, p.PopulationSize)
	}
	if p.BatchSize <= 0 {
		return fmt.Errorf("%s.batch_size must be > 0, got %d", section, p.BatchSize)
	}
	if p.SpeciesCount <= 0 {
		return fmt.Errorf("%s.species_count must be > 0, got %d", section, p.SpeciesCount)
	}
	if p.SpeciesCount > p.PopulationSize {
		return fmt.Errorf("%s.species_count %d exceeds population size %d", section, p.SpeciesCount, p.PopulationSize)
	}
	if p.CrossoverProbability < 0 || p.CrossoverProbability > 1 {
		return fmt.Errorf("%s.crossover_probability must be in [0, 1], got %f", section, p.CrossoverProbability)
	}
	if p.MaxGenerations < 0 {
		return fmt.Errorf("%s.max_generations must be >= 0, got %d", section, p.MaxGenerations)
	}
	if p.MaxEvaluations < 0 {
		return fmt.Errorf("%s.max_evaluations must be >= 0, got %d", section, p.MaxEvaluations)
	}
	return nil
}
