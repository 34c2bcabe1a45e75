package symbion

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"symbion/internal/evo"
)

// testConfig writes a tiny run configuration whose world treats every trial
// as an instant solve, so bootstrap and coevolution finish in milliseconds.
func testConfig(t *testing.T, extra string) string {
	t.Helper()
	base := strings.Join([]string{
		"run:",
		"  workers: 2",
		"agents:",
		"  population_size: 8",
		"  batch_size: 2",
		"  species_count: 2",
		"  max_generations: 2",
		"mazes:",
		"  population_size: 4",
		"  batch_size: 2",
		"  species_count: 1",
		"  max_generations: 2",
		"criteria:",
		"  minimum_solved_mazes: 1",
		"  maze_resource_limit: 0",
		"  minimum_solved_by: 1",
		"  minimum_failed_by: 0",
		"world:",
		"  min_success_distance: 1000000000.0",
		"maze:",
		"  base_timesteps: 20",
		"  timesteps_per_unit: 1",
		"  seed_width: 8",
		"  seed_height: 8",
		"  max_width: 10",
		"  max_height: 10",
		"  max_walls: 4",
		"  seed_walls: 0",
		"bootstrap:",
		"  population_size: 8",
		"  solvers_per_maze: 2",
		"  non_solvers_per_maze: 0",
		"  target_solver_count: 4",
		"  evaluation_budget_per_maze: 200",
		"  max_restarts: 1",
		"",
	}, "\n")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(base+extra), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func newTestClient(t *testing.T, extra string) *Client {
	t.Helper()
	client, err := New(Options{ConfigPath: testConfig(t, extra)})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return client
}

func TestRunCompletesAndPersistsArtifacts(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, "")

	var mu sync.Mutex
	observed := map[string]int{}
	result, err := client.Run(ctx, RunRequest{
		Seed: 11,
		Observer: func(s evo.GenerationSummary) {
			mu.Lock()
			observed[s.Population]++
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.RunID == "" {
		t.Fatal("run id must default to a generated id")
	}
	if result.State != "terminated" {
		t.Fatalf("run state: %s", result.State)
	}
	if result.AgentGenerations != 2 || result.MazeGenerations != 2 {
		t.Fatalf("generations: agents=%d mazes=%d", result.AgentGenerations, result.MazeGenerations)
	}
	if result.Evaluations == 0 {
		t.Fatal("no evaluations counted")
	}
	if result.SeedAgents < 4 {
		t.Fatalf("seed agents below target: %d", result.SeedAgents)
	}
	if result.ChampionAgentID == 0 || !result.ChampionSolved {
		t.Fatalf("champion trial not recorded: %+v", result)
	}
	mu.Lock()
	if observed["agents"] != 2 || observed["mazes"] != 2 {
		t.Fatalf("observer calls: %v", observed)
	}
	mu.Unlock()

	summaries, err := client.History(ctx, HistoryRequest{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(summaries) != 1 || summaries[0].RunID != result.RunID {
		t.Fatalf("unexpected history: %+v", summaries)
	}
	if summaries[0].State != "terminated" || summaries[0].Evaluations != result.Evaluations {
		t.Fatalf("run summary not finalized: %+v", summaries[0])
	}

	agents, err := client.Population(ctx, result.RunID, "agents")
	if err != nil {
		t.Fatalf("agents snapshot: %v", err)
	}
	if len(agents.Agents) == 0 || len(agents.Mazes) != 0 {
		t.Fatalf("unexpected agents snapshot: %+v", agents)
	}
	mazes, err := client.Population(ctx, result.RunID, "mazes")
	if err != nil {
		t.Fatalf("mazes snapshot: %v", err)
	}
	if len(mazes.Mazes) == 0 {
		t.Fatalf("unexpected mazes snapshot: %+v", mazes)
	}

	history, err := client.Generations(ctx, result.RunID, "agents")
	if err != nil {
		t.Fatalf("generations: %v", err)
	}
	if len(history) != 2 || history[1].Generation != 2 {
		t.Fatalf("unexpected generation history: %+v", history)
	}

	usage, err := client.NavStats(ctx, result.RunID)
	if err != nil {
		t.Fatalf("navstats: %v", err)
	}
	if len(usage) == 0 {
		t.Fatal("expected navigation stats for the final maze population")
	}
}

func TestRunContinueFromStoredRun(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, "")

	first, err := client.Run(ctx, RunRequest{RunID: "run-a", Seed: 11})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.State != "terminated" {
		t.Fatalf("first run state: %s", first.State)
	}

	second, err := client.Run(ctx, RunRequest{RunID: "run-b", ContinueFrom: "run-a", Seed: 19})
	if err != nil {
		t.Fatalf("continued run: %v", err)
	}
	if second.State != "terminated" {
		t.Fatalf("continued run state: %s", second.State)
	}
	if second.BootstrapRestarts != 0 {
		t.Fatalf("continued run must skip bootstrap: %+v", second)
	}
	if second.SeedAgents == 0 {
		t.Fatal("continued run carried no seed agents")
	}

	snapshot, err := client.Population(ctx, "run-b", "agents")
	if err != nil {
		t.Fatalf("continued run snapshot: %v", err)
	}
	if len(snapshot.Agents) == 0 {
		t.Fatal("continued run stored no agents")
	}

	// Adopted identifiers stay unique: offspring of the continued run must
	// not reuse ids from the stored lineage.
	firstSnapshot, err := client.Population(ctx, "run-a", "agents")
	if err != nil {
		t.Fatalf("first run snapshot: %v", err)
	}
	var maxFirst uint64
	for _, g := range firstSnapshot.Agents {
		if uint64(g.ID) > maxFirst {
			maxFirst = uint64(g.ID)
		}
	}
	carried := map[uint64]bool{}
	for _, g := range firstSnapshot.Agents {
		carried[uint64(g.ID)] = true
	}
	for _, g := range snapshot.Agents {
		if !carried[uint64(g.ID)] && uint64(g.ID) <= maxFirst {
			t.Fatalf("continued run reused id %d", g.ID)
		}
	}
}

func TestRunContinueFromUnknownRun(t *testing.T) {
	client := newTestClient(t, "")
	_, err := client.Run(context.Background(), RunRequest{ContinueFrom: "missing"})
	if err == nil || !strings.Contains(err.Error(), "continue from") {
		t.Fatalf("expected continue error, got: %v", err)
	}
}

func TestRunRequiresStopCondition(t *testing.T) {
	// Zero out the agents bounds in place; appending a second agents block
	// would be rejected by the YAML parser as a duplicate mapping key.
	path := testConfig(t, "")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	patched := strings.Replace(string(data),
		"  max_generations: 2\n",
		"  max_generations: 0\n  max_evaluations: 0\n", 1)
	if patched == string(data) {
		t.Fatal("agents stop bounds not found in base config")
	}
	if err := os.WriteFile(path, []byte(patched), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	client, err := New(Options{ConfigPath: path})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	_, err = client.Run(context.Background(), RunRequest{})
	if err == nil || !strings.Contains(err.Error(), "stop condition") {
		t.Fatalf("expected stop condition error, got: %v", err)
	}
}

func TestBootstrapOnly(t *testing.T) {
	client := newTestClient(t, "")
	result, err := client.Bootstrap(context.Background(), 7)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if result.Solvers < 4 {
		t.Fatalf("solvers below target: %+v", result)
	}
	if result.Verified < 4 {
		t.Fatalf("verification dropped too many agents: %+v", result)
	}
	if result.Restarts != 0 {
		t.Fatalf("unexpected restarts: %d", result.Restarts)
	}
}

func TestExportWritesArtifacts(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, "")

	result, err := client.Run(ctx, RunRequest{RunID: "run-export", Seed: 13})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	outDir := t.TempDir()
	dir, err := client.Export(ctx, ExportRequest{RunID: result.RunID, OutDir: outDir})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	for _, name := range []string{"run.json", "agents.json", "mazes.json", "generations_agents.json", "navstats.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing export file %s: %v", name, err)
		}
	}
}

func TestExportUnknownRun(t *testing.T) {
	client := newTestClient(t, "")
	_, err := client.Export(context.Background(), ExportRequest{RunID: "missing", OutDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestPopulationRejectsUnknownName(t *testing.T) {
	client := newTestClient(t, "")
	_, err := client.Population(context.Background(), "run-x", "plants")
	if err == nil || !strings.Contains(err.Error(), "agents or mazes") {
		t.Fatalf("expected population name error, got: %v", err)
	}
}

func TestNewRejectsUnknownStore(t *testing.T) {
	_, err := New(Options{ConfigPath: testConfig(t, ""), StoreKind: "bogus"})
	if err == nil {
		t.Fatal("expected unsupported store error")
	}
}

func TestTrialLogWritesRows(t *testing.T) {
	ctx := context.Background()
	logPath := filepath.Join(t.TempDir(), "trials.csv")
	client, err := New(Options{ConfigPath: testConfig(t, ""), TrialLog: logPath})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	if err := client.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if _, err := client.Run(ctx, RunRequest{Seed: 17}); err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read trial log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		t.Fatalf("trial log has no rows: %d lines", len(lines))
	}
	if !strings.Contains(lines[0], "run_phase") {
		t.Fatalf("missing header: %s", lines[0])
	}
}
