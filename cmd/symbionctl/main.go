// Command symbionctl drives minimal-criteria coevolution runs and inspects
// their stored artifacts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"symbion/internal/evo"
	"symbion/pkg/symbion"
)

const exportsDir = "exports"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "config":
		return runConfig(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "bootstrap":
		return runBootstrap(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "population":
		return runPopulation(ctx, args[1:])
	case "generations":
		return runGenerations(ctx, args[1:])
	case "navstats":
		return runNavStats(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// clientFlags are the options shared by every command that opens a store.
type clientFlags struct {
	configPath *string
	storeKind  *string
	dbPath     *string
}

func registerClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		configPath: fs.String("config", "", "YAML config path (embedded defaults when empty)"),
		storeKind:  fs.String("store", "", "store backend override: memory|sqlite"),
		dbPath:     fs.String("db-path", "", "sqlite database path override"),
	}
}

func (cf clientFlags) newClient() (*symbion.Client, error) {
	return symbion.New(symbion.Options{
		ConfigPath: *cf.configPath,
		StoreKind:  *cf.storeKind,
		DBPath:     *cf.dbPath,
	})
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s\n", client.Config().Run.Store)
	return nil
}

func runConfig(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	out := fs.String("out", "symbion.yaml", "output path for the resolved config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Config().WriteYAML(*out); err != nil {
		return err
	}
	fmt.Printf("wrote config to=%s\n", *out)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	runID := fs.String("run-id", "", "run id (generated when empty)")
	seed := fs.Int64("seed", 0, "random seed override")
	continueFrom := fs.String("continue-from", "", "seed from a stored run's snapshots instead of bootstrapping")
	trialLog := fs.String("trial-log", "", "CSV trial log path")
	progress := fs.Bool("progress", false, "print a line per completed generation")
	jsonOut := fs.Bool("json", false, "emit the run result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := symbion.New(symbion.Options{
		ConfigPath: *cf.configPath,
		StoreKind:  *cf.storeKind,
		DBPath:     *cf.dbPath,
		TrialLog:   *trialLog,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	req := symbion.RunRequest{RunID: *runID, Seed: *seed, ContinueFrom: *continueFrom}
	if *progress {
		req.Observer = func(s evo.GenerationSummary) {
			fmt.Printf("generation population=%s generation=%d accepted=%d/%d evaluations=%d\n",
				s.Population, s.Generation, s.Accepted, s.BatchSize, s.Evaluations)
		}
	}

	result, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(result)
	}
	fmt.Printf("run finished run_id=%s state=%s evaluations=%d agent_generations=%d maze_generations=%d seed_agents=%d\n",
		result.RunID, result.State, result.Evaluations, result.AgentGenerations, result.MazeGenerations, result.SeedAgents)
	if result.ChampionAgentID != 0 {
		fmt.Printf("champion agent_id=%d maze_id=%d solved=%t fitness=%.3f\n",
			result.ChampionAgentID, result.ChampionMazeID, result.ChampionSolved, result.ChampionFitness)
	}
	return nil
}

func runBootstrap(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bootstrap", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	seed := fs.Int64("seed", 0, "random seed override")
	jsonOut := fs.Bool("json", false, "emit the bootstrap result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	result, err := client.Bootstrap(ctx, *seed)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(result)
	}
	fmt.Printf("bootstrap finished solvers=%d non_solvers=%d verified=%d restarts=%d\n",
		result.Solvers, result.NonSolvers, result.Verified, result.Restarts)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit the runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summaries, err := client.History(ctx, symbion.HistoryRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		return printJSON(summaries)
	}
	for _, s := range summaries {
		fmt.Printf("run_id=%s state=%s started=%s evaluations=%d agent_generations=%d maze_generations=%d\n",
			s.RunID, s.State, s.StartedAt.Format("2006-01-02T15:04:05Z"), s.Evaluations, s.AgentGenerations, s.MazeGenerations)
	}
	return nil
}

func runPopulation(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("population", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	population := fs.String("pop", "agents", "population name: agents|mazes")
	jsonOut := fs.Bool("json", false, "emit the snapshot as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("population requires --run-id")
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	snapshot, err := client.Population(ctx, *runID, *population)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(snapshot)
	}
	switch *population {
	case "agents":
		fmt.Printf("snapshot run_id=%s population=agents generation=%d size=%d\n", snapshot.RunID, snapshot.Generation, len(snapshot.Agents))
		for _, g := range snapshot.Agents {
			fmt.Printf("agent id=%d nodes=%d connections=%d viable=%t solved=%d\n",
				g.ID, len(g.Nodes), len(g.Connections), g.Eval.IsViable, g.Eval.OpponentsSolved)
		}
	case "mazes":
		fmt.Printf("snapshot run_id=%s population=mazes generation=%d size=%d\n", snapshot.RunID, snapshot.Generation, len(snapshot.Mazes))
		for _, g := range snapshot.Mazes {
			fmt.Printf("maze id=%d extent=%dx%d walls=%d viable=%t\n",
				g.ID, g.Width, g.Height, len(g.Walls), g.Eval.IsViable)
		}
	}
	return nil
}

func runGenerations(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generations", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	population := fs.String("pop", "agents", "population name: agents|mazes")
	jsonOut := fs.Bool("json", false, "emit the history as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("generations requires --run-id")
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	history, err := client.Generations(ctx, *runID, *population)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(history)
	}
	for _, r := range history {
		fmt.Printf("generation population=%s generation=%d accepted=%d/%d size=%d viable=%.2f mean_complexity=%.2f max_complexity=%d\n",
			r.Population, r.Generation, r.Accepted, r.BatchSize, r.PopulationSize, r.ViableFraction, r.MeanComplexity, r.MaxComplexity)
	}
	return nil
}

func runNavStats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("navstats", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	jsonOut := fs.Bool("json", false, "emit the stats as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("navstats requires --run-id")
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	usage, err := client.NavStats(ctx, *runID)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(usage)
	}
	for _, u := range usage {
		fmt.Printf("maze id=%d successes=%d\n", u.MazeID, u.Successes)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	if *latest {
		summaries, err := client.History(ctx, symbion.HistoryRequest{})
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			return errors.New("no runs available to export")
		}
		*runID = summaries[len(summaries)-1].RunID
	}

	dir, err := client.Export(ctx, symbion.ExportRequest{RunID: *runID, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s to=%s\n", *runID, dir)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: symbionctl <init|config|run|bootstrap|runs|population|generations|navstats|export> [flags]", msg)
}
