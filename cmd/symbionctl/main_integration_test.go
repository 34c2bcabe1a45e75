//go:build sqlite

package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// With the sqlite backend the store persists across invocations, so the
// query commands can read back what an earlier run command wrote.
func TestRunThenQueryCommandsSQLite(t *testing.T) {
	ctx := context.Background()
	configPath := writeFastConfig(t)
	dbPath := filepath.Join(t.TempDir(), "symbion.db")
	storeArgs := []string{"--config", configPath, "--store", "sqlite", "--db-path", dbPath}

	if err := run(ctx, append([]string{"init"}, storeArgs...)); err != nil {
		t.Fatalf("init command: %v", err)
	}
	if err := run(ctx, append([]string{"run", "--run-id", "run-sql", "--seed", "11"}, storeArgs...)); err != nil {
		t.Fatalf("run command: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected sqlite db at %s: %v", dbPath, err)
	}

	out, err := captureOutput(t, func() error {
		return run(ctx, append([]string{"runs", "--json"}, storeArgs...))
	})
	if err != nil {
		t.Fatalf("runs command: %v", err)
	}
	var summaries []struct {
		RunID string `json:"run_id"`
		State string `json:"state"`
	}
	if err := json.Unmarshal([]byte(out), &summaries); err != nil {
		t.Fatalf("decode runs %q: %v", out, err)
	}
	if len(summaries) != 1 || summaries[0].RunID != "run-sql" || summaries[0].State != "terminated" {
		t.Fatalf("unexpected runs list: %+v", summaries)
	}

	out, err = captureOutput(t, func() error {
		return run(ctx, append([]string{"population", "--run-id", "run-sql", "--pop", "mazes"}, storeArgs...))
	})
	if err != nil {
		t.Fatalf("population command: %v", err)
	}
	if !strings.Contains(out, "population=mazes") || !strings.Contains(out, "maze id=") {
		t.Fatalf("unexpected population output:\n%s", out)
	}

	out, err = captureOutput(t, func() error {
		return run(ctx, append([]string{"generations", "--run-id", "run-sql", "--pop", "agents"}, storeArgs...))
	})
	if err != nil {
		t.Fatalf("generations command: %v", err)
	}
	if strings.Count(out, "generation population=agents") != 2 {
		t.Fatalf("unexpected generations output:\n%s", out)
	}

	out, err = captureOutput(t, func() error {
		return run(ctx, append([]string{"navstats", "--run-id", "run-sql"}, storeArgs...))
	})
	if err != nil {
		t.Fatalf("navstats command: %v", err)
	}
	if !strings.Contains(out, "maze id=") {
		t.Fatalf("unexpected navstats output:\n%s", out)
	}

	outDir := t.TempDir()
	if err := run(ctx, append([]string{"export", "--latest", "--out", outDir}, storeArgs...)); err != nil {
		t.Fatalf("export command: %v", err)
	}
	for _, name := range []string{"run.json", "agents.json", "mazes.json", "navstats.json"} {
		if _, err := os.Stat(filepath.Join(outDir, "run-sql", name)); err != nil {
			t.Fatalf("missing export file %s: %v", name, err)
		}
	}
}
