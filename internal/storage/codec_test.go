package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"symbion/internal/model"
)

func TestDecodeRunSummaryFixture(t *testing.T) {
	summary := decodeRunSummaryFixture(t, "minimal_run_summary_v1.json")
	if summary.RunID != "run-minimal-1" {
		t.Fatalf("unexpected run id: %s", summary.RunID)
	}
	if summary.State != "terminated" {
		t.Fatalf("unexpected state: %s", summary.State)
	}
	if summary.Evaluations != 1200 {
		t.Fatalf("unexpected evaluation count: %d", summary.Evaluations)
	}
}

func TestDecodeSnapshotFixture(t *testing.T) {
	path := fixturePath("minimal_snapshot_v1.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	snapshot, err := DecodePopulationSnapshot(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if snapshot.Population != "agents" || snapshot.Generation != 3 {
		t.Fatalf("unexpected snapshot header: %+v", snapshot)
	}
	if len(snapshot.Agents) != 1 || snapshot.Agents[0].ID != 7 {
		t.Fatalf("unexpected snapshot agents: %+v", snapshot.Agents)
	}
	if len(snapshot.Agents[0].Nodes) != 2 || len(snapshot.Agents[0].Connections) != 1 {
		t.Fatalf("unexpected genome shape: %+v", snapshot.Agents[0])
	}
	if !snapshot.Agents[0].Eval.IsViable {
		t.Fatal("fixture agent must decode as viable")
	}
}

func TestRunSummaryCodecRoundTrip(t *testing.T) {
	input := model.RunSummary{
		VersionedRecord:  model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		RunID:            "run-1",
		State:            "paused",
		StartedAt:        time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		Evaluations:      640,
		AgentGenerations: 12,
		MazeGenerations:  11,
	}

	encoded, err := EncodeRunSummary(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeRunSummary(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, input) {
		t.Fatalf("roundtrip mismatch\nactual=%+v\nexpected=%+v", decoded, input)
	}
}

func TestGenerationHistoryCodecRoundTrip(t *testing.T) {
	input := []model.GenerationRecord{
		{Population: "agents", Generation: 1, Evaluations: 80, BatchSize: 10, Accepted: 6, PopulationSize: 250, MeanComplexity: 14.5, MaxComplexity: 20, ViableFraction: 1},
		{Population: "agents", Generation: 2, Evaluations: 170, BatchSize: 10, Accepted: 4, PopulationSize: 250, MeanComplexity: 14.9, MaxComplexity: 22, ViableFraction: 1},
	}
	encoded, err := EncodeGenerationHistory(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeGenerationHistory(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, input) {
		t.Fatalf("decoded history mismatch: got=%+v want=%+v", decoded, input)
	}
}

func TestMazeUsageCodecRoundTrip(t *testing.T) {
	input := []model.MazeUsageRecord{
		{MazeID: 3, Successes: 4},
		{MazeID: 9, Successes: 0},
	}
	encoded, err := EncodeMazeUsage(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeMazeUsage(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, input) {
		t.Fatalf("decoded usage mismatch: got=%+v want=%+v", decoded, input)
	}
}

func TestDecodeRunSummaryVersionMismatch(t *testing.T) {
	summary := decodeRunSummaryFixture(t, "minimal_run_summary_v1.json")
	summary.CodecVersion++

	encoded, err := EncodeRunSummary(summary)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = DecodeRunSummary(encoded)
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}
}

func TestDecodeSnapshotVersionMismatch(t *testing.T) {
	input := model.PopulationSnapshot{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion + 1, CodecVersion: CurrentCodecVersion},
		RunID:           "run-1",
		Population:      "mazes",
	}
	encoded, err := EncodePopulationSnapshot(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = DecodePopulationSnapshot(encoded)
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}
}

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}

func decodeRunSummaryFixture(t *testing.T, name string) model.RunSummary {
	t.Helper()

	data, err := os.ReadFile(fixturePath(name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	summary, err := DecodeRunSummary(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return summary
}
