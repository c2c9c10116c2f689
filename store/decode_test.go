package store

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeRun_KnownFields(t *testing.T) {
	raw := json.RawMessage(`{
		"lapTime": 45.2,
		"telemetry": {"speed": [10, 20]},
		"cones": 1,
		"isValid": true,
		"carId": "car-7",
		"name": "morning run"
	}`)

	run, err := DecodeRun(raw)
	if err != nil {
		t.Fatalf("DecodeRun: %v", err)
	}
	if run.LapTime != 45.2 {
		t.Errorf("LapTime = %v, want 45.2", run.LapTime)
	}
	if run.Cones != 1 {
		t.Errorf("Cones = %d, want 1", run.Cones)
	}
	if !run.IsValid {
		t.Error("IsValid should be true")
	}
	if run.CarID != "car-7" {
		t.Errorf("CarID = %q, want %q", run.CarID, "car-7")
	}
	if run.Name == nil || *run.Name != "morning run" {
		t.Errorf("Name = %v, want %q", run.Name, "morning run")
	}
	if !run.HasTelemetry() {
		t.Error("telemetry should be present")
	}
	if run.Extra != nil {
		t.Errorf("Extra should be empty for known fields, got %v", run.Extra)
	}
}

func TestDecodeRun_UnknownFieldsSurvive(t *testing.T) {
	raw := json.RawMessage(`{"lapTime": 45.2, "telemetry": {}, "weather": "damp", "tirePressure": 32}`)

	run, err := DecodeRun(raw)
	if err != nil {
		t.Fatalf("DecodeRun: %v", err)
	}
	if len(run.Extra) != 2 {
		t.Fatalf("Extra has %d fields, want 2", len(run.Extra))
	}
	if string(run.Extra["weather"]) != `"damp"` {
		t.Errorf("weather = %s, want %q", run.Extra["weather"], `"damp"`)
	}
}

func TestDecodeRun_Malformed(t *testing.T) {
	if _, err := DecodeRun(json.RawMessage(`{"lapTime": "fast"}`)); err == nil {
		t.Error("expected error for malformed lapTime")
	}
}

func TestPrepareImport_PartialFailure(t *testing.T) {
	ids := NewTimestampIDs()
	payloads := []json.RawMessage{
		json.RawMessage(`{"lapTime": 45.2, "telemetry": {"speed": []}}`),
		json.RawMessage(`{"lapTime": 44.0}`),
		json.RawMessage(`{"telemetry": {"speed": []}}`),
		json.RawMessage(`{"lapTime": -3.5, "telemetry": {"speed": []}}`),
		json.RawMessage(`{"lapTime": 47.1, "telemetry": {"speed": []}, "runId": "run-original-001"}`),
	}

	prepared, errs := prepareImport(ids, payloads)
	if len(prepared) != 2 {
		t.Fatalf("prepared %d runs, want 2", len(prepared))
	}
	if len(errs) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0], "telemetry") {
		t.Errorf("first error should name telemetry, got %q", errs[0])
	}
	if !strings.Contains(errs[1], "lapTime") {
		t.Errorf("second error should name lapTime, got %q", errs[1])
	}
	if !strings.Contains(errs[2], "positive") {
		t.Errorf("negative lapTime should report a positivity fault, got %q", errs[2])
	}
}

func TestPrepareImport_RegeneratesIdentity(t *testing.T) {
	ids := NewTimestampIDs()
	payloads := []json.RawMessage{
		json.RawMessage(`{"lapTime": 45.2, "telemetry": {}, "runId": "run-source-123"}`),
	}

	prepared, errs := prepareImport(ids, payloads)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	run := prepared[0]
	if run.RunID == "run-source-123" {
		t.Error("source run id must never be reused on import")
	}
	if run.RunID == "" {
		t.Error("imported run must get a fresh id")
	}
	if !run.Imported {
		t.Error("imported flag must be stamped")
	}
	if run.Timestamp.IsZero() {
		t.Error("imported run must get a fresh timestamp")
	}
}
