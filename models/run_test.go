package models

import (
	"encoding/json"
	"testing"
)

func TestRun_AdjustedTime(t *testing.T) {
	cases := []struct {
		lapTime float64
		cones   int
		want    float64
	}{
		{45.2, 0, 45.2},
		{44.0, 1, 46.0},
		{45.2, 2, 49.2},
		{60.0, 5, 70.0},
	}

	for _, c := range cases {
		r := Run{LapTime: c.lapTime, Cones: c.cones}
		if got := r.AdjustedTime(); got != c.want {
			t.Errorf("AdjustedTime(%v, %d cones) = %v, want %v", c.lapTime, c.cones, got, c.want)
		}
	}
}

func TestRun_HasTelemetry(t *testing.T) {
	r := Run{}
	if r.HasTelemetry() {
		t.Error("empty telemetry should not count as present")
	}

	r.Telemetry = json.RawMessage("null")
	if r.HasTelemetry() {
		t.Error("JSON null telemetry should not count as present")
	}

	r.Telemetry = json.RawMessage(`{"speed":[1,2,3]}`)
	if !r.HasTelemetry() {
		t.Error("telemetry object should count as present")
	}
}

func TestProjectEntry(t *testing.T) {
	run := Run{
		RunID:   "run-1-001",
		LapTime: 44.0,
		Cones:   1,
		CarID:   "car-9",
	}

	e := ProjectEntry("course-1", &run)
	if e.CourseID != "course-1" {
		t.Errorf("CourseID = %q, want %q", e.CourseID, "course-1")
	}
	if e.RunID != "run-1-001" {
		t.Errorf("RunID = %q, want %q", e.RunID, "run-1-001")
	}
	if e.AdjustedTime != 46.0 {
		t.Errorf("AdjustedTime = %v, want 46.0", e.AdjustedTime)
	}
	if e.CarID != "car-9" {
		t.Errorf("CarID = %q, want %q", e.CarID, "car-9")
	}
}
