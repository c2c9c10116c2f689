package models

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// PenaltySeconds is the time added to a run's lap time per cone struck.
const PenaltySeconds = 2

// Run is one timed attempt on a course. The telemetry trace is stored
// verbatim and never inspected beyond presence.
type Run struct {
	bun.BaseModel `bun:"table:runs,alias:r"`

	CourseID  string          `bun:"course_id,pk" json:"-"`
	RunID     string          `bun:"run_id,pk" json:"runId"`
	LapTime   float64         `bun:"lap_time,notnull" json:"lapTime"`
	Telemetry json.RawMessage `bun:"telemetry,type:jsonb" json:"telemetry,omitempty"`
	Cones     int             `bun:"cones,notnull,default:0" json:"cones"`
	IsValid   bool            `bun:"is_valid,notnull,default:false" json:"isValid"`
	CarID     string          `bun:"car_id" json:"carId,omitempty"`
	Timestamp time.Time       `bun:"timestamp,notnull" json:"timestamp"`
	Name      *string         `bun:"name" json:"name"`
	Imported  bool            `bun:"imported,notnull,default:false" json:"imported,omitempty"`

	// Unrecognized payload fields ride along untyped so newer recorder
	// versions can add fields without a schema change here.
	Extra map[string]json.RawMessage `bun:"extra,type:jsonb" json:"extra,omitempty"`
}

// AdjustedTime is the lap time plus cone penalties. It is computed on
// read everywhere ranking or best-time logic needs it, never stored.
func (r *Run) AdjustedTime() float64 {
	return r.LapTime + float64(r.Cones)*PenaltySeconds
}

// HasTelemetry reports whether the run carries a telemetry payload.
// A JSON null does not count.
func (r *Run) HasTelemetry() bool {
	return len(r.Telemetry) > 0 && string(r.Telemetry) != "null"
}
