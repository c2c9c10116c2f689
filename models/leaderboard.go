package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Top10Size bounds every course leaderboard.
const Top10Size = 10

// LeaderboardEntry is a ranked projection of a valid run. The leaderboard
// is always reconstructible from the run collection; it is never a source
// of truth.
type LeaderboardEntry struct {
	bun.BaseModel `bun:"table:leaderboard_entries,alias:lb"`

	CourseID     string    `bun:"course_id,pk" json:"-"`
	Rank         int       `bun:"rank,pk" json:"-"`
	RunID        string    `bun:"run_id,notnull" json:"runId"`
	LapTime      float64   `bun:"lap_time,notnull" json:"lapTime"`
	Cones        int       `bun:"cones,notnull" json:"cones"`
	AdjustedTime float64   `bun:"adjusted_time,notnull" json:"adjustedTime"`
	Timestamp    time.Time `bun:"timestamp,notnull" json:"timestamp"`
	CarID        string    `bun:"car_id" json:"carId,omitempty"`
}

// ProjectEntry builds the leaderboard projection of a run.
func ProjectEntry(courseID string, run *Run) LeaderboardEntry {
	return LeaderboardEntry{
		CourseID:     courseID,
		RunID:        run.RunID,
		LapTime:      run.LapTime,
		Cones:        run.Cones,
		AdjustedTime: run.AdjustedTime(),
		Timestamp:    run.Timestamp,
		CarID:        run.CarID,
	}
}
