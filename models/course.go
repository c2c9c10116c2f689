package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Course groups timed runs under one track layout and carries the
// aggregates derived from them.
type Course struct {
	bun.BaseModel `bun:"table:courses,alias:c"`

	CourseID    string    `bun:"course_id,pk" json:"courseId"`
	Name        string    `bun:"name,notnull" json:"name"`
	TrackID     *string   `bun:"track_id" json:"trackId"`
	DateCreated time.Time `bun:"date_created,notnull" json:"dateCreated"`

	// Derived from the run collection, refreshed after every run mutation.
	RunCount int      `bun:"run_count,notnull,default:0" json:"runCount"`
	BestTime *float64 `bun:"best_time" json:"bestTime"`

	IsArchived        bool       `bun:"is_archived,notnull,default:false" json:"isArchived"`
	ArchivedDate      *time.Time `bun:"archived_date" json:"archivedDate,omitempty"`
	ArchivedCarName   *string    `bun:"archived_car_name" json:"archivedCarName,omitempty"`
	ArchivedEventName *string    `bun:"archived_event_name" json:"archivedEventName,omitempty"`
}
