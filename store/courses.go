package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/jesseboth/autocross/models"
)

// Courses is the registry of course metadata. Run counts and best times
// are derived from the run collection and refreshed after every run
// mutation.
type Courses struct {
	db    *bun.DB
	ids   IDGenerator
	locks *keyring
	board *Leaderboard
}

// List returns every known course, archived ones included, oldest first.
func (s *Courses) List(ctx context.Context) ([]models.Course, error) {
	courses := []models.Course{}
	err := s.db.NewSelect().
		Model(&courses).
		OrderExpr("c.date_created ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	return courses, nil
}

// Create registers a new course. The run collection and leaderboard for
// it start empty; they exist as soon as rows are keyed under the new id.
func (s *Courses) Create(ctx context.Context, name, trackID string) (*models.Course, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.Missing("name")
	}

	now := time.Now()
	course := &models.Course{
		CourseID:    s.ids.CourseID(now),
		Name:        name,
		DateCreated: now,
		RunCount:    0,
	}
	if trackID != "" {
		course.TrackID = &trackID
	}

	if _, err := s.db.NewInsert().Model(course).Exec(ctx); err != nil {
		return nil, fmt.Errorf("creating course: %w", err)
	}
	return course, nil
}

func (s *Courses) Get(ctx context.Context, courseID string) (*models.Course, error) {
	course := new(models.Course)
	err := s.db.NewSelect().
		Model(course).
		Where("c.course_id = ?", courseID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("course %s: %w", courseID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting course: %w", err)
	}
	return course, nil
}

// Delete removes a course along with its entire run collection and
// leaderboard. Returns false when the course was not present; an absent
// course leaves the registry untouched.
func (s *Courses) Delete(ctx context.Context, courseID string) (bool, error) {
	unlock := s.locks.lock(courseID)
	defer unlock()

	var removed bool
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.Run)(nil)).
			Where("course_id = ?", courseID).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().
			Model((*models.LeaderboardEntry)(nil)).
			Where("course_id = ?", courseID).
			Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().
			Model((*models.Course)(nil)).
			Where("course_id = ?", courseID).
			Exec(ctx)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		removed = n > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("deleting course: %w", err)
	}

	s.board.invalidate(ctx, courseID)
	return removed, nil
}

// Rename updates the course display name.
func (s *Courses) Rename(ctx context.Context, courseID, name string) (*models.Course, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.Missing("name")
	}

	unlock := s.locks.lock(courseID)
	defer unlock()

	res, err := s.db.NewUpdate().
		Model((*models.Course)(nil)).
		Set("name = ?", name).
		Where("course_id = ?", courseID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("renaming course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("course %s: %w", courseID, models.ErrNotFound)
	}
	return s.Get(ctx, courseID)
}

// Archive closes out a course: one-way transition that stamps the event
// and car context, detaches the track association and rewrites the name.
// Re-archiving is not guarded; a second call re-stamps with its own
// values.
func (s *Courses) Archive(ctx context.Context, courseID, carName, eventName string) (*models.Course, error) {
	if strings.TrimSpace(carName) == "" {
		return nil, models.Missing("carName")
	}
	if strings.TrimSpace(eventName) == "" {
		return nil, models.Missing("eventName")
	}

	unlock := s.locks.lock(courseID)
	defer unlock()

	now := time.Now()
	res, err := s.db.NewUpdate().
		Model((*models.Course)(nil)).
		Set("is_archived = TRUE").
		Set("archived_date = ?", now).
		Set("archived_car_name = ?", carName).
		Set("archived_event_name = ?", eventName).
		Set("track_id = NULL").
		Set("name = ?", fmt.Sprintf("%s (Archived)", eventName)).
		Where("course_id = ?", courseID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("archiving course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("course %s: %w", courseID, models.ErrNotFound)
	}
	return s.Get(ctx, courseID)
}

// RefreshMetadata recomputes run_count and best_time from the run
// collection. best_time is the minimum adjusted time over valid runs, or
// NULL when the course has none.
func (s *Courses) RefreshMetadata(ctx context.Context, courseID string) error {
	_, err := s.db.NewRaw(`
		UPDATE courses SET
			run_count = (SELECT count(*) FROM runs WHERE course_id = ?),
			best_time = (SELECT MIN(lap_time + cones * ?) FROM runs WHERE course_id = ? AND is_valid)
		WHERE course_id = ?`,
		courseID, models.PenaltySeconds, courseID, courseID,
	).Exec(ctx)
	if err != nil {
		return fmt.Errorf("refreshing course metadata: %w", err)
	}
	return nil
}
