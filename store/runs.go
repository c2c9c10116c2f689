package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/jesseboth/autocross/models"
)

// Runs persists individual run records keyed by (course, run id). Every
// mutation refreshes the course aggregates and brings the leaderboard
// back in line, holding the course lock for the whole sequence.
type Runs struct {
	db      *bun.DB
	ids     IDGenerator
	locks   *keyring
	courses *Courses
	board   *Leaderboard
}

// List returns the course's runs newest first. limit <= 0 means no
// paging. An unknown course simply has no runs.
func (s *Runs) List(ctx context.Context, courseID string, limit, offset int) ([]models.Run, error) {
	runs := []models.Run{}
	q := s.db.NewSelect().
		Model(&runs).
		Where("r.course_id = ?", courseID).
		OrderExpr("r.timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

func (s *Runs) Get(ctx context.Context, courseID, runID string) (*models.Run, error) {
	run := new(models.Run)
	err := s.db.NewSelect().
		Model(run).
		Where("r.course_id = ? AND r.run_id = ?", courseID, runID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return run, nil
}

// Save persists a run, generating an id and timestamp when absent, then
// refreshes course metadata and brings the leaderboard in line. A
// caller-supplied id addresses the record: saving an id that already
// exists replaces it rather than failing on the key. Required-field
// validation happens at the dispatch boundary before this is called.
func (s *Runs) Save(ctx context.Context, courseID string, run *models.Run) (*models.Run, error) {
	unlock := s.locks.lock(courseID)
	defer unlock()

	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now()
	}
	run.CourseID = courseID

	replacing := false
	if run.RunID == "" {
		run.RunID = s.ids.RunID(run.Timestamp)
	} else {
		exists, err := s.db.NewSelect().
			Model((*models.Run)(nil)).
			Where("course_id = ? AND run_id = ?", courseID, run.RunID).
			Exists(ctx)
		if err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
		replacing = exists
	}

	q := s.db.NewInsert().Model(run)
	if replacing {
		q = q.On("CONFLICT (course_id, run_id) DO UPDATE").
			Set("lap_time = EXCLUDED.lap_time").
			Set("telemetry = EXCLUDED.telemetry").
			Set("cones = EXCLUDED.cones").
			Set("is_valid = EXCLUDED.is_valid").
			Set("car_id = EXCLUDED.car_id").
			Set("timestamp = EXCLUDED.timestamp").
			Set("name = EXCLUDED.name").
			Set("imported = EXCLUDED.imported").
			Set("extra = EXCLUDED.extra")
	}
	if _, err := q.Exec(ctx); err != nil {
		return nil, fmt.Errorf("saving run: %w", err)
	}

	if err := s.courses.RefreshMetadata(ctx, courseID); err != nil {
		return nil, err
	}

	// A replaced record's old leaderboard entry may no longer be right,
	// so the incremental path only applies to genuinely new runs.
	if replacing {
		if err := s.board.Rebuild(ctx, courseID); err != nil {
			return nil, err
		}
		return run, nil
	}
	if err := s.board.ConsiderForTop10(ctx, courseID, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Delete removes one run. Returns false when the run was not present,
// leaving the collection, metadata and leaderboard untouched. A removed
// run forces a full leaderboard rebuild; its absence can only be
// reflected by recomputing from what remains.
func (s *Runs) Delete(ctx context.Context, courseID, runID string) (bool, error) {
	unlock := s.locks.lock(courseID)
	defer unlock()

	res, err := s.db.NewDelete().
		Model((*models.Run)(nil)).
		Where("course_id = ? AND run_id = ?", courseID, runID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("deleting run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if err := s.courses.RefreshMetadata(ctx, courseID); err != nil {
		return false, err
	}
	if err := s.board.Rebuild(ctx, courseID); err != nil {
		return false, err
	}
	return true, nil
}

// Rename sets the run's display label. An empty name clears it. No
// leaderboard impact.
func (s *Runs) Rename(ctx context.Context, courseID, runID, name string) error {
	unlock := s.locks.lock(courseID)
	defer unlock()

	q := s.db.NewUpdate().
		Model((*models.Run)(nil)).
		Where("course_id = ? AND run_id = ?", courseID, runID)
	if strings.TrimSpace(name) == "" {
		q = q.Set("name = NULL")
	} else {
		q = q.Set("name = ?", name)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("renaming run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", runID, models.ErrNotFound)
	}
	return nil
}

// UpdateCones changes the run's cone count. The adjusted time moved, so
// both the course aggregates and the whole leaderboard are recomputed —
// a cone change can reorder entries that never involved this run.
func (s *Runs) UpdateCones(ctx context.Context, courseID, runID string, cones int) error {
	if cones < 0 {
		return models.Invalid("cones", "must be a non-negative integer")
	}

	unlock := s.locks.lock(courseID)
	defer unlock()

	res, err := s.db.NewUpdate().
		Model((*models.Run)(nil)).
		Set("cones = ?", cones).
		Where("course_id = ? AND run_id = ?", courseID, runID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("updating cones: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", runID, models.ErrNotFound)
	}

	if err := s.courses.RefreshMetadata(ctx, courseID); err != nil {
		return err
	}
	return s.board.Rebuild(ctx, courseID)
}

// Export reads the named runs. Ids with no matching record are skipped
// silently; the caller decides what an empty result means.
func (s *Runs) Export(ctx context.Context, courseID string, runIDs []string) ([]models.Run, error) {
	runs := []models.Run{}
	if len(runIDs) == 0 {
		return runs, nil
	}
	err := s.db.NewSelect().
		Model(&runs).
		Where("r.course_id = ?", courseID).
		Where("r.run_id IN (?)", bun.In(runIDs)).
		OrderExpr("r.timestamp DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting runs: %w", err)
	}
	return runs, nil
}

// ImportResult reports a bulk import: how many records were accepted and
// a message per rejected one. A failed item never aborts the batch.
type ImportResult struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

// Import creates runs from raw payloads. Each accepted record gets a
// fresh id and timestamp and is stamped imported; source ids are never
// reused, so an import cannot collide with existing runs.
func (s *Runs) Import(ctx context.Context, courseID string, payloads []json.RawMessage) (*ImportResult, error) {
	unlock := s.locks.lock(courseID)
	defer unlock()

	prepared, errs := prepareImport(s.ids, payloads)
	result := &ImportResult{Errors: errs}

	for _, run := range prepared {
		run.CourseID = courseID
		if _, err := s.db.NewInsert().Model(run).Exec(ctx); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("run %s: %v", run.RunID, err))
			continue
		}
		result.Imported++
	}

	if result.Imported > 0 {
		if err := s.courses.RefreshMetadata(ctx, courseID); err != nil {
			return nil, err
		}
		if err := s.board.Rebuild(ctx, courseID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// prepareImport decodes and validates import payloads independently,
// returning the accepted runs and one message per rejected item.
func prepareImport(ids IDGenerator, payloads []json.RawMessage) ([]*models.Run, []string) {
	prepared := []*models.Run{}
	errs := []string{}

	for i, raw := range payloads {
		run, err := DecodeRun(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("run %d: %v", i+1, err))
			continue
		}
		if run.LapTime <= 0 {
			errs = append(errs, fmt.Sprintf("run %d: lapTime must be a positive number", i+1))
			continue
		}
		if !run.HasTelemetry() {
			errs = append(errs, fmt.Sprintf("run %d: telemetry is required", i+1))
			continue
		}

		run.Timestamp = time.Now()
		run.RunID = ids.RunID(run.Timestamp)
		run.Imported = true
		prepared = append(prepared, run)
	}
	return prepared, errs
}
