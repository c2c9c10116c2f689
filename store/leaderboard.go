package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/jesseboth/autocross/models"
)

const cacheTTL = 30 * time.Second

// Leaderboard maintains the bounded top-10 ranking each course derives
// from its valid runs. The persisted table is never a source of truth;
// Rebuild can reconstruct it from the run collection at any time.
type Leaderboard struct {
	db    *bun.DB
	cache *redis.Client
	log   *zap.Logger
}

// Top10 returns the course's ranked entries, at most ten, fastest first.
func (s *Leaderboard) Top10(ctx context.Context, courseID string) ([]models.LeaderboardEntry, error) {
	if cached, ok := s.cacheGet(ctx, courseID); ok {
		return cached, nil
	}

	entries := []models.LeaderboardEntry{}
	err := s.db.NewSelect().
		Model(&entries).
		Where("lb.course_id = ?", courseID).
		OrderExpr("lb.rank ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading leaderboard: %w", err)
	}

	s.cacheSet(ctx, courseID, entries)
	return entries, nil
}

// ConsiderForTop10 offers a freshly saved run to the ranking. A single
// addition can displace existing entries but never invalidate one, so
// append, re-sort and truncate is enough. Invalid runs are ignored
// outright.
func (s *Leaderboard) ConsiderForTop10(ctx context.Context, courseID string, run *models.Run) error {
	if !run.IsValid {
		return nil
	}

	entries := []models.LeaderboardEntry{}
	err := s.db.NewSelect().
		Model(&entries).
		Where("lb.course_id = ?", courseID).
		OrderExpr("lb.rank ASC").
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("reading leaderboard: %w", err)
	}

	entries = append(entries, models.ProjectEntry(courseID, run))
	return s.persist(ctx, courseID, rankEntries(entries))
}

// Rebuild recomputes the ranking wholesale from the run collection. Used
// after delete and cone changes, where an existing entry's correctness
// can no longer be assumed.
func (s *Leaderboard) Rebuild(ctx context.Context, courseID string) error {
	runs := []models.Run{}
	err := s.db.NewSelect().
		Model(&runs).
		Where("r.course_id = ? AND r.is_valid", courseID).
		OrderExpr("(r.lap_time + r.cones * ?) ASC, r.timestamp ASC, r.run_id ASC", models.PenaltySeconds).
		Limit(models.Top10Size).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("reading runs for rebuild: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(runs))
	for i := range runs {
		entries = append(entries, models.ProjectEntry(courseID, &runs[i]))
	}
	return s.persist(ctx, courseID, rankEntries(entries))
}

// persist replaces the course's stored ranking in one transaction, then
// drops the cached copy.
func (s *Leaderboard) persist(ctx context.Context, courseID string, entries []models.LeaderboardEntry) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.LeaderboardEntry)(nil)).
			Where("course_id = ?", courseID).
			Exec(ctx); err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&entries).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("persisting leaderboard: %w", err)
	}

	s.invalidate(ctx, courseID)
	return nil
}

func cacheKey(courseID string) string {
	return "leaderboard:" + courseID
}

func (s *Leaderboard) cacheGet(ctx context.Context, courseID string) ([]models.LeaderboardEntry, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, cacheKey(courseID)).Bytes()
	if err != nil {
		return nil, false
	}
	entries := []models.LeaderboardEntry{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (s *Leaderboard) cacheSet(ctx context.Context, courseID string, entries []models.LeaderboardEntry) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(courseID), raw, cacheTTL).Err(); err != nil {
		s.log.Warn("leaderboard cache set failed", zap.String("courseId", courseID), zap.Error(err))
	}
}

func (s *Leaderboard) invalidate(ctx context.Context, courseID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(courseID)).Err(); err != nil {
		s.log.Warn("leaderboard cache invalidate failed", zap.String("courseId", courseID), zap.Error(err))
	}
}
