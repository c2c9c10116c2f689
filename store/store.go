// Package store persists courses, runs, friendly-name mappings and the
// derived per-course leaderboard in PostgreSQL.
package store

import (
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Store bundles the four persistence components over one database.
type Store struct {
	Courses     *Courses
	Runs        *Runs
	Leaderboard *Leaderboard
	Mappings    *Mappings
}

// New wires the components together. cache may be nil, in which case
// leaderboard reads always hit the database.
func New(db *bun.DB, ids IDGenerator, cache *redis.Client, log *zap.Logger) *Store {
	locks := newKeyring()
	board := &Leaderboard{db: db, cache: cache, log: log}
	courses := &Courses{db: db, ids: ids, locks: locks, board: board}
	runs := &Runs{db: db, ids: ids, locks: locks, courses: courses, board: board}

	return &Store{
		Courses:     courses,
		Runs:        runs,
		Leaderboard: board,
		Mappings:    &Mappings{db: db},
	}
}
