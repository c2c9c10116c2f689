package handlers

import (
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/jesseboth/autocross/api"
)

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	dispatcher *api.Dispatcher
	db         *bun.DB
	rdb        *redis.Client
}

// New creates a Handler around the action dispatcher and the backing
// stores. rdb may be nil when the leaderboard cache is disabled.
func New(dispatcher *api.Dispatcher, db *bun.DB, rdb *redis.Client) *Handler {
	return &Handler{dispatcher: dispatcher, db: db, rdb: rdb}
}
