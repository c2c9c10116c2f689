package store

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// IDGenerator produces course and run identifiers. Injected so tests can
// pin ids to fixed values.
type IDGenerator interface {
	CourseID(t time.Time) string
	RunID(t time.Time) string
}

// TimestampIDs generates ids from a millisecond timestamp plus a random
// suffix. The timestamp component is forced monotonic per process, so two
// ids from the same generator never collide even inside one millisecond.
type TimestampIDs struct {
	mu   sync.Mutex
	last int64
}

func NewTimestampIDs() *TimestampIDs {
	return &TimestampIDs{}
}

func (g *TimestampIDs) stamp(t time.Time) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := t.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return ms
}

func (g *TimestampIDs) CourseID(t time.Time) string {
	return fmt.Sprintf("course-%d", g.stamp(t))
}

func (g *TimestampIDs) RunID(t time.Time) string {
	return fmt.Sprintf("run-%d-%03d", g.stamp(t), rand.IntN(1000))
}
