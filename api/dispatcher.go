// Package api exposes the core operations behind a single action
// dispatch entry point. Callers hand over a decoded action name and
// payload and always get a structured success/error envelope back.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jesseboth/autocross/models"
	"github.com/jesseboth/autocross/store"
)

// Response is the uniform envelope every action answers with.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CourseStore is the course registry surface the dispatcher needs.
type CourseStore interface {
	List(ctx context.Context) ([]models.Course, error)
	Create(ctx context.Context, name, trackID string) (*models.Course, error)
	Delete(ctx context.Context, courseID string) (bool, error)
	Rename(ctx context.Context, courseID, name string) (*models.Course, error)
	Archive(ctx context.Context, courseID, carName, eventName string) (*models.Course, error)
}

// RunStore is the run collection surface the dispatcher needs.
type RunStore interface {
	List(ctx context.Context, courseID string, limit, offset int) ([]models.Run, error)
	Get(ctx context.Context, courseID, runID string) (*models.Run, error)
	Save(ctx context.Context, courseID string, run *models.Run) (*models.Run, error)
	Delete(ctx context.Context, courseID, runID string) (bool, error)
	Rename(ctx context.Context, courseID, runID, name string) error
	UpdateCones(ctx context.Context, courseID, runID string, cones int) error
	Export(ctx context.Context, courseID string, runIDs []string) ([]models.Run, error)
	Import(ctx context.Context, courseID string, payloads []json.RawMessage) (*store.ImportResult, error)
}

// LeaderboardStore reads the derived per-course ranking.
type LeaderboardStore interface {
	Top10(ctx context.Context, courseID string) ([]models.LeaderboardEntry, error)
}

// MappingStore is the friendly-name dictionary surface.
type MappingStore interface {
	All(ctx context.Context, kind models.MappingKind) (map[string]string, error)
	Set(ctx context.Context, kind models.MappingKind, id, name string) error
	ResolveMany(ctx context.Context, kind models.MappingKind, ids []string) (map[string]string, error)
}

type actionFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Dispatcher routes action names to operations through a flat table.
type Dispatcher struct {
	courses  CourseStore
	runs     RunStore
	board    LeaderboardStore
	mappings MappingStore
	log      *zap.Logger

	actions map[string]actionFunc
}

// New builds the dispatcher and its action table.
func New(courses CourseStore, runs RunStore, board LeaderboardStore, mappings MappingStore, log *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		courses:  courses,
		runs:     runs,
		board:    board,
		mappings: mappings,
		log:      log,
	}

	d.actions = map[string]actionFunc{
		"getCourses":       d.getCourses,
		"createCourse":     d.createCourse,
		"deleteCourse":     d.deleteCourse,
		"renameCourse":     d.renameCourse,
		"archiveCourse":    d.archiveCourse,
		"getRuns":          d.getRuns,
		"getRun":           d.getRun,
		"saveRun":          d.saveRun,
		"deleteRun":        d.deleteRun,
		"getTop10":         d.getTop10,
		"renameRun":        d.renameRun,
		"exportRuns":       d.exportRuns,
		"importRuns":       d.importRuns,
		"updateCones":      d.updateCones,
		"getCarNames":      d.getCarNames,
		"getCarMappings":   d.getCarMappings,
		"getTrackMappings": d.getTrackMappings,
		"setCarName":       d.setCarName,
		"setTrackName":     d.setTrackName,
	}
	return d
}

// Handle runs one action. Validation and not-found conditions come back
// in the envelope; nothing an action does — panics included — propagates
// past this boundary.
func (d *Dispatcher) Handle(ctx context.Context, action string, payload json.RawMessage) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("action panicked", zap.String("action", action), zap.Any("panic", r))
			resp = Response{Error: fmt.Sprintf("%v", r)}
		}
	}()

	fn, ok := d.actions[action]
	if !ok {
		return Response{Error: fmt.Sprintf("unknown action: %s", action)}
	}

	data, err := fn(ctx, payload)
	if err != nil {
		return d.errorResponse(action, err)
	}
	return Response{Success: true, Data: data}
}

// errorResponse maps an operation error to the envelope. Validation and
// not-found messages pass through; anything else is a persistence-level
// fault that gets logged here and surfaced as a generic failure.
func (d *Dispatcher) errorResponse(action string, err error) Response {
	var verr *models.ValidationError
	if errors.As(err, &verr) || errors.Is(err, models.ErrNotFound) {
		return Response{Error: err.Error()}
	}
	d.log.Error("action failed", zap.String("action", action), zap.Error(err))
	return Response{Error: "operation failed"}
}

// decode parses an action payload into its request struct.
func decode(payload json.RawMessage, req any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, req); err != nil {
		return models.Invalid("payload", err.Error())
	}
	return nil
}
