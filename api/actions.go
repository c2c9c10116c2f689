package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jesseboth/autocross/models"
	"github.com/jesseboth/autocross/store"
)

// ExportPayload is the shape written by exportRuns and read back by
// importRuns (and cmd/importer).
type ExportPayload struct {
	ExportDate time.Time    `json:"exportDate"`
	Runs       []models.Run `json:"runs"`
}

func (d *Dispatcher) getCourses(ctx context.Context, _ json.RawMessage) (any, error) {
	return d.courses.List(ctx)
}

func (d *Dispatcher) createCourse(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		Name    string `json:"name"`
		TrackID string `json:"trackId"`
	}
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, models.Missing("name")
	}
	return d.courses.Create(ctx, req.Name, req.TrackID)
}

func (d *Dispatcher) deleteCourse(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		CourseID string `json:"courseId"`
	}
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.CourseID == "" {
		return nil, models.Missing("courseId")
	}

	removed, err := d.courses.Delete(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, fmt.Errorf("course %s: %w", req.CourseID, models.ErrNotFound)
	}
	return map[string]bool{"deleted": true}, nil
}

func (d *Dispatcher) renameCourse(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		CourseID string `json:"courseId"`
		Name     string `json:"name"`
	}
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.CourseID == "" {
		return nil, models.Missing("courseId")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, models.Missing("name")
	}
	return d.courses.Rename(ctx, req.CourseID, req.Name)
}

func (d *Dispatcher) archiveCourse(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		CourseID  string `json:"courseId"`
		CarName   string `json:"carName"`
		EventName string `json:"eventName"`
	}
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.CourseID == "" {
		return nil, models.Missing("courseId")
	}
	if strings.TrimSpace(req.CarName) == "" {
		return nil, models.Missing("carName")
	}
	if strings.TrimSpace(req.EventName) == "" {
		return nil, models.Missing("eventName")
	}
	return d.courses.Archive(ctx, req.CourseID, req.CarName, req.EventName)
}

func (d *Dispatcher) getRuns(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		CourseID string `json:"courseId"`
		Limit    int    `json:"limit"`
		Offset   int    `json:"offset"`
	}
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.CourseID == "" {
		return nil, models.Missing("courseId")
	}
	return d.runs.List(ctx, req.CourseID, req.Limit, req.Offset)
}

func (d *Dispatcher) getRun(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := courseRunReq(payload)
	if err != nil {
		return nil, err
	}
	return d.runs.Get(ctx, req.CourseID, req.RunID)
}

func (d *Dispatcher) saveRun(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		CourseID string          `json:"courseId"`
		RunData  json.RawMessage `json:"runData"`
	}
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.CourseID == "" {
		return nil, models.Missing("courseId")
	}
	if len(req.RunData) == 0 {
		return nil, models.Missing("runData")
	}

	run, err := store.DecodeRun(req.RunData)
	if err != nil {
		return nil, models.Invalid("runData", err.Error())
	}
	if run.LapTime <= 0 {
		return nil, models.Invalid("lapTime", "must be a positive number")
	}
	if !run.HasTelemetry() {
		return nil, models.Missing("telemetry")
	}
	return d.runs.Save(ctx, req.CourseID, run)
}

func (d *Dispatcher) deleteRun(ctx context.Context, payload json.RawMessage) (any, error) {
	req, err := courseRunReq(payload)
	if err != nil {
		return nil, err
	}

	removed, err := d.runs.Delete(ctx, req.CourseID, req.RunID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, fmt.Errorf("run %s: %w", req.RunID, models.ErrNotFound)
	}
	return map[string]bool{"deleted": true}, nil
}

func (d *Dispatcher) getTop10(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		CourseID string `json:"courseId"`
	}
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.CourseID == "" {
		return nil, models.Missing("courseId")
	}
	return d.board.Top10(ctx, req.CourseID)
}

func (d *Dispatcher) renameRun(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		CourseID string `json:"courseId"`
		RunID    string `json:"runId"`
		Name     string `json:"name"`
	}
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.CourseID == "" {
		return nil, models.Missing("courseId")
	}
	if req.RunID == "" {
		return nil, models.Missing("runId")
	}

	if err := d.runs.Rename(ctx, req.CourseID, req.RunID, req.Name); err != nil {
		return nil, err
	}
	return map[string]bool{"renamed": true}, nil
}

func (d *Dispatcher) exportRuns(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		CourseID string   `json:"courseId"`
		RunIDs   []string `json:"runIds"`
	}
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.CourseID == "" {
		return nil, models.Missing("courseId")
	}
	if req.RunIDs == nil {
		return nil, models.Missing("runIds")
	}

	// Missing ids are skipped silently; only an empty result fails.
	runs, err := d.runs.Export(ctx, req.CourseID, req.RunIDs)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, models.Invalid("runIds", "no matching runs to export")
	}
	return &ExportPayload{ExportDate: time.Now().UTC(), Runs: runs}, nil
}

func (d *Dispatcher) importRuns(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		CourseID string            `json:"courseId"`
		Runs     []json.RawMessage `json:"runs"`
	}
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.CourseID == "" {
		return nil, models.Missing("courseId")
	}
	if req.Runs == nil {
		return nil, models.Missing("runs")
	}

	// Partial failure is a reported result here, not an error: the batch
	// always answers success with the per-run error list.
	return d.runs.Import(ctx, req.CourseID, req.Runs)
}

func (d *Dispatcher) updateCones(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		CourseID string `json:"courseId"`
		RunID    string `json:"runId"`
		Cones    *int   `json:"cones"`
	}
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.CourseID == "" {
		return nil, models.Missing("courseId")
	}
	if req.RunID == "" {
		return nil, models.Missing("runId")
	}
	if req.Cones == nil {
		return nil, models.Missing("cones")
	}
	if *req.Cones < 0 {
		return nil, models.Invalid("cones", "must be a non-negative integer")
	}

	if err := d.runs.UpdateCones(ctx, req.CourseID, req.RunID, *req.Cones); err != nil {
		return nil, err
	}
	return map[string]bool{"updated": true}, nil
}

func (d *Dispatcher) getCarNames(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		CarIDs []string `json:"carIds"`
	}
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.CarIDs == nil {
		return nil, models.Missing("carIds")
	}
	return d.mappings.ResolveMany(ctx, models.MappingCar, req.CarIDs)
}

func (d *Dispatcher) getCarMappings(ctx context.Context, _ json.RawMessage) (any, error) {
	return d.mappings.All(ctx, models.MappingCar)
}

func (d *Dispatcher) getTrackMappings(ctx context.Context, _ json.RawMessage) (any, error) {
	return d.mappings.All(ctx, models.MappingTrack)
}

func (d *Dispatcher) setCarName(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		CarID string `json:"carId"`
		Name  string `json:"name"`
	}
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.CarID == "" {
		return nil, models.Missing("carId")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, models.Missing("name")
	}

	if err := d.mappings.Set(ctx, models.MappingCar, req.CarID, req.Name); err != nil {
		return nil, err
	}
	return map[string]bool{"saved": true}, nil
}

func (d *Dispatcher) setTrackName(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		TrackID string `json:"trackId"`
		Name    string `json:"name"`
	}
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.TrackID == "" {
		return nil, models.Missing("trackId")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, models.Missing("name")
	}

	if err := d.mappings.Set(ctx, models.MappingTrack, req.TrackID, req.Name); err != nil {
		return nil, err
	}
	return map[string]bool{"saved": true}, nil
}

type courseRun struct {
	CourseID string `json:"courseId"`
	RunID    string `json:"runId"`
}

func courseRunReq(payload json.RawMessage) (*courseRun, error) {
	req := new(courseRun)
	if err := decode(payload, req); err != nil {
		return nil, err
	}
	if req.CourseID == "" {
		return nil, models.Missing("courseId")
	}
	if req.RunID == "" {
		return nil, models.Missing("runId")
	}
	return req, nil
}
