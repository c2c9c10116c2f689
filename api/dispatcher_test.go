package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jesseboth/autocross/models"
	"github.com/jesseboth/autocross/store"
)

type fakeCourses struct {
	calls   int
	created *models.Course
	deleted bool
	err     error
}

func (f *fakeCourses) List(context.Context) ([]models.Course, error) {
	f.calls++
	return []models.Course{}, f.err
}

func (f *fakeCourses) Create(_ context.Context, name, trackID string) (*models.Course, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.created = &models.Course{CourseID: "course-1", Name: name}
	if trackID != "" {
		f.created.TrackID = &trackID
	}
	return f.created, nil
}

func (f *fakeCourses) Delete(context.Context, string) (bool, error) {
	f.calls++
	return f.deleted, f.err
}

func (f *fakeCourses) Rename(_ context.Context, id, name string) (*models.Course, error) {
	f.calls++
	return &models.Course{CourseID: id, Name: name}, f.err
}

func (f *fakeCourses) Archive(_ context.Context, id, car, event string) (*models.Course, error) {
	f.calls++
	return &models.Course{CourseID: id, Name: event + " (Archived)", IsArchived: true}, f.err
}

type fakeRuns struct {
	calls    int
	saved    *models.Run
	deleted  bool
	exported []models.Run
	imported *store.ImportResult
	err      error
}

func (f *fakeRuns) List(context.Context, string, int, int) ([]models.Run, error) {
	f.calls++
	return []models.Run{}, f.err
}

func (f *fakeRuns) Get(context.Context, string, string) (*models.Run, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Run{RunID: "run-1-001"}, nil
}

func (f *fakeRuns) Save(_ context.Context, _ string, run *models.Run) (*models.Run, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	run.RunID = "run-1-001"
	run.Timestamp = time.Now()
	f.saved = run
	return run, nil
}

func (f *fakeRuns) Delete(context.Context, string, string) (bool, error) {
	f.calls++
	return f.deleted, f.err
}

func (f *fakeRuns) Rename(context.Context, string, string, string) error {
	f.calls++
	return f.err
}

func (f *fakeRuns) UpdateCones(context.Context, string, string, int) error {
	f.calls++
	return f.err
}

func (f *fakeRuns) Export(context.Context, string, []string) ([]models.Run, error) {
	f.calls++
	return f.exported, f.err
}

func (f *fakeRuns) Import(context.Context, string, []json.RawMessage) (*store.ImportResult, error) {
	f.calls++
	return f.imported, f.err
}

type fakeBoard struct {
	calls int
	err   error
}

func (f *fakeBoard) Top10(context.Context, string) ([]models.LeaderboardEntry, error) {
	f.calls++
	return []models.LeaderboardEntry{}, f.err
}

type fakeMappings struct {
	calls int
	err   error
}

func (f *fakeMappings) All(context.Context, models.MappingKind) (map[string]string, error) {
	f.calls++
	return map[string]string{}, f.err
}

func (f *fakeMappings) Set(context.Context, models.MappingKind, string, string) error {
	f.calls++
	return f.err
}

func (f *fakeMappings) ResolveMany(_ context.Context, _ models.MappingKind, ids []string) (map[string]string, error) {
	f.calls++
	out := map[string]string{}
	for _, id := range ids {
		if id == "car-known" {
			out[id] = "Miata"
		}
	}
	return out, f.err
}

type fixture struct {
	courses  *fakeCourses
	runs     *fakeRuns
	board    *fakeBoard
	mappings *fakeMappings
	d        *Dispatcher
}

func newFixture() *fixture {
	f := &fixture{
		courses:  &fakeCourses{},
		runs:     &fakeRuns{},
		board:    &fakeBoard{},
		mappings: &fakeMappings{},
	}
	f.d = New(f.courses, f.runs, f.board, f.mappings, zap.NewNop())
	return f
}

func handle(t *testing.T, f *fixture, action, payload string) Response {
	t.Helper()
	return f.d.Handle(context.Background(), action, json.RawMessage(payload))
}

func TestHandle_UnknownAction(t *testing.T) {
	f := newFixture()
	resp := handle(t, f, "launchRocket", `{}`)
	if resp.Success {
		t.Error("unknown action must not succeed")
	}
	if !strings.Contains(resp.Error, "launchRocket") {
		t.Errorf("error should identify the action, got %q", resp.Error)
	}
}

func TestHandle_ValidationStopsBeforeStore(t *testing.T) {
	cases := []struct {
		action  string
		payload string
		field   string
	}{
		{"createCourse", `{}`, "name"},
		{"createCourse", `{"name":"   "}`, "name"},
		{"deleteCourse", `{}`, "courseId"},
		{"archiveCourse", `{"courseId":"c1","carName":"GR86"}`, "eventName"},
		{"archiveCourse", `{"courseId":"c1","eventName":"Spring Event"}`, "carName"},
		{"getRuns", `{}`, "courseId"},
		{"getRun", `{"courseId":"c1"}`, "runId"},
		{"saveRun", `{"courseId":"c1"}`, "runData"},
		{"deleteRun", `{"runId":"r1"}`, "courseId"},
		{"renameRun", `{"courseId":"c1"}`, "runId"},
		{"updateCones", `{"courseId":"c1","runId":"r1"}`, "cones"},
		{"exportRuns", `{"courseId":"c1"}`, "runIds"},
		{"importRuns", `{"courseId":"c1"}`, "runs"},
		{"setCarName", `{"carId":"car-1"}`, "name"},
		{"setTrackName", `{"name":"Thompson"}`, "trackId"},
		{"getCarNames", `{}`, "carIds"},
	}

	for _, c := range cases {
		f := newFixture()
		resp := handle(t, f, c.action, c.payload)
		if resp.Success {
			t.Errorf("%s %s: expected failure", c.action, c.payload)
			continue
		}
		if !strings.Contains(resp.Error, c.field) {
			t.Errorf("%s: error %q should name field %q", c.action, resp.Error, c.field)
		}
		total := f.courses.calls + f.runs.calls + f.board.calls + f.mappings.calls
		if total != 0 {
			t.Errorf("%s: store touched %d times despite validation failure", c.action, total)
		}
	}
}

func TestHandle_SaveRunRequiresLapTimeAndTelemetry(t *testing.T) {
	f := newFixture()

	resp := handle(t, f, "saveRun", `{"courseId":"c1","runData":{"telemetry":{}}}`)
	if resp.Success || !strings.Contains(resp.Error, "lapTime") {
		t.Errorf("missing lapTime: got %+v", resp)
	}

	// Present but non-positive is a malformed value, not a missing one.
	resp = handle(t, f, "saveRun", `{"courseId":"c1","runData":{"lapTime":-3.5,"telemetry":{}}}`)
	if resp.Success || !strings.Contains(resp.Error, "positive") {
		t.Errorf("negative lapTime should report a positivity fault, got %+v", resp)
	}

	resp = handle(t, f, "saveRun", `{"courseId":"c1","runData":{"lapTime":45.2}}`)
	if resp.Success || !strings.Contains(resp.Error, "telemetry") {
		t.Errorf("missing telemetry: got %+v", resp)
	}

	if f.runs.calls != 0 {
		t.Errorf("run store touched %d times despite invalid run data", f.runs.calls)
	}

	resp = handle(t, f, "saveRun", `{"courseId":"c1","runData":{"lapTime":45.2,"telemetry":{"speed":[1]},"isValid":true}}`)
	if !resp.Success {
		t.Fatalf("valid save failed: %q", resp.Error)
	}
	if f.runs.saved == nil || f.runs.saved.LapTime != 45.2 {
		t.Errorf("saved run = %+v", f.runs.saved)
	}
}

func TestHandle_UpdateConesRejectsNegative(t *testing.T) {
	f := newFixture()
	resp := handle(t, f, "updateCones", `{"courseId":"c1","runId":"r1","cones":-1}`)
	if resp.Success {
		t.Error("negative cones must fail")
	}
	if f.runs.calls != 0 {
		t.Error("store touched despite invalid cones")
	}

	resp = handle(t, f, "updateCones", `{"courseId":"c1","runId":"r1","cones":0}`)
	if !resp.Success {
		t.Errorf("zero cones is valid, got %q", resp.Error)
	}
}

func TestHandle_ExportFailsOnlyWhenEmpty(t *testing.T) {
	f := newFixture()
	f.runs.exported = []models.Run{{RunID: "run-1-001", LapTime: 45.2}}

	// Two requested, one found: missing ids are skipped, not fatal.
	resp := handle(t, f, "exportRuns", `{"courseId":"c1","runIds":["run-1-001","run-gone"]}`)
	if !resp.Success {
		t.Fatalf("partial export failed: %q", resp.Error)
	}
	payload, ok := resp.Data.(*ExportPayload)
	if !ok {
		t.Fatalf("Data = %T, want *ExportPayload", resp.Data)
	}
	if len(payload.Runs) != 1 {
		t.Errorf("exported %d runs, want 1", len(payload.Runs))
	}
	if payload.ExportDate.IsZero() {
		t.Error("exportDate must be stamped")
	}

	f.runs.exported = nil
	resp = handle(t, f, "exportRuns", `{"courseId":"c1","runIds":["run-gone"]}`)
	if resp.Success {
		t.Error("export with no matching runs must fail")
	}
}

func TestHandle_ImportAlwaysSucceeds(t *testing.T) {
	f := newFixture()
	f.runs.imported = &store.ImportResult{Imported: 2, Errors: []string{"run 3: telemetry is required"}}

	resp := handle(t, f, "importRuns", `{"courseId":"c1","runs":[{},{},{}]}`)
	if !resp.Success {
		t.Fatalf("import with partial failures must still succeed, got %q", resp.Error)
	}
	result, ok := resp.Data.(*store.ImportResult)
	if !ok {
		t.Fatalf("Data = %T, want *store.ImportResult", resp.Data)
	}
	if result.Imported != 2 || len(result.Errors) != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestHandle_NotFoundPassesThrough(t *testing.T) {
	f := newFixture()
	f.runs.err = fmt.Errorf("run r1: %w", models.ErrNotFound)

	resp := handle(t, f, "getRun", `{"courseId":"c1","runId":"r1"}`)
	if resp.Success {
		t.Error("not-found must fail")
	}
	if !strings.Contains(resp.Error, "r1") {
		t.Errorf("not-found message should pass through, got %q", resp.Error)
	}
}

func TestHandle_PersistenceErrorIsOpaque(t *testing.T) {
	f := newFixture()
	f.board.err = fmt.Errorf("reading leaderboard: connection refused on 10.0.0.5")

	resp := handle(t, f, "getTop10", `{"courseId":"c1"}`)
	if resp.Success {
		t.Error("persistence error must fail")
	}
	if strings.Contains(resp.Error, "10.0.0.5") {
		t.Errorf("raw fault detail leaked: %q", resp.Error)
	}
	if resp.Error != "operation failed" {
		t.Errorf("error = %q, want generic failure", resp.Error)
	}
}

func TestHandle_DeleteMissingRun(t *testing.T) {
	f := newFixture()
	f.runs.deleted = false

	resp := handle(t, f, "deleteRun", `{"courseId":"c1","runId":"run-gone"}`)
	if resp.Success {
		t.Error("deleting a missing run must fail")
	}
	if !strings.Contains(resp.Error, "not found") {
		t.Errorf("error = %q, want not-found", resp.Error)
	}
}

func TestHandle_RecoveredPanic(t *testing.T) {
	f := newFixture()
	f.d.actions["explode"] = func(context.Context, json.RawMessage) (any, error) {
		panic("telemetry buffer overrun")
	}

	resp := handle(t, f, "explode", `{}`)
	if resp.Success {
		t.Error("panicking action must not succeed")
	}
	if !strings.Contains(resp.Error, "telemetry buffer overrun") {
		t.Errorf("panic message should surface, got %q", resp.Error)
	}
}

func TestHandle_GetCarNamesSkipsUnknown(t *testing.T) {
	f := newFixture()
	resp := handle(t, f, "getCarNames", `{"carIds":["car-known","car-mystery"]}`)
	if !resp.Success {
		t.Fatalf("getCarNames failed: %q", resp.Error)
	}
	names, ok := resp.Data.(map[string]string)
	if !ok {
		t.Fatalf("Data = %T, want map[string]string", resp.Data)
	}
	if len(names) != 1 || names["car-known"] != "Miata" {
		t.Errorf("names = %v", names)
	}
}

func TestHandle_CreateCoursePassesTrackID(t *testing.T) {
	f := newFixture()
	resp := handle(t, f, "createCourse", `{"name":"Paddock A","trackId":"track-3"}`)
	if !resp.Success {
		t.Fatalf("createCourse failed: %q", resp.Error)
	}
	if f.courses.created.TrackID == nil || *f.courses.created.TrackID != "track-3" {
		t.Errorf("trackId not forwarded: %+v", f.courses.created)
	}
}
