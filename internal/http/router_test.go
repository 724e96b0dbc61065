package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vidcourse-backend/internal/clients/pipeline"
	"github.com/yungbote/vidcourse-backend/internal/data/repos"
	"github.com/yungbote/vidcourse-backend/internal/data/repos/testutil"
	types "github.com/yungbote/vidcourse-backend/internal/domain"
	httpH "github.com/yungbote/vidcourse-backend/internal/http/handlers"
	"github.com/yungbote/vidcourse-backend/internal/realtime"
	"github.com/yungbote/vidcourse-backend/internal/services"
)

type stubPipeline struct{}

func (stubPipeline) Invoke(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	return &pipeline.Result{
		QuestionsGenerated: 1,
		NewConcepts:        []string{fmt.Sprintf("c%d", req.SegmentIndex)},
		Questions:          []pipeline.Question{{Type: "multiple_choice", Prompt: "q"}},
	}, nil
}

type testAPI struct {
	engine    *gin.Engine
	scheduler services.Scheduler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	courseRepo := repos.NewCourseRepo(db, log)
	segRepo := repos.NewSegmentRepo(db, log)
	questionRepo := repos.NewQuestionRepo(db, log)
	hub := realtime.NewHub(log)
	notifier := services.NewCourseNotifier(realtime.NewEmitter(log, hub, nil))
	progress := services.NewProgressService(log, repos.NewProgressRepo(db, log), notifier, services.DefaultStageWeights())
	gate := services.NewPublishGate(log, courseRepo, segRepo, questionRepo, progress, notifier)
	courses := services.NewCourseService(db, log, services.CourseServiceConfig{MaxVideoDurationSeconds: 3600},
		courseRepo, segRepo, questionRepo, progress, nil)
	sched := services.NewScheduler(context.Background(), services.SchedulerDeps{
		DB:           db,
		Log:          log,
		CourseRepo:   courseRepo,
		SegmentRepo:  segRepo,
		QuestionRepo: questionRepo,
		Reaper:       services.NewReaper(log, segRepo, notifier, time.Minute, 0),
		Gate:         gate,
		Progress:     progress,
		Notifier:     notifier,
		Pipeline:     stubPipeline{},
	}, services.SchedulerConfig{MaxAttempts: 3})
	t.Cleanup(sched.Wait)

	engine := NewRouter(RouterConfig{
		Log:             log,
		CourseHandler:   httpH.NewCourseHandler(log, courses, sched, nil),
		ProgressHandler: httpH.NewProgressHandler(courses, progress),
		RealtimeHandler: httpH.NewRealtimeHandler(log, hub, courses, 50*time.Millisecond),
		HealthHandler:   httpH.NewHealthHandler(db),
	})
	return &testAPI{engine: engine, scheduler: sched}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCourseLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/courses", map[string]any{"title": "Intro", "video_id": "yt-1", "duration_seconds": 1200})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: want=201 got=%d body=%s", rec.Code, rec.Body.String())
	}
	created := decode[services.CourseView](t, rec)
	id := created.Course.ID
	if created.Summary.Total != 4 {
		t.Fatalf("segments: want=4 got=%d", created.Summary.Total)
	}

	// creation kicks the first pass; chained passes finish the course
	api.scheduler.Wait()

	rec = api.do(t, http.MethodPost, "/api/course/"+id.String()+"/check-and-publish", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("check-and-publish: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	pass := decode[services.PassResult](t, rec)
	if pass.Status != services.PassAllCompleted || !pass.Published {
		t.Fatalf("pass: want all_completed+published got=%+v", pass)
	}

	rec = api.do(t, http.MethodGet, "/api/course/"+id.String()+"/segment-questions?completed_only=true&segment_index=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("segment-questions: want=200 got=%d", rec.Code)
	}
	sq := decode[struct {
		Segments []services.SegmentQuestions `json:"segments"`
	}](t, rec)
	if len(sq.Segments) != 1 || sq.Segments[0].Segment.SegmentIndex != 2 || len(sq.Segments[0].Questions) != 1 {
		t.Fatalf("segment-questions: got=%+v", sq)
	}

	rec = api.do(t, http.MethodGet, "/api/course/"+id.String()+"/progress", nil)
	prog := decode[struct {
		Progress types.ProgressRecord `json:"progress"`
	}](t, rec)
	if prog.Progress.Stage != types.StageCompleted || prog.Progress.OverallProgress != 1 {
		t.Fatalf("progress: got=%+v", prog.Progress)
	}

	rec = api.do(t, http.MethodGet, "/api/courses/"+id.String(), nil)
	view := decode[services.CourseView](t, rec)
	if !view.Course.Published || view.Summary.Completed != 4 {
		t.Fatalf("course view: published=%v summary=%+v", view.Course.Published, view.Summary)
	}
}

func TestCreateCourseErrors(t *testing.T) {
	api := newTestAPI(t)
	cases := []struct {
		name string
		body any
		code int
		err  string
	}{
		{"too long", map[string]any{"video_id": "v", "duration_seconds": 7200}, http.StatusUnprocessableEntity, "video_too_long"},
		{"zero duration", map[string]any{"video_id": "v", "duration_seconds": 0}, http.StatusBadRequest, "invalid_input"},
		{"missing video", map[string]any{"duration_seconds": 60}, http.StatusBadRequest, "invalid_input"},
	}
	for _, tc := range cases {
		rec := api.do(t, http.MethodPost, "/api/courses", tc.body)
		if rec.Code != tc.code || !strings.Contains(rec.Body.String(), tc.err) {
			t.Fatalf("%s: want=(%d,%s) got=(%d,%s)", tc.name, tc.code, tc.err, rec.Code, rec.Body.String())
		}
	}
}

func TestNotFoundAndBadIDs(t *testing.T) {
	api := newTestAPI(t)
	cases := []struct {
		method, path string
		code         int
	}{
		{http.MethodGet, "/api/courses/not-a-uuid", http.StatusBadRequest},
		{http.MethodGet, "/api/courses/00000000-0000-0000-0000-000000000001", http.StatusNotFound},
		{http.MethodPost, "/api/course/00000000-0000-0000-0000-000000000001/check-and-publish", http.StatusNotFound},
		{http.MethodGet, "/api/course/00000000-0000-0000-0000-000000000001/segment-questions?completed_only=maybe", http.StatusBadRequest},
		{http.MethodGet, "/api/course/00000000-0000-0000-0000-000000000001/progress", http.StatusNotFound},
		{http.MethodPost, "/api/course/00000000-0000-0000-0000-000000000001/segments/x/reset", http.StatusBadRequest},
		{http.MethodGet, "/api/course/00000000-0000-0000-0000-000000000001/events", http.StatusNotFound},
	}
	for _, tc := range cases {
		if rec := api.do(t, tc.method, tc.path, nil); rec.Code != tc.code {
			t.Fatalf("%s %s: want=%d got=%d body=%s", tc.method, tc.path, tc.code, rec.Code, rec.Body.String())
		}
	}
}

func TestResetRequiresPermanentFailure(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/courses", map[string]any{"video_id": "v", "duration_seconds": 300})
	created := decode[services.CourseView](t, rec)
	api.scheduler.Wait()

	rec = api.do(t, http.MethodPost, "/api/course/"+created.Course.ID.String()+"/segments/0/reset", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("reset completed segment: want=409 got=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHealthcheck(t *testing.T) {
	api := newTestAPI(t)
	if rec := api.do(t, http.MethodGet, "/healthcheck", nil); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: got=(%d,%q)", rec.Code, rec.Body.String())
	}
}

func TestReportProgressRejectsUnknownStage(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/courses", map[string]any{"video_id": "v", "duration_seconds": 300})
	created := decode[services.CourseView](t, rec)
	api.scheduler.Wait()

	path := "/api/course/" + created.Course.ID.String() + "/progress"
	rec = api.do(t, http.MethodPost, path, map[string]any{"stage": "teleporting", "stage_progress": 0.5})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown stage: want=400 got=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = api.do(t, http.MethodPost, path, map[string]any{"stage_progress": 0.5})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing stage: want=400 got=%d", rec.Code)
	}
}
