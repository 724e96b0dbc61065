package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/vidcourse-backend/internal/clients/pipeline"
	"github.com/yungbote/vidcourse-backend/internal/data/repos"
	"github.com/yungbote/vidcourse-backend/internal/data/repos/testutil"
	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/platform/dbctx"
)

type recordingNotifier struct {
	mu        sync.Mutex
	segments  []types.Segment
	questions []types.Question
	progress  []types.ProgressRecord
	published []uuid.UUID
}

func (n *recordingNotifier) SegmentUpdated(ctx context.Context, seg *types.Segment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.segments = append(n.segments, *seg)
}

func (n *recordingNotifier) QuestionInserted(ctx context.Context, q *types.Question) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.questions = append(n.questions, *q)
}

func (n *recordingNotifier) ProgressUpdated(ctx context.Context, rec *types.ProgressRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.progress = append(n.progress, *rec)
}

func (n *recordingNotifier) CoursePublished(ctx context.Context, course *types.Course, questions int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, course.ID)
}

func (n *recordingNotifier) publishedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.published)
}

// statusTrail lists, in emit order, the statuses announced for one segment.
func (n *recordingNotifier) statusTrail(index int) []types.SegmentStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := []types.SegmentStatus{}
	for _, s := range n.segments {
		if s.SegmentIndex == index {
			out = append(out, s.Status)
		}
	}
	return out
}

type fakePipeline struct {
	mu    sync.Mutex
	calls []pipeline.Request
	fn    func(req pipeline.Request, call int) (*pipeline.Result, error)
}

func (f *fakePipeline) Invoke(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	n := len(f.calls)
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return okResult(1, "c"+uuid.NewString()[:4]), nil
	}
	return fn(req, n)
}

func (f *fakePipeline) requests() []pipeline.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pipeline.Request(nil), f.calls...)
}

func okResult(questions int, concepts ...string) *pipeline.Result {
	qs := make([]pipeline.Question, 0, questions)
	for i := 0; i < questions; i++ {
		qs = append(qs, pipeline.Question{Type: "multiple_choice", Prompt: "q", Options: []byte(`["a","b"]`), CorrectAnswer: []byte(`"a"`)})
	}
	return &pipeline.Result{QuestionsGenerated: questions, NewConcepts: concepts, Questions: qs}
}

var errPipelineBoom = errors.New("pipeline boom")

type harness struct {
	db        *gorm.DB
	courses   repos.CourseRepo
	segments  repos.SegmentRepo
	questions repos.QuestionRepo
	progress  ProgressService
	notifier  *recordingNotifier
	gate      PublishGate
	svc       CourseService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	h := &harness{
		db:        db,
		courses:   repos.NewCourseRepo(db, log),
		segments:  repos.NewSegmentRepo(db, log),
		questions: repos.NewQuestionRepo(db, log),
		notifier:  &recordingNotifier{},
	}
	h.progress = NewProgressService(log, repos.NewProgressRepo(db, log), h.notifier, DefaultStageWeights())
	h.gate = NewPublishGate(log, h.courses, h.segments, h.questions, h.progress, h.notifier)
	h.svc = NewCourseService(db, log, CourseServiceConfig{MaxVideoDurationSeconds: DefaultMaxVideoDurationSeconds},
		h.courses, h.segments, h.questions, h.progress, nil)
	return h
}

func (h *harness) scheduler(t *testing.T, base context.Context, client pipeline.Client, maxAttempts int) Scheduler {
	t.Helper()
	log := testutil.Logger(t)
	deps := SchedulerDeps{
		DB:           h.db,
		Log:          log,
		CourseRepo:   h.courses,
		SegmentRepo:  h.segments,
		QuestionRepo: h.questions,
		Reaper:       NewReaper(log, h.segments, h.notifier, time.Minute, maxAttempts),
		Gate:         h.gate,
		Progress:     h.progress,
		Notifier:     h.notifier,
	}
	if client != nil {
		deps.Pipeline = client
	}
	s := NewScheduler(base, deps, SchedulerConfig{MaxAttempts: maxAttempts})
	t.Cleanup(s.Wait)
	return s
}

func (h *harness) createCourse(t *testing.T, durationSeconds float64) *types.Course {
	t.Helper()
	view, err := h.svc.Create(context.Background(), CreateCourseInput{Title: "t", VideoID: "vid", DurationSeconds: durationSeconds})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return view.Course
}

func (h *harness) segmentsOf(t *testing.T, courseID uuid.UUID) []*types.Segment {
	t.Helper()
	segs, err := h.segments.ListSegments(dbctx.Context{Ctx: context.Background()}, courseID)
	if err != nil {
		t.Fatalf("ListSegments: %v", err)
	}
	return segs
}

func (h *harness) course(t *testing.T, id uuid.UUID) *types.Course {
	t.Helper()
	c, err := h.courses.GetByID(dbctx.Context{Ctx: context.Background()}, id)
	if err != nil || c == nil {
		t.Fatalf("GetByID: course=%v err=%v", c, err)
	}
	return c
}

func statuses(segs []*types.Segment) []types.SegmentStatus {
	out := make([]types.SegmentStatus, 0, len(segs))
	for _, s := range segs {
		out = append(out, s.Status)
	}
	return out
}

func sameStatuses(a, b []types.SegmentStatus) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
