package worker

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/vidcourse-backend/internal/data/repos"
	"github.com/yungbote/vidcourse-backend/internal/data/repos/testutil"
	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/services"
)

type fakeScheduler struct {
	mu    sync.Mutex
	ran   []uuid.UUID
	panic uuid.UUID
}

func (f *fakeScheduler) RunPass(ctx context.Context, courseID uuid.UUID) (*services.PassResult, error) {
	if courseID == f.panic {
		panic("boom")
	}
	f.mu.Lock()
	f.ran = append(f.ran, courseID)
	f.mu.Unlock()
	return &services.PassResult{CourseID: courseID, Status: services.PassProcessing}, nil
}

func (f *fakeScheduler) RunPassSync(ctx context.Context, courseID uuid.UUID) (*services.PassResult, error) {
	return f.RunPass(ctx, courseID)
}

func (f *fakeScheduler) ResetSegment(ctx context.Context, courseID uuid.UUID, index int) (*types.Segment, error) {
	return nil, nil
}

func (f *fakeScheduler) Wait() {}

func TestSweepRunsOpenCoursesOnly(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	open := testutil.SeedCourse(t, ctx, db, 600)
	testutil.SeedSegments(t, ctx, db, open.ID, types.SegmentCompleted, types.SegmentPending)
	failed := testutil.SeedCourse(t, ctx, db, 300)
	testutil.SeedSegments(t, ctx, db, failed.ID, types.SegmentFailed)
	done := testutil.SeedCourse(t, ctx, db, 300)
	testutil.SeedSegments(t, ctx, db, done.ID, types.SegmentCompleted)
	crashing := testutil.SeedCourse(t, ctx, db, 300)
	testutil.SeedSegments(t, ctx, db, crashing.ID, types.SegmentPending)

	sched := &fakeScheduler{panic: crashing.ID}
	w := NewWorker(log, Config{Concurrency: 2}, repos.NewSegmentRepo(db, log), sched, nil)
	n, err := w.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 2 {
		t.Fatalf("passes: want=2 got=%d", n)
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range sched.ran {
		seen[id] = true
	}
	if !seen[open.ID] || !seen[failed.ID] || seen[done.ID] {
		t.Fatalf("swept courses: got=%v", sched.ran)
	}
}
