package services

import (
	"context"
	"testing"

	"github.com/yungbote/vidcourse-backend/internal/data/repos/testutil"
	types "github.com/yungbote/vidcourse-backend/internal/domain"
)

func completeAll(t *testing.T, h *harness, course *types.Course) {
	t.Helper()
	if err := h.db.Model(&types.Segment{}).
		Where("course_id = ?", course.ID).
		Updates(map[string]interface{}{"status": types.SegmentCompleted, "attempts": 1}).Error; err != nil {
		t.Fatalf("complete segments: %v", err)
	}
}

func TestPublishGateNotReady(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, ctx, h.db, 600)
	testutil.SeedSegments(t, ctx, h.db, course.ID, types.SegmentCompleted, types.SegmentPending)

	res, err := h.gate.Check(ctx, course.ID)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Outcome != GateNotReady || res.Published {
		t.Fatalf("outcome: want=%s got=%+v", GateNotReady, res)
	}
	if len(res.PendingSegments) != 1 || res.PendingSegments[0] != 1 {
		t.Fatalf("pending: want=[1] got=%v", res.PendingSegments)
	}
}

func TestPublishGateZeroQuestionsStaysUnpublished(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	course := h.createCourse(t, 1200)
	completeAll(t, h, course)

	res, err := h.gate.Check(ctx, course.ID)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Outcome != GateNoQuestions || res.Published {
		t.Fatalf("outcome: want=%s got=%+v", GateNoQuestions, res)
	}
	if h.course(t, course.ID).Published {
		t.Fatalf("course published with zero questions")
	}
	rec, err := h.progress.Latest(ctx, course.ID)
	if err != nil || rec == nil {
		t.Fatalf("Latest: rec=%v err=%v", rec, err)
	}
	if rec.Stage != types.StageFailed {
		t.Fatalf("progress stage: want=failed got=%s", rec.Stage)
	}
}

func TestPublishGateIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	course := h.createCourse(t, 600)
	completeAll(t, h, course)
	testutil.SeedQuestion(t, ctx, h.db, course.ID, 0, 0)
	testutil.SeedQuestion(t, ctx, h.db, course.ID, 1, 0)

	res, err := h.gate.Check(ctx, course.ID)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Outcome != GatePublished || res.QuestionsCount != 2 {
		t.Fatalf("first check: want=(published,2) got=%+v", res)
	}
	if !h.course(t, course.ID).Published {
		t.Fatalf("course not published")
	}

	res, err = h.gate.Check(ctx, course.ID)
	if err != nil {
		t.Fatalf("second Check: %v", err)
	}
	if res.Outcome != GateAlreadyPublished || res.QuestionsCount != 0 {
		t.Fatalf("second check: want already_published without counting got=%+v", res)
	}
	if n := h.notifier.publishedCount(); n != 1 {
		t.Fatalf("published events: want=1 got=%d", n)
	}
	rec, _ := h.progress.Latest(ctx, course.ID)
	if rec == nil || rec.Stage != types.StageCompleted || rec.OverallProgress != 1 {
		t.Fatalf("progress: want=(completed,1) got=%+v", rec)
	}
}
