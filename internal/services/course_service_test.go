package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/vidcourse-backend/internal/data/repos/testutil"
	types "github.com/yungbote/vidcourse-backend/internal/domain"
)

type recordingDispatcher struct{ ids []uuid.UUID }

func (d *recordingDispatcher) Dispatch(ctx context.Context, courseID uuid.UUID) error {
	d.ids = append(d.ids, courseID)
	return errors.New("temporal unavailable")
}

func TestCourseServiceCreatePlansEverything(t *testing.T) {
	h := newHarness(t)
	disp := &recordingDispatcher{}
	svc := NewCourseService(h.db, testutil.Logger(t), CourseServiceConfig{}, h.courses, h.segments, h.questions, h.progress, disp)

	view, err := svc.Create(context.Background(), CreateCourseInput{Title: " Intro ", VideoID: "yt-123", DurationSeconds: 1000})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.Course.Title != "Intro" || view.Course.ProcessingSessionID == nil {
		t.Fatalf("course: got=%+v", view.Course)
	}
	if view.Summary.Total != 4 || view.Summary.Pending != 4 {
		t.Fatalf("summary: want 4 pending got=%+v", view.Summary)
	}
	for _, s := range view.Segments {
		if s.PlannedQuestionsCount != DefaultPlannedQuestionsPerSegment {
			t.Fatalf("planned questions: want=%d got=%d", DefaultPlannedQuestionsPerSegment, s.PlannedQuestionsCount)
		}
	}
	if view.Progress == nil || view.Progress.Stage != types.StagePlanning || !approx(view.Progress.OverallProgress, 0.30) {
		t.Fatalf("progress after planning: got=%+v", view.Progress)
	}
	// a failed dispatch does not fail creation
	if len(disp.ids) != 1 || disp.ids[0] != view.Course.ID {
		t.Fatalf("dispatch: got=%v", disp.ids)
	}

	got, err := svc.Get(context.Background(), view.Course.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Segments) != 4 || got.Segments[3].EndTime != 1000 {
		t.Fatalf("segments: got=%d last_end=%v", len(got.Segments), got.Segments[3].EndTime)
	}
}

func TestCourseServiceCreateTooLongPersistsNothing(t *testing.T) {
	h := newHarness(t)
	svc := NewCourseService(h.db, testutil.Logger(t), CourseServiceConfig{MaxVideoDurationSeconds: 600}, h.courses, h.segments, h.questions, h.progress, nil)

	_, err := svc.Create(context.Background(), CreateCourseInput{VideoID: "v", DurationSeconds: 601})
	var tooLong *VideoTooLongError
	if !errors.As(err, &tooLong) {
		t.Fatalf("want VideoTooLongError got=%v", err)
	}
	var n int64
	if err := h.db.Model(&types.Course{}).Count(&n).Error; err != nil || n != 0 {
		t.Fatalf("courses persisted: want=0 got=%d err=%v", n, err)
	}
	if err := h.db.Model(&types.Segment{}).Count(&n).Error; err != nil || n != 0 {
		t.Fatalf("segments persisted: want=0 got=%d err=%v", n, err)
	}

	if _, err := svc.Create(context.Background(), CreateCourseInput{DurationSeconds: 60}); !errors.Is(err, ErrInvalidCourseInput) {
		t.Fatalf("missing video id: want ErrInvalidCourseInput got=%v", err)
	}
}

func TestCourseServiceSegmentQuestionsFilters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, ctx, h.db, 900)
	testutil.SeedSegments(t, ctx, h.db, course.ID, types.SegmentCompleted, types.SegmentCompleted, types.SegmentProcessing)
	testutil.SeedQuestion(t, ctx, h.db, course.ID, 0, 0)
	testutil.SeedQuestion(t, ctx, h.db, course.ID, 1, 0)
	testutil.SeedQuestion(t, ctx, h.db, course.ID, 1, 1)

	all, err := h.svc.SegmentQuestions(ctx, course.ID, false, nil)
	if err != nil {
		t.Fatalf("SegmentQuestions: %v", err)
	}
	if len(all) != 3 || len(all[1].Questions) != 2 || len(all[2].Questions) != 0 {
		t.Fatalf("all: got=%d segments", len(all))
	}

	done, err := h.svc.SegmentQuestions(ctx, course.ID, true, nil)
	if err != nil || len(done) != 2 {
		t.Fatalf("completed_only: want 2 segments got=%d err=%v", len(done), err)
	}

	one := 1
	only, err := h.svc.SegmentQuestions(ctx, course.ID, false, &one)
	if err != nil || len(only) != 1 || only[0].Segment.SegmentIndex != 1 || len(only[0].Questions) != 2 {
		t.Fatalf("segment_index=1: got=%+v err=%v", only, err)
	}

	missing := 7
	if _, err := h.svc.SegmentQuestions(ctx, course.ID, false, &missing); !errors.Is(err, ErrSegmentNotFound) {
		t.Fatalf("missing segment: want ErrSegmentNotFound got=%v", err)
	}
	if _, err := h.svc.SegmentQuestions(ctx, uuid.New(), false, nil); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("missing course: want ErrCourseNotFound got=%v", err)
	}

	snap, err := h.svc.Snapshot(ctx, course.ID)
	if err != nil || snap.Published || len(snap.Segments) != 3 {
		t.Fatalf("Snapshot: got=%+v err=%v", snap, err)
	}
}
