package courses

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/vidcourse-backend/internal/data/repos/testutil"
	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/platform/dbctx"
)

func questions(n int, prompt string) []*types.Question {
	out := make([]*types.Question, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &types.Question{Index: i, Type: "multiple_choice", Prompt: prompt})
	}
	return out
}

func TestQuestionRepoReplaceForSegmentDoesNotDuplicate(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewQuestionRepo(db, testutil.Logger(t))
	c := testutil.SeedCourse(t, ctx, tx, 600)

	if err := repo.ReplaceForSegment(dbc, c.ID, 0, questions(3, "first")); err != nil {
		t.Fatalf("ReplaceForSegment: %v", err)
	}
	if err := repo.ReplaceForSegment(dbc, c.ID, 0, questions(2, "rerun")); err != nil {
		t.Fatalf("ReplaceForSegment rerun: %v", err)
	}
	if err := repo.ReplaceForSegment(dbc, c.ID, 1, questions(4, "second")); err != nil {
		t.Fatalf("ReplaceForSegment seg1: %v", err)
	}

	n, err := repo.CountByCourse(dbc, c.ID)
	if err != nil || n != 6 {
		t.Fatalf("CountByCourse: want=6 got=%d err=%v", n, err)
	}
	seg0, err := repo.ListByCourse(dbc, c.ID, []int{0})
	if err != nil || len(seg0) != 2 {
		t.Fatalf("ListByCourse seg0: want=2 got=%d err=%v", len(seg0), err)
	}
	for _, q := range seg0 {
		if q.Prompt != "rerun" || q.CourseID != c.ID || q.SegmentIndex != 0 {
			t.Fatalf("ListByCourse seg0: stale row %+v", q)
		}
	}
}

func TestQuestionRepoListByCourseFilters(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewQuestionRepo(db, testutil.Logger(t))
	c := testutil.SeedCourse(t, ctx, tx, 900)
	for seg := 2; seg >= 0; seg-- {
		testutil.SeedQuestion(t, ctx, tx, c.ID, seg, 1)
		testutil.SeedQuestion(t, ctx, tx, c.ID, seg, 0)
	}

	all, err := repo.ListByCourse(dbc, c.ID, nil)
	if err != nil || len(all) != 6 {
		t.Fatalf("ListByCourse nil: want=6 got=%d err=%v", len(all), err)
	}
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.SegmentIndex > cur.SegmentIndex || (prev.SegmentIndex == cur.SegmentIndex && prev.Index > cur.Index) {
			t.Fatalf("ListByCourse: not ordered at %d: %d/%d then %d/%d", i, prev.SegmentIndex, prev.Index, cur.SegmentIndex, cur.Index)
		}
	}
	none, err := repo.ListByCourse(dbc, c.ID, []int{})
	if err != nil || len(none) != 0 {
		t.Fatalf("ListByCourse empty: want=0 got=%d err=%v", len(none), err)
	}
	other, err := repo.ListByCourse(dbc, uuid.New(), nil)
	if err != nil || len(other) != 0 {
		t.Fatalf("ListByCourse other course: want=0 got=%d err=%v", len(other), err)
	}
}

func TestProgressRepoGuardsRegressionAndTerminal(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewProgressRepo(db, testutil.Logger(t))
	c := testutil.SeedCourse(t, ctx, tx, 300)
	session := uuid.New()

	rec, err := repo.Ensure(dbc, &types.ProgressRecord{CourseID: c.ID, SessionID: session, Stage: types.StageInitialization})
	if err != nil || rec == nil {
		t.Fatalf("Ensure: rec=%v err=%v", rec, err)
	}
	again, err := repo.Ensure(dbc, &types.ProgressRecord{CourseID: c.ID, SessionID: session, Stage: types.StagePlanning})
	if err != nil || again.ID != rec.ID {
		t.Fatalf("Ensure twice: want same record got=%v err=%v", again, err)
	}

	ok, err := repo.Advance(dbc, rec.ID, ProgressAdvance{Stage: types.StageGeneration, StageProgress: 0.5, Overall: 0.4})
	if err != nil || !ok {
		t.Fatalf("Advance: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Advance(dbc, rec.ID, ProgressAdvance{Stage: types.StagePlanning, Overall: 0.1})
	if err != nil || ok {
		t.Fatalf("Advance backwards: want rejected got ok=%v err=%v", ok, err)
	}
	if ok, err = repo.MarkFailed(dbc, rec.ID, "boom"); err != nil || !ok {
		t.Fatalf("MarkFailed: ok=%v err=%v", ok, err)
	}
	if ok, _ = repo.Advance(dbc, rec.ID, ProgressAdvance{Stage: types.StageStorage, Overall: 0.9}); ok {
		t.Fatalf("Advance after failed: want rejected")
	}

	got, err := repo.Latest(dbc, c.ID)
	if err != nil || got.Stage != types.StageFailed || got.OverallProgress != 0.4 {
		t.Fatalf("Latest: got=%+v err=%v", got, err)
	}
}
