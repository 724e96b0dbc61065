package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

func TestConceptKey(t *testing.T) {
	cases := map[string]string{
		"  Gradient   Descent ": "gradient descent",
		"ReLU":                  "relu",
		"   ":                   "",
	}
	for in, want := range cases {
		if got := ConceptKey(in); got != want {
			t.Fatalf("ConceptKey(%q): want=%q got=%q", in, want, got)
		}
	}
}

func TestRecordSegmentWithoutClientIsNoop(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	g := NewCourseConceptGraph(nil, log)
	seg := &types.Segment{ID: uuid.New(), CourseID: uuid.New()}
	if err := g.RecordSegment(context.Background(), seg, []string{"a"}); err != nil {
		t.Fatalf("RecordSegment: want=nil got=%v", err)
	}
}
