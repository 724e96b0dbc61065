package coursesegments

import (
	"context"
	"testing"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

func TestWorkflowTicksUntilAllCompleted(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	calls := 0
	env.RegisterActivityWithOptions(func(ctx context.Context, courseID string) (PassOutcome, error) {
		calls++
		idx := calls - 1
		if calls <= 3 {
			return PassOutcome{CourseID: courseID, Status: "processing", StartedSegment: &idx}, nil
		}
		return PassOutcome{CourseID: courseID, Status: "all_completed", Published: true}, nil
	}, activity.RegisterOptions{Name: ActivityPass})

	env.ExecuteWorkflow(Workflow, "c-1")
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if calls != 4 {
		t.Fatalf("activity calls: want=4 got=%d", calls)
	}
}

func TestWorkflowRejectsEmptyCourse(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.ExecuteWorkflow(Workflow, " ")
	if err := env.GetWorkflowError(); err == nil {
		t.Fatalf("want error for empty course id")
	}
}

func TestWorkflowIDIsStable(t *testing.T) {
	if got := WorkflowID("abc"); got != "course_segments:abc" {
		t.Fatalf("WorkflowID: want=%q got=%q", "course_segments:abc", got)
	}
}
