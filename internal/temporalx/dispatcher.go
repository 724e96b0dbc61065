package temporalx

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
	"github.com/yungbote/vidcourse-backend/internal/temporalx/coursesegments"
)

// CourseDispatcher starts one course_segments workflow per course. A course
// that already has a workflow is left alone.
type CourseDispatcher struct {
	log       *logger.Logger
	tc        temporalsdkclient.Client
	taskQueue string
}

func NewCourseDispatcher(log *logger.Logger, tc temporalsdkclient.Client, taskQueue string) *CourseDispatcher {
	if taskQueue == "" {
		taskQueue = LoadConfig().TaskQueue
	}
	return &CourseDispatcher{log: log.With("component", "CourseDispatcher"), tc: tc, taskQueue: taskQueue}
}

func (d *CourseDispatcher) Dispatch(ctx context.Context, courseID uuid.UUID) error {
	if d == nil || d.tc == nil {
		return fmt.Errorf("temporal not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                    coursesegments.WorkflowID(courseID.String()),
		TaskQueue:             d.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	run, err := d.tc.ExecuteWorkflow(ctx, opts, coursesegments.WorkflowName, courseID.String())
	var already *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &already) {
		return nil
	}
	if err != nil {
		return err
	}
	d.log.Info("Course workflow started", "course_id", courseID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}

// Resume signals a course's workflow, e.g. after a manual segment reset.
func (d *CourseDispatcher) Resume(ctx context.Context, courseID uuid.UUID) error {
	if d == nil || d.tc == nil {
		return nil
	}
	err := d.tc.SignalWorkflow(ctx, coursesegments.WorkflowID(courseID.String()), "", coursesegments.SignalResume, nil)
	var nf *serviceerror.NotFound
	if errors.As(err, &nf) {
		// finished or never started; restart it
		return d.Dispatch(ctx, courseID)
	}
	return err
}
