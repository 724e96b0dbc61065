package coursesegments

const (
	WorkflowName = "course_segments"
	ActivityPass = "course_segments_pass"
	// SignalResume wakes a workflow parked on a permanently failed segment,
	// typically right after a manual reset.
	SignalResume = "course_segments_resume"
)

func WorkflowID(courseID string) string { return WorkflowName + ":" + courseID }

type PassOutcome struct {
	CourseID       string `json:"course_id"`
	Status         string `json:"status"`
	StartedSegment *int   `json:"started_segment,omitempty"`
	BlockedSegment *int   `json:"blocked_segment,omitempty"`
	Published      bool   `json:"published"`
	GateOutcome    string `json:"gate_outcome,omitempty"`
}
