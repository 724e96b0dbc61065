package realtime

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventSegmentUpdated   EventKind = "SEGMENT_UPDATED"
	EventQuestionInserted EventKind = "QUESTION_INSERTED"
	EventProgressUpdated  EventKind = "PROGRESS_UPDATED"
	EventCoursePublished  EventKind = "COURSE_PUBLISHED"
	// EventSegmentsSnapshot is emitted by Watch after each reconciliation poll.
	EventSegmentsSnapshot EventKind = "SEGMENTS_SNAPSHOT"
)

// Event is ephemeral. Delivery is at-most-once per live subscriber.
type Event struct {
	CourseID uuid.UUID `json:"course_id"`
	Kind     EventKind `json:"kind"`
	Payload  any       `json:"payload,omitempty"`
	At       time.Time `json:"at"`
}

func NewEvent(courseID uuid.UUID, kind EventKind, payload any) Event {
	return Event{CourseID: courseID, Kind: kind, Payload: payload, At: time.Now().UTC()}
}
