package courses

import "strings"

type SegmentStatus string

const (
	SegmentPending           SegmentStatus = "pending"
	SegmentProcessing        SegmentStatus = "processing"
	SegmentCompleted         SegmentStatus = "completed"
	SegmentFailed            SegmentStatus = "failed"
	SegmentPermanentlyFailed SegmentStatus = "permanently_failed"
)

// segmentEdges lists every legal status change. completed has no outgoing edge.
// permanently_failed only leaves through an operator reset back to pending.
var segmentEdges = map[SegmentStatus][]SegmentStatus{
	SegmentPending:           {SegmentProcessing},
	SegmentProcessing:        {SegmentCompleted, SegmentFailed, SegmentPermanentlyFailed},
	SegmentFailed:            {SegmentProcessing},
	SegmentPermanentlyFailed: {SegmentPending},
}

func ParseSegmentStatus(s string) (SegmentStatus, bool) {
	st := SegmentStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

func (s SegmentStatus) Valid() bool {
	switch s {
	case SegmentPending, SegmentProcessing, SegmentCompleted, SegmentFailed, SegmentPermanentlyFailed:
		return true
	}
	return false
}

// Eligible reports whether the scheduler may start a segment in this status.
func (s SegmentStatus) Eligible() bool {
	return s == SegmentPending || s == SegmentFailed
}

func (s SegmentStatus) Terminal() bool { return s == SegmentCompleted }

func CanTransition(from, to SegmentStatus) bool {
	for _, next := range segmentEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}
