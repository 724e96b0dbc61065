package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/vidcourse-backend/internal/domain"
)

// SnapshotSource reads the durable state Watch reconciles against.
type SnapshotSource interface {
	Snapshot(ctx context.Context, courseID uuid.UUID) (*Snapshot, error)
}

type Snapshot struct {
	Published bool             `json:"published"`
	Segments  []*types.Segment `json:"segments"`
}

// Watch merges live events for courseID with a periodic reconciliation poll.
// It emits a snapshot immediately, then one per interval, and closes the
// returned channel when ctx is done or the course is published.
func Watch(ctx context.Context, hub *Hub, src SnapshotSource, courseID uuid.UUID, interval time.Duration) <-chan Event {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	live := hub.Subscribe(ctx, courseID)
	out := make(chan Event, defaultSubscriberBuffer)

	go func() {
		defer close(out)
		defer cancel()

		send := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		poll := func() (published bool, ok bool) {
			snap, err := src.Snapshot(ctx, courseID)
			if err != nil || snap == nil {
				// a failed poll is retried on the next tick
				return false, ctx.Err() == nil
			}
			if !send(NewEvent(courseID, EventSegmentsSnapshot, snap)) {
				return false, false
			}
			if snap.Published {
				send(NewEvent(courseID, EventCoursePublished, map[string]any{"course_id": courseID}))
				return true, true
			}
			return false, true
		}

		if published, ok := poll(); published || !ok {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-live:
				if !ok {
					return
				}
				if !send(ev) || ev.Kind == EventCoursePublished {
					return
				}
			case <-ticker.C:
				if published, ok := poll(); published || !ok {
					return
				}
			}
		}
	}()
	return out
}
