package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvEvent(t *testing.T, ch <-chan Event, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed while waiting for event")
		}
		return ev
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func waitClosed(t *testing.T, ch <-chan Event, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for channel close")
		}
	}
}

func TestHubOrderingAndUnsubscribe(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	courseID := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())

	ch := hub.Subscribe(ctx, courseID)
	hub.Broadcast(NewEvent(courseID, EventSegmentUpdated, map[string]any{"seq": 1}))
	hub.Broadcast(NewEvent(courseID, EventQuestionInserted, map[string]any{"seq": 2}))
	hub.Broadcast(NewEvent(uuid.New(), EventSegmentUpdated, nil))

	if got := recvEvent(t, ch, time.Second); got.Kind != EventSegmentUpdated {
		t.Fatalf("first event: want=%s got=%s", EventSegmentUpdated, got.Kind)
	}
	if got := recvEvent(t, ch, time.Second); got.Kind != EventQuestionInserted {
		t.Fatalf("second event: want=%s got=%s", EventQuestionInserted, got.Kind)
	}

	cancel()
	waitClosed(t, ch, time.Second)
	if n := hub.Subscribers(courseID); n != 0 {
		t.Fatalf("subscribers after cancel: want=0 got=%d", n)
	}
	// no subscriber: dropped, must not block or panic
	hub.Broadcast(NewEvent(courseID, EventSegmentUpdated, nil))
}

func TestHubSlowSubscriberNeverBlocks(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	courseID := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = hub.Subscribe(ctx, courseID) // never read

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultSubscriberBuffer*4; i++ {
			hub.Broadcast(NewEvent(courseID, EventSegmentUpdated, i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Broadcast blocked on a slow subscriber")
	}
}

type fakeRelay struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (f *fakeRelay) Publish(ctx context.Context, ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func TestEmitterRelayAndFallback(t *testing.T) {
	log := mustTestLogger(t)
	hub := NewHub(log)
	courseID := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := hub.Subscribe(ctx, courseID)

	relay := &fakeRelay{}
	em := NewEmitter(log, hub, relay)
	em.Publish(ctx, NewEvent(courseID, EventSegmentUpdated, nil))
	if len(relay.events) != 1 {
		t.Fatalf("relay events: want=1 got=%d", len(relay.events))
	}
	select {
	case ev := <-ch:
		t.Fatalf("relayed event should not be broadcast locally, got=%s", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}

	relay.err = errors.New("redis down")
	em.Publish(ctx, NewEvent(courseID, EventProgressUpdated, nil))
	if got := recvEvent(t, ch, time.Second); got.Kind != EventProgressUpdated {
		t.Fatalf("fallback event: want=%s got=%s", EventProgressUpdated, got.Kind)
	}
}

type fakeSource struct {
	mu        sync.Mutex
	polls     int
	published bool
}

func (f *fakeSource) Snapshot(ctx context.Context, courseID uuid.UUID) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return &Snapshot{
		Published: f.published,
		Segments:  []*types.Segment{{CourseID: courseID, SegmentIndex: 0, Status: types.SegmentProcessing}},
	}, nil
}

func (f *fakeSource) setPublished() {
	f.mu.Lock()
	f.published = true
	f.mu.Unlock()
}

func TestWatchReconcilesAndStopsOnPublish(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	courseID := uuid.New()
	src := &fakeSource{}

	out := Watch(context.Background(), hub, src, courseID, 20*time.Millisecond)
	if got := recvEvent(t, out, time.Second); got.Kind != EventSegmentsSnapshot {
		t.Fatalf("initial event: want=%s got=%s", EventSegmentsSnapshot, got.Kind)
	}

	// live events are forwarded between polls
	deadline := time.Now().Add(time.Second)
	for hub.Subscribers(courseID) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Broadcast(NewEvent(courseID, EventQuestionInserted, nil))
	sawLive := false
	for i := 0; i < 10 && !sawLive; i++ {
		if recvEvent(t, out, time.Second).Kind == EventQuestionInserted {
			sawLive = true
		}
	}
	if !sawLive {
		t.Fatalf("live event was not forwarded")
	}

	src.setPublished()
	sawPublished := false
	for ev := range out {
		if ev.Kind == EventCoursePublished {
			sawPublished = true
		}
	}
	if !sawPublished {
		t.Fatalf("expected %s before close", EventCoursePublished)
	}
	deadline = time.Now().Add(time.Second)
	for hub.Subscribers(courseID) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := hub.Subscribers(courseID); n != 0 {
		t.Fatalf("watch leaked a subscription: %d", n)
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	out := Watch(ctx, hub, &fakeSource{}, uuid.New(), time.Hour)
	_ = recvEvent(t, out, time.Second)
	cancel()
	waitClosed(t, out, time.Second)
}
