package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/vidcourse-backend/internal/observability"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

const defaultSubscriberBuffer = 32

// Hub fans events out to in-process subscribers keyed by course.
type Hub struct {
	mu     sync.RWMutex
	log    *logger.Logger
	buffer int
	subs   map[uuid.UUID]map[*subscriber]struct{}
}

type subscriber struct {
	ch chan Event
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:    log.With("component", "EventHub"),
		buffer: defaultSubscriberBuffer,
		subs:   make(map[uuid.UUID]map[*subscriber]struct{}),
	}
}

// Subscribe registers a subscriber for courseID. The returned channel is closed
// once ctx is done.
func (h *Hub) Subscribe(ctx context.Context, courseID uuid.UUID) <-chan Event {
	s := &subscriber{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	set, ok := h.subs[courseID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[courseID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()

	h.log.Debug("Event subscriber added", "course_id", courseID)

	go func() {
		<-ctx.Done()
		h.unsubscribe(courseID, s)
	}()
	return s.ch
}

func (h *Hub) unsubscribe(courseID uuid.UUID, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[courseID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, courseID)
		}
	}
	close(s.ch)
	h.log.Debug("Event subscriber removed", "course_id", courseID)
}

// Broadcast delivers ev to local subscribers without blocking. A full buffer
// drops the event for that subscriber only.
func (h *Hub) Broadcast(ev Event) {
	if ev.CourseID == uuid.Nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[ev.CourseID] {
		select {
		case s.ch <- ev:
		default:
			observability.Current().IncEventDropped()
			h.log.Warn("Dropping event; subscriber buffer full", "course_id", ev.CourseID, "kind", ev.Kind)
		}
	}
}

func (h *Hub) Subscribers(courseID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[courseID])
}
