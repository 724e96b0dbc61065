package realtime

import (
	"context"
	"time"

	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

// Relay carries events to other instances. bus.Bus implements it.
type Relay interface {
	Publish(ctx context.Context, ev Event) error
}

type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Emitter is the write side of the event channel. With a relay configured,
// events go through the relay and come back to the local hub via its
// forwarder; otherwise they are broadcast locally.
type Emitter struct {
	hub   *Hub
	relay Relay
	log   *logger.Logger
}

func NewEmitter(log *logger.Logger, hub *Hub, relay Relay) *Emitter {
	return &Emitter{
		hub:   hub,
		relay: relay,
		log:   log.With("component", "EventEmitter"),
	}
}

func (e *Emitter) Publish(ctx context.Context, ev Event) {
	if e == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if e.relay != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		err := e.relay.Publish(pubCtx, ev)
		cancel()
		if err == nil {
			return
		}
		e.log.Warn("Event relay publish failed; broadcasting locally", "course_id", ev.CourseID, "kind", ev.Kind, "error", err)
	}
	if e.hub != nil {
		e.hub.Broadcast(ev)
	}
}
