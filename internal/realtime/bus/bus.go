package bus

import (
	"context"

	"github.com/yungbote/vidcourse-backend/internal/realtime"
)

// Bus relays course events between instances.
type Bus interface {
	Publish(ctx context.Context, ev realtime.Event) error
	StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error
	Close() error
}
