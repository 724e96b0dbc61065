package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

const sseHeartbeat = 15 * time.Second

// ServeSSE streams events as text/event-stream until the request is done or
// events is closed. The event name is the event kind.
func ServeSSE(w http.ResponseWriter, r *http.Request, log *logger.Logger, events <-chan Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			raw, err := json.Marshal(ev)
			if err != nil {
				log.Warn("Failed to marshal event", "kind", ev.Kind, "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, raw)
			flusher.Flush()
		}
	}
}
