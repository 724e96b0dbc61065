package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vidcourse-backend/internal/http/response"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
	"github.com/yungbote/vidcourse-backend/internal/realtime"
	"github.com/yungbote/vidcourse-backend/internal/services"
)

type RealtimeHandler struct {
	log      *logger.Logger
	hub      *realtime.Hub
	courses  services.CourseService
	interval time.Duration
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub, courses services.CourseService, interval time.Duration) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub, courses: courses, interval: interval}
}

// GET /api/course/:id/events
func (h *RealtimeHandler) Events(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}
	// fail fast on unknown courses instead of opening an empty stream
	if _, err := h.courses.Snapshot(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, toAPIError(err))
		return
	}
	events := realtime.Watch(c.Request.Context(), h.hub, h.courses, id, h.interval)
	h.log.Debug("SSE stream opened", "course_id", id)
	realtime.ServeSSE(c.Writer, c.Request, h.log, events)
	h.log.Debug("SSE stream closed", "course_id", id)
}
