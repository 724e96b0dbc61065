package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/vidcourse-backend/internal/http/response"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
	"github.com/yungbote/vidcourse-backend/internal/services"
)

// Resumer wakes a durable driver after a manual reset. Optional.
type Resumer interface {
	Resume(ctx context.Context, courseID uuid.UUID) error
}

type CourseHandler struct {
	log       *logger.Logger
	courses   services.CourseService
	scheduler services.Scheduler
	resumer   Resumer
}

func NewCourseHandler(log *logger.Logger, courses services.CourseService, scheduler services.Scheduler, resumer Resumer) *CourseHandler {
	return &CourseHandler{log: log.With("handler", "CourseHandler"), courses: courses, scheduler: scheduler, resumer: resumer}
}

func courseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// POST /api/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var in services.CreateCourseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.courses.Create(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, toAPIError(err))
		return
	}
	// kick the first segment off right away; sweeper and Temporal cover failures
	if h.scheduler != nil {
		if _, err := h.scheduler.RunPass(c.Request.Context(), view.Course.ID); err != nil {
			h.log.Warn("Initial pass failed", "course_id", view.Course.ID, "error", err)
		}
	}
	response.RespondCreated(c, view)
}

// GET /api/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}
	view, err := h.courses.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, toAPIError(err))
		return
	}
	response.RespondOK(c, view)
}

// POST /api/course/:id/check-and-publish
func (h *CourseHandler) CheckAndPublish(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}
	res, err := h.scheduler.RunPass(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, toAPIError(err))
		return
	}
	response.RespondOK(c, res)
}

// GET /api/course/:id/segment-questions?completed_only=bool&segment_index=n
func (h *CourseHandler) SegmentQuestions(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}
	completedOnly := false
	if raw := strings.TrimSpace(c.Query("completed_only")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_completed_only", err)
			return
		}
		completedOnly = v
	}
	var segIndex *int
	if raw := strings.TrimSpace(c.Query("segment_index")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_segment_index", err)
			return
		}
		segIndex = &v
	}
	segs, err := h.courses.SegmentQuestions(c.Request.Context(), id, completedOnly, segIndex)
	if err != nil {
		response.RespondAPIError(c, toAPIError(err))
		return
	}
	response.RespondOK(c, gin.H{"course_id": id, "segments": segs})
}

// POST /api/course/:id/segments/:index/reset
func (h *CourseHandler) ResetSegment(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_segment_index", err)
		return
	}
	seg, err := h.scheduler.ResetSegment(c.Request.Context(), id, index)
	if err != nil {
		response.RespondAPIError(c, toAPIError(err))
		return
	}
	if h.resumer != nil {
		if err := h.resumer.Resume(c.Request.Context(), id); err != nil {
			h.log.Warn("Resume after reset failed", "course_id", id, "segment_index", index, "error", err)
		}
	}
	response.RespondOK(c, gin.H{"segment": seg})
}
