package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/http/response"
	"github.com/yungbote/vidcourse-backend/internal/services"
)

type ProgressHandler struct {
	courses  services.CourseService
	progress services.ProgressService
}

func NewProgressHandler(courses services.CourseService, progress services.ProgressService) *ProgressHandler {
	return &ProgressHandler{courses: courses, progress: progress}
}

type reportProgressRequest struct {
	SessionID     string         `json:"session_id"`
	Stage         string         `json:"stage" binding:"required"`
	StageProgress float64        `json:"stage_progress"`
	CurrentStep   string         `json:"current_step"`
	Metadata      map[string]any `json:"metadata"`
}

// GET /api/course/:id/progress[?session_id=]
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}
	var (
		rec *types.ProgressRecord
		err error
	)
	if raw := strings.TrimSpace(c.Query("session_id")); raw != "" {
		sid, perr := uuid.Parse(raw)
		if perr != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_session_id", perr)
			return
		}
		rec, err = h.progress.Get(c.Request.Context(), id, sid)
	} else {
		rec, err = h.progress.Latest(c.Request.Context(), id)
	}
	if err != nil {
		response.RespondAPIError(c, toAPIError(err))
		return
	}
	if rec == nil {
		response.RespondError(c, http.StatusNotFound, "progress_not_found", nil)
		return
	}
	response.RespondOK(c, gin.H{"progress": rec})
}

// POST /api/course/:id/progress
func (h *ProgressHandler) ReportProgress(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}
	var req reportProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	var sid uuid.UUID
	if raw := strings.TrimSpace(req.SessionID); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
			return
		}
		sid = parsed
	} else {
		view, err := h.courses.Get(c.Request.Context(), id)
		if err != nil {
			response.RespondAPIError(c, toAPIError(err))
			return
		}
		if view.Course.ProcessingSessionID == nil {
			response.RespondError(c, http.StatusConflict, "no_processing_session", nil)
			return
		}
		sid = *view.Course.ProcessingSessionID
	}

	rec, err := h.progress.Report(c.Request.Context(), services.ProgressUpdate{
		CourseID:      id,
		SessionID:     sid,
		Stage:         types.ProgressStage(strings.TrimSpace(req.Stage)),
		StageProgress: req.StageProgress,
		Step:          req.CurrentStep,
		Metadata:      req.Metadata,
	})
	if err != nil {
		response.RespondAPIError(c, toAPIError(err))
		return
	}
	response.RespondOK(c, gin.H{"progress": rec})
}
