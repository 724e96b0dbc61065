package handlers

import (
	"errors"
	"net/http"

	"github.com/yungbote/vidcourse-backend/internal/data/repos"
	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/platform/apierr"
	"github.com/yungbote/vidcourse-backend/internal/services"
)

// toAPIError maps service errors onto HTTP status codes. Unknown errors pass
// through unchanged and surface as 500s.
func toAPIError(err error) error {
	var tooLong *services.VideoTooLongError
	switch {
	case errors.As(err, &tooLong):
		return apierr.New(http.StatusUnprocessableEntity, "video_too_long", err)
	case errors.Is(err, services.ErrInvalidDuration),
		errors.Is(err, services.ErrInvalidSegmentLength),
		errors.Is(err, services.ErrInvalidCourseInput),
		errors.Is(err, services.ErrInvalidStage),
		errors.Is(err, types.ErrInvalidRanges):
		return apierr.New(http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, services.ErrCourseNotFound):
		return apierr.New(http.StatusNotFound, "course_not_found", err)
	case errors.Is(err, services.ErrSegmentNotFound):
		return apierr.New(http.StatusNotFound, "segment_not_found", err)
	case errors.Is(err, services.ErrSegmentNotResettable):
		return apierr.New(http.StatusConflict, "segment_not_resettable", err)
	case errors.Is(err, repos.ErrSegmentsExist):
		return apierr.New(http.StatusConflict, "segments_exist", err)
	}
	return err
}
