package services

import "errors"

var (
	ErrCourseNotFound       = errors.New("course not found")
	ErrSegmentNotFound      = errors.New("segment not found")
	ErrSegmentNotResettable = errors.New("segment is not permanently failed")
	ErrPipelineUnavailable  = errors.New("pipeline not configured")
)
