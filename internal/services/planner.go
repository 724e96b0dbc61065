package services

import (
	"errors"
	"fmt"
	"math"

	types "github.com/yungbote/vidcourse-backend/internal/domain"
)

const (
	DefaultSegmentLengthSeconds    = 300.0
	DefaultMaxVideoDurationSeconds = 4 * 60 * 60.0
)

var (
	ErrInvalidDuration      = errors.New("video duration must be a positive finite number of seconds")
	ErrInvalidSegmentLength = errors.New("segment length must be positive")
)

type VideoTooLongError struct {
	DurationSeconds float64
	MaxSeconds      float64
}

func (e *VideoTooLongError) Error() string {
	return fmt.Sprintf("video is %.0fs long; maximum supported is %.0fs", e.DurationSeconds, e.MaxSeconds)
}

// PlanSegments splits [0, duration) into consecutive ranges of segmentLength,
// clipping the last one to duration. maxDuration <= 0 disables the length cap.
func PlanSegments(duration, segmentLength, maxDuration float64) ([]types.TimeRange, error) {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if math.IsNaN(segmentLength) || math.IsInf(segmentLength, 0) || segmentLength <= 0 {
		return nil, ErrInvalidSegmentLength
	}
	if maxDuration > 0 && duration > maxDuration {
		return nil, &VideoTooLongError{DurationSeconds: duration, MaxSeconds: maxDuration}
	}

	n := int(math.Ceil(duration / segmentLength))
	out := make([]types.TimeRange, 0, n)
	for i := 0; i < n; i++ {
		start := float64(i) * segmentLength
		if i > 0 && duration-start < 1e-3 {
			// float rounding leaves a sliver; fold it into the previous range
			if len(out) > 0 {
				out[len(out)-1].End = duration
			}
			break
		}
		end := math.Min(start+segmentLength, duration)
		out = append(out, types.TimeRange{Start: start, End: end})
	}
	return out, nil
}
