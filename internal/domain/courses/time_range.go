package courses

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidRanges = errors.New("invalid segment ranges")

// TimeRange is a half-open [Start, End) slice of the source video, in seconds.
type TimeRange struct {
	Start float64 `json:"start_time"`
	End   float64 `json:"end_time"`
}

func (r TimeRange) Duration() float64 { return r.End - r.Start }

// ValidateRanges checks that ranges start at zero, are non-empty, and tile the
// timeline with no gaps or overlaps.
func ValidateRanges(ranges []TimeRange) error {
	if len(ranges) == 0 {
		return fmt.Errorf("%w: no ranges", ErrInvalidRanges)
	}
	const eps = 1e-6
	prevEnd := 0.0
	for i, r := range ranges {
		if math.IsNaN(r.Start) || math.IsNaN(r.End) || math.IsInf(r.Start, 0) || math.IsInf(r.End, 0) {
			return fmt.Errorf("%w: range %d is not finite", ErrInvalidRanges, i)
		}
		if r.End-r.Start <= eps {
			return fmt.Errorf("%w: range %d is empty", ErrInvalidRanges, i)
		}
		if math.Abs(r.Start-prevEnd) > eps {
			return fmt.Errorf("%w: range %d starts at %.3f, want %.3f", ErrInvalidRanges, i, r.Start, prevEnd)
		}
		prevEnd = r.End
	}
	return nil
}
