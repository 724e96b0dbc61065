package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/platform/envutil"
	"github.com/yungbote/vidcourse-backend/internal/services"
)

func newPlanCommand() *cobra.Command {
	var (
		segmentLength float64
		maxDuration   float64
	)
	cmd := &cobra.Command{
		Use:   "plan <duration-seconds>",
		Short: "Print the segment plan for a video duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			duration, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", args[0], err)
			}
			ranges, err := services.PlanSegments(duration, segmentLength, maxDuration)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderPlan(ranges))
			return nil
		},
	}
	cmd.Flags().Float64Var(&segmentLength, "segment-length", envutil.Float("SEGMENT_LENGTH_SECONDS", services.DefaultSegmentLengthSeconds), "Segment length in seconds")
	cmd.Flags().Float64Var(&maxDuration, "max-duration", envutil.Float("MAX_VIDEO_DURATION_SECONDS", services.DefaultMaxVideoDurationSeconds), "Longest accepted video in seconds")
	return cmd
}

func renderPlan(ranges []types.TimeRange) string {
	rows := make([][]string, 0, len(ranges))
	for i, r := range ranges {
		rows = append(rows, []string{
			strconv.Itoa(i),
			formatSeconds(r.Start),
			formatSeconds(r.End),
			formatSeconds(r.End - r.Start),
		})
	}
	return renderTable([]string{"Index", "Start", "End", "Length"}, rows, 0, 1, 2, 3)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
