package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/vidcourse-backend/internal/data/db"
	"github.com/yungbote/vidcourse-backend/internal/data/repos"
	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/platform/dbctx"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

func newStatusCommand(newLog func() (*logger.Logger, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "status <course-id>",
		Short: "Show a course's segments and publish state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid course id: %w", err)
			}
			log, err := newLog()
			if err != nil {
				return err
			}
			defer log.Sync()

			dbs, err := db.NewService(log)
			if err != nil {
				return err
			}
			defer dbs.Close()

			dbc := dbctx.Context{Ctx: cmd.Context()}
			course, err := repos.NewCourseRepo(dbs.DB(), log).GetByID(dbc, id)
			if err != nil {
				return err
			}
			if course == nil {
				return fmt.Errorf("course %s not found", id)
			}
			segs, err := repos.NewSegmentRepo(dbs.DB(), log).ListSegments(dbc, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s) published=%t\n", course.Title, course.VideoID, course.Published)
			fmt.Fprintln(out, renderSegments(segs))
			return nil
		},
	}
}

func renderSegments(segs []*types.Segment) string {
	rows := make([][]string, 0, len(segs))
	for _, s := range segs {
		rows = append(rows, []string{
			strconv.Itoa(s.SegmentIndex),
			formatSeconds(s.StartTime) + "-" + formatSeconds(s.EndTime),
			string(s.Status),
			strconv.Itoa(s.Attempts),
			strconv.Itoa(s.QuestionsCount),
			truncate(s.ErrorMessage, 48),
		})
	}
	return renderTable([]string{"Index", "Range", "Status", "Attempts", "Questions", "Error"}, rows, 0, 3, 4)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
