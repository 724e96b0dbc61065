package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/vidcourse-backend/internal/platform/envutil"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

func newRootCommand() *cobra.Command {
	var logMode string

	rootCmd := &cobra.Command{
		Use:           "vidcourse",
		Short:         "Segmented video course orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", envutil.String("LOG_MODE", "development"), "Logger mode (development, production, test)")

	newLog := func() (*logger.Logger, error) {
		log, err := logger.New(logMode)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		return log, nil
	}

	rootCmd.AddCommand(newServeCommand(newLog))
	rootCmd.AddCommand(newWorkerCommand(newLog))
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newStatusCommand(newLog))
	return rootCmd
}
