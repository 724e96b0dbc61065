package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/vidcourse-backend/internal/app"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newServeCommand(newLog func() (*logger.Logger, error)) *cobra.Command {
	var noWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLog()
			if err != nil {
				return err
			}
			a, err := app.New(log)
			if err != nil {
				log.Sync()
				return err
			}
			defer a.Close()

			if err := a.Start(a.Cfg.RunWorker && !noWorker); err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return a.Serve(ctx)
		},
	}
	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "Do not run the segment sweeper in this process")
	return cmd
}

func newWorkerCommand(newLog func() (*logger.Logger, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the segment sweeper and Temporal worker without the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLog()
			if err != nil {
				return err
			}
			a, err := app.New(log)
			if err != nil {
				log.Sync()
				return err
			}
			defer a.Close()

			if err := a.Start(true); err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			<-ctx.Done()
			log.Info("Worker shutting down")
			return nil
		},
	}
}
