package app

import (
	"strings"
	"time"

	"github.com/yungbote/vidcourse-backend/internal/platform/envutil"
	"github.com/yungbote/vidcourse-backend/internal/services"
)

type Config struct {
	Port        string
	ServiceName string
	Environment string
	Version     string

	ProcessingTimeout       time.Duration
	SegmentMaxAttempts      int
	SegmentLengthSeconds    float64
	MaxVideoDurationSeconds float64
	StageWeightsPath        string

	EventPollInterval time.Duration
	SweepInterval     time.Duration
	ReaperInterval    time.Duration
	WorkerConcurrency int
	WorkerBatchSize   int
	// RunWorker starts the sweeper inside the API process.
	RunWorker bool

	AllowedOrigins []string
	ShutdownGrace  time.Duration
	RedisAddr      string
}

func LoadConfig() Config {
	return Config{
		Port:        envutil.String("PORT", "8080"),
		ServiceName: envutil.String("SERVICE_NAME", "vidcourse-backend"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),

		ProcessingTimeout:       envutil.Seconds("PROCESSING_TIMEOUT_SECONDS", 180),
		SegmentMaxAttempts:      envutil.Int("SEGMENT_MAX_ATTEMPTS", 3),
		SegmentLengthSeconds:    envutil.Float("SEGMENT_LENGTH_SECONDS", services.DefaultSegmentLengthSeconds),
		MaxVideoDurationSeconds: envutil.Float("MAX_VIDEO_DURATION_SECONDS", services.DefaultMaxVideoDurationSeconds),
		StageWeightsPath:        envutil.String("PROGRESS_STAGE_WEIGHTS_YAML", ""),

		EventPollInterval: envutil.Seconds("EVENT_POLL_INTERVAL_SECONDS", 5),
		SweepInterval:     envutil.Seconds("SWEEP_INTERVAL_SECONDS", 10),
		ReaperInterval:    envutil.Seconds("REAPER_INTERVAL_SECONDS", 30),
		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 4),
		WorkerBatchSize:   envutil.Int("WORKER_BATCH_SIZE", 100),
		RunWorker:         envutil.Bool("RUN_WORKER_IN_SERVER", true),

		AllowedOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),
		ShutdownGrace:  envutil.Seconds("SHUTDOWN_GRACE_SECONDS", 15),
		RedisAddr:      envutil.String("REDIS_ADDR", ""),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
