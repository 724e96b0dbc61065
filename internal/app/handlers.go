package app

import (
	"gorm.io/gorm"

	apphttp "github.com/yungbote/vidcourse-backend/internal/http"
	httpH "github.com/yungbote/vidcourse-backend/internal/http/handlers"
	"github.com/yungbote/vidcourse-backend/internal/observability"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
	"github.com/yungbote/vidcourse-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Course   *httpH.CourseHandler
	Progress *httpH.ProgressHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, cfg Config, db *gorm.DB, svc Services, hub *realtime.Hub) Handlers {
	log.Info("Wiring handlers...")
	var resumer httpH.Resumer
	if svc.Dispatcher != nil {
		resumer = svc.Dispatcher
	}
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Course:   httpH.NewCourseHandler(log, svc.Courses, svc.Scheduler, resumer),
		Progress: httpH.NewProgressHandler(svc.Courses, svc.Progress),
		Realtime: httpH.NewRealtimeHandler(log, hub, svc.Courses, cfg.EventPollInterval),
	}
}

func routerConfig(log *logger.Logger, cfg Config, h Handlers, metrics *observability.Metrics) apphttp.RouterConfig {
	return apphttp.RouterConfig{
		Log:             log,
		ServiceName:     cfg.ServiceName,
		AllowedOrigins:  cfg.AllowedOrigins,
		Metrics:         metrics,
		CourseHandler:   h.Course,
		ProgressHandler: h.Progress,
		RealtimeHandler: h.Realtime,
		HealthHandler:   h.Health,
	}
}
