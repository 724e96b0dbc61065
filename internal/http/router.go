package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/vidcourse-backend/internal/http/handlers"
	httpMW "github.com/yungbote/vidcourse-backend/internal/http/middleware"
	"github.com/yungbote/vidcourse-backend/internal/observability"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics

	CourseHandler   *httpH.CourseHandler
	ProgressHandler *httpH.ProgressHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		if cfg.CourseHandler != nil {
			api.POST("/courses", cfg.CourseHandler.CreateCourse)
			api.GET("/courses/:id", cfg.CourseHandler.GetCourse)
			api.POST("/course/:id/check-and-publish", cfg.CourseHandler.CheckAndPublish)
			api.GET("/course/:id/segment-questions", cfg.CourseHandler.SegmentQuestions)
			api.POST("/course/:id/segments/:index/reset", cfg.CourseHandler.ResetSegment)
		}
		if cfg.ProgressHandler != nil {
			api.GET("/course/:id/progress", cfg.ProgressHandler.GetProgress)
			api.POST("/course/:id/progress", cfg.ProgressHandler.ReportProgress)
		}
		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/course/:id/events", cfg.RealtimeHandler.Events)
		}
	}

	return r
}
