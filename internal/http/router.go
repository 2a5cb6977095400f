package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/lessonforge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/lessonforge-backend/internal/http/middleware"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string

	LessonHandler   *httpH.LessonHandler
	SentenceHandler *httpH.SentenceHandler
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
	r.Use(httpMW.CORS(cfg.AllowedOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Lessons
		if cfg.LessonHandler != nil {
			api.POST("/lessons", cfg.LessonHandler.CreateLesson)
			api.GET("/lessons/:id", cfg.LessonHandler.GetLesson)
			api.POST("/lessons/:id/re-try", cfg.LessonHandler.RetryGeneration)
			api.POST("/lessons/:id/cancel-ai-processing", cfg.LessonHandler.CancelGeneration)
			api.POST("/lessons/:id/publish", cfg.LessonHandler.Publish)
			api.POST("/lessons/:id/unpublish", cfg.LessonHandler.Unpublish)
			api.DELETE("/lessons/:id", cfg.LessonHandler.Delete)
		}

		// Sentences
		if cfg.SentenceHandler != nil {
			api.POST("/sentences/:id/mark-active-inactive", cfg.SentenceHandler.SetActive)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/lessons/:id/processing-step/stream", cfg.RealtimeHandler.LessonProcessingStream)
		}
	}

	return r
}
