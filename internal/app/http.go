package app

import (
	"context"
	"net"

	"github.com/yungbote/lessonforge-backend/internal/http"
	httpH "github.com/yungbote/lessonforge-backend/internal/http/handlers"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
	"github.com/yungbote/lessonforge-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Lesson   *httpH.LessonHandler
	Sentence *httpH.SentenceHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, services Services, hub *realtime.SSEHub, checks map[string]httpH.Pinger) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(checks),
		Lesson:   httpH.NewLessonHandler(log, services.Lesson, services.Saga),
		Sentence: httpH.NewSentenceHandler(log, services.Lesson),
		Realtime: httpH.NewRealtimeHandler(log, hub),
	}
}

func wireServer(log *logger.Logger, cfg *Config, handlers Handlers) *http.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewServer(net.JoinHostPort("", cfg.Port), http.RouterConfig{
		Log:             log,
		ServiceName:     serviceName,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		LessonHandler:   handlers.Lesson,
		SentenceHandler: handlers.Sentence,
		RealtimeHandler: handlers.Realtime,
		HealthHandler:   handlers.Health,
	})
}

func (a *App) healthChecks() map[string]httpH.Pinger {
	checks := map[string]httpH.Pinger{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.Clients.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.Clients.Redis.Ping(ctx).Err()
		}
	}
	return checks
}
