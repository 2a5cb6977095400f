package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/yungbote/lessonforge-backend/internal/consumers"
	"github.com/yungbote/lessonforge-backend/internal/data/db"
	"github.com/yungbote/lessonforge-backend/internal/eventbus"
	"github.com/yungbote/lessonforge-backend/internal/http"
	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
	"github.com/yungbote/lessonforge-backend/internal/realtime"
	"github.com/yungbote/lessonforge-backend/internal/realtime/bus"
	"github.com/yungbote/lessonforge-backend/internal/relay"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      *Config
	Clients  Clients
	Repos    Repos
	Services Services
	Handlers Handlers

	EventBus    eventbus.Bus
	SSEHub      *realtime.SSEHub
	RealtimeBus bus.Bus
	Relay       *relay.Relay
	Consumers   *consumers.Runner
	Server      *http.Server

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig()
	if err != nil {
		log.Sync()
		return nil, err
	}

	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Otel)

	a.pg, err = db.NewPostgresService(log, cfg.Postgres)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := db.AutoMigrateAll(a.pg.DB()); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	a.DB = a.pg.DB()

	a.Clients, err = wireClients(ctx, log, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.EventBus, err = wireEventBus(log, cfg, a.Clients)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.SSEHub = realtime.NewSSEHub(log)
	a.RealtimeBus, err = wireRealtimeBus(log, cfg, a.Clients)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Relay, err = wireRelay(log, cfg, a.RealtimeBus)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Repos = wireRepos(a.DB, log)
	a.Services = wireServices(a.DB, log, cfg, a.Repos, a.Clients, a.EventBus)

	a.Consumers = consumers.NewRunner(log, a.EventBus)
	consumers.RegisterAll(a.Consumers, log, a.Services.Progress, a.Relay)

	a.Handlers = wireHandlers(log, a.Services, a.SSEHub, a.healthChecks())
	a.Server = wireServer(log, cfg, a.Handlers)
	return a, nil
}

// Start begins the SSE forwarder and the event consumers. Both stop when
// ctx ends or Close is called.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	// The forwarder must be listening before the relay consumer delivers.
	if err := a.RealtimeBus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
		return fmt.Errorf("start SSE forwarder: %w", err)
	}
	if err := a.Consumers.Start(ctx); err != nil {
		return fmt.Errorf("start consumers: %w", err)
	}
	a.Log.Info("App started", "eventBus", a.Cfg.EventBus, "aiJobBackend", a.Cfg.AIJobBackend)
	return nil
}

// Run serves HTTP until Shutdown.
func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "port", a.Cfg.Port)
	return a.Server.Run()
}

func (a *App) Shutdown(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return nil
	}
	return a.Server.Shutdown(ctx)
}

// Close releases everything New acquired. It is safe on a partially built App.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	var errs []error
	if a.EventBus != nil {
		errs = append(errs, a.EventBus.Close())
	}
	if a.RealtimeBus != nil {
		errs = append(errs, a.RealtimeBus.Close())
	}
	a.Clients.close()
	if a.pg != nil {
		errs = append(errs, a.pg.Close())
	}
	if a.otelShutdown != nil {
		errs = append(errs, a.otelShutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil && a.Log != nil {
		a.Log.Warn("Shutdown finished with errors", "error", err)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func wireEventBus(log *logger.Logger, cfg *Config, clients Clients) (eventbus.Bus, error) {
	log.Info("Wiring event bus...", "backend", cfg.EventBus, "partitions", cfg.EventBusPartitions)
	if cfg.EventBus == EventBusMemory {
		return eventbus.NewMemoryBus(log, eventbus.MemoryConfig{Partitions: cfg.EventBusPartitions}), nil
	}
	b, err := eventbus.NewRedisStreamsBus(log, clients.Redis, eventbus.RedisStreamsConfig{
		Partitions: cfg.EventBusPartitions,
		Consumer:   cfg.EventBusConsumer,
	})
	if err != nil {
		return nil, fmt.Errorf("init redis streams bus: %w", err)
	}
	return b, nil
}

func wireRealtimeBus(log *logger.Logger, cfg *Config, clients Clients) (bus.Bus, error) {
	if clients.Redis == nil {
		log.Info("REDIS_ADDR not set; SSE fan-out is process-local")
		return bus.NewLocalBus(), nil
	}
	b, err := bus.NewRedisBus(log, clients.Redis, cfg.RedisSSEChannel)
	if err != nil {
		return nil, fmt.Errorf("init redis SSE bus: %w", err)
	}
	return b, nil
}

func wireRelay(log *logger.Logger, cfg *Config, rt bus.Bus) (*relay.Relay, error) {
	sinks := []relay.Sink{&relay.BusSink{Bus: rt}}
	if cfg.NotifyWebhookURL != "" {
		hook, err := relay.NewWebhookSink(log, relay.WebhookConfig{
			URL:      cfg.NotifyWebhookURL,
			Attempts: cfg.NotifyWebhookAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("init notify webhook: %w", err)
		}
		sinks = append(sinks, hook)
	}
	return relay.NewRelay(log, sinks...), nil
}
