package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/yungbote/lessonforge-backend/internal/clients/aiworker"
	redisclient "github.com/yungbote/lessonforge-backend/internal/clients/redis"
	"github.com/yungbote/lessonforge-backend/internal/data/db"
	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/temporalx"
)

const (
	EventBusRedis  = "redis"
	EventBusMemory = "memory"

	JobBackendHTTP     = "http"
	JobBackendTemporal = "temporal"
)

type envConfig struct {
	Port    string `env:"PORT" envDefault:"8080"`
	LogMode string `env:"LOG_MODE" envDefault:"development"`

	PostgresDSN      string `env:"POSTGRES_DSN"`
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresName     string `env:"POSTGRES_NAME" envDefault:"lessonforge"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	EventBus           string `env:"EVENT_BUS" envDefault:"redis"`
	EventBusPartitions int    `env:"EVENT_BUS_PARTITIONS" envDefault:"8"`
	EventBusConsumer   string `env:"EVENT_BUS_CONSUMER"`

	AIJobBackend           string `env:"AI_JOB_BACKEND" envDefault:"http"`
	AIWorkerBaseURL        string `env:"AI_WORKER_BASE_URL"`
	AIWorkerTimeoutSeconds int    `env:"AI_WORKER_TIMEOUT_SECONDS" envDefault:"30"`
	AIWorkerMaxRetries     int    `env:"AI_WORKER_MAX_RETRIES" envDefault:"3"`

	TemporalAddress     string `env:"TEMPORAL_ADDRESS"`
	TemporalNamespace   string `env:"TEMPORAL_NAMESPACE" envDefault:"lessonforge"`
	TemporalAITaskQueue string `env:"TEMPORAL_AI_TASK_QUEUE" envDefault:"lesson-ai"`
	TemporalWorkflow    string `env:"TEMPORAL_GENERATION_WORKFLOW" envDefault:"LessonGenerationJob"`
	TemporalCertPath    string `env:"TEMPORAL_CLIENT_CERT_PATH"`
	TemporalKeyPath     string `env:"TEMPORAL_CLIENT_KEY_PATH"`
	TemporalCAPath      string `env:"TEMPORAL_CLIENT_CA_PATH"`
	TemporalAutoNS      bool   `env:"TEMPORAL_AUTO_REGISTER_NAMESPACE" envDefault:"false"`

	MetadataFetchTimeoutSeconds int    `env:"METADATA_FETCH_TIMEOUT_SECONDS" envDefault:"30"`
	MetadataMaxBytes            int64  `env:"METADATA_MAX_BYTES" envDefault:"16777216"`
	MetadataRetries             int    `env:"METADATA_RETRIES" envDefault:"3"`
	MetadataAllowFile           bool   `env:"METADATA_ALLOW_FILE" envDefault:"false"`
	GCPCredentialsJSON          string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`

	CancelMarkerTTLMinutes int `env:"CANCEL_MARKER_TTL_MINUTES" envDefault:"30"`

	NotifyWebhookURL      string `env:"NOTIFY_WEBHOOK_URL"`
	NotifyWebhookAttempts int    `env:"NOTIFY_WEBHOOK_ATTEMPTS" envDefault:"3"`
	RedisSSEChannel       string `env:"REDIS_SSE_CHANNEL" envDefault:"lessonforge:sse"`

	OtelEnabled      bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OtelServiceName  string  `env:"OTEL_SERVICE_NAME" envDefault:"lessonforge-backend"`
	OtelEnvironment  string  `env:"OTEL_ENVIRONMENT"`
	OtelVersion      string  `env:"OTEL_SERVICE_VERSION"`
	OtelEndpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelInsecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`
	OtelHeaders      string  `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	OtelSamplerRatio float64 `env:"OTEL_SAMPLER_RATIO" envDefault:"1"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

type Config struct {
	Port    string
	LogMode string

	Postgres db.PostgresConfig
	Redis    redisclient.Config

	EventBus           string
	EventBusPartitions int
	EventBusConsumer   string

	AIJobBackend string
	AIWorker     aiworker.HTTPConfig
	Temporal     temporalx.Config

	MetadataFetchTimeout time.Duration
	MetadataMaxBytes     int64
	MetadataRetries      int
	MetadataAllowFile    bool
	GCPCredentialsJSON   string

	CancelMarkerTTL time.Duration

	NotifyWebhookURL      string
	NotifyWebhookAttempts int
	RedisSSEChannel       string

	Otel observability.OtelConfig

	CORSAllowedOrigins []string
}

// LoadConfig reads the process environment.
func LoadConfig() (*Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	consumer := strings.TrimSpace(raw.EventBusConsumer)
	if consumer == "" {
		consumer, _ = os.Hostname()
	}

	cfg := &Config{
		Port:    strings.TrimSpace(raw.Port),
		LogMode: strings.TrimSpace(raw.LogMode),
		Postgres: db.PostgresConfig{
			DSN:      strings.TrimSpace(raw.PostgresDSN),
			Host:     raw.PostgresHost,
			Port:     raw.PostgresPort,
			User:     raw.PostgresUser,
			Password: raw.PostgresPassword,
			Name:     raw.PostgresName,
			SSLMode:  raw.PostgresSSLMode,
		},
		Redis: redisclient.Config{
			Addr:     strings.TrimSpace(raw.RedisAddr),
			Password: raw.RedisPassword,
			DB:       raw.RedisDB,
		},
		EventBus:           strings.ToLower(strings.TrimSpace(raw.EventBus)),
		EventBusPartitions: raw.EventBusPartitions,
		EventBusConsumer:   consumer,
		AIJobBackend:       strings.ToLower(strings.TrimSpace(raw.AIJobBackend)),
		AIWorker: aiworker.HTTPConfig{
			BaseURL:    strings.TrimSpace(raw.AIWorkerBaseURL),
			Timeout:    time.Duration(raw.AIWorkerTimeoutSeconds) * time.Second,
			MaxRetries: raw.AIWorkerMaxRetries,
		},
		Temporal: temporalx.Config{
			Address:               strings.TrimSpace(raw.TemporalAddress),
			Namespace:             raw.TemporalNamespace,
			AITaskQueue:           raw.TemporalAITaskQueue,
			GenerationWorkflow:    raw.TemporalWorkflow,
			ClientCertPath:        raw.TemporalCertPath,
			ClientKeyPath:         raw.TemporalKeyPath,
			ClientCAPath:          raw.TemporalCAPath,
			AutoRegisterNamespace: raw.TemporalAutoNS,
		}.WithDefaults(),
		MetadataFetchTimeout:  time.Duration(raw.MetadataFetchTimeoutSeconds) * time.Second,
		MetadataMaxBytes:      raw.MetadataMaxBytes,
		MetadataRetries:       raw.MetadataRetries,
		MetadataAllowFile:     raw.MetadataAllowFile,
		GCPCredentialsJSON:    raw.GCPCredentialsJSON,
		CancelMarkerTTL:       time.Duration(raw.CancelMarkerTTLMinutes) * time.Minute,
		NotifyWebhookURL:      strings.TrimSpace(raw.NotifyWebhookURL),
		NotifyWebhookAttempts: raw.NotifyWebhookAttempts,
		RedisSSEChannel:       strings.TrimSpace(raw.RedisSSEChannel),
		Otel: observability.OtelConfig{
			Enabled:      raw.OtelEnabled,
			ServiceName:  raw.OtelServiceName,
			Environment:  raw.OtelEnvironment,
			Version:      raw.OtelVersion,
			Endpoint:     strings.TrimSpace(raw.OtelEndpoint),
			Insecure:     raw.OtelInsecure,
			Headers:      observability.ParseHeaders(raw.OtelHeaders),
			SamplerRatio: raw.OtelSamplerRatio,
		},
		CORSAllowedOrigins: trimAll(raw.CORSAllowedOrigins),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.Postgres.DSN == "" && (strings.TrimSpace(c.Postgres.Host) == "" || strings.TrimSpace(c.Postgres.Name) == "") {
		errs = append(errs, errors.New("POSTGRES_DSN or POSTGRES_HOST and POSTGRES_NAME are required"))
	}

	switch c.EventBus {
	case EventBusRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when EVENT_BUS=redis"))
		}
	case EventBusMemory:
	default:
		errs = append(errs, fmt.Errorf("EVENT_BUS must be %q or %q, got %q", EventBusRedis, EventBusMemory, c.EventBus))
	}
	if c.EventBusPartitions <= 0 {
		errs = append(errs, errors.New("EVENT_BUS_PARTITIONS must be positive"))
	}

	switch c.AIJobBackend {
	case JobBackendHTTP:
		if c.AIWorker.BaseURL == "" {
			errs = append(errs, errors.New("AI_WORKER_BASE_URL is required when AI_JOB_BACKEND=http"))
		}
	case JobBackendTemporal:
		if !c.Temporal.Enabled() {
			errs = append(errs, errors.New("TEMPORAL_ADDRESS is required when AI_JOB_BACKEND=temporal"))
		}
	default:
		errs = append(errs, fmt.Errorf("AI_JOB_BACKEND must be %q or %q, got %q", JobBackendHTTP, JobBackendTemporal, c.AIJobBackend))
	}

	if c.MetadataFetchTimeout <= 0 {
		errs = append(errs, errors.New("METADATA_FETCH_TIMEOUT_SECONDS must be positive"))
	}
	if c.CancelMarkerTTL <= 0 {
		errs = append(errs, errors.New("CANCEL_MARKER_TTL_MINUTES must be positive"))
	}
	if c.Otel.SamplerRatio < 0 || c.Otel.SamplerRatio > 1 {
		errs = append(errs, errors.New("OTEL_SAMPLER_RATIO must be within [0,1]"))
	}
	return errors.Join(errs...)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
