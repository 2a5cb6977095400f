package app

import (
	"context"
	"fmt"
	"net/http"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/lessonforge-backend/internal/clients/aiworker"
	"github.com/yungbote/lessonforge-backend/internal/clients/gcp"
	"github.com/yungbote/lessonforge-backend/internal/clients/metadata"
	redisclient "github.com/yungbote/lessonforge-backend/internal/clients/redis"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
	"github.com/yungbote/lessonforge-backend/internal/temporalx"
)

type Clients struct {
	Redis     *goredis.Client
	JobStatus redisclient.JobStatusStore
	Temporal  temporalsdkclient.Client
	Jobs      aiworker.JobCreator
	Objects   gcp.ObjectReader
	Metadata  metadata.Fetcher
}

func wireClients(ctx context.Context, log *logger.Logger, cfg *Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis is optional with the in-memory bus; cancel markers and SSE
	// fan-out degrade to process-local behaviour without it.
	if cfg.Redis.Addr != "" {
		rdb, err := redisclient.NewClient(log, cfg.Redis)
		if err != nil {
			return out, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		out.JobStatus = redisclient.NewJobStatusStore(log, rdb)
	}

	switch cfg.AIJobBackend {
	case JobBackendTemporal:
		if cfg.Temporal.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, cfg.Temporal, log); err != nil {
				out.close()
				return Clients{}, fmt.Errorf("temporal namespace: %w", err)
			}
		}
		tc, err := temporalx.NewClient(log, cfg.Temporal)
		if err != nil {
			out.close()
			return Clients{}, fmt.Errorf("init temporal client: %w", err)
		}
		out.Temporal = tc
		jobs, err := aiworker.NewTemporalJobs(log, tc, aiworker.TemporalConfig{
			TaskQueue: cfg.Temporal.AITaskQueue,
			Workflow:  cfg.Temporal.GenerationWorkflow,
		})
		if err != nil {
			out.close()
			return Clients{}, fmt.Errorf("init temporal jobs: %w", err)
		}
		out.Jobs = jobs
	default:
		jobs, err := aiworker.NewHTTPJobCreator(log, cfg.AIWorker)
		if err != nil {
			out.close()
			return Clients{}, fmt.Errorf("init ai worker client: %w", err)
		}
		out.Jobs = jobs
	}

	out.Objects = gcp.NewObjectReader(log, cfg.GCPCredentialsJSON)
	out.Metadata = metadata.NewFetcher(log, &http.Client{}, out.Objects, metadata.Config{
		MaxBytes:  cfg.MetadataMaxBytes,
		Retries:   cfg.MetadataRetries,
		AllowFile: cfg.MetadataAllowFile,
	})
	return out, nil
}

func (c Clients) close() {
	if c.Objects != nil {
		_ = c.Objects.Close()
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
