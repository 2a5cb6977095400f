package aiworker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/lessonforge-backend/internal/pkg/httpx"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

type HTTPConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

type httpClient struct {
	log        *logger.Logger
	baseURL    string
	maxRetries int
	httpClient *http.Client
}

func NewHTTPJobCreator(log *logger.Logger, cfg HTTPConfig) (JobCreator, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("missing AI_WORKER_BASE_URL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &httpClient{
		log:        log.With("client", "AIWorkerHTTP"),
		baseURL:    base,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type createJobResponse struct {
	Result struct {
		ID string `json:"id"`
	} `json:"result"`
}

func (c *httpClient) CreateJob(ctx context.Context, req JobRequest) (string, error) {
	var out createJobResponse
	if err := c.do(ctx, http.MethodPost, "/ai-jobs", req, &out); err != nil {
		return "", fmt.Errorf("create ai job: %w", err)
	}
	id := strings.TrimSpace(out.Result.ID)
	if id == "" {
		return "", ErrNoJobID
	}
	return id, nil
}

func (c *httpClient) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpx.StatusError{Code: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("ai worker decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("AI worker request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}
