package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/lessonforge-backend/internal/pkg/httpx"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

type WebhookConfig struct {
	URL      string
	Timeout  time.Duration
	Attempts int
}

// WebhookSink POSTs each notification to an external URL. Delivery is best
// effort: failures are logged after the retries run out and never block the
// relay.
type WebhookSink struct {
	log      *logger.Logger
	client   *http.Client
	url      string
	attempts int
}

func NewWebhookSink(log *logger.Logger, cfg WebhookConfig) (*WebhookSink, error) {
	u := strings.TrimSpace(cfg.URL)
	if u == "" {
		return nil, fmt.Errorf("webhook url required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	return &WebhookSink{
		log:      log.With("component", "WebhookSink"),
		client:   &http.Client{Timeout: cfg.Timeout},
		url:      u,
		attempts: cfg.Attempts,
	}, nil
}

func (s *WebhookSink) Deliver(ctx context.Context, n Notification) error {
	err := httpx.Retry(ctx, s.attempts, 200*time.Millisecond, func(ctx context.Context) error {
		return s.post(ctx, n)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn("Webhook delivery failed", "lesson_id", n.LessonID, "error", err)
	}
	return nil
}

func (s *WebhookSink) post(ctx context.Context, n Notification) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(n.Raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpx.StatusError{
			Code:       resp.StatusCode,
			Body:       string(body),
			RetryAfter: httpx.RetryAfterDuration(resp, 0, 5*time.Second),
		}
	}
	return nil
}
