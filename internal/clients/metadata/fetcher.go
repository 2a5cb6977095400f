// Package metadata downloads and decodes the AI worker's result document.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/yungbote/lessonforge-backend/internal/clients/gcp"
	"github.com/yungbote/lessonforge-backend/internal/domain/events"
	"github.com/yungbote/lessonforge-backend/internal/pkg/httpx"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

// ErrUnavailable wraps every reason a document could not be produced.
var ErrUnavailable = errors.New("metadata unavailable")

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*events.MetadataDocument, error)
}

type Config struct {
	// MaxBytes bounds the document size.
	MaxBytes int64
	// Retries is the number of attempts for transient http failures.
	Retries int
	// AllowFile enables file:// URLs, meant for local development.
	AllowFile bool
}

type fetcher struct {
	log     *logger.Logger
	http    *http.Client
	objects gcp.ObjectReader
	cfg     Config
}

// NewFetcher builds a fetcher for http(s)://, gs:// and optionally file://
// URLs. objects may be nil, in which case gs:// URLs are rejected.
func NewFetcher(log *logger.Logger, httpClient *http.Client, objects gcp.ObjectReader, cfg Config) Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 64 << 20
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	return &fetcher{
		log:     log.With("client", "MetadataFetcher"),
		http:    httpClient,
		objects: objects,
		cfg:     cfg,
	}
}

func (f *fetcher) Fetch(ctx context.Context, rawURL string) (*events.MetadataDocument, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: no metadata url", ErrUnavailable)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad url %q: %v", ErrUnavailable, rawURL, err)
	}

	start := time.Now()
	var doc *events.MetadataDocument
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		err = httpx.Retry(ctx, f.cfg.Retries, 300*time.Millisecond, func(ctx context.Context) error {
			var fetchErr error
			doc, fetchErr = f.fetchHTTP(ctx, rawURL)
			return fetchErr
		})
	case "gs":
		doc, err = f.fetchGCS(ctx, u)
	case "file":
		doc, err = f.fetchFile(u)
	default:
		err = fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, rawURL, err)
	}
	f.log.Debug("Fetched metadata", "url", rawURL, "took", time.Since(start).String())
	return doc, nil
}

func (f *fetcher) fetchHTTP(ctx context.Context, rawURL string) (*events.MetadataDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &httpx.StatusError{
			Code:       resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: httpx.RetryAfterDuration(resp, 0, 10*time.Second),
		}
	}
	return f.decode(resp.Body)
}

func (f *fetcher) fetchGCS(ctx context.Context, u *url.URL) (*events.MetadataDocument, error) {
	if f.objects == nil {
		return nil, fmt.Errorf("gs:// urls are not enabled")
	}
	rc, err := f.objects.Open(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return f.decode(rc)
}

func (f *fetcher) fetchFile(u *url.URL) (*events.MetadataDocument, error) {
	if !f.cfg.AllowFile {
		return nil, fmt.Errorf("file:// urls are not enabled")
	}
	file, err := os.Open(u.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return f.decode(file)
}

// decode reads exactly one JSON object. A bare null or trailing content is
// malformed.
func (f *fetcher) decode(r io.Reader) (*events.MetadataDocument, error) {
	dec := json.NewDecoder(io.LimitReader(r, f.cfg.MaxBytes))
	var doc *events.MetadataDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("malformed metadata document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("malformed metadata document: null")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("malformed metadata document: trailing data after document")
	}
	return doc, nil
}
