package metadata

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

const sampleDoc = `{
  "sourceFetched": {"file_path": "/tmp/a.mp3", "duration": 12, "audioUrl": "https://cdn/a.mp3"},
  "transcribed": {"segments": [{"start": 0, "end": 1.5, "text": "Hi there", "words": [{"word": "Hi", "start": 0, "end": 0.4, "score": 0.9}]}]},
  "nlpAnalyzed": {"sentences": [{"orderIndex": 0, "translationVi": "Chào"}]}
}`

type fakeObjects struct {
	bucket, object string
	body           string
	err            error
}

func (f *fakeObjects) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	f.bucket, f.object = bucket, object
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func (f *fakeObjects) Close() error { return nil }

func TestFetchHTTP(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleDoc))
	}))
	defer srv.Close()

	f := NewFetcher(logger.Nop(), srv.Client(), nil, Config{})
	doc, err := f.Fetch(context.Background(), srv.URL+"/meta.json")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc.SourceFetched == nil || doc.SourceFetched.FilePath() != "/tmp/a.mp3" {
		t.Fatalf("unexpected sourceFetched %+v", doc.SourceFetched)
	}
	if doc.Transcribed == nil || len(doc.Transcribed.Segments) != 1 || doc.Transcribed.Segments[0].Text != "Hi there" {
		t.Fatalf("unexpected transcription %+v", doc.Transcribed)
	}
	if doc.NLPAnalyzed == nil || *doc.NLPAnalyzed.Sentences[0].TranslationVi != "Chào" {
		t.Fatalf("unexpected nlp %+v", doc.NLPAnalyzed)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls=%d want 2", got)
	}
}

func TestFetchFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/bad":
			_, _ = w.Write([]byte(`{"transcribed": [`))
		case "/null":
			_, _ = w.Write([]byte("null\n"))
		case "/trailing":
			_, _ = w.Write([]byte(sampleDoc + " <html>garbage</html>"))
		case "/two":
			_, _ = w.Write([]byte(sampleDoc + sampleDoc))
		}
	}))
	defer srv.Close()

	f := NewFetcher(logger.Nop(), srv.Client(), nil, Config{Retries: 1})
	for _, u := range []string{"", srv.URL + "/missing", srv.URL + "/bad", srv.URL + "/null", srv.URL + "/trailing", srv.URL + "/two", "ftp://host/x", "gs://bucket/x", "file:///tmp/x.json"} {
		if _, err := f.Fetch(context.Background(), u); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Fetch(%q): expected ErrUnavailable, got %v", u, err)
		}
	}
}

func TestFetchGCS(t *testing.T) {
	objects := &fakeObjects{body: sampleDoc}
	f := NewFetcher(logger.Nop(), nil, objects, Config{})
	doc, err := f.Fetch(context.Background(), "gs://lesson-ai/jobs/job-42/metadata.json")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if objects.bucket != "lesson-ai" || objects.object != "jobs/job-42/metadata.json" {
		t.Fatalf("unexpected object %s/%s", objects.bucket, objects.object)
	}
	if doc.Transcribed == nil {
		t.Fatalf("expected transcription")
	}

	objects.err = errors.New("denied")
	if _, err := f.Fetch(context.Background(), "gs://lesson-ai/x"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFetchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	if err := os.WriteFile(path, []byte(sampleDoc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := NewFetcher(logger.Nop(), nil, nil, Config{AllowFile: true})
	doc, err := f.Fetch(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc.SourceFetched == nil || doc.SourceFetched.Duration == nil || *doc.SourceFetched.Duration != 12 {
		t.Fatalf("unexpected sourceFetched %+v", doc.SourceFetched)
	}
}
