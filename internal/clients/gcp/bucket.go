package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

// ErrObjectNotFound is returned when the bucket or object does not exist.
var ErrObjectNotFound = errors.New("gcs object not found")

// ObjectReader opens objects from Cloud Storage for reading.
type ObjectReader interface {
	Open(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	Close() error
}

type objectReader struct {
	log  *logger.Logger
	opts []option.ClientOption

	once   sync.Once
	client *storage.Client
	err    error
}

// NewObjectReader builds a reader whose storage client is created on first
// use, so deployments that never see gs:// URLs need no credentials.
func NewObjectReader(log *logger.Logger, credentials string) ObjectReader {
	opts := ClientOptions(credentials)
	opts = append(opts, option.WithScopes(storage.ScopeReadOnly))
	return &objectReader{
		log:  log.With("client", "GCSObjectReader"),
		opts: opts,
	}
}

func (r *objectReader) storageClient(ctx context.Context) (*storage.Client, error) {
	r.once.Do(func() {
		r.client, r.err = storage.NewClient(context.WithoutCancel(ctx), r.opts...)
		if r.err != nil {
			r.err = fmt.Errorf("failed to create storage client: %w", r.err)
		}
	})
	return r.client, r.err
}

func (r *objectReader) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	if bucket == "" || object == "" {
		return nil, fmt.Errorf("gcs: bucket and object required")
	}
	client, err := r.storageClient(ctx)
	if err != nil {
		return nil, err
	}
	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("gs://%s/%s: %w", bucket, object, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("gs://%s/%s: %w", bucket, object, err)
	}
	r.log.Debug("Opened object", "bucket", bucket, "object", object, "size", rc.Attrs.Size)
	return rc, nil
}

func (r *objectReader) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
