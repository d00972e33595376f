package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

// ExportArchive keeps a copy of every lesson-plan export.
type ExportArchive interface {
	// Put stores body under key and returns the gs:// URI.
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

type bucketArchive struct {
	log           *logger.Logger
	storageClient *storage.Client
	bucket        string
	prefix        string
}

func NewExportArchive(ctx context.Context, log *logger.Logger, bucket, prefix string, extra ...option.ClientOption) (ExportArchive, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("missing export bucket name")
	}
	opts := append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	opts = append(opts, extra...)
	stClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &bucketArchive{
		log:           log.With("service", "ExportArchive"),
		storageClient: stClient,
		bucket:        bucket,
		prefix:        strings.Trim(prefix, "/"),
	}, nil
}

func (a *bucketArchive) objectKey(key string) string {
	if a.prefix == "" {
		return key
	}
	return path.Join(a.prefix, key)
}

func (a *bucketArchive) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := a.objectKey(key)
	w := a.storageClient.Bucket(a.bucket).Object(obj).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	uri := fmt.Sprintf("gs://%s/%s", a.bucket, obj)
	a.log.Debug("Export archived", "uri", uri)
	return uri, nil
}

func (a *bucketArchive) List(ctx context.Context, prefix string) ([]string, error) {
	it := a.storageClient.Bucket(a.bucket).Objects(ctx, &storage.Query{Prefix: a.objectKey(prefix)})
	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list exports: %w", err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (a *bucketArchive) Close() error { return a.storageClient.Close() }
