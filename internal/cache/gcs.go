package cache

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"cloud.google.com/go/storage"
)

// GCSArchiver writes a copy of every cached image to a GCS bucket.
// Archival is best effort: a failed upload is logged, never surfaced.
type GCSArchiver struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSArchiver(ctx context.Context, bucket, prefix string) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	if prefix == "" {
		prefix = "generated"
	}
	return &GCSArchiver{client: client, bucket: bucket, prefix: prefix}, nil
}

func (a *GCSArchiver) Close() error {
	return a.client.Close()
}

func (a *GCSArchiver) Archive(id string, img Image) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	object := path.Join(a.prefix, id)
	w := a.client.Bucket(a.bucket).Object(object).NewWriter(ctx)
	w.ContentType = img.MediaType

	if _, err := w.Write(img.Data); err != nil {
		_ = w.Close()
		slog.Warn("image archival failed", "object", object, "error", err)
		return
	}
	if err := w.Close(); err != nil {
		slog.Warn("image archival failed", "object", object, "error", err)
		return
	}
	slog.Debug("image archived", "bucket", a.bucket, "object", object)
}
