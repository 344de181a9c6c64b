package gcs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"cloud.google.com/go/storage"

	"geosnap/internal/hash"
)

type Uploader struct {
	client *storage.Client
	bucket string
	logger *slog.Logger

	// BaseURL is prefixed to object names to build the stored URL.
	BaseURL string
}

func NewUploader(client *storage.Client, bucket string, logger *slog.Logger) *Uploader {
	return &Uploader{
		client:  client,
		bucket:  bucket,
		logger:  logger.With("component", "gcs"),
		BaseURL: "https://storage.googleapis.com",
	}
}

// Put uploads data, confirms the bucket holds what was sent and returns the
// object's URL.
func (u *Uploader) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	sum := hash.Compute(data)
	obj := u.client.Bucket(u.bucket).Object(name)

	w := obj.NewWriter(ctx)
	w.ChunkSize = 0
	w.ContentType = contentType
	w.Metadata = map[string]string{
		"sha256": sum.SHA256,
	}

	if _, err := bytes.NewReader(data).WriteTo(w); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", name, err)
	}

	// attributes can lag the write briefly
	var (
		attrs *storage.ObjectAttrs
		err   error
	)
	for i := 0; i < 3; i++ {
		attrs, err = obj.Attrs(ctx)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	if err != nil {
		return "", fmt.Errorf("stat object %s: %w", name, err)
	}
	if err := verify(sum, attrs.Size, attrs.CRC32C); err != nil {
		return "", err
	}

	u.logger.Debug("object stored", "object", name, "size", sum.Size)
	return ObjectURL(u.BaseURL, u.bucket, name), nil
}

func verify(local hash.Result, size int64, crc uint32) error {
	if size != local.Size {
		return fmt.Errorf("verify size mismatch: local=%d remote=%d", local.Size, size)
	}
	if crc != local.CRC32C {
		return fmt.Errorf("verify crc32c mismatch: local=%d remote=%d", local.CRC32C, crc)
	}
	return nil
}

// ObjectURL joins base, bucket and object name, escaping each path segment.
func ObjectURL(base, bucket, name string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "/" + bucket + "/" + name
	}
	return u.JoinPath(bucket, name).String()
}
