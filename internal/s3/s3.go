// Package s3 stores compressed photos in an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3 caps presigned URLs at a week.
const maxPresignExpiry = 7 * 24 * time.Hour

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string

	// PublicBaseURL, when set, is used to build plain object URLs for
	// buckets that allow anonymous reads. Otherwise Put returns a presigned
	// GET URL valid for PresignExpiry.
	PublicBaseURL string
	PresignExpiry time.Duration
}

type Uploader struct {
	client *minio.Client
	opts   Options
	logger *slog.Logger
}

func New(o Options, logger *slog.Logger) (*Uploader, error) {
	if o.Endpoint == "" {
		return nil, errors.New("missing minio endpoint")
	}
	if o.Bucket == "" {
		return nil, errors.New("missing --bucket")
	}
	if o.PresignExpiry <= 0 || o.PresignExpiry > maxPresignExpiry {
		o.PresignExpiry = maxPresignExpiry
	}

	client, err := minio.New(o.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKey, o.SecretKey, ""),
		Secure: o.UseSSL,
		Region: o.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &Uploader{
		client: client,
		opts:   o,
		logger: logger.With("component", "minio", "endpoint", o.Endpoint),
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.opts.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", u.opts.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.opts.Bucket, minio.MakeBucketOptions{Region: u.opts.Region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", u.opts.Bucket, err)
	}
	u.logger.Info("bucket created", "bucket", u.opts.Bucket)
	return nil
}

func (u *Uploader) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	info, err := u.client.PutObject(ctx, u.opts.Bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", name, err)
	}
	if info.Size != int64(len(data)) {
		return "", fmt.Errorf("verify size mismatch: local=%d remote=%d", len(data), info.Size)
	}
	u.logger.Debug("object stored", "object", name, "size", info.Size, "etag", info.ETag)
	return u.URL(ctx, name)
}

// URL returns where a stored object can be fetched from.
func (u *Uploader) URL(ctx context.Context, name string) (string, error) {
	if u.opts.PublicBaseURL != "" {
		base, err := url.Parse(u.opts.PublicBaseURL)
		if err != nil {
			return "", fmt.Errorf("public base url: %w", err)
		}
		return base.JoinPath(u.opts.Bucket, name).String(), nil
	}
	signed, err := u.client.PresignedGetObject(ctx, u.opts.Bucket, name, u.opts.PresignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", name, err)
	}
	return signed.String(), nil
}
