// Package gcs stores compressed photos in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type ClientOptions struct {
	// CredentialsFile is a service account JSON key. Empty falls back to
	// Application Default Credentials.
	CredentialsFile string
	// Endpoint overrides the API endpoint, e.g. for an emulator.
	Endpoint string
}

func NewClient(ctx context.Context, bucket string, o ClientOptions) (*storage.Client, error) {
	if bucket == "" {
		return nil, errors.New("missing --bucket")
	}
	var opts []option.ClientOption
	if o.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(o.CredentialsFile))
	}
	if o.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(o.Endpoint), option.WithoutAuthentication())
	}
	return storage.NewClient(ctx, opts...)
}
