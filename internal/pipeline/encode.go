package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"

	"geosnap/internal/model"
)

// Mode is the deployment-wide image representation.
type Mode string

const (
	// ModeURL uploads to object storage and stores a retrievable URL.
	ModeURL Mode = "url"
	// ModeInline embeds the base64 JPEG in the record.
	ModeInline Mode = "inline"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeURL, ModeInline:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown image mode %q (want url or inline)", s)
}

// ObjectStore is an object storage backend.
type ObjectStore interface {
	// Put stores data under name and returns a URL it can be fetched from.
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// ObjectEncoder uploads the photo and references it by URL.
type ObjectEncoder struct {
	Store ObjectStore
}

func (ObjectEncoder) Mode() Mode { return ModeURL }

func (e ObjectEncoder) Encode(ctx context.Context, name string, jpeg []byte) (model.ImageRef, error) {
	url, err := e.Store.Put(ctx, name, jpeg, "image/jpeg")
	if err != nil {
		return model.ImageRef{}, err
	}
	return model.ImageRef{URL: url}, nil
}

// InlineEncoder embeds the photo in the record.
type InlineEncoder struct{}

func (InlineEncoder) Mode() Mode { return ModeInline }

func (InlineEncoder) Encode(ctx context.Context, _ string, jpeg []byte) (model.ImageRef, error) {
	if err := ctx.Err(); err != nil {
		return model.ImageRef{}, err
	}
	return model.ImageRef{InlineBase64: base64.StdEncoding.EncodeToString(jpeg)}, nil
}
