package s3

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geosnap/internal/testutil"
)

func newTestUploader(t *testing.T, o Options) *Uploader {
	t.Helper()
	if o.Endpoint == "" {
		o.Endpoint = "localhost:9000"
	}
	if o.Bucket == "" {
		o.Bucket = "images"
	}
	o.AccessKey, o.SecretKey = "minioadmin", "minioadmin"
	// a fixed region keeps presigning offline
	o.Region = "us-east-1"
	u, err := New(o, testutil.Logger())
	require.NoError(t, err)
	return u
}

func TestNewValidates(t *testing.T) {
	_, err := New(Options{Bucket: "images"}, testutil.Logger())
	assert.Error(t, err)
	_, err = New(Options{Endpoint: "localhost:9000"}, testutil.Logger())
	assert.Error(t, err)
}

func TestPresignExpiryIsClamped(t *testing.T) {
	u := newTestUploader(t, Options{PresignExpiry: 30 * 24 * time.Hour})
	assert.Equal(t, maxPresignExpiry, u.opts.PresignExpiry)

	u = newTestUploader(t, Options{PresignExpiry: time.Hour})
	assert.Equal(t, time.Hour, u.opts.PresignExpiry)
}

func TestURLPublic(t *testing.T) {
	u := newTestUploader(t, Options{PublicBaseURL: "http://photos.lan:9000"})
	got, err := u.URL(t.Context(), "images/IMG_0001.jpg")
	require.NoError(t, err)
	assert.Equal(t, "http://photos.lan:9000/images/images/IMG_0001.jpg", got)
}

func TestURLPresigned(t *testing.T) {
	u := newTestUploader(t, Options{PresignExpiry: time.Hour})
	got, err := u.URL(t.Context(), "images/IMG_0001.jpg")
	require.NoError(t, err)

	parsed, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", parsed.Host)
	assert.Equal(t, "/images/images/IMG_0001.jpg", parsed.Path)
	assert.Equal(t, "3600", parsed.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, parsed.Query().Get("X-Amz-Signature"))
}
