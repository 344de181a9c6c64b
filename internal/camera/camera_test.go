package camera

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time { return time.UnixMilli(1700000000000) }

func writePhoto(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "IMG_0001.jpg")
	require.NoError(t, os.WriteFile(p, []byte("jpeg bytes"), 0o644))
	return p
}

func TestFileDevice_ImportsIntoCache(t *testing.T) {
	src := writePhoto(t)
	cache := t.TempDir()
	d := FileDevice{Source: src, CacheDir: cache, URIPrefix: "file://", Now: fixedNow}

	shot, err := d.Capture(context.Background())
	require.NoError(t, err)
	assert.False(t, shot.Cancelled)

	want := filepath.Join(cache, "1700000000000_IMG_0001.jpg")
	assert.Equal(t, "file://"+want, shot.URI)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))
	_, err = os.Stat(want + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileDevice_EmptySourceIsCancel(t *testing.T) {
	shot, err := FileDevice{CacheDir: t.TempDir()}.Capture(context.Background())
	require.NoError(t, err)
	assert.True(t, shot.Cancelled)
	assert.Empty(t, shot.URI)
}

func TestFileDevice_MissingSource(t *testing.T) {
	_, err := FileDevice{Source: "/nope/x.jpg", CacheDir: t.TempDir()}.Capture(context.Background())
	var de *DeviceError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, CodeUnavailable, de.Code)
}

func TestCommandDevice_WritesOutput(t *testing.T) {
	src := writePhoto(t)
	cache := t.TempDir()
	d := CommandDevice{Command: "cp " + src + " {out}", CacheDir: cache, Now: fixedNow}

	shot, err := d.Capture(context.Background())
	require.NoError(t, err)
	assert.False(t, shot.Cancelled)
	assert.True(t, strings.HasPrefix(shot.URI, cache))

	data, err := os.ReadFile(shot.URI)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))
}

func TestCommandDevice_NoOutputIsCancel(t *testing.T) {
	d := CommandDevice{Command: "true", CacheDir: t.TempDir()}
	shot, err := d.Capture(context.Background())
	require.NoError(t, err)
	assert.True(t, shot.Cancelled)
}

func TestCommandDevice_InterruptIsCancel(t *testing.T) {
	script := filepath.Join(t.TempDir(), "cam.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 130\n"), 0o755))

	shot, err := CommandDevice{Command: script + " {out}", CacheDir: t.TempDir()}.Capture(context.Background())
	require.NoError(t, err)
	assert.True(t, shot.Cancelled)
}

func TestCommandDevice_Failure(t *testing.T) {
	_, err := CommandDevice{Command: "false", CacheDir: t.TempDir()}.Capture(context.Background())
	var de *DeviceError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, CodeCaptureFailed, de.Code)
}

func TestCommandDevice_Unconfigured(t *testing.T) {
	_, err := CommandDevice{CacheDir: t.TempDir()}.Capture(context.Background())
	var de *DeviceError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, CodeUnavailable, de.Code)
}
