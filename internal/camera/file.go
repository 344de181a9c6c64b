package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileDevice "captures" by importing an existing photo into the capture
// cache, the way a picker hands back a copy it owns. An empty Source means
// the user backed out.
type FileDevice struct {
	Source    string
	CacheDir  string
	URIPrefix string
	Now       func() time.Time
}

func (d FileDevice) Capture(ctx context.Context) (Shot, error) {
	if strings.TrimSpace(d.Source) == "" {
		return Shot{Cancelled: true}, nil
	}
	if err := ctx.Err(); err != nil {
		return Shot{}, err
	}
	info, err := os.Stat(d.Source)
	if err != nil {
		return Shot{}, &DeviceError{Code: CodeUnavailable, Message: err.Error()}
	}
	if info.IsDir() {
		return Shot{}, &DeviceError{Code: CodeUnavailable, Message: d.Source + " is a directory"}
	}

	dst := cachePath(d.CacheDir, filepath.Base(d.Source), d.Now)
	if err := importAtomic(d.Source, dst); err != nil {
		return Shot{}, &DeviceError{Code: CodeStorage, Message: err.Error()}
	}
	return Shot{URI: d.URIPrefix + dst}, nil
}

func cachePath(dir, base string, now func() time.Time) string {
	if now == nil {
		now = time.Now
	}
	return filepath.Join(dir, fmt.Sprintf("%d_%s", now().UnixMilli(), base))
}

// importAtomic copies src to dst through a temp file, fsync and rename so
// a crash never leaves a truncated photo in the cache.
func importAtomic(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	tmp := dst + ".tmp"

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(out, in)
	syncErr := out.Sync()
	closeErr := out.Close()

	if err := errors.Join(copyErr, syncErr, closeErr); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename tmp->final: %w", err)
	}
	return nil
}
