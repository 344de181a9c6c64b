package camera

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var photoExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// DCIMDevice picks up the newest photo from a mounted camera card. A card
// with no photo newer than After counts as a cancel.
type DCIMDevice struct {
	MountPoint string
	After      time.Time
	CacheDir   string
	URIPrefix  string
	Now        func() time.Time
}

func (d DCIMDevice) Capture(ctx context.Context) (Shot, error) {
	root := filepath.Join(d.MountPoint, "DCIM")
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return Shot{}, &DeviceError{Code: CodeUnavailable, Message: "no DCIM directory under " + d.MountPoint}
	}

	newest, err := newestPhoto(ctx, root, d.After)
	if err != nil {
		if ctx.Err() != nil {
			return Shot{}, ctx.Err()
		}
		return Shot{}, &DeviceError{Code: CodeStorage, Message: err.Error()}
	}
	if newest == "" {
		return Shot{Cancelled: true}, nil
	}

	dst := cachePath(d.CacheDir, filepath.Base(newest), d.Now)
	if err := importAtomic(newest, dst); err != nil {
		return Shot{}, &DeviceError{Code: CodeStorage, Message: err.Error()}
	}
	return Shot{URI: d.URIPrefix + dst}, nil
}

func newestPhoto(ctx context.Context, root string, after time.Time) (string, error) {
	var (
		best    string
		bestMod time.Time
	)
	err := filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if e.IsDir() {
			// camera bookkeeping, thumbnails
			if path != root && strings.HasPrefix(e.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !photoExts[strings.ToLower(filepath.Ext(e.Name()))] {
			return nil
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		mod := info.ModTime()
		if !mod.After(after) {
			return nil
		}
		if best == "" || mod.After(bestMod) {
			best, bestMod = path, mod
		}
		return nil
	})
	return best, err
}
