package cli

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "geosnap", cmd.Use)
	assert.Contains(t, cmd.Long, "GEOSNAP_")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"capture", "locate", "list", "map", "serve"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	mode := cmd.PersistentFlags().Lookup("image-mode")
	require.NotNil(t, mode)
	assert.Equal(t, "inline", mode.DefValue)

	list, _, err := cmd.Find([]string{"list"})
	require.NoError(t, err)
	follow := list.Flags().Lookup("follow")
	require.NotNil(t, follow)
	assert.Equal(t, "f", follow.Shorthand)
}

// workspace is a throwaway deployment: sqlite DB, pre-granted permissions
// and a static position.
type workspace struct {
	dir    string
	grants string
}

func newWorkspace(t *testing.T, grants string) workspace {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "permissions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(grants), 0o644))
	return workspace{dir: dir, grants: path}
}

const allGranted = `grants:
  android.permission.CAMERA: granted
  android.permission.READ_MEDIA_IMAGES: granted
  android.permission.ACCESS_FINE_LOCATION: granted
`

func (w workspace) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	common := []string{
		"--env-file", filepath.Join(w.dir, "missing.env"),
		"--db", filepath.Join(w.dir, "photos.db"),
		"--grants", w.grants,
		"--cache-dir", filepath.Join(w.dir, "cache"),
		"--tz", "UTC",
		"--lat", "12.9",
		"--lon", "77.6",
	}
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, common...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (w workspace) photo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(w.dir, "IMG_0042.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 32, 24))))
	require.NoError(t, f.Close())
	return path
}

func TestCaptureThenList(t *testing.T) {
	w := newWorkspace(t, allGranted)

	out, err := w.run(t, "", "capture", w.photo(t))
	require.NoError(t, err, out)
	assert.Contains(t, out, "at 12.9, 77.6 (high)")
	assert.Contains(t, out, "Uploaded ")

	out, err = w.run(t, "", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Lat: 12.9, Lon: 77.6")
	assert.Contains(t, out, "Open in Google Maps: https://maps.google.com/?q=12.9,77.6")
	assert.Contains(t, out, "Image: inline JPEG")

	out, err = w.run(t, "", "map")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"type": "FeatureCollection"`)
	assert.Contains(t, out, "77.6,\n          12.9")
}

func TestCaptureWithoutPhotoIsCancel(t *testing.T) {
	w := newWorkspace(t, allGranted)

	out, err := w.run(t, "", "capture")
	require.NoError(t, err)
	assert.Contains(t, out, "Capture cancelled.")

	out, err = w.run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No photos yet.")
}

func TestCaptureNoUploadStopsBeforePipeline(t *testing.T) {
	w := newWorkspace(t, allGranted)

	out, err := w.run(t, "", "capture", "--no-upload", w.photo(t))
	require.NoError(t, err, out)
	assert.Contains(t, out, "at 12.9, 77.6 (high)")
	assert.Contains(t, out, "Ready to upload; not uploading (ready-to-upload)")
	assert.NotContains(t, out, "Uploaded ")

	out, err = w.run(t, "", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "No photos yet.")
}

func TestCaptureCameraDenied(t *testing.T) {
	w := newWorkspace(t, `grants:
  android.permission.CAMERA: blocked
`)

	out, err := w.run(t, "", "capture", w.photo(t))
	require.Error(t, err)
	assert.Contains(t, out, "! Permission Denied:")
}

func TestCaptureLocationDeniedStillUploads(t *testing.T) {
	w := newWorkspace(t, `grants:
  android.permission.CAMERA: granted
  android.permission.READ_MEDIA_IMAGES: granted
  android.permission.ACCESS_FINE_LOCATION: blocked
`)

	out, err := w.run(t, "", "capture", w.photo(t))
	require.NoError(t, err, out)
	assert.Contains(t, out, "without location")
	assert.Contains(t, out, "Uploaded ")
	assert.NotContains(t, out, "! ")

	out, err = w.run(t, "", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Lat:")
}

func TestLocate(t *testing.T) {
	w := newWorkspace(t, allGranted)

	out, err := w.run(t, "", "locate")
	require.NoError(t, err, out)
	assert.Contains(t, out, "permission: granted")
	assert.Contains(t, out, "position:   12.9, 77.6")
}

func TestInvalidConfigRejected(t *testing.T) {
	w := newWorkspace(t, allGranted)
	_, err := w.run(t, "", "list", "--image-mode", "url")
	assert.ErrorContains(t, err, "--bucket")
}
