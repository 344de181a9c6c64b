package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(cfg *Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs, cfg)
	return fs
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestFlagsOverrideDefaults(t *testing.T) {
	cfg := Default()
	fs := newFlags(&cfg)
	require.NoError(t, fs.Parse([]string{"--image-mode=url", "--bucket", "photos", "--lat=12.9", "--lon=77.6", "-v"}))

	assert.Equal(t, "url", cfg.ImageMode)
	assert.Equal(t, "photos", cfg.Bucket)
	assert.Equal(t, 12.9, cfg.StaticLat)
	assert.True(t, cfg.Verbose)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	fs := newFlags(&cfg)
	require.NoError(t, fs.Parse([]string{"--bucket=from-flag"}))

	env := map[string]string{
		"GEOSNAP_BUCKET":        "from-env",
		"GEOSNAP_S3_URL_EXPIRY": "1h",
		"GEOSNAP_WATCH":         "true",
		"GEOSNAP_OS_VERSION":    "30",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	require.NoError(t, ApplyEnv(fs, lookup))

	assert.Equal(t, "from-flag", cfg.Bucket, "flags win over the environment")
	assert.Equal(t, time.Hour, cfg.S3URLExpiry)
	assert.True(t, cfg.Watch)
	assert.Equal(t, 30, cfg.OSVersion)
}

func TestApplyEnvBadValue(t *testing.T) {
	cfg := Default()
	fs := newFlags(&cfg)
	err := ApplyEnv(fs, func(k string) (string, bool) {
		if k == "GEOSNAP_QUALITY" {
			return "high", true
		}
		return "", false
	})
	assert.ErrorContains(t, err, "GEOSNAP_QUALITY")
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "GEOSNAP_IMAGE_MODE", EnvName("image-mode"))
	assert.Equal(t, "GEOSNAP_DB", EnvName("db"))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"url mode needs bucket", func(c *Config) { c.ImageMode = "url" }, "--bucket"},
		{"s3 needs endpoint", func(c *Config) { c.ImageMode, c.Bucket, c.ObjectStore = "url", "b", "s3" }, "--s3-endpoint"},
		{"firestore needs project", func(c *Config) { c.Store = "firestore" }, "--project"},
		{"unknown store", func(c *Config) { c.Store = "mongo" }, "--store"},
		{"camera command placeholder", func(c *Config) { c.Camera, c.CameraCommand = "command", "raspistill" }, "{out}"},
		{"dcim needs mount", func(c *Config) { c.Camera = "dcim" }, "--dcim-mount"},
		{"quality range", func(c *Config) { c.Quality = 0 }, "--quality"},
		{"latitude range", func(c *Config) { c.StaticLat = 95 }, "--lat"},
		{"unknown platform", func(c *Config) { c.Platform = "symbian" }, "--platform"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "UTC"
	assert.Equal(t, time.UTC, cfg.Location())
}
