// Package config holds the deployment settings. Every field is bound to a
// flag and can be overridden through a GEOSNAP_* environment variable named
// after the flag.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

const EnvPrefix = "GEOSNAP_"

type Config struct {
	Verbose  bool
	Timezone string

	// Record store
	Store      string // sqlite | firestore
	DBPath     string
	ProjectID  string
	Collection string

	// Image representation and object storage
	ImageMode    string // url | inline
	ObjectStore  string // gcs | s3
	Bucket       string
	CredsJSON    string
	GCSEndpoint  string
	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string
	S3UseSSL     bool
	S3Region     string
	S3PublicURL  string
	S3URLExpiry  time.Duration
	MaxDimension int
	Quality      int

	// Device
	Platform        string // android | ios
	OSVersion       int
	GrantsFile      string
	SettingsCommand string
	Camera          string // file | command | dcim
	CameraCommand   string
	DCIMMount       string
	CacheDir        string

	// Location
	LocationSource string // static | gpsd
	StaticLat      float64
	StaticLon      float64
	StaticAccuracy float64
	GPSDAddr       string
	Watch          bool

	// HTTP
	Listen string
}

func Default() Config {
	return Config{
		Timezone:       "Local",
		Store:          "sqlite",
		DBPath:         "./geosnap.db",
		Collection:     "photos",
		ImageMode:      "inline",
		ObjectStore:    "gcs",
		S3URLExpiry:    7 * 24 * time.Hour,
		MaxDimension:   1280,
		Quality:        70,
		Platform:       "android",
		OSVersion:      34,
		GrantsFile:     "./permissions.yaml",
		Camera:         "file",
		CacheDir:       "./cache",
		LocationSource: "static",
		StaticAccuracy: 10,
		GPSDAddr:       "localhost:2947",
		Listen:         ":8080",
	}
}

// BindFlags registers cfg's fields on fs using the current values as
// defaults.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "debug logging")
	fs.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "time zone for rendered timestamps")

	fs.StringVar(&cfg.Store, "store", cfg.Store, "record store (sqlite|firestore)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to sqlite DB")
	fs.StringVar(&cfg.ProjectID, "project", cfg.ProjectID, "Google Cloud project for Firestore")
	fs.StringVar(&cfg.Collection, "collection", cfg.Collection, "Firestore collection")

	fs.StringVar(&cfg.ImageMode, "image-mode", cfg.ImageMode, "image representation (url|inline)")
	fs.StringVar(&cfg.ObjectStore, "object-store", cfg.ObjectStore, "object storage for url mode (gcs|s3)")
	fs.StringVar(&cfg.Bucket, "bucket", cfg.Bucket, "bucket name")
	fs.StringVar(&cfg.CredsJSON, "creds", cfg.CredsJSON, "path to service account JSON")
	fs.StringVar(&cfg.GCSEndpoint, "gcs-endpoint", cfg.GCSEndpoint, "GCS endpoint override")
	fs.StringVar(&cfg.S3Endpoint, "s3-endpoint", cfg.S3Endpoint, "S3 endpoint host:port")
	fs.StringVar(&cfg.S3AccessKey, "s3-access-key", cfg.S3AccessKey, "S3 access key")
	fs.StringVar(&cfg.S3SecretKey, "s3-secret-key", cfg.S3SecretKey, "S3 secret key")
	fs.BoolVar(&cfg.S3UseSSL, "s3-ssl", cfg.S3UseSSL, "use TLS for S3")
	fs.StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3PublicURL, "s3-public-url", cfg.S3PublicURL, "base URL for anonymous object reads; presigned URLs otherwise")
	fs.DurationVar(&cfg.S3URLExpiry, "s3-url-expiry", cfg.S3URLExpiry, "presigned URL lifetime")
	fs.IntVar(&cfg.MaxDimension, "max-dimension", cfg.MaxDimension, "longest edge after compression, px")
	fs.IntVar(&cfg.Quality, "quality", cfg.Quality, "JPEG quality (1-100)")

	fs.StringVar(&cfg.Platform, "platform", cfg.Platform, "permission profile (android|ios)")
	fs.IntVar(&cfg.OSVersion, "os-version", cfg.OSVersion, "OS major version for the permission profile")
	fs.StringVar(&cfg.GrantsFile, "grants", cfg.GrantsFile, "permission grants file")
	fs.StringVar(&cfg.SettingsCommand, "settings-command", cfg.SettingsCommand, "command that opens permission settings; the grants file is appended")
	fs.StringVar(&cfg.Camera, "camera", cfg.Camera, "capture device (file|command|dcim)")
	fs.StringVar(&cfg.CameraCommand, "camera-command", cfg.CameraCommand, "capture command; {out} is the output path")
	fs.StringVar(&cfg.DCIMMount, "dcim-mount", cfg.DCIMMount, "mount point of a camera card for the dcim device")
	fs.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "capture cache directory")

	fs.StringVar(&cfg.LocationSource, "location", cfg.LocationSource, "location source (static|gpsd)")
	fs.Float64Var(&cfg.StaticLat, "lat", cfg.StaticLat, "static source latitude")
	fs.Float64Var(&cfg.StaticLon, "lon", cfg.StaticLon, "static source longitude")
	fs.Float64Var(&cfg.StaticAccuracy, "accuracy", cfg.StaticAccuracy, "static source accuracy, m")
	fs.StringVar(&cfg.GPSDAddr, "gpsd", cfg.GPSDAddr, "gpsd address")
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "keep a last-known fix fresh in the background")

	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "HTTP listen address")
}

// EnvName is the environment variable that overrides flag name.
func EnvName(flag string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// ApplyEnv sets every flag that was not given on the command line from its
// environment variable, if present.
func ApplyEnv(fs *pflag.FlagSet, lookup func(string) (string, bool)) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		v, ok := lookup(EnvName(f.Name))
		if !ok {
			return
		}
		if err := fs.Set(f.Name, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvName(f.Name), err))
		}
	})
	return errors.Join(errs...)
}

func oneOf(name, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("--%s must be one of %s, got %q", name, strings.Join(allowed, "|"), v)
}

// Validate rejects inconsistent deployments.
func (c Config) Validate() error {
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	check(oneOf("store", c.Store, "sqlite", "firestore"))
	check(oneOf("image-mode", c.ImageMode, "url", "inline"))
	check(oneOf("platform", c.Platform, "android", "ios"))
	check(oneOf("camera", c.Camera, "file", "command", "dcim"))
	check(oneOf("location", c.LocationSource, "static", "gpsd"))

	switch c.Store {
	case "sqlite":
		if c.DBPath == "" {
			check(errors.New("--db is required for the sqlite store"))
		}
	case "firestore":
		if c.ProjectID == "" {
			check(errors.New("--project is required for the firestore store"))
		}
	}

	if c.ImageMode == "url" {
		check(oneOf("object-store", c.ObjectStore, "gcs", "s3"))
		if c.Bucket == "" {
			check(errors.New("--bucket is required in url mode"))
		}
		if c.ObjectStore == "s3" && c.S3Endpoint == "" {
			check(errors.New("--s3-endpoint is required for the s3 object store"))
		}
	}

	if c.Camera == "command" && !strings.Contains(c.CameraCommand, "{out}") {
		check(errors.New("--camera-command must contain {out}"))
	}
	if c.Camera == "dcim" && c.DCIMMount == "" {
		check(errors.New("--dcim-mount is required for the dcim camera"))
	}
	if c.MaxDimension <= 0 {
		check(errors.New("--max-dimension must be positive"))
	}
	if c.Quality < 1 || c.Quality > 100 {
		check(errors.New("--quality must be between 1 and 100"))
	}
	if c.StaticLat < -90 || c.StaticLat > 90 || c.StaticLon < -180 || c.StaticLon > 180 {
		check(errors.New("--lat/--lon out of range"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		check(fmt.Errorf("--tz: %w", err))
	}

	return errors.Join(errs...)
}

// Location returns the configured time zone, UTC if it cannot be loaded.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
