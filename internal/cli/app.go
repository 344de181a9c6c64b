package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"geosnap/internal/camera"
	"geosnap/internal/capture"
	"geosnap/internal/config"
	"geosnap/internal/firestoredb"
	"geosnap/internal/gcs"
	"geosnap/internal/imaging"
	"geosnap/internal/location"
	"geosnap/internal/model"
	"geosnap/internal/permission"
	"geosnap/internal/pipeline"
	"geosnap/internal/platform"
	"geosnap/internal/prompt"
	"geosnap/internal/s3"
	"geosnap/internal/store"
)

// recordStore is what both document store adapters provide.
type recordStore interface {
	Add(ctx context.Context, rec model.NewRecord) (model.PhotoRecord, error)
	List(ctx context.Context, q model.Query) ([]model.PhotoRecord, error)
	Subscribe(ctx context.Context, q model.Query, fn func(model.Snapshot)) (func(), error)
}

// app is the wired object graph for one command invocation.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	profile  platform.Profile
	prompter prompt.Prompter
	settings prompt.Settings
	gate     *permission.Gate
	records  recordStore

	closers []func() error
}

func openApp(ctx context.Context, opts *RootOptions, in io.Reader, out io.Writer) (*app, error) {
	cfg := opts.Config
	profile, err := platform.For(platform.Name(cfg.Platform), cfg.OSVersion)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   opts.Logger,
		profile:  profile,
		prompter: prompt.NewTerminal(in, out),
	}
	if cfg.SettingsCommand != "" {
		a.settings = prompt.CommandSettings{Command: cfg.SettingsCommand, Target: cfg.GrantsFile}
	}
	a.gate = permission.NewGate(profile, permission.NewFileBackend(cfg.GrantsFile, a.prompter), a.prompter, a.settings, a.logger)

	if err := a.openRecords(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openRecords(ctx context.Context) error {
	switch a.cfg.Store {
	case "firestore":
		client, err := firestoredb.NewClient(ctx, firestoredb.ClientOptions{
			ProjectID:       a.cfg.ProjectID,
			CredentialsFile: a.cfg.CredsJSON,
		})
		if err != nil {
			return fmt.Errorf("firestore client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.records = firestoredb.New(client, a.cfg.Collection, a.cfg.ImageMode == string(pipeline.ModeInline), a.logger)
	default:
		s, err := store.Open(a.cfg.DBPath, a.logger)
		if err != nil {
			return fmt.Errorf("open DB: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		a.records = s
	}
	return nil
}

func (a *app) encoder(ctx context.Context) (pipeline.Encoder, error) {
	mode, err := pipeline.ParseMode(a.cfg.ImageMode)
	if err != nil {
		return nil, err
	}
	if mode == pipeline.ModeInline {
		return pipeline.InlineEncoder{}, nil
	}

	switch a.cfg.ObjectStore {
	case "s3":
		u, err := s3.New(s3.Options{
			Endpoint:      a.cfg.S3Endpoint,
			AccessKey:     a.cfg.S3AccessKey,
			SecretKey:     a.cfg.S3SecretKey,
			UseSSL:        a.cfg.S3UseSSL,
			Region:        a.cfg.S3Region,
			Bucket:        a.cfg.Bucket,
			PublicBaseURL: a.cfg.S3PublicURL,
			PresignExpiry: a.cfg.S3URLExpiry,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		if err := u.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return pipeline.ObjectEncoder{Store: u}, nil
	default:
		client, err := gcs.NewClient(ctx, a.cfg.Bucket, gcs.ClientOptions{
			CredentialsFile: a.cfg.CredsJSON,
			Endpoint:        a.cfg.GCSEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("GCS client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		u := gcs.NewUploader(client, a.cfg.Bucket, a.logger)
		if a.cfg.GCSEndpoint != "" {
			u.BaseURL = a.cfg.GCSEndpoint
		}
		return pipeline.ObjectEncoder{Store: u}, nil
	}
}

func (a *app) pipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	enc, err := a.encoder(ctx)
	if err != nil {
		return nil, err
	}
	opts := imaging.Options{MaxDimension: a.cfg.MaxDimension, Quality: a.cfg.Quality}
	return pipeline.New(a.profile, enc, a.records, opts, a.logger), nil
}

// locator sets up the configured location source. The caller owns the
// provider's Teardown.
func (a *app) locator(ctx context.Context) (*location.Provider, error) {
	var src location.Source
	switch a.cfg.LocationSource {
	case "gpsd":
		src = location.NewGPSDSource(a.cfg.GPSDAddr)
	default:
		src = location.StaticSource{
			Latitude:       a.cfg.StaticLat,
			Longitude:      a.cfg.StaticLon,
			AccuracyMeters: a.cfg.StaticAccuracy,
		}
	}
	p := location.NewProvider(src, a.gate, a.prompter, a.settings, location.DefaultOptions(), a.logger)
	if err := p.Setup(ctx); err != nil {
		return nil, err
	}
	if a.cfg.Watch {
		p.Watch(ctx)
	}
	return p, nil
}

func (a *app) device(source string) camera.Device {
	switch a.cfg.Camera {
	case "command":
		return camera.CommandDevice{
			Command:   a.cfg.CameraCommand,
			CacheDir:  a.cfg.CacheDir,
			URIPrefix: a.profile.URIPrefix,
		}
	case "dcim":
		return camera.DCIMDevice{
			MountPoint: a.cfg.DCIMMount,
			CacheDir:   a.cfg.CacheDir,
			URIPrefix:  a.profile.URIPrefix,
		}
	}
	return camera.FileDevice{
		Source:    source,
		CacheDir:  a.cfg.CacheDir,
		URIPrefix: a.profile.URIPrefix,
	}
}

func (a *app) controller(ctx context.Context, source string) (*capture.Controller, *location.Provider, error) {
	pl, err := a.pipeline(ctx)
	if err != nil {
		return nil, nil, err
	}
	provider, err := a.locator(ctx)
	if err != nil {
		return nil, nil, err
	}
	return capture.New(a.gate, a.device(source), provider, pl, a.prompter, a.logger), provider, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
