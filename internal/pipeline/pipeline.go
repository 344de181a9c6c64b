// Package pipeline turns a captured photo into a persisted PhotoRecord.
//
// Stages run in order and each one gates the next:
//
//	normalize -> exists -> compress -> encode -> persist
//
// Persistence is the last stage, so a failure anywhere leaves no record
// behind. Nothing is retried here; the caller keeps its session and may
// run the pipeline again.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"geosnap/internal/apperr"
	"geosnap/internal/imaging"
	"geosnap/internal/model"
	"geosnap/internal/platform"
)

// Encoder produces the image reference stored on the record. One encoder
// is chosen per deployment.
type Encoder interface {
	Mode() Mode
	Encode(ctx context.Context, name string, jpeg []byte) (model.ImageRef, error)
}

// RecordWriter persists records. The store assigns ID and CreatedAt.
type RecordWriter interface {
	Add(ctx context.Context, rec model.NewRecord) (model.PhotoRecord, error)
}

// Input is what a capture session hands over.
type Input struct {
	URI      string
	Position *model.Position
}

type Pipeline struct {
	profile platform.Profile
	encoder Encoder
	records RecordWriter
	imaging imaging.Options
	logger  *slog.Logger
	now     func() time.Time
}

func New(profile platform.Profile, enc Encoder, records RecordWriter, opts imaging.Options, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		profile: profile,
		encoder: enc,
		records: records,
		imaging: opts,
		logger:  logger.With("component", "pipeline", "mode", enc.Mode()),
		now:     time.Now,
	}
}

func (p *Pipeline) Run(ctx context.Context, in Input) (model.PhotoRecord, error) {
	start := p.now()

	path := p.profile.NormalizePath(in.URI)
	if path == "" {
		return model.PhotoRecord{}, apperr.New(apperr.CodeFileNotFound, "pipeline.normalize", "no photo to upload")
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.PhotoRecord{}, apperr.Wrap(apperr.CodeFileNotFound, "pipeline.exists", "Image file does not exist", err)
		}
		return model.PhotoRecord{}, apperr.Wrap(apperr.CodeFileNotFound, "pipeline.exists", "Image file is not readable", err)
	}
	if info.IsDir() {
		return model.PhotoRecord{}, apperr.New(apperr.CodeFileNotFound, "pipeline.exists", path+" is not a file")
	}

	img, err := imaging.CompressFile(path, p.imaging)
	if err != nil {
		return model.PhotoRecord{}, apperr.Wrap(apperr.CodeCompression, "pipeline.compress", "Failed to compress photo", err)
	}
	p.logger.Debug("compressed", "path", path, "from", info.Size(), "to", len(img.Data), "w", img.Width, "h", img.Height)

	name := ObjectName(path, p.now)
	ref, err := p.encoder.Encode(ctx, name, img.Data)
	if err != nil {
		return model.PhotoRecord{}, apperr.Wrap(apperr.CodeUploadTransport, "pipeline.encode", "Failed to upload photo", err)
	}
	if !ref.Valid() {
		return model.PhotoRecord{}, apperr.New(apperr.CodeUploadTransport, "pipeline.encode", "encoder returned no image reference")
	}

	var coords *model.Coordinates
	if in.Position != nil {
		coords = in.Position.Coordinates()
	}

	rec, err := p.records.Add(ctx, model.NewRecord{Image: ref, Coordinates: coords})
	if err != nil {
		return model.PhotoRecord{}, apperr.Wrap(apperr.CodePersistence, "pipeline.persist", "Failed to save photo", err)
	}

	p.logger.Info("photo persisted",
		"id", rec.ID,
		"object", name,
		"located", coords != nil,
		"dur", p.now().Sub(start).String(),
	)
	return rec, nil
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("pipeline(%s, %s)", p.profile.Name, p.encoder.Mode())
}
