// Package store is a SQLite-backed photos collection for single-host and
// development deployments. It offers the same Add and Subscribe surface as
// the Firestore adapter: writes get a store-assigned id and timestamp, and
// every subscriber receives the full result set after each write.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"geosnap/internal/model"
)

var (
	ErrInvalidImage = errors.New("record must carry exactly one image representation")
	ErrMixedImages  = errors.New("image representation differs from the rest of the collection")
)

const (
	imageModeKey = "image_mode"
	modeURL      = "url"
	modeInline   = "inline"
)

type Store struct {
	db     *sql.DB
	hub    *hub
	logger *slog.Logger
	now    func() time.Time
}

func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	// single writer; keeps created_at assignment serialized
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := Init(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:     db,
		logger: logger.With("component", "store"),
		now:    time.Now,
	}
	s.hub = newHub(s, s.logger)
	return s, nil
}

// SetClock replaces the time source used for created_at.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Close() error {
	s.hub.closeAll()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add persists rec. created_at is the store's clock, raised if needed so
// it never goes below the newest existing record.
func (s *Store) Add(ctx context.Context, rec model.NewRecord) (model.PhotoRecord, error) {
	if !rec.Image.Valid() {
		return model.PhotoRecord{}, ErrInvalidImage
	}
	mode := modeURL
	if rec.Image.InlineBase64 != "" {
		mode = modeInline
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.PhotoRecord{}, fmt.Errorf("record id: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.PhotoRecord{}, err
	}
	defer tx.Rollback()

	if err := claimMode(ctx, tx, mode); err != nil {
		return model.PhotoRecord{}, err
	}

	var newest sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(created_at) FROM photos`).Scan(&newest); err != nil {
		return model.PhotoRecord{}, fmt.Errorf("read newest: %w", err)
	}
	createdAt := s.now().UnixNano()
	if newest.Valid && newest.Int64 > createdAt {
		createdAt = newest.Int64
	}

	var lat, lon sql.NullFloat64
	if rec.Coordinates != nil {
		lat = sql.NullFloat64{Float64: rec.Coordinates.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: rec.Coordinates.Lon, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO photos (id, image_url, image_base64, lat, lon, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), nullString(rec.Image.URL), nullString(rec.Image.InlineBase64), lat, lon, createdAt,
	)
	if err != nil {
		return model.PhotoRecord{}, fmt.Errorf("insert photo: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.PhotoRecord{}, fmt.Errorf("commit photo: %w", err)
	}

	out := model.PhotoRecord{
		ID:          id.String(),
		Image:       rec.Image,
		Coordinates: rec.Coordinates,
		CreatedAt:   time.Unix(0, createdAt).UTC(),
	}
	s.hub.notify()
	return out, nil
}

// claimMode records the collection's image representation on first write
// and rejects records that use the other one afterwards.
func claimMode(ctx context.Context, tx *sql.Tx, mode string) error {
	var existing string
	err := tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, imageModeKey).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, imageModeKey, mode)
		return err
	case err != nil:
		return fmt.Errorf("read image mode: %w", err)
	case existing != mode:
		return fmt.Errorf("%w: collection stores %s, record is %s", ErrMixedImages, existing, mode)
	}
	return nil
}

// List returns the records matching q.
func (s *Store) List(ctx context.Context, q model.Query) ([]model.PhotoRecord, error) {
	query := `SELECT id, image_url, image_base64, lat, lon, created_at FROM photos`
	var args []any
	if q.Since > 0 {
		query += ` WHERE created_at >= ?`
		args = append(args, s.now().Add(-q.Since).UnixNano())
	}
	if q.NewestFirst {
		query += ` ORDER BY created_at DESC, id DESC`
	} else {
		query += ` ORDER BY created_at ASC, id ASC`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.PhotoRecord{}
	for rows.Next() {
		var (
			r        model.PhotoRecord
			url, b64 sql.NullString
			lat, lon sql.NullFloat64
			created  int64
		)
		if err := rows.Scan(&r.ID, &url, &b64, &lat, &lon, &created); err != nil {
			return nil, err
		}
		r.Image = model.ImageRef{URL: url.String, InlineBase64: b64.String}
		if lat.Valid && lon.Valid {
			r.Coordinates = &model.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos`).Scan(&n)
	return n, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
