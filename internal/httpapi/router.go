// Package httpapi serves the photos collection over HTTP: a JSON list, a
// GeoJSON map layer, a server-sent event stream of live snapshots and an
// upload endpoint that feeds the pipeline.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"geosnap/internal/model"
	"geosnap/internal/pipeline"
)

type Records interface {
	List(ctx context.Context, q model.Query) ([]model.PhotoRecord, error)
	Subscribe(ctx context.Context, q model.Query, fn func(model.Snapshot)) (func(), error)
}

type Uploader interface {
	Run(ctx context.Context, in pipeline.Input) (model.PhotoRecord, error)
}

type Server struct {
	records  Records
	uploader Uploader
	loc      *time.Location
	logger   *slog.Logger

	// MaxUploadBytes bounds POST /photos bodies.
	MaxUploadBytes int64
	// Heartbeat is how often idle event streams send a comment line.
	Heartbeat time.Duration
}

// New builds the server. uploader may be nil, which disables POST /photos.
func New(records Records, uploader Uploader, loc *time.Location, logger *slog.Logger) *Server {
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		records:        records,
		uploader:       uploader,
		loc:            loc,
		logger:         logger.With("component", "http"),
		MaxUploadBytes: 32 << 20,
		Heartbeat:      15 * time.Second,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods(http.MethodGet)

	r.HandleFunc("/photos", s.listPhotos).Methods(http.MethodGet)
	r.HandleFunc("/photos/stream", s.streamPhotos).Methods(http.MethodGet)
	if s.uploader != nil {
		r.HandleFunc("/photos", s.uploadPhoto).Methods(http.MethodPost)
	}
	r.HandleFunc("/map.geojson", s.mapLayer).Methods(http.MethodGet)
	r.HandleFunc("/map/region", s.mapRegion).Methods(http.MethodGet)

	r.Use(s.logRequests)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start).String())
	})
}
