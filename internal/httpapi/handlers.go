package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"geosnap/internal/apperr"
	"geosnap/internal/model"
	"geosnap/internal/pipeline"
	"geosnap/internal/view"
)

// photo mirrors the stored document shape.
type photo struct {
	ID          string             `json:"id"`
	ImageURL    string             `json:"imageUrl,omitempty"`
	ImageBase64 string             `json:"imageBase64,omitempty"`
	Coordinates *model.Coordinates `json:"coordinates,omitempty"`
	Timestamp   *time.Time         `json:"timestamp,omitempty"`
	MapsURL     string             `json:"mapsUrl,omitempty"`
}

func toPhoto(r model.PhotoRecord) photo {
	p := photo{
		ID:          r.ID,
		ImageURL:    r.Image.URL,
		ImageBase64: r.Image.InlineBase64,
		Coordinates: r.Coordinates,
	}
	if !r.CreatedAt.IsZero() {
		ts := r.CreatedAt
		p.Timestamp = &ts
	}
	if r.Coordinates != nil {
		p.MapsURL = r.Coordinates.MapsURL()
	}
	return p
}

type photoList struct {
	Photos []photo `json:"photos"`
}

func toPhotoList(records []model.PhotoRecord) photoList {
	out := photoList{Photos: make([]photo, 0, len(records))}
	for _, r := range records {
		out.Photos = append(out.Photos, toPhoto(r))
	}
	return out
}

// parseQuery reads ?order=newest|oldest and ?since=<duration>. The list
// defaults to newest first, the map to unordered.
func parseQuery(r *http.Request, newestFirst bool) (model.Query, error) {
	q := model.Query{NewestFirst: newestFirst}
	switch r.URL.Query().Get("order") {
	case "":
	case "newest":
		q.NewestFirst = true
	case "oldest":
		q.NewestFirst = false
	default:
		return q, errors.New("order must be newest or oldest")
	}
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return q, fmt.Errorf("invalid since %q", v)
		}
		q.Since = d
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) listPhotos(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, true)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	records, err := s.records.List(r.Context(), q)
	if err != nil {
		s.logger.Error("list photos", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to read photos"})
		return
	}
	writeJSON(w, http.StatusOK, toPhotoList(records))
}

func (s *Server) mapLayer(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	records, err := s.records.List(r.Context(), q)
	if err != nil {
		s.logger.Error("map layer", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to read photos"})
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if err := view.WriteGeoJSON(w, view.Markers(records, s.loc)); err != nil {
		s.logger.Debug("write geojson", "err", err)
	}
}

func (s *Server) mapRegion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, view.InitialRegion)
}

// uploadPhoto accepts a multipart form with an "image" file and optional
// "lat" and "lon" fields and runs it through the pipeline.
func (s *Server) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid upload form"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	pos, err := formPosition(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing image file"})
		return
	}
	defer file.Close()

	dir, err := os.MkdirTemp("", "geosnap-upload-")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to stage upload"})
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filepath.Base(header.Filename))
	if err := stage(path, file); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to stage upload"})
		return
	}

	rec, err := s.uploader.Run(r.Context(), pipeline.Input{URI: path, Position: pos})
	if err != nil {
		status := http.StatusBadGateway
		switch apperr.CodeOf(err) {
		case apperr.CodeFileNotFound, apperr.CodeCompression:
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, errorBody{Error: apperr.MessageOf(err), Code: string(apperr.CodeOf(err))})
		return
	}
	writeJSON(w, http.StatusCreated, toPhoto(rec))
}

func stage(path string, src io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formPosition(r *http.Request) (*model.Position, error) {
	latS, lonS := r.FormValue("lat"), r.FormValue("lon")
	if latS == "" && lonS == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("invalid lat %q", latS)
	}
	lon, err := strconv.ParseFloat(lonS, 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("invalid lon %q", lonS)
	}
	return &model.Position{
		Latitude:   lat,
		Longitude:  lon,
		Accuracy:   model.AccuracyCoarse,
		ResolvedAt: time.Now(),
	}, nil
}
