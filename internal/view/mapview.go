package view

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"geosnap/internal/model"
)

const untitledMarker = "Uploaded Image"

// InitialRegion is where a map starts before any markers arrive.
var InitialRegion = Region{Lat: 20.5937, Lon: 78.9629, LatDelta: 10, LonDelta: 10}

type Region struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	LatDelta float64 `json:"latDelta"`
	LonDelta float64 `json:"lonDelta"`
}

type Marker struct {
	ID    string
	Lat   float64
	Lon   float64
	Title string
	Image string
	Time  time.Time
}

// Markers keeps the records that carry coordinates.
func Markers(records []model.PhotoRecord, loc *time.Location) []Marker {
	out := []Marker{}
	for _, r := range records {
		if r.Coordinates == nil {
			continue
		}
		title := untitledMarker
		if !r.CreatedAt.IsZero() {
			title = FormatTime(r.CreatedAt, loc)
		}
		out = append(out, Marker{
			ID:    r.ID,
			Lat:   r.Coordinates.Lat,
			Lon:   r.Coordinates.Lon,
			Title: title,
			Image: r.Image.DataURI(),
			Time:  r.CreatedAt,
		})
	}
	return out
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string     `json:"type"`
	Geometry   Geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
}

type Geometry struct {
	Type string `json:"type"`
	// GeoJSON order: longitude first.
	Coordinates [2]float64 `json:"coordinates"`
}

type Properties struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Image     string     `json:"image"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func GeoJSON(markers []Marker) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(markers))}
	for _, m := range markers {
		f := Feature{
			Type:     "Feature",
			Geometry: Geometry{Type: "Point", Coordinates: [2]float64{m.Lon, m.Lat}},
			Properties: Properties{
				ID:    m.ID,
				Title: m.Title,
				Image: m.Image,
			},
		}
		if !m.Time.IsZero() {
			ts := m.Time.UTC()
			f.Properties.Timestamp = &ts
		}
		fc.Features = append(fc.Features, f)
	}
	return fc
}

func WriteGeoJSON(w io.Writer, markers []Marker) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(GeoJSON(markers))
}

// MapView holds the current marker set and optionally writes each update
// as GeoJSON.
type MapView struct {
	mu      sync.Mutex
	w       io.Writer
	loc     *time.Location
	markers []Marker
	err     error
}

func NewMap(w io.Writer, loc *time.Location) *MapView {
	return &MapView{w: w, loc: loc}
}

func (v *MapView) Render(s model.Snapshot) {
	markers := Markers(s.Records, v.loc)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.markers = markers
	if v.w == nil || v.err != nil {
		return
	}
	v.err = WriteGeoJSON(v.w, markers)
}

func (v *MapView) Markers() []Marker {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Marker(nil), v.markers...)
}

func (v *MapView) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}
