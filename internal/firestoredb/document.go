package firestoredb

import (
	"time"

	"cloud.google.com/go/firestore"

	"geosnap/internal/model"
)

const fieldTimestamp = "timestamp"

// document is the stored shape of a photo:
// {imageUrl?, imageBase64?, coordinates?: {lat, lon}, timestamp}
type document struct {
	ImageURL    string       `firestore:"imageUrl,omitempty"`
	ImageBase64 string       `firestore:"imageBase64,omitempty"`
	Coordinates *coordinates `firestore:"coordinates,omitempty"`
	// Zero while the server timestamp of a local write is pending.
	Timestamp time.Time `firestore:"timestamp"`
}

type coordinates struct {
	Lat float64 `firestore:"lat"`
	Lon float64 `firestore:"lon"`
}

func newDocument(rec model.NewRecord) map[string]any {
	m := map[string]any{
		fieldTimestamp: firestore.ServerTimestamp,
	}
	if rec.Image.URL != "" {
		m["imageUrl"] = rec.Image.URL
	}
	if rec.Image.InlineBase64 != "" {
		m["imageBase64"] = rec.Image.InlineBase64
	}
	if rec.Coordinates != nil {
		m["coordinates"] = map[string]any{
			"lat": rec.Coordinates.Lat,
			"lon": rec.Coordinates.Lon,
		}
	}
	return m
}

func (d document) record(id string) model.PhotoRecord {
	r := model.PhotoRecord{
		ID:    id,
		Image: model.ImageRef{URL: d.ImageURL, InlineBase64: d.ImageBase64},
	}
	if d.Coordinates != nil {
		r.Coordinates = &model.Coordinates{Lat: d.Coordinates.Lat, Lon: d.Coordinates.Lon}
	}
	if !d.Timestamp.IsZero() {
		r.CreatedAt = d.Timestamp.UTC()
	}
	return r
}
