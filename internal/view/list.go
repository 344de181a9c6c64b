// Package view renders photo snapshots as a chronological list and as map
// markers.
package view

import (
	"fmt"
	"io"
	"sync"
	"time"

	"geosnap/internal/model"
)

const (
	TimeLayout  = "2006-01-02 15:04:05 MST"
	unknownTime = "Unknown time"
)

// FormatTime renders a record timestamp; the zero time is a write whose
// server timestamp has not been assigned yet.
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return unknownTime
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimeLayout)
}

// WriteList writes one block per record in the order given.
func WriteList(w io.Writer, records []model.PhotoRecord, loc *time.Location) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No photos yet.")
		return err
	}
	for i, r := range records {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := writeRow(w, r, loc); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(w io.Writer, r model.PhotoRecord, loc *time.Location) error {
	var err error
	printf := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	printf("%s\n", FormatTime(r.CreatedAt, loc))
	if r.Coordinates != nil {
		printf("  Lat: %g, Lon: %g\n", r.Coordinates.Lat, r.Coordinates.Lon)
		printf("  Open in Google Maps: %s\n", r.Coordinates.MapsURL())
	}
	if r.Image.InlineBase64 != "" {
		printf("  Image: inline JPEG (%d base64 chars)\n", len(r.Image.InlineBase64))
	} else {
		printf("  Image: %s\n", r.Image.URL)
	}
	return err
}

// ListView prints every snapshot it receives.
type ListView struct {
	mu  sync.Mutex
	w   io.Writer
	loc *time.Location
	err error
}

func NewList(w io.Writer, loc *time.Location) *ListView {
	return &ListView{w: w, loc: loc}
}

func (v *ListView) Render(s model.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return
	}
	if _, err := fmt.Fprintf(v.w, "== %d photo(s) at %s ==\n", len(s.Records), FormatTime(s.ReadAt, v.loc)); err != nil {
		v.err = err
		return
	}
	v.err = WriteList(v.w, s.Records, v.loc)
}

// Err reports the first write failure; rendering stops after it.
func (v *ListView) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}
