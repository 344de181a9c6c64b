package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"geosnap/internal/feed"
	"geosnap/internal/model"
	"geosnap/internal/view"
)

// latest is a surface that keeps only the newest undelivered snapshot.
type latest chan model.Snapshot

func (l latest) Render(s model.Snapshot) {
	for {
		select {
		case l <- s:
			return
		default:
		}
		select {
		case <-l:
		default:
		}
	}
}

// streamPhotos sends a "snapshot" event with the full result set whenever
// the collection changes. ?view=map sends GeoJSON instead of the list.
func (s *Server) streamPhotos(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	kind := r.URL.Query().Get("view")
	if kind == "" {
		kind = "list"
	}
	if kind != "list" && kind != "map" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "view must be list or map"})
		return
	}
	q, err := parseQuery(r, kind == "list")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	ctx := r.Context()
	updates := make(latest, 1)
	consumer := feed.NewConsumer("http-"+kind, s.records, q, updates, s.logger)
	if err := consumer.Open(ctx); err != nil {
		s.logger.Error("open stream", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to subscribe"})
		return
	}
	defer consumer.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(s.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap := <-updates:
			var payload any = toPhotoList(snap.Records)
			if kind == "map" {
				payload = view.GeoJSON(view.Markers(snap.Records, s.loc))
			}
			data, err := json.Marshal(payload)
			if err != nil {
				s.logger.Error("encode snapshot", "err", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
