package location

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"sync"
	"time"
)

// GPSDSource reads fixes from a gpsd daemon over its JSON protocol.
type GPSDSource struct {
	Addr string

	mu     sync.Mutex
	cached *gpsdReading
}

type gpsdReading struct {
	fix  Fix
	mode int
}

// tpv is the subset of a gpsd TPV report we use.
type tpv struct {
	Class string    `json:"class"`
	Mode  int       `json:"mode"`
	Time  time.Time `json:"time"`
	Lat   float64   `json:"lat"`
	Lon   float64   `json:"lon"`
	EPX   float64   `json:"epx"`
	EPY   float64   `json:"epy"`
}

const (
	gpsdMode2D = 2
	gpsdMode3D = 3
)

func NewGPSDSource(addr string) *GPSDSource {
	return &GPSDSource{Addr: addr}
}

// Configure checks that gpsd answers with its VERSION banner.
func (g *GPSDSource) Configure(ctx context.Context) error {
	conn, err := g.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	sc := bufio.NewScanner(conn)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return fmt.Errorf("gpsd banner: %w", err)
		}
		return fmt.Errorf("gpsd closed the connection")
	}
	var banner struct {
		Class string `json:"class"`
	}
	if err := json.Unmarshal(sc.Bytes(), &banner); err != nil || banner.Class != "VERSION" {
		return fmt.Errorf("unexpected gpsd banner %q", sc.Text())
	}
	return nil
}

// CurrentFix returns a cached reading younger than req.MaximumAge or waits
// for the next report good enough for the requested accuracy: a 3D fix
// for high accuracy, 2D otherwise.
func (g *GPSDSource) CurrentFix(ctx context.Context, req FixRequest) (Fix, error) {
	minMode := gpsdMode2D
	if req.HighAccuracy {
		minMode = gpsdMode3D
	}

	if f, ok := g.fromCache(req.MaximumAge, minMode); ok {
		return f, nil
	}

	conn, err := g.dial(ctx)
	if err != nil {
		return Fix{}, err
	}
	defer conn.Close()

	// unblock the scanner when the caller gives up
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	if _, err := conn.Write([]byte(`?WATCH={"enable":true,"json":true};` + "\n")); err != nil {
		return Fix{}, fmt.Errorf("gpsd watch: %w", err)
	}

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		var r tpv
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil || r.Class != "TPV" {
			continue
		}
		if r.Mode < minMode {
			continue
		}
		f := Fix{
			Latitude:       r.Lat,
			Longitude:      r.Lon,
			AccuracyMeters: math.Max(r.EPX, r.EPY),
			Time:           r.Time,
		}
		if f.Time.IsZero() {
			f.Time = time.Now()
		}
		g.store(f, r.Mode)
		return f, nil
	}
	if ctx.Err() != nil {
		return Fix{}, ctx.Err()
	}
	if err := sc.Err(); err != nil {
		return Fix{}, fmt.Errorf("gpsd read: %w", err)
	}
	return Fix{}, ErrNoFix
}

func (g *GPSDSource) dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", g.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial gpsd %s: %w", g.Addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	return conn, nil
}

func (g *GPSDSource) fromCache(maxAge time.Duration, minMode int) (Fix, bool) {
	if maxAge <= 0 {
		return Fix{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cached == nil || g.cached.mode < minMode {
		return Fix{}, false
	}
	if time.Since(g.cached.fix.Time) > maxAge {
		return Fix{}, false
	}
	return g.cached.fix, true
}

func (g *GPSDSource) store(f Fix, mode int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cached = &gpsdReading{fix: f, mode: mode}
}
