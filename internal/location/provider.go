// Package location resolves geographic fixes for captures.
//
// A Provider is constructed once per process and injected where fixes are
// needed. GetCurrentPosition makes at most two attempts: a high accuracy fix
// with a short timeout and, if that fails for any reason, one relaxed fix
// with a longer timeout that may be served from a recent cached reading.
// An optional watch keeps a last-known fix fresh in the background.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"geosnap/internal/apperr"
	"geosnap/internal/model"
	"geosnap/internal/permission"
	"geosnap/internal/platform"
	"geosnap/internal/prompt"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrTimeout          = errors.New("location request timed out")
	ErrNoFix            = errors.New("no position fix available")
)

// FixRequest describes one attempt.
type FixRequest struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaximumAge is how old a cached reading may be and still be returned.
	MaximumAge time.Duration
}

// Fix is a raw reading from a Source.
type Fix struct {
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
	Time           time.Time
}

// Source is the location subsystem: the OS on a device, gpsd on a Linux
// field unit, or a fixed point.
type Source interface {
	Configure(ctx context.Context) error
	CurrentFix(ctx context.Context, req FixRequest) (Fix, error)
}

// Permissions is the subset of the permission gate the provider uses.
type Permissions interface {
	Profile() platform.Profile
	CheckStatus(ctx context.Context, c model.Capability) (model.PermissionState, error)
	Request(ctx context.Context, c model.Capability) (model.PermissionState, error)
	CheckID(ctx context.Context, id string) (permission.Result, error)
}

type Options struct {
	HighAccuracyTimeout time.Duration
	HighAccuracyMaxAge  time.Duration
	RelaxedTimeout      time.Duration
	RelaxedMaxAge       time.Duration
	WatchInterval       time.Duration
	WatchMaxAge         time.Duration
}

func DefaultOptions() Options {
	return Options{
		HighAccuracyTimeout: 15 * time.Second,
		HighAccuracyMaxAge:  10 * time.Second,
		RelaxedTimeout:      20 * time.Second,
		RelaxedMaxAge:       10 * time.Second,
		WatchInterval:       2 * time.Minute,
		WatchMaxAge:         2 * time.Minute,
	}
}

type Provider struct {
	source   Source
	perms    Permissions
	prompter prompt.Prompter
	settings prompt.Settings
	opts     Options
	logger   *slog.Logger

	setupOnce sync.Once
	setupErr  error

	now func() time.Time

	mu          sync.Mutex
	last        *model.Position
	lastAt      time.Time
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

func NewProvider(source Source, perms Permissions, p prompt.Prompter, s prompt.Settings, opts Options, logger *slog.Logger) *Provider {
	return &Provider{
		source:   source,
		perms:    perms,
		prompter: p,
		settings: s,
		opts:     opts,
		now:      time.Now,
		logger:   logger.With("component", "location"),
	}
}

// Setup configures the source. Only the first call does any work; later
// calls return the first result.
func (p *Provider) Setup(ctx context.Context) error {
	p.setupOnce.Do(func() {
		if err := p.source.Configure(ctx); err != nil {
			p.setupErr = fmt.Errorf("configure location source: %w", err)
			return
		}
		p.logger.Debug("location source configured")
	})
	return p.setupErr
}

// Teardown stops the watch, if any, and releases the source.
func (p *Provider) Teardown() error {
	p.ClearWatch()
	if c, ok := p.source.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// GetCurrentPosition resolves a one-shot fix. Location permission is
// requested at most once per call, and the settings deep link is only
// offered when the platform reports the denial as permanent.
func (p *Provider) GetCurrentPosition(ctx context.Context) (model.Position, error) {
	high := FixRequest{HighAccuracy: true, Timeout: p.opts.HighAccuracyTimeout, MaximumAge: p.opts.HighAccuracyMaxAge}
	fix, err := p.attempt(ctx, high)
	if err == nil {
		return toPosition(fix, model.AccuracyHigh), nil
	}
	p.logger.Debug("high accuracy fix failed, relaxing", "err", err)

	if ctx.Err() != nil {
		return model.Position{}, apperr.Wrap(apperr.CodeLocationUnavailable, "location.current", "location request was abandoned", ctx.Err())
	}

	requested := model.PermissionUnknown
	if errors.Is(err, ErrPermissionDenied) && p.perms != nil {
		state, rerr := p.perms.Request(ctx, model.CapabilityFineLocation)
		if rerr != nil {
			p.logger.Warn("location permission request failed", "err", rerr)
		}
		requested = state
	}

	relaxed := FixRequest{HighAccuracy: false, Timeout: p.opts.RelaxedTimeout, MaximumAge: p.opts.RelaxedMaxAge}
	fix, err = p.attempt(ctx, relaxed)
	if err == nil {
		return toPosition(fix, model.AccuracyCoarse), nil
	}

	switch {
	case errors.Is(err, ErrPermissionDenied):
		if requested == model.PermissionPermanentlyDenied {
			msg := "Please allow location access in your device settings to use this feature."
			if _, serr := prompt.OfferSettings(ctx, p.prompter, p.settings, "Location Permission Required", msg); serr != nil {
				p.logger.Warn("settings deep link failed", "err", serr)
			}
		}
		return model.Position{}, apperr.Wrap(apperr.CodeLocationPermissionDenied, "location.current", "location permission denied", err)
	case errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
		return model.Position{}, apperr.Wrap(apperr.CodeLocationTimeout, "location.current", "timed out waiting for a location fix", err)
	}
	return model.Position{}, apperr.Wrap(apperr.CodeLocationUnavailable, "location.current", "location is unavailable", err)
}

func (p *Provider) attempt(ctx context.Context, req FixRequest) (Fix, error) {
	if p.perms != nil {
		state, err := p.perms.CheckStatus(ctx, model.CapabilityFineLocation)
		if err != nil {
			return Fix{}, err
		}
		if !state.Granted() {
			return Fix{}, ErrPermissionDenied
		}
	}

	if !req.HighAccuracy {
		if fix, ok := p.cachedFix(req.MaximumAge); ok {
			p.logger.Debug("relaxed fix served from watch cache", "resolved_at", fix.Time)
			return fix, nil
		}
	}

	actx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	fix, err := p.source.CurrentFix(actx, req)
	if err != nil && actx.Err() != nil && ctx.Err() == nil {
		return Fix{}, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fix, err
}

// cachedFix returns the watch's last reading if it was taken within maxAge.
func (p *Provider) cachedFix(maxAge time.Duration) (Fix, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil || maxAge <= 0 || p.now().Sub(p.lastAt) > maxAge {
		return Fix{}, false
	}
	return Fix{
		Latitude:       p.last.Latitude,
		Longitude:      p.last.Longitude,
		AccuracyMeters: p.last.AccuracyMeters,
		Time:           p.last.ResolvedAt,
	}, true
}

// LastKnown returns the most recent fix recorded by the watch.
func (p *Provider) LastKnown() (model.Position, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return model.Position{}, false
	}
	return *p.last, true
}

// Status is the answer of the read-only permission query.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusGranted Status = "granted"
	StatusDenied  Status = "denied"
)

// CheckCurrentStatus reports whether location may be used without asking.
// Unknown means every checked variant says the platform cannot tell yet.
func (p *Provider) CheckCurrentStatus(ctx context.Context) Status {
	if p.perms == nil {
		return StatusGranted
	}
	variants := p.perms.Profile().LocationStatusVariants
	unavailable := 0
	for _, id := range variants {
		res, err := p.perms.CheckID(ctx, id)
		if err != nil {
			return StatusDenied
		}
		switch res {
		case permission.ResultGranted:
			return StatusGranted
		case permission.ResultUnavailable:
			unavailable++
		}
	}
	if len(variants) > 0 && unavailable == len(variants) {
		return StatusUnknown
	}
	return StatusDenied
}

func toPosition(f Fix, tier model.AccuracyTier) model.Position {
	return model.Position{
		Latitude:       f.Latitude,
		Longitude:      f.Longitude,
		Accuracy:       tier,
		AccuracyMeters: f.AccuracyMeters,
		ResolvedAt:     f.Time,
	}
}
