// Package permission gates the capture flow on OS capability grants.
//
// The gate speaks in capabilities (camera, fine-location, media-storage)
// and leaves the mapping to OS identifiers to the platform profile. The
// Backend is whatever actually owns the grants: the OS on a device, a
// grants file for the CLI, a stub in tests.
package permission

import (
	"context"
	"fmt"
	"log/slog"

	"geosnap/internal/apperr"
	"geosnap/internal/model"
	"geosnap/internal/platform"
	"geosnap/internal/prompt"
)

// Result is the raw answer of a backend.
type Result string

const (
	ResultGranted     Result = "granted"
	ResultDenied      Result = "denied"
	ResultBlocked     Result = "blocked"
	ResultUnavailable Result = "unavailable"
)

// Backend queries and requests OS level permissions by identifier.
type Backend interface {
	Check(ctx context.Context, id string) (Result, error)
	Request(ctx context.Context, id string) (Result, error)
}

type Gate struct {
	profile  platform.Profile
	backend  Backend
	prompter prompt.Prompter
	settings prompt.Settings
	logger   *slog.Logger
}

func NewGate(profile platform.Profile, backend Backend, p prompt.Prompter, s prompt.Settings, logger *slog.Logger) *Gate {
	return &Gate{
		profile:  profile,
		backend:  backend,
		prompter: p,
		settings: s,
		logger:   logger.With("component", "permission"),
	}
}

func (g *Gate) Profile() platform.Profile {
	return g.profile
}

// CheckStatus reads the current state without prompting. Capabilities the
// platform does not gate are reported granted.
func (g *Gate) CheckStatus(ctx context.Context, c model.Capability) (model.PermissionState, error) {
	id, ok := g.profile.PermissionID(c)
	if !ok {
		return model.PermissionGranted, nil
	}
	res, err := g.backend.Check(ctx, id)
	if err != nil {
		return model.PermissionUnknown, fmt.Errorf("check %s: %w", id, err)
	}
	state := classify(res)
	if state == model.PermissionPermanentlyDenied && !g.profile.ReportsPermanentDenialOnCheck {
		// this platform cannot tell from a check; only a request may say so
		state = model.PermissionDenied
	}
	return state, nil
}

// Request asks for c, prompting the user if the OS decides to.
func (g *Gate) Request(ctx context.Context, c model.Capability) (model.PermissionState, error) {
	id, ok := g.profile.PermissionID(c)
	if !ok {
		return model.PermissionGranted, nil
	}
	res, err := g.backend.Request(ctx, id)
	if err != nil {
		return model.PermissionUnknown, fmt.Errorf("request %s: %w", id, err)
	}
	state := classify(res)
	g.logger.Debug("permission requested", "capability", c, "id", id, "state", state)
	return state, nil
}

// Require requests every capability in order and stops at the first that
// is not granted. The user is alerted; for a permanent denial the settings
// deep link is offered as well.
func (g *Gate) Require(ctx context.Context, caps ...model.Capability) error {
	for _, c := range caps {
		state, err := g.Request(ctx, c)
		if err != nil {
			g.prompter.Alert("Permission Error", "Failed to request permissions.")
			return apperr.Wrap(apperr.CodePermissionDenied, "permission.require", "failed to request "+string(c)+" permission", err)
		}
		switch state {
		case model.PermissionGranted:
			continue
		case model.PermissionPermanentlyDenied:
			msg := fmt.Sprintf("%s access was turned off. Enable it in settings to continue.", c)
			g.prompter.Alert("Permission Denied", msg)
			if _, err := prompt.OfferSettings(ctx, g.prompter, g.settings, "Permission Required", msg); err != nil {
				g.logger.Warn("settings deep link failed", "err", err)
			}
			return apperr.New(apperr.CodePermissionPermanentlyDenied, "permission.require", msg)
		default:
			msg := fmt.Sprintf("%s permission is required.", c)
			g.prompter.Alert("Permission Denied", msg)
			return apperr.New(apperr.CodePermissionDenied, "permission.require", msg)
		}
	}
	return nil
}

func classify(r Result) model.PermissionState {
	switch r {
	case ResultGranted:
		return model.PermissionGranted
	case ResultBlocked:
		return model.PermissionPermanentlyDenied
	case ResultDenied:
		return model.PermissionDenied
	}
	return model.PermissionUnknown
}

// CheckID queries a raw OS identifier, for callers that need to tell
// "unavailable" apart from "denied".
func (g *Gate) CheckID(ctx context.Context, id string) (Result, error) {
	return g.backend.Check(ctx, id)
}
