// Package capture drives one photo from the shutter to a persisted record.
//
// A Controller owns a single transient Session and moves through
//
//	idle -> awaiting-permission -> awaiting-capture -> awaiting-location
//	     -> ready-to-upload -> uploading -> idle
//
// Permission and device failures end the capture. A missing location never
// does: the session simply carries no position. A failed upload returns to
// ready-to-upload with the session intact so it can be retried.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"geosnap/internal/apperr"
	"geosnap/internal/camera"
	"geosnap/internal/model"
	"geosnap/internal/pipeline"
	"geosnap/internal/platform"
	"geosnap/internal/prompt"
)

type State string

const (
	StateIdle               State = "idle"
	StateAwaitingPermission State = "awaiting-permission"
	StateAwaitingCapture    State = "awaiting-capture"
	StateAwaitingLocation   State = "awaiting-location"
	StateReadyToUpload      State = "ready-to-upload"
	StateUploading          State = "uploading"
)

var (
	ErrUploadInProgress = errors.New("upload already in progress")
	ErrNoSession        = errors.New("no captured photo to upload")
	ErrBusy             = errors.New("capture already in progress")
)

type Gate interface {
	Profile() platform.Profile
	Require(ctx context.Context, caps ...model.Capability) error
}

type Locator interface {
	GetCurrentPosition(ctx context.Context) (model.Position, error)
}

type Uploader interface {
	Run(ctx context.Context, in pipeline.Input) (model.PhotoRecord, error)
}

type Controller struct {
	gate     Gate
	device   camera.Device
	locator  Locator
	uploader Uploader
	prompter prompt.Prompter
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	session *model.Session
}

func New(gate Gate, device camera.Device, locator Locator, uploader Uploader, p prompt.Prompter, logger *slog.Logger) *Controller {
	return &Controller{
		gate:     gate,
		device:   device,
		locator:  locator,
		uploader: uploader,
		prompter: p,
		logger:   logger.With("component", "capture"),
		state:    StateIdle,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a copy of the current session.
func (c *Controller) Session() (model.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return model.Session{}, false
	}
	return *c.session, true
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transition(s)
}

// transition must be called with mu held.
func (c *Controller) transition(s State) {
	if c.state != s {
		c.logger.Debug("state", "from", c.state, "to", s)
	}
	c.state = s
}

// Capture takes a photo and tries to locate it. A nil session with a nil
// error means the user cancelled. Capturing from ready-to-upload replaces
// the pending session.
func (c *Controller) Capture(ctx context.Context) (*model.Session, error) {
	c.mu.Lock()
	if c.state != StateIdle && c.state != StateReadyToUpload {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.session = nil
	c.transition(StateAwaitingPermission)
	c.mu.Unlock()

	// location is left to the locator, which asks for it at most once
	if err := c.gate.Require(ctx, c.gate.Profile().CaptureCapabilities()...); err != nil {
		c.setState(StateIdle)
		return nil, err
	}

	c.setState(StateAwaitingCapture)
	shot, err := c.device.Capture(ctx)
	if err != nil {
		c.setState(StateIdle)
		return nil, c.deviceFailure(err)
	}
	if shot.Cancelled || shot.URI == "" {
		c.setState(StateIdle)
		c.logger.Info("capture cancelled")
		return nil, nil
	}

	session := &model.Session{LocalImagePath: shot.URI}
	c.mu.Lock()
	c.session = session
	c.transition(StateAwaitingLocation)
	c.mu.Unlock()

	pos, err := c.locator.GetCurrentPosition(ctx)
	c.mu.Lock()
	if err == nil {
		session.Position = &pos
	}
	c.transition(StateReadyToUpload)
	out := *session
	c.mu.Unlock()

	if err != nil {
		c.logger.Info("captured without location", "code", apperr.CodeOf(err), "err", err)
		c.prompter.Notice("Photo captured without location.")
	}
	return &out, nil
}

func (c *Controller) deviceFailure(err error) error {
	msg := "Failed to take photo."
	var de *camera.DeviceError
	if errors.As(err, &de) && de.Message != "" {
		msg = de.Message
	}
	c.prompter.Alert("Camera Error", msg)
	return apperr.Wrap(apperr.CodeDeviceCapture, "capture.device", msg, err)
}

// Upload runs the pipeline for the pending session. While one upload runs
// further calls return ErrUploadInProgress without doing anything.
func (c *Controller) Upload(ctx context.Context) (model.PhotoRecord, error) {
	c.mu.Lock()
	if c.session != nil && c.session.Uploading {
		c.mu.Unlock()
		return model.PhotoRecord{}, ErrUploadInProgress
	}
	if c.state != StateReadyToUpload || c.session == nil {
		c.mu.Unlock()
		return model.PhotoRecord{}, ErrNoSession
	}
	session := c.session
	session.Uploading = true
	c.transition(StateUploading)
	in := pipeline.Input{URI: session.LocalImagePath, Position: session.Position}
	c.mu.Unlock()

	rec, err := c.uploader.Run(ctx, in)

	c.mu.Lock()
	session.Uploading = false
	if err != nil {
		c.transition(StateReadyToUpload)
	} else {
		c.session = nil
		c.transition(StateIdle)
	}
	c.mu.Unlock()

	if err != nil {
		c.prompter.Alert("Upload Failed", apperr.MessageOf(err))
		return model.PhotoRecord{}, err
	}
	c.prompter.Notice("Photo uploaded.")
	return rec, nil
}

// Discard drops the pending session.
func (c *Controller) Discard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.Uploading {
		return ErrUploadInProgress
	}
	if c.state != StateIdle && c.state != StateReadyToUpload {
		return ErrBusy
	}
	c.session = nil
	c.transition(StateIdle)
	return nil
}
