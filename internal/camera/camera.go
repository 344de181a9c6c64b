// Package camera invokes a capture device. A capture ends in exactly one of
// three ways: the user cancelled, the device reported an error, or a photo
// exists at the returned URI.
package camera

import (
	"context"
	"fmt"
)

// Shot is the outcome of a capture that did not fail.
type Shot struct {
	URI       string
	Cancelled bool
}

// Device captures a single photo.
type Device interface {
	Capture(ctx context.Context) (Shot, error)
}

// DeviceError is a failure reported by the device itself.
type DeviceError struct {
	Code    string
	Message string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("camera %s: %s", e.Code, e.Message)
}

const (
	CodeUnavailable   = "camera_unavailable"
	CodeCaptureFailed = "capture_failed"
	CodeStorage       = "storage_error"
)
