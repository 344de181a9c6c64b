// Package apperr defines the error taxonomy shared by the capture flow.
//
// Every failure that reaches a user carries a Code. Adapters wrap their
// transport errors with fmt.Errorf and the component boundary converts
// them into an *Error so callers can branch with errors.As or CodeOf.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodePermissionDenied            Code = "PERMISSION_DENIED"
	CodePermissionPermanentlyDenied Code = "PERMISSION_PERMANENTLY_DENIED"
	CodeDeviceCapture               Code = "DEVICE_CAPTURE_ERROR"
	CodeLocationTimeout             Code = "LOCATION_TIMEOUT"
	CodeLocationPermissionDenied    Code = "LOCATION_PERMISSION_DENIED"
	CodeLocationUnavailable         Code = "LOCATION_UNAVAILABLE"
	CodeFileNotFound                Code = "FILE_NOT_FOUND"
	CodeCompression                 Code = "COMPRESSION_FAILURE"
	CodeUploadTransport             Code = "UPLOAD_TRANSPORT_FAILURE"
	CodePersistence                 Code = "PERSISTENCE_FAILURE"
)

// Error is a classified failure.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op names the operation or stage that failed, e.g. "pipeline.compress".
	Op string

	// Message is shown to the user.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Code, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code so sentinel-style comparisons work:
// errors.Is(err, &apperr.Error{Code: apperr.CodeFileNotFound}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Op == "" && t.Message == ""
}

func New(code Code, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message}
}

func Wrap(code Code, op, message string, err error) *Error {
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MessageOf returns the user facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func IsPermission(err error) bool {
	c := CodeOf(err)
	return c == CodePermissionDenied || c == CodePermissionPermanentlyDenied
}

func IsLocation(err error) bool {
	switch CodeOf(err) {
	case CodeLocationTimeout, CodeLocationPermissionDenied, CodeLocationUnavailable:
		return true
	}
	return false
}

// IsPipeline reports failures raised from the existence check onward.
func IsPipeline(err error) bool {
	switch CodeOf(err) {
	case CodeFileNotFound, CodeCompression, CodeUploadTransport, CodePersistence:
		return true
	}
	return false
}
