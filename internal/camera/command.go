package camera

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

// exit status shells and most capture tools use for SIGINT
const exitInterrupted = 130

// CommandDevice runs an external capture tool such as
// "libcamera-still -n -o {out}" or "fswebcam {out}". {out} is replaced with
// a fresh path in the cache directory. The tool exiting on an interrupt, or
// exiting cleanly without writing a file, counts as a cancel.
type CommandDevice struct {
	Command   string
	CacheDir  string
	URIPrefix string
	Now       func() time.Time
}

func (d CommandDevice) Capture(ctx context.Context) (Shot, error) {
	fields := strings.Fields(d.Command)
	if len(fields) == 0 {
		return Shot{}, &DeviceError{Code: CodeUnavailable, Message: "no capture command configured"}
	}
	if err := os.MkdirAll(d.CacheDir, 0o755); err != nil {
		return Shot{}, &DeviceError{Code: CodeStorage, Message: err.Error()}
	}

	out := cachePath(d.CacheDir, "capture.jpg", d.Now)
	args := make([]string, 0, len(fields)-1)
	for _, f := range fields[1:] {
		args = append(args, strings.ReplaceAll(f, "{out}", out))
	}

	cmd := exec.CommandContext(ctx, fields[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == exitInterrupted {
			_ = os.Remove(out)
			return Shot{Cancelled: true}, nil
		}
		if ctx.Err() != nil {
			return Shot{}, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return Shot{}, &DeviceError{Code: CodeCaptureFailed, Message: msg}
	}

	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(out)
		return Shot{Cancelled: true}, nil
	}
	return Shot{URI: d.URIPrefix + out}, nil
}
