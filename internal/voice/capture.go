package voice

import (
	"context"
	"errors"
)

// MediaConstraints are the capture settings requested from the device.
type MediaConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	SampleRate       int
	Channels         int
}

// DefaultConstraints matches the realtime API's expected input: mono 24kHz
// with the usual voice processing enabled.
func DefaultConstraints() MediaConstraints {
	return MediaConstraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
		SampleRate:       24000,
		Channels:         1,
	}
}

// Sentinel errors CaptureDevice implementations return so failures can be
// classified for the caller.
var (
	ErrPermissionDenied = errors.New("voice: microphone permission denied")
	ErrNoDevice         = errors.New("voice: no capture device found")
	ErrNotSupported     = errors.New("voice: capture not supported")
	ErrInsecureContext  = errors.New("voice: secure context required")
)

// AudioStream delivers captured PCM frames as float32 samples in [-1, 1].
// Frames stops when the stream is closed.
type AudioStream interface {
	Frames() <-chan []float32
	SetEnabled(enabled bool)
	Close() error
}

// CaptureDevice opens microphone streams. The concrete device is
// platform-specific and injected at session construction.
type CaptureDevice interface {
	Open(ctx context.Context, constraints MediaConstraints) (AudioStream, error)
}

// ClassifyCaptureError maps device failures onto session failure kinds.
func ClassifyCaptureError(err error) *SessionError {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return newSessionError(FailurePermissionDenied, err)
	case errors.Is(err, ErrNoDevice):
		return newSessionError(FailureNoDevice, err)
	case errors.Is(err, ErrNotSupported):
		return newSessionError(FailureUnsupported, err)
	case errors.Is(err, ErrInsecureContext):
		return newSessionError(FailureInsecureContext, err)
	default:
		return newSessionError(FailureUnknown, err)
	}
}
