package main

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/meeraclinic/clinic-ai-platform/internal/voice"
)

// frameSamples is 20ms of audio at 24kHz mono.
const frameSamples = 480

// stdinCapture treats stdin as the microphone: raw s16le 24kHz mono PCM,
// chunked into 20ms frames. Disabled frames are read and discarded so the
// pipe never backs up.
type stdinCapture struct{}

func newStdinCapture() *stdinCapture { return &stdinCapture{} }

func (c *stdinCapture) Open(ctx context.Context, _ voice.MediaConstraints) (voice.AudioStream, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return nil, voice.ErrNoDevice
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		// Interactive terminal, nothing is piping audio in.
		return nil, voice.ErrNoDevice
	}

	s := &stdinStream{
		frames: make(chan []float32, 8),
		done:   make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

type stdinStream struct {
	frames    chan []float32
	enabled   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func (s *stdinStream) Frames() <-chan []float32 { return s.frames }

func (s *stdinStream) SetEnabled(enabled bool) { s.enabled.Store(enabled) }

// Close stops the pump; the frames channel is closed by the pump itself so a
// late read can never race a send.
func (s *stdinStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *stdinStream) pump() {
	defer close(s.frames)
	buf := make([]byte, frameSamples*2)
	for {
		select {
		case <-s.done:
			return
		default:
		}
		if _, err := io.ReadFull(os.Stdin, buf); err != nil {
			return
		}
		if !s.enabled.Load() {
			continue
		}
		frame := make([]float32, frameSamples)
		for i := range frame {
			frame[i] = float32(int16(binary.LittleEndian.Uint16(buf[i*2:]))) / 32768
		}
		select {
		case s.frames <- frame:
		case <-s.done:
			return
		default:
			// Drop the frame rather than stall the reader.
		}
	}
}
