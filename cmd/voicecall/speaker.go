package main

import (
	"io"
	"os"
)

// stdoutSpeaker writes assistant audio to stdout as raw 16-bit little-endian
// PCM at 24kHz mono, so the binary can be piped straight into a player.
// Status text goes to stderr to keep the audio stream clean.
type stdoutSpeaker struct {
	w io.Writer
}

func newStdoutSpeaker() *stdoutSpeaker {
	return &stdoutSpeaker{w: os.Stdout}
}

func (s *stdoutSpeaker) Play(pcm []byte) error {
	_, err := s.w.Write(pcm)
	return err
}

func (s *stdoutSpeaker) Close() error { return nil }
