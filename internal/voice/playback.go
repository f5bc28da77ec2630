package voice

// PlaybackSink receives assistant audio for local playback. The session
// writes each inbound PCM16 frame exactly once, in arrival order, after the
// speech detector has observed it. Close is called during teardown, before
// the capture stream is released.
type PlaybackSink interface {
	Play(pcm []byte) error
	Close() error
}
