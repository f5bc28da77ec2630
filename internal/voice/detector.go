package voice

import "time"

// DefaultEnergyFloor is the normalized mean amplitude below which a frame
// counts as silence.
const DefaultEnergyFloor = 0.01

// DefaultSilenceWindow is how long energy must stay below the floor before
// speech is considered finished.
const DefaultSilenceWindow = 500 * time.Millisecond

// SpeechDetector tracks whether the assistant is currently producing audible
// output, from the energy of its PCM frames. Speech starts on the first loud
// frame; it ends only after a full silence window, so brief pauses between
// words do not flap the state.
type SpeechDetector struct {
	floor  float64
	window time.Duration
	now    func() time.Time

	speaking  bool
	lastAbove time.Time
}

// NewSpeechDetector creates a detector. Zero values take the defaults.
func NewSpeechDetector(floor float64, window time.Duration, now func() time.Time) *SpeechDetector {
	if floor <= 0 {
		floor = DefaultEnergyFloor
	}
	if window <= 0 {
		window = DefaultSilenceWindow
	}
	if now == nil {
		now = time.Now
	}
	return &SpeechDetector{floor: floor, window: window, now: now}
}

// Observe folds one frame into the detector and reports the speaking state.
func (d *SpeechDetector) Observe(frame []int16) bool {
	if energy(frame) >= d.floor {
		d.speaking = true
		d.lastAbove = d.now()
		return true
	}
	if d.speaking && d.now().Sub(d.lastAbove) >= d.window {
		d.speaking = false
	}
	return d.speaking
}

// Speaking reports the current state without observing a frame. Time still
// advances: a stalled stream goes silent once the window elapses.
func (d *SpeechDetector) Speaking() bool {
	if d.speaking && d.now().Sub(d.lastAbove) >= d.window {
		d.speaking = false
	}
	return d.speaking
}

// Reset returns the detector to silence immediately.
func (d *SpeechDetector) Reset() {
	d.speaking = false
}

// energy is the mean absolute amplitude normalized to [0, 1].
func energy(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		v := float64(s)
		if v < 0 {
			v = -v
		}
		sum += v
	}
	return sum / float64(len(frame)) / 32768
}
