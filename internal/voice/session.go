package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/meeraclinic/clinic-ai-platform/internal/observability/metrics"
	"github.com/meeraclinic/clinic-ai-platform/internal/tools"
	"github.com/meeraclinic/clinic-ai-platform/pkg/logging"
)

const greetingInstructions = "Greet the user warmly and ask how you can help them today. Keep it brief and friendly."

// defaultVoiceInstructions is the realtime persona. It differs from the text
// prompt: on a call the assistant must gather details verbally and hang up
// itself when the caller is done.
const defaultVoiceInstructions = `You are Meera, a warm and professional AI receptionist for Meera Clinic. Your role is to assist patients with appointment booking through natural conversation on call.

Core principles:
- NEVER add or assume patient details (name, phone, etc.) - always ask for them.
- NEVER diagnose or provide medical advice.
- ALWAYS call getCurrentDateAndTime() first for accurate timing.
- ALWAYS check today's availability before suggesting other days.

Conversation flow: greet warmly, understand the purpose of the visit, recommend a specialty, gather name and contact details, check availability, then confirm the booking.

Specialty matching: always call getDoctors() with the specialty first and use the returned doctorId(s). Never assume doctor IDs.

Ask only 1-2 questions at a time and keep responses concise and friendly.

Before ending, ask: "Is there anything else I can help you with today?" If the caller clearly says no, that's all, I'm done, thanks, or bye, immediately call endCall().`

// Bubble is one entry in the running call transcript.
type Bubble struct {
	Role       string
	Text       string
	Incomplete bool
	Timestamp  time.Time
}

// Config wires a Session.
type Config struct {
	Transport  Transport
	Capture    CaptureDevice
	Playback   PlaybackSink
	Dispatcher *tools.Dispatcher
	Lock       *tools.DoctorLock

	Instructions    string
	Voice           string
	VADThreshold    float64
	VADPrefix       time.Duration
	VADSilence      time.Duration
	Temperature     float64
	MaxOutputTokens int

	EnergyFloor   float64
	SilenceWindow time.Duration
	Constraints   MediaConstraints

	Now     func() time.Time
	Logger  *logging.Logger
	Metrics *metrics.VoiceMetrics
}

// Session coordinates one realtime voice call: microphone capture, the
// control channel, half-duplex gating, mid-call tool dispatch, and teardown.
//
// Audio is half-duplex by policy: captured frames are forwarded only while
// the call is active, unmuted, and the assistant is not audibly speaking.
type Session struct {
	transport  Transport
	capture    CaptureDevice
	dispatcher *tools.Dispatcher
	settings   SessionSettings
	consts     MediaConstraints
	now        func() time.Time
	logger     *logging.Logger
	metrics    *metrics.VoiceMetrics

	mu           sync.Mutex
	state        State
	active       bool
	muted        bool
	canSend      bool
	userSpeaking bool
	transcript   string
	messages     []Bubble
	lastError    string
	stream       AudioStream
	playback     PlaybackSink
	detector     *SpeechDetector

	endOnce sync.Once
	done    chan struct{}
}

// NewSession creates a Session. Capture may be nil for sessions whose audio
// is fed through SendAudio directly; Playback may be nil when no local
// speaker exists, in which case assistant audio is analyzed but not played.
func NewSession(cfg Config) *Session {
	if cfg.Transport == nil {
		panic("voice: transport cannot be nil")
	}
	if cfg.Dispatcher == nil {
		panic("voice: dispatcher cannot be nil")
	}
	if cfg.Instructions == "" {
		cfg.Instructions = defaultVoiceInstructions + cfg.Lock.PromptDirective()
	}
	if cfg.Voice == "" {
		cfg.Voice = "sage"
	}
	if cfg.VADThreshold <= 0 {
		cfg.VADThreshold = 0.8
	}
	if cfg.VADPrefix <= 0 {
		cfg.VADPrefix = 500 * time.Millisecond
	}
	if cfg.VADSilence <= 0 {
		cfg.VADSilence = time.Second
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 500
	}
	if cfg.Constraints == (MediaConstraints{}) {
		cfg.Constraints = DefaultConstraints()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	return &Session{
		transport:  cfg.Transport,
		capture:    cfg.Capture,
		playback:   cfg.Playback,
		dispatcher: cfg.Dispatcher,
		settings: SessionSettings{
			Instructions:    cfg.Instructions,
			Voice:           cfg.Voice,
			VADThreshold:    cfg.VADThreshold,
			VADPrefix:       cfg.VADPrefix,
			VADSilence:      cfg.VADSilence,
			Tools:           tools.RealtimeDefinitions(),
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
		consts:   cfg.Constraints,
		now:      cfg.Now,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		state:    StateDisconnected,
		detector: NewSpeechDetector(cfg.EnergyFloor, cfg.SilenceWindow, cfg.Now),
		done:     make(chan struct{}),
	}
}

// Start acquires the microphone, connects the transport, and sends the
// session configuration. It returns once the control channel is up; the
// session becomes verified when the remote side acknowledges with
// session.created.
func (s *Session) Start(ctx context.Context) error {
	if s.capture != nil {
		stream, err := s.capture.Open(ctx, s.consts)
		if err != nil {
			serr := ClassifyCaptureError(err)
			s.fail(serr.UserMessage())
			return serr
		}
		stream.SetEnabled(false)
		s.mu.Lock()
		s.stream = stream
		s.state = StateReady
		s.mu.Unlock()
	}

	s.setState(StateConnecting)
	if err := s.transport.Connect(ctx); err != nil {
		if serr, ok := err.(*SessionError); ok {
			s.fail(serr.UserMessage())
		} else {
			s.fail("Failed to establish connection")
		}
		return err
	}

	s.setState(StateConfiguring)
	if err := s.transport.Send(sessionUpdateMessage(s.settings)); err != nil {
		s.fail("Failed to configure AI")
		return err
	}

	go s.eventLoop()
	if s.capture != nil {
		go s.audioPump()
	}
	return nil
}

// Begin activates the call: the microphone starts flowing and the assistant
// is asked to greet the caller.
func (s *Session) Begin() error {
	s.mu.Lock()
	if s.state != StateVerified {
		state := s.state
		s.mu.Unlock()
		return &SessionError{Kind: FailureUnknown, Err: errorForState(state)}
	}
	s.active = true
	s.state = StateActive
	stream := s.stream
	s.appendBubble(Bubble{Role: "system", Text: "Session started - AI is now listening", Timestamp: s.now()})
	s.mu.Unlock()

	if stream != nil {
		stream.SetEnabled(true)
	}
	return s.transport.Send(responseCreateMessage(greetingInstructions))
}

// SendAudio forwards one captured frame, subject to the half-duplex gate.
// Gated frames are dropped silently; that is the point of the gate.
func (s *Session) SendAudio(frame []float32) error {
	s.mu.Lock()
	ok := s.active && s.canSend && !s.muted && !s.detector.Speaking()
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := s.transport.Send(bufferAppendMessage(EncodeFrame(frame))); err != nil {
		return err
	}
	s.metrics.ObserveFrameSent()
	return nil
}

// ToggleMute flips the mute state and returns the new value. Muting clears
// the remote input buffer so half-captured speech is not processed.
func (s *Session) ToggleMute() bool {
	s.mu.Lock()
	s.muted = !s.muted
	muted := s.muted
	stream := s.stream
	active := s.active
	s.mu.Unlock()

	if stream != nil {
		stream.SetEnabled(!muted && active)
	}
	if muted {
		if err := s.transport.Send(bufferClearMessage()); err != nil {
			s.logger.Warn("failed to clear input buffer on mute", "error", err)
		}
	}
	s.logger.Info("mute toggled", "muted", muted)
	return muted
}

// End tears the session down in fixed order: playback sink, then capture
// stream, then transport, then state. Safe to call any number of times, from
// any goroutine.
func (s *Session) End() {
	s.endOnce.Do(func() {
		s.mu.Lock()
		stream := s.stream
		s.stream = nil
		sink := s.playback
		s.playback = nil
		s.active = false
		s.muted = false
		s.canSend = false
		s.userSpeaking = false
		s.transcript = ""
		s.detector.Reset()
		terminal := "ended"
		if s.state == StateErrored {
			terminal = "errored"
		} else {
			s.state = StateEnded
		}
		s.appendBubble(Bubble{Role: "system", Text: "Session ended", Timestamp: s.now()})
		s.mu.Unlock()

		if sink != nil {
			if err := sink.Close(); err != nil {
				s.logger.Warn("failed to close playback sink", "error", err)
			}
		}
		if stream != nil {
			if err := stream.Close(); err != nil {
				s.logger.Warn("failed to close capture stream", "error", err)
			}
		}
		if err := s.transport.Close(); err != nil {
			s.logger.Warn("failed to close transport", "error", err)
		}
		close(s.done)
		s.metrics.ObserveSession(terminal)
		s.logger.Info("voice session ended", "terminal", terminal)
	})
}

// Done is closed when the session has fully torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the running transcript bubbles.
func (s *Session) Messages() []Bubble {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Bubble, len(s.messages))
	copy(out, s.messages)
	return out
}

// Transcript returns the latest completed caller utterance.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript
}

// IsAISpeaking reports whether assistant audio is currently audible.
func (s *Session) IsAISpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector.Speaking()
}

// IsUserSpeaking reports the server-side VAD state for the caller.
func (s *Session) IsUserSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userSpeaking
}

// IsMuted reports the mute state.
func (s *Session) IsMuted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// LastError returns the most recent user-facing failure message, if any.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *Session) eventLoop() {
	for data := range s.transport.Events() {
		s.handleEvent(data)
	}
	// Transport gone: finish teardown unless End already ran.
	s.End()
}

func (s *Session) audioPump() {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return
	}
	for frame := range stream.Frames() {
		if err := s.SendAudio(frame); err != nil {
			s.logger.Warn("failed to forward audio frame", "error", err)
			return
		}
	}
}

func (s *Session) handleEvent(data []byte) {
	var ev serverEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Warn("undecodable control message", "error", err)
		return
	}

	switch ev.Type {
	case eventSessionCreated:
		s.mu.Lock()
		s.state = StateVerified
		s.canSend = true
		s.appendBubble(Bubble{Role: "system", Text: "session created successfully", Timestamp: s.now()})
		s.mu.Unlock()
		s.logger.Info("realtime session verified")

	case eventSpeechStarted:
		s.mu.Lock()
		s.userSpeaking = true
		s.mu.Unlock()

	case eventSpeechStopped:
		s.mu.Lock()
		s.userSpeaking = false
		s.mu.Unlock()

	case eventTranscriptionDone:
		if fragment := strings.TrimSpace(ev.Transcript); fragment != "" {
			s.mu.Lock()
			s.transcript = fragment
			s.mu.Unlock()
		}

	case eventTranscriptDelta:
		s.mu.Lock()
		s.appendTranscriptDelta(ev.Delta)
		s.mu.Unlock()

	case eventTranscriptDone:
		s.mu.Lock()
		s.finishTranscript(ev.Transcript)
		s.mu.Unlock()

	case eventAudioDelta:
		pcm, err := base64.StdEncoding.DecodeString(ev.Delta)
		if err != nil {
			s.logger.Warn("undecodable audio delta", "error", err)
			return
		}
		s.mu.Lock()
		s.detector.Observe(DecodePCM16(pcm))
		sink := s.playback
		s.mu.Unlock()
		if sink != nil {
			if err := sink.Play(pcm); err != nil {
				s.logger.Warn("failed to play assistant audio", "error", err)
			}
		}

	case eventFunctionCallDone:
		s.handleFunctionCall(ev)

	case eventError:
		message := "Unknown error occurred"
		if ev.Error != nil && ev.Error.Message != "" {
			message = ev.Error.Message
		}
		s.logger.Error("remote session error", "message", message)
		s.mu.Lock()
		s.lastError = message
		s.appendBubble(Bubble{Role: "system", Text: "Error: " + message, Timestamp: s.now()})
		s.mu.Unlock()
	}
}

// handleFunctionCall resolves one mid-call tool request. endCall short-circuits
// into teardown; everything else is dispatched and the result pushed back,
// followed by a response.create so the assistant speaks the outcome.
func (s *Session) handleFunctionCall(ev serverEvent) {
	s.metrics.ObserveToolCall(ev.Name)
	s.logger.Info("mid-call tool request", "name", ev.Name)

	if ev.Name == tools.FnEndCall {
		s.End()
		return
	}

	result := s.dispatcher.Invoke(context.Background(), ev.Name, json.RawMessage(ev.Arguments))
	payload, err := json.Marshal(result)
	if err != nil {
		payload = []byte(`{"error":"Result could not be serialized"}`)
	}

	if err := s.transport.Send(functionCallOutputMessage(ev.CallID, string(payload))); err != nil {
		s.logger.Error("failed to return tool result", "error", err, "name", ev.Name)
		s.mu.Lock()
		s.lastError = "AI function call failed"
		s.mu.Unlock()
		return
	}
	if err := s.transport.Send(responseCreateMessage("")); err != nil {
		s.logger.Error("failed to request follow-up response", "error", err)
	}
}

// appendTranscriptDelta extends the in-progress assistant bubble, or opens a
// new one when the previous utterance already completed. Callers hold mu.
func (s *Session) appendTranscriptDelta(delta string) {
	if n := len(s.messages); n > 0 {
		last := &s.messages[n-1]
		if last.Role == "ai" && last.Incomplete {
			last.Text += delta
			return
		}
	}
	s.appendBubble(Bubble{Role: "ai", Text: delta, Incomplete: true, Timestamp: s.now()})
}

// finishTranscript replaces the in-progress bubble with the final text.
// Callers hold mu.
func (s *Session) finishTranscript(transcript string) {
	if n := len(s.messages); n > 0 {
		last := &s.messages[n-1]
		if last.Role == "ai" && last.Incomplete {
			last.Text = transcript
			last.Incomplete = false
			return
		}
	}
	s.appendBubble(Bubble{Role: "ai", Text: transcript, Timestamp: s.now()})
}

// appendBubble records a transcript entry. Callers hold mu.
func (s *Session) appendBubble(b Bubble) {
	s.messages = append(s.messages, b)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) fail(userMessage string) {
	s.mu.Lock()
	s.state = StateErrored
	s.lastError = userMessage
	s.mu.Unlock()
}

func errorForState(state State) error {
	return &stateError{state: state}
}

type stateError struct{ state State }

func (e *stateError) Error() string {
	return "voice: cannot begin call from state " + e.state.String()
}
