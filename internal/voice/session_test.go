package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meeraclinic/clinic-ai-platform/internal/clinic"
	"github.com/meeraclinic/clinic-ai-platform/internal/scheduling"
	"github.com/meeraclinic/clinic-ai-platform/internal/tools"
)

type fakeTransport struct {
	mu         sync.Mutex
	sent       [][]byte
	events     chan []byte
	closeCalls int
	connectErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan []byte, 16)}
}

func (t *fakeTransport) Connect(context.Context) error { return t.connectErr }

func (t *fakeTransport) Send(msg []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	buf := make([]byte, len(msg))
	copy(buf, msg)
	t.sent = append(t.sent, buf)
	return nil
}

func (t *fakeTransport) Events() <-chan []byte { return t.events }

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeCalls++
	if t.closeCalls == 1 {
		close(t.events)
	}
	return nil
}

func (t *fakeTransport) sentMessages() []map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]map[string]any, 0, len(t.sent))
	for _, raw := range t.sent {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func (t *fakeTransport) sentTypes() []string {
	var types []string
	for _, m := range t.sentMessages() {
		types = append(types, m["type"].(string))
	}
	return types
}

type fakeStream struct {
	mu      sync.Mutex
	frames  chan []float32
	enabled []bool
	closed  int
}

func newFakeStream() *fakeStream {
	return &fakeStream{frames: make(chan []float32)}
}

func (s *fakeStream) Frames() <-chan []float32 { return s.frames }

func (s *fakeStream) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = append(s.enabled, enabled)
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	if s.closed == 1 {
		close(s.frames)
	}
	return nil
}

type fakeCapture struct {
	stream  *fakeStream
	openErr error
}

func (c *fakeCapture) Open(context.Context, MediaConstraints) (AudioStream, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.stream, nil
}

func newTestDispatcher(t *testing.T) *tools.Dispatcher {
	t.Helper()
	dir, err := clinic.LoadDirectory("")
	require.NoError(t, err)
	store := scheduling.NewFileStore(filepath.Join(t.TempDir(), "appointments.json"))
	now := func() time.Time { return time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC) }
	sched := scheduling.New(scheduling.Config{Directory: dir, Store: store, Now: now})
	return tools.New(tools.Config{Scheduler: sched, Directory: dir, Now: now})
}

func newTestSession(t *testing.T, transport Transport, capture CaptureDevice, clock *fakeClock) *Session {
	t.Helper()
	return NewSession(Config{
		Transport:  transport,
		Capture:    capture,
		Dispatcher: newTestDispatcher(t),
		Now:        clock.Now,
	})
}

func verify(s *Session) {
	s.handleEvent([]byte(`{"type":"session.created"}`))
}

type fakeSink struct {
	mu     sync.Mutex
	played [][]byte
	closed int
}

func (s *fakeSink) Play(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	s.played = append(s.played, buf)
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func pcmBytes(frame []int16) []byte {
	buf := make([]byte, len(frame)*2)
	for i, v := range frame {
		buf[i*2] = byte(v)
		buf[i*2+1] = byte(v >> 8)
	}
	return buf
}

func audioDeltaEvent(frame []int16) []byte {
	payload, _ := json.Marshal(map[string]string{
		"type":  "response.audio.delta",
		"delta": base64.StdEncoding.EncodeToString(pcmBytes(frame)),
	})
	return payload
}

func TestStartConfiguresRealtimeSession(t *testing.T) {
	transport := newFakeTransport()
	stream := newFakeStream()
	s := newTestSession(t, transport, &fakeCapture{stream: stream}, newFakeClock())

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.End)

	assert.Equal(t, StateConfiguring, s.State())
	require.Equal(t, []string{"session.update"}, transport.sentTypes())

	session := transport.sentMessages()[0]["session"].(map[string]any)
	assert.Equal(t, "sage", session["voice"])
	assert.Equal(t, "pcm16", session["input_audio_format"])
	assert.Equal(t, "pcm16", session["output_audio_format"])
	assert.Contains(t, session["instructions"], "Meera Clinic")
	assert.NotEmpty(t, session["tools"])

	vad := session["turn_detection"].(map[string]any)
	assert.Equal(t, "server_vad", vad["type"])
	assert.Equal(t, 0.8, vad["threshold"])
	assert.Equal(t, float64(500), vad["prefix_padding_ms"])
	assert.Equal(t, float64(1000), vad["silence_duration_ms"])

	// The microphone starts disabled; only Begin turns it on.
	assert.Equal(t, []bool{false}, stream.enabled)
}

func TestStartClassifiesCaptureFailure(t *testing.T) {
	transport := newFakeTransport()
	s := newTestSession(t, transport, &fakeCapture{openErr: ErrPermissionDenied}, newFakeClock())

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, FailurePermissionDenied, KindOf(err))
	assert.Equal(t, StateErrored, s.State())
	assert.Contains(t, s.LastError(), "Microphone access was denied")
}

func TestBeginRequiresVerifiedSession(t *testing.T) {
	transport := newFakeTransport()
	s := newTestSession(t, transport, nil, newFakeClock())

	require.Error(t, s.Begin())

	verify(s)
	require.NoError(t, s.Begin())
	assert.Equal(t, StateActive, s.State())

	// The greeting request asks the assistant to speak first.
	msgs := transport.sentMessages()
	last := msgs[len(msgs)-1]
	require.Equal(t, "response.create", last["type"])
	response := last["response"].(map[string]any)
	assert.Contains(t, response["instructions"], "Greet the user warmly")
}

func TestHalfDuplexGate(t *testing.T) {
	transport := newFakeTransport()
	clock := newFakeClock()
	s := newTestSession(t, transport, nil, clock)

	verify(s)
	require.NoError(t, s.Begin())
	base := len(transport.sentTypes())

	frame := []float32{0.1, -0.1}

	// Active, unmuted, assistant silent: frames flow.
	require.NoError(t, s.SendAudio(frame))
	assert.Len(t, transport.sentTypes(), base+1)

	// Assistant audio makes the gate close.
	s.handleEvent(audioDeltaEvent(loudFrame()))
	assert.True(t, s.IsAISpeaking())
	require.NoError(t, s.SendAudio(frame))
	assert.Len(t, transport.sentTypes(), base+1)

	// After a full silence window the gate reopens.
	clock.Advance(600 * time.Millisecond)
	assert.False(t, s.IsAISpeaking())
	require.NoError(t, s.SendAudio(frame))
	assert.Len(t, transport.sentTypes(), base+2)
}

func TestToggleMuteClearsRemoteBuffer(t *testing.T) {
	transport := newFakeTransport()
	stream := newFakeStream()
	s := newTestSession(t, transport, &fakeCapture{stream: stream}, newFakeClock())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.End)

	verify(s)
	require.NoError(t, s.Begin())

	assert.True(t, s.ToggleMute())
	types := transport.sentTypes()
	assert.Equal(t, "input_audio_buffer.clear", types[len(types)-1])

	// Muted frames are dropped.
	require.NoError(t, s.SendAudio([]float32{0.1}))
	assert.Len(t, transport.sentTypes(), len(types))

	// Unmuting does not clear again.
	assert.False(t, s.ToggleMute())
	assert.Len(t, transport.sentTypes(), len(types))

	// Track enable sequence: off at start, on at begin, off on mute, on on unmute.
	assert.Equal(t, []bool{false, true, false, true}, stream.enabled)
}

func TestFunctionCallRoundTrip(t *testing.T) {
	transport := newFakeTransport()
	s := newTestSession(t, transport, nil, newFakeClock())
	verify(s)

	s.handleEvent([]byte(`{
		"type": "response.function_call_arguments.done",
		"name": "getCurrentDateAndTime",
		"call_id": "call_77",
		"arguments": "{}"
	}`))

	msgs := transport.sentMessages()
	require.Len(t, msgs, 2)

	require.Equal(t, "conversation.item.create", msgs[0]["type"])
	item := msgs[0]["item"].(map[string]any)
	assert.Equal(t, "function_call_output", item["type"])
	assert.Equal(t, "call_77", item["call_id"])

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(item["output"].(string)), &result))
	assert.Equal(t, "2025-03-03", result["date"])

	assert.Equal(t, "response.create", msgs[1]["type"])
}

func TestEndCallFunctionTearsDown(t *testing.T) {
	transport := newFakeTransport()
	s := newTestSession(t, transport, nil, newFakeClock())
	verify(s)
	require.NoError(t, s.Begin())

	s.handleEvent([]byte(`{
		"type": "response.function_call_arguments.done",
		"name": "endCall",
		"call_id": "call_9",
		"arguments": "{}"
	}`))

	assert.Equal(t, StateEnded, s.State())
	assert.Equal(t, 1, transport.closeCalls)

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestEndIsIdempotent(t *testing.T) {
	transport := newFakeTransport()
	stream := newFakeStream()
	s := newTestSession(t, transport, &fakeCapture{stream: stream}, newFakeClock())
	require.NoError(t, s.Start(context.Background()))

	verify(s)
	require.NoError(t, s.Begin())

	s.End()
	s.End()
	s.End()

	assert.Equal(t, StateEnded, s.State())
	assert.Equal(t, 1, stream.closed)
	assert.False(t, s.IsMuted())
	assert.Empty(t, s.Transcript())
}

func TestAudioDeltaPlaysThroughSink(t *testing.T) {
	transport := newFakeTransport()
	sink := &fakeSink{}
	s := NewSession(Config{
		Transport:  transport,
		Playback:   sink,
		Dispatcher: newTestDispatcher(t),
		Now:        newFakeClock().Now,
	})
	verify(s)

	// Each delta reaches the speaker verbatim, and the detector still sees it.
	s.handleEvent(audioDeltaEvent(loudFrame()))
	require.Len(t, sink.played, 1)
	assert.Equal(t, pcmBytes(loudFrame()), sink.played[0])
	assert.True(t, s.IsAISpeaking())

	s.handleEvent(audioDeltaEvent(quietFrame()))
	require.Len(t, sink.played, 2)

	// Teardown closes the sink exactly once, before the transport.
	s.End()
	s.End()
	assert.Equal(t, 1, sink.closed)

	// Audio arriving after teardown is not played.
	s.handleEvent(audioDeltaEvent(loudFrame()))
	assert.Len(t, sink.played, 2)
}

func TestEndFromErroredStart(t *testing.T) {
	transport := newFakeTransport()
	s := newTestSession(t, transport, &fakeCapture{openErr: ErrNoDevice}, newFakeClock())

	require.Error(t, s.Start(context.Background()))
	require.Equal(t, StateErrored, s.State())

	s.End()
	s.End()

	// Errored is terminal: End must not relabel the session as cleanly ended,
	// and the failure message survives teardown.
	assert.Equal(t, StateErrored, s.State())
	assert.Contains(t, s.LastError(), "No microphone found")
	assert.Equal(t, 1, transport.closeCalls)

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestTranscriptBubbleAppendAndFinalize(t *testing.T) {
	transport := newFakeTransport()
	s := newTestSession(t, transport, nil, newFakeClock())
	verify(s)

	s.handleEvent([]byte(`{"type":"response.audio_transcript.delta","delta":"Hel"}`))
	s.handleEvent([]byte(`{"type":"response.audio_transcript.delta","delta":"lo the"}`))
	s.handleEvent([]byte(`{"type":"response.audio_transcript.delta","delta":"re!"}`))

	msgs := s.Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, "ai", last.Role)
	assert.Equal(t, "Hello there!", last.Text)
	assert.True(t, last.Incomplete)

	s.handleEvent([]byte(`{"type":"response.audio_transcript.done","transcript":"Hello there! Welcome."}`))
	msgs = s.Messages()
	final := msgs[len(msgs)-1]
	assert.Equal(t, "Hello there! Welcome.", final.Text)
	assert.False(t, final.Incomplete)

	// The next delta opens a fresh bubble.
	s.handleEvent([]byte(`{"type":"response.audio_transcript.delta","delta":"How can"}`))
	assert.Len(t, s.Messages(), len(msgs)+1)
}

func TestUserSpeechAndTranscription(t *testing.T) {
	transport := newFakeTransport()
	s := newTestSession(t, transport, nil, newFakeClock())
	verify(s)

	s.handleEvent([]byte(`{"type":"input_audio_buffer.speech_started"}`))
	assert.True(t, s.IsUserSpeaking())

	s.handleEvent([]byte(`{"type":"input_audio_buffer.speech_stopped"}`))
	assert.False(t, s.IsUserSpeaking())

	s.handleEvent([]byte(`{"type":"conversation.item.input_audio_transcription.completed","transcript":"  I need an appointment  "}`))
	assert.Equal(t, "I need an appointment", s.Transcript())

	// Blank transcriptions do not wipe the last utterance.
	s.handleEvent([]byte(`{"type":"conversation.item.input_audio_transcription.completed","transcript":"   "}`))
	assert.Equal(t, "I need an appointment", s.Transcript())
}

func TestRemoteErrorRecorded(t *testing.T) {
	transport := newFakeTransport()
	s := newTestSession(t, transport, nil, newFakeClock())
	verify(s)

	s.handleEvent([]byte(`{"type":"error","error":{"message":"session expired"}}`))

	assert.Equal(t, "session expired", s.LastError())
	msgs := s.Messages()
	assert.Equal(t, "Error: session expired", msgs[len(msgs)-1].Text)
}

func TestTransportLossEndsSession(t *testing.T) {
	transport := newFakeTransport()
	s := newTestSession(t, transport, nil, newFakeClock())
	require.NoError(t, s.Start(context.Background()))

	transport.events <- []byte(`{"type":"session.created"}`)
	require.Eventually(t, func() bool { return s.State() == StateVerified }, time.Second, 5*time.Millisecond)

	transport.Close()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session did not end after transport loss")
	}
}

func TestAudioPumpForwardsFrames(t *testing.T) {
	transport := newFakeTransport()
	stream := newFakeStream()
	s := newTestSession(t, transport, &fakeCapture{stream: stream}, newFakeClock())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.End)

	verify(s)
	require.NoError(t, s.Begin())
	base := len(transport.sentTypes())

	stream.frames <- []float32{0.2, -0.2}

	require.Eventually(t, func() bool {
		types := transport.sentTypes()
		return len(types) == base+1 && types[base] == "input_audio_buffer.append"
	}, time.Second, 5*time.Millisecond)

	var appended map[string]any
	msgs := transport.sentMessages()
	appended = msgs[len(msgs)-1]
	audio, err := base64.StdEncoding.DecodeString(appended["audio"].(string))
	require.NoError(t, err)
	assert.Equal(t, EncodePCM16([]float32{0.2, -0.2}), audio)
}

func TestSessionLifecycleStates(t *testing.T) {
	states := []State{
		StateDisconnected, StateReady, StateConnecting, StateConfiguring,
		StateVerified, StateActive, StateEnded, StateErrored,
	}
	want := []string{
		"disconnected", "ready", "connecting", "configuring",
		"verified", "active", "ended", "errored",
	}
	for i, st := range states {
		assert.Equal(t, want[i], st.String(), fmt.Sprintf("state %d", i))
	}
}
