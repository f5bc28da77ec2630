package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/meeraclinic/clinic-ai-platform/pkg/logging"
)

const dataChannelLabel = "oai-events"

// WebRTCTransport runs the control channel over a peer connection's data
// channel. The SDP handshake is a one-shot POST through the Negotiator; the
// local audio track exists to satisfy the media section of the offer, actual
// microphone audio travels as input_audio_buffer.append events.
type WebRTCTransport struct {
	negotiator *Negotiator
	logger     *logging.Logger

	mu      sync.Mutex
	pc      *webrtc.PeerConnection
	channel *webrtc.DataChannel
	events  chan []byte
	closed  bool
}

// NewWebRTCTransport creates a transport that negotiates through n.
func NewWebRTCTransport(n *Negotiator, logger *logging.Logger) *WebRTCTransport {
	if n == nil {
		panic("voice: negotiator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebRTCTransport{
		negotiator: n,
		logger:     logger,
		events:     make(chan []byte, 64),
	}
}

// Connect dials the peer connection and blocks until the data channel opens.
func (t *WebRTCTransport) Connect(ctx context.Context) error {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	})
	if err != nil {
		return fmt.Errorf("voice: create peer connection: %w", err)
	}

	channel, err := pc.CreateDataChannel(dataChannelLabel, nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("voice: create data channel: %w", err)
	}

	opened := make(chan struct{})
	channel.OnOpen(func() { close(opened) })
	channel.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.deliver(msg.Data)
	})
	channel.OnClose(func() {
		t.logger.Info("data channel closed")
		t.Close()
	})

	// Playback runs off the response.audio.delta event stream; the RTP
	// mirror of the same audio just has to be drained so the transport
	// doesn't stall.
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		t.logger.Info("remote audio track received", "codec", track.Codec().MimeType)
		go func() {
			for {
				if _, _, readErr := track.ReadRTP(); readErr != nil {
					return
				}
			}
		}()
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		t.logger.Debug("peer connection state changed", "state", state.String())
		if state == webrtc.PeerConnectionStateFailed {
			t.Close()
		}
	})

	micTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", "microphone",
	)
	if err != nil {
		pc.Close()
		return fmt.Errorf("voice: create local track: %w", err)
	}
	if _, err := pc.AddTrack(micTrack); err != nil {
		pc.Close()
		return fmt.Errorf("voice: add local track: %w", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("voice: create offer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return fmt.Errorf("voice: set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		pc.Close()
		return ctx.Err()
	}

	answerSDP, err := t.negotiator.Negotiate(ctx, pc.LocalDescription().SDP)
	if err != nil {
		pc.Close()
		return err
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answerSDP,
	}); err != nil {
		pc.Close()
		return fmt.Errorf("voice: set remote description: %w", err)
	}

	select {
	case <-opened:
	case <-ctx.Done():
		pc.Close()
		return ctx.Err()
	}

	t.mu.Lock()
	t.pc = pc
	t.channel = channel
	t.mu.Unlock()
	t.logger.Info("data channel established", "label", dataChannelLabel)
	return nil
}

// Send writes one control message to the data channel.
func (t *WebRTCTransport) Send(msg []byte) error {
	t.mu.Lock()
	channel := t.channel
	closed := t.closed
	t.mu.Unlock()
	if closed || channel == nil {
		return errors.New("voice: transport not connected")
	}
	return channel.SendText(string(msg))
}

// Events returns the inbound control message stream.
func (t *WebRTCTransport) Events() <-chan []byte {
	return t.events
}

// Close tears down the channel and the peer connection. Safe to call more
// than once.
func (t *WebRTCTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	channel := t.channel
	pc := t.pc
	close(t.events)
	t.mu.Unlock()

	var errs []error
	if channel != nil {
		errs = append(errs, channel.Close())
	}
	if pc != nil {
		errs = append(errs, pc.Close())
	}
	return errors.Join(errs...)
}

// deliver is non-blocking and holds the mutex so it can never race Close
// into a send on a closed channel.
func (t *WebRTCTransport) deliver(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	select {
	case t.events <- buf:
	default:
		t.logger.Warn("dropping control message, event buffer full")
	}
}
