package voice

import "context"

// Transport carries the realtime control channel: JSON events in both
// directions. Connect blocks until the channel is usable; Events is closed
// when the remote side goes away or Close is called.
type Transport interface {
	Connect(ctx context.Context) error
	Send(msg []byte) error
	Events() <-chan []byte
	Close() error
}
