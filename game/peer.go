package game

// Peer is the remote end of a player session. Implementations live in the
// transport package.
type Peer interface {
	// ID uniquely identifies the connection.
	ID() string
	// Name is the display name used in logs and round history.
	Name() string
	// Lines yields inbound frames and is closed at end of stream.
	Lines() <-chan string
	// Send queues one outbound frame. An error means the peer is gone.
	Send(line string) error
	// Close flushes queued frames and closes the connection.
	Close() error
}
