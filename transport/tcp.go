package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"blackjack-server/game"
)

// TCPPeer speaks the line protocol over a raw stream: one frame per
// newline-terminated line in both directions.
type TCPPeer struct {
	id   string
	name string
	conn net.Conn
	log  *slog.Logger

	lines   chan string
	out     *outbox
	flushed chan struct{}
	closing chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewTCPPeer starts the reader and writer goroutines for conn. Inbound lines
// longer than maxLine end the stream.
func NewTCPPeer(conn net.Conn, name string, maxLine int) *TCPPeer {
	p := &TCPPeer{
		id:      uuid.NewString(),
		name:    name,
		conn:    conn,
		lines:   make(chan string, recvQueue),
		out:     newOutbox(),
		flushed: make(chan struct{}),
		closing: make(chan struct{}),
	}
	p.log = slog.Default().With("tag", "tcp", "player", name, "remote", conn.RemoteAddr().String())
	go p.readLoop(maxLine)
	go p.writeLoop()
	return p
}

func (p *TCPPeer) ID() string           { return p.id }
func (p *TCPPeer) Name() string         { return p.name }
func (p *TCPPeer) Lines() <-chan string { return p.lines }

func (p *TCPPeer) Send(line string) error {
	return p.out.push(line)
}

// Close flushes queued lines, waiting at most writeWait, then closes the
// connection.
func (p *TCPPeer) Close() error {
	p.closeOnce.Do(func() {
		close(p.closing)
		p.out.close()
		select {
		case <-p.flushed:
		case <-time.After(writeWait):
			p.log.Warn("gave up flushing before close")
		}
		p.closeErr = p.conn.Close()
	})
	return p.closeErr
}

func (p *TCPPeer) readLoop(maxLine int) {
	defer close(p.lines)

	scanner := bufio.NewScanner(p.conn)
	// One extra byte for the terminating newline.
	scanner.Buffer(make([]byte, 0, maxLine+1), maxLine+1)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		select {
		case p.lines <- line:
		case <-p.closing:
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		p.log.Info("read ended", "err", err)
	}
}

func (p *TCPPeer) writeLoop() {
	defer close(p.flushed)

	w := bufio.NewWriter(p.conn)
	for line := range p.out.ch {
		p.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if _, err := w.WriteString(line + "\n"); err != nil {
			p.abort(err)
			return
		}
		if len(p.out.ch) > 0 {
			continue
		}
		if err := w.Flush(); err != nil {
			p.abort(err)
			return
		}
	}
}

// abort closes the socket after a failed write so the reader sees end of
// stream and the session learns the player is gone.
func (p *TCPPeer) abort(err error) {
	p.log.Info("write failed", "err", err)
	p.conn.Close()
}

// TCPServer accepts raw connections and hands each one to a handler as a
// game.Peer named player-<n>.
type TCPServer struct {
	ln      net.Listener
	maxLine int
	handle  func(game.Peer)
	count   atomic.Int64
}

// NewTCPServer wraps an open listener.
func NewTCPServer(ln net.Listener, maxLine int, handle func(game.Peer)) *TCPServer {
	return &TCPServer{ln: ln, maxLine: maxLine, handle: handle}
}

// Addr returns the listening address.
func (s *TCPServer) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until ctx is cancelled or the listener fails.
func (s *TCPServer) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	slog.Info("TCP server listening", "tag", "tcp", "addr", s.ln.Addr().String())
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				slog.Warn("accept timeout", "tag", "tcp", "err", err)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		n := s.count.Add(1)
		peer := NewTCPPeer(conn, fmt.Sprintf("player-%d", n), s.maxLine)
		slog.Info("client connected", "tag", "tcp", "player", peer.Name(), "remote", conn.RemoteAddr().String())
		s.handle(peer)
	}
}
