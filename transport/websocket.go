package transport

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// WSPeer speaks the line protocol over a WebSocket: one text message per
// frame in both directions.
type WSPeer struct {
	id   string
	name string
	conn *websocket.Conn
	log  *slog.Logger

	lines   chan string
	out     *outbox
	flushed chan struct{}
	closing chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewWSPeer starts the read and write pumps for an upgraded connection.
// Messages longer than maxLine end the stream.
func NewWSPeer(conn *websocket.Conn, name string, maxLine int) *WSPeer {
	p := &WSPeer{
		id:      uuid.NewString(),
		name:    name,
		conn:    conn,
		lines:   make(chan string, recvQueue),
		out:     newOutbox(),
		flushed: make(chan struct{}),
		closing: make(chan struct{}),
	}
	p.log = slog.Default().With("tag", "ws", "player", name, "remote", conn.RemoteAddr().String())
	go p.readPump(int64(maxLine))
	go p.writePump()
	return p
}

func (p *WSPeer) ID() string           { return p.id }
func (p *WSPeer) Name() string         { return p.name }
func (p *WSPeer) Lines() <-chan string { return p.lines }

func (p *WSPeer) Send(line string) error {
	return p.out.push(line)
}

// Close flushes queued messages, sends a close frame and closes the
// connection.
func (p *WSPeer) Close() error {
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

// readPump pumps messages from the websocket connection to the session.
func (p *WSPeer) readPump(limit int64) {
	defer close(p.lines)

	p.conn.SetReadLimit(limit)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.log.Info("read ended", "err", err)
			}
			return
		}
		line := strings.TrimSpace(string(message))
		if line == "" {
			continue
		}
		select {
		case p.lines <- line:
		case <-p.closing:
			return
		}
	}
}

// writePump pumps queued lines to the websocket connection and keeps it
// alive with pings.
func (p *WSPeer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(p.flushed)
	}()

	for {
		select {
		case line, ok := <-p.out.ch:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				p.log.Info("write failed", "err", err)
				p.conn.Close()
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				p.conn.Close()
				return
			}
		}
	}
}
