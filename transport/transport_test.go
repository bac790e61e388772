package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"blackjack-server/game"
	"blackjack-server/tableerrors"
)

func readLine(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case l, ok := <-ch:
		if !ok {
			t.Fatal("lines closed")
		}
		return l
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for line")
	}
	return ""
}

func TestTCPPeerReadsLines(t *testing.T) {
	server, client := net.Pipe()
	p := NewTCPPeer(server, "player-1", 64)
	defer p.Close()

	go func() {
		client.Write([]byte("C-BET-100\r\n\nC-PLAYING-H\n"))
	}()

	if got := readLine(t, p.Lines()); got != "C-BET-100" {
		t.Errorf("expected C-BET-100, got %q", got)
	}
	if got := readLine(t, p.Lines()); got != "C-PLAYING-H" {
		t.Errorf("expected C-PLAYING-H, got %q", got)
	}
}

func TestTCPPeerClosesLinesAtEOF(t *testing.T) {
	server, client := net.Pipe()
	p := NewTCPPeer(server, "player-1", 64)
	defer p.Close()

	client.Close()
	select {
	case _, ok := <-p.Lines():
		if ok {
			t.Fatal("expected closed lines channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("lines not closed at end of stream")
	}
}

func TestTCPPeerLongLineEndsStream(t *testing.T) {
	server, client := net.Pipe()
	p := NewTCPPeer(server, "player-1", 16)
	defer p.Close()

	go func() {
		client.Write([]byte(strings.Repeat("X", 64) + "\n"))
	}()
	select {
	case _, ok := <-p.Lines():
		if ok {
			t.Fatal("expected the stream to end")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("over-long line did not end the stream")
	}
}

func TestTCPPeerCloseFlushes(t *testing.T) {
	server, client := net.Pipe()
	p := NewTCPPeer(server, "player-1", 64)

	for _, l := range []string{"S-ADVANCE-PLAYAGAIN", "S-GAMEOVER"} {
		if err := p.Send(l); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	got := make(chan []string, 1)
	go func() {
		var lines []string
		r := bufio.NewScanner(client)
		for r.Scan() {
			lines = append(lines, r.Text())
		}
		got <- lines
	}()

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case lines := <-got:
		if strings.Join(lines, ",") != "S-ADVANCE-PLAYAGAIN,S-GAMEOVER" {
			t.Errorf("unexpected lines %v", lines)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client did not see end of stream")
	}

	if err := p.Send("S-GAMEOVER"); !errors.Is(err, tableerrors.ErrPeerClosed) {
		t.Errorf("expected ErrPeerClosed after close, got %v", err)
	}
}

func TestOutboxFull(t *testing.T) {
	o := newOutbox()
	for range sendQueue {
		if err := o.push("x"); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	if err := o.push("x"); !errors.Is(err, tableerrors.ErrSendBufferFull) {
		t.Errorf("expected ErrSendBufferFull, got %v", err)
	}
	o.close()
	o.close()
	if err := o.push("x"); !errors.Is(err, tableerrors.ErrPeerClosed) {
		t.Errorf("expected ErrPeerClosed, got %v", err)
	}
}

func TestTCPServerNamesPlayers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	peers := make(chan game.Peer, 2)
	srv := NewTCPServer(ln, 64, func(p game.Peer) { peers <- p })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	for i := 0; i < 2; i++ {
		c, err := net.Dial("tcp", srv.Addr().String())
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer c.Close()
	}

	for _, want := range []string{"player-1", "player-2"} {
		select {
		case p := <-peers:
			if p.Name() != want {
				t.Errorf("expected %s, got %s", want, p.Name())
			}
			p.Close()
		case <-time.After(2 * time.Second):
			t.Fatal("no peer accepted")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestWSPeerRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	peers := make(chan *WSPeer, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		peers <- NewWSPeer(conn, "alice", 64)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	var p *WSPeer
	select {
	case p = <-peers:
	case <-time.After(2 * time.Second):
		t.Fatal("no peer")
	}

	if err := client.WriteMessage(websocket.TextMessage, []byte("C-BET-100\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readLine(t, p.Lines()); got != "C-BET-100" {
		t.Errorf("expected C-BET-100, got %q", got)
	}

	p.Send("S-ADVANCE-PLAYAGAIN")
	p.Send("S-GAMEOVER")
	go p.Close()

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	for _, want := range []string{"S-ADVANCE-PLAYAGAIN", "S-GAMEOVER"} {
		_, msg, err := client.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(msg) != want {
			t.Errorf("expected %s, got %s", want, msg)
		}
	}
	if _, _, err := client.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close, got %v", err)
	}
}
