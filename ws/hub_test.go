package ws

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"blackjack-server/game"
)

type chanLobby chan game.Peer

func (c chanLobby) Enqueue(p game.Peer) error {
	c <- p
	return nil
}

type fakeValidator struct{}

func (fakeValidator) Validate(token string) (jwt.MapClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return jwt.MapClaims{"sub": "u1", "name": "Ada Lovelace"}, nil
}

func serve(t *testing.T, v TokenValidator) (string, chanLobby) {
	t.Helper()
	lobby := make(chanLobby, 4)
	hub := NewHub(lobby, v, 256)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), lobby
}

func nextPeer(t *testing.T, lobby chanLobby) game.Peer {
	t.Helper()
	select {
	case p := <-lobby:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no peer reached the lobby")
		return nil
	}
}

func TestHubNamesGuests(t *testing.T) {
	url, lobby := serve(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	p := nextPeer(t, lobby)
	defer p.Close()
	if p.Name() != "guest-1" {
		t.Errorf("expected guest-1, got %s", p.Name())
	}

	if err := p.Send("S-ADVANCE-BETTINGSTAGE-100.00-1000.00"); err != nil {
		t.Fatalf("send: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != "S-ADVANCE-BETTINGSTAGE-100.00-1000.00" {
		t.Errorf("unexpected frame %s", msg)
	}
}

func TestHubRequiresToken(t *testing.T) {
	url, _ := serve(t, fakeValidator{})

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial without token to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", resp)
	}

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=bad", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected bad token to be rejected, got %v", err)
	}
}

func TestHubNamesFromToken(t *testing.T) {
	url, lobby := serve(t, fakeValidator{})

	header := http.Header{}
	header.Set("Authorization", "Bearer good")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	p := nextPeer(t, lobby)
	defer p.Close()
	if p.Name() != "Ada" {
		t.Errorf("expected Ada, got %s", p.Name())
	}
}
