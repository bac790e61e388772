package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"blackjack-server/api"
	"blackjack-server/cards"
	"blackjack-server/game"
	"blackjack-server/lobby"
	"blackjack-server/transport"
	"blackjack-server/ws"
)

type testServer struct {
	http  *httptest.Server
	tcp   *transport.TCPServer
	lobby *lobby.Lobby
}

// setupTestServer runs the full stack with a single seat per table and a
// shoe that always deals 10H 9S KD 9C.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	stack := []cards.Card{cards.MustParse("10H"), cards.MustParse("9S"), cards.MustParse("KD"), cards.MustParse("9C")}
	cfg := lobby.Config{
		Table:           game.Config{MinBet: 100, StartingBalance: 1000, Decks: 1},
		PlayersPerTable: 1,
	}
	lb := lobby.New(cfg,
		game.WithShoe(cards.NewStackedShoe(stack...)),
		game.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.NewHub(lb, nil, 256).ServeWS)
	api.NewHandler(lb, nil).Register(mux)
	srv := httptest.NewServer(mux)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	tcp := transport.NewTCPServer(ln, 256, func(p game.Peer) { lb.Enqueue(p) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 2)
	go func() { lb.Run(ctx); done <- struct{}{} }()
	go func() { tcp.Serve(ctx); done <- struct{}{} }()

	t.Cleanup(func() {
		cancel()
		<-done
		<-done
		srv.Close()
	})
	return &testServer{http: srv, tcp: tcp, lobby: lb}
}

func connectWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	return string(data)
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
}

func tableStatus(t *testing.T, srv *httptest.Server) lobby.Status {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/table")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer resp.Body.Close()
	var st lobby.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return st
}

// roundFrames is what a player who bets 100 and stands sees on the stacked shoe.
var roundFrames = []string{
	"S-ADVANCE-BETTINGSTAGE-100.00-1000.00",
	"S-ADVANCE-PLAYINGSTAGE",
	"S-DEALERHAND-9-9S-XX",
	"S-PLAYERHAND-1-20-10H-KD",
	"S-PLAYINGSTAGE-HITSTAND",
	"S-DEALERHAND-18-9S-9C",
	"S-PLAYERHAND-1-20-10H-KD",
	"S-PAYOUTSTAGE-HANDWIN-1",
	"S-PAYOUTSTAGE-ROUNDWIN-1100.00-100.00",
	"S-ADVANCE-PLAYAGAIN",
}

func TestIntegration_WebSocketRound(t *testing.T) {
	srv := setupTestServer(t)

	conn := connectWS(t, srv.http)
	defer conn.Close()

	replies := map[string]string{
		"S-ADVANCE-BETTINGSTAGE-100.00-1000.00": "C-BET-100",
		"S-PLAYINGSTAGE-HITSTAND":               "C-PLAYING-S",
		"S-ADVANCE-PLAYAGAIN":                   "C-PLAYAGAIN-N",
	}
	for i, want := range roundFrames {
		got := readFrame(t, conn)
		if got != want {
			t.Fatalf("frame %d: expected %s, got %s", i, want, got)
		}
		if reply, ok := replies[got]; ok {
			sendFrame(t, conn, reply)
		}
	}
	if got := readFrame(t, conn); got != "S-GAMEOVER" {
		t.Fatalf("expected S-GAMEOVER, got %s", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		st := tableStatus(t, srv.http)
		if st.State == lobby.StateWaiting && st.Round == 1 && st.TableID != "" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("lobby did not return to waiting: %+v", st)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestIntegration_TCPRound(t *testing.T) {
	srv := setupTestServer(t)

	conn, err := net.Dial("tcp", srv.tcp.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	r := bufio.NewReader(conn)
	readLine := func() string {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		return strings.TrimRight(line, "\r\n")
	}

	for i, want := range roundFrames {
		got := readLine()
		if got != want {
			t.Fatalf("line %d: expected %s, got %s", i, want, got)
		}
		switch got {
		case "S-ADVANCE-BETTINGSTAGE-100.00-1000.00":
			io.WriteString(conn, "C-BET-100\r\n")
		case "S-PLAYINGSTAGE-HITSTAND":
			io.WriteString(conn, "C-PLAYING-S\n")
		case "S-ADVANCE-PLAYAGAIN":
			io.WriteString(conn, "C-PLAYAGAIN-N\n")
		}
	}
	if got := readLine(); got != "S-GAMEOVER" {
		t.Fatalf("expected S-GAMEOVER, got %s", got)
	}
	if _, err := r.ReadString('\n'); err != io.EOF {
		t.Errorf("expected the server to close the connection, got %v", err)
	}
}

func TestIntegration_HistoryWithoutDatabase(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := http.Get(srv.http.URL + "/api/history?limit=3")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("unexpected response %d %q", resp.StatusCode, body)
	}
}
