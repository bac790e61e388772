// Package ws serves browser players over WebSocket and hands them to the
// lobby.
package ws

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"blackjack-server/auth"
	"blackjack-server/game"
	"blackjack-server/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development; restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Enqueuer is what the Hub needs from the lobby.
type Enqueuer interface {
	Enqueue(p game.Peer) error
}

// TokenValidator checks a bearer token and returns its claims.
type TokenValidator interface {
	Validate(token string) (jwt.MapClaims, error)
}

// Hub upgrades WebSocket requests and seats the resulting peers in the lobby.
type Hub struct {
	lobby     Enqueuer
	validator TokenValidator
	maxLine   int
	guests    atomic.Int64
	log       *slog.Logger
}

// NewHub creates a Hub. With a nil validator every connection is accepted
// and named guest-<n>.
func NewHub(lobby Enqueuer, validator TokenValidator, maxLine int) *Hub {
	return &Hub{
		lobby:     lobby,
		validator: validator,
		maxLine:   maxLine,
		log:       slog.Default().With("tag", "ws"),
	}
}

// ServeWS authenticates the request when a validator is configured, then
// upgrades it and hands the peer to the lobby.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("guest-%d", h.guests.Add(1))
	if h.validator != nil {
		token, err := auth.TokenFromRequest(r)
		if err != nil {
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		}
		claims, err := h.validator.Validate(token)
		if err != nil {
			h.log.Info("rejecting token", "err", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		name = auth.FirstNameFromClaims(claims, name)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "err", err)
		return
	}

	peer := transport.NewWSPeer(conn, name, h.maxLine)
	h.log.Info("client connected", "player", name, "remote", r.RemoteAddr)
	if err := h.lobby.Enqueue(peer); err != nil {
		h.log.Info("player turned away", "player", name, "err", err)
	}
}
