package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"blackjack-server/lobby"
	"blackjack-server/storage"
)

// StatusSource reports what the lobby is doing.
type StatusSource interface {
	Status() lobby.Status
}

// Handler holds dependencies for API handlers.
type Handler struct {
	Lobby        StatusSource
	HistoryStore storage.HistoryStore
}

// NewHandler creates a new API handler with the given dependencies.
// historyStore may be nil, in which case history is always empty.
func NewHandler(l StatusSource, historyStore storage.HistoryStore) *Handler {
	return &Handler{Lobby: l, HistoryStore: historyStore}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/table", h.Table)
	mux.HandleFunc("/api/history", h.History)
}

// CORS sets CORS headers on the response. Call before writing body.
func CORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// Table returns the lobby and table status.
func (h *Handler) Table(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.Lobby.Status())
}

// History returns the most recent settled rounds, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list := []storage.RoundSummary{}
	if h.HistoryStore != nil {
		var err error
		list, err = h.HistoryStore.ListRecentRounds(r.Context(), limit)
		if err != nil {
			slog.Error("listing rounds", "tag", "api", "err", err)
			http.Error(w, "failed to load history", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, list)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encoding response", "tag", "api", "err", err)
	}
}
