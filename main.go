package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"blackjack-server/api"
	"blackjack-server/auth"
	"blackjack-server/config"
	"blackjack-server/game"
	"blackjack-server/lobby"
	"blackjack-server/loghandler"
	"blackjack-server/storage"
	"blackjack-server/transport"
	"blackjack-server/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "tag", "main", "err", err)
		os.Exit(1)
	}
}

func run() error {
	envErr := godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	level, _ := cfg.Level()
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, level)))
	if envErr != nil {
		slog.Debug("no .env file found; using environment variables", "tag", "main")
	}

	slog.Info("configuration loaded", "tag", "main",
		"min_bet", cfg.MinBet, "starting_balance", cfg.StartingBalance,
		"decks", cfg.Decks, "reshuffle_at", cfg.ReshuffleAt,
		"players_per_table", cfg.PlayersPerTable,
		"tcp_port", cfg.TCPPort, "http_port", cfg.HTTPPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	var opts []game.Option
	var history storage.HistoryStore
	if store != nil {
		defer store.Close()
		opts = append(opts, game.WithRecorder(store))
		history = store
		slog.Info("round history enabled", "tag", "main")
	} else {
		slog.Info("DATABASE_URL not set; round history disabled", "tag", "main")
	}

	var validator ws.TokenValidator
	if cfg.AuthBaseURL != "" {
		v, err := auth.NewValidator(cfg.AuthBaseURL)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		validator = v
		slog.Info("websocket auth configured", "tag", "main", "base_url", cfg.AuthBaseURL)
	} else {
		slog.Info("AUTH_BASE_URL not set; websocket players join as guests", "tag", "main")
	}

	lb := lobby.New(cfg.Lobby(), opts...)
	hub := ws.NewHub(lb, validator, cfg.MaxLineLength)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	api.NewHandler(lb, history).Register(mux)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.TCPPort))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	tcpSrv := transport.NewTCPServer(ln, cfg.MaxLineLength, func(p game.Peer) {
		if err := lb.Enqueue(p); err != nil {
			slog.Info("player turned away", "tag", "main", "player", p.Name(), "err", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tcpSrv.Serve(gctx) })
	g.Go(func() error { return lb.Run(gctx) })
	g.Go(func() error {
		slog.Info("HTTP server listening", "tag", "main", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	slog.Info("server shut down", "tag", "main")
	return err
}
