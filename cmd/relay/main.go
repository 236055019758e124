package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dpmeschat/internal/relay"
)

func main() {
	_ = godotenv.Load()

	port := os.Getenv("RELAY_PORT")
	if port == "" {
		port = "9000"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	hub := relay.NewHub(logger)
	server := relay.NewServer(hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", server.HandleWS)
	mux.HandleFunc("POST /stream_chunk", server.HandleStreamChunk)
	mux.HandleFunc("GET /health", server.HandleHealth)

	httpServer := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout disabled to allow long-lived websocket streams
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("relay shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("relay listening", "port", port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Relay server error: %v", err)
	}
}
