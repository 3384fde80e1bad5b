package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/kdelaney/msg-analyzer/internal/analysis"
	"github.com/kdelaney/msg-analyzer/internal/archive"
	"github.com/kdelaney/msg-analyzer/internal/config"
	"github.com/kdelaney/msg-analyzer/internal/handlers"
	"github.com/kdelaney/msg-analyzer/internal/parser"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	// Ensure the archive folder exists before indexing it
	if err := os.MkdirAll(cfg.ArchivePath, 0755); err != nil {
		log.Fatal().Err(err).Msg("failed to create archive folder")
	}

	index, err := archive.Open(cfg.IndexPath, cfg.ArchivePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open archive index")
	}
	defer index.Close()

	walker := parser.New(cfg, log)
	analyzer := analysis.NewClient(cfg, log)

	log.Info().Str("archive", index.Root()).Str("index", cfg.IndexPath).Msg("archive configured")

	// Index the archive on startup; a failed refresh is not fatal
	if result, err := index.Refresh(context.Background(), walker, cfg.Workers); err != nil {
		log.Warn().Err(err).Msg("startup archive refresh failed")
	} else {
		log.Info().Int("found", result.Found).Int("indexed", result.Indexed).
			Int("failed", result.Failed).Msg("startup archive refresh complete")
	}

	h := handlers.New(cfg, walker, analyzer, index, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/healthz", h.Healthz)
	r.Get("/analyze-email", h.AnalyzeEmail)
	r.Post("/analyze-text", h.AnalyzeText)
	r.Post("/analyze-file", h.AnalyzeFile)
	r.Get("/archive", h.ListArchive)
	r.Post("/archive/scan", h.ScanArchive)

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // uploads and nested analysis can be slow
		IdleTimeout:  60 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("url", cfg.URL()).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-sigChan
	log.Info().Msg("shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	log.Info().Msg("server stopped")
}
