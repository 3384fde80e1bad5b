// Package handlers is the HTTP surface: it receives container bytes (by
// archive filename, by upload, or as plain text bypassing extraction),
// runs the extraction pipeline and the analysis collaborator, and relays
// the assembled report.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kdelaney/msg-analyzer/internal/archive"
	"github.com/kdelaney/msg-analyzer/internal/config"
	"github.com/kdelaney/msg-analyzer/internal/container"
	"github.com/kdelaney/msg-analyzer/internal/parser"
)

// Analyzer is the analysis collaborator consumed by the handlers
type Analyzer interface {
	Analyze(ctx context.Context, text string) (string, error)
}

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	cfg      *config.Config
	walker   *parser.Walker
	analyzer Analyzer
	index    *archive.Index
	log      zerolog.Logger
}

// New creates a new Handlers instance
func New(cfg *config.Config, walker *parser.Walker, analyzer Analyzer, index *archive.Index, log zerolog.Logger) *Handlers {
	return &Handlers{
		cfg:      cfg,
		walker:   walker,
		analyzer: analyzer,
		index:    index,
		log:      log,
	}
}

// Healthz reports service liveness
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// supportedContainerName reports whether the filename has a container
// extension the service accepts.
func supportedContainerName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".msg", ".eml":
		return true
	}
	return false
}

// statusForParseError maps walker errors onto HTTP statuses
func statusForParseError(err error) int {
	if errors.Is(err, container.ErrUnsupportedFormat) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
