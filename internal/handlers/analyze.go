package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/kdelaney/msg-analyzer/internal/fields"
	"github.com/kdelaney/msg-analyzer/internal/report"
)

// AnalyzeEmail parses a container from the archive folder by filename and
// analyzes the body of every message level.
//
// GET /analyze-email?filename=report.msg
func (h *Handlers) AnalyzeEmail(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "filename query parameter is required")
		return
	}
	if !supportedContainerName(filename) {
		writeError(w, http.StatusBadRequest, "only .msg and .eml files are supported")
		return
	}

	path, err := h.index.Resolve(filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	parsed, err := h.walker.ParseFile(r.Context(), path)
	if err != nil {
		h.log.Error().Str("file", filename).Err(err).Msg("parse failed")
		writeError(w, statusForParseError(err), err.Error())
		return
	}

	rep, err := report.Build(r.Context(), parsed, h.analyzer.Analyze)
	if err != nil {
		h.log.Error().Str("file", filename).Err(err).Msg("analysis failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

// textAnalysisRequest is the body of POST /analyze-text
type textAnalysisRequest struct {
	TextInput string `json:"text_input"`
}

// AnalyzeText analyzes raw text, bypassing container extraction entirely.
//
// POST /analyze-text
func (h *Handlers) AnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req textAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.TextInput) == "" {
		writeError(w, http.StatusBadRequest, "text input is empty")
		return
	}

	answer, err := h.analyzer.Analyze(r.Context(), req.TextInput)
	if err != nil {
		h.log.Error().Err(err).Msg("analysis failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	fs := fields.Parse(answer)
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis": report.Analysis{Answer: answer, Fields: fs.Fields},
	})
}

// AnalyzeFile accepts an uploaded container, parses it through a scoped
// temp file and analyzes every message level.
//
// POST /analyze-file (multipart, field "file")
func (h *Handlers) AnalyzeFile(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file upload is required")
		return
	}
	defer file.Close()

	if !supportedContainerName(header.Filename) {
		writeError(w, http.StatusBadRequest, "only .msg and .eml files are supported")
		return
	}

	// Spool the upload to a temp file scoped to this request
	tmp, err := os.CreateTemp("", "msg-analyzer-upload-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if err := tmp.Close(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	parsed, err := h.walker.ParseFile(r.Context(), tmpPath)
	if err != nil {
		h.log.Error().Str("file", header.Filename).Err(err).Msg("parse failed")
		writeError(w, statusForParseError(err), err.Error())
		return
	}

	rep, err := report.Build(r.Context(), parsed, h.analyzer.Analyze)
	if err != nil {
		h.log.Error().Str("file", header.Filename).Err(err).Msg("analysis failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rep)
}
