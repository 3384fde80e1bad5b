package handlers

import (
	"net/http"
)

// ListArchive returns the indexed archive entries.
//
// GET /archive
func (h *Handlers) ListArchive(w http.ResponseWriter, r *http.Request) {
	entries, err := h.index.List(200)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list archive")
		writeError(w, http.StatusInternalServerError, "failed to list archive")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

// ScanArchive rescans the archive folder and refreshes the index.
//
// POST /archive/scan
func (h *Handlers) ScanArchive(w http.ResponseWriter, r *http.Request) {
	result, err := h.index.Refresh(r.Context(), h.walker, h.cfg.Workers)
	if err != nil {
		h.log.Error().Err(err).Msg("archive refresh failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
