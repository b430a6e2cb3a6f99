package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleCampaignStatus returns the derived completion status for a
// campaign: totals, percent complete and per-slot progress. The status
// is computed from the stored slot aggregates on every call.
func (h *Handler) handleCampaignStatus(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	if campaignID == "" {
		http.Error(w, "missing campaign id", http.StatusBadRequest)
		return
	}
	status, err := h.ledger.Evaluate(r.Context(), campaignID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}
