package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"arcade-ads/internal/core/port"
)

// recordRequest is the payload for POST /impressions. EventID is
// optional; retries of the same logical impression must resend it so the
// ledger can deduplicate.
type recordRequest struct {
	CampaignID string `json:"campaign_id"`
	GameID     string `json:"game_id"`
	AdID       string `json:"ad_id"`
	Count      int64  `json:"count"`
	EventID    string `json:"event_id,omitempty"`
}

type recordResponse struct {
	EventID            string `json:"event_id"`
	CurrentImpressions int64  `json:"current_impressions"`
	TotalAdImpressions int64  `json:"total_ad_impressions"`
}

// handleRecordImpressions records impressions against a declared
// (campaign, game, ad) slot. Missing identifiers produce HTTP 400,
// unknown campaign or slot HTTP 404. A partial fan-out failure returns
// the structured diagnostic from writeError instead of the counters.
func (h *Handler) handleRecordImpressions(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.CampaignID == "" || req.GameID == "" || req.AdID == "" {
		http.Error(w, "campaign_id, game_id and ad_id are required", http.StatusBadRequest)
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}

	res, err := h.ledger.RecordImpressions(r.Context(), port.RecordRequest{
		CampaignID: req.CampaignID,
		GameID:     req.GameID,
		AdID:       req.AdID,
		Count:      req.Count,
		EventID:    req.EventID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, recordResponse{
		EventID:            res.EventID,
		CurrentImpressions: res.CurrentImpressions,
		TotalAdImpressions: res.TotalAdImpressions,
	})
}

// handleReplayEvent re-runs projection for a stored event. Used by
// callers recovering from a partial projection failure.
func (h *Handler) handleReplayEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	if eventID == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}
	res, err := h.ledger.ReplayEvent(r.Context(), eventID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}
