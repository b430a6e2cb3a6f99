package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type adResponse struct {
	AdID                string           `json:"ad_id"`
	Name                string           `json:"name"`
	GameID              string           `json:"game_id,omitempty"`
	TotalImpressions    int64            `json:"total_impressions"`
	CampaignImpressions map[string]int64 `json:"campaign_impressions"`
}

// handleGetAd returns the ad aggregate read-out: the total across all
// campaigns and the per-campaign attribution map.
func (h *Handler) handleGetAd(w http.ResponseWriter, r *http.Request) {
	adID := chi.URLParam(r, "adID")
	if adID == "" {
		http.Error(w, "missing ad id", http.StatusBadRequest)
		return
	}
	ad, err := h.ledger.GetAd(r.Context(), adID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, adResponse{
		AdID:                ad.ID,
		Name:                ad.Name,
		GameID:              ad.GameID,
		TotalImpressions:    ad.TotalImpressions,
		CampaignImpressions: ad.CampaignImpressions,
	})
}
