package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	"arcade-ads/internal/core/domain"
	"arcade-ads/internal/core/port"
)

// batchRequest mirrors the performance-import file format: entries name
// ads the way the reporting side knows them, and the resolver maps them
// to catalog ad ids before the ledger is invoked.
type batchRequest struct {
	Impressions []batchEntry `json:"impressions"`
}

type batchEntry struct {
	GameID  string `json:"game_id"`
	AdName  string `json:"ad_name"`
	Count   int64  `json:"count"`
	EventID string `json:"event_id,omitempty"`
}

type batchEntryResult struct {
	AdName              string   `json:"ad_name"`
	AdID                string   `json:"ad_id,omitempty"`
	EventID             string   `json:"event_id,omitempty"`
	Status              string   `json:"status"`
	Error               string   `json:"error,omitempty"`
	UnresolvedCampaigns []string `json:"unresolved_campaigns,omitempty"`
}

type batchResponse struct {
	Total      int                `json:"total"`
	Successful int                `json:"successful"`
	Failed     int                `json:"failed"`
	Results    []batchEntryResult `json:"results"`
}

// handleRecordBatch records a batch of impressions. Entries are
// independent: one failing entry does not stop the rest, and a partial
// projection failure is reported per entry with enough detail to replay
// the event rather than resubmit it.
func (h *Handler) handleRecordBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if len(req.Impressions) == 0 {
		http.Error(w, "impressions array is required", http.StatusBadRequest)
		return
	}

	resp := batchResponse{Total: len(req.Impressions)}
	for _, entry := range req.Impressions {
		result := h.recordBatchEntry(r.Context(), entry)
		if result.Status == "ok" {
			resp.Successful++
		} else {
			resp.Failed++
		}
		resp.Results = append(resp.Results, result)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) recordBatchEntry(ctx context.Context, entry batchEntry) batchEntryResult {
	result := batchEntryResult{AdName: entry.AdName}

	count := entry.Count
	if count == 0 {
		count = 1
	}

	adID, err := h.resolver.Resolve(ctx, entry.GameID, entry.AdName)
	if err != nil {
		result.Status = "failed"
		result.Error = err.Error()
		return result
	}
	result.AdID = adID

	res, err := h.ledger.RecordAdImpressions(ctx, port.RecordAdRequest{
		AdID:    adID,
		GameID:  entry.GameID,
		Count:   count,
		EventID: entry.EventID,
	})
	var partial *domain.PartialProjectionError
	switch {
	case errors.As(err, &partial):
		result.Status = "partial"
		result.EventID = partial.EventID
		result.Error = partial.Error()
		result.UnresolvedCampaigns = partial.Unresolved
		h.logger.Warn("batch entry projected partially",
			slog.String("ad_id", adID), slog.String("event_id", partial.EventID))
	case err != nil:
		result.Status = "failed"
		result.Error = err.Error()
	default:
		result.Status = "ok"
		result.EventID = res.EventID
	}
	return result
}
