package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"log/slog"

	"arcade-ads/internal/core/domain"
	"arcade-ads/internal/core/port"
)

// Handler contains dependencies and routes. It is an inbound adapter for
// HTTP. It holds the ledger to execute business logic, the resolver used
// by the batch endpoint and a logger for structured logging. Routes are
// registered on a chi.Router for convenient method handling.
type Handler struct {
	ledger   port.ImpressionLedger
	resolver port.AdResolver
	logger   *slog.Logger
	router   chi.Router
}

// NewHandler creates a handler with all routes configured.
func NewHandler(ledger port.ImpressionLedger, resolver port.AdResolver, logger *slog.Logger) *Handler {
	h := &Handler{ledger: ledger, resolver: resolver, logger: logger}
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/impressions", h.handleRecordImpressions)
		r.Post("/impressions/batch", h.handleRecordBatch)
		r.Post("/impressions/{eventID}/replay", h.handleReplayEvent)
		r.Get("/campaigns/{campaignID}/status", h.handleCampaignStatus)
		r.Get("/ads/{adID}", h.handleGetAd)
	})
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
	// EventID and UnresolvedCampaigns are set on partial projection
	// failures so the caller can replay the event for the remaining
	// campaigns.
	EventID             string   `json:"event_id,omitempty"`
	UnresolvedCampaigns []string `json:"unresolved_campaigns,omitempty"`
}

// writeError maps domain errors onto HTTP statuses. Caller errors are
// 4xx and must not be retried; a partial projection failure returns the
// diagnostic the caller needs to retry only the unresolved fan-out.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var partial *domain.PartialProjectionError
	switch {
	case errors.Is(err, domain.ErrInvalidCount):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrCampaignNotFound),
		errors.Is(err, domain.ErrSlotNotFound),
		errors.Is(err, domain.ErrAdNotFound),
		errors.Is(err, domain.ErrEventNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &partial):
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:               partial.Error(),
			EventID:             partial.EventID,
			UnresolvedCampaigns: partial.Unresolved,
		})
	default:
		h.logger.Error("internal error", slog.Any("error", err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
