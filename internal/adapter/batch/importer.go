// Package batch imports impression-request files produced by the
// performance reporting pipeline and records them through the ledger.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"log/slog"

	"arcade-ads/internal/core/domain"
	"arcade-ads/internal/core/port"
)

// Request is the impression-request file format: a list of per-ad
// impression counts reported against a game, keyed by reporting-side ad
// names.
type Request struct {
	Impressions []Entry `json:"impressions"`
}

// Entry is one reported ad in a request file.
type Entry struct {
	GameID  string `json:"game_id"`
	AdName  string `json:"ad_name"`
	Count   int64  `json:"count"`
	EventID string `json:"event_id,omitempty"`
}

// Summary aggregates the outcome of an import run.
type Summary struct {
	Total            int
	Successful       int
	Failed           int
	TotalImpressions int64
}

// Importer drives the ledger for each entry of a request file. Entries
// are independent; a failed entry is counted and logged, never fatal.
type Importer struct {
	ledger   port.ImpressionLedger
	resolver port.AdResolver
	logger   *slog.Logger
}

// NewImporter creates an importer.
func NewImporter(ledger port.ImpressionLedger, resolver port.AdResolver, logger *slog.Logger) *Importer {
	return &Importer{ledger: ledger, resolver: resolver, logger: logger}
}

// ImportFile reads and records an impression request file.
func (i *Importer) ImportFile(ctx context.Context, path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse impression request: %w", err)
	}
	return i.Import(ctx, req)
}

// Import records every entry of a request. A partial projection failure
// is handled by replaying the event once: the event is durable, only the
// unresolved fan-out is retried, never the append.
func (i *Importer) Import(ctx context.Context, req Request) (*Summary, error) {
	if len(req.Impressions) == 0 {
		return nil, errors.New("invalid impression request: no impressions")
	}

	summary := &Summary{Total: len(req.Impressions)}
	for _, entry := range req.Impressions {
		if err := i.record(ctx, entry); err != nil {
			summary.Failed++
			i.logger.Error("import entry failed",
				slog.String("game_id", entry.GameID),
				slog.String("ad_name", entry.AdName),
				slog.Any("error", err))
			continue
		}
		summary.Successful++
		count := entry.Count
		if count == 0 {
			count = 1
		}
		summary.TotalImpressions += count
	}
	return summary, nil
}

func (i *Importer) record(ctx context.Context, entry Entry) error {
	count := entry.Count
	if count == 0 {
		count = 1
	}

	adID, err := i.resolver.Resolve(ctx, entry.GameID, entry.AdName)
	if err != nil {
		return err
	}

	_, err = i.ledger.RecordAdImpressions(ctx, port.RecordAdRequest{
		AdID:    adID,
		GameID:  entry.GameID,
		Count:   count,
		EventID: entry.EventID,
	})

	var partial *domain.PartialProjectionError
	if errors.As(err, &partial) {
		i.logger.Warn("projection incomplete, replaying event",
			slog.String("event_id", partial.EventID),
			slog.Any("unresolved", partial.Unresolved))
		_, err = i.ledger.ReplayEvent(ctx, partial.EventID)
	}
	return err
}
