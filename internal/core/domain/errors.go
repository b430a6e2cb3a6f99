package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCount is returned when a caller submits a zero or
	// negative impression count.
	ErrInvalidCount = errors.New("impression count must be positive")

	// ErrCampaignNotFound is returned when the named campaign does not exist.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrSlotNotFound is returned when the campaign never declared the
	// requested (game, ad) slot.
	ErrSlotNotFound = errors.New("ad/game slot not found in campaign")

	// ErrAdNotFound is returned by read paths; recording self-heals
	// missing ad aggregates instead of failing.
	ErrAdNotFound = errors.New("ad not found")

	// ErrEventNotFound is returned when replaying an unknown event id.
	ErrEventNotFound = errors.New("impression event not found")

	// ErrStorageContention marks a transient storage conflict. It is
	// retried internally before surfacing as a partial failure.
	ErrStorageContention = errors.New("storage contention")
)

// PartialProjectionError reports a fan-out that updated some campaigns
// but exhausted retries on others. The event itself is durable; callers
// retry projection for the unresolved campaigns only, never the event
// append or the direct-path update.
type PartialProjectionError struct {
	EventID    string
	AdID       string
	Applied    []string
	Unresolved []string
}

func (e *PartialProjectionError) Error() string {
	return fmt.Sprintf("projection of event %s (ad %s) left campaigns unresolved: %s",
		e.EventID, e.AdID, strings.Join(e.Unresolved, ", "))
}
