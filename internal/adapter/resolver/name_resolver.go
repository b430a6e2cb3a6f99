// Package resolver maps external ad references onto catalog ad ids. The
// matching heuristics live here, behind port.AdResolver, so the ledger
// only ever sees a resolved id.
package resolver

import (
	"context"
	"fmt"
	"regexp"

	"arcade-ads/internal/core/domain"
	"arcade-ads/internal/core/port"
)

// NameResolver resolves reporting-side ad names ("BoxAd1") to catalog
// ads. It tries an exact name match within the game first, then maps a
// numeric suffix onto the catalog naming scheme ("ad1").
type NameResolver struct {
	repo port.LedgerRepository
}

// NewNameResolver returns a resolver backed by the catalog in the
// ledger repository.
func NewNameResolver(repo port.LedgerRepository) *NameResolver {
	return &NameResolver{repo: repo}
}

var (
	trailingDigits = regexp.MustCompile(`[0-9]+$`)
	anyDigits      = regexp.MustCompile(`[0-9]+`)
)

// Resolve returns the ad id for the given reporting name, or
// domain.ErrAdNotFound when neither the exact name nor the mapped name
// exists in the game.
func (r *NameResolver) Resolve(ctx context.Context, gameID, adName string) (string, error) {
	if adName == "" {
		return "", fmt.Errorf("%w: empty ad name", domain.ErrAdNotFound)
	}

	ad, err := r.repo.FindAdByName(ctx, gameID, adName)
	if err != nil {
		return "", err
	}
	if ad == nil {
		if mapped := MapAdName(adName); mapped != adName {
			ad, err = r.repo.FindAdByName(ctx, gameID, mapped)
			if err != nil {
				return "", err
			}
		}
	}
	if ad == nil {
		return "", fmt.Errorf("%w: %q in game %s", domain.ErrAdNotFound, adName, gameID)
	}
	return ad.ID, nil
}

// MapAdName maps a reporting ad name onto the catalog naming scheme by
// its numeric part: "BoxAd1" becomes "ad1". Names without digits are
// returned unchanged.
func MapAdName(name string) string {
	if m := trailingDigits.FindString(name); m != "" {
		return "ad" + m
	}
	if m := anyDigits.FindString(name); m != "" {
		return "ad" + m
	}
	return name
}
