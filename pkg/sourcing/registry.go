package sourcing

import (
	"context"
	"fmt"
	"sort"

	"github.com/hirewire/outreach/pkg/store"
	"github.com/hirewire/outreach/pkg/types"
)

// RegistrySource is tier 1: contractors already known to the system,
// filtered by capability intersection, service-area membership, and
// declared availability, ranked by scorer output.
type RegistrySource struct {
	store  store.Store
	scorer Scorer
}

// NewRegistrySource creates the tier-1 source.
func NewRegistrySource(st store.Store, scorer Scorer) *RegistrySource {
	return &RegistrySource{store: st, scorer: scorer}
}

// Tier implements TierSource.
func (s *RegistrySource) Tier() types.Tier { return types.TierRegistry }

// Discover implements TierSource.
func (s *RegistrySource) Discover(ctx context.Context, req Requirements, quota int) ([]*types.CandidateContractor, error) {
	candidates, err := s.store.QueryRegistry(ctx, store.RegistryQuery{
		Categories:   req.Categories,
		ServiceArea:  req.ServiceArea,
		Availability: types.Available,
	})
	if err != nil {
		return nil, fmt.Errorf("registry query: %w", err)
	}

	for _, c := range candidates {
		score, err := s.scorer.Score(ctx, req, c)
		if err != nil {
			return nil, fmt.Errorf("score contractor %s: %w", c.ID, err)
		}
		c.Tier = types.TierRegistry
		c.Score = score
	}

	// Deterministic ordering: score, then historical rating, then registry
	// seniority; contractor ID as the final stable tie-break.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ID < b.ID
	})

	if len(candidates) > quota {
		candidates = candidates[:quota]
	}
	return candidates, nil
}
