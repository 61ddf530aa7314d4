package sourcing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hirewire/outreach/pkg/store"
	"github.com/hirewire/outreach/pkg/types"
)

// ReengagementWindow is how far back a prior outreach attempt may lie for
// the contractor to qualify for tier-2 re-engagement.
const ReengagementWindow = 6 * 30 * 24 * time.Hour

// ReengagementSource is tier 2: contractors with a prior outreach attempt
// on any campaign within the recency window. Contractors with a
// permanently_declined attempt anywhere on record are excluded for good.
type ReengagementSource struct {
	store  store.Store
	scorer Scorer
	window time.Duration
	now    func() time.Time
}

// NewReengagementSource creates the tier-2 source.
func NewReengagementSource(st store.Store, scorer Scorer) *ReengagementSource {
	return &ReengagementSource{
		store:  st,
		scorer: scorer,
		window: ReengagementWindow,
		now:    time.Now,
	}
}

// Tier implements TierSource.
func (s *ReengagementSource) Tier() types.Tier { return types.TierReengagement }

// Discover implements TierSource.
func (s *ReengagementSource) Discover(ctx context.Context, req Requirements, quota int) ([]*types.CandidateContractor, error) {
	declined, err := s.store.ListDeclinedContractors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list declined contractors: %w", err)
	}

	since := s.now().Add(-s.window)
	attempts, err := s.store.ListAttemptsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list prior attempts: %w", err)
	}

	// Most recent attempt per contractor, skipping the permanently
	// declined regardless of how recent or well-scored they are.
	latest := make(map[string]time.Time)
	for _, a := range attempts {
		if declined[a.ContractorID] {
			continue
		}
		if t, ok := latest[a.ContractorID]; !ok || a.AttemptedAt.After(t) {
			latest[a.ContractorID] = a.AttemptedAt
		}
	}

	candidates := make([]*types.CandidateContractor, 0, len(latest))
	for id, engagedAt := range latest {
		profile, err := s.store.GetContractor(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue // attempt predates the contractor record
			}
			return nil, fmt.Errorf("load contractor %s: %w", id, err)
		}
		score, err := s.scorer.Score(ctx, req, profile)
		if err != nil {
			return nil, fmt.Errorf("score contractor %s: %w", id, err)
		}
		profile.Tier = types.TierReengagement
		profile.Score = score
		engaged := engagedAt
		profile.LastEngagedAt = &engaged
		candidates = append(candidates, profile)
	}

	// Score first; newer prior engagement breaks ties upward.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.LastEngagedAt.Equal(*b.LastEngagedAt) {
			return a.LastEngagedAt.After(*b.LastEngagedAt)
		}
		return a.ID < b.ID
	})

	if len(candidates) > quota {
		candidates = candidates[:quota]
	}
	return candidates, nil
}
