// Package sourcing produces ranked candidate contractors across three
// escalating tiers: internal registry, prior-outreach re-engagement, and
// external discovery.
package sourcing

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hirewire/outreach/pkg/taxonomy"
	"github.com/hirewire/outreach/pkg/types"
)

// Requirements are the project attributes a candidate is matched against.
type Requirements struct {
	Categories  []string
	ServiceArea string
	BudgetMin   *float64
	BudgetMax   *float64
}

// RequirementsFromRequest derives sourcing requirements from a campaign
// creation request.
func RequirementsFromRequest(req types.CampaignRequest) Requirements {
	return Requirements{
		Categories:  req.RequiredCategories,
		ServiceArea: req.ServiceArea,
		BudgetMin:   req.BudgetMin,
		BudgetMax:   req.BudgetMax,
	}
}

// Scorer produces a 0-100 fit score for a contractor against project
// requirements. Scores rank candidates within a tier; they never gate
// admission. Implementations must be deterministic for identical inputs
// within a single campaign evaluation.
type Scorer interface {
	Score(ctx context.Context, req Requirements, profile *types.CandidateContractor) (int, error)
}

// HeuristicScorer is the deterministic fallback scorer: capability overlap
// dominates, the rating signal refines, availability nudges.
type HeuristicScorer struct{}

// Score implements Scorer without any external dependency.
func (HeuristicScorer) Score(_ context.Context, req Requirements, profile *types.CandidateContractor) (int, error) {
	score := 0

	if n := len(req.Categories); n > 0 {
		overlap := 0
		caps := make(map[string]bool, len(profile.Capabilities))
		for _, c := range profile.Capabilities {
			caps[strings.ToLower(c)] = true
		}
		for _, c := range req.Categories {
			if caps[strings.ToLower(c)] {
				overlap++
			}
		}
		score += 60 * overlap / n
	}

	// Rating is on a 0-5 scale.
	rating := profile.Rating
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	score += int(rating * 6)

	if profile.Availability == types.Available {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score, nil
}

// FallbackScorer tries a primary scorer and absorbs its failure with the
// heuristic, so a dead ranking capability degrades ordering quality but
// never sourcing itself.
type FallbackScorer struct {
	Primary  Scorer
	Fallback Scorer
	Log      *zap.SugaredLogger
}

// NewFallbackScorer pairs a primary scorer with the heuristic fallback.
func NewFallbackScorer(primary Scorer, log *zap.SugaredLogger) *FallbackScorer {
	return &FallbackScorer{Primary: primary, Fallback: HeuristicScorer{}, Log: log}
}

// Score implements Scorer.
func (s *FallbackScorer) Score(ctx context.Context, req Requirements, profile *types.CandidateContractor) (int, error) {
	if s.Primary != nil {
		score, err := s.Primary.Score(ctx, req, profile)
		if err == nil {
			return score, nil
		}
		coded := taxonomy.Wrap(err, taxonomy.CodeScorerUnavailable)
		if s.Log != nil {
			s.Log.Warnw("primary scorer unavailable, using heuristic",
				"contractor", profile.ID, "error", coded)
		}
	}
	return s.Fallback.Score(ctx, req, profile)
}
