package sourcing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	places "google.golang.org/api/places/v1"

	"github.com/hirewire/outreach/pkg/store"
	"github.com/hirewire/outreach/pkg/types"
)

const placesFieldMask = "places.id,places.displayName,places.formattedAddress,places.rating,places.types"

// EnrichmentEnqueuer hands freshly discovered entities to the asynchronous
// enrichment collaborator that later supplies capability and size-class
// classification.
type EnrichmentEnqueuer interface {
	EnqueueEnrichment(ctx context.Context, c *types.CandidateContractor) error
}

// DiscoverySource is tier 3: contractors not present in the registry at
// all, found through a business-directory text search. Discoveries carry
// no capability or size classification yet; they are marked unscored and
// queued for enrichment, ranking last within the tier until enriched.
type DiscoverySource struct {
	svc      *places.Service
	store    store.Store
	enricher EnrichmentEnqueuer
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewDiscoverySource creates the tier-3 source.
func NewDiscoverySource(svc *places.Service, st store.Store, enricher EnrichmentEnqueuer, log *zap.SugaredLogger) *DiscoverySource {
	return &DiscoverySource{svc: svc, store: st, enricher: enricher, log: log, now: time.Now}
}

// Tier implements TierSource.
func (s *DiscoverySource) Tier() types.Tier { return types.TierDiscovery }

// Discover implements TierSource.
func (s *DiscoverySource) Discover(ctx context.Context, req Requirements, quota int) ([]*types.CandidateContractor, error) {
	query := strings.Join(req.Categories, " ") + " contractor"
	if req.ServiceArea != "" {
		query += " in " + req.ServiceArea
	}

	call := s.svc.Places.SearchText(&places.GoogleMapsPlacesV1SearchTextRequest{
		TextQuery:      query,
		MaxResultCount: int64(quota),
	}).Context(ctx)
	call.Header().Set("X-Goog-FieldMask", placesFieldMask)

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("places text search: %w", err)
	}

	candidates := make([]*types.CandidateContractor, 0, len(resp.Places))
	for _, place := range resp.Places {
		name := place.FormattedAddress
		if place.DisplayName != nil {
			name = place.DisplayName.Text
		}
		c := &types.CandidateContractor{
			ID:           "ext-" + place.Id,
			Name:         name,
			Tier:         types.TierDiscovery,
			ServiceAreas: []string{req.ServiceArea},
			Availability: types.Available,
			Rating:       place.Rating,
			JoinedAt:     s.now(),
			Unscored:     true,
			SourceRef:    place.Name,
		}
		candidates = append(candidates, c)

		// Persist the raw entity and hand it to the enrichment
		// collaborator; both are best-effort for a discovery pass.
		if err := s.store.UpsertContractor(ctx, c); err != nil {
			s.log.Warnw("failed to persist discovered contractor", "contractor", c.ID, "error", err)
		}
		if s.enricher != nil {
			if err := s.enricher.EnqueueEnrichment(ctx, c); err != nil {
				s.log.Warnw("failed to enqueue enrichment", "contractor", c.ID, "error", err)
			}
		}
	}

	// Everything here is unscored until enrichment lands; directory rating
	// is the only ordering signal available.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Unscored != b.Unscored {
			return !a.Unscored
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.ID < b.ID
	})

	if len(candidates) > quota {
		candidates = candidates[:quota]
	}
	return candidates, nil
}
