// Package store persists campaign ledgers, contractor records, and the
// cross-campaign outreach-attempt index. The engine only depends on the
// Store interface; Firestore backs production and Memory backs tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/hirewire/outreach/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a campaign commit carries a stale revision;
// the caller re-reads and retries within its bounded budget.
var ErrConflict = errors.New("store: revision conflict")

// RegistryQuery filters tier-1 registry lookups.
type RegistryQuery struct {
	Categories   []string
	ServiceArea  string
	Availability types.Availability
}

// Store is the persistence boundary of the orchestration engine.
//
// Campaign writes are revision-checked: UpdateCampaign succeeds only when
// the given campaign's Revision matches the persisted document, then bumps
// it. Implementations also maintain a flat cross-campaign index of the
// attempts embedded in each campaign, which serves tier-2 re-engagement
// queries.
type Store interface {
	CreateCampaign(ctx context.Context, c *types.Campaign) error
	GetCampaign(ctx context.Context, id string) (*types.Campaign, error)
	UpdateCampaign(ctx context.Context, c *types.Campaign) error
	ListCampaigns(ctx context.Context) ([]*types.Campaign, error)

	UpsertContractor(ctx context.Context, c *types.CandidateContractor) error
	GetContractor(ctx context.Context, id string) (*types.CandidateContractor, error)
	QueryRegistry(ctx context.Context, q RegistryQuery) ([]*types.CandidateContractor, error)

	// ListAttemptsSince returns every outreach attempt, across all
	// campaigns, whose attempt timestamp is at or after since.
	ListAttemptsSince(ctx context.Context, since time.Time) ([]*types.OutreachAttempt, error)

	// ListDeclinedContractors returns the identities of contractors with a
	// permanently_declined attempt on record for any campaign, ever.
	ListDeclinedContractors(ctx context.Context) (map[string]bool, error)
}
