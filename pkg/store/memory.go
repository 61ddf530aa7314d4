package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hirewire/outreach/pkg/types"
)

// Memory is an in-memory Store used by tests and local runs. It enforces
// the same revision-conflict semantics as the Firestore implementation.
type Memory struct {
	mu          sync.RWMutex
	campaigns   map[string]*types.Campaign
	contractors map[string]*types.CandidateContractor
	attempts    map[string]*types.OutreachAttempt // campaignID/contractorID
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		campaigns:   make(map[string]*types.Campaign),
		contractors: make(map[string]*types.CandidateContractor),
		attempts:    make(map[string]*types.OutreachAttempt),
	}
}

func attemptKey(campaignID, contractorID string) string {
	return campaignID + "/" + contractorID
}

func cloneCampaign(c *types.Campaign) *types.Campaign {
	b, _ := json.Marshal(c)
	var out types.Campaign
	_ = json.Unmarshal(b, &out)
	return &out
}

func cloneContractor(c *types.CandidateContractor) *types.CandidateContractor {
	b, _ := json.Marshal(c)
	var out types.CandidateContractor
	_ = json.Unmarshal(b, &out)
	return &out
}

// CreateCampaign stores a new campaign ledger at revision 1.
func (m *Memory) CreateCampaign(ctx context.Context, c *types.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.Revision = 1
	stored := cloneCampaign(c)
	m.campaigns[c.ID] = stored
	m.indexAttempts(stored)
	return nil
}

// GetCampaign returns a copy of the persisted campaign.
func (m *Memory) GetCampaign(ctx context.Context, id string) (*types.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneCampaign(c), nil
}

// UpdateCampaign commits a campaign mutation if its revision is current.
func (m *Memory) UpdateCampaign(ctx context.Context, c *types.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.campaigns[c.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Revision != c.Revision {
		return ErrConflict
	}
	c.Revision++
	stored := cloneCampaign(c)
	m.campaigns[c.ID] = stored
	m.indexAttempts(stored)
	return nil
}

// ListCampaigns returns all campaigns ordered by creation time.
func (m *Memory) ListCampaigns(ctx context.Context) ([]*types.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.Campaign, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		out = append(out, cloneCampaign(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// indexAttempts refreshes the flat cross-campaign attempt index from the
// attempts embedded in a campaign document. Caller holds the write lock.
func (m *Memory) indexAttempts(c *types.Campaign) {
	for _, a := range c.Outreach {
		copied := *a
		m.attempts[attemptKey(a.CampaignID, a.ContractorID)] = &copied
	}
}

// UpsertContractor stores or replaces a contractor record.
func (m *Memory) UpsertContractor(ctx context.Context, c *types.CandidateContractor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contractors[c.ID] = cloneContractor(c)
	return nil
}

// GetContractor returns a copy of one contractor record.
func (m *Memory) GetContractor(ctx context.Context, id string) (*types.CandidateContractor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contractors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneContractor(c), nil
}

// QueryRegistry filters contractors by capability intersection, service
// area, and availability.
func (m *Memory) QueryRegistry(ctx context.Context, q RegistryQuery) ([]*types.CandidateContractor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.CandidateContractor
	for _, c := range m.contractors {
		if q.Availability != "" && c.Availability != q.Availability {
			continue
		}
		if q.ServiceArea != "" && !containsFold(c.ServiceAreas, q.ServiceArea) {
			continue
		}
		if len(q.Categories) > 0 && !intersects(c.Capabilities, q.Categories) {
			continue
		}
		out = append(out, cloneContractor(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListAttemptsSince returns attempts across all campaigns at or after since.
func (m *Memory) ListAttemptsSince(ctx context.Context, since time.Time) ([]*types.OutreachAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.OutreachAttempt
	for _, a := range m.attempts {
		if a.AttemptedAt.Before(since) {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptedAt.Before(out[j].AttemptedAt) })
	return out, nil
}

// ListDeclinedContractors returns contractors permanently declined on any
// attempt, with no recency cutoff.
func (m *Memory) ListDeclinedContractors(ctx context.Context) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]bool)
	for _, a := range m.attempts {
		if a.Status == types.ResponsePermanentlyDeclined {
			out[a.ContractorID] = true
		}
	}
	return out, nil
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[strings.ToLower(s)] = true
	}
	for _, s := range b {
		if set[strings.ToLower(s)] {
			return true
		}
	}
	return false
}
