package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/outreach/pkg/types"
)

func TestMemoryRevisionConflict(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	c := &types.Campaign{ID: "c-1", State: types.StateScheduled, CreatedAt: time.Now()}
	require.NoError(t, st.CreateCampaign(ctx, c))
	assert.Equal(t, int64(1), c.Revision)

	first, err := st.GetCampaign(ctx, "c-1")
	require.NoError(t, err)
	second, err := st.GetCampaign(ctx, "c-1")
	require.NoError(t, err)

	first.State = types.StateActive
	require.NoError(t, st.UpdateCampaign(ctx, first))
	assert.Equal(t, int64(2), first.Revision)

	// The second reader holds a stale revision now.
	second.State = types.StateFailed
	err = st.UpdateCampaign(ctx, second)
	assert.ErrorIs(t, err, ErrConflict)

	current, err := st.GetCampaign(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, types.StateActive, current.State)
}

func TestMemoryGetReturnsCopies(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	require.NoError(t, st.CreateCampaign(ctx, &types.Campaign{
		ID:       "c-1",
		State:    types.StateScheduled,
		Outreach: map[string]*types.OutreachAttempt{},
	}))

	got, err := st.GetCampaign(ctx, "c-1")
	require.NoError(t, err)
	got.State = types.StateFailed
	got.Outreach["x"] = &types.OutreachAttempt{ContractorID: "x"}

	fresh, err := st.GetCampaign(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, types.StateScheduled, fresh.State)
	assert.Empty(t, fresh.Outreach)
}

func TestMemoryNotFound(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	_, err := st.GetCampaign(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.GetContractor(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	err = st.UpdateCampaign(ctx, &types.Campaign{ID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryQueryRegistry(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	require.NoError(t, st.UpsertContractor(ctx, &types.CandidateContractor{
		ID:           "a",
		Capabilities: []string{"Roofing"},
		ServiceAreas: []string{"Metro-East"},
		Availability: types.Available,
	}))
	require.NoError(t, st.UpsertContractor(ctx, &types.CandidateContractor{
		ID:           "b",
		Capabilities: []string{"plumbing"},
		ServiceAreas: []string{"metro-east"},
		Availability: types.Available,
	}))

	got, err := st.QueryRegistry(ctx, RegistryQuery{
		Categories:   []string{"roofing"},
		ServiceArea:  "metro-east",
		Availability: types.Available,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID, "capability and area matching is case-insensitive")
}

func TestMemoryAttemptIndex(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	c := &types.Campaign{
		ID:    "c-1",
		State: types.StateMonitoring,
		Outreach: map[string]*types.OutreachAttempt{
			"x": {CampaignID: "c-1", ContractorID: "x", AttemptedAt: base, Status: types.ResponsePending},
			"y": {CampaignID: "c-1", ContractorID: "y", AttemptedAt: base.Add(-time.Hour), Status: types.ResponsePermanentlyDeclined},
		},
		CreatedAt: base,
	}
	require.NoError(t, st.CreateCampaign(ctx, c))

	attempts, err := st.ListAttemptsSince(ctx, base.Add(-30*time.Minute))
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "x", attempts[0].ContractorID)

	declined, err := st.ListDeclinedContractors(ctx)
	require.NoError(t, err)
	assert.True(t, declined["y"])
	assert.False(t, declined["x"])
}
