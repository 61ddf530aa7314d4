package sourcing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hirewire/outreach/pkg/timeout"
	"github.com/hirewire/outreach/pkg/types"
)

type stubSource struct {
	tier  types.Tier
	ids   []string
	err   error
	calls int
	asked []int
}

func (s *stubSource) Tier() types.Tier { return s.tier }

func (s *stubSource) Discover(ctx context.Context, req Requirements, quota int) ([]*types.CandidateContractor, error) {
	s.calls++
	s.asked = append(s.asked, quota)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*types.CandidateContractor, 0, quota)
	for _, id := range s.ids {
		if len(out) == quota {
			break
		}
		out = append(out, &types.CandidateContractor{ID: id, Tier: s.tier})
	}
	return out, nil
}

func testPipeline(t *testing.T, sources ...TierSource) *Pipeline {
	t.Helper()
	return NewPipeline(timeout.NewManager(time.Minute), zaptest.NewLogger(t).Sugar(), sources...)
}

func quotas(t1, t2, t3 int) types.TierCounts {
	return types.TierCounts{Registry: t1, Reengagement: t2, Discovery: t3}
}

func TestPipelineSkipsDiscoveryWhenQuotaMet(t *testing.T) {
	t1 := &stubSource{tier: types.TierRegistry, ids: []string{"r1", "r2", "r3"}}
	t2 := &stubSource{tier: types.TierReengagement, ids: []string{"e1"}}
	t3 := &stubSource{tier: types.TierDiscovery, ids: []string{"d1"}}
	p := testPipeline(t, t1, t2, t3)

	res, err := p.Source(context.Background(), Requirements{}, quotas(3, 1, 2), 4, nil)
	require.NoError(t, err)

	assert.Len(t, res.Candidates, 4)
	assert.Equal(t, 0, t3.calls, "tier 3 is skipped once internal pools met the total")
	assert.Equal(t, 3, res.PerTier.Registry)
	assert.Equal(t, 1, res.PerTier.Reengagement)
}

func TestPipelineRollsShortfallForward(t *testing.T) {
	t1 := &stubSource{tier: types.TierRegistry, ids: []string{"r1"}}
	t2 := &stubSource{tier: types.TierReengagement, ids: []string{"e1", "e2", "e3", "e4"}}
	t3 := &stubSource{tier: types.TierDiscovery, ids: []string{"d1", "d2"}}
	p := testPipeline(t, t1, t2, t3)

	res, err := p.Source(context.Background(), Requirements{}, quotas(3, 2, 1), 6, nil)
	require.NoError(t, err)

	// Tier 1 delivered 1 of 3; the unmet 2 roll onto tier 2's quota.
	assert.Equal(t, []int{3}, t1.asked)
	assert.Equal(t, []int{4}, t2.asked)
	assert.Equal(t, []int{1}, t3.asked)

	assert.True(t, res.Shortfall.Registry)
	assert.False(t, res.Shortfall.Reengagement)
	assert.Len(t, res.Candidates, 6)
}

func TestPipelineAbsorbsDegradedTier(t *testing.T) {
	t1 := &stubSource{tier: types.TierRegistry, err: errors.New("registry down")}
	t2 := &stubSource{tier: types.TierReengagement, ids: []string{"e1", "e2", "e3"}}
	p := testPipeline(t, t1, t2)

	res, err := p.Source(context.Background(), Requirements{}, quotas(2, 1, 0), 3, nil)
	require.NoError(t, err, "a dead tier degrades sourcing, it never fails it")

	require.Len(t, res.Degraded, 1)
	assert.Equal(t, types.TierRegistry, res.Degraded[0].Tier)
	assert.False(t, res.Shortfall.Registry, "degraded is not exhausted")

	// Tier 1's full ask carried onto tier 2.
	assert.Equal(t, []int{3}, t2.asked)
	assert.Len(t, res.Candidates, 3)
}

func TestPipelineDedupesAndExcludes(t *testing.T) {
	t1 := &stubSource{tier: types.TierRegistry, ids: []string{"x", "r1"}}
	t2 := &stubSource{tier: types.TierReengagement, ids: []string{"r1", "e1"}}
	p := testPipeline(t, t1, t2)

	res, err := p.Source(context.Background(), Requirements{}, quotas(2, 2, 0), 4,
		map[string]bool{"x": true})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, c := range res.Candidates {
		assert.False(t, seen[c.ID], "duplicate candidate %s", c.ID)
		seen[c.ID] = true
	}
	assert.NotContains(t, seen, "x", "excluded contractors never reappear")
	assert.Contains(t, seen, "r1")
	assert.Contains(t, seen, "e1")
}

func TestPipelineOrdersSourcesByTier(t *testing.T) {
	t3 := &stubSource{tier: types.TierDiscovery, ids: []string{"d1"}}
	t1 := &stubSource{tier: types.TierRegistry, ids: []string{"r1"}}
	p := testPipeline(t, t3, t1)

	res, err := p.Source(context.Background(), Requirements{}, quotas(1, 0, 1), 2, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "r1", res.Candidates[0].ID, "registry results come first regardless of registration order")
}
