package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-project", cfg.ProjectID)
	assert.Equal(t, "us-central1", cfg.Region)
	assert.Equal(t, "campaigns", cfg.CampaignCollection)
	assert.Equal(t, 50, cfg.Tier1Capacity)
	assert.Equal(t, 25, cfg.Tier2Capacity)
	assert.Equal(t, 40, cfg.Tier3Capacity)
	assert.Equal(t, 3, cfg.CommitRetryBudget)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")
	t.Setenv("OUTREACH_TIER1_CAPACITY", "10")
	t.Setenv("OUTREACH_RESPONSE_SUBSCRIPTION", "responses-dev")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Tier1Capacity)
	assert.Equal(t, "responses-dev", cfg.ResponseSubscription)
}

func TestLoadRequiresProject(t *testing.T) {
	// t.Setenv registers the restore; the unset makes the var truly absent.
	t.Setenv("GOOGLE_CLOUD_PROJECT", "x")
	os.Unsetenv("GOOGLE_CLOUD_PROJECT")

	_, err := Load()
	assert.Error(t, err)
}
