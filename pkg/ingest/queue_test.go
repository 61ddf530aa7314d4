package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseEventWireShape(t *testing.T) {
	payload := []byte(`{
		"campaign_id": "c-1",
		"contractor_id": "ct-7",
		"status": "interested",
		"timestamp": "2026-03-01T12:00:00Z"
	}`)

	var ev ResponseEvent
	require.NoError(t, json.Unmarshal(payload, &ev))
	assert.Equal(t, "c-1", ev.CampaignID)
	assert.Equal(t, "ct-7", ev.ContractorID)
	assert.Equal(t, "interested", ev.Status)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), ev.Timestamp)
}
