package timeout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutResolvesBudgets(t *testing.T) {
	m := NewManager(time.Minute)
	ctx := context.Background()

	assert.Equal(t, 5*time.Second, m.Timeout(ctx, "sourcing.tier1"))
	assert.Equal(t, 30*time.Second, m.Timeout(ctx, "sourcing.tier3"))
	assert.Equal(t, time.Minute, m.Timeout(ctx, "unknown.op"))

	m.SetOperationTimeout("sourcing.tier1", time.Second)
	assert.Equal(t, time.Second, m.Timeout(ctx, "sourcing.tier1"))
}

func TestTimeoutHonorsContextDeadline(t *testing.T) {
	m := NewManager(time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := m.Timeout(ctx, "sourcing.tier3")
	assert.LessOrEqual(t, got, time.Second)
	assert.Greater(t, got, time.Duration(0))
}

func TestWithTimeoutDerivesContext(t *testing.T) {
	m := NewManager(time.Minute)
	ctx, cancel := m.WithTimeout(context.Background(), "scorer.score")
	defer cancel()

	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(8*time.Second), deadline, 100*time.Millisecond)
}
