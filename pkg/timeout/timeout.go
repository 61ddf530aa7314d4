// Package timeout manages per-operation time budgets for the engine's
// long-running external calls.
package timeout

import (
	"context"
	"sync"
	"time"
)

// Budgets defines default timeouts for named operations. Tier-3 discovery
// gets the widest budget; it is the slowest source in the cascade.
var Budgets = map[string]time.Duration{
	"sourcing.tier1": 5 * time.Second,
	"sourcing.tier2": 10 * time.Second,
	"sourcing.tier3": 30 * time.Second,
	"scorer.score":   8 * time.Second,
	"store.commit":   5 * time.Second,
	"notify.publish": 10 * time.Second,
}

// Manager resolves timeouts for named operations, with optional overrides.
type Manager struct {
	global    time.Duration
	operation map[string]time.Duration
	mu        sync.RWMutex
}

// NewManager creates a manager seeded with the default budgets.
func NewManager(global time.Duration) *Manager {
	ops := make(map[string]time.Duration, len(Budgets))
	for op, d := range Budgets {
		ops[op] = d
	}
	return &Manager{global: global, operation: ops}
}

// SetOperationTimeout overrides the budget for a specific operation.
func (m *Manager) SetOperationTimeout(operation string, timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operation[operation] = timeout
}

// Timeout returns the budget for an operation, never exceeding an
// already-present context deadline.
func (m *Manager) Timeout(ctx context.Context, operation string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	budget := m.global
	if d, ok := m.operation[operation]; ok {
		budget = d
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < budget {
			return remaining
		}
	}
	return budget
}

// WithTimeout derives a context bounded by the operation's budget.
func (m *Manager) WithTimeout(ctx context.Context, operation string) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.Timeout(ctx, operation))
}
