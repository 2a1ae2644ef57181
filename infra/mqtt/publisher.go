package mqtt

import (
	"context"
	"fmt"
	"sync"

	"github.com/kilianp07/dustplan/core/report"
)

// MockPublisher records published plans; used in tests.
type MockPublisher struct {
	mu     sync.Mutex
	Plans  map[string]*report.Plan
	Fail   bool
	Closed bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Plans: make(map[string]*report.Plan)}
}

// PublishPlan records the plan under its run id or fails when configured to.
func (m *MockPublisher) PublishPlan(_ context.Context, runID string, plan *report.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("publish failed")
	}
	m.Plans[runID] = plan
	return nil
}

// Close marks the publisher closed.
func (m *MockPublisher) Close() {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
}

// Count returns the number of recorded plans.
func (m *MockPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Plans)
}
