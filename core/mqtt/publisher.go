// Package mqtt defines how extracted plans are handed to site operators.
package mqtt

import (
	"context"
	"errors"

	"github.com/kilianp07/dustplan/core/report"
)

// ErrNotConnected is returned when publishing without a broker session.
var ErrNotConnected = errors.New("mqtt client not connected")

// PlanPublisher distributes an extracted plan, one message per site.
type PlanPublisher interface {
	PublishPlan(ctx context.Context, runID string, plan *report.Plan) error
	Close()
}

// NopPublisher discards plans.
type NopPublisher struct{}

func (NopPublisher) PublishPlan(context.Context, string, *report.Plan) error { return nil }
func (NopPublisher) Close()                                                  {}
