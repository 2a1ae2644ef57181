package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/dustplan/core/metrics"
	"github.com/kilianp07/dustplan/core/milp"
	"github.com/kilianp07/dustplan/infra/logger"
	"github.com/kilianp07/dustplan/internal/eventbus"
)

// StartProgressCollector subscribes to the solver progress bus and forwards
// every event to rec. It stops when the context is canceled or the bus is
// closed; the returned channel is closed once the collector has exited.
func StartProgressCollector(ctx context.Context, bus *eventbus.TypedBus[milp.Progress], rec coremetrics.ProgressRecorder, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || rec == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := rec.RecordProgress(ev); err != nil {
					log.Warnf("record progress: %v", err)
				}
			}
		}
	}()
	return done
}
