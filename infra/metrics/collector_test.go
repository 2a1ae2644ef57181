package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/dustplan/core/milp"
	"github.com/kilianp07/dustplan/infra/logger"
	"github.com/kilianp07/dustplan/internal/eventbus"
)

type progressLog struct {
	mu     sync.Mutex
	events []milp.Progress
}

func (p *progressLog) RecordProgress(ev milp.Progress) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *progressLog) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestStartProgressCollector(t *testing.T) {
	bus := eventbus.NewTyped[milp.Progress]()
	rec := &progressLog{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartProgressCollector(ctx, bus, rec, logger.NopLogger{})

	bus.Publish(milp.Progress{Kind: milp.ProgressIncumbent, Incumbent: 4, HasIncumbent: true})
	bus.Publish(milp.Progress{Kind: milp.ProgressDone})
	assert.Eventually(t, func() bool { return rec.len() == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestStartProgressCollector_BusClosed(t *testing.T) {
	bus := eventbus.NewTyped[milp.Progress]()
	done := StartProgressCollector(context.Background(), bus, &progressLog{}, nil)
	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestStartProgressCollector_NilBus(t *testing.T) {
	done := StartProgressCollector(context.Background(), nil, &progressLog{}, nil)
	_, open := <-done
	assert.False(t, open)
}
