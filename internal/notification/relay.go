package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lifebee/pkg/logger"

	"github.com/robfig/cron"
)

// Relay periodically sweeps the outbox for events the synchronous path did not deliver
type Relay struct {
	dispatcher *Dispatcher
	schedule   string
	batchSize  int
	log        logger.Logger

	cron *cron.Cron
	mu   sync.Mutex
}

func NewRelay(dispatcher *Dispatcher, schedule string, batchSize int, log logger.Logger) *Relay {
	return &Relay{
		dispatcher: dispatcher,
		schedule:   schedule,
		batchSize:  batchSize,
		log:        log,
	}
}

// Start registers the sweep with cron and starts the scheduler
func (r *Relay) Start() error {
	c := cron.New()
	if err := c.AddFunc(r.schedule, r.tick); err != nil {
		return fmt.Errorf("schedule outbox relay %q: %w", r.schedule, err)
	}
	c.Start()
	r.cron = c
	r.log.Infof("Outbox relay started with schedule %s", r.schedule)
	return nil
}

// Stop halts the scheduler. A sweep already running finishes on its own.
func (r *Relay) Stop() {
	if r.cron != nil {
		r.cron.Stop()
		r.log.Info("Outbox relay stopped")
	}
}

func (r *Relay) tick() {
	// skip when the previous sweep is still running
	if !r.mu.TryLock() {
		return
	}
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := r.RunOnce(ctx); err != nil {
		r.log.Errorf("outbox relay sweep failed: %v", err)
	}
}

// RunOnce drains pending events batch by batch until a batch delivers nothing
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := r.dispatcher.DispatchPending(ctx, r.batchSize)
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 || n < r.batchSize {
			break
		}
	}
	if total > 0 {
		r.log.Debugf("Outbox relay delivered %d notifications", total)
	}
	return total, nil
}
