package notification

import (
	"context"
	"fmt"

	"lifebee/internal/model"
	"lifebee/internal/repository"
	"lifebee/pkg/logger"
)

// Dispatcher delivers outbox events. The claim and the stored notification commit
// together, so an event is delivered at most once, whichever of the synchronous path and
// the relay gets there first, and a crash between the two leaves it pending.
type Dispatcher struct {
	txManager     repository.TransactionManager
	outbox        repository.OutboxRepository
	notifications repository.NotificationRepository
	publisher     Publisher
	maxAttempts   int
	log           logger.Logger
}

func NewDispatcher(txManager repository.TransactionManager, outbox repository.OutboxRepository, notifications repository.NotificationRepository, publisher Publisher, maxAttempts int, log logger.Logger) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Dispatcher{
		txManager:     txManager,
		outbox:        outbox,
		notifications: notifications,
		publisher:     publisher,
		maxAttempts:   maxAttempts,
		log:           log,
	}
}

// Dispatch delivers events that were just committed. Failures are logged and left
// to the relay.
func (d *Dispatcher) Dispatch(ctx context.Context, events []model.OutboxEvent) {
	for i := range events {
		if _, err := d.deliver(ctx, &events[i]); err != nil {
			d.log.WithFields(map[string]interface{}{
				"event_id": events[i].ID,
				"type":     events[i].Type,
			}).Warnf("notification delivery failed: %v", err)
		}
	}
}

// DispatchPending sweeps up to limit pending events and returns how many were delivered
func (d *Dispatcher) DispatchPending(ctx context.Context, limit int) (int, error) {
	events, err := d.outbox.ListPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending events: %w", err)
	}

	delivered := 0
	for i := range events {
		ok, err := d.deliver(ctx, &events[i])
		if err != nil {
			d.log.WithFields(map[string]interface{}{
				"event_id": events[i].ID,
				"attempts": events[i].Attempts + 1,
			}).Warnf("notification delivery failed: %v", err)
			continue
		}
		if ok {
			delivered++
		}
	}
	return delivered, nil
}

// deliver reports false without error when another dispatcher already claimed ev
func (d *Dispatcher) deliver(ctx context.Context, ev *model.OutboxEvent) (bool, error) {
	var n *model.Notification
	var storeErr error
	err := d.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		claimed, err := d.outbox.Claim(txCtx, ev.ID)
		if err != nil {
			return fmt.Errorf("claim event: %w", err)
		}
		if !claimed {
			return nil
		}

		n = &model.Notification{
			EventID: ev.ID,
			UserID:  ev.UserID,
			Type:    ev.Type,
			Title:   ev.Title,
			Message: ev.Message,
			Data:    ev.Data,
		}
		if n.Data == "" {
			n.Data = "{}"
		}
		if storeErr = d.notifications.Create(txCtx, n); storeErr != nil {
			return fmt.Errorf("store notification: %w", storeErr)
		}
		return nil
	})
	if err != nil {
		if storeErr != nil {
			if recErr := d.outbox.RecordFailure(ctx, ev.ID, storeErr.Error(), d.maxAttempts); recErr != nil {
				d.log.Errorf("failed to record delivery failure of event %s: %v", ev.ID, recErr)
			}
		}
		return false, err
	}
	if n == nil {
		return false, nil
	}

	// The notification is stored; live push is best effort and never retried
	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, NewMessage(n)); err != nil {
			d.log.Warnf("notification %s stored but not pushed: %v", n.ID, err)
		}
	}
	return true, nil
}
