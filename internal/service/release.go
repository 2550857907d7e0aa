package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lifebee/internal/lifecycle"
	"lifebee/internal/model"
	"lifebee/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// releaser moves funds to the professional once the service is confirmed and the
// payment is settled. Confirm and the approved webhook both call it while holding the
// request lock, so whichever arrives second performs the release.
type releaser struct {
	payments repository.PaymentRepository
	progress repository.ProgressRepository
	offers   repository.OfferRepository
	audit    repository.AuditRepository
}

// tryRelease returns the events to emit, or nil when a gate is still closed.
// It must run inside the transaction that locked req.
func (r *releaser) tryRelease(ctx context.Context, req *model.ServiceRequest, actor *Actor) ([]model.OutboxEvent, error) {
	if req.ClientConfirmedAt == nil {
		return nil, nil
	}

	txn, err := r.payments.GetTransactionByRequest(ctx, req.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if txn.Status != model.TransactionStatusCompleted {
		return nil, nil
	}

	progress, err := r.progress.GetByRequest(ctx, req.ID)
	if err != nil {
		return nil, notFound(err, "service progress", req.ID)
	}
	if progress.Status == model.ProgressStatusPaymentReleased {
		return nil, nil
	}
	if err := lifecycle.AdvanceProgress(progress, model.ProgressStatusPaymentReleased); err != nil {
		return nil, err
	}
	now := time.Now()
	progress.PaymentReleasedAt = &now
	if err := r.progress.Update(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}

	offer, err := r.offers.GetForUpdate(ctx, progress.ServiceOfferID)
	if err != nil {
		return nil, notFound(err, "service offer", progress.ServiceOfferID)
	}
	if offer.Status != model.OfferStatusCompleted {
		from := offer.Status
		if err := lifecycle.CheckOfferTransition(from, model.OfferStatusCompleted); err != nil {
			return nil, err
		}
		offer.Status = model.OfferStatusCompleted
		if err := r.offers.UpdateStatus(ctx, offer, from); err != nil {
			return nil, fmt.Errorf("failed to complete offer: %w", err)
		}
	}

	var actorID *uuid.UUID
	if actor != nil {
		actorID = uuidPtr(actor.UserID)
	}
	if err := writeAudit(ctx, r.audit, actorID, model.ActionPaymentReleased, req.ID.String(), req.Category, map[string]interface{}{
		"transaction_id": txn.ID.String(),
		"amount":         txn.Amount.StringFixed(2),
	}); err != nil {
		return nil, err
	}

	return paymentReleasedEvents(req, progress, txn), nil
}
