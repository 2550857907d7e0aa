package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lifebee/internal/apperror"
	"lifebee/internal/lifecycle"
	"lifebee/internal/model"
	"lifebee/internal/payment"
	"lifebee/internal/repository"
	"lifebee/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	WebhookProcessed = "processed"
	WebhookIgnored   = "ignored"
	WebhookDuplicate = "duplicate"
)

// WebhookResult tells the provider what happened to its callback
type WebhookResult struct {
	Outcome         string `json:"outcome"`
	PaymentStatus   string `json:"payment_status,omitempty"`
	PaymentReleased bool   `json:"payment_released"`
}

// PaymentDetail is the payment state of a service request
type PaymentDetail struct {
	Reference   *model.PaymentReference `json:"reference"`
	Transaction *model.Transaction      `json:"transaction"`
}

// PaymentService applies provider callbacks to payment references
type PaymentService interface {
	HandleWebhook(ctx context.Context, providerName string, req payment.WebhookRequest) (*WebhookResult, error)
	GetPayment(ctx context.Context, actor Actor, requestID uuid.UUID) (*PaymentDetail, error)
}

type paymentService struct {
	txManager  repository.TransactionManager
	requests   repository.ServiceRequestRepository
	offers     repository.OfferRepository
	payments   repository.PaymentRepository
	auditRepo  repository.AuditRepository
	outbox     repository.OutboxRepository
	providers  *payment.Registry
	dispatcher EventDispatcher
	releaser   *releaser
	log        logger.Logger
}

type PaymentDeps struct {
	TxManager  repository.TransactionManager
	Requests   repository.ServiceRequestRepository
	Offers     repository.OfferRepository
	Progress   repository.ProgressRepository
	Payments   repository.PaymentRepository
	Audit      repository.AuditRepository
	Outbox     repository.OutboxRepository
	Providers  *payment.Registry
	Dispatcher EventDispatcher
	Log        logger.Logger
}

func NewPaymentService(deps PaymentDeps) PaymentService {
	return &paymentService{
		txManager:  deps.TxManager,
		requests:   deps.Requests,
		offers:     deps.Offers,
		payments:   deps.Payments,
		auditRepo:  deps.Audit,
		outbox:     deps.Outbox,
		providers:  deps.Providers,
		dispatcher: dispatcherOrNoop(deps.Dispatcher),
		releaser: &releaser{
			payments: deps.Payments,
			progress: deps.Progress,
			offers:   deps.Offers,
			audit:    deps.Audit,
		},
		log: deps.Log,
	}
}

// parseEvent maps provider parsing failures onto the error taxonomy
func (s *paymentService) parseEvent(ctx context.Context, providerName string, req payment.WebhookRequest) (*payment.WebhookEvent, error) {
	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, apperror.NotFound("payment provider", providerName)
	}

	ev, err := provider.ParseWebhook(ctx, req)
	switch {
	case err == nil:
		return ev, nil
	case errors.Is(err, payment.ErrInvalidSignature):
		return nil, apperror.Unauthenticated("invalid webhook signature")
	case errors.Is(err, payment.ErrIgnoredEvent):
		return nil, err
	case errors.Is(err, payment.ErrMalformedEvent):
		return nil, apperror.Validation("%v", err)
	default:
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperror.Validation("%v", err)
		}
		return nil, apperror.Provider(provider.Name(), "parse webhook", err)
	}
}

// findReference looks the reference up by external reference, then by preference id
func (s *paymentService) findReference(ctx context.Context, ev *payment.WebhookEvent) (*model.PaymentReference, error) {
	if ev.ExternalReference != "" {
		ref, err := s.payments.GetReferenceByExternalReference(ctx, ev.ExternalReference)
		if err == nil {
			return ref, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load payment reference: %w", err)
		}
	}
	if ev.PreferenceID != "" {
		ref, err := s.payments.GetReferenceByPreferenceID(ctx, ev.PreferenceID)
		if err == nil {
			return ref, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load payment reference: %w", err)
		}
	}
	return nil, apperror.NotFound("payment reference", ev.ExternalReference+ev.PreferenceID)
}

// HandleWebhook settles a payment reference. Replays of a settled reference report
// WebhookDuplicate and change nothing.
func (s *paymentService) HandleWebhook(ctx context.Context, providerName string, req payment.WebhookRequest) (*WebhookResult, error) {
	ev, err := s.parseEvent(ctx, providerName, req)
	if errors.Is(err, payment.ErrIgnoredEvent) {
		return &WebhookResult{Outcome: WebhookIgnored}, nil
	}
	if err != nil {
		return nil, err
	}

	log := s.log.WithFields(map[string]interface{}{
		"provider":           ev.Provider,
		"external_reference": ev.ExternalReference,
		"preference_id":      ev.PreferenceID,
		"status":             ev.Status,
	})

	if !lifecycle.IsFinalPaymentStatus(ev.Status) {
		log.Debug("non-final payment status ignored")
		return &WebhookResult{Outcome: WebhookIgnored, PaymentStatus: ev.Status}, nil
	}

	found, err := s.findReference(ctx, ev)
	if err != nil {
		return nil, err
	}

	result := &WebhookResult{Outcome: WebhookProcessed, PaymentStatus: ev.Status}
	var events []model.OutboxEvent
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetForUpdate(txCtx, found.ServiceRequestID)
		if err != nil {
			return notFound(err, "service request", found.ServiceRequestID)
		}
		ref, err := s.payments.GetReferenceForUpdate(txCtx, found.ID)
		if err != nil {
			return notFound(err, "payment reference", found.ID)
		}
		// only the gateway that issued the checkout may settle it
		if ref.Provider != ev.Provider {
			return apperror.Forbidden("payment reference %s is not settled by provider %s", ref.ExternalReference, ev.Provider)
		}
		if ref.Status != model.PaymentStatusPending {
			return &apperror.DuplicateWebhookError{Reference: ref.ExternalReference, Status: ref.Status}
		}
		if !lifecycle.CanTransitionPayment(ref.Status, ev.Status) {
			return apperror.InvalidTransition("payment reference", ref.Status, ev.Status)
		}

		txn, err := s.payments.GetTransactionByReference(txCtx, ref.ID)
		if err != nil {
			return notFound(err, "transaction", ref.ID)
		}

		now := time.Now()
		ref.Status = ev.Status
		if ev.PaymentID != "" {
			ref.PaymentID = ev.PaymentID
		}
		txn.Status = lifecycle.TransactionStatusFor(ev.Status)
		if ev.Method != "" {
			txn.PaymentMethod = ev.Method
		}

		action := model.ActionPaymentRejected
		if ev.Status == model.PaymentStatusApproved {
			action = model.ActionPaymentApproved
			ref.ApprovedAt = &now
			txn.CompletedAt = &now

			offer, err := s.offers.GetForUpdate(txCtx, ref.ServiceOfferID)
			if err != nil {
				return notFound(err, "service offer", ref.ServiceOfferID)
			}
			// a released offer is already completed; paid only applies before release
			if offer.Status == model.OfferStatusAccepted {
				offer.Status = model.OfferStatusPaid
				if err := s.offers.UpdateStatus(txCtx, offer, model.OfferStatusAccepted); err != nil {
					return fmt.Errorf("failed to mark offer paid: %w", err)
				}
			}
		}

		if err := s.payments.UpdateReference(txCtx, ref); err != nil {
			return fmt.Errorf("failed to update payment reference: %w", err)
		}
		if err := s.payments.UpdateTransaction(txCtx, txn); err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}

		if err := writeAudit(txCtx, s.auditRepo, nil, action, req.ID.String(), req.Category, map[string]interface{}{
			"payment_reference_id": ref.ID.String(),
			"payment_id":           ref.PaymentID,
			"provider":             ev.Provider,
			"status":               ev.Status,
		}); err != nil {
			return err
		}

		events = paymentOutcomeEvents(req, ref)
		if ev.Status == model.PaymentStatusApproved {
			released, err := s.releaser.tryRelease(txCtx, req, nil)
			if err != nil {
				return err
			}
			if released != nil {
				result.PaymentReleased = true
				events = append(events, released...)
			}
		}

		if err := s.outbox.Append(txCtx, events); err != nil {
			return fmt.Errorf("failed to queue notifications: %w", err)
		}
		return nil
	})
	if err != nil {
		var dup *apperror.DuplicateWebhookError
		if errors.As(err, &dup) {
			log.Infof("duplicate webhook: reference already %s", dup.Status)
			return &WebhookResult{Outcome: WebhookDuplicate, PaymentStatus: dup.Status}, nil
		}
		return nil, err
	}

	log.WithFields(map[string]interface{}{"released": result.PaymentReleased}).Info("payment webhook applied")
	s.dispatcher.Dispatch(ctx, events)
	return result, nil
}

// GetPayment returns the payment state to the request's participants and admins
func (s *paymentService) GetPayment(ctx context.Context, actor Actor, requestID uuid.UUID) (*PaymentDetail, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, notFound(err, "service request", requestID)
	}
	if !actor.IsAdmin() && !req.IsParticipant(actor.UserID) {
		return nil, apperror.Forbidden("you cannot view the payment of this service request")
	}

	ref, err := s.payments.GetReferenceByRequest(ctx, requestID)
	if err != nil {
		return nil, notFound(err, "payment reference", requestID)
	}
	detail := &PaymentDetail{Reference: ref}
	txn, err := s.payments.GetTransactionByReference(ctx, ref.ID)
	switch {
	case err == nil:
		detail.Transaction = txn
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return detail, nil
}
