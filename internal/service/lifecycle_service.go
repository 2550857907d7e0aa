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

	"github.com/google/uuid"
)

// --- DTOs ---

type AcceptOfferDTO struct {
	OfferID uuid.UUID `json:"offer_id" binding:"required" swaggertype:"string" format:"uuid"`
}

type CancelRequestDTO struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// AcceptOfferResult carries everything the client needs to pay for the accepted offer
type AcceptOfferResult struct {
	Request  *model.ServiceRequest   `json:"request"`
	Offer    *model.ServiceOffer     `json:"offer"`
	Progress *model.ServiceProgress  `json:"progress"`
	Payment  *model.PaymentReference `json:"payment"`
}

// TransitionResult is returned by the start, complete, confirm and cancel operations
type TransitionResult struct {
	Request         *model.ServiceRequest  `json:"request"`
	Progress        *model.ServiceProgress `json:"progress,omitempty"`
	PaymentReleased bool                   `json:"payment_released"`
}

// --- Interface ---

// LifecycleService owns the status transitions of a service request
type LifecycleService interface {
	AcceptOffer(ctx context.Context, actor Actor, requestID, offerID uuid.UUID) (*AcceptOfferResult, error)
	StartService(ctx context.Context, actor Actor, requestID uuid.UUID) (*TransitionResult, error)
	CompleteService(ctx context.Context, actor Actor, requestID uuid.UUID) (*TransitionResult, error)
	ConfirmService(ctx context.Context, actor Actor, requestID uuid.UUID) (*TransitionResult, error)
	CancelRequest(ctx context.Context, actor Actor, requestID uuid.UUID, reason string) (*TransitionResult, error)
}

type lifecycleService struct {
	txManager  repository.TransactionManager
	requests   repository.ServiceRequestRepository
	offers     repository.OfferRepository
	progress   repository.ProgressRepository
	payments   repository.PaymentRepository
	users      repository.UserRepository
	auditRepo  repository.AuditRepository
	outbox     repository.OutboxRepository
	providers  *payment.Registry
	currency   string
	dispatcher EventDispatcher
	releaser   *releaser
	log        logger.Logger
	now        func() time.Time
}

type LifecycleDeps struct {
	TxManager  repository.TransactionManager
	Requests   repository.ServiceRequestRepository
	Offers     repository.OfferRepository
	Progress   repository.ProgressRepository
	Payments   repository.PaymentRepository
	Users      repository.UserRepository
	Audit      repository.AuditRepository
	Outbox     repository.OutboxRepository
	Providers  *payment.Registry
	Currency   string
	Dispatcher EventDispatcher
	Log        logger.Logger
}

func NewLifecycleService(deps LifecycleDeps) LifecycleService {
	return &lifecycleService{
		txManager:  deps.TxManager,
		requests:   deps.Requests,
		offers:     deps.Offers,
		progress:   deps.Progress,
		payments:   deps.Payments,
		users:      deps.Users,
		auditRepo:  deps.Audit,
		outbox:     deps.Outbox,
		providers:  deps.Providers,
		currency:   deps.Currency,
		dispatcher: dispatcherOrNoop(deps.Dispatcher),
		releaser: &releaser{
			payments: deps.Payments,
			progress: deps.Progress,
			offers:   deps.Offers,
			audit:    deps.Audit,
		},
		log: deps.Log,
		now: time.Now,
	}
}

// checkAcceptable maps the request status to the error accepting an offer on it yields
func checkAcceptable(req *model.ServiceRequest) error {
	switch {
	case req.Status == model.RequestStatusOpen:
		return nil
	case lifecycle.IsTerminal(req.Status):
		return apperror.InvalidTransition("service request", req.Status, model.RequestStatusAssigned)
	default:
		return &apperror.AlreadyAssignedError{RequestID: req.ID.String(), Status: req.Status}
	}
}

// AcceptOffer assigns the request to the offering professional. The payment preference
// is created before the transaction so no row lock is held across provider I/O.
func (s *lifecycleService) AcceptOffer(ctx context.Context, actor Actor, requestID, offerID uuid.UUID) (*AcceptOfferResult, error) {
	if !actor.IsClient() {
		return nil, apperror.Forbidden("only the requesting client can accept offers")
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, notFound(err, "service request", requestID)
	}
	if req.ClientID != actor.UserID {
		return nil, apperror.Forbidden("only the requesting client can accept offers")
	}
	if err := checkAcceptable(req); err != nil {
		return nil, err
	}

	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, notFound(err, "service offer", offerID)
	}
	if offer.ServiceRequestID != requestID {
		return nil, apperror.NotFound("service offer", offerID.String())
	}
	if offer.Status != model.OfferStatusPending {
		// siblings are rejected by a winning accept; report the assignment instead
		if current, err := s.requests.GetByID(ctx, requestID); err == nil {
			if err := checkAcceptable(current); err != nil {
				return nil, err
			}
		}
		return nil, apperror.Validation("offer is %s and cannot be accepted", offer.Status)
	}

	provider, err := s.providers.Default()
	if err != nil {
		return nil, err
	}

	var payerEmail string
	if client, err := s.users.GetByID(ctx, actor.UserID); err == nil {
		payerEmail = client.Email
	}

	externalRef := uuid.NewString()
	pref, err := provider.CreatePreference(ctx, payment.PreferenceRequest{
		ExternalReference: externalRef,
		Title:             "LifeBee " + req.Category,
		Description:       req.Description,
		Amount:            offer.ProposedPrice,
		Currency:          s.currency,
		PayerEmail:        payerEmail,
	})
	if err != nil {
		s.log.WithFields(map[string]interface{}{
			"provider":   provider.Name(),
			"request_id": requestID,
		}).Errorf("payment preference failed: %v", err)
		return nil, apperror.Provider(provider.Name(), "create preference", err)
	}

	result := &AcceptOfferResult{}
	var events []model.OutboxEvent
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.requests.GetForUpdate(txCtx, requestID)
		if err != nil {
			return notFound(err, "service request", requestID)
		}
		// re-check under the lock; a concurrent accept may have won
		if err := checkAcceptable(locked); err != nil {
			return err
		}

		lockedOffer, err := s.offers.GetForUpdate(txCtx, offerID)
		if err != nil {
			return notFound(err, "service offer", offerID)
		}
		if err := lifecycle.CheckOfferTransition(lockedOffer.Status, model.OfferStatusAccepted); err != nil {
			return apperror.Validation("offer is %s and cannot be accepted", lockedOffer.Status)
		}

		finalPrice := lockedOffer.ProposedPrice
		lockedOffer.Status = model.OfferStatusAccepted
		lockedOffer.FinalPrice = &finalPrice
		if err := s.offers.UpdateStatus(txCtx, lockedOffer, model.OfferStatusPending); err != nil {
			return fmt.Errorf("failed to accept offer: %w", err)
		}
		if _, err := s.offers.RejectPendingSiblings(txCtx, requestID, offerID); err != nil {
			return fmt.Errorf("failed to reject other offers: %w", err)
		}

		locked.Status = model.RequestStatusAssigned
		locked.AssignedProfessionalID = uuidPtr(lockedOffer.ProfessionalID)
		if err := s.requests.CompareAndSwap(txCtx, locked, model.RequestStatusOpen); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return &apperror.AlreadyAssignedError{RequestID: requestID.String(), Status: model.RequestStatusAssigned}
			}
			return err
		}

		progress := &model.ServiceProgress{
			ServiceRequestID: requestID,
			ServiceOfferID:   offerID,
			ProfessionalID:   lockedOffer.ProfessionalID,
			Status:           model.ProgressStatusAccepted,
		}
		if err := s.progress.Create(txCtx, progress); err != nil {
			return fmt.Errorf("failed to create progress: %w", err)
		}

		ref := &model.PaymentReference{
			ServiceRequestID:  requestID,
			ServiceOfferID:    offerID,
			ClientID:          locked.ClientID,
			ProfessionalID:    lockedOffer.ProfessionalID,
			Amount:            finalPrice,
			Currency:          s.currency,
			Provider:          provider.Name(),
			PreferenceID:      pref.ID,
			ExternalReference: externalRef,
			CheckoutURL:       pref.CheckoutURL,
			Status:            model.PaymentStatusPending,
		}
		if err := s.payments.CreateReference(txCtx, ref); err != nil {
			return fmt.Errorf("failed to store payment reference: %w", err)
		}
		txn := &model.Transaction{
			PaymentReferenceID: ref.ID,
			ServiceRequestID:   requestID,
			ClientID:           locked.ClientID,
			ProfessionalID:     lockedOffer.ProfessionalID,
			Amount:             finalPrice,
			Status:             model.TransactionStatusPending,
			Type:               model.TransactionTypeServicePayment,
		}
		if err := s.payments.CreateTransaction(txCtx, txn); err != nil {
			return fmt.Errorf("failed to store transaction: %w", err)
		}

		if err := writeAudit(txCtx, s.auditRepo, uuidPtr(actor.UserID), model.ActionAcceptOffer, requestID.String(), locked.Category, map[string]interface{}{
			"offer_id":        offerID.String(),
			"professional_id": lockedOffer.ProfessionalID.String(),
			"final_price":     finalPrice.StringFixed(2),
			"preference_id":   pref.ID,
		}); err != nil {
			return err
		}

		events = []model.OutboxEvent{offerAcceptedEvent(locked, lockedOffer)}
		if err := s.outbox.Append(txCtx, events); err != nil {
			return fmt.Errorf("failed to queue notifications: %w", err)
		}

		result.Request = locked
		result.Offer = lockedOffer
		result.Progress = progress
		result.Payment = ref
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(ctx, events)
	return result, nil
}

// transition runs one locked request transition. apply mutates the request and the
// progress row and returns the events to emit.
func (s *lifecycleService) transition(
	ctx context.Context,
	actor Actor,
	requestID uuid.UUID,
	to string,
	authorize func(req *model.ServiceRequest) error,
	apply func(txCtx context.Context, req *model.ServiceRequest, now time.Time) (*model.ServiceProgress, []model.OutboxEvent, error),
	action string,
) (*TransitionResult, error) {
	result := &TransitionResult{}
	var events []model.OutboxEvent

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetForUpdate(txCtx, requestID)
		if err != nil {
			return notFound(err, "service request", requestID)
		}
		if err := lifecycle.CheckTransition(req.Status, to); err != nil {
			return err
		}
		if err := authorize(req); err != nil {
			return err
		}

		from := req.Status
		previousProfessional := req.AssignedProfessionalID
		req.Status = to
		progress, evs, err := apply(txCtx, req, s.now())
		if err != nil {
			return err
		}
		if err := s.requests.CompareAndSwap(txCtx, req, from); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return apperror.Conflict("service request was modified concurrently, retry")
			}
			return err
		}

		details := map[string]interface{}{"from": from, "to": to}
		if previousProfessional != nil {
			details["professional_id"] = previousProfessional.String()
		}
		if req.CancellationReason != "" {
			details["reason"] = req.CancellationReason
		}
		if err := writeAudit(txCtx, s.auditRepo, uuidPtr(actor.UserID), action, req.ID.String(), req.Category, details); err != nil {
			return err
		}

		if to == model.RequestStatusCompleted {
			released, err := s.releaser.tryRelease(txCtx, req, &actor)
			if err != nil {
				return err
			}
			if released != nil {
				result.PaymentReleased = true
				evs = append(evs, released...)
				if progress, err = s.progress.GetByRequest(txCtx, req.ID); err != nil {
					return notFound(err, "service progress", req.ID)
				}
			}
		}

		if err := s.outbox.Append(txCtx, evs); err != nil {
			return fmt.Errorf("failed to queue notifications: %w", err)
		}
		events = evs
		result.Request = req
		result.Progress = progress
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(ctx, events)
	return result, nil
}

func (s *lifecycleService) requireAssignedProfessional(actor Actor) func(*model.ServiceRequest) error {
	return func(req *model.ServiceRequest) error {
		if !actor.IsProfessional() || req.AssignedProfessionalID == nil || *req.AssignedProfessionalID != actor.UserID {
			return apperror.Forbidden("only the assigned professional can perform this action")
		}
		return nil
	}
}

func (s *lifecycleService) requireOwner(actor Actor) func(*model.ServiceRequest) error {
	return func(req *model.ServiceRequest) error {
		if !actor.IsClient() || req.ClientID != actor.UserID {
			return apperror.Forbidden("only the requesting client can perform this action")
		}
		return nil
	}
}

// advance loads the progress row and moves it through targets
func (s *lifecycleService) advance(ctx context.Context, requestID uuid.UUID, targets ...string) (*model.ServiceProgress, error) {
	progress, err := s.progress.GetByRequest(ctx, requestID)
	if err != nil {
		return nil, notFound(err, "service progress", requestID)
	}
	if err := lifecycle.AdvanceProgress(progress, targets...); err != nil {
		return nil, err
	}
	return progress, nil
}

func (s *lifecycleService) StartService(ctx context.Context, actor Actor, requestID uuid.UUID) (*TransitionResult, error) {
	return s.transition(ctx, actor, requestID, model.RequestStatusInProgress, s.requireAssignedProfessional(actor),
		func(txCtx context.Context, req *model.ServiceRequest, now time.Time) (*model.ServiceProgress, []model.OutboxEvent, error) {
			req.ServiceStartedAt = &now
			progress, err := s.advance(txCtx, req.ID, model.ProgressStatusStarted, model.ProgressStatusInProgress)
			if err != nil {
				return nil, nil, err
			}
			progress.StartedAt = &now
			if err := s.progress.Update(txCtx, progress); err != nil {
				return nil, nil, fmt.Errorf("failed to update progress: %w", err)
			}
			return progress, []model.OutboxEvent{serviceStartedEvent(req)}, nil
		}, model.ActionStartService)
}

func (s *lifecycleService) CompleteService(ctx context.Context, actor Actor, requestID uuid.UUID) (*TransitionResult, error) {
	return s.transition(ctx, actor, requestID, model.RequestStatusAwaitingConfirmation, s.requireAssignedProfessional(actor),
		func(txCtx context.Context, req *model.ServiceRequest, now time.Time) (*model.ServiceProgress, []model.OutboxEvent, error) {
			req.ServiceCompletedAt = &now
			progress, err := s.advance(txCtx, req.ID, model.ProgressStatusCompleted, model.ProgressStatusAwaitingConfirmation)
			if err != nil {
				return nil, nil, err
			}
			progress.CompletedAt = &now
			if err := s.progress.Update(txCtx, progress); err != nil {
				return nil, nil, fmt.Errorf("failed to update progress: %w", err)
			}
			return progress, []model.OutboxEvent{serviceCompletedEvent(req)}, nil
		}, model.ActionCompleteService)
}

// ConfirmService closes the request and releases the payment if it is already settled
func (s *lifecycleService) ConfirmService(ctx context.Context, actor Actor, requestID uuid.UUID) (*TransitionResult, error) {
	return s.transition(ctx, actor, requestID, model.RequestStatusCompleted, s.requireOwner(actor),
		func(txCtx context.Context, req *model.ServiceRequest, now time.Time) (*model.ServiceProgress, []model.OutboxEvent, error) {
			req.ClientConfirmedAt = &now
			progress, err := s.advance(txCtx, req.ID, model.ProgressStatusConfirmed)
			if err != nil {
				return nil, nil, err
			}
			progress.ConfirmedAt = &now
			if err := s.progress.Update(txCtx, progress); err != nil {
				return nil, nil, fmt.Errorf("failed to update progress: %w", err)
			}
			return progress, []model.OutboxEvent{serviceConfirmedEvent(req, progress.ProfessionalID)}, nil
		}, model.ActionConfirmService)
}

// CancelRequest cancels any non-terminal request. Payment references are left as they
// are; refunds are handled with the provider.
func (s *lifecycleService) CancelRequest(ctx context.Context, actor Actor, requestID uuid.UUID, reason string) (*TransitionResult, error) {
	authorize := func(req *model.ServiceRequest) error {
		if actor.IsAdmin() {
			return nil
		}
		return s.requireOwner(actor)(req)
	}

	return s.transition(ctx, actor, requestID, model.RequestStatusCancelled, authorize,
		func(txCtx context.Context, req *model.ServiceRequest, now time.Time) (*model.ServiceProgress, []model.OutboxEvent, error) {
			assigned := req.AssignedProfessionalID
			req.CancelledAt = &now
			req.CancellationReason = reason
			req.AssignedProfessionalID = nil

			if _, err := s.offers.RejectAllPending(txCtx, req.ID); err != nil {
				return nil, nil, fmt.Errorf("failed to reject pending offers: %w", err)
			}

			var events []model.OutboxEvent
			if assigned != nil {
				events = append(events, serviceCancelledEvent(req, *assigned))
			}
			if actor.UserID != req.ClientID {
				events = append(events, serviceCancelledEvent(req, req.ClientID))
			}
			return nil, events, nil
		}, model.ActionCancelService)
}
