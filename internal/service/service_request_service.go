package service

import (
	"context"
	"errors"
	"fmt"

	"lifebee/internal/apperror"
	"lifebee/internal/lifecycle"
	"lifebee/internal/model"
	"lifebee/internal/repository"
	"lifebee/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateServiceRequestDTO struct {
	Category      string           `json:"category" binding:"required,oneof=physiotherapy nursing_technician hospital_companion"`
	Description   string           `json:"description" binding:"required,min=10,max=2000"`
	Address       string           `json:"address" binding:"required,max=500"`
	ScheduledDate string           `json:"scheduled_date" binding:"required,datetime=2006-01-02"`
	ScheduledTime string           `json:"scheduled_time" binding:"required,datetime=15:04"`
	Urgency       string           `json:"urgency" binding:"omitempty,oneof=low medium high"`
	Budget        *decimal.Decimal `json:"budget" swaggertype:"string"`
}

type SubmitOfferDTO struct {
	ProposedPrice decimal.Decimal `json:"proposed_price" binding:"required" swaggertype:"string"`
	EstimatedTime string          `json:"estimated_time" binding:"omitempty,max=100"`
	Message       string          `json:"message" binding:"omitempty,max=2000"`
}

type ListRequestsFilter struct {
	Status   string
	Category string
	Page     int
	Limit    int
}

// ServiceRequestDetail is a request with the offers and progress the caller may see
type ServiceRequestDetail struct {
	Request  *model.ServiceRequest  `json:"request"`
	Offers   []model.ServiceOffer   `json:"offers"`
	Progress *model.ServiceProgress `json:"progress,omitempty"`
}

// --- Interface ---

type ServiceRequestService interface {
	CreateRequest(ctx context.Context, actor Actor, req CreateServiceRequestDTO) (*model.ServiceRequest, error)
	ListRequests(ctx context.Context, actor Actor, filter ListRequestsFilter) ([]model.ServiceRequest, int64, error)
	GetRequest(ctx context.Context, actor Actor, id uuid.UUID) (*ServiceRequestDetail, error)
	SubmitOffer(ctx context.Context, actor Actor, requestID uuid.UUID, req SubmitOfferDTO) (*model.ServiceOffer, error)
	WithdrawOffer(ctx context.Context, actor Actor, requestID, offerID uuid.UUID) (*model.ServiceOffer, error)
	ListOffers(ctx context.Context, actor Actor, requestID uuid.UUID) ([]model.ServiceOffer, error)
}

type serviceRequestService struct {
	txManager  repository.TransactionManager
	requests   repository.ServiceRequestRepository
	offers     repository.OfferRepository
	progress   repository.ProgressRepository
	auditRepo  repository.AuditRepository
	outbox     repository.OutboxRepository
	dispatcher EventDispatcher
	log        logger.Logger
}

func NewServiceRequestService(
	txManager repository.TransactionManager,
	requests repository.ServiceRequestRepository,
	offers repository.OfferRepository,
	progress repository.ProgressRepository,
	auditRepo repository.AuditRepository,
	outbox repository.OutboxRepository,
	dispatcher EventDispatcher,
	log logger.Logger,
) ServiceRequestService {
	return &serviceRequestService{
		txManager:  txManager,
		requests:   requests,
		offers:     offers,
		progress:   progress,
		auditRepo:  auditRepo,
		outbox:     outbox,
		dispatcher: dispatcherOrNoop(dispatcher),
		log:        log,
	}
}

// --- Implementation ---

func (s *serviceRequestService) CreateRequest(ctx context.Context, actor Actor, dto CreateServiceRequestDTO) (*model.ServiceRequest, error) {
	if !actor.IsClient() {
		return nil, apperror.Forbidden("only clients can create service requests")
	}
	if dto.Budget != nil && !dto.Budget.IsPositive() {
		return nil, apperror.Validation("budget must be positive")
	}

	urgency := dto.Urgency
	if urgency == "" {
		urgency = model.UrgencyMedium
	}

	req := &model.ServiceRequest{
		ClientID:      actor.UserID,
		Category:      dto.Category,
		Description:   dto.Description,
		Address:       dto.Address,
		ScheduledDate: dto.ScheduledDate,
		ScheduledTime: dto.ScheduledTime,
		Urgency:       urgency,
		Budget:        dto.Budget,
		Status:        model.RequestStatusOpen,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requests.Create(txCtx, req); err != nil {
			return fmt.Errorf("failed to create service request: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, uuidPtr(actor.UserID), model.ActionCreateServiceRequest, req.ID.String(), req.Category, map[string]interface{}{
			"category": req.Category,
			"urgency":  req.Urgency,
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *serviceRequestService) ListRequests(ctx context.Context, actor Actor, filter ListRequestsFilter) ([]model.ServiceRequest, int64, error) {
	if filter.Status != "" && !lifecycle.IsKnownStatus(filter.Status) {
		return nil, 0, apperror.Validation("unknown status %q", filter.Status)
	}

	repoFilter := repository.RequestFilter{Status: filter.Status, Category: filter.Category}
	switch {
	case actor.IsAdmin():
	case actor.IsProfessional():
		repoFilter.VisibleToProfessional = uuidPtr(actor.UserID)
	default:
		repoFilter.ClientID = uuidPtr(actor.UserID)
	}

	requests, total, err := s.requests.List(ctx, repoFilter, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list service requests: %w", err)
	}
	return requests, total, nil
}

// canView: admins see everything, clients their own requests, professionals open
// requests and the ones assigned to them or that they offered on
func (s *serviceRequestService) canView(ctx context.Context, actor Actor, req *model.ServiceRequest) (bool, error) {
	switch {
	case actor.IsAdmin():
		return true, nil
	case req.IsParticipant(actor.UserID):
		return true, nil
	case actor.IsProfessional():
		if req.Status == model.RequestStatusOpen {
			return true, nil
		}
		offers, err := s.offers.ListByRequest(ctx, req.ID, uuidPtr(actor.UserID))
		if err != nil {
			return false, err
		}
		return len(offers) > 0, nil
	default:
		return false, nil
	}
}

func (s *serviceRequestService) loadVisible(ctx context.Context, actor Actor, id uuid.UUID) (*model.ServiceRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "service request", id)
	}
	ok, err := s.canView(ctx, actor, req)
	if err != nil {
		return nil, fmt.Errorf("failed to check visibility: %w", err)
	}
	if !ok {
		return nil, apperror.Forbidden("you cannot access this service request")
	}
	return req, nil
}

func (s *serviceRequestService) GetRequest(ctx context.Context, actor Actor, id uuid.UUID) (*ServiceRequestDetail, error) {
	req, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	offers, err := s.visibleOffers(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	detail := &ServiceRequestDetail{Request: req, Offers: offers}
	progress, err := s.progress.GetByRequest(ctx, id)
	switch {
	case err == nil:
		detail.Progress = progress
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return detail, nil
}

// visibleOffers returns all offers to the owner and admins, and only their own to professionals
func (s *serviceRequestService) visibleOffers(ctx context.Context, actor Actor, req *model.ServiceRequest) ([]model.ServiceOffer, error) {
	var only *uuid.UUID
	if actor.IsProfessional() {
		only = uuidPtr(actor.UserID)
	}
	offers, err := s.offers.ListByRequest(ctx, req.ID, only)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

func (s *serviceRequestService) ListOffers(ctx context.Context, actor Actor, requestID uuid.UUID) ([]model.ServiceOffer, error) {
	req, err := s.loadVisible(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	return s.visibleOffers(ctx, actor, req)
}

func (s *serviceRequestService) SubmitOffer(ctx context.Context, actor Actor, requestID uuid.UUID, dto SubmitOfferDTO) (*model.ServiceOffer, error) {
	if !actor.IsProfessional() {
		return nil, apperror.Forbidden("only professionals can submit offers")
	}
	if !dto.ProposedPrice.IsPositive() {
		return nil, apperror.Validation("proposed_price must be positive")
	}

	offer := &model.ServiceOffer{
		ServiceRequestID: requestID,
		ProfessionalID:   actor.UserID,
		ProposedPrice:    dto.ProposedPrice.Round(2),
		EstimatedTime:    dto.EstimatedTime,
		Message:          dto.Message,
		Status:           model.OfferStatusPending,
	}

	var events []model.OutboxEvent
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetForUpdate(txCtx, requestID)
		if err != nil {
			return notFound(err, "service request", requestID)
		}
		if req.Status != model.RequestStatusOpen {
			return apperror.Conflict("service request is %s and no longer accepts offers", req.Status)
		}
		if req.ClientID == actor.UserID {
			return apperror.Forbidden("you cannot offer on your own request")
		}

		pending, err := s.offers.HasPending(txCtx, requestID, actor.UserID)
		if err != nil {
			return fmt.Errorf("failed to check existing offers: %w", err)
		}
		if pending {
			return apperror.Conflict("you already have a pending offer on this request")
		}

		if err := s.offers.Create(txCtx, offer); err != nil {
			return fmt.Errorf("failed to create offer: %w", err)
		}
		if err := s.requests.IncrementResponses(txCtx, requestID); err != nil {
			return fmt.Errorf("failed to count offer: %w", err)
		}
		if err := writeAudit(txCtx, s.auditRepo, uuidPtr(actor.UserID), model.ActionSubmitOffer, offer.ID.String(), req.Category, map[string]interface{}{
			"service_request_id": requestID.String(),
			"proposed_price":     offer.ProposedPrice.StringFixed(2),
		}); err != nil {
			return err
		}

		events = []model.OutboxEvent{offerReceivedEvent(req, offer)}
		return s.outbox.Append(txCtx, events)
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(ctx, events)
	return offer, nil
}

func (s *serviceRequestService) WithdrawOffer(ctx context.Context, actor Actor, requestID, offerID uuid.UUID) (*model.ServiceOffer, error) {
	if !actor.IsProfessional() {
		return nil, apperror.Forbidden("only professionals can withdraw offers")
	}

	var offer *model.ServiceOffer
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		offer, err = s.offers.GetForUpdate(txCtx, offerID)
		if err != nil {
			return notFound(err, "service offer", offerID)
		}
		if offer.ServiceRequestID != requestID {
			return apperror.NotFound("service offer", offerID.String())
		}
		if offer.ProfessionalID != actor.UserID {
			return apperror.Forbidden("you can only withdraw your own offers")
		}
		if err := lifecycle.CheckOfferTransition(offer.Status, model.OfferStatusWithdrawn); err != nil {
			return err
		}

		offer.Status = model.OfferStatusWithdrawn
		if err := s.offers.UpdateStatus(txCtx, offer, model.OfferStatusPending); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return apperror.Conflict("offer was modified concurrently")
			}
			return fmt.Errorf("failed to withdraw offer: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, uuidPtr(actor.UserID), model.ActionWithdrawOffer, offer.ID.String(), "", map[string]interface{}{
			"service_request_id": requestID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}
