package handler

import (
	"context"

	"lifebee/internal/model"
	"lifebee/internal/payment"
	"lifebee/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, req service.RegisterRequest) (*service.UserResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UserResponse), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, req service.LoginUserRequest) (*service.TokenResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TokenResponse), args.Error(1)
}

func (m *MockUserService) GetMe(ctx context.Context, actor service.Actor) (*service.UserResponse, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UserResponse), args.Error(1)
}

type MockServiceRequestService struct {
	mock.Mock
}

func (m *MockServiceRequestService) CreateRequest(ctx context.Context, actor service.Actor, req service.CreateServiceRequestDTO) (*model.ServiceRequest, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceRequest), args.Error(1)
}

func (m *MockServiceRequestService) ListRequests(ctx context.Context, actor service.Actor, filter service.ListRequestsFilter) ([]model.ServiceRequest, int64, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.ServiceRequest), args.Get(1).(int64), args.Error(2)
}

func (m *MockServiceRequestService) GetRequest(ctx context.Context, actor service.Actor, id uuid.UUID) (*service.ServiceRequestDetail, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ServiceRequestDetail), args.Error(1)
}

func (m *MockServiceRequestService) SubmitOffer(ctx context.Context, actor service.Actor, requestID uuid.UUID, req service.SubmitOfferDTO) (*model.ServiceOffer, error) {
	args := m.Called(ctx, actor, requestID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceOffer), args.Error(1)
}

func (m *MockServiceRequestService) WithdrawOffer(ctx context.Context, actor service.Actor, requestID, offerID uuid.UUID) (*model.ServiceOffer, error) {
	args := m.Called(ctx, actor, requestID, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceOffer), args.Error(1)
}

func (m *MockServiceRequestService) ListOffers(ctx context.Context, actor service.Actor, requestID uuid.UUID) ([]model.ServiceOffer, error) {
	args := m.Called(ctx, actor, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ServiceOffer), args.Error(1)
}

type MockLifecycleService struct {
	mock.Mock
}

func (m *MockLifecycleService) AcceptOffer(ctx context.Context, actor service.Actor, requestID, offerID uuid.UUID) (*service.AcceptOfferResult, error) {
	args := m.Called(ctx, actor, requestID, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AcceptOfferResult), args.Error(1)
}

func (m *MockLifecycleService) transition(ctx context.Context, method string, actor service.Actor, requestID uuid.UUID) (*service.TransitionResult, error) {
	args := m.MethodCalled(method, ctx, actor, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TransitionResult), args.Error(1)
}

func (m *MockLifecycleService) StartService(ctx context.Context, actor service.Actor, requestID uuid.UUID) (*service.TransitionResult, error) {
	return m.transition(ctx, "StartService", actor, requestID)
}

func (m *MockLifecycleService) CompleteService(ctx context.Context, actor service.Actor, requestID uuid.UUID) (*service.TransitionResult, error) {
	return m.transition(ctx, "CompleteService", actor, requestID)
}

func (m *MockLifecycleService) ConfirmService(ctx context.Context, actor service.Actor, requestID uuid.UUID) (*service.TransitionResult, error) {
	return m.transition(ctx, "ConfirmService", actor, requestID)
}

func (m *MockLifecycleService) CancelRequest(ctx context.Context, actor service.Actor, requestID uuid.UUID, reason string) (*service.TransitionResult, error) {
	args := m.Called(ctx, actor, requestID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TransitionResult), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) HandleWebhook(ctx context.Context, providerName string, req payment.WebhookRequest) (*service.WebhookResult, error) {
	args := m.Called(ctx, providerName, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.WebhookResult), args.Error(1)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, actor service.Actor, requestID uuid.UUID) (*service.PaymentDetail, error) {
	args := m.Called(ctx, actor, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PaymentDetail), args.Error(1)
}

type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) CreateReview(ctx context.Context, actor service.Actor, requestID uuid.UUID, dto service.CreateReviewDTO) (*model.ServiceReview, error) {
	args := m.Called(ctx, actor, requestID, dto)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceReview), args.Error(1)
}

func (m *MockReviewService) ListByProfessional(ctx context.Context, professionalID uuid.UUID, page, limit int) (*service.ProfessionalReviews, error) {
	args := m.Called(ctx, professionalID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProfessionalReviews), args.Error(1)
}
