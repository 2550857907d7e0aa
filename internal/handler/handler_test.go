package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lifebee/internal/apperror"
	"lifebee/internal/middleware"
	"lifebee/internal/model"
	"lifebee/internal/payment"
	"lifebee/internal/service"
	"lifebee/pkg/logger"
	"lifebee/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

const handlerSecret = "handler-test-secret"

type HandlerTestSuite struct {
	suite.Suite
	router    *gin.Engine
	users     *MockUserService
	requests  *MockServiceRequestService
	lifecycle *MockLifecycleService
	payments  *MockPaymentService
	reviews   *MockReviewService
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	log := logger.Discard()
	auth := middleware.NewAuth(handlerSecret, false)

	s.users = &MockUserService{}
	s.requests = &MockServiceRequestService{}
	s.lifecycle = &MockLifecycleService{}
	s.payments = &MockPaymentService{}
	s.reviews = &MockReviewService{}

	s.router = gin.New()
	api := s.router.Group("/api")
	NewUserHandler(s.users, auth, log).RegisterRoutes(api)
	NewServiceRequestHandler(s.requests, auth, log).RegisterRoutes(api)
	NewLifecycleHandler(s.lifecycle, auth, log).RegisterRoutes(api)
	NewPaymentHandler(s.payments, auth, log).RegisterRoutes(api)
	NewReviewHandler(s.reviews, auth, log).RegisterRoutes(api)
}

func (s *HandlerTestSuite) TearDownTest() {
	s.users.AssertExpectations(s.T())
	s.requests.AssertExpectations(s.T())
	s.lifecycle.AssertExpectations(s.T())
	s.payments.AssertExpectations(s.T())
	s.reviews.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) token(actor service.Actor) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  actor.UserID.String(),
		"role": actor.Role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(handlerSecret))
	s.Require().NoError(err)
	return tok
}

func (s *HandlerTestSuite) do(method, path string, actor *service.Actor, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		s.Require().NoError(json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(*actor))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env response.Response
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func client() service.Actor       { return service.Actor{UserID: uuid.New(), Role: model.RoleClient} }
func professional() service.Actor { return service.Actor{UserID: uuid.New(), Role: model.RoleProfessional} }

func (s *HandlerTestSuite) TestAcceptOffer() {
	actor := client()
	requestID, offerID := uuid.New(), uuid.New()
	result := &service.AcceptOfferResult{
		Request: &model.ServiceRequest{ID: requestID, Status: model.RequestStatusAssigned},
		Payment: &model.PaymentReference{CheckoutURL: "https://pay.example/checkout"},
	}
	s.lifecycle.On("AcceptOffer", mock.Anything, actor, requestID, offerID).Return(result, nil).Once()

	w, env := s.do(http.MethodPost, fmt.Sprintf("/api/service-requests/%s/accept-offer", requestID), &actor, gin.H{"offer_id": offerID})
	s.Equal(http.StatusOK, w.Code)
	s.Equal("success", env.Status)
	s.Contains(w.Body.String(), "https://pay.example/checkout")
}

func (s *HandlerTestSuite) TestAcceptOffer_ErrorMapping() {
	actor := client()
	requestID, offerID := uuid.New(), uuid.New()
	path := fmt.Sprintf("/api/service-requests/%s/accept-offer", requestID)

	s.lifecycle.On("AcceptOffer", mock.Anything, actor, requestID, offerID).
		Return(nil, &apperror.AlreadyAssignedError{RequestID: requestID.String(), Status: model.RequestStatusAssigned}).Once()
	w, env := s.do(http.MethodPost, path, &actor, gin.H{"offer_id": offerID})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal(http.StatusConflict, env.StatusCode)
	s.Contains(env.Message, "already assigned")

	s.lifecycle.On("AcceptOffer", mock.Anything, actor, requestID, offerID).
		Return(nil, apperror.Provider("mercadopago", "create preference", errors.New("connection refused"))).Once()
	w, env = s.do(http.MethodPost, path, &actor, gin.H{"offer_id": offerID})
	s.Equal(http.StatusBadGateway, w.Code)
	s.NotContains(env.Message, "connection refused")
}

func (s *HandlerTestSuite) TestAcceptOffer_RejectedBeforeService() {
	actor := client()
	path := fmt.Sprintf("/api/service-requests/%s/accept-offer", uuid.New())

	w, env := s.do(http.MethodPost, path, &actor, gin.H{})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(env.Message, "OfferID is required")

	w, _ = s.do(http.MethodPost, path, &actor, "{not json")
	s.Equal(http.StatusBadRequest, w.Code)

	pro := professional()
	w, _ = s.do(http.MethodPost, path, &pro, gin.H{"offer_id": uuid.New()})
	s.Equal(http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPost, path, nil, gin.H{"offer_id": uuid.New()})
	s.Equal(http.StatusUnauthorized, w.Code)

	w, env = s.do(http.MethodPost, "/api/service-requests/not-a-uuid/accept-offer", &actor, gin.H{"offer_id": uuid.New()})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(env.Message, "invalid id")
}

func (s *HandlerTestSuite) TestProgressTransitions() {
	pro := professional()
	requestID := uuid.New()

	s.lifecycle.On("StartService", mock.Anything, pro, requestID).
		Return(&service.TransitionResult{Request: &model.ServiceRequest{ID: requestID, Status: model.RequestStatusInProgress}}, nil).Once()
	w, _ := s.do(http.MethodPost, fmt.Sprintf("/api/service-requests/%s/start", requestID), &pro, nil)
	s.Equal(http.StatusOK, w.Code)

	s.lifecycle.On("CompleteService", mock.Anything, pro, requestID).
		Return(nil, apperror.InvalidTransition("service request", model.RequestStatusAssigned, model.RequestStatusAwaitingConfirmation)).Once()
	w, env := s.do(http.MethodPost, fmt.Sprintf("/api/service-requests/%s/complete", requestID), &pro, nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Contains(env.Message, "invalid service request transition")

	owner := client()
	s.lifecycle.On("ConfirmService", mock.Anything, owner, requestID).
		Return(&service.TransitionResult{PaymentReleased: true}, nil).Once()
	w, _ = s.do(http.MethodPost, fmt.Sprintf("/api/service-requests/%s/confirm", requestID), &owner, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"payment_released":true`)

	// only the professional role may start
	w, _ = s.do(http.MethodPost, fmt.Sprintf("/api/service-requests/%s/start", requestID), &owner, nil)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *HandlerTestSuite) TestCancel_OptionalBody() {
	admin := service.Actor{UserID: uuid.New(), Role: model.RoleAdmin}
	requestID := uuid.New()
	path := fmt.Sprintf("/api/service-requests/%s/cancel", requestID)
	cancelled := &service.TransitionResult{Request: &model.ServiceRequest{ID: requestID, Status: model.RequestStatusCancelled}}

	s.lifecycle.On("CancelRequest", mock.Anything, admin, requestID, "").Return(cancelled, nil).Once()
	w, _ := s.do(http.MethodPost, path, &admin, nil)
	s.Equal(http.StatusOK, w.Code)

	s.lifecycle.On("CancelRequest", mock.Anything, admin, requestID, "no show").Return(cancelled, nil).Once()
	w, _ = s.do(http.MethodPost, path, &admin, gin.H{"reason": "no show"})
	s.Equal(http.StatusOK, w.Code)

	pro := professional()
	w, _ = s.do(http.MethodPost, path, &pro, nil)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *HandlerTestSuite) TestWebhook_ForwardsRawRequest() {
	body := `{"external_reference":"ref-1","status":"approved"}`
	s.payments.On("HandleWebhook", mock.Anything, payment.StripeName, mock.MatchedBy(func(req payment.WebhookRequest) bool {
		return string(req.Body) == body && req.Header.Get("Stripe-Signature") == "t=1,v1=abc" && req.Query.Get("topic") == "payment"
	})).Return(&service.WebhookResult{Outcome: service.WebhookDuplicate, PaymentStatus: model.PaymentStatusApproved}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook/stripe?topic=payment", bytes.NewBufferString(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"outcome":"duplicate"`)
}

func (s *HandlerTestSuite) TestWebhook_DefaultProviderAndErrors() {
	s.payments.On("HandleWebhook", mock.Anything, "", mock.Anything).
		Return(nil, apperror.Unauthenticated("invalid webhook signature")).Once()
	w, env := s.do(http.MethodPost, "/api/payments/webhook", nil, `{}`)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("invalid webhook signature", env.Message)

	s.payments.On("HandleWebhook", mock.Anything, "paypal", mock.Anything).
		Return(nil, apperror.NotFound("payment provider", "paypal")).Once()
	w, _ = s.do(http.MethodPost, "/api/payments/webhook/paypal", nil, `{}`)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerTestSuite) TestLogin_SetsCookie() {
	s.users.On("Login", mock.Anything, service.LoginUserRequest{Email: "ana@example.com", Password: "secret123"}).
		Return(&service.TokenResponse{Token: "signed", ExpiresAt: time.Now().Add(time.Hour)}, nil).Once()

	w, env := s.do(http.MethodPost, "/api/auth/login", nil, gin.H{"email": "ana@example.com", "password": "secret123"})
	s.Equal(http.StatusOK, w.Code)
	s.Equal("success", env.Status)
	s.Contains(w.Header().Get("Set-Cookie"), "access_token=signed")

	w, env = s.do(http.MethodPost, "/api/auth/register", nil, gin.H{"name": "Ana", "password": "secret123", "role": "admin"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(env.Message, "Email is required")
	s.Contains(env.Message, "Role must be one of")
}

func (s *HandlerTestSuite) TestListRequests_Pagination() {
	actor := professional()
	filter := service.ListRequestsFilter{Category: model.CategoryPhysiotherapy, Page: 2, Limit: 5}
	s.requests.On("ListRequests", mock.Anything, actor, filter).
		Return([]model.ServiceRequest{{ID: uuid.New()}}, int64(6), nil).Once()

	w, _ := s.do(http.MethodGet, "/api/service-requests?category=physiotherapy&page=2&limit=5", &actor, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"total":6`)
	s.Contains(w.Body.String(), `"page":2`)
}

func (s *HandlerTestSuite) TestUnexpectedErrorIsHidden() {
	actor := client()
	requestID := uuid.New()
	s.payments.On("GetPayment", mock.Anything, actor, requestID).
		Return(nil, fmt.Errorf("failed to load payment reference: %w", errors.New("pq: connection reset"))).Once()

	w, env := s.do(http.MethodGet, fmt.Sprintf("/api/service-requests/%s/payment", requestID), &actor, nil)
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("internal server error", env.Message)
}

func (s *HandlerTestSuite) TestReviews() {
	actor := client()
	requestID := uuid.New()
	s.reviews.On("CreateReview", mock.Anything, actor, requestID, service.CreateReviewDTO{Rating: 5, Comment: "great"}).
		Return(nil, apperror.Conflict("service request already reviewed")).Once()

	w, _ := s.do(http.MethodPost, fmt.Sprintf("/api/service-requests/%s/review", requestID), &actor, gin.H{"rating": 5, "comment": "great"})
	s.Equal(http.StatusConflict, w.Code)

	w, env := s.do(http.MethodPost, fmt.Sprintf("/api/service-requests/%s/review", requestID), &actor, gin.H{"rating": 7})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(env.Message, "Rating must have max 5")

	proID := uuid.New()
	s.reviews.On("ListByProfessional", mock.Anything, proID, 1, 20).
		Return(&service.ProfessionalReviews{Total: 2, AverageRating: 4.5, Page: 1, Limit: 20}, nil).Once()
	w, _ = s.do(http.MethodGet, fmt.Sprintf("/api/professionals/%s/reviews", proID), &actor, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"average_rating":4.5`)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperror.Validation("bad"), http.StatusBadRequest},
		{apperror.Unauthenticated("nope"), http.StatusUnauthorized},
		{apperror.Forbidden("no"), http.StatusForbidden},
		{apperror.NotFound("offer", "1"), http.StatusNotFound},
		{fmt.Errorf("load: %w", gorm.ErrRecordNotFound), http.StatusNotFound},
		{apperror.InvalidTransition("service request", "completed", "cancelled"), http.StatusConflict},
		{&apperror.AlreadyAssignedError{}, http.StatusConflict},
		{apperror.Conflict("dup"), http.StatusConflict},
		{apperror.Provider("stripe", "create", errors.New("503")), http.StatusBadGateway},
		{&apperror.DuplicateWebhookError{}, http.StatusOK},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		got, _ := statusFor(tc.err)
		assert.Equal(t, tc.want, got, tc.err.Error())
	}
}
