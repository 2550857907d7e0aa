package service

import (
	"context"
	"encoding/json"
	"net/http"

	"lifebee/internal/model"
	"lifebee/internal/notification"
	"lifebee/internal/payment"
	"lifebee/internal/repository"
	"lifebee/internal/testutil"
	"lifebee/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

const sandboxSecret = "sandbox-test-secret"

// serviceSuite wires every service over a fresh in-memory database
type serviceSuite struct {
	suite.Suite
	ctx context.Context
	db  *gorm.DB

	users         repository.UserRepository
	requests      repository.ServiceRequestRepository
	offers        repository.OfferRepository
	progress      repository.ProgressRepository
	payments      repository.PaymentRepository
	audit         repository.AuditRepository
	outbox        repository.OutboxRepository
	notifications repository.NotificationRepository
	reviews       repository.ReviewRepository
	txManager     repository.TransactionManager

	dispatcher *notification.Dispatcher
	registry   *payment.Registry

	requestSvc   ServiceRequestService
	lifecycleSvc LifecycleService
	paymentSvc   PaymentService
	reviewSvc    ReviewService
}

func (s *serviceSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewDB(s.T())
	log := logger.Discard()

	s.users = repository.NewUserRepository(s.db)
	s.requests = repository.NewServiceRequestRepository(s.db)
	s.offers = repository.NewOfferRepository(s.db)
	s.progress = repository.NewProgressRepository(s.db)
	s.payments = repository.NewPaymentRepository(s.db)
	s.audit = repository.NewAuditRepository(s.db)
	s.outbox = repository.NewOutboxRepository(s.db)
	s.notifications = repository.NewNotificationRepository(s.db)
	s.reviews = repository.NewReviewRepository(s.db)
	s.txManager = repository.NewTransactionManager(s.db)

	s.dispatcher = notification.NewDispatcher(s.txManager, s.outbox, s.notifications, notification.MultiPublisher{}, 3, log)
	s.registry = payment.NewRegistry(payment.SandboxName, payment.NewSandboxProvider(sandboxSecret, "http://checkout.test/pay"))

	s.requestSvc = NewServiceRequestService(s.txManager, s.requests, s.offers, s.progress, s.audit, s.outbox, s.dispatcher, log)
	s.lifecycleSvc = s.newLifecycle(s.registry)
	s.paymentSvc = NewPaymentService(PaymentDeps{
		TxManager:  s.txManager,
		Requests:   s.requests,
		Offers:     s.offers,
		Progress:   s.progress,
		Payments:   s.payments,
		Audit:      s.audit,
		Outbox:     s.outbox,
		Providers:  s.registry,
		Dispatcher: s.dispatcher,
		Log:        log,
	})
	s.reviewSvc = NewReviewService(s.txManager, s.requests, s.progress, s.reviews, s.users, s.audit)
}

func (s *serviceSuite) newLifecycle(registry *payment.Registry) LifecycleService {
	return NewLifecycleService(LifecycleDeps{
		TxManager:  s.txManager,
		Requests:   s.requests,
		Offers:     s.offers,
		Progress:   s.progress,
		Payments:   s.payments,
		Users:      s.users,
		Audit:      s.audit,
		Outbox:     s.outbox,
		Providers:  registry,
		Currency:   "BRL",
		Dispatcher: s.dispatcher,
		Log:        logger.Discard(),
	})
}

func (s *serviceSuite) newUser(role, professionalType string) Actor {
	u := &model.User{
		Name:             role + " " + uuid.NewString()[:8],
		Email:            uuid.NewString() + "@lifebee.test",
		Password:         "x",
		Role:             role,
		ProfessionalType: professionalType,
	}
	s.Require().NoError(s.users.Create(s.ctx, u))
	return Actor{UserID: u.ID, Role: u.Role}
}

func (s *serviceSuite) newClient() Actor {
	return s.newUser(model.RoleClient, "")
}

func (s *serviceSuite) newProfessional() Actor {
	return s.newUser(model.RoleProfessional, model.ProfessionalPhysiotherapist)
}

func (s *serviceSuite) openRequest(client Actor) *model.ServiceRequest {
	req, err := s.requestSvc.CreateRequest(s.ctx, client, CreateServiceRequestDTO{
		Category:      model.CategoryPhysiotherapy,
		Description:   "Post-surgery knee rehabilitation session",
		Address:       "Rua das Flores 100, Sao Paulo",
		ScheduledDate: "2026-11-02",
		ScheduledTime: "09:30",
	})
	s.Require().NoError(err)
	return req
}

func (s *serviceSuite) submitOffer(pro Actor, req *model.ServiceRequest, price string) *model.ServiceOffer {
	offer, err := s.requestSvc.SubmitOffer(s.ctx, pro, req.ID, SubmitOfferDTO{
		ProposedPrice: decimal.RequireFromString(price),
		EstimatedTime: "1h",
		Message:       "Available that morning",
	})
	s.Require().NoError(err)
	return offer
}

// assigned returns a request already accepted for pro at price
func (s *serviceSuite) assigned(client, pro Actor, price string) (*model.ServiceRequest, *AcceptOfferResult) {
	req := s.openRequest(client)
	offer := s.submitOffer(pro, req, price)
	res, err := s.lifecycleSvc.AcceptOffer(s.ctx, client, req.ID, offer.ID)
	s.Require().NoError(err)
	return req, res
}

// awaitingConfirmation drives an accepted request through start and complete
func (s *serviceSuite) awaitingConfirmation(client, pro Actor) (*model.ServiceRequest, *AcceptOfferResult) {
	req, res := s.assigned(client, pro, "150.00")
	_, err := s.lifecycleSvc.StartService(s.ctx, pro, req.ID)
	s.Require().NoError(err)
	_, err = s.lifecycleSvc.CompleteService(s.ctx, pro, req.ID)
	s.Require().NoError(err)
	return req, res
}

func (s *serviceSuite) webhookRequest(ref *model.PaymentReference, status string) payment.WebhookRequest {
	body, err := json.Marshal(map[string]string{
		"external_reference": ref.ExternalReference,
		"preference_id":      ref.PreferenceID,
		"payment_id":         "pay_" + ref.ID.String()[:8],
		"status":             status,
		"payment_method":     "pix",
	})
	s.Require().NoError(err)
	header := http.Header{}
	header.Set("X-Signature", payment.SignHMAC(body, sandboxSecret))
	return payment.WebhookRequest{Body: body, Header: header}
}

func (s *serviceSuite) webhook(ref *model.PaymentReference, status string) (*WebhookResult, error) {
	return s.paymentSvc.HandleWebhook(s.ctx, payment.SandboxName, s.webhookRequest(ref, status))
}

func (s *serviceSuite) reload(id uuid.UUID) *model.ServiceRequest {
	req, err := s.requests.GetByID(s.ctx, id)
	s.Require().NoError(err)
	return req
}

func (s *serviceSuite) progressOf(id uuid.UUID) *model.ServiceProgress {
	p, err := s.progress.GetByRequest(s.ctx, id)
	s.Require().NoError(err)
	return p
}

func (s *serviceSuite) offerStatus(id uuid.UUID) string {
	o, err := s.offers.GetByID(s.ctx, id)
	s.Require().NoError(err)
	return o.Status
}

func (s *serviceSuite) transactionOf(id uuid.UUID) *model.Transaction {
	txn, err := s.payments.GetTransactionByRequest(s.ctx, id)
	s.Require().NoError(err)
	return txn
}

// notificationTypes lists the delivered notification types of a user, oldest first
func (s *serviceSuite) notificationTypes(user Actor) []string {
	var rows []model.Notification
	s.Require().NoError(s.db.Where("user_id = ?", user.UserID).Order("created_at ASC").Find(&rows).Error)
	types := make([]string, 0, len(rows))
	for _, n := range rows {
		types = append(types, n.Type)
	}
	return types
}

func (s *serviceSuite) countRows(table interface{}, query string, args ...interface{}) int64 {
	var n int64
	s.Require().NoError(s.db.Model(table).Where(query, args...).Count(&n).Error)
	return n
}
