package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"lifebee/internal/apperror"
	"lifebee/internal/model"
	"lifebee/internal/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type brokenProvider struct{}

func (brokenProvider) Name() string { return "broken" }

func (brokenProvider) CreatePreference(context.Context, payment.PreferenceRequest) (*payment.Preference, error) {
	return nil, errors.New("gateway timeout")
}

func (brokenProvider) ParseWebhook(context.Context, payment.WebhookRequest) (*payment.WebhookEvent, error) {
	return nil, payment.ErrIgnoredEvent
}

type LifecycleTestSuite struct {
	serviceSuite
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleTestSuite))
}

func (s *LifecycleTestSuite) TestHappyPath_PaymentBeforeConfirmation() {
	client, proA, proB := s.newClient(), s.newProfessional(), s.newProfessional()
	req := s.openRequest(client)
	offerA := s.submitOffer(proA, req, "150.00")
	offerB := s.submitOffer(proB, req, "140.00")
	s.Equal(2, s.reload(req.ID).Responses)

	res, err := s.lifecycleSvc.AcceptOffer(s.ctx, client, req.ID, offerA.ID)
	s.Require().NoError(err)
	s.Equal(model.RequestStatusAssigned, res.Request.Status)
	s.Equal(proA.UserID, *res.Request.AssignedProfessionalID)
	s.Equal("150.00", res.Offer.FinalPrice.StringFixed(2))
	s.Equal(model.ProgressStatusAccepted, res.Progress.Status)
	s.Equal(model.PaymentStatusPending, res.Payment.Status)
	s.Equal("BRL", res.Payment.Currency)
	s.Contains(res.Payment.CheckoutURL, res.Payment.PreferenceID)
	s.Equal(model.OfferStatusRejected, s.offerStatus(offerB.ID))
	s.Equal(model.TransactionStatusPending, s.transactionOf(req.ID).Status)

	started, err := s.lifecycleSvc.StartService(s.ctx, proA, req.ID)
	s.Require().NoError(err)
	s.Equal(model.RequestStatusInProgress, started.Request.Status)
	s.Equal(model.ProgressStatusInProgress, started.Progress.Status)
	s.NotNil(started.Request.ServiceStartedAt)

	completed, err := s.lifecycleSvc.CompleteService(s.ctx, proA, req.ID)
	s.Require().NoError(err)
	s.Equal(model.RequestStatusAwaitingConfirmation, completed.Request.Status)
	s.Equal(model.ProgressStatusAwaitingConfirmation, completed.Progress.Status)

	hook, err := s.webhook(res.Payment, "approved")
	s.Require().NoError(err)
	s.Equal(WebhookProcessed, hook.Outcome)
	s.False(hook.PaymentReleased)
	s.Equal(model.TransactionStatusCompleted, s.transactionOf(req.ID).Status)
	s.Equal(model.OfferStatusPaid, s.offerStatus(offerA.ID))
	s.Equal(model.ProgressStatusAwaitingConfirmation, s.progressOf(req.ID).Status)

	confirmed, err := s.lifecycleSvc.ConfirmService(s.ctx, client, req.ID)
	s.Require().NoError(err)
	s.True(confirmed.PaymentReleased)
	s.Equal(model.RequestStatusCompleted, confirmed.Request.Status)
	s.Equal(model.ProgressStatusPaymentReleased, confirmed.Progress.Status)
	s.NotNil(confirmed.Progress.PaymentReleasedAt)
	s.Equal(model.OfferStatusCompleted, s.offerStatus(offerA.ID))

	final := s.reload(req.ID)
	s.NotNil(final.ClientConfirmedAt)
	s.Equal(model.RequestStatusCompleted, final.Status)

	s.ElementsMatch([]string{
		model.EventOfferReceived, model.EventOfferReceived,
		model.EventServiceStarted, model.EventServiceCompleted,
		model.EventPaymentApproved, model.EventPaymentReleased,
	}, s.notificationTypes(client))
	s.ElementsMatch([]string{
		model.EventOfferAccepted, model.EventPaymentApproved,
		model.EventServiceConfirmed, model.EventPaymentReleased,
	}, s.notificationTypes(proA))
	s.Empty(s.notificationTypes(proB))

	s.Equal(int64(0), s.countRows(&model.OutboxEvent{}, "status <> ?", model.OutboxStatusDispatched))
	s.Equal(int64(1), s.countRows(&model.AuditLog{}, "action = ? AND user_id IS NULL", model.ActionPaymentApproved))
	s.Equal(int64(1), s.countRows(&model.AuditLog{}, "action = ?", model.ActionPaymentReleased))
}

func (s *LifecycleTestSuite) TestConfirmBeforePayment_ReleasesOnWebhook() {
	client, pro := s.newClient(), s.newProfessional()
	req, res := s.awaitingConfirmation(client, pro)

	confirmed, err := s.lifecycleSvc.ConfirmService(s.ctx, client, req.ID)
	s.Require().NoError(err)
	s.False(confirmed.PaymentReleased)
	s.Equal(model.ProgressStatusConfirmed, confirmed.Progress.Status)

	hook, err := s.webhook(res.Payment, "approved")
	s.Require().NoError(err)
	s.True(hook.PaymentReleased)

	progress := s.progressOf(req.ID)
	s.Equal(model.ProgressStatusPaymentReleased, progress.Status)
	s.NotNil(progress.PaymentReleasedAt)
	s.Equal(model.OfferStatusCompleted, s.offerStatus(res.Offer.ID))
}

func (s *LifecycleTestSuite) TestConcurrentAccept_ExactlyOneWins() {
	client := s.newClient()
	req := s.openRequest(client)
	offers := []*model.ServiceOffer{
		s.submitOffer(s.newProfessional(), req, "100.00"),
		s.submitOffer(s.newProfessional(), req, "110.00"),
		s.submitOffer(s.newProfessional(), req, "120.00"),
	}

	var wg sync.WaitGroup
	errs := make([]error, len(offers))
	for i, offer := range offers {
		wg.Add(1)
		go func(i int, offerID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = s.lifecycleSvc.AcceptOffer(s.ctx, client, req.ID, offerID)
		}(i, offer.ID)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var assigned *apperror.AlreadyAssignedError
		s.True(errors.As(err, &assigned), "unexpected error: %v", err)
	}
	s.Equal(1, wins)
	s.Equal(int64(1), s.countRows(&model.ServiceProgress{}, "service_request_id = ?", req.ID))
	s.Equal(int64(1), s.countRows(&model.PaymentReference{}, "service_request_id = ?", req.ID))
	s.Equal(int64(1), s.countRows(&model.ServiceOffer{}, "service_request_id = ? AND status = ?", req.ID, model.OfferStatusAccepted))
}

func (s *LifecycleTestSuite) TestAccept_AlreadyAssignedAndTerminal() {
	client, pro := s.newClient(), s.newProfessional()
	req := s.openRequest(client)
	first := s.submitOffer(pro, req, "90.00")
	second := s.submitOffer(s.newProfessional(), req, "95.00")

	_, err := s.lifecycleSvc.AcceptOffer(s.ctx, client, req.ID, first.ID)
	s.Require().NoError(err)

	_, err = s.lifecycleSvc.AcceptOffer(s.ctx, client, req.ID, second.ID)
	var assigned *apperror.AlreadyAssignedError
	s.ErrorAs(err, &assigned)

	_, err = s.lifecycleSvc.CancelRequest(s.ctx, client, req.ID, "changed plans")
	s.Require().NoError(err)

	_, err = s.lifecycleSvc.AcceptOffer(s.ctx, client, req.ID, second.ID)
	var invalid *apperror.InvalidTransitionError
	s.ErrorAs(err, &invalid)
}

func (s *LifecycleTestSuite) TestAccept_Rejections() {
	client, pro := s.newClient(), s.newProfessional()
	req := s.openRequest(client)
	offer := s.submitOffer(pro, req, "90.00")
	other := s.openRequest(client)

	_, err := s.lifecycleSvc.AcceptOffer(s.ctx, s.newClient(), req.ID, offer.ID)
	var forbidden *apperror.AuthorizationError
	s.ErrorAs(err, &forbidden)

	_, err = s.lifecycleSvc.AcceptOffer(s.ctx, pro, req.ID, offer.ID)
	s.ErrorAs(err, &forbidden)

	_, err = s.lifecycleSvc.AcceptOffer(s.ctx, client, other.ID, offer.ID)
	var missing *apperror.NotFoundError
	s.ErrorAs(err, &missing)

	_, err = s.requestSvc.WithdrawOffer(s.ctx, pro, req.ID, offer.ID)
	s.Require().NoError(err)
	_, err = s.lifecycleSvc.AcceptOffer(s.ctx, client, req.ID, offer.ID)
	var invalid *apperror.ValidationError
	s.ErrorAs(err, &invalid)
	s.Equal(model.RequestStatusOpen, s.reload(req.ID).Status)
}

func (s *LifecycleTestSuite) TestAccept_ProviderFailureAppliesNothing() {
	client, pro := s.newClient(), s.newProfessional()
	req := s.openRequest(client)
	offer := s.submitOffer(pro, req, "90.00")

	broken := s.newLifecycle(payment.NewRegistry("broken", brokenProvider{}))
	_, err := broken.AcceptOffer(s.ctx, client, req.ID, offer.ID)

	var providerErr *apperror.PaymentProviderError
	s.Require().ErrorAs(err, &providerErr)
	s.Equal("broken", providerErr.Provider)
	s.Equal(model.RequestStatusOpen, s.reload(req.ID).Status)
	s.Equal(model.OfferStatusPending, s.offerStatus(offer.ID))
	s.Equal(int64(0), s.countRows(&model.PaymentReference{}, "service_request_id = ?", req.ID))
	s.Equal(int64(0), s.countRows(&model.ServiceProgress{}, "service_request_id = ?", req.ID))
}

func (s *LifecycleTestSuite) TestStartAndComplete_OnlyAssignedProfessional() {
	client, pro := s.newClient(), s.newProfessional()
	req, _ := s.assigned(client, pro, "80.00")

	_, err := s.lifecycleSvc.StartService(s.ctx, s.newProfessional(), req.ID)
	var forbidden *apperror.AuthorizationError
	s.ErrorAs(err, &forbidden)

	_, err = s.lifecycleSvc.StartService(s.ctx, client, req.ID)
	s.ErrorAs(err, &forbidden)

	_, err = s.lifecycleSvc.CompleteService(s.ctx, pro, req.ID)
	var invalid *apperror.InvalidTransitionError
	s.Require().ErrorAs(err, &invalid)
	s.Equal(model.RequestStatusAssigned, invalid.Current)
	s.Equal(model.RequestStatusAwaitingConfirmation, invalid.Requested)

	s.Equal(model.RequestStatusAssigned, s.reload(req.ID).Status)
	s.Equal(model.ProgressStatusAccepted, s.progressOf(req.ID).Status)
}

func (s *LifecycleTestSuite) TestConfirm_OnlyOwnerAfterCompletion() {
	client, pro := s.newClient(), s.newProfessional()
	req, _ := s.assigned(client, pro, "80.00")

	_, err := s.lifecycleSvc.ConfirmService(s.ctx, client, req.ID)
	var invalid *apperror.InvalidTransitionError
	s.ErrorAs(err, &invalid)

	_, err = s.lifecycleSvc.StartService(s.ctx, pro, req.ID)
	s.Require().NoError(err)
	_, err = s.lifecycleSvc.CompleteService(s.ctx, pro, req.ID)
	s.Require().NoError(err)

	_, err = s.lifecycleSvc.ConfirmService(s.ctx, s.newClient(), req.ID)
	var forbidden *apperror.AuthorizationError
	s.ErrorAs(err, &forbidden)
	s.Nil(s.reload(req.ID).ClientConfirmedAt)
}

func (s *LifecycleTestSuite) TestCancel_AssignedRequest() {
	client, pro := s.newClient(), s.newProfessional()
	req := s.openRequest(client)
	accepted := s.submitOffer(pro, req, "70.00")
	_, err := s.lifecycleSvc.AcceptOffer(s.ctx, client, req.ID, accepted.ID)
	s.Require().NoError(err)

	res, err := s.lifecycleSvc.CancelRequest(s.ctx, client, req.ID, "patient hospitalized")
	s.Require().NoError(err)
	s.Equal(model.RequestStatusCancelled, res.Request.Status)
	s.Nil(res.Request.AssignedProfessionalID)

	stored := s.reload(req.ID)
	s.Equal("patient hospitalized", stored.CancellationReason)
	s.NotNil(stored.CancelledAt)
	s.Nil(stored.AssignedProfessionalID)
	s.Contains(s.notificationTypes(pro), model.EventServiceCancelled)
}

func (s *LifecycleTestSuite) TestCancel_OpenRequestRejectsPendingOffers() {
	client, pro := s.newClient(), s.newProfessional()
	req := s.openRequest(client)
	offer := s.submitOffer(pro, req, "70.00")

	admin := s.newUser(model.RoleAdmin, "")
	_, err := s.lifecycleSvc.CancelRequest(s.ctx, admin, req.ID, "expired")
	s.Require().NoError(err)
	s.Equal(model.OfferStatusRejected, s.offerStatus(offer.ID))
	s.Contains(s.notificationTypes(client), model.EventServiceCancelled)
}

func (s *LifecycleTestSuite) TestCancel_TerminalRequestsAndStrangers() {
	client, pro := s.newClient(), s.newProfessional()
	req, res := s.awaitingConfirmation(client, pro)
	_, err := s.webhook(res.Payment, "approved")
	s.Require().NoError(err)
	_, err = s.lifecycleSvc.ConfirmService(s.ctx, client, req.ID)
	s.Require().NoError(err)

	_, err = s.lifecycleSvc.CancelRequest(s.ctx, client, req.ID, "too late")
	var invalid *apperror.InvalidTransitionError
	s.Require().ErrorAs(err, &invalid)
	s.Equal(model.RequestStatusCompleted, invalid.Current)
	s.Equal(model.RequestStatusCompleted, s.reload(req.ID).Status)

	open := s.openRequest(client)
	_, err = s.lifecycleSvc.CancelRequest(s.ctx, pro, open.ID, "")
	var forbidden *apperror.AuthorizationError
	s.ErrorAs(err, &forbidden)
}
