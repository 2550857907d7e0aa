package service

import (
	"encoding/json"
	"testing"
	"time"

	"lifebee/internal/apperror"
	"lifebee/internal/model"
	"lifebee/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type AccountTestSuite struct {
	serviceSuite
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountTestSuite))
}

func (s *AccountTestSuite) TestRegisterAndLogin() {
	svc := NewUserService(s.users, "test-secret", time.Hour)

	user, err := svc.Register(s.ctx, RegisterRequest{
		Name:             "Ana Souza",
		Email:            "  Ana@Example.com ",
		Password:         "secret123",
		Role:             model.RoleProfessional,
		ProfessionalType: model.ProfessionalNursingTechnician,
	})
	s.Require().NoError(err)
	s.Equal("ana@example.com", user.Email)

	_, err = svc.Register(s.ctx, RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "secret123", Role: model.RoleClient})
	var conflict *apperror.ConflictError
	s.ErrorAs(err, &conflict)

	_, err = svc.Register(s.ctx, RegisterRequest{Name: "Bo", Email: "bo@example.com", Password: "secret123", Role: model.RoleProfessional})
	var invalid *apperror.ValidationError
	s.ErrorAs(err, &invalid)

	_, err = svc.Register(s.ctx, RegisterRequest{Name: "Root", Email: "root@example.com", Password: "secret123", Role: model.RoleAdmin})
	s.ErrorAs(err, &invalid)

	_, err = svc.Login(s.ctx, LoginUserRequest{Email: "ana@example.com", Password: "wrong"})
	var unauth *apperror.AuthenticationError
	s.ErrorAs(err, &unauth)

	tok, err := svc.Login(s.ctx, LoginUserRequest{Email: "ANA@example.com", Password: "secret123"})
	s.Require().NoError(err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(tok.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	s.Require().NoError(err)
	s.Equal(user.ID.String(), claims["sub"])
	s.Equal(model.RoleProfessional, claims["role"])

	me, err := svc.GetMe(s.ctx, Actor{UserID: user.ID, Role: model.RoleProfessional})
	s.Require().NoError(err)
	s.Equal(model.ProfessionalNursingTechnician, me.ProfessionalType)

	_, err = svc.GetMe(s.ctx, Actor{UserID: uuid.New()})
	var missing *apperror.NotFoundError
	s.ErrorAs(err, &missing)
}

func (s *AccountTestSuite) TestNotifications_ListAndMarkRead() {
	svc := NewNotificationService(s.notifications)
	client, pro := s.newClient(), s.newProfessional()
	req := s.openRequest(client)
	s.submitOffer(pro, req, "75.00")
	s.submitOffer(s.newProfessional(), req, "80.00")

	page, err := svc.List(s.ctx, client, false, 1, 10)
	s.Require().NoError(err)
	s.Equal(int64(2), page.Total)
	s.Equal(int64(2), page.Unread)
	s.Equal(model.EventOfferReceived, page.Items[0].Type)

	var data map[string]interface{}
	s.Require().NoError(json.Unmarshal(page.Items[0].Data, &data))
	s.Equal(req.ID.String(), data["serviceRequestId"])

	s.Require().NoError(svc.MarkRead(s.ctx, client, page.Items[0].ID))
	s.Require().NoError(svc.MarkRead(s.ctx, client, page.Items[0].ID))
	// someone else's notification is left alone
	s.Require().NoError(svc.MarkRead(s.ctx, pro, page.Items[1].ID))

	unread, err := svc.List(s.ctx, client, true, 1, 10)
	s.Require().NoError(err)
	s.Equal(int64(1), unread.Total)
	s.Equal(page.Items[1].ID, unread.Items[0].ID)

	n, err := svc.MarkAllRead(s.ctx, client)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	page, err = svc.List(s.ctx, client, false, 1, 10)
	s.Require().NoError(err)
	s.Equal(int64(0), page.Unread)
}

func (s *AccountTestSuite) TestAuditLogs() {
	svc := NewAuditService(s.audit)
	client, pro := s.newClient(), s.newProfessional()
	_, res := s.assigned(client, pro, "99.00")
	_, err := s.webhook(res.Payment, "approved")
	s.Require().NoError(err)

	logs, total, err := svc.GetAuditLogs(s.ctx, repository.AuditFilter{}, 1, 50)
	s.Require().NoError(err)
	s.Equal(int64(4), total) // create, offer, accept, payment

	byAction := map[string]AuditLogResponse{}
	for _, l := range logs {
		byAction[l.Action] = l
		s.True(json.Valid(l.Details))
	}
	s.Equal("System", byAction[model.ActionPaymentApproved].UserName)
	s.Empty(byAction[model.ActionPaymentApproved].UserID)
	s.Equal(client.UserID.String(), byAction[model.ActionAcceptOffer].UserID)

	filtered, total, err := svc.GetAuditLogs(s.ctx, repository.AuditFilter{Action: model.ActionSubmitOffer}, 1, 50)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(model.ActionSubmitOffer, filtered[0].Action)
}

func (s *AccountTestSuite) TestStatistics() {
	svc := NewStatisticsService(repository.NewStatisticsRepository(s.db))
	start := time.Now().Add(-time.Hour)

	client, pro := s.newClient(), s.newProfessional()
	req, res := s.awaitingConfirmation(client, pro)
	_, err := s.webhook(res.Payment, "approved")
	s.Require().NoError(err)
	_, err = s.lifecycleSvc.ConfirmService(s.ctx, client, req.ID)
	s.Require().NoError(err)
	_, err = s.reviewSvc.CreateReview(s.ctx, client, req.ID, CreateReviewDTO{Rating: 5})
	s.Require().NoError(err)
	s.openRequest(client)

	stats, err := svc.GetStatistics(s.ctx, start, time.Now().Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(2), stats.TotalRequests)
	s.Equal(int64(1), stats.RequestsByStatus[model.RequestStatusCompleted])
	s.Equal(int64(1), stats.RequestsByStatus[model.RequestStatusOpen])
	s.Equal(int64(1), stats.TotalOffers)
	s.True(decimal.NewFromInt(150).Equal(stats.PaidVolume), stats.PaidVolume.String())
	s.True(decimal.NewFromInt(150).Equal(stats.ReleasedVolume), stats.ReleasedVolume.String())
	s.Equal(int64(1), stats.TotalReviews)
	s.InDelta(5.0, stats.AverageRating, 0.001)
	s.Require().Len(stats.TopProfessionals, 1)
	s.Equal(pro.UserID.String(), stats.TopProfessionals[0].ProfessionalID)

	_, err = svc.GetStatistics(s.ctx, time.Now(), start)
	var invalid *apperror.ValidationError
	s.ErrorAs(err, &invalid)
}
