package service

import (
	"context"
	"fmt"

	"lifebee/internal/apperror"
	"lifebee/internal/lifecycle"
	"lifebee/internal/model"
	"lifebee/internal/repository"

	"github.com/google/uuid"
)

type CreateReviewDTO struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"omitempty,max=2000"`
}

// ProfessionalReviews is one page of a professional's reviews plus their overall rating
type ProfessionalReviews struct {
	Reviews       []model.ServiceReview `json:"reviews"`
	Total         int64                 `json:"total"`
	AverageRating float64               `json:"average_rating"`
	Page          int                   `json:"page"`
	Limit         int                   `json:"limit"`
}

type ReviewService interface {
	CreateReview(ctx context.Context, actor Actor, requestID uuid.UUID, dto CreateReviewDTO) (*model.ServiceReview, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, page, limit int) (*ProfessionalReviews, error)
}

type reviewService struct {
	txManager repository.TransactionManager
	requests  repository.ServiceRequestRepository
	progress  repository.ProgressRepository
	reviews   repository.ReviewRepository
	users     repository.UserRepository
	auditRepo repository.AuditRepository
}

func NewReviewService(
	txManager repository.TransactionManager,
	requests repository.ServiceRequestRepository,
	progress repository.ProgressRepository,
	reviews repository.ReviewRepository,
	users repository.UserRepository,
	auditRepo repository.AuditRepository,
) ReviewService {
	return &reviewService{
		txManager: txManager,
		requests:  requests,
		progress:  progress,
		reviews:   reviews,
		users:     users,
		auditRepo: auditRepo,
	}
}

// CreateReview lets the requesting client rate the professional once the service is confirmed
func (s *reviewService) CreateReview(ctx context.Context, actor Actor, requestID uuid.UUID, dto CreateReviewDTO) (*model.ServiceReview, error) {
	if !actor.IsClient() {
		return nil, apperror.Forbidden("only the requesting client can review a service")
	}
	if dto.Rating < 1 || dto.Rating > 5 {
		return nil, apperror.Validation("rating must be between 1 and 5")
	}

	var review *model.ServiceReview
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetForUpdate(txCtx, requestID)
		if err != nil {
			return notFound(err, "service request", requestID)
		}
		if req.ClientID != actor.UserID {
			return apperror.Forbidden("only the requesting client can review a service")
		}

		progress, err := s.progress.GetByRequest(txCtx, requestID)
		if err != nil {
			return apperror.Validation("service has not been confirmed yet")
		}
		if !lifecycle.ReachedProgress(progress.Status, model.ProgressStatusConfirmed) {
			return apperror.Validation("service has not been confirmed yet")
		}

		exists, err := s.reviews.ExistsForRequest(txCtx, requestID)
		if err != nil {
			return fmt.Errorf("failed to check existing review: %w", err)
		}
		if exists {
			return apperror.Conflict("service request has already been reviewed")
		}

		review = &model.ServiceReview{
			ServiceRequestID: requestID,
			ServiceOfferID:   progress.ServiceOfferID,
			ClientID:         actor.UserID,
			ProfessionalID:   progress.ProfessionalID,
			Rating:           dto.Rating,
			Comment:          dto.Comment,
		}
		if err := s.reviews.Create(txCtx, review); err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, uuidPtr(actor.UserID), model.ActionCreateReview, requestID.String(), req.Category, map[string]interface{}{
			"review_id":       review.ID.String(),
			"professional_id": review.ProfessionalID.String(),
			"rating":          review.Rating,
		})
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *reviewService) ListByProfessional(ctx context.Context, professionalID uuid.UUID, page, limit int) (*ProfessionalReviews, error) {
	user, err := s.users.GetByID(ctx, professionalID)
	if err != nil {
		return nil, notFound(err, "professional", professionalID)
	}
	if user.Role != model.RoleProfessional {
		return nil, apperror.NotFound("professional", professionalID.String())
	}

	reviews, total, err := s.reviews.ListByProfessional(ctx, professionalID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	avg, err := s.reviews.AverageRating(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute rating: %w", err)
	}
	if reviews == nil {
		reviews = []model.ServiceReview{}
	}

	return &ProfessionalReviews{
		Reviews:       reviews,
		Total:         total,
		AverageRating: avg,
		Page:          page,
		Limit:         limit,
	}, nil
}
