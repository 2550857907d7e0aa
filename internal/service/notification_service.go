package service

import (
	"context"
	"fmt"

	"lifebee/internal/notification"
	"lifebee/internal/repository"

	"github.com/google/uuid"
)

// NotificationPage is one page of the caller's notifications
type NotificationPage struct {
	Items  []notification.Message `json:"items"`
	Total  int64                  `json:"total"`
	Unread int64                  `json:"unread"`
	Page   int                    `json:"page"`
	Limit  int                    `json:"limit"`
}

type NotificationService interface {
	List(ctx context.Context, actor Actor, unreadOnly bool, page, limit int) (*NotificationPage, error)
	MarkRead(ctx context.Context, actor Actor, id uuid.UUID) error
	MarkAllRead(ctx context.Context, actor Actor) (int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) List(ctx context.Context, actor Actor, unreadOnly bool, page, limit int) (*NotificationPage, error) {
	rows, total, err := s.repo.ListByUser(ctx, actor.UserID, unreadOnly, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	unread, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	items := make([]notification.Message, 0, len(rows))
	for i := range rows {
		items = append(items, notification.NewMessage(&rows[i]))
	}
	return &NotificationPage{Items: items, Total: total, Unread: unread, Page: page, Limit: limit}, nil
}

// MarkRead is idempotent; marking an already read or foreign notification changes nothing
func (s *notificationService) MarkRead(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.repo.MarkRead(ctx, actor.UserID, id); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}
