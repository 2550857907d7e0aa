package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lifebee/internal/apperror"
	"lifebee/internal/model"
	"lifebee/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsClient() bool       { return a.Role == model.RoleClient }
func (a Actor) IsProfessional() bool { return a.Role == model.RoleProfessional }
func (a Actor) IsAdmin() bool        { return a.Role == model.RoleAdmin }

// EventDispatcher delivers outbox events once their transaction has committed
type EventDispatcher interface {
	Dispatch(ctx context.Context, events []model.OutboxEvent)
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, []model.OutboxEvent) {}

func dispatcherOrNoop(d EventDispatcher) EventDispatcher {
	if d == nil {
		return noopDispatcher{}
	}
	return d
}

// notFound converts gorm's missing record error into a NotFoundError
func notFound(err error, entity string, id fmt.Stringer) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(entity, id.String())
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}

// writeAudit records an action inside the caller's transaction. A nil actor means the
// change came from a payment provider.
func writeAudit(ctx context.Context, repo repository.AuditRepository, actor *uuid.UUID, action, entityID, entityName string, details interface{}) error {
	raw, err := json.Marshal(details)
	if err != nil || string(raw) == "null" {
		raw = []byte("{}")
	}
	entry := &model.AuditLog{
		UserID:     actor,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(raw),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
