// Package payment talks to the payment providers: it creates checkout preferences
// and turns signed provider callbacks into normalized webhook events.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"lifebee/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidSignature is returned when a webhook signature does not verify
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrIgnoredEvent is returned for provider events that carry no payment outcome
	ErrIgnoredEvent = errors.New("webhook event ignored")
	// ErrMalformedEvent is returned for callbacks missing or mangling required identifiers
	ErrMalformedEvent = errors.New("malformed webhook event")
)

// PreferenceRequest describes the checkout the client must pay for an accepted offer
type PreferenceRequest struct {
	ExternalReference string
	Title             string
	Description       string
	Amount            decimal.Decimal
	Currency          string
	PayerEmail        string
}

// Preference is the provider-side checkout created for a PreferenceRequest
type Preference struct {
	ID          string
	CheckoutURL string
}

// WebhookRequest carries the raw pieces of a provider callback
type WebhookRequest struct {
	Body   []byte
	Header http.Header
	Query  url.Values
}

// WebhookEvent is a provider callback normalized to our payment statuses
type WebhookEvent struct {
	Provider          string `validate:"required"`
	ExternalReference string `validate:"required_without=PreferenceID"`
	PreferenceID      string `validate:"required_without=ExternalReference"`
	PaymentID         string
	Status            string `validate:"required,oneof=pending approved rejected cancelled"`
	Method            string
}

// Provider is implemented by every payment gateway integration
type Provider interface {
	Name() string
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
	ParseWebhook(ctx context.Context, req WebhookRequest) (*WebhookEvent, error)
}

var validate = validator.New()

// ValidateEvent checks a normalized event before it reaches the payment workflow
func ValidateEvent(ev *WebhookEvent) error {
	if err := validate.Struct(ev); err != nil {
		return fmt.Errorf("invalid webhook event: %w", err)
	}
	return nil
}

// NormalizeStatus maps provider vocabularies onto payment reference statuses.
// Anything that does not settle the payment maps to pending.
func NormalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved", "paid", "succeeded", "success":
		return model.PaymentStatusApproved
	case "rejected", "failed", "declined":
		return model.PaymentStatusRejected
	case "cancelled", "canceled", "expired":
		return model.PaymentStatusCancelled
	default:
		return model.PaymentStatusPending
	}
}

// Registry resolves providers by name
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

func NewRegistry(defaultName string, providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers)), defaultName: defaultName}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the named provider, or the default one when name is empty
func (r *Registry) Get(name string) (Provider, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("payment provider %q is not configured", name)
	}
	return p, nil
}

// Default returns the provider new preferences are created with
func (r *Registry) Default() (Provider, error) {
	return r.Get("")
}
