package payment

import (
	"context"
	"net/url"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const SandboxName = "sandbox"

// SandboxProvider issues local preferences and accepts webhooks signed with a shared
// secret. It stands in for a real gateway in development and tests.
type SandboxProvider struct {
	secret      string
	checkoutURL string
}

func NewSandboxProvider(secret, checkoutURL string) *SandboxProvider {
	return &SandboxProvider{secret: secret, checkoutURL: checkoutURL}
}

func (p *SandboxProvider) Name() string { return SandboxName }

func (p *SandboxProvider) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	id := "sbx_pref_" + uuid.NewString()
	return &Preference{
		ID:          id,
		CheckoutURL: p.checkoutURL + "?preference_id=" + url.QueryEscape(id),
	}, nil
}

// ParseWebhook expects a JSON body with external_reference, preference_id, payment_id
// and status, signed in the X-Signature header as hex HMAC-SHA256 of the body
func (p *SandboxProvider) ParseWebhook(ctx context.Context, req WebhookRequest) (*WebhookEvent, error) {
	if !VerifyHMAC(req.Body, req.Header.Get("X-Signature"), p.secret) {
		return nil, ErrInvalidSignature
	}

	body := gjson.ParseBytes(req.Body)
	ev := &WebhookEvent{
		Provider:          SandboxName,
		ExternalReference: body.Get("external_reference").String(),
		PreferenceID:      body.Get("preference_id").String(),
		PaymentID:         body.Get("payment_id").String(),
		Status:            NormalizeStatus(body.Get("status").String()),
		Method:            body.Get("payment_method").String(),
	}
	if ev.Method == "" {
		ev.Method = SandboxName
	}
	if err := ValidateEvent(ev); err != nil {
		return nil, err
	}
	return ev, nil
}
