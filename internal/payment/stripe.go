package payment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const StripeName = "stripe"

// signatureTolerance bounds the age of a Stripe-Signature timestamp
const signatureTolerance = 5 * time.Minute

type StripeConfig struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// StripeProvider creates Checkout Sessions and verifies Stripe webhook events
type StripeProvider struct {
	httpClient *http.Client
	cfg        StripeConfig
	now        func() time.Time
}

func NewStripeProvider(httpClient *http.Client, cfg StripeConfig) *StripeProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &StripeProvider{httpClient: httpClient, cfg: cfg, now: time.Now}
}

func (p *StripeProvider) Name() string { return StripeName }

func (p *StripeProvider) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", req.ExternalReference)
	form.Set("success_url", p.cfg.SuccessURL)
	form.Set("cancel_url", p.cfg.CancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.Amount.Shift(2).Round(0).IntPart(), 10))
	form.Set("line_items[0][price_data][product_data][name]", req.Title)
	if req.Description != "" {
		form.Set("line_items[0][price_data][product_data][description]", req.Description)
	}
	form.Set("metadata[external_reference]", req.ExternalReference)
	if req.PayerEmail != "" {
		form.Set("customer_email", req.PayerEmail)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(p.cfg.SecretKey, "")
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Idempotency-Key", req.ExternalReference)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	session := gjson.ParseBytes(raw)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stripe: unexpected status %s: %s", resp.Status, session.Get("error.message").String())
	}

	id := session.Get("id").String()
	if id == "" {
		return nil, fmt.Errorf("stripe: session response without id")
	}
	return &Preference{ID: id, CheckoutURL: session.Get("url").String()}, nil
}

// ParseWebhook verifies Stripe-Signature and maps checkout.session events onto
// payment outcomes. Other event types are ignored.
func (p *StripeProvider) ParseWebhook(ctx context.Context, req WebhookRequest) (*WebhookEvent, error) {
	if err := p.verifySignature(req.Body, req.Header.Get("Stripe-Signature")); err != nil {
		return nil, err
	}

	event := gjson.ParseBytes(req.Body)
	session := event.Get("data.object")

	var status string
	switch event.Get("type").String() {
	case "checkout.session.completed":
		if session.Get("payment_status").String() != "paid" {
			// async methods settle later through async_payment_* events
			return nil, ErrIgnoredEvent
		}
		status = "approved"
	case "checkout.session.async_payment_succeeded":
		status = "approved"
	case "checkout.session.async_payment_failed":
		status = "rejected"
	case "checkout.session.expired":
		status = "cancelled"
	default:
		return nil, ErrIgnoredEvent
	}

	externalRef := session.Get("client_reference_id").String()
	if externalRef == "" {
		externalRef = session.Get("metadata.external_reference").String()
	}

	method := StripeName
	if types := session.Get("payment_method_types"); types.IsArray() && len(types.Array()) > 0 {
		method = types.Array()[0].String()
	}

	ev := &WebhookEvent{
		Provider:          StripeName,
		ExternalReference: externalRef,
		PreferenceID:      session.Get("id").String(),
		PaymentID:         session.Get("payment_intent").String(),
		Status:            NormalizeStatus(status),
		Method:            method,
	}
	if err := ValidateEvent(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// verifySignature checks "t=<unix>,v1=<hex>" where v1 signs "<t>.<body>"
func (p *StripeProvider) verifySignature(body []byte, header string) error {
	parts := parseSignatureHeader(header)
	if len(parts["t"]) == 0 || len(parts["v1"]) == 0 {
		return ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(parts["t"][0], 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	age := p.now().Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return ErrInvalidSignature
	}

	payload := append([]byte(parts["t"][0]+"."), body...)
	for _, sig := range parts["v1"] {
		if VerifyHMAC(payload, sig, p.cfg.WebhookSecret) {
			return nil
		}
	}
	return ErrInvalidSignature
}
