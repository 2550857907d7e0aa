package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const MercadoPagoName = "mercadopago"

// MercadoPagoConfig holds the credentials and URLs of a Mercado Pago integration
type MercadoPagoConfig struct {
	BaseURL         string
	AccessToken     string
	WebhookSecret   string
	NotificationURL string
	SuccessURL      string
	FailureURL      string
}

// MercadoPagoProvider creates Checkout Pro preferences and resolves payment notifications
type MercadoPagoProvider struct {
	httpClient *http.Client
	cfg        MercadoPagoConfig
}

func NewMercadoPagoProvider(httpClient *http.Client, cfg MercadoPagoConfig) *MercadoPagoProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &MercadoPagoProvider{httpClient: httpClient, cfg: cfg}
}

func (p *MercadoPagoProvider) Name() string { return MercadoPagoName }

func (p *MercadoPagoProvider) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	payload := map[string]interface{}{
		"items": []map[string]interface{}{{
			"title":       req.Title,
			"description": req.Description,
			"quantity":    1,
			"unit_price":  req.Amount.InexactFloat64(),
			"currency_id": req.Currency,
		}},
		"external_reference": req.ExternalReference,
		"notification_url":   p.cfg.NotificationURL,
		"back_urls": map[string]string{
			"success": p.cfg.SuccessURL,
			"failure": p.cfg.FailureURL,
			"pending": p.cfg.SuccessURL,
		},
		"auto_return": "approved",
	}
	if req.PayerEmail != "" {
		payload["payer"] = map[string]string{"email": req.PayerEmail}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.AccessToken)
	httpReq.Header.Set("X-Idempotency-Key", req.ExternalReference)

	resp, err := p.do(httpReq)
	if err != nil {
		return nil, err
	}

	id := resp.Get("id").String()
	if id == "" {
		return nil, fmt.Errorf("mercadopago: preference response without id")
	}
	return &Preference{ID: id, CheckoutURL: resp.Get("init_point").String()}, nil
}

// isNumericID reports whether id looks like a Mercado Pago payment id
func isNumericID(id string) bool {
	if id == "" || len(id) > 20 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseWebhook verifies the x-signature header and looks the payment up, since
// notifications only carry the payment id
func (p *MercadoPagoProvider) ParseWebhook(ctx context.Context, req WebhookRequest) (*WebhookEvent, error) {
	body := gjson.ParseBytes(req.Body)

	topic := body.Get("type").String()
	if topic == "" {
		topic = req.Query.Get("type")
	}
	if topic == "" {
		topic = req.Query.Get("topic")
	}
	if topic != "payment" {
		return nil, ErrIgnoredEvent
	}

	dataID := req.Query.Get("data.id")
	if dataID == "" {
		dataID = body.Get("data.id").String()
	}
	if !isNumericID(dataID) {
		return nil, fmt.Errorf("mercadopago: data.id %q: %w", dataID, ErrMalformedEvent)
	}

	if p.cfg.WebhookSecret != "" && !p.verifySignature(req, dataID) {
		return nil, ErrInvalidSignature
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/v1/payments/"+dataID, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.AccessToken)

	payment, err := p.do(httpReq)
	if err != nil {
		return nil, err
	}

	ev := &WebhookEvent{
		Provider:          MercadoPagoName,
		ExternalReference: payment.Get("external_reference").String(),
		PaymentID:         payment.Get("id").String(),
		Status:            NormalizeStatus(payment.Get("status").String()),
		Method:            payment.Get("payment_method_id").String(),
	}
	if err := ValidateEvent(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// verifySignature checks "ts=...,v1=..." against the manifest
// "id:<data.id>;request-id:<x-request-id>;ts:<ts>;"
func (p *MercadoPagoProvider) verifySignature(req WebhookRequest, dataID string) bool {
	parts := parseSignatureHeader(req.Header.Get("X-Signature"))
	if len(parts["ts"]) == 0 || len(parts["v1"]) == 0 {
		return false
	}

	var manifest strings.Builder
	manifest.WriteString("id:" + strings.ToLower(dataID) + ";")
	if requestID := req.Header.Get("X-Request-Id"); requestID != "" {
		manifest.WriteString("request-id:" + requestID + ";")
	}
	manifest.WriteString("ts:" + parts["ts"][0] + ";")

	return VerifyHMAC([]byte(manifest.String()), parts["v1"][0], p.cfg.WebhookSecret)
}

func (p *MercadoPagoProvider) do(req *http.Request) (gjson.Result, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, err
	}
	result := gjson.ParseBytes(raw)
	if resp.StatusCode >= 300 {
		return gjson.Result{}, fmt.Errorf("mercadopago: unexpected status %s: %s", resp.Status, result.Get("message").String())
	}
	return result, nil
}
