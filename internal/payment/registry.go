package payment

import (
	"net/http"

	"lifebee/internal/config"
)

// NewFromConfig registers every gateway that has credentials, with cfg.Provider as the
// default for new preferences. The sandbox only exists when it is the configured provider.
func NewFromConfig(cfg config.PaymentConfig) *Registry {
	client := &http.Client{Timeout: cfg.Timeout}

	var providers []Provider
	if cfg.Provider == SandboxName {
		providers = append(providers, NewSandboxProvider(cfg.Sandbox.WebhookSecret, cfg.Sandbox.CheckoutURL))
	}
	if cfg.MercadoPago.AccessToken != "" {
		providers = append(providers, NewMercadoPagoProvider(client, MercadoPagoConfig{
			BaseURL:         cfg.MercadoPago.BaseURL,
			AccessToken:     cfg.MercadoPago.AccessToken,
			WebhookSecret:   cfg.MercadoPago.WebhookSecret,
			NotificationURL: cfg.NotificationURL + "/" + MercadoPagoName,
			SuccessURL:      cfg.SuccessURL,
			FailureURL:      cfg.CancelURL,
		}))
	}
	if cfg.Stripe.SecretKey != "" {
		providers = append(providers, NewStripeProvider(client, StripeConfig{
			BaseURL:       cfg.Stripe.BaseURL,
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			SuccessURL:    cfg.SuccessURL,
			CancelURL:     cfg.CancelURL,
		}))
	}

	return NewRegistry(cfg.Provider, providers...)
}
