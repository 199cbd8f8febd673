package payment

import (
	"errors"
	"log/slog"

	"github.com/lineaapp/linea/internal/config"
	"github.com/lineaapp/linea/internal/service"
)

// NewProvider returns nil without error when payments are not configured.
func NewProvider(cfg *config.Config, subscriptionService *service.SubscriptionService, onActivated func(userID string)) (Provider, error) {
	if !cfg.PaymentsEnabled() {
		slog.Info("payments disabled (no STRIPE_SECRET_KEY)")
		return nil, nil
	}

	if cfg.StripeWebhookSecret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}

	return NewStripeProvider(cfg, subscriptionService, onActivated), nil
}
