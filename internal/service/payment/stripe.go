package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lineaapp/linea/internal/config"
	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/service"
	"github.com/stripe/stripe-go/v81"
	portalsession "github.com/stripe/stripe-go/v81/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"
)

type StripeProvider struct {
	cfg                 *config.Config
	subscriptionService *service.SubscriptionService
	onActivated         func(userID string)
}

func NewStripeProvider(cfg *config.Config, subscriptionService *service.SubscriptionService, onActivated func(userID string)) *StripeProvider {
	stripe.Key = cfg.StripeSecretKey

	slog.Info("stripe provider initialized", "app_env", cfg.AppEnv)

	return &StripeProvider{
		cfg:                 cfg,
		subscriptionService: subscriptionService,
		onActivated:         onActivated,
	}
}

func (s *StripeProvider) Name() string {
	return model.ProviderStripe
}

func (s *StripeProvider) CreateCheckoutURL(userID, interval, customerEmail string) (string, error) {
	sub, err := s.subscriptionService.Subscription(userID)
	if err != nil {
		return "", err
	}

	priceID := s.priceID(interval)
	if priceID == "" {
		return "", fmt.Errorf("%w: %s", ErrNoPrice, interval)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(s.cfg.AppURL + "/premium?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.cfg.AppURL + "/premium"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"user_id":         userID,
			"subscription_id": sub.ID,
		},
		Locale:              stripe.String("fr"),
		AllowPromotionCodes: stripe.Bool(true),
	}

	if sub.ProviderCustomerID != nil && *sub.ProviderCustomerID != "" {
		params.Customer = sub.ProviderCustomerID
	} else {
		params.CustomerEmail = stripe.String(customerEmail)
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	slog.Info("stripe checkout created", "user_id", userID, "interval", interval, "session_id", sess.ID)
	return sess.URL, nil
}

func (s *StripeProvider) CustomerPortalURL(userID string) (string, error) {
	sub, err := s.subscriptionService.Subscription(userID)
	if err != nil {
		return "", err
	}

	if sub.ProviderCustomerID == nil || *sub.ProviderCustomerID == "" {
		return "", ErrNoCustomer
	}

	portal, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  sub.ProviderCustomerID,
		ReturnURL: stripe.String(s.cfg.AppURL + "/settings"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create customer portal session: %w", err)
	}

	slog.Info("stripe customer portal session created", "user_id", userID)
	return portal.URL, nil
}

func (s *StripeProvider) HandleWebhook(payload []byte, headers http.Header) error {
	// Stripe API versions are backwards compatible for the fields read here.
	event, err := webhook.ConstructEventWithOptions(
		payload,
		headers.Get("Stripe-Signature"),
		s.cfg.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	slog.Info("stripe webhook received", "event_type", event.Type, "event_id", event.ID)

	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(event.Data.Raw)
	case "customer.subscription.created", "customer.subscription.updated":
		return s.handleSubscriptionChanged(event.Data.Raw)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(event.Data.Raw)
	case "invoice.payment_succeeded":
		return s.handleInvoicePaid(event.Data.Raw)
	case "invoice.payment_failed":
		return s.handleInvoiceFailed(event.Data.Raw)
	default:
		slog.Debug("stripe webhook ignored", "event_type", event.Type)
		return nil
	}
}

func (s *StripeProvider) handleCheckoutCompleted(data json.RawMessage) error {
	var session struct {
		CustomerID string            `json:"customer"`
		Metadata   map[string]string `json:"metadata"`
	}
	err := json.Unmarshal(data, &session)
	if err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}

	userID := session.Metadata["user_id"]
	if userID == "" {
		slog.Warn("stripe checkout session has no user_id in metadata, skipping")
		return nil
	}

	sub, err := s.subscriptionService.Subscription(userID)
	if err != nil {
		return err
	}

	sub.Provider = model.ProviderStripe
	sub.ProviderCustomerID = &session.CustomerID

	err = s.subscriptionService.UpdateSubscription(sub)
	if err != nil {
		return err
	}

	slog.Info("stripe checkout completed", "user_id", userID, "customer_id", session.CustomerID)
	return nil
}

type stripePrice struct {
	ID         string `json:"id"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
	Recurring  struct {
		Interval string `json:"interval"`
	} `json:"recurring"`
}

type stripeSubscription struct {
	ID                string `json:"id"`
	CustomerID        string `json:"customer"`
	Status            string `json:"status"`
	CurrentPeriodEnd  int64  `json:"current_period_end"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	Items             struct {
		Data []struct {
			CurrentPeriodEnd int64       `json:"current_period_end"`
			Price            stripePrice `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// periodEnd reads the item-level field newer API versions use, falling
// back to the subscription-level one.
func (ss *stripeSubscription) periodEnd() int64 {
	if len(ss.Items.Data) > 0 && ss.Items.Data[0].CurrentPeriodEnd > 0 {
		return ss.Items.Data[0].CurrentPeriodEnd
	}
	return ss.CurrentPeriodEnd
}

func (s *StripeProvider) handleSubscriptionChanged(data json.RawMessage) error {
	var in stripeSubscription
	err := json.Unmarshal(data, &in)
	if err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	sub, err := s.subscriptionService.ByProviderSubscriptionID(in.ID)
	if err != nil {
		sub, err = s.subscriptionService.ByProviderCustomerID(in.CustomerID)
	}
	if err != nil {
		slog.Warn("stripe subscription has unknown customer, skipping", "customer_id", in.CustomerID, "stripe_sub_id", in.ID)
		return nil
	}

	wasPremium := sub.Tier(time.Now()) == model.SubscriptionStatusPremium

	if len(in.Items.Data) > 0 {
		price := in.Items.Data[0].Price
		if !s.isPremiumPrice(price.ID) {
			slog.Warn("stripe subscription uses an unknown price", "price_id", price.ID, "stripe_sub_id", in.ID)
		}
		amount := int(price.UnitAmount)
		interval := mapStripeInterval(price.Recurring.Interval)
		sub.Amount = &amount
		sub.Currency = price.Currency
		sub.Interval = &interval
	}

	sub.PlanID = model.SubscriptionPlanPremium
	sub.Provider = model.ProviderStripe
	sub.ProviderCustomerID = &in.CustomerID
	sub.ProviderSubscriptionID = &in.ID
	sub.Status = mapStripeStatus(in.Status)
	if in.CancelAtPeriodEnd {
		sub.Status = model.SubscriptionStatusCancelled
	}
	if end := in.periodEnd(); end > 0 {
		t := time.Unix(end, 0)
		sub.CurrentPeriodEnd = &t
	}

	err = s.subscriptionService.UpdateSubscription(sub)
	if err != nil {
		return err
	}

	slog.Info("stripe subscription synced", "user_id", sub.UserID, "stripe_sub_id", in.ID, "status", sub.Status)

	if !wasPremium && sub.Tier(time.Now()) == model.SubscriptionStatusPremium && s.onActivated != nil {
		s.onActivated(sub.UserID)
	}
	return nil
}

func (s *StripeProvider) handleSubscriptionDeleted(data json.RawMessage) error {
	var in struct {
		ID string `json:"id"`
	}
	err := json.Unmarshal(data, &in)
	if err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	sub, err := s.subscriptionService.ByProviderSubscriptionID(in.ID)
	if err != nil {
		slog.Warn("stripe subscription not found, ignoring deletion", "stripe_sub_id", in.ID)
		return nil
	}

	if sub.PlanID == model.SubscriptionPlanFree {
		return nil
	}

	err = s.subscriptionService.DowngradeToFree(sub)
	if err != nil {
		return err
	}

	slog.Info("stripe subscription deleted, downgraded to free", "user_id", sub.UserID, "stripe_sub_id", in.ID)
	return nil
}

type stripeInvoice struct {
	SubscriptionID string `json:"subscription"`
}

func (s *StripeProvider) invoiceSubscription(data json.RawMessage) (*model.Subscription, error) {
	var in stripeInvoice
	err := json.Unmarshal(data, &in)
	if err != nil {
		return nil, fmt.Errorf("failed to parse invoice: %w", err)
	}
	if in.SubscriptionID == "" {
		return nil, nil
	}

	sub, err := s.subscriptionService.ByProviderSubscriptionID(in.SubscriptionID)
	if err != nil {
		slog.Warn("stripe invoice has unknown subscription, skipping", "subscription_id", in.SubscriptionID)
		return nil, nil
	}
	return sub, nil
}

func (s *StripeProvider) handleInvoicePaid(data json.RawMessage) error {
	sub, err := s.invoiceSubscription(data)
	if err != nil || sub == nil {
		return err
	}

	if sub.Status != model.SubscriptionStatusActive {
		sub.Status = model.SubscriptionStatusActive
		err = s.subscriptionService.UpdateSubscription(sub)
		if err != nil {
			return err
		}
	}

	slog.Info("stripe invoice payment succeeded", "user_id", sub.UserID)
	return nil
}

// Stripe retries failed payments and eventually sends subscription.deleted.
func (s *StripeProvider) handleInvoiceFailed(data json.RawMessage) error {
	sub, err := s.invoiceSubscription(data)
	if err != nil || sub == nil {
		return err
	}

	slog.Warn("stripe invoice payment failed", "user_id", sub.UserID)
	return nil
}

func (s *StripeProvider) priceID(interval string) string {
	switch interval {
	case model.SubscriptionIntervalMonthly:
		return s.cfg.StripePriceIDPremiumMonthly
	case model.SubscriptionIntervalYearly:
		return s.cfg.StripePriceIDPremiumYearly
	default:
		return ""
	}
}

func (s *StripeProvider) isPremiumPrice(priceID string) bool {
	return priceID != "" &&
		(priceID == s.cfg.StripePriceIDPremiumMonthly || priceID == s.cfg.StripePriceIDPremiumYearly)
}

func mapStripeStatus(status string) string {
	switch status {
	case "active", "trialing":
		return model.SubscriptionStatusActive
	case "canceled", "incomplete_expired", "unpaid":
		return model.SubscriptionStatusCancelled
	default:
		return status
	}
}

func mapStripeInterval(interval string) string {
	switch interval {
	case "month":
		return model.SubscriptionIntervalMonthly
	case "year":
		return model.SubscriptionIntervalYearly
	default:
		return interval
	}
}

// IsInvalidPayload reports whether a webhook was rejected before processing.
func IsInvalidPayload(err error) bool {
	return errors.Is(err, ErrInvalidPayload)
}
