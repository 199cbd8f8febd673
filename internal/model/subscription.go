package model

import (
	"fmt"
	"time"
)

type Subscription struct {
	ID                     string     `db:"id"`
	UserID                 string     `db:"user_id"`
	PlanID                 string     `db:"plan_id"`
	Status                 string     `db:"status"`
	Provider               string     `db:"provider"`
	ProviderCustomerID     *string    `db:"provider_customer_id"`
	ProviderSubscriptionID *string    `db:"provider_subscription_id"`
	CurrentPeriodEnd       *time.Time `db:"current_period_end"`
	Amount                 *int       `db:"amount"`
	Currency               string     `db:"currency"`
	Interval               *string    `db:"billing_interval"`
	CreatedAt              time.Time  `db:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at"`
}

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
)

const (
	ProviderStripe = "stripe"
	ProviderManual = "manual"
)

const (
	SubscriptionPlanFree    = "free"
	SubscriptionPlanPremium = "premium"
)

const (
	SubscriptionIntervalMonthly = "monthly"
	SubscriptionIntervalYearly  = "yearly"
)

const (
	FeatureExport         = "export"
	FeatureUnlimitedMedia = "unlimited_media"
)

const (
	StorageQuotaFree    int64 = 500 << 20
	StorageQuotaPremium int64 = 5 << 30
)

func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

func (s *Subscription) IsPaid() bool {
	return s.PlanID != SubscriptionPlanFree && s.IsActive()
}

// Tier maps the subscription to the user-facing free/premium status.
// A cancelled premium plan stays premium until its period ends.
func (s *Subscription) Tier(now time.Time) string {
	if s.PlanID != SubscriptionPlanPremium {
		return SubscriptionStatusFree
	}
	if s.IsActive() {
		return SubscriptionStatusPremium
	}
	if s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(now) {
		return SubscriptionStatusPremium
	}
	return SubscriptionStatusFree
}

func (s *Subscription) FormatPrice() string {
	if s.Amount == nil || *s.Amount == 0 {
		return ""
	}

	currencySymbols := map[string]string{
		"usd": "$",
		"eur": "€",
		"gbp": "£",
	}

	amount := float64(*s.Amount) / 100.0
	symbol := currencySymbols[s.Currency]
	if symbol == "" {
		symbol = "€"
	}

	interval := "mois"
	if s.Interval != nil && *s.Interval == SubscriptionIntervalYearly {
		interval = "an"
	}

	return fmt.Sprintf("%.2f %s/%s", amount, symbol, interval)
}

// HasFeature checks if the subscription has access to a specific feature
func (s *Subscription) HasFeature(feature string) bool {
	if s.Tier(time.Now()) != SubscriptionStatusPremium {
		return false
	}

	switch feature {
	case FeatureExport, FeatureUnlimitedMedia:
		return true
	default:
		return false
	}
}
