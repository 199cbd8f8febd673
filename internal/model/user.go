package model

import (
	"time"
)

const (
	SubscriptionStatusFree    = "free"
	SubscriptionStatusPremium = "premium"
)

type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash *string    `db:"password_hash" json:"-"` // Nullable for OAuth users
	AuthProvider string     `db:"auth_provider" json:"-"`
	OnboardedAt  *time.Time `db:"onboarded_at" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`

	// Computed from the subscription (not in database)
	SubscriptionStatus string `db:"-" json:"subscriptionStatus"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

func (u *User) IsOnboarded() bool {
	return u.OnboardedAt != nil
}

func (u *User) IsPremium() bool {
	return u.SubscriptionStatus == SubscriptionStatusPremium
}
