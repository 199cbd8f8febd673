package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/repository"
)

type SubscriptionService struct {
	repo repository.SubscriptionRepository
	now  func() time.Time
}

func NewSubscriptionService(repo repository.SubscriptionRepository) *SubscriptionService {
	return &SubscriptionService{repo: repo, now: time.Now}
}

func (s *SubscriptionService) CreateFreeSubscription(userID string) error {
	now := s.now()
	subscription := &model.Subscription{
		ID:        uuid.New().String(),
		UserID:    userID,
		PlanID:    model.SubscriptionPlanFree,
		Status:    model.SubscriptionStatusActive,
		Provider:  model.ProviderManual,
		Currency:  "eur",
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.repo.Create(subscription)
	if err != nil {
		return fmt.Errorf("failed to create free subscription: %w", err)
	}

	return nil
}

func (s *SubscriptionService) Subscription(userID string) (*model.Subscription, error) {
	sub, err := s.repo.ByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}

// Tier is "premium" or "free". Users without a subscription row are free.
func (s *SubscriptionService) Tier(userID string) (string, error) {
	sub, err := s.repo.ByUserID(userID)
	if errors.Is(err, repository.ErrSubscriptionNotFound) {
		return model.SubscriptionStatusFree, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub.Tier(s.now()), nil
}

func (s *SubscriptionService) ByProviderSubscriptionID(providerSubID string) (*model.Subscription, error) {
	sub, err := s.repo.ByProviderSubscriptionID(providerSubID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription by provider ID: %w", err)
	}

	return sub, nil
}

func (s *SubscriptionService) ByProviderCustomerID(customerID string) (*model.Subscription, error) {
	sub, err := s.repo.ByProviderCustomerID(customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription by customer ID: %w", err)
	}

	return sub, nil
}

func (s *SubscriptionService) UpdateSubscription(sub *model.Subscription) error {
	sub.UpdatedAt = s.now()

	err := s.repo.Update(sub)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	return nil
}

// GrantPremium switches the user to a manually managed premium plan,
// creating the subscription row if needed.
func (s *SubscriptionService) GrantPremium(userID string) error {
	sub, err := s.repo.ByUserID(userID)
	if errors.Is(err, repository.ErrSubscriptionNotFound) {
		err = s.CreateFreeSubscription(userID)
		if err != nil {
			return err
		}
		sub, err = s.repo.ByUserID(userID)
	}
	if err != nil {
		return fmt.Errorf("failed to get subscription: %w", err)
	}

	sub.PlanID = model.SubscriptionPlanPremium
	sub.Status = model.SubscriptionStatusActive
	sub.Provider = model.ProviderManual
	sub.CurrentPeriodEnd = nil
	return s.UpdateSubscription(sub)
}

func (s *SubscriptionService) DowngradeToFree(sub *model.Subscription) error {
	sub.PlanID = model.SubscriptionPlanFree
	sub.Status = model.SubscriptionStatusActive
	sub.ProviderSubscriptionID = nil
	sub.CurrentPeriodEnd = nil
	sub.Amount = nil
	sub.Interval = nil

	return s.UpdateSubscription(sub)
}
