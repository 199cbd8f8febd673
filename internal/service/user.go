package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/repository"
	"github.com/lineaapp/linea/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")
	ErrActiveSubscription     = errors.New("cannot delete account with active subscription")
	ErrNoPassword             = errors.New("account has no password")
)

type UserService struct {
	userRepository      repository.UserRepository
	mediaService        *MediaService
	emailService        *EmailService
	subscriptionService *SubscriptionService
}

func NewUserService(
	userRepository repository.UserRepository,
	mediaService *MediaService,
	emailService *EmailService,
	subscriptionService *SubscriptionService,
) *UserService {
	return &UserService{
		userRepository:      userRepository,
		mediaService:        mediaService,
		emailService:        emailService,
		subscriptionService: subscriptionService,
	}
}

// ByID loads the user with SubscriptionStatus filled from the subscription.
func (s *UserService) ByID(id string) (*model.User, error) {
	user, err := s.userRepository.ByID(id)
	if err != nil {
		return nil, err
	}

	tier, err := s.subscriptionService.Tier(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription tier: %w", err)
	}
	user.SubscriptionStatus = tier

	return user, nil
}

func (s *UserService) ByEmail(email string) (*model.User, error) {
	user, err := s.userRepository.ByEmail(validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return s.ByID(user.ID)
}

func (s *UserService) UpdatePassword(userID, currentPassword, newPassword string) error {
	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		return ErrNoPassword
	}

	err = bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(currentPassword))
	if err != nil {
		return ErrInvalidCurrentPassword
	}

	err = validation.ValidatePassword(newPassword)
	if err != nil {
		return validation.FieldError("newPassword", err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	hashStr := string(hashedPassword)
	user.PasswordHash = &hashStr

	err = s.userRepository.Update(user)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// DeleteAccount removes the user, their stored media and their billing row.
// A paid plan whose period is still running blocks deletion.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	subscription, err := s.subscriptionService.Subscription(userID)
	if err != nil && !errors.Is(err, repository.ErrSubscriptionNotFound) {
		return fmt.Errorf("failed to check subscription: %w", err)
	}

	if subscription != nil && subscription.PlanID != model.SubscriptionPlanFree &&
		(subscription.IsActive() ||
			(subscription.CurrentPeriodEnd != nil && subscription.CurrentPeriodEnd.After(time.Now()))) {
		return ErrActiveSubscription
	}

	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	err = s.mediaService.DeleteAllUserFiles(ctx, userID)
	if err != nil {
		// Orphaned objects are preferable to a failed deletion.
		slog.Warn("failed to delete user files from storage", "user_id", userID, "error", err)
	}

	err = s.emailService.SendAccountDeletedEmail(ctx, user.Email)
	if err != nil {
		slog.Warn("failed to send account deleted email", "user_id", userID, "error", err)
	}

	// Files and subscriptions go with the user (ON DELETE CASCADE).
	err = s.userRepository.Delete(userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("account deleted", "user_id", userID)
	return nil
}
