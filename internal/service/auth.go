package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/repository"
	"github.com/lineaapp/linea/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

const AuthCookieName = "auth_token"

const (
	AuthProviderEmail    = "email"
	AuthProviderGoogle   = "google"
	AuthProviderSupabase = "supabase"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordlessLogin  = errors.New("this account signs in with an external provider")
	ErrInvalidToken       = errors.New("invalid token")
)

type AuthService struct {
	users         repository.UserRepository
	subscriptions *SubscriptionService
	email         *EmailService
	jwtSecret     []byte
	jwtExpiry     time.Duration
	isProduction  bool
}

func NewAuthService(
	users repository.UserRepository,
	subscriptions *SubscriptionService,
	email *EmailService,
	jwtSecret string,
	jwtExpiry time.Duration,
	isProduction bool,
) *AuthService {
	return &AuthService{
		users:         users,
		subscriptions: subscriptions,
		email:         email,
		jwtSecret:     []byte(jwtSecret),
		jwtExpiry:     jwtExpiry,
		isProduction:  isProduction,
	}
}

// Signup creates a password account on the free plan.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*model.User, error) {
	email = validation.NormalizeEmail(email)

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, validation.FieldError("email", err.Error())
	}
	err = validation.ValidatePassword(password)
	if err != nil {
		return nil, validation.FieldError("password", err.Error())
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: &hash,
		AuthProvider: AuthProviderEmail,
		CreatedAt:    time.Now(),
	}

	err = s.createUser(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.Info("user signed up", "user_id", user.ID)
	return user, nil
}

func (s *AuthService) Login(email, password string) (*model.User, error) {
	email = validation.NormalizeEmail(email)

	user, err := s.users.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Spend the same time as a real comparison.
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		return nil, ErrPasswordlessLogin
	}

	err = s.ComparePassword(password, *user.PasswordHash)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// AuthenticateOAuth signs in a user whose email an external provider
// vouched for, creating the account on first use.
func (s *AuthService) AuthenticateOAuth(ctx context.Context, email, provider string) (*model.User, error) {
	email = validation.NormalizeEmail(email)

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	user, err := s.users.ByEmail(email)
	if err == nil {
		slog.Info("user authenticated via oauth", "user_id", user.ID, "provider", provider)
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to lookup user: %w", err)
	}

	user = &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		AuthProvider: provider,
		CreatedAt:    time.Now(),
	}

	err = s.createUser(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.Info("new oauth user created", "user_id", user.ID, "provider", provider)
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, user *model.User) error {
	err := s.users.Create(user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	err = s.subscriptions.CreateFreeSubscription(user.ID)
	if err != nil {
		// Users without a subscription row are treated as free.
		slog.Warn("failed to create free subscription", "error", err, "user_id", user.ID)
	}

	err = s.email.SendWelcomeEmail(ctx, user.Email)
	if err != nil {
		slog.Warn("failed to send welcome email", "error", err, "user_id", user.ID)
	}

	return nil
}

// CompleteOnboarding stamps the user as onboarded. Repeated calls keep the
// first timestamp.
func (s *AuthService) CompleteOnboarding(userID string) (*model.User, error) {
	user, err := s.users.ByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.IsOnboarded() {
		return user, nil
	}

	now := time.Now()
	user.OnboardedAt = &now
	err = s.users.Update(user)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// GenerateJWT returns a signed token and its expiry.
func (s *AuthService) GenerateJWT(user *model.User) (string, time.Time, error) {
	now := time.Now()
	expiry := now.Add(s.jwtExpiry)
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiry, nil
}

// VerifyJWT returns the user id the token was issued for.
func (s *AuthService) VerifyJWT(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (s *AuthService) SetJWTCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearJWTCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	return hash
})
