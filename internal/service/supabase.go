package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// TokenVerifier resolves a third-party access token to a verified email.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// SupabaseAuth accepts access tokens issued by Supabase Auth, so clients
// that sign in with Supabase can open a session here.
type SupabaseAuth struct {
	client *supabase.Client
}

func NewSupabaseAuth(url, serviceKey string) (*SupabaseAuth, error) {
	client, err := supabase.NewClient(url, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &SupabaseAuth{client: client}, nil
}

func (a *SupabaseAuth) VerifyToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	err := ctx.Err()
	if err != nil {
		return "", err
	}

	user, err := a.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if user.Email == "" {
		return "", errors.New("supabase user has no email")
	}
	return user.Email, nil
}
