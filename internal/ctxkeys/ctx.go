package ctxkeys

import (
	"context"

	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/state"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	UserKey      contextKey = "user"
	StateKey     contextKey = "state"
	CSRFTokenKey contextKey = "csrf_token"
)

func User(ctx context.Context) *model.User {
	user, _ := ctx.Value(UserKey).(*model.User)
	return user
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// State is the authenticated user's in-memory timelines.
func State(ctx context.Context) *state.AppState {
	s, _ := ctx.Value(StateKey).(*state.AppState)
	return s
}

func WithState(ctx context.Context, s *state.AppState) context.Context {
	return context.WithValue(ctx, StateKey, s)
}

func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(CSRFTokenKey).(string)
	return token
}

func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, CSRFTokenKey, token)
}
