package service

import (
	"context"
	"testing"
	"time"

	"github.com/lineaapp/linea/internal/metrics"
	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userFixture struct {
	users   *UserService
	auth    *AuthService
	subs    *SubscriptionService
	repo    repository.UserRepository
	storage *failingStorage
	media   *MediaService
}

func setupUsers(t *testing.T) *userFixture {
	t.Helper()

	conn := setupTestDB(t)
	repo := repository.NewUserRepository(conn)
	subs := NewSubscriptionService(repository.NewSubscriptionRepository(conn))
	store := &failingStorage{}
	media := NewMediaService(repository.NewFileRepository(conn), store, metrics.NewCollector("test"), MediaConfig{Bucket: "media"})

	return &userFixture{
		users:   NewUserService(repo, media, devEmail(), subs),
		auth:    NewAuthService(repo, subs, devEmail(), "test-secret", time.Hour, false),
		subs:    subs,
		repo:    repo,
		storage: store,
		media:   media,
	}
}

func TestUserServiceByIDIncludesTier(t *testing.T) {
	f := setupUsers(t)

	user, err := f.auth.Signup(context.Background(), "marie@example.com", testPassword)
	require.NoError(t, err)

	got, err := f.users.ByID(user.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPremium())

	require.NoError(t, f.subs.GrantPremium(user.ID))
	got, err = f.users.ByEmail("MARIE@example.com")
	require.NoError(t, err)
	assert.True(t, got.IsPremium())
}

func TestUserServiceUpdatePassword(t *testing.T) {
	f := setupUsers(t)

	user, err := f.auth.Signup(context.Background(), "marie@example.com", testPassword)
	require.NoError(t, err)

	err = f.users.UpdatePassword(user.ID, "wrong-one-entirely", "nouveau-chemin-77")
	assert.ErrorIs(t, err, ErrInvalidCurrentPassword)

	require.NoError(t, f.users.UpdatePassword(user.ID, testPassword, "nouveau-chemin-77"))
	_, err = f.auth.Login("marie@example.com", "nouveau-chemin-77")
	require.NoError(t, err)

	oauth, err := f.auth.AuthenticateOAuth(context.Background(), "paul@example.com", AuthProviderGoogle)
	require.NoError(t, err)
	err = f.users.UpdatePassword(oauth.ID, "", "nouveau-chemin-77")
	assert.ErrorIs(t, err, ErrNoPassword)
}

func TestUserServiceDeleteAccount(t *testing.T) {
	f := setupUsers(t)
	ctx := context.Background()

	user, err := f.auth.Signup(ctx, "marie@example.com", testPassword)
	require.NoError(t, err)
	user.SubscriptionStatus = model.SubscriptionStatusFree

	_, err = f.media.Upload(ctx, user, "evt-1", []MediaUpload{{Filename: "a.png", Data: testPNG(t, 10, 10)}})
	require.NoError(t, err)

	require.NoError(t, f.users.DeleteAccount(ctx, user.ID))
	assert.NotEmpty(t, f.storage.deleted)

	_, err = f.repo.ByID(user.ID)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserServiceDeleteAccountBlockedByPaidPlan(t *testing.T) {
	f := setupUsers(t)
	ctx := context.Background()

	user, err := f.auth.Signup(ctx, "marie@example.com", testPassword)
	require.NoError(t, err)

	sub, err := f.subs.Subscription(user.ID)
	require.NoError(t, err)
	sub.PlanID = model.SubscriptionPlanPremium
	sub.Provider = model.ProviderStripe
	require.NoError(t, f.subs.UpdateSubscription(sub))

	err = f.users.DeleteAccount(ctx, user.ID)
	assert.ErrorIs(t, err, ErrActiveSubscription)

	_, err = f.repo.ByID(user.ID)
	assert.NoError(t, err)
}
