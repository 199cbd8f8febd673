package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lineaapp/linea/internal/db"
	"github.com/lineaapp/linea/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	conn, err := db.Init("sqlite", path+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(conn) })

	require.NoError(t, db.RunMigrations(conn.DB, "sqlite"))
	return conn
}

func createTestUser(t *testing.T, repo UserRepository, id, email string) *model.User {
	t.Helper()

	hash := "hash"
	u := &model.User{
		ID:           id,
		Email:        email,
		PasswordHash: &hash,
		AuthProvider: "email",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.Create(u))
	return u
}

func TestUserRepository(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewUserRepository(conn)

	t.Run("create and lookup", func(t *testing.T) {
		createTestUser(t, repo, "u1", "marie@example.com")

		got, err := repo.ByID("u1")
		require.NoError(t, err)
		assert.Equal(t, "marie@example.com", got.Email)
		assert.True(t, got.HasPassword())
		assert.False(t, got.IsOnboarded())

		got, err = repo.ByEmail("Marie@Example.com")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := repo.Create(&model.User{ID: "u2", Email: "marie@example.com", AuthProvider: "email", CreatedAt: time.Now()})
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.ByID("missing")
		assert.ErrorIs(t, err, ErrUserNotFound)
		_, err = repo.ByEmail("nobody@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("update onboarding", func(t *testing.T) {
		u, err := repo.ByID("u1")
		require.NoError(t, err)
		now := time.Now().UTC()
		u.OnboardedAt = &now
		require.NoError(t, repo.Update(u))

		got, err := repo.ByID("u1")
		require.NoError(t, err)
		assert.True(t, got.IsOnboarded())

		assert.ErrorIs(t, repo.Update(&model.User{ID: "missing", Email: "x@example.com"}), ErrUserNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete("u1"))
		assert.ErrorIs(t, repo.Delete("u1"), ErrUserNotFound)
	})
}

func TestSubscriptionRepository(t *testing.T) {
	conn := setupTestDB(t)
	users := NewUserRepository(conn)
	repo := NewSubscriptionRepository(conn)
	createTestUser(t, users, "u1", "paul@example.com")

	now := time.Now().UTC().Truncate(time.Second)
	sub := &model.Subscription{
		ID:        "s1",
		UserID:    "u1",
		PlanID:    model.SubscriptionPlanFree,
		Status:    model.SubscriptionStatusActive,
		Provider:  model.ProviderManual,
		Currency:  "eur",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(sub))

	got, err := repo.ByUserID("u1")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionPlanFree, got.PlanID)
	assert.Equal(t, model.SubscriptionStatusFree, got.Tier(now))

	customer := "cus_123"
	subID := "sub_456"
	interval := model.SubscriptionIntervalYearly
	amount := 4999
	end := now.Add(365 * 24 * time.Hour)
	got.PlanID = model.SubscriptionPlanPremium
	got.Provider = model.ProviderStripe
	got.ProviderCustomerID = &customer
	got.ProviderSubscriptionID = &subID
	got.Interval = &interval
	got.Amount = &amount
	got.CurrentPeriodEnd = &end
	require.NoError(t, repo.Update(got))

	byCustomer, err := repo.ByProviderCustomerID("cus_123")
	require.NoError(t, err)
	assert.Equal(t, "s1", byCustomer.ID)

	bySub, err := repo.ByProviderSubscriptionID("sub_456")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusPremium, bySub.Tier(now))
	assert.Equal(t, "49.99 €/an", bySub.FormatPrice())

	_, err = repo.ByUserID("missing")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
	assert.ErrorIs(t, repo.Update(&model.Subscription{ID: "missing"}), ErrSubscriptionNotFound)
}

func TestFileRepository(t *testing.T) {
	conn := setupTestDB(t)
	users := NewUserRepository(conn)
	repo := NewFileRepository(conn)
	createTestUser(t, users, "u1", "lea@example.com")
	createTestUser(t, users, "u2", "lucas@example.com")

	file := func(id, userID, owner string, size int64) *model.File {
		return &model.File{
			ID:           id,
			UserID:       userID,
			OwnerType:    model.OwnerTypeEvent,
			OwnerID:      owner,
			Type:         model.FileTypeMedia,
			Filename:     id + ".jpg",
			OriginalName: "photo.jpg",
			MimeType:     "image/jpeg",
			Size:         size,
			StoragePath:  "users/" + userID + "/" + id + ".jpg",
			URL:          "https://cdn.example.com/" + id + ".jpg",
			CreatedAt:    time.Now().UTC(),
		}
	}

	require.NoError(t, repo.Create(file("f1", "u1", "e1", 100)))
	require.NoError(t, repo.Create(file("f2", "u1", "e1", 250)))
	require.NoError(t, repo.Create(file("f3", "u1", "e2", 50)))
	require.NoError(t, repo.Create(file("f4", "u2", "e9", 1000)))

	t.Run("lookup", func(t *testing.T) {
		got, err := repo.ByID("f1")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/f1.jpg", got.URL)

		_, err = repo.ByID("missing")
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("by owner", func(t *testing.T) {
		files, err := repo.Files(model.OwnerTypeEvent, "e1")
		require.NoError(t, err)
		assert.Len(t, files, 2)

		all, err := repo.AllUserFiles("u1")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("total size", func(t *testing.T) {
		total, err := repo.TotalSize("u1")
		require.NoError(t, err)
		assert.Equal(t, int64(400), total)

		total, err = repo.TotalSize("nobody")
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete("f2"))
		assert.ErrorIs(t, repo.Delete("f2"), ErrFileNotFound)

		total, err := repo.TotalSize("u1")
		require.NoError(t, err)
		assert.Equal(t, int64(150), total)
	})

	t.Run("cascade on user delete", func(t *testing.T) {
		require.NoError(t, users.Delete("u2"))
		_, err := repo.ByID("f4")
		assert.ErrorIs(t, err, ErrFileNotFound)
	})
}
