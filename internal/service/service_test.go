package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lineaapp/linea/internal/db"
	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/repository"
	"github.com/lineaapp/linea/internal/state"
	"github.com/lineaapp/linea/internal/validation"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := db.Init("sqlite", filepath.Join(t.TempDir(), "test.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(conn) })

	require.NoError(t, db.RunMigrations(conn.DB, "sqlite"))
	return conn
}

func createUser(t *testing.T, users repository.UserRepository, id, email string) *model.User {
	t.Helper()

	u := &model.User{
		ID:                 id,
		Email:              email,
		AuthProvider:       AuthProviderEmail,
		CreatedAt:          time.Now(),
		SubscriptionStatus: model.SubscriptionStatusFree,
	}
	require.NoError(t, users.Create(u))
	return u
}

func newTestState(user *model.User) *state.AppState {
	return state.NewManager(state.Options{DefaultTimelineName: "La famille"}).State(user)
}

func newTimelineService() *TimelineService {
	return NewTimelineService(validation.New(), nil)
}

func devEmail() *EmailService {
	return NewEmailService("", "noreply@linea.app", "http://localhost:8090", "Linéa", true)
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
