package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lineaapp/linea/internal/config"
	"github.com/lineaapp/linea/internal/ctxkeys"
	"github.com/lineaapp/linea/internal/db"
	"github.com/lineaapp/linea/internal/metrics"
	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/repository"
	"github.com/lineaapp/linea/internal/service"
	"github.com/lineaapp/linea/internal/state"
	"github.com/lineaapp/linea/internal/storage"
	"github.com/lineaapp/linea/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	users     repository.UserRepository
	states    *state.Manager
	timelines *service.TimelineService
	media     *service.MediaService
	auth      *service.AuthService
	accounts  *service.UserService
	user      *model.User
	st        *state.AppState
	uploads   string
}

func setup(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.Init("sqlite", filepath.Join(t.TempDir(), "test.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(conn) })
	require.NoError(t, db.RunMigrations(conn.DB, "sqlite"))

	users := repository.NewUserRepository(conn)
	subs := service.NewSubscriptionService(repository.NewSubscriptionRepository(conn))
	email := service.NewEmailService("", "noreply@linea.app", "http://localhost:8090", "Linéa", true)

	uploads := t.TempDir()
	store, err := storage.NewLocalStorage(uploads, "http://localhost:8090/uploads")
	require.NoError(t, err)

	collector := metrics.NewCollector("test")
	f := &fixture{
		users:     users,
		states:    state.NewManager(state.Options{DefaultTimelineName: "La famille"}),
		timelines: service.NewTimelineService(validation.New(), collector),
		media: service.NewMediaService(repository.NewFileRepository(conn), store, collector, service.MediaConfig{
			Bucket:       "media",
			Concurrency:  2,
			QuotaFree:    10 << 20,
			QuotaPremium: 100 << 20,
		}),
		auth:    service.NewAuthService(users, subs, email, "test-secret", time.Hour, false),
		uploads: uploads,
	}
	f.accounts = service.NewUserService(users, f.media, email, subs)

	f.user, err = f.auth.Signup(t.Context(), "marie@example.com", "horizon-marine-42")
	require.NoError(t, err)
	f.st = f.states.State(f.user)
	return f
}

// request builds an authenticated request carrying the fixture's session.
func (f *fixture) request(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	ctx := ctxkeys.WithUser(r.Context(), f.user)
	ctx = ctxkeys.WithState(ctx, f.st)
	return r.WithContext(ctx)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (f *fixture) addEvent(t *testing.T, h *EventHandler, title, start string) model.TimelineEvent {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Create(rec, f.request(http.MethodPost, "/api/events", map[string]string{
		"title":     title,
		"startDate": start,
		"category":  "family",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.TimelineEvent](t, rec)
}

func TestEventHandlerLifecycle(t *testing.T) {
	f := setup(t)
	h := NewEventHandler(f.timelines, f.media, 10)

	f.addEvent(t, h, "A", "2020-01-01")
	b := f.addEvent(t, h, "B", "2019-05-05")
	f.addEvent(t, h, "C", "2020-06-01")

	rec := httptest.NewRecorder()
	h.List(rec, f.request(http.MethodGet, "/api/events", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var titles []string
	for _, e := range decode[[]model.TimelineEvent](t, rec) {
		titles = append(titles, e.Title)
	}
	assert.Equal(t, []string{"B", "A", "C"}, titles)

	rec = httptest.NewRecorder()
	h.View(rec, f.request(http.MethodGet, "/api/events/view", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"years":[2019,2020]`)

	r := f.request(http.MethodDelete, "/api/events/"+b.ID, nil)
	r.SetPathValue("id", b.ID)
	rec = httptest.NewRecorder()
	h.Delete(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	r = f.request(http.MethodDelete, "/api/events/"+b.ID, nil)
	r.SetPathValue("id", b.ID)
	rec = httptest.NewRecorder()
	h.Delete(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code, "deleting twice is a no-op")

	r = f.request(http.MethodGet, "/api/events/"+b.ID, nil)
	r.SetPathValue("id", b.ID)
	rec = httptest.NewRecorder()
	h.Show(rec, r)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventHandlerValidation(t *testing.T) {
	f := setup(t)
	h := NewEventHandler(f.timelines, f.media, 10)

	rec := httptest.NewRecorder()
	h.Create(rec, f.request(http.MethodPost, "/api/events", map[string]string{
		"title":     "Vacances",
		"startDate": "2024-08-10",
		"endDate":   "2024-08-01",
		"category":  "travel",
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "endDate")

	rec = httptest.NewRecorder()
	h.Create(rec, f.request(http.MethodPost, "/api/events", map[string]any{"title": "x", "bogus": true}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	r := f.request(http.MethodPut, "/api/events/missing", map[string]string{
		"title":     "Vacances",
		"startDate": "2024-08-10",
		"category":  "travel",
	})
	r.SetPathValue("id", "missing")
	rec = httptest.NewRecorder()
	h.Update(rec, r)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := range 64 {
		for y := range 48 {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (f *fixture) multipart(t *testing.T, eventID string, files map[string][]byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := mw.CreateFormFile(mediaFormField, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/events/"+eventID+"/media", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.SetPathValue("id", eventID)
	ctx := ctxkeys.WithUser(r.Context(), f.user)
	return r.WithContext(ctxkeys.WithState(ctx, f.st))
}

func TestEventHandlerUploadMedia(t *testing.T) {
	f := setup(t)
	h := NewEventHandler(f.timelines, f.media, 10)
	event := f.addEvent(t, h, "Plage", "2023-07-14")

	rec := httptest.NewRecorder()
	h.UploadMedia(rec, f.multipart(t, event.ID, map[string][]byte{
		"plage.png": testPNG(t),
		"notes.txt": []byte("pas une image"),
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[mediaUploadResponse](t, rec)
	require.Len(t, resp.Event.Media, 1)
	assert.Equal(t, model.MediaTypePhoto, resp.Event.Media[0].Type)
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, "notes.txt", resp.Failed[0].Filename)

	rec = httptest.NewRecorder()
	h.UploadMedia(rec, f.multipart(t, "missing", map[string][]byte{"plage.png": testPNG(t)}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.UploadMedia(rec, f.multipart(t, event.ID, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestEventHandlerUploadTooManyFiles(t *testing.T) {
	f := setup(t)
	h := NewEventHandler(f.timelines, f.media, 1)
	event := f.addEvent(t, h, "Plage", "2023-07-14")

	rec := httptest.NewRecorder()
	h.UploadMedia(rec, f.multipart(t, event.ID, map[string][]byte{
		"a.png": testPNG(t),
		"b.png": testPNG(t),
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "at most 1")
}

func TestTimelineHandler(t *testing.T) {
	f := setup(t)
	h := NewTimelineHandler(f.timelines, f.media)

	rec := httptest.NewRecorder()
	h.Create(rec, f.request(http.MethodPost, "/api/timelines", map[string]string{"name": "Voyages"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.Timeline](t, rec)

	rec = httptest.NewRecorder()
	h.Create(rec, f.request(http.MethodPost, "/api/timelines", map[string]string{"name": "  "}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	h.List(rec, f.request(http.MethodGet, "/api/timelines?sort=name", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var names []string
	for _, s := range decode[[]struct{ Name string }](t, rec) {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"La famille", "Voyages"}, names)

	rec = httptest.NewRecorder()
	h.Select(rec, f.request(http.MethodPut, "/api/timelines/current", map[string]string{"id": created.ID}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Rename(rec, f.request(http.MethodPatch, "/api/timelines/current", map[string]string{"name": "Nos voyages"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"Nos voyages"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Select(rec, f.request(http.MethodPut, "/api/timelines/current", map[string]string{"id": "missing"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	r := f.request(http.MethodDelete, "/api/timelines/"+created.ID, nil)
	r.SetPathValue("id", created.ID)
	rec = httptest.NewRecorder()
	h.Delete(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	last := f.timelines.Timelines(f.st, "")[0].ID
	r = f.request(http.MethodDelete, "/api/timelines/"+last, nil)
	r.SetPathValue("id", last)
	rec = httptest.NewRecorder()
	h.Delete(rec, r)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// storedFiles counts the objects under the local upload root.
func (f *fixture) storedFiles(t *testing.T) []string {
	t.Helper()
	var paths []string
	err := filepath.WalkDir(f.uploads, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	require.NoError(t, err)
	return paths
}

func (f *fixture) upload(t *testing.T, h *EventHandler, eventID string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.UploadMedia(rec, f.multipart(t, eventID, map[string][]byte{"photo.png": testPNG(t)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestTimelineHandlerDeleteDiscardsMedia(t *testing.T) {
	f := setup(t)
	h := NewTimelineHandler(f.timelines, f.media)
	events := NewEventHandler(f.timelines, f.media, 10)

	family := f.addEvent(t, events, "Naissance", "2021-02-03")
	f.upload(t, events, family.ID)
	kept := f.storedFiles(t)
	require.NotEmpty(t, kept)

	rec := httptest.NewRecorder()
	h.Create(rec, f.request(http.MethodPost, "/api/timelines", map[string]string{"name": "Voyages"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	voyages := decode[model.Timeline](t, rec)

	rec = httptest.NewRecorder()
	h.Select(rec, f.request(http.MethodPut, "/api/timelines/current", map[string]string{"id": voyages.ID}))
	require.Equal(t, http.StatusOK, rec.Code)

	for _, title := range []string{"Rome", "Lisbonne"} {
		e := f.addEvent(t, events, title, "2022-04-01")
		f.upload(t, events, e.ID)
	}
	before, err := f.media.Usage(f.user)
	require.NoError(t, err)
	require.Greater(t, len(f.storedFiles(t)), len(kept))

	r := f.request(http.MethodDelete, "/api/timelines/"+voyages.ID, nil)
	r.SetPathValue("id", voyages.ID)
	rec = httptest.NewRecorder()
	h.Delete(rec, r)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.ElementsMatch(t, kept, f.storedFiles(t), "only the remaining timeline's media is left on disk")

	after, err := f.media.Usage(f.user)
	require.NoError(t, err)
	assert.Less(t, after.Used, before.Used)
	assert.Positive(t, after.Used, "media of other timelines is untouched")
}

func TestEventHandlerEvictedState(t *testing.T) {
	f := setup(t)
	h := NewEventHandler(f.timelines, f.media, 10)
	event := f.addEvent(t, h, "Plage", "2023-07-14")

	require.Equal(t, 1, f.states.Evict(-time.Second))

	rec := httptest.NewRecorder()
	h.Create(rec, f.request(http.MethodPost, "/api/events", map[string]string{
		"title":     "Perdu",
		"startDate": "2024-01-01",
		"category":  "family",
	}))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.UploadMedia(rec, f.multipart(t, event.ID, map[string][]byte{"plage.png": testPNG(t)}))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, f.storedFiles(t), "media uploaded into an expired state is discarded")
}

func TestSessionHandler(t *testing.T) {
	f := setup(t)
	h := NewSessionHandler(f.auth)

	r := f.request(http.MethodGet, "/api/session", nil)
	r = r.WithContext(ctxkeys.WithCSRFToken(r.Context(), "tok"))
	rec := httptest.NewRecorder()
	h.Show(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[sessionResponse](t, rec)
	assert.Equal(t, "marie@example.com", resp.User.Email)
	assert.False(t, resp.IsPremium)
	assert.False(t, resp.IsOnboarded)
	assert.Equal(t, "tok", resp.CSRFToken)
	assert.NotEmpty(t, resp.CurrentTimelineID)

	rec = httptest.NewRecorder()
	h.CompleteOnboarding(rec, f.request(http.MethodPost, "/api/session/onboarding", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, f.st.IsOnboarded())
}

func TestExportHandler(t *testing.T) {
	f := setup(t)
	h := NewExportHandler(service.NewExportService(f.timelines))

	rec := httptest.NewRecorder()
	h.Export(rec, f.request(http.MethodGet, "/api/export", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	f.user.SubscriptionStatus = model.SubscriptionStatusPremium
	f.st = f.states.State(f.user)

	rec = httptest.NewRecorder()
	h.Export(rec, f.request(http.MethodGet, "/api/export?format=html", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="la-famille.html"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))

	rec = httptest.NewRecorder()
	h.Export(rec, f.request(http.MethodGet, "/api/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountHandler(t *testing.T) {
	f := setup(t)
	h := NewAccountHandler(f.auth, f.accounts, f.media, f.states)

	rec := httptest.NewRecorder()
	h.Storage(rec, f.request(http.MethodGet, "/api/account/storage", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	usage := decode[service.StorageUsage](t, rec)
	assert.Equal(t, int64(10<<20), usage.Quota)
	assert.Zero(t, usage.Used)

	rec = httptest.NewRecorder()
	h.ChangePassword(rec, f.request(http.MethodPut, "/api/account/password", map[string]string{
		"currentPassword": "wrong-password-1",
		"newPassword":     "falaise-ocre-77",
	}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ChangePassword(rec, f.request(http.MethodPut, "/api/account/password", map[string]string{
		"currentPassword": "horizon-marine-42",
		"newPassword":     "falaise-ocre-77",
	}))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.DeleteAccount(rec, f.request(http.MethodDelete, "/api/account", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, f.states.Len())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, service.AuthCookieName, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)

	_, err := f.users.ByID(f.user.ID)
	assert.Error(t, err)
}

func TestBillingHandlerUnavailable(t *testing.T) {
	f := setup(t)
	h := NewBillingHandler(nil)

	rec := httptest.NewRecorder()
	h.CreateCheckout(rec, f.request(http.MethodPost, "/api/billing/checkout", map[string]string{"interval": "yearly"}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.Webhook(rec, httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader("{}")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type stubVerifier struct {
	email string
}

func (v stubVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	if token != "valid" {
		return "", service.ErrInvalidToken
	}
	return v.email, nil
}

func anonymous(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestAuthHandlerSignupAndLogin(t *testing.T) {
	f := setup(t)
	h := NewAuthHandler(f.auth, f.accounts, nil, f.states, &config.Config{AppURL: "http://localhost:8090"})

	rec := httptest.NewRecorder()
	h.Signup(rec, anonymous(http.MethodPost, "/auth/signup", credentials{Email: "Paul@Example.com", Password: "horizon-marine-42"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[authResponse](t, rec)
	assert.Equal(t, "paul@example.com", resp.User.Email)
	assert.Equal(t, model.SubscriptionStatusFree, resp.User.SubscriptionStatus)
	assert.NotEmpty(t, resp.Token)
	assert.False(t, resp.IsOnboarded)
	require.NotEmpty(t, rec.Result().Cookies())
	assert.Equal(t, service.AuthCookieName, rec.Result().Cookies()[0].Name)
	assert.Equal(t, 2, f.states.Len())

	rec = httptest.NewRecorder()
	h.Signup(rec, anonymous(http.MethodPost, "/auth/signup", credentials{Email: "paul@example.com", Password: "horizon-marine-42"}))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, anonymous(http.MethodPost, "/auth/login", credentials{Email: "paul@example.com", Password: "wrong-password-9"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, anonymous(http.MethodPost, "/auth/login", credentials{Email: "paul@example.com", Password: "horizon-marine-42"}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHandlerSupabase(t *testing.T) {
	f := setup(t)
	cfg := &config.Config{AppURL: "http://localhost:8090"}

	rec := httptest.NewRecorder()
	NewAuthHandler(f.auth, f.accounts, nil, f.states, cfg).
		Supabase(rec, anonymous(http.MethodPost, "/auth/supabase", map[string]string{"accessToken": "valid"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h := NewAuthHandler(f.auth, f.accounts, stubVerifier{email: "lea@example.com"}, f.states, cfg)

	rec = httptest.NewRecorder()
	h.Supabase(rec, anonymous(http.MethodPost, "/auth/supabase", map[string]string{"accessToken": "expired"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Supabase(rec, anonymous(http.MethodPost, "/auth/supabase", map[string]string{"accessToken": "valid"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "lea@example.com", decode[authResponse](t, rec).User.Email)
}

func TestAuthHandlerGoogleDisabled(t *testing.T) {
	f := setup(t)
	h := NewAuthHandler(f.auth, f.accounts, nil, f.states, &config.Config{AppURL: "http://localhost:8090"})

	rec := httptest.NewRecorder()
	h.GoogleAuth(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.GoogleCallback(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=x&code=y", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing state cookie")
}

func TestLegalHandler(t *testing.T) {
	legal := service.NewLegalService(filepath.Join("..", "..", "content"), false)
	require.NoError(t, legal.LoadPages())
	h := NewLegalHandler(legal)

	r := httptest.NewRequest(http.MethodGet, "/legal/cgu", nil)
	r.SetPathValue("page", "cgu")
	rec := httptest.NewRecorder()
	h.ShowPage(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Conditions générales")

	r = httptest.NewRequest(http.MethodGet, "/legal/nope", nil)
	r.SetPathValue("page", "nope")
	rec = httptest.NewRecorder()
	h.ShowPage(rec, r)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
