package routes

import (
	"net/http"
	"time"

	"github.com/lineaapp/linea/internal/app"
	"github.com/lineaapp/linea/internal/config"
	"github.com/lineaapp/linea/internal/handler"
	"github.com/lineaapp/linea/internal/middleware"
	"github.com/lineaapp/linea/internal/render"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

func SetupRoutes(app *app.App) http.Handler {
	cfg := app.Cfg

	// Handlers
	health := handler.NewHealthHandler(app.DB)
	legal := handler.NewLegalHandler(app.LegalService)
	auth := handler.NewAuthHandler(app.AuthService, app.UserService, app.TokenVerifier, app.States, cfg)
	session := handler.NewSessionHandler(app.AuthService)
	timelines := handler.NewTimelineHandler(app.TimelineService, app.MediaService)
	events := handler.NewEventHandler(app.TimelineService, app.MediaService, cfg.UploadMaxFiles)
	account := handler.NewAccountHandler(app.AuthService, app.UserService, app.MediaService, app.States)
	export := handler.NewExportHandler(app.ExportService)
	billing := handler.NewBillingHandler(app.PaymentService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Check)
	mux.Handle("GET /metrics", app.Metrics.Handler())
	mux.HandleFunc("GET /legal/{page}", legal.ShowPage)

	// Media written by local storage
	if cfg.StorageProvider == config.StorageProviderLocal {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.LocalStoragePath))))
	}

	// Auth (rate limited)
	rateLimiter := middleware.NewRateLimiter(authRateLimit, authRateWindow)
	go rateLimiter.Run(authRateWindow, app.Done())
	limit := middleware.Limit(rateLimiter)

	mux.HandleFunc("POST /auth/signup", limit(middleware.RequireGuest(auth.Signup)))
	mux.HandleFunc("POST /auth/login", limit(middleware.RequireGuest(auth.Login)))
	mux.HandleFunc("POST /auth/supabase", limit(auth.Supabase))
	mux.HandleFunc("GET /auth/google", limit(middleware.RequireGuest(auth.GoogleAuth)))
	mux.HandleFunc("GET /auth/google/callback", limit(auth.GoogleCallback))
	mux.HandleFunc("POST /auth/logout", auth.Logout)

	// ============================================================================
	// PROTECTED ROUTES (/api/*)
	// ============================================================================

	// Session
	mux.HandleFunc("GET /api/session", middleware.RequireAuth(session.Show))
	mux.HandleFunc("POST /api/session/onboarding", middleware.RequireAuth(session.CompleteOnboarding))

	// Timelines
	mux.HandleFunc("GET /api/timelines", middleware.RequireAuth(timelines.List))
	mux.HandleFunc("POST /api/timelines", middleware.RequireAuth(timelines.Create))
	mux.HandleFunc("PUT /api/timelines/current", middleware.RequireAuth(timelines.Select))
	mux.HandleFunc("PATCH /api/timelines/current", middleware.RequireAuth(timelines.Rename))
	mux.HandleFunc("DELETE /api/timelines/{id}", middleware.RequireAuth(timelines.Delete))

	// Events
	mux.HandleFunc("GET /api/events", middleware.RequireAuth(events.List))
	mux.HandleFunc("GET /api/events/view", middleware.RequireAuth(events.View))
	mux.HandleFunc("GET /api/events/{id}", middleware.RequireAuth(events.Show))
	mux.HandleFunc("POST /api/events", middleware.RequireAuth(events.Create))
	mux.HandleFunc("PUT /api/events/{id}", middleware.RequireAuth(events.Update))
	mux.HandleFunc("DELETE /api/events/{id}", middleware.RequireAuth(events.Delete))
	mux.HandleFunc("POST /api/events/{id}/media", middleware.RequireAuth(events.UploadMedia))

	// Account
	mux.HandleFunc("GET /api/account/storage", middleware.RequireAuth(account.Storage))
	mux.HandleFunc("PUT /api/account/password", middleware.RequireAuth(account.ChangePassword))
	mux.HandleFunc("DELETE /api/account", middleware.RequireAuth(account.DeleteAccount))

	// Export (premium)
	mux.HandleFunc("GET /api/export", middleware.RequireAuth(export.Export))

	// Billing
	mux.HandleFunc("POST /api/billing/checkout", middleware.RequireAuth(billing.CreateCheckout))
	mux.HandleFunc("GET /api/billing/portal", middleware.RequireAuth(billing.CustomerPortal))

	// ============================================================================
	// WEBHOOKS
	// ============================================================================

	mux.HandleFunc("POST /webhooks/payment", billing.Webhook)

	// ============================================================================
	// FALLBACK
	// ============================================================================

	mux.HandleFunc("/{path...}", func(w http.ResponseWriter, r *http.Request) {
		render.Error(w, http.StatusNotFound, "not found")
	})

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.Recovery,
		middleware.RequestLogging,
		middleware.SecurityHeaders(cfg.IsProduction()),
		middleware.CORS(cfg.AllowedOrigins()),
		middleware.AuthMiddleware(app.AuthService, app.UserService, app.States),
		middleware.CSRFProtection(cfg.IsProduction()),
		middleware.Metrics(app.Metrics), // innermost: r.Pattern is set on this request
	)
}
