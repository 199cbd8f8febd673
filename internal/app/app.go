package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lineaapp/linea/internal/config"
	"github.com/lineaapp/linea/internal/db"
	"github.com/lineaapp/linea/internal/metrics"
	"github.com/lineaapp/linea/internal/repository"
	"github.com/lineaapp/linea/internal/service"
	"github.com/lineaapp/linea/internal/service/payment"
	"github.com/lineaapp/linea/internal/state"
	"github.com/lineaapp/linea/internal/storage"
	"github.com/lineaapp/linea/internal/validation"
)

type App struct {
	Cfg                 *config.Config
	DB                  *sqlx.DB
	Metrics             *metrics.Collector
	States              *state.Manager
	Storage             storage.Storage
	AuthService         *service.AuthService
	UserService         *service.UserService
	EmailService        *service.EmailService
	MediaService        *service.MediaService
	TimelineService     *service.TimelineService
	ExportService       *service.ExportService
	SubscriptionService *service.SubscriptionService
	PaymentService      payment.Provider
	TokenVerifier       service.TokenVerifier
	LegalService        *service.LegalService

	done      chan struct{}
	closeOnce sync.Once
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	fileRepository := repository.NewFileRepository(database)
	subscriptionRepository := repository.NewSubscriptionRepository(database)

	collector := metrics.NewCollector("linea")

	fileStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	mediaService := service.NewMediaService(fileRepository, fileStorage, collector, service.MediaConfig{
		Bucket:       storage.Bucket(cfg),
		Concurrency:  cfg.UploadConcurrency,
		QuotaFree:    cfg.StorageQuotaFree,
		QuotaPremium: cfg.StorageQuotaPremium,
	})

	// Media outlives the in-memory timelines, so whatever a user stored
	// before their current state was created is unreachable.
	discardOrphans := func(userID string, cutoff time.Time) {
		go func() {
			err := mediaService.DiscardBefore(context.Background(), userID, cutoff)
			if err != nil {
				slog.Warn("failed to discard orphaned media", "error", err, "user_id", userID)
			}
		}()
	}

	// In-memory timelines, one state per signed-in user
	states := state.NewManager(state.Options{
		DefaultTimelineName: cfg.DefaultTimelineName,
		DemoEvents:          cfg.DemoEvents,
		IdleTTL:             cfg.SessionIdleTTL,
		OnSizeChange:        collector.SetActiveSessions,
		OnCreate:            discardOrphans,
		OnEvict:             discardOrphans,
	})

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	subscriptionService := service.NewSubscriptionService(subscriptionRepository)
	timelineService := service.NewTimelineService(validation.New(), collector)
	exportService := service.NewExportService(timelineService)
	authService := service.NewAuthService(
		userRepository,
		subscriptionService,
		emailService,
		cfg.JWTSecret,
		cfg.JWTExpiry,
		cfg.IsProduction(),
	)
	userService := service.NewUserService(userRepository, mediaService, emailService, subscriptionService)
	legalService := service.NewLegalService(cfg.ContentPath, cfg.IsDevelopment())

	err = legalService.LoadPages()
	if err != nil {
		slog.Warn("failed to load legal pages", "error", err)
	}

	onActivated := func(userID string) {
		user, err := userRepository.ByID(userID)
		if err != nil {
			slog.Warn("premium activated for unknown user", "error", err, "user_id", userID)
			return
		}
		err = emailService.SendPremiumEmail(context.Background(), user.Email)
		if err != nil {
			slog.Warn("failed to send premium email", "error", err, "user_id", userID)
		}
	}

	paymentProvider, err := payment.NewProvider(cfg, subscriptionService, onActivated)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize payment provider: %w", err)
	}

	var tokenVerifier service.TokenVerifier
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		supabaseAuth, err := service.NewSupabaseAuth(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize supabase auth: %w", err)
		}
		tokenVerifier = supabaseAuth
	}

	return &App{
		Cfg:                 cfg,
		DB:                  database,
		Metrics:             collector,
		States:              states,
		Storage:             fileStorage,
		AuthService:         authService,
		UserService:         userService,
		EmailService:        emailService,
		MediaService:        mediaService,
		TimelineService:     timelineService,
		ExportService:       exportService,
		SubscriptionService: subscriptionService,
		PaymentService:      paymentProvider,
		TokenVerifier:       tokenVerifier,
		LegalService:        legalService,
		done:                make(chan struct{}),
	}, nil
}

// Done is closed when the app shuts down. Background loops stop on it.
func (a *App) Done() <-chan struct{} {
	return a.done
}

func (a *App) Close() error {
	a.closeOnce.Do(func() { close(a.done) })
	if a.States != nil {
		a.States.Close()
	}
	if a.DB != nil {
		return db.Close(a.DB)
	}
	return nil
}
