package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lineaapp/linea/internal/config"
	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/render"
	"github.com/lineaapp/linea/internal/service"
	"github.com/lineaapp/linea/internal/state"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateCookie   = "oauth_state"
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	clientTimelinePath = "/timeline"
	clientOnboardPath  = "/onboarding"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User        *model.User `json:"user"`
	Token       string      `json:"token"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	IsOnboarded bool        `json:"isOnboarded"`
}

type AuthHandler struct {
	authService       *service.AuthService
	userService       *service.UserService
	tokenVerifier     service.TokenVerifier
	states            *state.Manager
	googleOAuthConfig *oauth2.Config
	googleUserInfoURL string
	appURL            string
	isProduction      bool
}

// NewAuthHandler wires the login flows. tokenVerifier may be nil when
// Supabase is not configured.
func NewAuthHandler(authService *service.AuthService, userService *service.UserService, tokenVerifier service.TokenVerifier, states *state.Manager, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		userService:   userService,
		tokenVerifier: tokenVerifier,
		states:        states,
		googleOAuthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/google/callback",
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email"},
			Endpoint:     google.Endpoint,
		},
		googleUserInfoURL: googleUserInfoURL,
		appURL:            strings.TrimSuffix(cfg.AppURL, "/"),
		isProduction:      cfg.IsProduction(),
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in credentials
	err := render.Decode(w, r, &in)
	if err != nil {
		render.FromError(w, r, err)
		return
	}

	user, err := h.authService.Signup(r.Context(), in.Email, in.Password)
	if err != nil {
		render.FromError(w, r, err,
			render.Mapping{Err: service.ErrEmailAlreadyExists, Status: http.StatusConflict, Message: "an account already exists for this email"},
		)
		return
	}

	h.startSession(w, r, user, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	err := render.Decode(w, r, &in)
	if err != nil {
		render.FromError(w, r, err)
		return
	}

	user, err := h.authService.Login(in.Email, in.Password)
	if err != nil {
		render.FromError(w, r, err,
			render.Mapping{Err: service.ErrInvalidCredentials, Status: http.StatusUnauthorized},
			render.Mapping{Err: service.ErrPasswordlessLogin, Status: http.StatusUnauthorized},
		)
		return
	}

	slog.Info("user logged in", "user_id", user.ID)
	h.startSession(w, r, user, http.StatusOK)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	render.NoContent(w)
}

// Supabase exchanges a Supabase access token for a session.
func (h *AuthHandler) Supabase(w http.ResponseWriter, r *http.Request) {
	if h.tokenVerifier == nil {
		render.Error(w, http.StatusNotFound, "supabase login is not enabled")
		return
	}

	var in struct {
		AccessToken string `json:"accessToken"`
	}
	err := render.Decode(w, r, &in)
	if err != nil {
		render.FromError(w, r, err)
		return
	}

	email, err := h.tokenVerifier.VerifyToken(r.Context(), in.AccessToken)
	if err != nil {
		slog.Warn("supabase token rejected", "error", err)
		render.Error(w, http.StatusUnauthorized, "invalid access token")
		return
	}

	user, err := h.authService.AuthenticateOAuth(r.Context(), email, service.AuthProviderSupabase)
	if err != nil {
		render.FromError(w, r, err,
			render.Mapping{Err: service.ErrInvalidEmail, Status: http.StatusUnauthorized},
		)
		return
	}

	h.startSession(w, r, user, http.StatusOK)
}

// GoogleAuth redirects to the Google consent screen.
func (h *AuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	if h.googleOAuthConfig.ClientID == "" {
		render.Error(w, http.StatusNotFound, "google login is not enabled")
		return
	}

	oauthState := generateOAuthState()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    oauthState,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	http.Redirect(w, r, h.googleOAuthConfig.AuthCodeURL(oauthState), http.StatusTemporaryRedirect)
}

// GoogleCallback finishes the OAuth flow and sends the browser back to the
// client app.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	oauthState := r.URL.Query().Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || oauthState == "" || cookie.Value != oauthState {
		slog.Warn("google oauth state validation failed", "error", err)
		render.Error(w, http.StatusBadRequest, "oauth authentication failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("google oauth callback missing code")
		render.Error(w, http.StatusBadRequest, "oauth authentication failed")
		return
	}

	token, err := h.googleOAuthConfig.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("google oauth token exchange failed", "error", err)
		render.Error(w, http.StatusBadGateway, "oauth authentication failed")
		return
	}

	resp, err := h.googleOAuthConfig.Client(r.Context(), token).Get(h.googleUserInfoURL)
	if err != nil {
		slog.Error("failed to get google user info", "error", err)
		render.Error(w, http.StatusBadGateway, "oauth authentication failed")
		return
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	var userInfo struct {
		Email string `json:"email"`
	}
	err = json.NewDecoder(resp.Body).Decode(&userInfo)
	if err != nil {
		slog.Error("failed to decode google user info", "error", err)
		render.Error(w, http.StatusBadGateway, "oauth authentication failed")
		return
	}

	user, err := h.authService.AuthenticateOAuth(r.Context(), userInfo.Email, service.AuthProviderGoogle)
	if err != nil {
		slog.Error("oauth authentication failed", "error", err)
		render.Error(w, http.StatusUnauthorized, "oauth authentication failed")
		return
	}

	jwtToken, expiry, err := h.authService.GenerateJWT(user)
	if err != nil {
		render.FromError(w, r, err)
		return
	}
	h.authService.SetJWTCookie(w, jwtToken, expiry)

	slog.Info("user logged in with google oauth", "user_id", user.ID)

	target := clientTimelinePath
	if !user.IsOnboarded() {
		target = clientOnboardPath
	}
	http.Redirect(w, r, h.appURL+target, http.StatusSeeOther)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User, status int) {
	token, expiry, err := h.authService.GenerateJWT(user)
	if err != nil {
		render.FromError(w, r, err)
		return
	}
	h.authService.SetJWTCookie(w, token, expiry)

	// Reload for the subscription tier.
	full, err := h.userService.ByID(user.ID)
	if err != nil {
		render.FromError(w, r, err)
		return
	}
	full.PasswordHash = nil
	st := h.states.State(full)

	render.JSON(w, status, authResponse{
		User:        full,
		Token:       token,
		ExpiresAt:   expiry,
		IsOnboarded: st.IsOnboarded(),
	})
}

func generateOAuthState() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
