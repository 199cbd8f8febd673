package handler

import (
	"log/slog"
	"net/http"

	"github.com/lineaapp/linea/internal/render"
	"github.com/lineaapp/linea/internal/service"
	"github.com/lineaapp/linea/internal/state"
)

type AccountHandler struct {
	authService  *service.AuthService
	userService  *service.UserService
	mediaService *service.MediaService
	states       *state.Manager
}

func NewAccountHandler(authService *service.AuthService, userService *service.UserService, mediaService *service.MediaService, states *state.Manager) *AccountHandler {
	return &AccountHandler{
		authService:  authService,
		userService:  userService,
		mediaService: mediaService,
		states:       states,
	}
}

func (h *AccountHandler) Storage(w http.ResponseWriter, r *http.Request) {
	user, _ := session(r)

	usage, err := h.mediaService.Usage(user)
	if err != nil {
		render.FromError(w, r, err)
		return
	}
	render.OK(w, usage)
}

func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := session(r)

	var in struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	err := render.Decode(w, r, &in)
	if err != nil {
		render.FromError(w, r, err)
		return
	}

	err = h.userService.UpdatePassword(user.ID, in.CurrentPassword, in.NewPassword)
	if err != nil {
		render.FromError(w, r, err,
			render.Mapping{Err: service.ErrInvalidCurrentPassword, Status: http.StatusUnauthorized},
			render.Mapping{Err: service.ErrNoPassword, Status: http.StatusConflict},
		)
		return
	}

	slog.Info("password updated", "user_id", user.ID)
	render.NoContent(w)
}

// DeleteAccount removes the user, their files and their in-memory
// timelines, then ends the session.
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := session(r)

	err := h.userService.DeleteAccount(r.Context(), user.ID)
	if err != nil {
		render.FromError(w, r, err, render.Mapping{
			Err:     service.ErrActiveSubscription,
			Status:  http.StatusConflict,
			Message: "Résiliez votre abonnement avant de supprimer votre compte",
		})
		return
	}

	h.states.Drop(user.ID)
	h.authService.ClearJWTCookie(w)

	slog.Info("account deleted", "user_id", user.ID)
	render.NoContent(w)
}
