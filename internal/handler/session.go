package handler

import (
	"net/http"

	"github.com/lineaapp/linea/internal/ctxkeys"
	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/render"
	"github.com/lineaapp/linea/internal/service"
	"github.com/lineaapp/linea/internal/timeline"
)

type sessionResponse struct {
	User              *model.User `json:"user"`
	IsPremium         bool        `json:"isPremium"`
	IsOnboarded       bool        `json:"isOnboarded"`
	CurrentTimelineID string      `json:"currentTimelineId"`
	CSRFToken         string      `json:"csrfToken"`
}

type SessionHandler struct {
	authService *service.AuthService
}

func NewSessionHandler(authService *service.AuthService) *SessionHandler {
	return &SessionHandler{authService: authService}
}

func (h *SessionHandler) Show(w http.ResponseWriter, r *http.Request) {
	_, st := session(r)

	var currentID string
	st.Read(func(reg *timeline.Registry) {
		currentID = reg.CurrentTimelineID()
	})

	render.OK(w, sessionResponse{
		User:              st.User(),
		IsPremium:         st.IsPremium(),
		IsOnboarded:       st.IsOnboarded(),
		CurrentTimelineID: currentID,
		CSRFToken:         ctxkeys.CSRFToken(r.Context()),
	})
}

func (h *SessionHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	user, st := session(r)

	_, err := h.authService.CompleteOnboarding(user.ID)
	if err != nil {
		render.FromError(w, r, err)
		return
	}
	st.SetOnboarded(true)

	render.NoContent(w)
}
