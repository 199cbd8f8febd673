package handler

import (
	"net/http"

	"github.com/lineaapp/linea/internal/render"
	"github.com/lineaapp/linea/internal/service"
)

type LegalHandler struct {
	legalService *service.LegalService
}

func NewLegalHandler(legalService *service.LegalService) *LegalHandler {
	return &LegalHandler{legalService: legalService}
}

func (h *LegalHandler) ShowPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.legalService.Page(r.PathValue("page"))
	if err != nil {
		render.FromError(w, r, err, render.Mapping{Err: service.ErrPageNotFound, Status: http.StatusNotFound})
		return
	}
	render.OK(w, page)
}
