package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lineaapp/linea/internal/render"
	"github.com/lineaapp/linea/internal/service"
)

type ExportHandler struct {
	exportService *service.ExportService
}

func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// Export downloads the current timeline. ?format=markdown|html
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	user, st := session(r)

	export, err := h.exportService.Export(st, r.URL.Query().Get("format"))
	if err != nil {
		mappings := append([]render.Mapping{
			{Err: service.ErrFeatureRequiresPremium, Status: http.StatusForbidden},
			{Err: service.ErrUnknownExportFormat, Status: http.StatusBadRequest},
		}, timelineErrors...)
		render.FromError(w, r, err, mappings...)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Body)))
	w.WriteHeader(http.StatusOK)

	_, err = w.Write(export.Body)
	if err != nil {
		slog.Warn("failed to write export", "error", err, "user_id", user.ID)
	}
}
