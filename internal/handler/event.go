package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/render"
	"github.com/lineaapp/linea/internal/service"
	"github.com/lineaapp/linea/internal/state"
	"github.com/lineaapp/linea/internal/validation"
)

const (
	mediaFormField    = "files"
	multipartMemory   = 32 << 20
	multipartOverhead = 1 << 20
)

type mediaUploadResponse struct {
	Event  model.TimelineEvent     `json:"event"`
	Failed []service.UploadFailure `json:"failed"`
}

type EventHandler struct {
	timelineService *service.TimelineService
	mediaService    *service.MediaService
	maxFiles        int
}

func NewEventHandler(timelineService *service.TimelineService, mediaService *service.MediaService, maxFiles int) *EventHandler {
	return &EventHandler{
		timelineService: timelineService,
		mediaService:    mediaService,
		maxFiles:        maxFiles,
	}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	_, st := session(r)

	events, err := h.timelineService.Events(st)
	if err != nil {
		render.FromError(w, r, err, timelineErrors...)
		return
	}
	render.OK(w, events)
}

// View returns the events grouped by year.
func (h *EventHandler) View(w http.ResponseWriter, r *http.Request) {
	_, st := session(r)

	view, err := h.timelineService.View(st)
	if err != nil {
		render.FromError(w, r, err, timelineErrors...)
		return
	}
	render.OK(w, view)
}

func (h *EventHandler) Show(w http.ResponseWriter, r *http.Request) {
	_, st := session(r)

	detail, err := h.timelineService.Event(st, r.PathValue("id"))
	if err != nil {
		render.FromError(w, r, err, timelineErrors...)
		return
	}
	render.OK(w, detail)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	_, st := session(r)

	var in service.EventInput
	err := render.Decode(w, r, &in)
	if err != nil {
		render.FromError(w, r, err)
		return
	}

	event, err := h.timelineService.AddEvent(st, in)
	if err != nil {
		render.FromError(w, r, err, timelineErrors...)
		return
	}
	render.Created(w, event)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, st := session(r)

	var in service.EventInput
	err := render.Decode(w, r, &in)
	if err != nil {
		render.FromError(w, r, err)
		return
	}

	event, err := h.timelineService.UpdateEvent(st, r.PathValue("id"), in)
	if err != nil {
		render.FromError(w, r, err, timelineErrors...)
		return
	}
	render.OK(w, event)
}

// Delete answers 204 whether or not the event existed.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, st := session(r)
	id := r.PathValue("id")

	removed, err := h.timelineService.DeleteEvent(st, id)
	if err != nil {
		render.FromError(w, r, err, timelineErrors...)
		return
	}

	if removed {
		err = h.mediaService.DiscardEvent(context.WithoutCancel(r.Context()), user.ID, id)
		if err != nil {
			slog.Warn("failed to discard event media", "error", err, "user_id", user.ID, "event_id", id)
		}
	}
	render.NoContent(w)
}

// UploadMedia stores the multipart "files" and attaches the successful
// ones to the event. Per-file failures are listed in the response.
func (h *EventHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	user, st := session(r)
	id := r.PathValue("id")

	if !h.timelineService.EventExists(st, id) {
		render.Error(w, http.StatusNotFound, service.ErrEventNotFound.Error())
		return
	}

	uploads, err := h.readUploads(w, r)
	if err != nil {
		render.FromError(w, r, err)
		return
	}

	result, err := h.mediaService.Upload(r.Context(), user, id, uploads)
	if err != nil {
		render.FromError(w, r, err)
		return
	}

	event, err := h.timelineService.AttachMedia(st, id, result.Media)
	lost := errors.Is(err, service.ErrEventNotFound) || errors.Is(err, state.ErrEvicted)
	if lost && len(result.Media) > 0 {
		// Deleted or expired while uploading.
		discardErr := h.mediaService.DiscardEvent(context.WithoutCancel(r.Context()), user.ID, id)
		if discardErr != nil {
			slog.Warn("failed to discard orphaned media", "error", discardErr, "event_id", id)
		}
	}
	if err != nil {
		render.FromError(w, r, err, timelineErrors...)
		return
	}

	render.OK(w, mediaUploadResponse{Event: event, Failed: result.Failed})
}

func (h *EventHandler) readUploads(w http.ResponseWriter, r *http.Request) ([]service.MediaUpload, error) {
	maxSize := validation.MaxMediaSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	err := r.ParseMultipartForm(multipartMemory)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, validation.FieldError(mediaFormField, fmt.Sprintf("request must not exceed %d MB", maxErr.Limit>>20))
		}
		return nil, validation.FieldError(mediaFormField, "expected a multipart form")
	}
	defer func() {
		removeErr := r.MultipartForm.RemoveAll()
		if removeErr != nil {
			slog.Warn("failed to remove multipart temp files", "error", removeErr)
		}
	}()

	headers := r.MultipartForm.File[mediaFormField]
	if len(headers) == 0 {
		return nil, validation.FieldError(mediaFormField, "is required")
	}
	if h.maxFiles > 0 && len(headers) > h.maxFiles {
		return nil, validation.FieldError(mediaFormField, fmt.Sprintf("at most %d files per upload", h.maxFiles))
	}

	uploads := make([]service.MediaUpload, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh, maxSize)
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, service.MediaUpload{Filename: fh.Filename, Data: data})
	}
	return uploads, nil
}

// readPart reads at most limit+1 bytes so oversize files are still
// detected as too large.
func readPart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, limit+1))
}
