package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lineaapp/linea/internal/render"
	"github.com/lineaapp/linea/internal/service"
)

type timelineNameInput struct {
	Name string `json:"name"`
}

type TimelineHandler struct {
	timelineService *service.TimelineService
	mediaService    *service.MediaService
}

func NewTimelineHandler(timelineService *service.TimelineService, mediaService *service.MediaService) *TimelineHandler {
	return &TimelineHandler{
		timelineService: timelineService,
		mediaService:    mediaService,
	}
}

// List accepts ?sort=name for French alphabetical order; creation order
// otherwise.
func (h *TimelineHandler) List(w http.ResponseWriter, r *http.Request) {
	_, st := session(r)
	render.OK(w, h.timelineService.Timelines(st, r.URL.Query().Get("sort")))
}

func (h *TimelineHandler) Create(w http.ResponseWriter, r *http.Request) {
	_, st := session(r)

	var in timelineNameInput
	err := render.Decode(w, r, &in)
	if err != nil {
		render.FromError(w, r, err)
		return
	}

	tl, err := h.timelineService.CreateTimeline(st, in.Name)
	if err != nil {
		render.FromError(w, r, err, timelineErrors...)
		return
	}
	render.Created(w, tl)
}

// Delete removes the timeline and the media of every event it held.
func (h *TimelineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, st := session(r)

	eventIDs, err := h.timelineService.DeleteTimeline(st, r.PathValue("id"))
	if err != nil {
		render.FromError(w, r, err, timelineErrors...)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	for _, id := range eventIDs {
		err = h.mediaService.DiscardEvent(ctx, user.ID, id)
		if err != nil {
			slog.Warn("failed to discard event media", "error", err, "user_id", user.ID, "event_id", id)
		}
	}
	render.NoContent(w)
}

// Select makes the timeline with the given id current.
func (h *TimelineHandler) Select(w http.ResponseWriter, r *http.Request) {
	_, st := session(r)

	var in struct {
		ID string `json:"id"`
	}
	err := render.Decode(w, r, &in)
	if err != nil {
		render.FromError(w, r, err)
		return
	}

	tl, err := h.timelineService.SelectTimeline(st, in.ID)
	if err != nil {
		render.FromError(w, r, err, timelineErrors...)
		return
	}
	render.OK(w, tl)
}

func (h *TimelineHandler) Rename(w http.ResponseWriter, r *http.Request) {
	_, st := session(r)

	var in timelineNameInput
	err := render.Decode(w, r, &in)
	if err != nil {
		render.FromError(w, r, err)
		return
	}

	name, err := h.timelineService.RenameCurrent(st, in.Name)
	if err != nil {
		render.FromError(w, r, err, timelineErrors...)
		return
	}
	render.OK(w, timelineNameInput{Name: name})
}
