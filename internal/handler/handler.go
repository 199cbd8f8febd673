// Package handler exposes the services over a JSON HTTP API.
package handler

import (
	"net/http"

	"github.com/lineaapp/linea/internal/ctxkeys"
	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/render"
	"github.com/lineaapp/linea/internal/service"
	"github.com/lineaapp/linea/internal/state"
	"github.com/lineaapp/linea/internal/timeline"
)

// timelineErrors maps timeline and event failures to statuses.
var timelineErrors = []render.Mapping{
	{Err: service.ErrEventNotFound, Status: http.StatusNotFound},
	{Err: timeline.ErrTimelineNotFound, Status: http.StatusNotFound},
	{Err: timeline.ErrNoCurrentTimeline, Status: http.StatusConflict},
	{Err: service.ErrLastTimeline, Status: http.StatusConflict},
	{Err: state.ErrEvicted, Status: http.StatusConflict},
}

// session returns the authenticated user and their state. Routes reaching
// it are wrapped in RequireAuth.
func session(r *http.Request) (*model.User, *state.AppState) {
	return ctxkeys.User(r.Context()), ctxkeys.State(r.Context())
}
