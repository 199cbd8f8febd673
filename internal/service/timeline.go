package service

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lineaapp/linea/internal/metrics"
	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/state"
	"github.com/lineaapp/linea/internal/timeline"
	"github.com/lineaapp/linea/internal/validation"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrLastTimeline  = errors.New("cannot delete the last timeline")
)

const (
	SortByCreation = "created"
	SortByName     = "name"
)

// EventInput is an event as sent by the client.
type EventInput struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	StartDate   string `json:"startDate" validate:"required,date"`
	EndDate     string `json:"endDate,omitempty" validate:"omitempty,date"`
	Category    string `json:"category" validate:"required,category"`
	Description string `json:"description,omitempty" validate:"max=5000"`
}

type EventDetail struct {
	Event    model.TimelineEvent `json:"event"`
	Position timeline.Adjacency  `json:"position"`
}

// TimelineService applies validated operations to a user's timelines.
type TimelineService struct {
	validator *validation.Validator
	metrics   *metrics.Collector
	now       func() time.Time
}

func NewTimelineService(v *validation.Validator, m *metrics.Collector) *TimelineService {
	return &TimelineService{validator: v, metrics: m, now: time.Now}
}

func (s *TimelineService) Timelines(st *state.AppState, sortBy string) []timeline.Summary {
	var out []timeline.Summary
	st.Read(func(reg *timeline.Registry) {
		out = reg.Timelines()
	})
	if sortBy == SortByName {
		timeline.SortSummariesByName(out)
	}
	return out
}

func (s *TimelineService) CreateTimeline(st *state.AppState, name string) (model.Timeline, error) {
	err := validation.ValidateTimelineName(name)
	if err != nil {
		return model.Timeline{}, validation.FieldError("name", err.Error())
	}

	var tl model.Timeline
	_ = st.Update(func(reg *timeline.Registry) error {
		tl = reg.AddTimeline(strings.TrimSpace(name))
		return nil
	})

	s.metrics.TimelineOperation("create")
	slog.Debug("timeline created", "timeline_id", tl.ID)
	return tl, nil
}

// DeleteTimeline refuses to remove the only timeline left. It returns the
// ids of the events that went with the timeline so their media can be
// discarded.
func (s *TimelineService) DeleteTimeline(st *state.AppState, id string) ([]string, error) {
	var eventIDs []string
	err := st.Update(func(reg *timeline.Registry) error {
		tl, ok := reg.Timeline(id)
		if !ok {
			return timeline.ErrTimelineNotFound
		}
		if reg.Len() == 1 {
			return ErrLastTimeline
		}
		for _, e := range tl.Events {
			eventIDs = append(eventIDs, e.ID)
		}
		reg.DeleteTimeline(id)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TimelineOperation("delete")
	return eventIDs, nil
}

func (s *TimelineService) SelectTimeline(st *state.AppState, id string) (model.Timeline, error) {
	var tl model.Timeline
	err := st.Update(func(reg *timeline.Registry) error {
		err := reg.SetCurrentTimelineID(id)
		if err != nil {
			return err
		}
		tl, _ = reg.CurrentTimeline()
		return nil
	})
	if err != nil {
		return model.Timeline{}, err
	}

	s.metrics.TimelineOperation("select")
	return tl, nil
}

// RenameCurrent trims the name; a blank name keeps the current one.
func (s *TimelineService) RenameCurrent(st *state.AppState, name string) (string, error) {
	if strings.TrimSpace(name) != "" {
		err := validation.ValidateTimelineName(name)
		if err != nil {
			return "", validation.FieldError("name", err.Error())
		}
	}

	var effective string
	err := st.Update(func(reg *timeline.Registry) error {
		var err error
		effective, err = reg.SetTimelineName(name)
		return err
	})
	if err != nil {
		return "", err
	}

	s.metrics.TimelineOperation("rename")
	return effective, nil
}

func (s *TimelineService) CurrentTimeline(st *state.AppState) (model.Timeline, error) {
	var (
		tl model.Timeline
		ok bool
	)
	st.Read(func(reg *timeline.Registry) {
		tl, ok = reg.CurrentTimeline()
	})
	if !ok {
		return model.Timeline{}, timeline.ErrNoCurrentTimeline
	}
	return tl, nil
}

func (s *TimelineService) Events(st *state.AppState) ([]model.TimelineEvent, error) {
	tl, err := s.CurrentTimeline(st)
	if err != nil {
		return nil, err
	}
	return tl.Events, nil
}

func (s *TimelineService) View(st *state.AppState) (timeline.View, error) {
	events, err := s.Events(st)
	if err != nil {
		return timeline.View{}, err
	}
	return timeline.BuildView(events), nil
}

// Event returns the event with its place in the chronology.
func (s *TimelineService) Event(st *state.AppState, id string) (*EventDetail, error) {
	events, err := s.Events(st)
	if err != nil {
		return nil, err
	}

	adj, ok := timeline.Neighbors(events, id)
	if !ok {
		return nil, ErrEventNotFound
	}
	return &EventDetail{Event: events[adj.Index], Position: adj}, nil
}

func (s *TimelineService) AddEvent(st *state.AppState, in EventInput) (model.TimelineEvent, error) {
	event, err := s.parse(in)
	if err != nil {
		return model.TimelineEvent{}, err
	}
	event.ID = uuid.New().String()
	event.CreatedAt = s.now()

	err = st.Update(func(reg *timeline.Registry) error {
		store := reg.Current()
		if store == nil {
			return timeline.ErrNoCurrentTimeline
		}
		store.AddEvent(event)
		return nil
	})
	if err != nil {
		return model.TimelineEvent{}, err
	}

	s.metrics.EventAdded()
	slog.Debug("event added", "event_id", event.ID, "year", event.Year())
	return event, nil
}

// UpdateEvent replaces the editable fields. Media and creation time are kept.
func (s *TimelineService) UpdateEvent(st *state.AppState, id string, in EventInput) (model.TimelineEvent, error) {
	event, err := s.parse(in)
	if err != nil {
		return model.TimelineEvent{}, err
	}

	err = st.Update(func(reg *timeline.Registry) error {
		store := reg.Current()
		if store == nil {
			return timeline.ErrNoCurrentTimeline
		}
		existing, ok := store.Event(id)
		if !ok {
			return ErrEventNotFound
		}
		event.ID = id
		event.Media = existing.Media
		event.CreatedAt = existing.CreatedAt
		store.UpdateEvent(event)
		return nil
	})
	if err != nil {
		return model.TimelineEvent{}, err
	}

	s.metrics.EventUpdated()
	return event, nil
}

// DeleteEvent is idempotent. It reports whether an event was removed.
func (s *TimelineService) DeleteEvent(st *state.AppState, id string) (bool, error) {
	var removed bool
	err := st.Update(func(reg *timeline.Registry) error {
		store := reg.Current()
		if store == nil {
			return timeline.ErrNoCurrentTimeline
		}
		removed = store.DeleteEvent(id)
		return nil
	})
	if err != nil {
		return false, err
	}

	if removed {
		s.metrics.EventDeleted()
	}
	return removed, nil
}

// EventExists reports whether the current timeline holds the event.
func (s *TimelineService) EventExists(st *state.AppState, id string) bool {
	var ok bool
	st.Read(func(reg *timeline.Registry) {
		if store := reg.Current(); store != nil {
			_, ok = store.Event(id)
		}
	})
	return ok
}

// AttachMedia appends uploaded media to the event in the current timeline.
func (s *TimelineService) AttachMedia(st *state.AppState, eventID string, media []model.Media) (model.TimelineEvent, error) {
	var event model.TimelineEvent
	err := st.Update(func(reg *timeline.Registry) error {
		store := reg.Current()
		if store == nil {
			return timeline.ErrNoCurrentTimeline
		}
		if !store.AddMediaToEvent(eventID, media...) {
			return ErrEventNotFound
		}
		event, _ = store.Event(eventID)
		return nil
	})
	return event, err
}

func (s *TimelineService) parse(in EventInput) (model.TimelineEvent, error) {
	err := s.validator.Validate(in)
	if err != nil {
		return model.TimelineEvent{}, err
	}

	start, err := model.ParseDate(in.StartDate)
	if err != nil {
		return model.TimelineEvent{}, validation.FieldError("startDate", err.Error())
	}
	category, err := model.ParseCategory(in.Category)
	if err != nil {
		return model.TimelineEvent{}, validation.FieldError("category", err.Error())
	}

	event := model.TimelineEvent{
		Title:       strings.TrimSpace(in.Title),
		StartDate:   start,
		Category:    category,
		Description: strings.TrimSpace(in.Description),
		Media:       []model.Media{},
	}

	if in.EndDate != "" {
		end, err := model.ParseDate(in.EndDate)
		if err != nil {
			return model.TimelineEvent{}, validation.FieldError("endDate", err.Error())
		}
		if end.Before(start) {
			return model.TimelineEvent{}, validation.FieldError("endDate", "must not be before startDate")
		}
		event.EndDate = &end
	}

	return event, nil
}

// IsNotFound reports errors that map to a missing timeline or event.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, timeline.ErrTimelineNotFound) ||
		errors.Is(err, timeline.ErrNoCurrentTimeline)
}

