// Package timeline holds the in-memory event collections of a user's
// timelines and the pure views derived from them.
package timeline

import (
	"slices"

	"github.com/lineaapp/linea/internal/model"
)

// Store holds the events of one timeline, always ordered by start date.
// Events sharing a start date keep their insertion order.
// Store is not safe for concurrent use; callers serialize access.
type Store struct {
	events []model.TimelineEvent
}

func NewStore(events ...model.TimelineEvent) *Store {
	s := &Store{events: make([]model.TimelineEvent, 0, len(events))}
	for _, e := range events {
		s.events = append(s.events, e.Clone())
	}
	s.sort()
	return s
}

// AddEvent inserts the event and re-sorts. Ids are not checked for uniqueness.
func (s *Store) AddEvent(event model.TimelineEvent) {
	s.events = append(s.events, event.Clone())
	s.sort()
}

// UpdateEvent replaces the event with the same id. It reports false and leaves
// the store untouched when no such event exists.
func (s *Store) UpdateEvent(event model.TimelineEvent) bool {
	i := s.index(event.ID)
	if i < 0 {
		return false
	}
	s.events[i] = event.Clone()
	s.sort()
	return true
}

// DeleteEvent removes the event and its media. Unknown ids are a no-op.
func (s *Store) DeleteEvent(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.events = slices.Delete(s.events, i, i+1)
	return true
}

// AddMediaToEvent appends media to the event, stamping the back-reference.
func (s *Store) AddMediaToEvent(eventID string, media ...model.Media) bool {
	i := s.index(eventID)
	if i < 0 {
		return false
	}
	for _, m := range media {
		m.EventID = eventID
		s.events[i].Media = append(s.events[i].Media, m)
	}
	return true
}

func (s *Store) Event(id string) (model.TimelineEvent, bool) {
	i := s.index(id)
	if i < 0 {
		return model.TimelineEvent{}, false
	}
	return s.events[i].Clone(), true
}

// Events returns a copy of the ordered collection.
func (s *Store) Events() []model.TimelineEvent {
	out := make([]model.TimelineEvent, len(s.events))
	for i, e := range s.events {
		out[i] = e.Clone()
	}
	return out
}

func (s *Store) Len() int {
	return len(s.events)
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.events, func(e model.TimelineEvent) bool {
		return e.ID == id
	})
}

func (s *Store) sort() {
	SortEvents(s.events)
}

// SortEvents stably orders events by start date ascending.
func SortEvents(events []model.TimelineEvent) {
	slices.SortStableFunc(events, func(a, b model.TimelineEvent) int {
		return a.StartDate.Compare(b.StartDate)
	})
}
