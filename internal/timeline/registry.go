package timeline

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/lineaapp/linea/internal/id"
	"github.com/lineaapp/linea/internal/model"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var (
	ErrTimelineNotFound  = errors.New("timeline not found")
	ErrNoCurrentTimeline = errors.New("no current timeline")
)

// Summary describes a timeline without its events.
type Summary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	EventCount int       `json:"eventCount"`
	CreatedAt  time.Time `json:"createdAt"`
	Current    bool      `json:"current"`
}

type entry struct {
	id        string
	name      string
	createdAt time.Time
	store     *Store
}

// Registry owns a user's timelines and tracks which one is current.
// While any timeline exists the current id references one of them.
type Registry struct {
	timelines []*entry
	currentID string
	newID     func() string
	now       func() time.Time
}

type Option func(*Registry)

// WithIDFunc overrides timeline id generation.
func WithIDFunc(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(r *Registry) { r.now = fn }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		newID: func() string { return id.MustGenerate(id.PrefixTimeline) },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddTimeline creates an empty timeline and makes it current.
func (r *Registry) AddTimeline(name string) model.Timeline {
	e := &entry{
		id:        r.newID(),
		name:      name,
		createdAt: r.now(),
		store:     NewStore(),
	}
	r.timelines = append(r.timelines, e)
	r.currentID = e.id
	return e.snapshot()
}

// DeleteTimeline removes a timeline. Deleting the current one moves the
// pointer to the first remaining timeline, or clears it when none remain.
func (r *Registry) DeleteTimeline(id string) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.timelines = slices.Delete(r.timelines, i, i+1)
	if r.currentID == id {
		r.currentID = ""
		if len(r.timelines) > 0 {
			r.currentID = r.timelines[0].id
		}
	}
	return true
}

func (r *Registry) SetCurrentTimelineID(id string) error {
	if r.index(id) < 0 {
		return ErrTimelineNotFound
	}
	r.currentID = id
	return nil
}

func (r *Registry) CurrentTimelineID() string {
	return r.currentID
}

// CurrentTimeline returns a snapshot of the current timeline and its events.
func (r *Registry) CurrentTimeline() (model.Timeline, bool) {
	e := r.current()
	if e == nil {
		return model.Timeline{}, false
	}
	return e.snapshot(), true
}

// Current returns the event store of the current timeline, or nil.
func (r *Registry) Current() *Store {
	e := r.current()
	if e == nil {
		return nil
	}
	return e.store
}

// SetTimelineName renames the current timeline. Surrounding whitespace is
// trimmed; a blank name keeps the previous one. It returns the effective name.
func (r *Registry) SetTimelineName(name string) (string, error) {
	e := r.current()
	if e == nil {
		return "", ErrNoCurrentTimeline
	}
	name = strings.TrimSpace(name)
	if name != "" {
		e.name = name
	}
	return e.name, nil
}

func (r *Registry) Timeline(id string) (model.Timeline, bool) {
	i := r.index(id)
	if i < 0 {
		return model.Timeline{}, false
	}
	return r.timelines[i].snapshot(), true
}

// Timelines lists summaries in creation order.
func (r *Registry) Timelines() []Summary {
	out := make([]Summary, len(r.timelines))
	for i, e := range r.timelines {
		out[i] = Summary{
			ID:         e.id,
			Name:       e.name,
			EventCount: e.store.Len(),
			CreatedAt:  e.createdAt,
			Current:    e.id == r.currentID,
		}
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.timelines)
}

func (r *Registry) current() *entry {
	i := r.index(r.currentID)
	if i < 0 {
		return nil
	}
	return r.timelines[i]
}

func (r *Registry) index(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(r.timelines, func(e *entry) bool {
		return e.id == id
	})
}

func (e *entry) snapshot() model.Timeline {
	return model.Timeline{
		ID:        e.id,
		Name:      e.name,
		Events:    e.store.Events(),
		CreatedAt: e.createdAt,
	}
}

// SortSummariesByName orders summaries alphabetically using French collation.
func SortSummariesByName(summaries []Summary) {
	c := collate.New(language.French, collate.IgnoreCase)
	slices.SortStableFunc(summaries, func(a, b Summary) int {
		return c.CompareString(a.Name, b.Name)
	})
}
