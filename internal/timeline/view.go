package timeline

import (
	"slices"

	"github.com/lineaapp/linea/internal/model"
)

type YearGroup struct {
	Year   int                   `json:"year"`
	Events []model.TimelineEvent `json:"events"`
}

// View is the chronological presentation of a timeline's events.
type View struct {
	Years  []int                 `json:"years"`
	Groups []YearGroup           `json:"groups"`
	Events []model.TimelineEvent `json:"events"`
}

// Adjacency locates an event within the flat chronological list.
type Adjacency struct {
	Index    int                  `json:"index"`
	Total    int                  `json:"total"`
	Previous *model.TimelineEvent `json:"previous,omitempty"`
	Next     *model.TimelineEvent `json:"next,omitempty"`
}

// GroupByYear partitions events by the year of their start date. Each bucket
// is sorted ascending regardless of the input order.
func GroupByYear(events []model.TimelineEvent) map[int][]model.TimelineEvent {
	groups := make(map[int][]model.TimelineEvent)
	for _, e := range events {
		groups[e.Year()] = append(groups[e.Year()], e)
	}
	for _, bucket := range groups {
		SortEvents(bucket)
	}
	return groups
}

// BuildView derives year buckets and the flat ordering from events.
func BuildView(events []model.TimelineEvent) View {
	groups := GroupByYear(events)

	years := make([]int, 0, len(groups))
	for y := range groups {
		years = append(years, y)
	}
	slices.Sort(years)

	v := View{
		Years:  years,
		Groups: make([]YearGroup, 0, len(years)),
		Events: make([]model.TimelineEvent, 0, len(events)),
	}
	for _, y := range years {
		v.Groups = append(v.Groups, YearGroup{Year: y, Events: groups[y]})
		v.Events = append(v.Events, groups[y]...)
	}
	return v
}

// Neighbors returns the immediate predecessor and successor of the event in
// chronological order. There is no wraparound at either end.
func Neighbors(events []model.TimelineEvent, eventID string) (Adjacency, bool) {
	ordered := slices.Clone(events)
	SortEvents(ordered)

	i := slices.IndexFunc(ordered, func(e model.TimelineEvent) bool {
		return e.ID == eventID
	})
	if i < 0 {
		return Adjacency{}, false
	}

	adj := Adjacency{Index: i, Total: len(ordered)}
	if i > 0 {
		prev := ordered[i-1]
		adj.Previous = &prev
	}
	if i < len(ordered)-1 {
		next := ordered[i+1]
		adj.Next = &next
	}
	return adj, true
}
