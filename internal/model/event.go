package model

import (
	"slices"
	"time"
)

type MediaType string

const (
	MediaTypePhoto MediaType = "photo"
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
)

type Media struct {
	ID           string    `json:"id"`
	EventID      string    `json:"eventId"`
	Type         MediaType `json:"type"`
	FileURL      string    `json:"fileUrl"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	BlurHash     string    `json:"blurHash,omitempty"`
	FileID       string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type TimelineEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	StartDate   Date      `json:"startDate"`
	EndDate     *Date     `json:"endDate,omitempty"`
	Category    Category  `json:"category"`
	Description string    `json:"description,omitempty"`
	Media       []Media   `json:"media"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Clone returns a copy that shares no slices or pointers with e.
func (e TimelineEvent) Clone() TimelineEvent {
	out := e
	if e.EndDate != nil {
		end := *e.EndDate
		out.EndDate = &end
	}
	out.Media = slices.Clone(e.Media)
	if out.Media == nil {
		out.Media = []Media{}
	}
	return out
}

func (e TimelineEvent) Year() int {
	return e.StartDate.Year()
}

type Timeline struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Events    []TimelineEvent `json:"events"`
	CreatedAt time.Time       `json:"createdAt"`
}
