package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category classifies a timeline event. The zero value is invalid.
type Category int

const (
	CategoryFamily Category = iota + 1
	CategoryWork
	CategoryTravel
	CategoryPersonal
	CategoryOther
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryFamily,
	CategoryWork,
	CategoryTravel,
	CategoryPersonal,
	CategoryOther,
}

// CategoryStyle holds the presentation hints for a category.
type CategoryStyle struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var categoryNames = [...]string{
	CategoryFamily:   "family",
	CategoryWork:     "work",
	CategoryTravel:   "travel",
	CategoryPersonal: "personal",
	CategoryOther:    "other",
}

var categoryStyles = [...]CategoryStyle{
	CategoryFamily:   {Label: "Famille", Color: "rose", Icon: "heart"},
	CategoryWork:     {Label: "Travail", Color: "sky", Icon: "briefcase"},
	CategoryTravel:   {Label: "Voyage", Color: "sage", Icon: "plane"},
	CategoryPersonal: {Label: "Personnel", Color: "lavender", Icon: "star"},
	CategoryOther:    {Label: "Autre", Color: "amber", Icon: "circle"},
}

// French tokens used by older clients.
var categoryAliases = map[string]Category{
	"famille":   CategoryFamily,
	"travail":   CategoryWork,
	"voyage":    CategoryTravel,
	"personnel": CategoryPersonal,
	"autre":     CategoryOther,
}

func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if categoryNames[c] == s {
			return c, nil
		}
	}
	if c, ok := categoryAliases[s]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown category: %q", s)
}

func (c Category) Valid() bool {
	return c >= CategoryFamily && c <= CategoryOther
}

func (c Category) String() string {
	if !c.Valid() {
		return ""
	}
	return categoryNames[c]
}

// Style returns the label, colour and icon hints. Invalid categories fall back to "other".
func (c Category) Style() CategoryStyle {
	if !c.Valid() {
		return categoryStyles[CategoryOther]
	}
	return categoryStyles[c]
}

func (c Category) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category: %d", int(c))
	}
	return json.Marshal(c.String())
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	err := json.Unmarshal(data, &s)
	if err != nil {
		return err
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
