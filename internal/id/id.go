package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	PrefixTimeline = "timeline"
	PrefixMedia    = "media"
)

// Generate returns a URL-safe id of the form "<prefix>-<nanoid>".
func Generate(prefix string) (string, error) {
	n, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate nanoid: %w", err)
	}
	return prefix + "-" + n, nil
}

// MustGenerate panics when the system cannot supply entropy.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(err)
	}
	return v
}
