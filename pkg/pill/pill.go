// Package pill ranks ImageNet labels for a photo and matches them against the
// medication knowledge base. The classifier is generic; a match only means a
// label and a medication name share a substring.
package pill

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrModelUnavailable is returned when the serving endpoint cannot be reached
	// or reports no available model version.
	ErrModelUnavailable = errors.New("classifier model unavailable")
	// ErrNotLoaded is returned by Classify before Load succeeded.
	ErrNotLoaded = errors.New("classifier not loaded")
)

// DefaultTopK is the number of predictions reported per image.
const DefaultTopK = 5

// Prediction is one ranked label.
type Prediction struct {
	ClassID string  `json:"class_id"`
	Label   string  `json:"label"`
	Score   float64 `json:"score"`
}

// Identification is the outcome of matching predictions against the
// knowledge base.
type Identification struct {
	Predictions         []Prediction `json:"predictions"`
	PossibleMatches     []string     `json:"possible_matches"`
	LooksLikeMedication bool         `json:"looks_like_medication"`
}

// Classifier ranks labels for an image.
type Classifier interface {
	Load(ctx context.Context) error
	Classify(ctx context.Context, img image.Image, k int) ([]Prediction, error)
}
