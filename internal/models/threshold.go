package models

import (
	"errors"
	"fmt"
	"strings"
)

// Direction selects which side of a threshold limit counts as a breach
type Direction string

const (
	DirectionOver  Direction = "over"
	DirectionUnder Direction = "under"
)

// ErrInvalidDirection is returned for any direction other than over or under
var ErrInvalidDirection = errors.New("direction must be over or under")

// ParseDirection accepts "over"/"under", ">"/"<" and the menu choices "1"/"2"
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "over", ">", "1":
		return DirectionOver, nil
	case "under", "<", "2":
		return DirectionUnder, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Valid reports whether d is one of the two supported directions
func (d Direction) Valid() bool {
	return d == DirectionOver || d == DirectionUnder
}

// Symbol returns ">" for over and "<" for under
func (d Direction) Symbol() string {
	if d == DirectionOver {
		return ">"
	}
	return "<"
}

// Threshold is the alarm limit configured for one sensor
type Threshold struct {
	SensorName string    `json:"sensor"`
	Limit      float64   `json:"limit"`
	Direction  Direction `json:"direction"`
}

// Breached reports whether value strictly crosses the limit in the configured direction.
// A value equal to the limit never breaches.
func (t Threshold) Breached(value float64) bool {
	switch t.Direction {
	case DirectionOver:
		return value > t.Limit
	case DirectionUnder:
		return value < t.Limit
	default:
		return false
	}
}

func (t Threshold) String() string {
	return fmt.Sprintf("%s %s %g", t.SensorName, t.Direction.Symbol(), t.Limit)
}
