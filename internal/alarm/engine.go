// Package alarm evaluates measurements against per-sensor thresholds and
// keeps the resulting alarm log.
package alarm

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/afroash/multisensor/internal/models"
)

// ErrEmptySensor is returned when configuring a threshold without a sensor name
var ErrEmptySensor = errors.New("sensor name is required")

// Engine holds one threshold per sensor and the append-only alarm log.
// It is not safe for concurrent use.
type Engine struct {
	thresholds map[string]models.Threshold
	alarms     []models.Alarm
}

// NewEngine creates an engine with no thresholds configured
func NewEngine() *Engine {
	return &Engine{
		thresholds: make(map[string]models.Threshold),
	}
}

// Configure sets the threshold for a sensor, replacing any earlier one.
// Invalid input leaves the engine unchanged.
func (e *Engine) Configure(sensorName string, limit float64, direction models.Direction) (models.Threshold, error) {
	if strings.TrimSpace(sensorName) == "" {
		return models.Threshold{}, ErrEmptySensor
	}
	if !direction.Valid() {
		return models.Threshold{}, fmt.Errorf("%w: %q", models.ErrInvalidDirection, direction)
	}

	t := models.Threshold{
		SensorName: sensorName,
		Limit:      limit,
		Direction:  direction,
	}
	e.thresholds[sensorName] = t
	return t, nil
}

// Threshold returns the threshold configured for a sensor
func (e *Engine) Threshold(sensorName string) (models.Threshold, bool) {
	t, ok := e.thresholds[sensorName]
	return t, ok
}

// Thresholds returns every configured threshold sorted by sensor name
func (e *Engine) Thresholds() []models.Threshold {
	out := make([]models.Threshold, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SensorName < out[j].SensorName
	})
	return out
}

// Evaluate checks m against its sensor's threshold. On a breach the alarm is
// appended to the log and returned with ok set.
func (e *Engine) Evaluate(m models.Measurement) (models.Alarm, bool) {
	t, configured := e.thresholds[m.SensorName]
	if !configured || !t.Breached(m.Value) {
		return models.Alarm{}, false
	}

	a := models.NewAlarm(m, t)
	e.alarms = append(e.alarms, a)
	return a, true
}

// Alarms returns a copy of the alarm log in the order alarms were raised
func (e *Engine) Alarms() []models.Alarm {
	out := make([]models.Alarm, len(e.alarms))
	copy(out, e.alarms)
	return out
}

// Len returns the number of alarms raised so far
func (e *Engine) Len() int {
	return len(e.alarms)
}
