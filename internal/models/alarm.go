package models

import "fmt"

// Alarm records a threshold breach. It keeps the limit and direction that
// were in effect when the triggering measurement was evaluated.
type Alarm struct {
	Timestamp  string  `json:"timestamp"`
	SensorName string  `json:"sensor"`
	Value      float64 `json:"value"`
	Limit      float64 `json:"limit"`
	WasOver    bool    `json:"was_over"`
}

// NewAlarm builds the alarm raised by m breaching t
func NewAlarm(m Measurement, t Threshold) Alarm {
	return Alarm{
		Timestamp:  m.Timestamp,
		SensorName: m.SensorName,
		Value:      m.Value,
		Limit:      t.Limit,
		WasOver:    t.Direction == DirectionOver,
	}
}

// Direction returns the direction of the threshold that raised the alarm
func (a Alarm) Direction() Direction {
	if a.WasOver {
		return DirectionOver
	}
	return DirectionUnder
}

func (a Alarm) String() string {
	return fmt.Sprintf("[%s] %s: %.2f %s %.2f (THRESHOLD BREACH)",
		a.Timestamp,
		a.SensorName,
		a.Value,
		a.Direction().Symbol(),
		a.Limit)
}
