package models

import (
	"fmt"
	"time"
)

// TimestampLayout is the minute-resolution local time layout used for
// measurement and alarm timestamps, both in memory and in CSV files.
const TimestampLayout = "2006-01-02 15:04"

// Measurement represents one timestamped value read from one sensor.
// It is never mutated after construction.
type Measurement struct {
	SensorName string  `json:"sensor"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Timestamp  string  `json:"timestamp"`
}

// NewMeasurement creates a Measurement stamped with t formatted at minute resolution
func NewMeasurement(sensorName string, value float64, unit string, t time.Time) Measurement {
	return Measurement{
		SensorName: sensorName,
		Value:      value,
		Unit:       unit,
		Timestamp:  FormatTimestamp(t),
	}
}

// FormatTimestamp formats t in local time using TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// get the measurement as a string
func (m Measurement) String() string {
	return fmt.Sprintf("Measurement(sensor=%s, value=%.2f, unit=%s, timestamp=%s)",
		m.SensorName,
		m.Value,
		m.Unit,
		m.Timestamp)
}
