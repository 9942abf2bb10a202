// Package storage holds the append-only measurement log and its CSV
// serialization. A Log is not safe for concurrent use; callers that share
// one across goroutines must serialize access.
package storage

import (
	"github.com/afroash/multisensor/internal/models"
	"github.com/afroash/multisensor/internal/stats"
)

// Log is the append-only time series of every measurement taken so far
type Log struct {
	measurements []models.Measurement
	bySensor     map[string][]int // positions into measurements, in insertion order
	order        []string         // sensor names by first appearance
}

// NewLog creates an empty log
func NewLog() *Log {
	return &Log{
		measurements: make([]models.Measurement, 0, 64),
		bySensor:     make(map[string][]int),
	}
}

// Add appends a measurement to the end of the log
func (l *Log) Add(m models.Measurement) {
	idx, seen := l.bySensor[m.SensorName]
	if !seen {
		l.order = append(l.order, m.SensorName)
	}
	l.bySensor[m.SensorName] = append(idx, len(l.measurements))
	l.measurements = append(l.measurements, m)
}

// Len returns the total number of measurements
func (l *Log) Len() int {
	return len(l.measurements)
}

// All returns a copy of the full log in insertion order
func (l *Log) All() []models.Measurement {
	out := make([]models.Measurement, len(l.measurements))
	copy(out, l.measurements)
	return out
}

// Sensor returns the measurements for one sensor in insertion order
func (l *Log) Sensor(name string) []models.Measurement {
	idx := l.bySensor[name]
	out := make([]models.Measurement, len(idx))
	for i, p := range idx {
		out[i] = l.measurements[p]
	}
	return out
}

// Values returns the values recorded for one sensor in insertion order
func (l *Log) Values(name string) []float64 {
	idx := l.bySensor[name]
	out := make([]float64, len(idx))
	for i, p := range idx {
		out[i] = l.measurements[p].Value
	}
	return out
}

// SensorNames returns every sensor that has measurements, by first appearance
func (l *Log) SensorNames() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Count returns the number of measurements for a sensor
func (l *Log) Count(name string) int {
	return len(l.bySensor[name])
}

// Average returns the mean value for a sensor, 0 when it has no measurements
func (l *Log) Average(name string) float64 {
	return stats.Average(l.Values(name))
}

// Minimum returns the smallest value for a sensor, or stats.ErrEmptySeries
func (l *Log) Minimum(name string) (float64, error) {
	return stats.Min(l.Values(name))
}

// Maximum returns the largest value for a sensor, or stats.ErrEmptySeries
func (l *Log) Maximum(name string) (float64, error) {
	return stats.Max(l.Values(name))
}

// StdDeviation returns the population standard deviation for a sensor
func (l *Log) StdDeviation(name string) float64 {
	return stats.StdDeviation(l.Values(name))
}

// Summary contains the descriptive statistics for one sensor.
// Min and Max are nil when the sensor has no measurements.
type Summary struct {
	Sensor       string   `json:"sensor"`
	Unit         string   `json:"unit,omitempty"`
	Count        int      `json:"count"`
	Average      float64  `json:"average"`
	Min          *float64 `json:"min"`
	Max          *float64 `json:"max"`
	StdDeviation float64  `json:"std_deviation"`
}

// Summary composes every statistic for one sensor
func (l *Log) Summary(name string) Summary {
	values := l.Values(name)
	s := Summary{
		Sensor:       name,
		Count:        stats.Count(values),
		Average:      stats.Average(values),
		StdDeviation: stats.StdDeviation(values),
	}
	if idx := l.bySensor[name]; len(idx) > 0 {
		s.Unit = l.measurements[idx[0]].Unit
	}
	if lo, err := stats.Min(values); err == nil {
		s.Min = &lo
	}
	if hi, err := stats.Max(values); err == nil {
		s.Max = &hi
	}
	return s
}

// Stats returns a Summary for every sensor present in the log
func (l *Log) Stats() []Summary {
	out := make([]Summary, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.Summary(name))
	}
	return out
}
