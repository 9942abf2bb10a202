package server

import (
	"sync"

	"github.com/afroash/multisensor/internal/models"
	"github.com/afroash/multisensor/internal/monitor"
	"github.com/afroash/multisensor/internal/storage"
)

// Monitor is the session surface exposed over HTTP.
// Serialized implements this interface.
type Monitor interface {
	// ID returns the session identifier
	ID() string

	// Sensors describes the configured sensors in order
	Sensors() []models.SensorInfo

	// TakeReadings reads every sensor once, stores and evaluates the results
	TakeReadings() monitor.Cycle

	// Len returns the number of stored measurements
	Len() int

	// Measurements returns the full log in insertion order
	Measurements() []models.Measurement

	// SensorMeasurements returns the log entries for one sensor
	SensorMeasurements(name string) []models.Measurement

	// Statistics returns a summary for every configured sensor
	Statistics() []storage.Summary

	// SensorStatistics returns the summary for one sensor
	SensorStatistics(name string) (storage.Summary, error)

	// ConfigureThreshold sets the alarm threshold for a sensor
	ConfigureThreshold(name string, limit float64, direction models.Direction) (models.Threshold, error)

	// Threshold returns the threshold configured for one sensor
	Threshold(name string) (models.Threshold, error)

	// Thresholds returns every configured threshold
	Thresholds() []models.Threshold

	// Alarms returns the alarm log
	Alarms() []models.Alarm

	// Save writes the log to path
	Save(path string) error

	// Load appends the log stored at path
	Load(path string) (storage.LoadResult, error)
}

// Serialized guards a session with a mutex so the API, the feed, the poller
// and the config watcher can share it. Observers registered on the session
// run while the lock is held and must not call back into it.
type Serialized struct {
	mu      sync.Mutex
	session *monitor.Session
}

// NewSerialized wraps session
func NewSerialized(session *monitor.Session) *Serialized {
	return &Serialized{session: session}
}

func (s *Serialized) ID() string {
	// immutable after construction
	return s.session.ID()
}

func (s *Serialized) Subscribe(o monitor.Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Subscribe(o)
}

func (s *Serialized) Sensors() []models.SensorInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Sensors()
}

func (s *Serialized) TakeReadings() monitor.Cycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.TakeReadings()
}

func (s *Serialized) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Len()
}

func (s *Serialized) Measurements() []models.Measurement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Measurements()
}

func (s *Serialized) SensorMeasurements(name string) []models.Measurement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.SensorMeasurements(name)
}

func (s *Serialized) Statistics() []storage.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Statistics()
}

func (s *Serialized) SensorStatistics(name string) (storage.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.SensorStatistics(name)
}

func (s *Serialized) ConfigureThreshold(name string, limit float64, direction models.Direction) (models.Threshold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.ConfigureThreshold(name, limit, direction)
}

func (s *Serialized) Threshold(name string) (models.Threshold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Threshold(name)
}

func (s *Serialized) Thresholds() []models.Threshold {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Thresholds()
}

func (s *Serialized) Alarms() []models.Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Alarms()
}

func (s *Serialized) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Save(path)
}

func (s *Serialized) Load(path string) (storage.LoadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Load(path)
}
