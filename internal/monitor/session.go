// Package monitor owns the read pipeline: one Session ties the sensor set,
// the measurement log and the alarm engine together.
package monitor

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/afroash/multisensor/internal/alarm"
	"github.com/afroash/multisensor/internal/models"
	"github.com/afroash/multisensor/internal/sensor"
	"github.com/afroash/multisensor/internal/storage"
)

var (
	// ErrUnknownSensor is returned for a sensor name outside the configured set
	ErrUnknownSensor = errors.New("unknown sensor")

	// ErrNoThreshold is returned when a configured sensor has no threshold yet
	ErrNoThreshold = errors.New("no threshold configured")
)

// Observer is notified of every change the session makes.
// Callbacks run synchronously on the caller's goroutine and must not block.
type Observer interface {
	OnMeasurement(m models.Measurement)
	OnAlarm(a models.Alarm)
	OnThreshold(t models.Threshold)
}

// Cycle is the result of one TakeReadings call
type Cycle struct {
	Measurements []models.Measurement `json:"measurements"`
	Alarms       []models.Alarm       `json:"alarms"`
}

// Session is the explicit owner of all mutable pipeline state.
// It is not safe for concurrent use.
type Session struct {
	id        string
	sensors   *sensor.Registry
	log       *storage.Log
	alarms    *alarm.Engine
	logger    zerolog.Logger
	now       func() time.Time
	observers []Observer
}

// Option configures a Session
type Option func(*Session)

// WithClock overrides the clock used to stamp measurements
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithObserver registers an observer at construction time
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// NewSession creates a session over the given sensors with an empty log
func NewSession(sensors *sensor.Registry, logger zerolog.Logger, opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		sensors: sensors,
		log:     storage.NewLog(),
		alarms:  alarm.NewEngine(),
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("session_id", s.id).Logger()
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Subscribe registers an observer
func (s *Session) Subscribe(o Observer) {
	s.observers = append(s.observers, o)
}

// Sensors describes the configured sensors in order
func (s *Session) Sensors() []models.SensorInfo {
	return s.sensors.Infos()
}

// SelectSensor returns the sensor at a zero-based menu index
func (s *Session) SelectSensor(index int) (sensor.Sensor, error) {
	return s.sensors.Select(index)
}

// TakeReadings reads every sensor once, in configuration order, then stores
// and evaluates each measurement
func (s *Session) TakeReadings() Cycle {
	now := s.now()
	cycle := Cycle{
		Measurements: make([]models.Measurement, 0, s.sensors.Len()),
		Alarms:       []models.Alarm{},
	}

	for _, sen := range s.sensors.All() {
		m := models.NewMeasurement(sen.Name(), sen.Read(), sen.Unit(), now)
		cycle.Measurements = append(cycle.Measurements, m)
		if a, ok := s.Record(m); ok {
			cycle.Alarms = append(cycle.Alarms, a)
		}
	}
	return cycle
}

// Record stores m and evaluates it against its sensor's threshold
func (s *Session) Record(m models.Measurement) (models.Alarm, bool) {
	s.log.Add(m)
	s.logger.Debug().
		Str("sensor", m.SensorName).
		Float64("value", m.Value).
		Str("unit", m.Unit).
		Msg("measurement recorded")
	for _, o := range s.observers {
		o.OnMeasurement(m)
	}

	a, breached := s.alarms.Evaluate(m)
	if !breached {
		return models.Alarm{}, false
	}

	s.logger.Warn().
		Str("sensor", a.SensorName).
		Float64("value", a.Value).
		Float64("limit", a.Limit).
		Bool("was_over", a.WasOver).
		Msg("threshold breach")
	for _, o := range s.observers {
		o.OnAlarm(a)
	}
	return a, true
}

// Measurements returns the full log in insertion order
func (s *Session) Measurements() []models.Measurement {
	return s.log.All()
}

// SensorMeasurements returns the log entries for one sensor
func (s *Session) SensorMeasurements(name string) []models.Measurement {
	return s.log.Sensor(name)
}

// Len returns the number of stored measurements
func (s *Session) Len() int {
	return s.log.Len()
}

// Statistics returns a summary for every configured sensor
func (s *Session) Statistics() []storage.Summary {
	out := make([]storage.Summary, 0, s.sensors.Len())
	for _, sen := range s.sensors.All() {
		out = append(out, s.summary(sen))
	}
	return out
}

// SensorStatistics returns the summary for one configured sensor
func (s *Session) SensorStatistics(name string) (storage.Summary, error) {
	sen, ok := s.sensors.Get(name)
	if !ok {
		return storage.Summary{}, fmt.Errorf("%w: %q", ErrUnknownSensor, name)
	}
	return s.summary(sen), nil
}

func (s *Session) summary(sen sensor.Sensor) storage.Summary {
	sum := s.log.Summary(sen.Name())
	if sum.Unit == "" {
		sum.Unit = sen.Unit()
	}
	return sum
}

// Save writes the log to path in CSV format
func (s *Session) Save(path string) error {
	if err := s.log.Save(path); err != nil {
		return err
	}
	s.logger.Info().Str("path", path).Int("measurements", s.log.Len()).Msg("measurements saved")
	return nil
}

// Load appends the measurements stored at path. Loaded rows are not
// evaluated against thresholds.
func (s *Session) Load(path string) (storage.LoadResult, error) {
	res, err := s.log.Load(path)
	if err != nil {
		return res, err
	}

	for _, name := range s.log.SensorNames() {
		if !s.sensors.Has(name) {
			s.logger.Warn().Str("sensor", name).Msg("log holds measurements for an unconfigured sensor")
		}
	}
	s.logger.Info().
		Str("path", path).
		Int("loaded", res.Loaded).
		Int("skipped", res.Skipped).
		Msg("measurements loaded")
	return res, nil
}

// ConfigureThreshold sets the alarm threshold for a configured sensor
func (s *Session) ConfigureThreshold(name string, limit float64, direction models.Direction) (models.Threshold, error) {
	if !s.sensors.Has(name) {
		return models.Threshold{}, fmt.Errorf("%w: %q", ErrUnknownSensor, name)
	}

	t, err := s.alarms.Configure(name, limit, direction)
	if err != nil {
		return models.Threshold{}, err
	}

	s.logger.Info().
		Str("sensor", t.SensorName).
		Float64("limit", t.Limit).
		Str("direction", string(t.Direction)).
		Msg("threshold configured")
	for _, o := range s.observers {
		o.OnThreshold(t)
	}
	return t, nil
}

// Threshold returns the threshold configured for one sensor
func (s *Session) Threshold(name string) (models.Threshold, error) {
	if !s.sensors.Has(name) {
		return models.Threshold{}, fmt.Errorf("%w: %q", ErrUnknownSensor, name)
	}
	t, ok := s.alarms.Threshold(name)
	if !ok {
		return models.Threshold{}, fmt.Errorf("%w for %q", ErrNoThreshold, name)
	}
	return t, nil
}

// Thresholds returns every configured threshold sorted by sensor name
func (s *Session) Thresholds() []models.Threshold {
	return s.alarms.Thresholds()
}

// Alarms returns the alarm log in the order alarms were raised
func (s *Session) Alarms() []models.Alarm {
	return s.alarms.Alarms()
}
