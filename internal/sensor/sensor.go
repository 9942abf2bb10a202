package sensor

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/afroash/multisensor/internal/models"
)

// Sensor defines the capability shared by every simulated sensor
type Sensor interface {
	// Read draws a fresh value uniformly from the sensor's inclusive range
	Read() float64

	// Name returns the stable, unique sensor name
	Name() string

	// Unit returns the unit the values are expressed in
	Unit() string
}

// Kind identifies one of the three sensor variants
type Kind string

const (
	KindTemperature Kind = "temperature"
	KindHumidity    Kind = "humidity"
	KindPressure    Kind = "pressure"
)

const (
	UnitCelsius     = "°C"
	UnitPercent     = "%"
	UnitHectopascal = "hPa"
)

var (
	ErrInvalidRange = errors.New("invalid sensor range")
	ErrInvalidName  = errors.New("invalid sensor name")
	ErrUnknownKind  = errors.New("unknown sensor kind")
)

// ParseKind converts a config string into a Kind
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindTemperature, KindHumidity, KindPressure:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// DefaultRange returns the range a sensor kind uses when none is configured
func DefaultRange(kind Kind) (min, max float64) {
	switch kind {
	case KindTemperature:
		return 10.0, 35.0
	case KindHumidity:
		return 0.0, 100.0
	case KindPressure:
		return 980.0, 1030.0
	default:
		return 0, 0
	}
}

// New creates a sensor of the given kind
func New(kind Kind, name string, min, max float64) (Sensor, error) {
	switch kind {
	case KindTemperature:
		return NewTemperatureSensor(name, min, max)
	case KindHumidity:
		return NewHumiditySensor(name, min, max)
	case KindPressure:
		return NewPressureSensor(name, min, max)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Info describes s for API consumers
func Info(s Sensor) models.SensorInfo {
	info := models.SensorInfo{Name: s.Name(), Unit: s.Unit()}
	if r, ok := s.(interface {
		Kind() Kind
		Range() (float64, float64)
	}); ok {
		info.Kind = string(r.Kind())
		info.Min, info.Max = r.Range()
	}
	return info
}

// source holds the fields shared by the three variants
type source struct {
	name string
	min  float64
	max  float64
}

func newSource(name string, min, max float64) (source, error) {
	if err := validateName(name); err != nil {
		return source{}, err
	}
	if err := validateRange(min, max); err != nil {
		return source{}, err
	}
	return source{name: name, min: min, max: max}, nil
}

// draw returns a value in [min, max), or min when the range is degenerate.
// math/rand/v2 is seeded per process
// from the OS, so sensors never share a correlated sequence.
func (s source) draw() float64 {
	return s.min + rand.Float64()*(s.max-s.min)
}

func (s source) Name() string { return s.name }

// Range returns the inclusive bounds of generated values
func (s source) Range() (float64, float64) { return s.min, s.max }

// validateName rejects names that cannot round-trip through the CSV format
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if strings.ContainsAny(name, ",\r\n") {
		return fmt.Errorf("%w: %q contains a delimiter", ErrInvalidName, name)
	}
	return nil
}

// validateRange checks that the range is finite and ordered
func validateRange(min, max float64) error {
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return fmt.Errorf("%w: bounds must be finite", ErrInvalidRange)
	}
	if min > max {
		return fmt.Errorf("%w: min %.2f is greater than max %.2f", ErrInvalidRange, min, max)
	}
	return nil
}

// TemperatureSensor simulates a thermometer reporting °C
type TemperatureSensor struct{ source }

// NewTemperatureSensor creates a temperature sensor over [min, max]
func NewTemperatureSensor(name string, min, max float64) (*TemperatureSensor, error) {
	src, err := newSource(name, min, max)
	if err != nil {
		return nil, err
	}
	return &TemperatureSensor{src}, nil
}

func (t *TemperatureSensor) Read() float64 { return t.draw() }
func (t *TemperatureSensor) Unit() string  { return UnitCelsius }
func (t *TemperatureSensor) Kind() Kind    { return KindTemperature }

// HumiditySensor simulates a relative humidity sensor reporting %
type HumiditySensor struct{ source }

// NewHumiditySensor creates a humidity sensor over [min, max]
func NewHumiditySensor(name string, min, max float64) (*HumiditySensor, error) {
	src, err := newSource(name, min, max)
	if err != nil {
		return nil, err
	}
	return &HumiditySensor{src}, nil
}

func (h *HumiditySensor) Read() float64 { return h.draw() }
func (h *HumiditySensor) Unit() string  { return UnitPercent }
func (h *HumiditySensor) Kind() Kind    { return KindHumidity }

// PressureSensor simulates a barometer reporting hPa
type PressureSensor struct{ source }

// NewPressureSensor creates a pressure sensor over [min, max]
func NewPressureSensor(name string, min, max float64) (*PressureSensor, error) {
	src, err := newSource(name, min, max)
	if err != nil {
		return nil, err
	}
	return &PressureSensor{src}, nil
}

func (p *PressureSensor) Read() float64 { return p.draw() }
func (p *PressureSensor) Unit() string  { return UnitHectopascal }
func (p *PressureSensor) Kind() Kind    { return KindPressure }
