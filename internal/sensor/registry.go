package sensor

import (
	"errors"
	"fmt"

	"github.com/afroash/multisensor/internal/models"
)

var (
	ErrDuplicateName       = errors.New("duplicate sensor name")
	ErrSelectionOutOfRange = errors.New("sensor selection out of range")
)

// Registry is the fixed, ordered set of sensors owned by a session
type Registry struct {
	sensors []Sensor
	byName  map[string]Sensor
}

// NewRegistry creates a registry, rejecting nil sensors and duplicate names
func NewRegistry(sensors ...Sensor) (*Registry, error) {
	r := &Registry{
		sensors: make([]Sensor, 0, len(sensors)),
		byName:  make(map[string]Sensor, len(sensors)),
	}
	for i, s := range sensors {
		if s == nil {
			return nil, fmt.Errorf("sensor %d is nil", i)
		}
		if _, exists := r.byName[s.Name()]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, s.Name())
		}
		r.sensors = append(r.sensors, s)
		r.byName[s.Name()] = s
	}
	return r, nil
}

// DefaultRegistry returns the Temperature, Humidity and Pressure sensors with default ranges
func DefaultRegistry() *Registry {
	tMin, tMax := DefaultRange(KindTemperature)
	hMin, hMax := DefaultRange(KindHumidity)
	pMin, pMax := DefaultRange(KindPressure)

	t, _ := NewTemperatureSensor("Temperature", tMin, tMax)
	h, _ := NewHumiditySensor("Humidity", hMin, hMax)
	p, _ := NewPressureSensor("Pressure", pMin, pMax)

	r, _ := NewRegistry(t, h, p)
	return r
}

// All returns the sensors in configuration order
func (r *Registry) All() []Sensor {
	out := make([]Sensor, len(r.sensors))
	copy(out, r.sensors)
	return out
}

// Len returns the number of sensors
func (r *Registry) Len() int {
	return len(r.sensors)
}

// Get looks up a sensor by name
func (r *Registry) Get(name string) (Sensor, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Has reports whether a sensor with this name is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Select returns the sensor at the zero-based index
func (r *Registry) Select(index int) (Sensor, error) {
	if index < 0 || index >= len(r.sensors) {
		return nil, fmt.Errorf("%w: %d not in 1-%d", ErrSelectionOutOfRange, index+1, len(r.sensors))
	}
	return r.sensors[index], nil
}

// Names returns the sensor names in configuration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.sensors))
	for i, s := range r.sensors {
		names[i] = s.Name()
	}
	return names
}

// Infos describes every sensor for API consumers
func (r *Registry) Infos() []models.SensorInfo {
	infos := make([]models.SensorInfo, len(r.sensors))
	for i, s := range r.sensors {
		infos[i] = Info(s)
	}
	return infos
}
