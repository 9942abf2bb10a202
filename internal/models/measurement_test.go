// internal/models/measurement_test.go
package models

import (
	"strings"
	"testing"
	"time"
)

func TestNewMeasurement(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 15, 42, 0, time.Local)

	m := NewMeasurement("Temperature", 22.37, "°C", ts)

	if m.SensorName != "Temperature" {
		t.Errorf("SensorName = %v, want Temperature", m.SensorName)
	}
	if m.Value != 22.37 {
		t.Errorf("Value = %v, want 22.37", m.Value)
	}
	if m.Unit != "°C" {
		t.Errorf("Unit = %v, want °C", m.Unit)
	}
	if m.Timestamp != "2024-01-01 10:15" {
		t.Errorf("Timestamp = %q, want minute resolution 2024-01-01 10:15", m.Timestamp)
	}
}

func TestMeasurement_String(t *testing.T) {
	m := Measurement{"Pressure", 1001.456, "hPa", "2024-01-01 10:15"}
	s := m.String()
	for _, want := range []string{"Pressure", "1001.46", "hPa", "2024-01-01 10:15"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
