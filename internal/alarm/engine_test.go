package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afroash/multisensor/internal/models"
)

var at = time.Date(2024, 1, 1, 10, 15, 0, 0, time.Local)

func temperature(v float64) models.Measurement {
	return models.NewMeasurement("Temperature", v, "°C", at)
}

func TestEvaluate_Unconfigured(t *testing.T) {
	e := NewEngine()

	_, ok := e.Evaluate(temperature(1e9))
	assert.False(t, ok)
	assert.Zero(t, e.Len())
}

func TestEvaluate_OverIsStrict(t *testing.T) {
	e := NewEngine()
	_, err := e.Configure("Temperature", 30, models.DirectionOver)
	require.NoError(t, err)

	_, ok := e.Evaluate(temperature(30.0))
	assert.False(t, ok, "value equal to the limit must not breach")
	assert.Zero(t, e.Len())

	a, ok := e.Evaluate(temperature(30.01))
	require.True(t, ok)
	assert.True(t, a.WasOver)
	assert.Equal(t, 30.0, a.Limit)
	assert.Equal(t, 30.01, a.Value)
	assert.Equal(t, "Temperature", a.SensorName)
	assert.Equal(t, "2024-01-01 10:15", a.Timestamp)
	assert.Len(t, e.Alarms(), 1)
}

func TestEvaluate_UnderIsStrict(t *testing.T) {
	e := NewEngine()
	_, err := e.Configure("Humidity", 20, models.DirectionUnder)
	require.NoError(t, err)

	_, ok := e.Evaluate(models.NewMeasurement("Humidity", 20, "%", at))
	assert.False(t, ok)

	a, ok := e.Evaluate(models.NewMeasurement("Humidity", 19.99, "%", at))
	require.True(t, ok)
	assert.False(t, a.WasOver)
}

func TestConfigure_Replaces(t *testing.T) {
	e := NewEngine()
	_, err := e.Configure("Temperature", 30, models.DirectionOver)
	require.NoError(t, err)
	_, err = e.Configure("Temperature", 10, models.DirectionUnder)
	require.NoError(t, err)

	_, ok := e.Evaluate(temperature(25))
	assert.False(t, ok, "25 breaches neither threshold")

	a, ok := e.Evaluate(temperature(5))
	require.True(t, ok)
	assert.False(t, a.WasOver)
	assert.Equal(t, 10.0, a.Limit)
	assert.Equal(t, 1, e.Len())

	assert.Len(t, e.Thresholds(), 1)
}

func TestConfigure_InvalidInput(t *testing.T) {
	e := NewEngine()
	_, err := e.Configure("Temperature", 30, models.DirectionOver)
	require.NoError(t, err)

	_, err = e.Configure("Temperature", 5, models.Direction("sideways"))
	assert.ErrorIs(t, err, models.ErrInvalidDirection)

	_, err = e.Configure(" ", 5, models.DirectionOver)
	assert.ErrorIs(t, err, ErrEmptySensor)

	// the earlier configuration is untouched
	th, ok := e.Threshold("Temperature")
	require.True(t, ok)
	assert.Equal(t, 30.0, th.Limit)
	assert.Equal(t, models.DirectionOver, th.Direction)
}

func TestConfigure_AnyLimit(t *testing.T) {
	e := NewEngine()
	_, err := e.Configure("Temperature", -273.15, models.DirectionUnder)
	assert.NoError(t, err)
	_, err = e.Configure("Pressure", 1e12, models.DirectionOver)
	assert.NoError(t, err)
}

func TestAlarms_KeepLimitInEffect(t *testing.T) {
	e := NewEngine()
	_, _ = e.Configure("Temperature", 30, models.DirectionOver)
	_, ok := e.Evaluate(temperature(31))
	require.True(t, ok)

	_, _ = e.Configure("Temperature", 40, models.DirectionOver)

	alarms := e.Alarms()
	require.Len(t, alarms, 1)
	assert.Equal(t, 30.0, alarms[0].Limit)
}

func TestThresholds_Sorted(t *testing.T) {
	e := NewEngine()
	_, _ = e.Configure("Temperature", 30, models.DirectionOver)
	_, _ = e.Configure("Humidity", 80, models.DirectionOver)
	_, _ = e.Configure("Pressure", 990, models.DirectionUnder)

	names := []string{}
	for _, th := range e.Thresholds() {
		names = append(names, th.SensorName)
	}
	assert.Equal(t, []string{"Humidity", "Pressure", "Temperature"}, names)
}
