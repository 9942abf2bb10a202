// Package stats computes descriptive statistics over a series of values.
// All functions are pure; none of them retain or modify their input.
package stats

import (
	"errors"
	"math"
)

// ErrEmptySeries is returned by Min and Max when there is nothing to compare
var ErrEmptySeries = errors.New("empty series")

// Count returns the number of values
func Count(xs []float64) int {
	return len(xs)
}

// Average returns the arithmetic mean, or 0 for an empty series
func Average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Min returns the smallest value
func Min(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmptySeries
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m, nil
}

// Max returns the largest value
func Max(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmptySeries
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m, nil
}

// StdDeviation returns the population standard deviation (divisor n), or 0 for an empty series
func StdDeviation(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := Average(xs)
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)))
}
