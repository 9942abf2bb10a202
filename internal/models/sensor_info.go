package models

// SensorInfo describes a configured sensor for API and feed consumers
type SensorInfo struct {
	Name string  `json:"name"`
	Kind string  `json:"kind"`
	Unit string  `json:"unit"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}
