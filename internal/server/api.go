package server

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/multisensor/internal/models"
	"github.com/afroash/multisensor/internal/monitor"
)

const maxBodyBytes = 1 << 20

// APIOptions configures the API handler
type APIOptions struct {
	AuthToken   string
	DataDir     string
	DefaultFile string
	Version     string
	// Subscribers reports the number of feed subscribers for /health
	Subscribers func() int
	// SubscriberList backs /api/subscribers; the route is not registered when nil
	SubscriberList func() []SubscriberInfo
}

// APIHandler handles the JSON API over a session
type APIHandler struct {
	monitor Monitor
	opts    APIOptions
	logger  zerolog.Logger
	started time.Time
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(m Monitor, opts APIOptions, logger zerolog.Logger) *APIHandler {
	if opts.DefaultFile == "" {
		opts.DefaultFile = "SensorMeasurements.csv"
	}
	return &APIHandler{
		monitor: m,
		opts:    opts,
		logger:  logger,
		started: time.Now(),
	}
}

// Register adds every API route to mux
func (api *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", api.HandleHealth)
	mux.HandleFunc("GET /api/sensors", api.HandleSensors)
	mux.HandleFunc("POST /api/readings", api.requireToken(api.HandleReadings))
	mux.HandleFunc("GET /api/measurements", api.HandleMeasurements)
	mux.HandleFunc("GET /api/stats", api.HandleStats)
	mux.HandleFunc("GET /api/thresholds", api.HandleThresholds)
	mux.HandleFunc("POST /api/thresholds", api.requireToken(api.HandleConfigureThreshold))
	mux.HandleFunc("GET /api/alarms", api.HandleAlarms)
	mux.HandleFunc("POST /api/save", api.requireToken(api.HandleSave))
	mux.HandleFunc("POST /api/load", api.requireToken(api.HandleLoad))
	if api.opts.SubscriberList != nil {
		mux.HandleFunc("GET /api/subscribers", api.requireToken(api.HandleSubscribers))
	}
}

// requireToken rejects requests without a valid bearer token
func (api *APIHandler) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !validateToken(r.Header.Get("Authorization"), api.opts.AuthToken) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
			return
		}
		next(w, r)
	}
}

// HealthResponse is returned by /health
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	SessionID    string `json:"session_id"`
	Measurements int    `json:"measurements"`
	Subscribers  int    `json:"subscribers"`
	Uptime       string `json:"uptime"`
}

// HandleHealth reports liveness and basic session counters
func (api *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:       "ok",
		Version:      api.opts.Version,
		SessionID:    api.monitor.ID(),
		Measurements: api.monitor.Len(),
		Uptime:       time.Since(api.started).Round(time.Second).String(),
	}
	if api.opts.Subscribers != nil {
		resp.Subscribers = api.opts.Subscribers()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSensors returns the configured sensors
func (api *APIHandler) HandleSensors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.monitor.Sensors())
}

// HandleReadings takes one reading per sensor
func (api *APIHandler) HandleReadings(w http.ResponseWriter, r *http.Request) {
	cycle := api.monitor.TakeReadings()
	api.logger.Info().
		Int("measurements", len(cycle.Measurements)).
		Int("alarms", len(cycle.Alarms)).
		Msg("Readings taken")
	writeJSON(w, http.StatusOK, cycle)
}

// HandleMeasurements returns the log, optionally filtered by ?sensor=
func (api *APIHandler) HandleMeasurements(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("sensor"); name != "" {
		writeJSON(w, http.StatusOK, api.monitor.SensorMeasurements(name))
		return
	}
	writeJSON(w, http.StatusOK, api.monitor.Measurements())
}

// HandleStats returns per-sensor statistics, optionally for one ?sensor=
func (api *APIHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("sensor")
	if name == "" {
		writeJSON(w, http.StatusOK, api.monitor.Statistics())
		return
	}

	sum, err := api.monitor.SensorStatistics(name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleThresholds returns every configured threshold, or the one for ?sensor=
func (api *APIHandler) HandleThresholds(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("sensor")
	if name == "" {
		writeJSON(w, http.StatusOK, api.monitor.Thresholds())
		return
	}

	t, err := api.monitor.Threshold(name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ThresholdRequest is the body of POST /api/thresholds
type ThresholdRequest struct {
	Sensor    string   `json:"sensor"`
	Limit     *float64 `json:"limit"`
	Direction string   `json:"direction"`
}

// HandleConfigureThreshold sets or replaces a sensor's threshold
func (api *APIHandler) HandleConfigureThreshold(w http.ResponseWriter, r *http.Request) {
	var req ThresholdRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Limit == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "limit is required")
		return
	}
	dir, err := models.ParseDirection(req.Direction)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	t, err := api.monitor.ConfigureThreshold(req.Sensor, *req.Limit, dir)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleAlarms returns the alarm log
func (api *APIHandler) HandleAlarms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.monitor.Alarms())
}

// HandleSubscribers lists the connected feed subscribers
func (api *APIHandler) HandleSubscribers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.opts.SubscriberList())
}

// FileRequest is the body of the save and load endpoints
type FileRequest struct {
	File string `json:"file"`
}

// SaveResponse is returned by a successful save
type SaveResponse struct {
	File         string `json:"file"`
	Measurements int    `json:"measurements"`
}

// LoadResponse is returned by a successful load
type LoadResponse struct {
	File    string `json:"file"`
	Loaded  int    `json:"loaded"`
	Skipped int    `json:"skipped"`
}

// HandleSave writes the log to a file inside the data directory
func (api *APIHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	name, ok := api.resolveFile(w, r)
	if !ok {
		return
	}
	if err := os.MkdirAll(api.opts.DataDir, 0755); err != nil {
		api.logger.Error().Err(err).Msg("Failed to create data directory")
		writeError(w, http.StatusInternalServerError, "io_error", "could not create data directory")
		return
	}

	if err := api.monitor.Save(filepath.Join(api.opts.DataDir, name)); err != nil {
		api.logger.Error().Err(err).Str("file", name).Msg("Save failed")
		writeError(w, http.StatusInternalServerError, "io_error", "could not write file")
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{File: name, Measurements: api.monitor.Len()})
}

// HandleLoad appends the rows of a file inside the data directory
func (api *APIHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	name, ok := api.resolveFile(w, r)
	if !ok {
		return
	}

	res, err := api.monitor.Load(filepath.Join(api.opts.DataDir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, "not_found", "file not found")
			return
		}
		api.logger.Error().Err(err).Str("file", name).Msg("Load failed")
		writeError(w, http.StatusInternalServerError, "io_error", "could not read file")
		return
	}
	writeJSON(w, http.StatusOK, LoadResponse{File: name, Loaded: res.Loaded, Skipped: res.Skipped})
}

// resolveFile reads the optional file name and confines it to the data directory
func (api *APIHandler) resolveFile(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req FileRequest
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return "", false
	}
	if req.File == "" {
		req.File = api.opts.DefaultFile
	}

	name := filepath.Base(req.File)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid file name")
		return "", false
	}
	return name, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeServiceError maps session errors to HTTP status codes
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, monitor.ErrUnknownSensor):
		writeError(w, http.StatusNotFound, "unknown_sensor", err.Error())
	case errors.Is(err, monitor.ErrNoThreshold):
		writeError(w, http.StatusNotFound, "no_threshold", err.Error())
	case errors.Is(err, models.ErrInvalidDirection):
		writeError(w, http.StatusBadRequest, "invalid_direction", err.Error())
	default:
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, models.ErrorMessage{Code: code, Message: message})
}
