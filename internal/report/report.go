// Package report renders measurements, statistics and alarms as plain text
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/afroash/multisensor/internal/models"
	"github.com/afroash/multisensor/internal/storage"
)

// EmptyLog is printed instead of a table when nothing has been recorded
const EmptyLog = "No measurements recorded."

const ruleWidth = 53

// Source is the read-only view of a session the renderers need
type Source interface {
	Len() int
	Measurements() []models.Measurement
	SensorMeasurements(name string) []models.Measurement
	Statistics() []storage.Summary
}

// Measurements prints the full log as a fixed-width table
func Measurements(w io.Writer, src Source) {
	fmt.Fprintln(w, "\n--- ALL MEASUREMENTS ---")
	if src.Len() == 0 {
		fmt.Fprintln(w, EmptyLog)
		return
	}

	fmt.Fprintf(w, "%-20s%-15s%10s%8s\n", "Timestamp", "Sensor", "Value", "Unit")
	fmt.Fprintln(w, strings.Repeat("-", ruleWidth))
	for _, m := range src.Measurements() {
		fmt.Fprintf(w, "%-20s%-15s%10.2f%8s\n", m.Timestamp, m.SensorName, m.Value, m.Unit)
	}
}

// Statistics prints every sensor's measurements followed by its summary
func Statistics(w io.Writer, src Source) {
	fmt.Fprintln(w, "\n--- STATISTICS PER SENSOR ---")
	if src.Len() == 0 {
		fmt.Fprintln(w, EmptyLog)
		return
	}

	for _, sum := range src.Statistics() {
		SensorStatistics(w, sum, src.SensorMeasurements(sum.Sensor))
	}
}

// SensorStatistics prints one sensor's measurements and summary
func SensorStatistics(w io.Writer, sum storage.Summary, ms []models.Measurement) {
	fmt.Fprintf(w, "--- %s ---\n", sum.Sensor)
	for _, m := range ms {
		fmt.Fprintf(w, "%s, %4.2f %s\n", m.Timestamp, m.Value, m.Unit)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Count: %d\n", sum.Count)
	fmt.Fprintf(w, "Average: %.2f\n", sum.Average)
	fmt.Fprintf(w, "Minimum value: %s\n", optional(sum.Min))
	fmt.Fprintf(w, "Maximum value: %s\n", optional(sum.Max))
	fmt.Fprintf(w, "Standard Deviation: %.2f\n\n", sum.StdDeviation)
}

// Cycle prints the measurements of one read cycle and any alarms it raised
func Cycle(w io.Writer, ms []models.Measurement, alarms []models.Alarm) {
	for _, m := range ms {
		fmt.Fprintln(w, m.String())
	}
	for _, a := range alarms {
		fmt.Fprintf(w, " ALARM TRIGGERED! %s\n", a.String())
	}
}

// Alarms prints the alarm log
func Alarms(w io.Writer, alarms []models.Alarm) {
	fmt.Fprintln(w, "\n--- ALARMS ---")
	if len(alarms) == 0 {
		fmt.Fprintln(w, "No alarms triggered.")
		return
	}
	for _, a := range alarms {
		fmt.Fprintln(w, a.String())
	}
	fmt.Fprintf(w, "\nTotal alarms: %d\n", len(alarms))
}

// Thresholds prints the configured thresholds
func Thresholds(w io.Writer, thresholds []models.Threshold) {
	if len(thresholds) == 0 {
		fmt.Fprintln(w, "No thresholds configured.")
		return
	}
	for _, t := range thresholds {
		fmt.Fprintf(w, "%s: %s %.2f\n", t.SensorName, t.Direction.Symbol(), t.Limit)
	}
}

func optional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
