package storage

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/afroash/multisensor/internal/models"
)

// CSVHeader is written as the first line of every saved file
const CSVHeader = "timestamp,sensor,value,unit"

const (
	fieldCount  = 4
	bom         = "\ufeff"
	maxRowBytes = 64 * 1024
)

// LoadResult reports how many rows a load appended and how many it skipped
type LoadResult struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// Save writes the full log to path, replacing any existing file
func (l *Log) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for writing: %w", path, err)
	}

	if err := l.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// WriteCSV writes the header followed by one row per measurement
func (l *Log) WriteCSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(CSVHeader + "\n"); err != nil {
		return err
	}
	if err := writeRows(bw, l.measurements); err != nil {
		return err
	}
	return bw.Flush()
}

func writeRows(w io.Writer, ms []models.Measurement) error {
	for _, m := range ms {
		if _, err := fmt.Fprintf(w, "%s,%s,%.2f,%s\n", m.Timestamp, m.SensorName, m.Value, m.Unit); err != nil {
			return err
		}
	}
	return nil
}

// AppendCSV appends rows to the file at path, writing the header first
// when the file is new or empty. Missing parent directories are created.
func AppendCSV(path string, ms []models.Measurement) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s for appending: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	bw := bufio.NewWriter(f)
	if info.Size() == 0 {
		if _, err := bw.WriteString(CSVHeader + "\n"); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	if err := writeRows(bw, ms); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// Load appends the rows of the file at path to the log.
// The log is left untouched if the file cannot be opened or read.
func (l *Log) Load(path string) (LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to open %s for reading: %w", path, err)
	}
	defer f.Close()

	res, err := l.ReadCSV(f)
	if err != nil {
		return res, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return res, nil
}

// ReadCSV parses rows from r and appends the valid ones.
// Malformed rows are skipped individually.
func (l *Log) ReadCSV(r io.Reader) (LoadResult, error) {
	var (
		res    LoadResult
		staged []models.Measurement
		first  = true
	)

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return LoadResult{}, err
		}
		if line == "" && err == io.EOF {
			break
		}

		line = strings.TrimRight(line, "\r\n")
		if first {
			first = false
			line = strings.TrimPrefix(line, bom)
			if isHeader(line) {
				continue
			}
		}
		switch {
		case strings.TrimSpace(line) == "":
		case len(line) > maxRowBytes:
			res.Skipped++
		default:
			if m, ok := parseRow(line); ok {
				staged = append(staged, m)
			} else {
				res.Skipped++
			}
		}
		if err == io.EOF {
			break
		}
	}

	for _, m := range staged {
		l.Add(m)
	}
	res.Loaded = len(staged)
	return res, nil
}

func isHeader(line string) bool {
	field, _, _ := strings.Cut(line, ",")
	return strings.TrimSpace(field) == "timestamp"
}

// parseRow converts one data line into a measurement
func parseRow(line string) (models.Measurement, bool) {
	fields := strings.Split(line, ",")
	if len(fields) != fieldCount {
		return models.Measurement{}, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
		if fields[i] == "" {
			return models.Measurement{}, false
		}
	}

	value, err := strconv.ParseFloat(fields[2], 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return models.Measurement{}, false
	}

	return models.Measurement{
		Timestamp:  fields[0],
		SensorName: fields[1],
		Value:      value,
		Unit:       fields[3],
	}, true
}
