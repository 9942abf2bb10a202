package storage

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/multisensor/internal/models"
)

// Journal appends measurements to a CSV file in the background, batching
// writes. The file uses the same format as Save and can be loaded back.
// It implements monitor.Observer.
type Journal struct {
	path        string
	logger      zerolog.Logger
	writeChan   chan models.Measurement
	batchSize   int
	flushPeriod time.Duration
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup

	// Stats
	mu            sync.RWMutex
	totalWritten  int64
	totalBatches  int64
	totalErrors   int64
	totalDropped  int64
	lastWriteTime time.Time
}

// JournalConfig holds configuration for the journal
type JournalConfig struct {
	BatchSize   int           // rows per append (default: 100)
	FlushPeriod time.Duration // max time between appends (default: 5s)
	ChannelSize int           // queued rows before new ones are dropped (default: 1000)
}

// DefaultJournalConfig returns sensible defaults
func DefaultJournalConfig() JournalConfig {
	return JournalConfig{
		BatchSize:   100,
		FlushPeriod: 5 * time.Second,
		ChannelSize: 1000,
	}
}

// JournalStats contains statistics about the journal
type JournalStats struct {
	TotalWritten  int64     `json:"total_written"`
	TotalBatches  int64     `json:"total_batches"`
	TotalErrors   int64     `json:"total_errors"`
	TotalDropped  int64     `json:"total_dropped"`
	LastWriteTime time.Time `json:"last_write_time,omitempty"`
	QueueLength   int       `json:"queue_length"`
}

// NewJournal starts a journal appending to path
func NewJournal(path string, config JournalConfig, logger zerolog.Logger) *Journal {
	def := DefaultJournalConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.FlushPeriod <= 0 {
		config.FlushPeriod = def.FlushPeriod
	}
	if config.ChannelSize <= 0 {
		config.ChannelSize = def.ChannelSize
	}

	j := &Journal{
		path:        path,
		logger:      logger.With().Str("journal", path).Logger(),
		writeChan:   make(chan models.Measurement, config.ChannelSize),
		batchSize:   config.BatchSize,
		flushPeriod: config.FlushPeriod,
		stopChan:    make(chan struct{}),
	}

	j.wg.Add(1)
	go j.writerLoop()

	j.logger.Info().
		Int("batch_size", config.BatchSize).
		Dur("flush_period", config.FlushPeriod).
		Int("channel_size", config.ChannelSize).
		Msg("Journal started")

	return j
}

// Write queues a measurement. Returns false if it was dropped because the
// queue is full or the journal is stopped.
func (j *Journal) Write(m models.Measurement) bool {
	select {
	case <-j.stopChan:
		return false
	default:
	}

	select {
	case j.writeChan <- m:
		return true
	default:
		j.mu.Lock()
		j.totalDropped++
		j.mu.Unlock()
		j.logger.Warn().Str("sensor", m.SensorName).Msg("Journal queue full, dropping measurement")
		return false
	}
}

// OnMeasurement queues every stored measurement
func (j *Journal) OnMeasurement(m models.Measurement) {
	j.Write(m)
}

// OnAlarm is a no-op; alarms are not journaled
func (j *Journal) OnAlarm(models.Alarm) {}

// OnThreshold is a no-op
func (j *Journal) OnThreshold(models.Threshold) {}

// writerLoop is the background goroutine that batches and appends rows
func (j *Journal) writerLoop() {
	defer j.wg.Done()

	batch := make([]models.Measurement, 0, j.batchSize)
	ticker := time.NewTicker(j.flushPeriod)
	defer ticker.Stop()

	for {
		select {
		case m := <-j.writeChan:
			batch = append(batch, m)
			if len(batch) >= j.batchSize {
				j.flush(batch)
				batch = make([]models.Measurement, 0, j.batchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				j.flush(batch)
				batch = make([]models.Measurement, 0, j.batchSize)
			}

		case <-j.stopChan:
			// Drain remaining rows from channel
			for draining := true; draining; {
				select {
				case m := <-j.writeChan:
					batch = append(batch, m)
				default:
					draining = false
				}
			}
			if len(batch) > 0 {
				j.flush(batch)
			}
			j.logger.Info().Msg("Journal stopped")
			return
		}
	}
}

// flush appends a batch to the journal file
func (j *Journal) flush(batch []models.Measurement) {
	err := AppendCSV(j.path, batch)

	j.mu.Lock()
	defer j.mu.Unlock()
	if err != nil {
		j.totalErrors++
		j.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("Failed to append batch")
		return
	}
	j.totalWritten += int64(len(batch))
	j.totalBatches++
	j.lastWriteTime = time.Now()
	j.logger.Debug().Int("count", len(batch)).Msg("Flushed batch")
}

// Stop flushes any queued rows and stops the writer. It is safe to call
// more than once.
func (j *Journal) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopChan)
		j.wg.Wait()
	})
}

// Stats returns current journal statistics
func (j *Journal) Stats() JournalStats {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return JournalStats{
		TotalWritten:  j.totalWritten,
		TotalBatches:  j.totalBatches,
		TotalErrors:   j.totalErrors,
		TotalDropped:  j.totalDropped,
		LastWriteTime: j.lastWriteTime,
		QueueLength:   len(j.writeChan),
	}
}
