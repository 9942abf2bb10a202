package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/deque"

	"github.com/afroash/multisensor/internal/models"
)

// EventBuffer is a thread-safe bounded queue of feed messages
type EventBuffer struct {
	events     deque.Deque[*models.Message]
	capacity   int
	dropOldest bool
	mutex      sync.RWMutex
	stats      BufferStats
	ready      chan struct{}
}

// BufferStats tracks buffer usage statistics
type BufferStats struct {
	TotalPushed   int64
	TotalDropped  int64
	HighWaterMark int
	LastPushTime  time.Time
	LastDropTime  time.Time
}

// NewEventBuffer creates a new event buffer with given capacity
func NewEventBuffer(capacity int, dropOldest bool) *EventBuffer {
	if capacity < 1 {
		capacity = 1
	}
	b := &EventBuffer{
		capacity:   capacity,
		dropOldest: dropOldest,
		ready:      make(chan struct{}, 1),
	}
	b.events.SetBaseCap(min(capacity, 64))
	return b
}

// Push adds a message to the buffer.
// Returns false if the message was dropped (when full and dropOldest=false)
func (b *EventBuffer) Push(msg *models.Message) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.events.Len() >= b.capacity {
		b.stats.TotalDropped++
		b.stats.LastDropTime = time.Now()
		if !b.dropOldest {
			return false
		}
		b.events.PopFront()
	}
	b.events.PushBack(msg)
	b.stats.TotalPushed++
	b.stats.LastPushTime = time.Now()

	if b.events.Len() > b.stats.HighWaterMark {
		b.stats.HighWaterMark = b.events.Len()
	}

	select {
	case b.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready receives a value after a Push. A single signal may cover several messages.
func (b *EventBuffer) Ready() <-chan struct{} {
	return b.ready
}

// PopBatch removes and returns up to n messages, oldest first
func (b *EventBuffer) PopBatch(n int) []*models.Message {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	count := min(n, b.events.Len())
	if count <= 0 {
		return nil
	}
	result := make([]*models.Message, count)
	for i := range result {
		result[i] = b.events.PopFront()
	}
	return result
}

// Peek returns up to n messages without removing them
func (b *EventBuffer) Peek(n int) []*models.Message {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	count := min(n, b.events.Len())
	if count <= 0 {
		return nil
	}
	result := make([]*models.Message, count)
	for i := range result {
		result[i] = b.events.At(i)
	}
	return result
}

// Size returns the current number of messages in the buffer
func (b *EventBuffer) Size() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.events.Len()
}

// IsFull returns true if buffer is at capacity
func (b *EventBuffer) IsFull() bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.events.Len() >= b.capacity
}

// IsEmpty returns true if buffer has no messages
func (b *EventBuffer) IsEmpty() bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.events.Len() == 0
}

// Clear removes all messages and resets the counters
func (b *EventBuffer) Clear() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.events.Clear()
	b.stats = BufferStats{}
}

// Capacity returns the maximum capacity of the buffer
func (b *EventBuffer) Capacity() int {
	// capacity is fixed at construction
	return b.capacity
}

// Stats returns a copy of current buffer statistics
func (b *EventBuffer) Stats() BufferStats {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.stats
}

// String returns a human-readable representation of buffer state
func (b *EventBuffer) String() string {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	mode := "drop-newest"
	if b.dropOldest {
		mode = "drop-oldest"
	}
	return fmt.Sprintf("Buffer[%d/%d, dropped: %d, mode: %s]",
		b.events.Len(),
		b.capacity,
		b.stats.TotalDropped,
		mode,
	)
}
