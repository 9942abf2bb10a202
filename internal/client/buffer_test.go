package client

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/afroash/multisensor/internal/models"
)

func newEvent(t testing.TB, value float64) *models.Message {
	t.Helper()
	m := models.NewMeasurement("Temperature", value, "°C", time.Now())
	msg, err := models.NewMessage(models.MessageTypeMeasurement, m)
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}
	return msg
}

func valueOf(t *testing.T, msg *models.Message) float64 {
	t.Helper()
	var m models.Measurement
	if err := msg.UnmarshalPayload(&m); err != nil {
		t.Fatalf("UnmarshalPayload failed: %v", err)
	}
	return m.Value
}

func TestNewEventBuffer(t *testing.T) {
	buf := NewEventBuffer(100, true)

	if buf == nil {
		t.Fatal("NewEventBuffer returned nil")
	}
	if buf.Capacity() != 100 {
		t.Errorf("Capacity = %d, want 100", buf.Capacity())
	}
	if buf.Size() != 0 {
		t.Errorf("Initial size = %d, want 0", buf.Size())
	}
	if !buf.IsEmpty() {
		t.Error("New buffer should be empty")
	}

	if NewEventBuffer(0, true).Capacity() != 1 {
		t.Error("capacity below 1 should be raised to 1")
	}
}

func TestBuffer_PushAndSize(t *testing.T) {
	buf := NewEventBuffer(10, true)

	if !buf.Push(newEvent(t, 22.5)) {
		t.Error("Push failed on empty buffer")
	}
	if buf.Size() != 1 {
		t.Errorf("Size = %d, want 1", buf.Size())
	}
	if buf.IsEmpty() {
		t.Error("Buffer should not be empty after push")
	}
}

func TestBuffer_PopBatch(t *testing.T) {
	buf := NewEventBuffer(10, true)
	for i := 0; i < 5; i++ {
		buf.Push(newEvent(t, float64(20+i)))
	}

	events := buf.PopBatch(3)
	if len(events) != 3 {
		t.Fatalf("PopBatch(3) returned %d events, want 3", len(events))
	}
	if buf.Size() != 2 {
		t.Errorf("Size after pop = %d, want 2", buf.Size())
	}

	// oldest first
	if v := valueOf(t, events[0]); v != 20.0 {
		t.Errorf("First popped value = %v, want 20.0", v)
	}
	if v := valueOf(t, events[2]); v != 22.0 {
		t.Errorf("Third popped value = %v, want 22.0", v)
	}
}

func TestBuffer_PopBatch_MoreThanAvailable(t *testing.T) {
	buf := NewEventBuffer(10, true)
	for i := 0; i < 3; i++ {
		buf.Push(newEvent(t, 22.0))
	}

	events := buf.PopBatch(10)
	if len(events) != 3 {
		t.Errorf("PopBatch(10) with 3 available returned %d, want 3", len(events))
	}
	if !buf.IsEmpty() {
		t.Error("Buffer should be empty after popping all")
	}
	if got := buf.PopBatch(5); got != nil {
		t.Errorf("PopBatch on empty buffer = %v, want nil", got)
	}
}

func TestBuffer_Peek(t *testing.T) {
	buf := NewEventBuffer(10, true)
	for i := 0; i < 5; i++ {
		buf.Push(newEvent(t, float64(20+i)))
	}

	events := buf.Peek(3)
	if len(events) != 3 {
		t.Fatalf("Peek(3) returned %d events, want 3", len(events))
	}
	if buf.Size() != 5 {
		t.Errorf("Size after peek = %d, want 5 (unchanged)", buf.Size())
	}
	if v := valueOf(t, events[0]); v != 20.0 {
		t.Errorf("First peeked value = %v, want 20.0", v)
	}
}

func TestBuffer_DropOldest(t *testing.T) {
	buf := NewEventBuffer(3, true)
	for i := 0; i < 3; i++ {
		buf.Push(newEvent(t, float64(20+i)))
	}
	if !buf.IsFull() {
		t.Error("Buffer should be full")
	}

	if !buf.Push(newEvent(t, 99.0)) {
		t.Error("drop-oldest Push should always accept the new event")
	}
	if !buf.IsFull() {
		t.Error("Buffer should still be full")
	}

	events := buf.PopBatch(3)
	if v := valueOf(t, events[0]); v != 21.0 {
		t.Errorf("After drop-oldest, first value = %v, want 21.0", v)
	}
	if v := valueOf(t, events[2]); v != 99.0 {
		t.Errorf("After drop-oldest, last value = %v, want 99.0", v)
	}
}

func TestBuffer_DropNewest(t *testing.T) {
	buf := NewEventBuffer(3, false)
	for i := 0; i < 3; i++ {
		buf.Push(newEvent(t, float64(20+i)))
	}

	if buf.Push(newEvent(t, 99.0)) {
		t.Error("Push should return false when buffer full and drop-newest")
	}

	events := buf.PopBatch(3)
	if v := valueOf(t, events[2]); v != 22.0 {
		t.Errorf("Last value = %v, want 22.0 (99.0 should be dropped)", v)
	}
}

func TestBuffer_Clear(t *testing.T) {
	buf := NewEventBuffer(10, true)
	for i := 0; i < 5; i++ {
		buf.Push(newEvent(t, 22.0))
	}

	buf.Clear()

	if !buf.IsEmpty() {
		t.Error("Buffer should be empty after Clear()")
	}
	if buf.Stats().TotalPushed != 0 {
		t.Errorf("TotalPushed after clear = %d, want 0", buf.Stats().TotalPushed)
	}
}

func TestBuffer_Stats(t *testing.T) {
	buf := NewEventBuffer(3, true)
	for i := 0; i < 5; i++ {
		buf.Push(newEvent(t, 22.0))
	}

	stats := buf.Stats()
	if stats.TotalPushed != 5 {
		t.Errorf("TotalPushed = %d, want 5", stats.TotalPushed)
	}
	if stats.TotalDropped != 2 {
		t.Errorf("TotalDropped = %d, want 2", stats.TotalDropped)
	}
	if stats.HighWaterMark != 3 {
		t.Errorf("HighWaterMark = %d, want 3", stats.HighWaterMark)
	}
	if stats.LastPushTime.IsZero() || stats.LastDropTime.IsZero() {
		t.Error("LastPushTime and LastDropTime should be set")
	}
}

func TestBuffer_Ready(t *testing.T) {
	buf := NewEventBuffer(10, true)

	select {
	case <-buf.Ready():
		t.Fatal("Ready fired before any push")
	default:
	}

	buf.Push(newEvent(t, 1))
	buf.Push(newEvent(t, 2))

	select {
	case <-buf.Ready():
	case <-time.After(time.Second):
		t.Fatal("Ready did not fire after push")
	}
	if buf.Size() != 2 {
		t.Errorf("Size = %d, want 2", buf.Size())
	}
}

func TestBuffer_String(t *testing.T) {
	buf := NewEventBuffer(2, false)
	buf.Push(newEvent(t, 1))
	buf.Push(newEvent(t, 2))
	buf.Push(newEvent(t, 3))

	want := fmt.Sprintf("Buffer[%d/%d, dropped: %d, mode: %s]", 2, 2, 1, "drop-newest")
	if got := buf.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestBuffer_ThreadSafety(t *testing.T) {
	buf := NewEventBuffer(1000, true)
	msg := newEvent(t, 22.0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf.Push(msg)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				buf.PopBatch(10)
				time.Sleep(time.Millisecond)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf.Size()
				buf.Peek(5)
				buf.IsFull()
				buf.Stats()
			}
		}()
	}
	wg.Wait()

	if buf.Stats().TotalPushed != 1000 {
		t.Errorf("TotalPushed = %d, want 1000", buf.Stats().TotalPushed)
	}
	t.Logf("Final buffer state: %s", buf.String())
}

func BenchmarkBuffer_Push(b *testing.B) {
	buf := NewEventBuffer(10000, true)
	msg := newEvent(b, 22.5)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Push(msg)
	}
}
