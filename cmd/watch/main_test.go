package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/multisensor/internal/client"
	"github.com/afroash/multisensor/internal/models"
	"github.com/afroash/multisensor/internal/monitor"
	"github.com/afroash/multisensor/internal/sensor"
	"github.com/afroash/multisensor/internal/server"
)

// syncBuffer lets the drain goroutine and the test share output
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func mustMessage(t *testing.T, msgType models.MessageType, payload interface{}) *models.Message {
	t.Helper()
	msg, err := models.NewMessage(msgType, payload)
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}
	return msg
}

func TestPrintEvent(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)
	m := models.NewMeasurement("Temperature", 31, "°C", ts)
	th := models.Threshold{SensorName: "Temperature", Limit: 30, Direction: models.DirectionOver}

	tests := []struct {
		name string
		msg  *models.Message
		want string
	}{
		{"hello", mustMessage(t, models.MessageTypeHello, models.HelloMessage{
			SessionID: "abc",
			Sensors:   []models.SensorInfo{{Name: "Temperature", Kind: "temperature", Unit: "°C", Min: 10, Max: 35}},
		}), "Connected to session abc (1 sensors)"},
		{"measurement", mustMessage(t, models.MessageTypeMeasurement, m), m.String()},
		{"alarm", mustMessage(t, models.MessageTypeAlarm, models.NewAlarm(m, th)), " ALARM TRIGGERED! "},
		{"threshold", mustMessage(t, models.MessageTypeThreshold, th), "Threshold configured for Temperature: > 30"},
		{"error", mustMessage(t, models.MessageTypeError, models.ErrorMessage{Code: "x", Message: "boom"}), "server error x: boom"},
		{"unknown", &models.Message{Type: "bogus", Payload: []byte("{}")}, `unknown event type "bogus"`},
		{"malformed", &models.Message{Type: models.MessageTypeAlarm, Payload: []byte("[")}, "malformed alarm event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			printEvent(&out, tt.msg)
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("printEvent output = %q, want it to contain %q", out.String(), tt.want)
			}
		})
	}
}

// TestWatchFeed runs a server session and a watcher end to end
func TestWatchFeed(t *testing.T) {
	const token = "watch-token-1234"

	temp, err := sensor.NewTemperatureSensor("Temperature", 31, 31)
	if err != nil {
		t.Fatalf("failed to create sensor: %v", err)
	}
	reg, err := sensor.NewRegistry(temp)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	m := server.NewSerialized(monitor.NewSession(reg, zerolog.Nop()))
	feed := server.NewFeed(token, m, zerolog.Nop(), server.FeedOptions{})
	m.Subscribe(feed)

	mux := http.NewServeMux()
	mux.Handle("/feed", feed)
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer feed.Close()

	events := client.NewEventBuffer(100, true)
	conn := client.NewConnection(client.ConnectionConfig{
		URL:       "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed",
		AuthToken: token,
	}, events, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := &syncBuffer{}
	go drain(ctx, events, out)
	go conn.Run(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for feed.Count() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("watcher never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := m.ConfigureThreshold("Temperature", 30, models.DirectionOver); err != nil {
		t.Fatalf("ConfigureThreshold failed: %v", err)
	}
	m.TakeReadings()

	for !strings.Contains(out.String(), "ALARM TRIGGERED!") {
		if time.Now().After(deadline) {
			t.Fatalf("alarm never printed; output:\n%s", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}

	got := out.String()
	for _, want := range []string{"Connected to session " + m.ID(), "Threshold configured for Temperature", "Temperature"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	conn.Close()
}
