package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/afroash/multisensor/internal/models"
)

// Constants for WebSocket timeouts
const (
	writeWait = 10 * time.Second
)

// FeedSource supplies the session details sent in the hello message
type FeedSource interface {
	ID() string
	Sensors() []models.SensorInfo
}

// FeedOptions tunes the feed's keepalive and buffering
type FeedOptions struct {
	AllowedOrigins []string
	PingInterval   time.Duration
	PongWait       time.Duration
	SendBuffer     int
}

// Feed broadcasts session events to WebSocket subscribers.
// It implements monitor.Observer.
type Feed struct {
	upgrader    websocket.Upgrader
	authToken   string
	source      FeedSource
	logger      zerolog.Logger
	opts        FeedOptions
	subscribers map[string]*subscriber
	mutex       sync.RWMutex
}

// subscriber represents an active feed connection
type subscriber struct {
	id          string
	conn        *websocket.Conn
	send        chan *models.Message
	connectedAt time.Time
	dropped     int
}

// SubscriberInfo describes a connected subscriber
type SubscriberInfo struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
	Dropped     int       `json:"dropped"`
}

// NewFeed creates a new feed handler
func NewFeed(authToken string, source FeedSource, logger zerolog.Logger, opts FeedOptions) *Feed {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.PongWait <= opts.PingInterval {
		opts.PongWait = 2 * opts.PingInterval
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}

	f := &Feed{
		authToken:   authToken,
		source:      source,
		logger:      logger,
		opts:        opts,
		subscribers: make(map[string]*subscriber),
	}
	f.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     f.checkOrigin,
	}
	return f
}

// checkOrigin validates the incoming request's Origin against the configured allowlist
func (f *Feed) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	// No Origin header means same-origin request
	if origin == "" {
		return true
	}
	for _, allowed := range f.opts.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	f.logger.Warn().Str("origin", origin).Msg("Rejected feed connection: origin not in allowlist")
	return false
}

// ServeHTTP upgrades the request and streams events until the subscriber leaves
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !validateToken(r.Header.Get("Authorization"), f.authToken) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	sub := &subscriber{
		id:          uuid.NewString(),
		conn:        conn,
		send:        make(chan *models.Message, f.opts.SendBuffer),
		connectedAt: time.Now(),
	}

	hello, err := models.NewMessage(models.MessageTypeHello, models.HelloMessage{
		SessionID:    f.source.ID(),
		SubscriberID: sub.id,
		Sensors:      f.source.Sensors(),
	})
	if err != nil {
		f.logger.Error().Err(err).Msg("Failed to create hello message")
		conn.Close()
		return
	}
	sub.send <- hello

	f.mutex.Lock()
	f.subscribers[sub.id] = sub
	f.mutex.Unlock()
	f.logger.Info().Str("subscriber_id", sub.id).Str("remote", conn.RemoteAddr().String()).Msg("Subscriber connected")

	go f.writePump(sub)
	f.readPump(sub)
}

// readPump keeps the read deadline alive and notices disconnects.
// Subscribers are not expected to send anything.
func (f *Feed) readPump(sub *subscriber) {
	defer f.remove(sub.id)

	sub.conn.SetReadDeadline(time.Now().Add(f.opts.PongWait))
	sub.conn.SetPongHandler(func(string) error {
		sub.conn.SetReadDeadline(time.Now().Add(f.opts.PongWait))
		return nil
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				f.logger.Warn().Err(err).Str("subscriber_id", sub.id).Msg("WebSocket error")
			}
			return
		}
	}
}

// writePump is the only goroutine writing to the connection
func (f *Feed) writePump(sub *subscriber) {
	ticker := time.NewTicker(f.opts.PingInterval)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
				return
			}
			if err := sub.conn.WriteJSON(msg); err != nil {
				f.logger.Warn().Err(err).Str("subscriber_id", sub.id).Msg("Failed to send message")
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// remove unregisters a subscriber and closes its send channel
func (f *Feed) remove(id string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	sub, exists := f.subscribers[id]
	if !exists {
		return
	}
	delete(f.subscribers, id)
	close(sub.send)
	f.logger.Info().Str("subscriber_id", id).Int("dropped", sub.dropped).Msg("Subscriber disconnected")
}

// broadcast queues msg for every subscriber, dropping it for any whose
// buffer is full
func (f *Feed) broadcast(msgType models.MessageType, payload interface{}) {
	msg, err := models.NewMessage(msgType, payload)
	if err != nil {
		f.logger.Error().Err(err).Str("type", string(msgType)).Msg("Failed to create feed message")
		return
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()
	for _, sub := range f.subscribers {
		select {
		case sub.send <- msg:
		default:
			sub.dropped++
			f.logger.Debug().Str("subscriber_id", sub.id).Str("type", string(msgType)).Msg("Subscriber buffer full, message dropped")
		}
	}
}

// OnMeasurement broadcasts a stored measurement
func (f *Feed) OnMeasurement(m models.Measurement) {
	f.broadcast(models.MessageTypeMeasurement, m)
}

// OnAlarm broadcasts a raised alarm
func (f *Feed) OnAlarm(a models.Alarm) {
	f.broadcast(models.MessageTypeAlarm, a)
}

// OnThreshold broadcasts a threshold change
func (f *Feed) OnThreshold(t models.Threshold) {
	f.broadcast(models.MessageTypeThreshold, t)
}

// Subscribers returns the currently connected subscribers
func (f *Feed) Subscribers() []SubscriberInfo {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	out := make([]SubscriberInfo, 0, len(f.subscribers))
	for _, sub := range f.subscribers {
		out = append(out, SubscriberInfo{
			ID:          sub.id,
			RemoteAddr:  sub.conn.RemoteAddr().String(),
			ConnectedAt: sub.connectedAt,
			Dropped:     sub.dropped,
		})
	}
	return out
}

// Count returns the number of connected subscribers
func (f *Feed) Count() int {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return len(f.subscribers)
}

// Close disconnects every subscriber
func (f *Feed) Close() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	for id, sub := range f.subscribers {
		delete(f.subscribers, id)
		close(sub.send)
	}
}
