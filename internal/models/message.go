package models

import (
	"encoding/json"
	"time"
)

// MessageType represents the type of a feed message
type MessageType string

const (
	MessageTypeHello       MessageType = "hello"
	MessageTypeMeasurement MessageType = "measurement"
	MessageTypeAlarm       MessageType = "alarm"
	MessageTypeThreshold   MessageType = "threshold"
	MessageTypeError       MessageType = "error"
)

// Message is the envelope for all feed communications
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the given type and payload
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadJSON,
		Timestamp: time.Now(),
	}, nil
}

// HelloMessage is the payload for MessageTypeHello, sent once per subscription
type HelloMessage struct {
	SessionID    string       `json:"session_id"`
	SubscriberID string       `json:"subscriber_id"`
	Sensors      []SensorInfo `json:"sensors"`
}

// ErrorMessage is the payload for MessageTypeError
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UnmarshalPayload unmarshals the message payload into the provided struct
func (m *Message) UnmarshalPayload(v interface{}) error {
	err := json.Unmarshal(m.Payload, v)
	if err != nil {
		return err
	}
	return nil
}
