package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerSettings contains HTTP API and feed server configuration
type ServerSettings struct {
	Port           int           `yaml:"port"`
	Host           string        `yaml:"host"`
	AuthToken      string        `yaml:"auth_token"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	PongTimeout    time.Duration `yaml:"pong_timeout"`
	SendBuffer     int           `yaml:"send_buffer"`
}

// FeedSettings contains the feed watcher's connection settings
type FeedSettings struct {
	URL                  string        `yaml:"url"`
	AuthToken            string        `yaml:"auth_token"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	ReconnectInterval    time.Duration `yaml:"reconnect_interval"`
	MaxReconnectInterval time.Duration `yaml:"max_reconnect_interval"`
	BufferSize           int           `yaml:"buffer_size"`
}

func (s *ServerSettings) applyDefaults() {
	if s.Port == 0 {
		s.Port = 8081
	}
	if s.Host == "" {
		s.Host = "localhost"
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 60 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 10 * time.Second
	}
	if s.PingInterval == 0 {
		s.PingInterval = 30 * time.Second
	}
	if s.PongTimeout == 0 {
		s.PongTimeout = 60 * time.Second
	}
	if s.SendBuffer == 0 {
		s.SendBuffer = 64
	}
}

func (s *ServerSettings) overrideFromEnv() {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			s.Port = port
		}
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		s.Host = v
	}
	if v := os.Getenv("SERVER_AUTH_TOKEN"); v != "" {
		s.AuthToken = v
	}
}

// Validate checks if server configuration is valid
func (s *ServerSettings) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if s.AuthToken == "" {
		return fmt.Errorf("auth token is required")
	}
	if s.PongTimeout <= s.PingInterval {
		return fmt.Errorf("pong timeout must be longer than ping interval")
	}
	if s.SendBuffer < 1 {
		return fmt.Errorf("send buffer must be at least 1")
	}
	return nil
}

// Address returns the host:port the server listens on
func (s *ServerSettings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (f *FeedSettings) applyDefaults() {
	if f.ConnectTimeout == 0 {
		f.ConnectTimeout = 10 * time.Second
	}
	if f.ReconnectInterval == 0 {
		f.ReconnectInterval = 1 * time.Second
	}
	if f.MaxReconnectInterval == 0 {
		f.MaxReconnectInterval = 5 * time.Minute
	}
	if f.BufferSize == 0 {
		f.BufferSize = 1000
	}
}

func (f *FeedSettings) overrideFromEnv() {
	if v := os.Getenv("FEED_URL"); v != "" {
		f.URL = v
	}
	if v := os.Getenv("FEED_AUTH_TOKEN"); v != "" {
		f.AuthToken = v
	}
}

// Validate checks if the feed settings are usable by a watcher
func (f *FeedSettings) Validate() error {
	if f.URL == "" {
		return fmt.Errorf("feed URL is required")
	}
	if !strings.HasPrefix(f.URL, "ws://") && !strings.HasPrefix(f.URL, "wss://") {
		return fmt.Errorf("feed URL must start with ws:// or wss://")
	}
	if f.AuthToken == "" {
		return fmt.Errorf("feed auth token is required")
	}
	if f.ReconnectInterval < 100*time.Millisecond {
		return fmt.Errorf("reconnect interval must be at least 100ms")
	}
	if f.MaxReconnectInterval < f.ReconnectInterval {
		return fmt.Errorf("max reconnect interval must not be shorter than reconnect interval")
	}
	if f.BufferSize < 10 || f.BufferSize > 100000 {
		return fmt.Errorf("buffer size must be between 10 and 100000")
	}
	return nil
}
