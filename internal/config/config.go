// Package config provides configuration for the chat client and the relay.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Client holds the chat client configuration.
type Client struct {
	// Relay settings
	RelayURL       string        `env:"CHAT_RELAY_URL,default=ws://localhost:5050/ws"`
	Username       string        `env:"CHAT_USERNAME"`
	ConnectTimeout time.Duration `env:"CHAT_CONNECT_TIMEOUT,default=0s"`

	// WebSocket settings
	WriteTimeout   time.Duration `env:"WS_WRITE_TIMEOUT,default=10s"`
	ReadTimeout    time.Duration `env:"WS_READ_TIMEOUT,default=0s"`
	MaxMessageSize int64         `env:"WS_MAX_MESSAGE_SIZE,default=65536"`

	// Session settings
	EventBuffer int `env:"CHAT_EVENT_BUFFER,default=64"`

	// Output
	Colours  bool   `env:"CHAT_COLOURS,default=true"`
	LogLevel string `env:"LOG_LEVEL,default=WARN"`
}

// Relay holds the reference relay configuration.
type Relay struct {
	// Server settings
	WSPort   int `env:"RELAY_PORT,default=5050"`
	HTTPPort int `env:"RELAY_HTTP_PORT,default=5051"`

	// WebSocket settings
	PingInterval   time.Duration `env:"WS_PING_INTERVAL,default=30s"`
	WriteTimeout   time.Duration `env:"WS_WRITE_TIMEOUT,default=10s"`
	ReadTimeout    time.Duration `env:"WS_READ_TIMEOUT,default=60s"`
	MaxMessageSize int64         `env:"WS_MAX_MESSAGE_SIZE,default=65536"`
	SendBuffer     int           `env:"RELAY_SEND_BUFFER,default=256"`

	// Logging
	LogLevel string `env:"LOG_LEVEL,default=INFO"`
}

// ClientOption adjusts a loaded client configuration before it is validated.
type ClientOption func(*Client)

// LoadClient loads client configuration from the environment and an optional .env file.
// Options run after the environment is read, so they take precedence.
func LoadClient(opts ...ClientOption) (*Client, error) {
	_ = godotenv.Load()
	var cfg Client
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadRelay loads relay configuration from the environment and an optional .env file.
func LoadRelay() (*Relay, error) {
	_ = godotenv.Load()
	var cfg Relay
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) Validate() error {
	var errs []error
	if c.RelayURL == "" {
		errs = append(errs, errors.New("CHAT_RELAY_URL must not be empty"))
	}
	if c.ConnectTimeout < 0 || c.WriteTimeout < 0 || c.ReadTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.MaxMessageSize <= 0 {
		errs = append(errs, errors.New("WS_MAX_MESSAGE_SIZE must be positive"))
	}
	if c.EventBuffer <= 0 {
		errs = append(errs, errors.New("CHAT_EVENT_BUFFER must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Relay) Validate() error {
	var errs []error
	if c.WSPort <= 0 || c.HTTPPort <= 0 {
		errs = append(errs, errors.New("ports must be positive"))
	}
	if c.WSPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("RELAY_PORT and RELAY_HTTP_PORT are both %d", c.WSPort))
	}
	if c.PingInterval <= 0 || c.WriteTimeout <= 0 || c.ReadTimeout <= 0 {
		errs = append(errs, errors.New("WebSocket intervals must be positive"))
	}
	if c.PingInterval >= c.ReadTimeout {
		errs = append(errs, errors.New("WS_PING_INTERVAL must be shorter than WS_READ_TIMEOUT"))
	}
	if c.MaxMessageSize <= 0 || c.SendBuffer <= 0 {
		errs = append(errs, errors.New("WS_MAX_MESSAGE_SIZE and RELAY_SEND_BUFFER must be positive"))
	}
	return errors.Join(errs...)
}
