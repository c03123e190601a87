package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if strings.TrimSpace(c.Auth.Token) == "" {
		return errors.New("auth.token is required")
	}

	if c.Hub.HistorySize < 1 {
		return fmt.Errorf("hub.history_size must be >= 1, got %d", c.Hub.HistorySize)
	}
	if c.Hub.RecentSize < 0 {
		return fmt.Errorf("hub.recent_size must be >= 0, got %d", c.Hub.RecentSize)
	}
	if c.Hub.RecentSize > c.Hub.HistorySize {
		return fmt.Errorf("hub.recent_size (%d) cannot exceed history_size (%d)", c.Hub.RecentSize, c.Hub.HistorySize)
	}

	if c.WebSocket.SendQueue < 1 {
		return errors.New("websocket.send_queue must be >= 1")
	}
	if c.WebSocket.WriteWait <= 0 {
		return errors.New("websocket.write_wait must be positive")
	}
	if c.WebSocket.PongWait <= 0 {
		return errors.New("websocket.pong_wait must be positive")
	}
	if c.WebSocket.MaxMessageSize < 1 {
		return errors.New("websocket.max_message_size must be >= 1")
	}

	if c.AMQP.Enabled && c.AMQP.URL == "" {
		return errors.New("amqp.url is required when amqp is enabled")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}
