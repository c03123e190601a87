// Package config loads the hub's settings from an optional YAML file and
// the environment.
package config

import "time"

// Config is the root configuration of the notification hub.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Hub       HubConfig       `yaml:"hub"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Routing   RoutingConfig   `yaml:"routing"`
	AMQP      AMQPConfig      `yaml:"amqp"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig holds the token producers present on /notify.
type AuthConfig struct {
	Token string `yaml:"token"`
}

type HubConfig struct {
	HistorySize int `yaml:"history_size"`
	RecentSize  int `yaml:"recent_size"`
}

type WebSocketConfig struct {
	SendQueue      int           `yaml:"send_queue"`
	WriteWait      time.Duration `yaml:"write_wait"`
	PongWait       time.Duration `yaml:"pong_wait"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type RoutingConfig struct {
	UserEventPrefix string   `yaml:"user_event_prefix"`
	UserFields      []string `yaml:"user_fields"`
	GlobalEvents    []string `yaml:"global_events"`
	TopicFields     []string `yaml:"topic_fields"`
	TopicRoomPrefix string   `yaml:"topic_room_prefix"`
}

// AMQPConfig enables the optional RabbitMQ ingress.
type AMQPConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Queue   string `yaml:"queue"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
