package config

import (
	"time"

	"github.com/4NDR3S-01/ExposIA/hub"
	"github.com/4NDR3S-01/ExposIA/routing"
	"github.com/4NDR3S-01/ExposIA/websocket"
)

// Default values for optional configuration fields.
const (
	DefaultAddr            = ":9000"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultToken           = "dev"
	DefaultAMQPQueue       = "notifications"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.Auth.Token == "" {
		c.Auth.Token = DefaultToken
	}

	if c.Hub.HistorySize == 0 {
		c.Hub.HistorySize = hub.DefaultHistorySize
	}
	if c.Hub.RecentSize == 0 {
		c.Hub.RecentSize = hub.DefaultRecentSize
	}

	if c.WebSocket.SendQueue == 0 {
		c.WebSocket.SendQueue = websocket.DefaultSendQueue
	}
	if c.WebSocket.WriteWait == 0 {
		c.WebSocket.WriteWait = websocket.DefaultWriteWait
	}
	if c.WebSocket.PongWait == 0 {
		c.WebSocket.PongWait = websocket.DefaultPongWait
	}
	if c.WebSocket.MaxMessageSize == 0 {
		c.WebSocket.MaxMessageSize = websocket.DefaultMaxMessageSize
	}
	if len(c.WebSocket.AllowedOrigins) == 0 {
		c.WebSocket.AllowedOrigins = []string{"*"}
	}

	if c.Routing.UserEventPrefix == "" {
		c.Routing.UserEventPrefix = routing.DefaultUserEventPrefix
	}
	if len(c.Routing.UserFields) == 0 {
		c.Routing.UserFields = routing.DefaultUserFields
	}
	if len(c.Routing.GlobalEvents) == 0 {
		c.Routing.GlobalEvents = routing.DefaultGlobalEvents
	}
	if len(c.Routing.TopicFields) == 0 {
		c.Routing.TopicFields = routing.DefaultTopicFields
	}
	if c.Routing.TopicRoomPrefix == "" {
		c.Routing.TopicRoomPrefix = routing.DefaultTopicRoomPrefix
	}

	if c.AMQP.Queue == "" {
		c.AMQP.Queue = DefaultAMQPQueue
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// RouterOptions converts the routing section for routing.NewStandard.
func (c *Config) RouterOptions() routing.Options {
	return routing.Options{
		UserEventPrefix: c.Routing.UserEventPrefix,
		UserFields:      c.Routing.UserFields,
		GlobalEvents:    c.Routing.GlobalEvents,
		TopicFields:     c.Routing.TopicFields,
		TopicRoomPrefix: c.Routing.TopicRoomPrefix,
	}
}

func (c *Config) SocketConfig() websocket.Config {
	return websocket.Config{
		WriteWait:      c.WebSocket.WriteWait,
		PongWait:       c.WebSocket.PongWait,
		MaxMessageSize: c.WebSocket.MaxMessageSize,
		SendQueue:      c.WebSocket.SendQueue,
	}
}
