package websocket

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/4NDR3S-01/ExposIA/domain"
	"github.com/4NDR3S-01/ExposIA/hub"
)

const (
	DefaultWriteWait      = 10 * time.Second
	DefaultPongWait       = 60 * time.Second
	DefaultMaxMessageSize = 4096
	DefaultSendQueue      = 256
)

var (
	ErrClosed        = errors.New("connection closed")
	ErrSendQueueFull = errors.New("send queue full")
)

type Config struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendQueue      int
}

func DefaultConfig() Config {
	return Config{
		WriteWait:      DefaultWriteWait,
		PongWait:       DefaultPongWait,
		MaxMessageSize: DefaultMaxMessageSize,
		SendQueue:      DefaultSendQueue,
	}
}

func (c Config) pingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

// Dispatcher is the part of the hub a socket talks to.
type Dispatcher interface {
	Connect(clientID, userID, room string, sink domain.Sink) hub.Handle
	Release(handle hub.Handle) bool
	HandleClientMessage(handle hub.Handle, data []byte)
}

// Conn adapts a gorilla connection to the hub's Sink. Outbound messages go
// through a bounded queue drained by writePump.
type Conn struct {
	clientID   string
	userID     string
	room       string
	ws         *websocket.Conn
	cfg        Config
	dispatcher Dispatcher
	logger     *slog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
	handle hub.Handle
}

func NewConn(clientID, userID, room string, ws *websocket.Conn, d Dispatcher, cfg Config, logger *slog.Logger) *Conn {
	defaults := DefaultConfig()
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaults.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaults.PongWait
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if cfg.SendQueue < 1 {
		cfg.SendQueue = defaults.SendQueue
	}
	return &Conn{
		clientID:   clientID,
		userID:     userID,
		room:       room,
		ws:         ws,
		cfg:        cfg,
		dispatcher: d,
		logger:     logger.With("component", "websocket", "clientId", clientID),
		send:       make(chan []byte, cfg.SendQueue),
	}
}

func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close stops accepting messages. Queued messages are still flushed before
// the close frame is written.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return nil
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) Start() {
	c.handle = c.dispatcher.Connect(c.clientID, c.userID, c.room, c)
	go c.writePump()
	go c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		c.dispatcher.Release(c.handle)
		c.Close()
		c.ws.Close()
	}()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("read error", "error", err)
			}
			return
		}
		// a displaced or released socket may still be flushing; its frames are dropped
		if c.isClosed() {
			return
		}

		c.dispatcher.HandleClientMessage(c.handle, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.pingPeriod())
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("write error", "error", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
