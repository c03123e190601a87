package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const DefaultRoom = "general"

// Sink accepts serialized outbound messages for one connection.
// Send must not block; an error means the connection can no longer be served.
type Sink interface {
	Send(data []byte) error
	Close() error
}

type ConnectionInfo struct {
	ClientID    string    `json:"client_id"`
	UserID      string    `json:"user_id,omitempty"`
	Room        string    `json:"room"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Notification is what producers submit, over HTTP or the queue.
type Notification struct {
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload"`
	Timestamp string         `json:"timestamp,omitempty"`
	Source    string         `json:"source,omitempty"`
}

var ErrMissingEvent = errors.New("event is required")

func (n Notification) Validate() error {
	if strings.TrimSpace(n.Event) == "" {
		return ErrMissingEvent
	}
	return nil
}

type NotificationRecord struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload"`
	Timestamp string         `json:"timestamp"`
	Source    string         `json:"source"`
}

type Stats struct {
	TotalConnections       int                  `json:"total_connections"`
	Rooms                  map[string]int       `json:"rooms"`
	Clients                []ConnectionInfo     `json:"clients"`
	RecentNotifications    []NotificationRecord `json:"recent_notifications"`
	TotalNotificationsSent uint64               `json:"total_notifications_sent"`
	DeliveryFailures       uint64               `json:"delivery_failures"`
}

// DecodeNotification parses a producer request body. Numbers keep their
// literal form so identifiers are not rounded through float64.
func DecodeNotification(r io.Reader) (Notification, error) {
	var n Notification
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	if err := n.Validate(); err != nil {
		return Notification{}, err
	}
	return n, nil
}
