// Package protocol defines the JSON messages exchanged with WebSocket clients.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	TypePing        = "ping"
	TypeJoinRoom    = "join_room"
	TypeChatMessage = "chat_message"

	TypeConnectionEstablished = "connection_established"
	TypeUserJoined            = "user_joined"
	TypeUserLeft              = "user_left"
	TypePong                  = "pong"
	TypeRoomChanged           = "room_changed"
	TypeSystemNotification    = "system_notification"
	TypeError                 = "error"
)

var ErrMalformed = errors.New("malformed message")

// Inbound is a client-originated control message.
type Inbound struct {
	Type    string `json:"type"`
	Room    string `json:"room,omitempty"`
	Message string `json:"message,omitempty"`
}

func Decode(data []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return msg, nil
}

// Outbound is every server-originated message. Fields not used by Type are
// left empty and omitted on the wire.
type Outbound struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	Room      string `json:"room,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Event     string `json:"event,omitempty"`
	Payload   any    `json:"payload,omitempty"`
	Source    string `json:"source,omitempty"`
	Timestamp string `json:"timestamp"`
}

// chatFrame is Outbound with message always present, so an empty chat line
// still carries "message":"".
type chatFrame struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Room      string `json:"room,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Event     string `json:"event,omitempty"`
	Payload   any    `json:"payload,omitempty"`
	Source    string `json:"source,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (o Outbound) Encode() ([]byte, error) {
	if o.Type == TypeChatMessage {
		return json.Marshal(chatFrame(o))
	}
	return json.Marshal(o)
}

// Now is the timestamp format used on every outbound message.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func ConnectionEstablished(clientID, room string) Outbound {
	return Outbound{
		Type:      TypeConnectionEstablished,
		Message:   fmt.Sprintf("connected as %s", clientID),
		Room:      room,
		ClientID:  clientID,
		Timestamp: Now(),
	}
}

func UserJoined(clientID, room string) Outbound {
	return Outbound{
		Type:      TypeUserJoined,
		Message:   fmt.Sprintf("user %s joined the room", clientID),
		Room:      room,
		ClientID:  clientID,
		Timestamp: Now(),
	}
}

func UserLeft(clientID, room string) Outbound {
	return Outbound{
		Type:      TypeUserLeft,
		Message:   fmt.Sprintf("user %s left the room", clientID),
		Room:      room,
		ClientID:  clientID,
		Timestamp: Now(),
	}
}

func Pong() Outbound {
	return Outbound{Type: TypePong, Timestamp: Now()}
}

func RoomChanged(room string) Outbound {
	return Outbound{
		Type:      TypeRoomChanged,
		Message:   fmt.Sprintf("joined room %s", room),
		Room:      room,
		Timestamp: Now(),
	}
}

func ChatMessage(clientID, room, text string) Outbound {
	return Outbound{
		Type:      TypeChatMessage,
		Message:   text,
		Room:      room,
		ClientID:  clientID,
		Timestamp: Now(),
	}
}

func SystemNotification(event string, payload map[string]any, timestamp, source string) Outbound {
	if payload == nil {
		payload = map[string]any{}
	}
	return Outbound{
		Type:      TypeSystemNotification,
		Event:     event,
		Payload:   payload,
		Source:    source,
		Timestamp: timestamp,
	}
}

func Error(message string) Outbound {
	return Outbound{Type: TypeError, Message: message, Timestamp: Now()}
}

func InvalidFormat() Outbound {
	return Error("invalid message format: expected a JSON object")
}

func UnknownType(kind string) Outbound {
	return Error(fmt.Sprintf("unrecognized message type: %q", kind))
}
