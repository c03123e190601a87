package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Inbound
		wantErr bool
	}{
		{name: "ping", data: `{"type":"ping"}`, want: Inbound{Type: TypePing}},
		{name: "join room", data: `{"type":"join_room","room":"topic_5"}`, want: Inbound{Type: TypeJoinRoom, Room: "topic_5"}},
		{name: "chat", data: `{"type":"chat_message","message":"hi"}`, want: Inbound{Type: TypeChatMessage, Message: "hi"}},
		{name: "missing type", data: `{}`, want: Inbound{}},
		{name: "not json", data: `not json`, wantErr: true},
		{name: "json array", data: `[1,2]`, wantErr: true},
		{name: "json scalar", data: `"ping"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.data))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutbound_Encode(t *testing.T) {
	data, err := ChatMessage("a", "general", "hi").Encode()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "chat_message", got["type"])
	assert.Equal(t, "a", got["client_id"])
	assert.Equal(t, "hi", got["message"])
	assert.Equal(t, "general", got["room"])
	assert.NotEmpty(t, got["timestamp"])
	assert.NotContains(t, got, "event")
	assert.NotContains(t, got, "payload")
}

func TestChatMessage_KeepsEmptyMessage(t *testing.T) {
	data, err := ChatMessage("a", "general", "").Encode()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	require.Contains(t, got, "message")
	assert.Equal(t, "", got["message"])

	data, err = Pong().Encode()
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"message"`)
}

func TestSystemNotification_KeepsEmptyPayload(t *testing.T) {
	data, err := SystemNotification("x.y", nil, "2025-01-01T00:00:00Z", "svc").Encode()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "system_notification", got["type"])
	assert.Equal(t, map[string]any{}, got["payload"])
	assert.Equal(t, "svc", got["source"])
	assert.Equal(t, "2025-01-01T00:00:00Z", got["timestamp"])
}

func TestUnknownType(t *testing.T) {
	msg := UnknownType("dance")
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, msg.Message, "dance")
}
