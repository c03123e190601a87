package hub

import (
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/4NDR3S-01/ExposIA/domain"
	"github.com/4NDR3S-01/ExposIA/protocol"
	"github.com/4NDR3S-01/ExposIA/routing"
)

const (
	DefaultRecentSize = 10
	defaultSource     = "unknown"
)

// Handle identifies one session of a client id. A reconnect with the same
// client id gets a new session, so releasing an old handle is harmless.
type Handle struct {
	ClientID string
	Session  string
}

type Option func(*Hub)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) { h.logger = logger.With("component", "hub") }
}

func WithHistorySize(n int) Option {
	return func(h *Hub) { h.history = NewHistory(n) }
}

func WithRecentSize(n int) Option {
	return func(h *Hub) { h.recentSize = n }
}

// Hub is the single owner of connection, room and history state. One mutex
// covers all of it and is never held while writing to a sink.
type Hub struct {
	mu         sync.Mutex
	registry   *Registry
	rooms      *Directory
	history    *History
	router     *routing.Router
	recentSize int
	submitted  uint64

	failures atomic.Uint64
	logger   *slog.Logger
}

func New(router *routing.Router, opts ...Option) *Hub {
	h := &Hub{
		registry:   NewRegistry(),
		rooms:      NewDirectory(),
		history:    NewHistory(DefaultHistorySize),
		router:     router,
		recentSize: DefaultRecentSize,
		logger:     slog.Default().With("component", "hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type delivery struct {
	clientID string
	session  string
	sink     domain.Sink
	data     []byte
}

func (h *Hub) Connect(clientID, userID, room string, sink domain.Sink) Handle {
	if room == "" {
		room = domain.DefaultRoom
	}
	conn := &connection{
		clientID:    clientID,
		userID:      userID,
		room:        room,
		session:     uuid.NewString(),
		connectedAt: time.Now().UTC(),
		sink:        sink,
	}

	h.mu.Lock()
	var out []delivery
	prev, displaced := h.registry.Register(conn)
	if displaced {
		h.rooms.Leave(prev.room, clientID)
		out = h.plan(out, routing.Room(prev.room), protocol.UserLeft(clientID, prev.room))
	}
	h.rooms.Join(room, clientID)
	out = h.planDirect(out, conn, protocol.ConnectionEstablished(clientID, room))
	out = h.plan(out, routing.RoomExcluding(room, clientID), protocol.UserJoined(clientID, room))
	total := h.registry.Len()
	h.mu.Unlock()

	if displaced {
		_ = prev.sink.Close()
		h.logger.Info("client displaced", "clientId", clientID, "room", prev.room)
	}
	h.logger.Info("client connected", "clientId", clientID, "userId", userID, "room", room, "clients", total)

	h.deliver(out)
	return Handle{ClientID: clientID, Session: conn.session}
}

// Disconnect removes clientID whatever its session. It reports whether a
// connection was removed; repeated calls are no-ops.
func (h *Hub) Disconnect(clientID string) bool {
	h.mu.Lock()
	conn, ok := h.registry.Unregister(clientID)
	if !ok {
		h.mu.Unlock()
		return false
	}
	out := h.detach(conn)
	h.mu.Unlock()

	h.finish(conn, out)
	return true
}

// Release disconnects the session behind handle if it is still current.
func (h *Hub) Release(handle Handle) bool {
	h.mu.Lock()
	conn, ok := h.registry.UnregisterSession(handle.ClientID, handle.Session)
	if !ok {
		h.mu.Unlock()
		return false
	}
	out := h.detach(conn)
	h.mu.Unlock()

	h.finish(conn, out)
	return true
}

func (h *Hub) detach(conn *connection) []delivery {
	h.rooms.Leave(conn.room, conn.clientID)
	return h.plan(nil, routing.Room(conn.room), protocol.UserLeft(conn.clientID, conn.room))
}

func (h *Hub) finish(conn *connection, out []delivery) {
	_ = conn.sink.Close()
	h.logger.Info("client disconnected", "clientId", conn.clientID, "room", conn.room)
	h.deliver(out)
}

// HandleClientMessage processes one frame read by the session behind handle.
// Frames from a session that has been displaced or released are dropped.
// Problems with the frame are reported to the sender only.
func (h *Hub) HandleClientMessage(handle Handle, data []byte) {
	clientID := handle.ClientID
	msg, err := protocol.Decode(data)

	h.mu.Lock()
	conn, ok := h.registry.Get(clientID)
	if !ok || conn.session != handle.Session {
		h.mu.Unlock()
		h.logger.Debug("message from stale session", "clientId", clientID)
		return
	}

	var out []delivery
	switch {
	case err != nil:
		out = h.planDirect(out, conn, protocol.InvalidFormat())
	case msg.Type == protocol.TypePing:
		out = h.planDirect(out, conn, protocol.Pong())
	case msg.Type == protocol.TypeJoinRoom:
		room := msg.Room
		if room == "" {
			room = domain.DefaultRoom
		}
		h.rooms.Move(clientID, conn.room, room)
		h.registry.SetRoom(clientID, room)
		out = h.planDirect(out, conn, protocol.RoomChanged(room))
	case msg.Type == protocol.TypeChatMessage:
		out = h.plan(out, routing.RoomExcluding(conn.room, clientID), protocol.ChatMessage(clientID, conn.room, msg.Message))
	default:
		out = h.planDirect(out, conn, protocol.UnknownType(msg.Type))
	}
	h.mu.Unlock()

	if err != nil {
		h.logger.Warn("invalid message", "clientId", clientID, "error", err)
	}
	h.deliver(out)
}

// Submit records n in history and delivers it to whoever the router selects.
// Delivery is best effort; Submit never fails.
func (h *Hub) Submit(n domain.Notification) domain.NotificationRecord {
	rec := domain.NotificationRecord{
		ID:        uuid.NewString(),
		Event:     n.Event,
		Payload:   maps.Clone(n.Payload),
		Timestamp: n.Timestamp,
		Source:    n.Source,
	}
	if rec.Payload == nil {
		rec.Payload = map[string]any{}
	}
	if rec.Timestamp == "" {
		rec.Timestamp = protocol.Now()
	}
	if rec.Source == "" {
		rec.Source = defaultSource
	}

	target := h.router.Route(rec.Event, rec.Payload)
	msg := protocol.SystemNotification(rec.Event, rec.Payload, rec.Timestamp, rec.Source)

	h.mu.Lock()
	h.history.Append(rec)
	h.submitted++
	out := h.plan(nil, target, msg)
	h.mu.Unlock()

	h.logger.Info("notification processed", "event", rec.Event, "source", rec.Source, "target", target.String(), "recipients", len(out))
	h.deliver(out)
	return rec
}

func (h *Hub) Stats() domain.Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	return domain.Stats{
		TotalConnections:       h.registry.Len(),
		Rooms:                  h.rooms.Counts(),
		Clients:                h.registry.All(),
		RecentNotifications:    h.history.Recent(h.recentSize),
		TotalNotificationsSent: h.submitted,
		DeliveryFailures:       h.failures.Load(),
	}
}

func (h *Hub) History() []domain.NotificationRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.history.All()
}

func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Len()
}

// OccupiedRooms counts rooms with at least one live connection.
func (h *Hub) OccupiedRooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.registry.CountByRoom())
}

// Shutdown closes every live connection. Sinks are closed without the
// usual user_left broadcasts since everyone is leaving.
func (h *Hub) Shutdown() int {
	h.mu.Lock()
	var conns []*connection
	h.registry.each(func(c *connection) { conns = append(conns, c) })
	for _, conn := range conns {
		h.registry.Unregister(conn.clientID)
		h.rooms.Leave(conn.room, conn.clientID)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.sink.Close()
	}
	h.logger.Info("hub shut down", "closed", len(conns))
	return len(conns)
}

// plan appends one delivery per connection selected by target. Callers hold mu.
func (h *Hub) plan(out []delivery, target routing.Target, msg protocol.Outbound) []delivery {
	data, err := msg.Encode()
	if err != nil {
		h.logger.Error("encode message", "type", msg.Type, "error", err)
		return out
	}
	for _, conn := range h.resolve(target) {
		out = append(out, delivery{clientID: conn.clientID, session: conn.session, sink: conn.sink, data: data})
	}
	return out
}

func (h *Hub) planDirect(out []delivery, conn *connection, msg protocol.Outbound) []delivery {
	data, err := msg.Encode()
	if err != nil {
		h.logger.Error("encode message", "type", msg.Type, "error", err)
		return out
	}
	return append(out, delivery{clientID: conn.clientID, session: conn.session, sink: conn.sink, data: data})
}

func (h *Hub) resolve(target routing.Target) []*connection {
	switch target.Kind {
	case routing.ToUser:
		return h.registry.ByUser(target.UserID)
	case routing.ToAll:
		conns := make([]*connection, 0, h.registry.Len())
		h.registry.each(func(c *connection) { conns = append(conns, c) })
		return conns
	case routing.ToRoom, routing.ToRoomExcluding:
		var conns []*connection
		for _, id := range h.rooms.MembersOf(target.Room) {
			if target.Kind == routing.ToRoomExcluding && id == target.Exclude {
				continue
			}
			if conn, ok := h.registry.Get(id); ok {
				conns = append(conns, conn)
			}
		}
		return conns
	default:
		return nil
	}
}

// deliver writes to each sink outside the lock. A failed sink is retired
// once the whole batch has been attempted.
func (h *Hub) deliver(out []delivery) {
	var failed []Handle
	seen := make(map[Handle]struct{})
	for _, d := range out {
		handle := Handle{ClientID: d.clientID, Session: d.session}
		if _, dead := seen[handle]; dead {
			continue
		}
		if err := d.sink.Send(d.data); err != nil {
			h.logger.Warn("send failed", "clientId", d.clientID, "error", err)
			seen[handle] = struct{}{}
			failed = append(failed, handle)
		}
	}
	for _, handle := range failed {
		if h.Release(handle) {
			h.failures.Add(1)
		}
	}
}
