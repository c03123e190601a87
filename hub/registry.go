package hub

import (
	"sort"
	"time"

	"github.com/4NDR3S-01/ExposIA/domain"
)

type connection struct {
	clientID    string
	userID      string
	room        string
	session     string
	connectedAt time.Time
	sink        domain.Sink
}

func (c *connection) info() domain.ConnectionInfo {
	return domain.ConnectionInfo{
		ClientID:    c.clientID,
		UserID:      c.userID,
		Room:        c.room,
		ConnectedAt: c.connectedAt,
	}
}

// Registry owns the live connections keyed by client id. It is not safe for
// concurrent use; Hub serializes access.
type Registry struct {
	conns map[string]*connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*connection)}
}

// Register installs conn, returning the connection it displaced, if any.
func (r *Registry) Register(conn *connection) (*connection, bool) {
	prev, displaced := r.conns[conn.clientID]
	r.conns[conn.clientID] = conn
	return prev, displaced
}

func (r *Registry) Unregister(clientID string) (*connection, bool) {
	conn, ok := r.conns[clientID]
	if !ok {
		return nil, false
	}
	delete(r.conns, clientID)
	return conn, true
}

// UnregisterSession removes clientID only while it still belongs to session.
func (r *Registry) UnregisterSession(clientID, session string) (*connection, bool) {
	conn, ok := r.conns[clientID]
	if !ok || conn.session != session {
		return nil, false
	}
	delete(r.conns, clientID)
	return conn, true
}

func (r *Registry) Get(clientID string) (*connection, bool) {
	conn, ok := r.conns[clientID]
	return conn, ok
}

func (r *Registry) SetRoom(clientID, room string) bool {
	conn, ok := r.conns[clientID]
	if !ok {
		return false
	}
	conn.room = room
	return true
}

func (r *Registry) ByUser(userID string) []*connection {
	if userID == "" {
		return nil
	}
	var out []*connection
	for _, conn := range r.conns {
		if conn.userID == userID {
			out = append(out, conn)
		}
	}
	return out
}

func (r *Registry) All() []domain.ConnectionInfo {
	out := make([]domain.ConnectionInfo, 0, len(r.conns))
	for _, conn := range r.conns {
		out = append(out, conn.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out
}

func (r *Registry) CountByRoom() map[string]int {
	counts := make(map[string]int)
	for _, conn := range r.conns {
		counts[conn.room]++
	}
	return counts
}

func (r *Registry) Len() int {
	return len(r.conns)
}

func (r *Registry) each(fn func(*connection)) {
	for _, conn := range r.conns {
		fn(conn)
	}
}
