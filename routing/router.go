// Package routing decides which connections a notification is delivered to.
//
// Decisions come from an ordered rule table evaluated first-match-wins, so a
// new event category is a new Rule rather than a new branch in the hub.
package routing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/4NDR3S-01/ExposIA/domain"
)

type Kind int

const (
	ToUser Kind = iota + 1
	ToAll
	ToRoom
	ToRoomExcluding
)

func (k Kind) String() string {
	switch k {
	case ToUser:
		return "user"
	case ToAll:
		return "all"
	case ToRoom:
		return "room"
	case ToRoomExcluding:
		return "room_excluding"
	default:
		return "unknown"
	}
}

// Target is the resolved destination of a message. Only the fields that
// belong to Kind are meaningful.
type Target struct {
	Kind    Kind
	UserID  string
	Room    string
	Exclude string
}

func User(id string) Target { return Target{Kind: ToUser, UserID: id} }

func All() Target { return Target{Kind: ToAll} }

func Room(name string) Target { return Target{Kind: ToRoom, Room: name} }

func RoomExcluding(name, clientID string) Target {
	return Target{Kind: ToRoomExcluding, Room: name, Exclude: clientID}
}

func (t Target) String() string {
	switch t.Kind {
	case ToUser:
		return "user:" + t.UserID
	case ToRoom:
		return "room:" + t.Room
	case ToRoomExcluding:
		return "room:" + t.Room + "-" + t.Exclude
	default:
		return t.Kind.String()
	}
}

// Rule reports a target when it applies to the event.
type Rule struct {
	Name  string
	Match func(event string, payload map[string]any) (Target, bool)
}

type Router struct {
	rules    []Rule
	fallback Target
}

// New builds a router evaluating rules in order. Events no rule claims go
// to the default room.
func New(rules ...Rule) *Router {
	return &Router{
		rules:    rules,
		fallback: Room(domain.DefaultRoom),
	}
}

func (r *Router) Route(event string, payload map[string]any) Target {
	for _, rule := range r.rules {
		if target, ok := rule.Match(event, payload); ok {
			return target
		}
	}
	return r.fallback
}

func (r *Router) Rules() []string {
	names := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		names = append(names, rule.Name)
	}
	return names
}

// UserScoped targets the user named by the first present field, for events
// carrying prefix.
func UserScoped(prefix string, fields ...string) Rule {
	return Rule{
		Name: "user_scoped",
		Match: func(event string, payload map[string]any) (Target, bool) {
			if !strings.HasPrefix(event, prefix) {
				return Target{}, false
			}
			id, ok := lookupID(payload, fields)
			if !ok {
				return Target{}, false
			}
			return User(id), true
		},
	}
}

func GlobalEvents(events ...string) Rule {
	set := make(map[string]struct{}, len(events))
	for _, e := range events {
		set[e] = struct{}{}
	}
	return Rule{
		Name: "global",
		Match: func(event string, _ map[string]any) (Target, bool) {
			if _, ok := set[event]; ok {
				return All(), true
			}
			return Target{}, false
		},
	}
}

func TopicScoped(roomPrefix string, fields ...string) Rule {
	return Rule{
		Name: "topic_scoped",
		Match: func(_ string, payload map[string]any) (Target, bool) {
			id, ok := lookupID(payload, fields)
			if !ok {
				return Target{}, false
			}
			return Room(roomPrefix + id), true
		},
	}
}

func lookupID(payload map[string]any, fields []string) (string, bool) {
	for _, field := range fields {
		v, ok := payload[field]
		if !ok {
			continue
		}
		if id, ok := FormatID(v); ok {
			return id, true
		}
	}
	return "", false
}

// FormatID renders an identifier taken from a decoded JSON payload. Integral
// floats lose their fraction so 7 and 7.0 name the same user.
func FormatID(v any) (string, bool) {
	switch id := v.(type) {
	case nil:
		return "", false
	case string:
		return id, id != ""
	case json.Number:
		return id.String(), true
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(id), 'f', -1, 32), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(id), true
	case bool:
		return strconv.FormatBool(id), true
	default:
		return "", false
	}
}
