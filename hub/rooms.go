package hub

import (
	"sort"

	"github.com/4NDR3S-01/ExposIA/domain"
)

// Directory tracks room membership. Rooms are created on first join and
// kept when they empty out; the default room exists from the start.
type Directory struct {
	rooms map[string]map[string]struct{}
}

func NewDirectory() *Directory {
	return &Directory{
		rooms: map[string]map[string]struct{}{
			domain.DefaultRoom: {},
		},
	}
}

func (d *Directory) Join(room, clientID string) {
	members, ok := d.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		d.rooms[room] = members
	}
	members[clientID] = struct{}{}
}

func (d *Directory) Leave(room, clientID string) {
	if members, ok := d.rooms[room]; ok {
		delete(members, clientID)
	}
}

func (d *Directory) Move(clientID, from, to string) {
	d.Leave(from, clientID)
	d.Join(to, clientID)
}

// MembersOf returns a sorted copy of the room's members.
func (d *Directory) MembersOf(room string) []string {
	members := d.rooms[room]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (d *Directory) Counts() map[string]int {
	counts := make(map[string]int, len(d.rooms))
	for room, members := range d.rooms {
		counts[room] = len(members)
	}
	return counts
}
