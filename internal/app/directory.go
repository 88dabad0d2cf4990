package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/beamlink/signaling/internal/domain"
)

// RoomInfo is a read-only view for the status surface.
type RoomInfo struct {
	ID          domain.RoomID `json:"room_id"`
	MemberCount int           `json:"member_count"`
}

// Directory owns the mapping from a room id to its member set. Rooms exist
// only as a projection of membership: the entry is created on first join and
// deleted the moment the last member leaves.
type Directory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]map[domain.ConnID]struct{}
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[domain.RoomID]map[domain.ConnID]struct{})}
}

// Join adds the connection to the room and returns the members that were
// present before the join, excluding the joiner. Re-joining is set semantics,
// not duplicate growth.
func (d *Directory) Join(room domain.RoomID, id domain.ConnID) []domain.ConnID {
	d.mu.Lock()
	defer d.mu.Unlock()
	members, ok := d.rooms[room]
	if !ok {
		members = make(map[domain.ConnID]struct{})
		d.rooms[room] = members
		log.Info().Str("module", "app.directory").Str("room", string(room)).Msg("room created")
	}
	others := make([]domain.ConnID, 0, len(members))
	for m := range members {
		if m != id {
			others = append(others, m)
		}
	}
	members[id] = struct{}{}
	return others
}

// Leave is safe to call during disconnect races: unknown rooms and absent
// members are a no-op.
func (d *Directory) Leave(room domain.RoomID, id domain.ConnID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	members, ok := d.rooms[room]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(d.rooms, room)
		log.Info().Str("module", "app.directory").Str("room", string(room)).Msg("room deleted")
	}
}

// MembersOf returns the current member set; an unknown room is an empty set,
// not an error.
func (d *Directory) MembersOf(room domain.RoomID) []domain.ConnID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	members := d.rooms[room]
	out := make([]domain.ConnID, 0, len(members))
	for m := range members {
		out = append(out, m)
	}
	return out
}

func (d *Directory) Rooms() []RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]RoomInfo, 0, len(d.rooms))
	for room, members := range d.rooms {
		out = append(out, RoomInfo{ID: room, MemberCount: len(members)})
	}
	return out
}

func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}
