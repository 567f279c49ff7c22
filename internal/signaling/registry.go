package signaling

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ConnID identifies one live connection for the lifetime of the process.
type ConnID = uuid.UUID

// ErrInvalidRoomID is returned when a join names an empty room id.
var ErrInvalidRoomID = errors.New("signaling: invalid room id")

// Registry is the authoritative room <-> connection membership store.
//
// It keeps both directions of the mapping and mutates them together under
// one lock, so a connection is in a room's member set exactly when the room
// is in the connection's room set. All membership mutation goes through it;
// the hub never touches the maps directly.
//
// Registry is safe for concurrent use by multiple goroutines.
type Registry struct {
	mu sync.Mutex

	// rooms maps room IDs to their member sets.
	rooms map[string]map[ConnID]struct{}

	// conns maps connection IDs to the set of rooms they belong to.
	conns map[ConnID]map[string]struct{}
}

// NewRegistry creates an empty Registry instance.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[ConnID]struct{}),
		conns: make(map[ConnID]map[string]struct{}),
	}
}

// Join adds the connection to the room, creating the room on first join.
// It reports whether membership actually changed: joining a room the
// connection is already in is a no-op, not an error. An empty roomID is
// rejected with ErrInvalidRoomID and nothing is mutated.
func (r *Registry) Join(roomID string, id ConnID) (bool, error) {
	if roomID == "" {
		return false, ErrInvalidRoomID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[ConnID]struct{})
		r.rooms[roomID] = members
	}
	if _, ok := members[id]; ok {
		return false, nil
	}
	members[id] = struct{}{}

	joined, ok := r.conns[id]
	if !ok {
		joined = make(map[string]struct{})
		r.conns[id] = joined
	}
	joined[roomID] = struct{}{}

	return true, nil
}

// Leave removes the connection from the room. It is a no-op if the
// connection was not a member. The room entry is dropped when its last
// member leaves.
func (r *Registry) Leave(roomID string, id ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leave(roomID, id)
}

// LeaveAll removes the connection from every room it belonged to and
// returns those rooms, in no particular order, so the caller can broadcast
// one departure per affected room. Used on disconnect.
func (r *Registry) LeaveAll(id ConnID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	affected := lo.Keys(r.conns[id])
	for _, roomID := range affected {
		r.leave(roomID, id)
	}
	return affected
}

// leave mutates both sides of the mapping. Callers must hold r.mu.
func (r *Registry) leave(roomID string, id ConnID) {
	if members, ok := r.rooms[roomID]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	if joined, ok := r.conns[id]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(r.conns, id)
		}
	}
}

// Members returns a snapshot of the room's member set taken at call time.
// Concurrent joins and leaves do not affect a snapshot already taken.
func (r *Registry) Members(roomID string) []ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Keys(r.rooms[roomID])
}

// Rooms returns a snapshot of the rooms the connection belongs to.
func (r *Registry) Rooms(id ConnID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Keys(r.conns[id])
}
