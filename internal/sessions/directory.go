package sessions

import "sync"

// Binding ties a live connection to the player it speaks for.
type Binding struct {
	RoomID   string
	PlayerID string
	Name     string
}

// Directory maps connection IDs to bindings. A per-room index keeps room and
// player removals O(1) in the number of bindings.
type Directory struct {
	mu       sync.RWMutex
	bindings map[string]Binding
	// rooms maps room ID -> player ID -> connection ID.
	rooms map[string]map[string]string
}

func NewDirectory() *Directory {
	return &Directory{
		bindings: make(map[string]Binding),
		rooms:    make(map[string]map[string]string),
	}
}

// Bind records b for connID, replacing any earlier binding.
func (d *Directory) Bind(connID string, b Binding) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if old, ok := d.bindings[connID]; ok {
		d.unindex(connID, old)
	}
	d.bindings[connID] = b
	players, ok := d.rooms[b.RoomID]
	if !ok {
		players = make(map[string]string)
		d.rooms[b.RoomID] = players
	}
	players[b.PlayerID] = connID
}

func (d *Directory) Resolve(connID string) (Binding, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.bindings[connID]
	return b, ok
}

// Unbind removes and returns the binding for connID.
func (d *Directory) Unbind(connID string) (Binding, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.bindings[connID]
	if ok {
		delete(d.bindings, connID)
		d.unindex(connID, b)
	}
	return b, ok
}

// UnbindRoom drops every binding into roomID and returns the affected connections.
func (d *Directory) UnbindRoom(roomID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	players := d.rooms[roomID]
	conns := make([]string, 0, len(players))
	for _, connID := range players {
		conns = append(conns, connID)
		delete(d.bindings, connID)
	}
	delete(d.rooms, roomID)
	return conns
}

// UnbindPlayer drops the binding of one player, wherever it is connected from.
func (d *Directory) UnbindPlayer(roomID, playerID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	connID, ok := d.rooms[roomID][playerID]
	if !ok {
		return "", false
	}
	b := d.bindings[connID]
	delete(d.bindings, connID)
	d.unindex(connID, b)
	return connID, true
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.bindings)
}

// unindex must be called with d.mu held.
func (d *Directory) unindex(connID string, b Binding) {
	players, ok := d.rooms[b.RoomID]
	if !ok || players[b.PlayerID] != connID {
		return
	}
	delete(players, b.PlayerID)
	if len(players) == 0 {
		delete(d.rooms, b.RoomID)
	}
}
