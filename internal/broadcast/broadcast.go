package broadcast

import (
	"sync"

	"github.com/rs/zerolog"
)

const sendBuffer = 64

// Broadcaster fans outbound messages out to connections grouped by room.
// Sends never block: a connection whose buffer is full misses the message.
type Broadcaster struct {
	mu    sync.RWMutex
	conns map[string]chan []byte
	rooms map[string]map[string]bool
	log   zerolog.Logger
}

func NewBroadcaster(log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		conns: make(map[string]chan []byte),
		rooms: make(map[string]map[string]bool),
		log:   log.With().Str("component", "broadcast").Logger(),
	}
}

// Register creates the send channel of a new connection.
func (b *Broadcaster) Register(connID string) chan []byte {
	ch := make(chan []byte, sendBuffer)
	b.mu.Lock()
	if old, ok := b.conns[connID]; ok {
		close(old)
	}
	b.conns[connID] = ch
	b.mu.Unlock()
	return ch
}

// Unregister removes the connection from every room and closes its channel.
func (b *Broadcaster) Unregister(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.conns[connID]
	if !ok {
		return
	}
	delete(b.conns, connID)
	close(ch)
	for roomID, members := range b.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(b.rooms, roomID)
		}
	}
}

// Join adds a connection to a room group.
func (b *Broadcaster) Join(roomID, connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	members, ok := b.rooms[roomID]
	if !ok {
		members = make(map[string]bool)
		b.rooms[roomID] = members
	}
	members[connID] = true
}

func (b *Broadcaster) Leave(roomID, connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if members, ok := b.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(b.rooms, roomID)
		}
	}
}

// DetachRoom drops the whole room group. Connections stay registered.
func (b *Broadcaster) DetachRoom(roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rooms, roomID)
}

func (b *Broadcaster) ToRoom(roomID string, msg []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for connID := range b.rooms[roomID] {
		b.send(connID, msg)
	}
}

func (b *Broadcaster) ToConn(connID string, msg []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	b.send(connID, msg)
}

// send must be called with b.mu held.
func (b *Broadcaster) send(connID string, msg []byte) {
	ch, ok := b.conns[connID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		b.log.Debug().Str("conn_id", connID).Msg("send buffer full, dropping message")
	}
}
