package players

import (
	"resourcerush/internal/economy"
	"sync"
	"time"
)

type Player struct {
	ID        string
	Name      string
	ConnID    string // empty while disconnected
	Connected bool
	JoinedAt  time.Time
	Wallet    economy.Wallet
	// FinalScore is set only once the room's game has finished.
	FinalScore *int
}

func (p *Player) Party() economy.Party {
	return economy.Party{Name: p.Name, Wallet: &p.Wallet}
}

// Roster keeps a room's players in join order.
type Roster struct {
	mu      sync.Mutex
	order   []string
	players map[string]*Player
}

func NewRoster() *Roster {
	return &Roster{
		players: make(map[string]*Player),
	}
}

// Add appends a connected player with a starting wallet.
func (s *Roster) Add(id, name, connID string) *Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	player := &Player{
		ID:        id,
		Name:      name,
		ConnID:    connID,
		Connected: connID != "",
		Wallet:    economy.NewWallet(),
	}
	if _, exists := s.players[id]; !exists {
		s.order = append(s.order, id)
	}
	s.players[id] = player
	return player
}

// Restore appends an already-built player, e.g. one decoded from a snapshot.
func (s *Roster) Restore(p *Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.players[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	s.players[p.ID] = p
}

func (s *Roster) Get(id string) *Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.players[id]
}

// ByName finds a player by display name. Names are unique within a room.
func (s *Roster) ByName(name string) *Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if p := s.players[id]; p.Name == name {
			return p
		}
	}
	return nil
}

func (s *Roster) NameTaken(name string) bool {
	return s.ByName(name) != nil
}

func (s *Roster) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.players[id]; !exists {
		return false
	}
	delete(s.players, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns the players in join order.
func (s *Roster) List() []*Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*Player, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.players[id])
	}
	return list
}

func (s *Roster) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// FirstConnected returns the earliest-joined connected player, or nil.
func (s *Roster) FirstConnected() *Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if p := s.players[id]; p.Connected {
			return p
		}
	}
	return nil
}

// Disconnect marks the player as disconnected and forgets its connection.
func (s *Roster) Disconnect(id string) *Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[id]; ok {
		p.Connected = false
		p.ConnID = ""
		return p
	}
	return nil
}

func (s *Roster) Reconnect(id, connID string) *Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[id]; ok {
		p.Connected = true
		p.ConnID = connID
		return p
	}
	return nil
}

// ResetAll gives every player a fresh wallet and clears final scores.
// Connection state is left untouched.
func (s *Roster) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		p.Wallet = economy.NewWallet()
		p.FinalScore = nil
	}
}
