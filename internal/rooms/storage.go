package rooms

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrCodeTaken = errors.New("room code already in use")

type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*Room),
	}
}

// Create generates a fresh code, builds the room with it and registers it.
func (s *Store) Create(build func(code string) *Room) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Try up to 10 times to generate a unique code
	for range 10 {
		code, err := GenerateCode()
		if err != nil {
			return nil, fmt.Errorf("generating room code: %w", err)
		}
		if _, exists := s.rooms[code]; exists {
			continue
		}
		room := build(code)
		s.rooms[code] = room
		return room, nil
	}
	return nil, fmt.Errorf("failed to generate unique room code after 10 attempts")
}

// Insert registers a room under its existing ID, e.g. after a restart.
func (s *Store) Insert(room *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[room.ID]; exists {
		return fmt.Errorf("insert %s: %w", room.ID, ErrCodeTaken)
	}
	s.rooms[room.ID] = room
	return nil
}

func (s *Store) Get(code string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[code]
}

// Delete removes the room and reports whether it was present.
func (s *Store) Delete(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[code]
	delete(s.rooms, code)
	return ok
}

// List returns every live room, oldest first.
func (s *Store) List() []*Room {
	s.mu.Lock()
	list := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		list = append(list, r)
	}
	s.mu.Unlock()

	sortByCreation(list)
	return list
}

// ListPublic returns the public rooms, oldest first.
func (s *Store) ListPublic() []*Room {
	s.mu.Lock()
	list := make([]*Room, 0)
	for _, r := range s.rooms {
		if r.Visibility == Public {
			list = append(list, r)
		}
	}
	s.mu.Unlock()

	sortByCreation(list)
	return list
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// ID, Visibility and CreatedAt never change after creation, so sorting
// does not need the room locks.
func sortByCreation(list []*Room) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
