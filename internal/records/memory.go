package records

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Memory is a process-local Gateway. It is the default when no database
// is configured and the reference implementation for tests.
type Memory struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	records map[string]Record
}

func NewMemory(clock clockwork.Clock) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory{
		clock:   clock,
		records: make(map[string]Record),
	}
}

func (m *Memory) Create(_ context.Context, rec Record) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.RoomID]; exists {
		return nil, fmt.Errorf("creating record %s: already exists", rec.RoomID)
	}
	now := m.clock.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.CurrentPlayers = len(rec.Players)
	m.records[rec.RoomID] = clone(rec)
	out := clone(rec)
	return &out, nil
}

func (m *Memory) Get(_ context.Context, roomID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(rec)
	return &out, nil
}

func (m *Memory) UpdateStatus(_ context.Context, roomID string, status Status) (*Record, error) {
	return m.update(roomID, func(rec *Record) {
		rec.Status = status
	})
}

func (m *Memory) AppendPlayer(_ context.Context, roomID string, player PlayerEntry) (*Record, error) {
	return m.update(roomID, func(rec *Record) {
		rec.Players = append(rec.Players, player)
		rec.CurrentPlayers = len(rec.Players)
	})
}

func (m *Memory) UpdateRoster(_ context.Context, roomID string, roster Roster) (*Record, error) {
	return m.update(roomID, func(rec *Record) {
		rec.HostPlayerID = roster.HostPlayerID
		rec.HostName = roster.HostName
		rec.Players = append([]PlayerEntry(nil), roster.Players...)
		rec.CurrentPlayers = len(rec.Players)
	})
}

func (m *Memory) UpdateSnapshot(_ context.Context, roomID string, snapshot []byte) error {
	_, err := m.update(roomID, func(rec *Record) {
		rec.Snapshot = append([]byte(nil), snapshot...)
	})
	return err
}

func (m *Memory) update(roomID string, fn func(*Record)) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	fn(&rec)
	rec.UpdatedAt = m.clock.Now()
	m.records[roomID] = rec
	out := clone(rec)
	return &out, nil
}

func (m *Memory) ListPublicWaiting(_ context.Context) ([]Record, error) {
	return m.list(func(rec Record) bool {
		return rec.Visibility == "public" && rec.Status == StatusWaiting
	}), nil
}

func (m *Memory) ListOpen(_ context.Context) ([]Record, error) {
	return m.list(func(rec Record) bool {
		return rec.Status != StatusClosed
	}), nil
}

func (m *Memory) list(keep func(Record) bool) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0)
	for _, rec := range m.records {
		if keep(rec) {
			out = append(out, clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *Memory) Delete(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[roomID]; !ok {
		return ErrNotFound
	}
	delete(m.records, roomID)
	return nil
}

func (m *Memory) PurgeOlderThan(_ context.Context, status Status, age time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.clock.Now().Add(-age)
	var n int64
	for id, rec := range m.records {
		if rec.Status == status && rec.UpdatedAt.Before(cutoff) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func clone(rec Record) Record {
	rec.Players = append([]PlayerEntry(nil), rec.Players...)
	if rec.Snapshot != nil {
		rec.Snapshot = append([]byte(nil), rec.Snapshot...)
	}
	return rec
}
