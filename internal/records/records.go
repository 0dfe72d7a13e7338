package records

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

type Status string

const (
	StatusWaiting  = Status("waiting")
	StatusPlaying  = Status("playing")
	StatusFinished = Status("finished")
	StatusClosed   = Status("closed")
)

// PlayerEntry is the durable view of a player: enough for discovery, not
// gameplay.
type PlayerEntry struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Record is the durable mirror of one room.
type Record struct {
	RoomID         string          `json:"roomId"`
	Name           string          `json:"name"`
	Visibility     string          `json:"visibility"`
	Status         Status          `json:"status"`
	HostPlayerID   string          `json:"hostPlayerId"`
	HostName       string          `json:"hostName"`
	Players        []PlayerEntry   `json:"players"`
	CurrentPlayers int             `json:"currentPlayers"`
	MaxPlayers     int             `json:"maxPlayers"`
	Snapshot       json.RawMessage `json:"snapshot,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Roster is the part of a record that changes when players leave or the
// host role moves.
type Roster struct {
	HostPlayerID string
	HostName     string
	Players      []PlayerEntry
}

// Gateway is a durable record store for rooms. Every method is best effort
// from the caller's point of view.
type Gateway interface {
	Create(ctx context.Context, rec Record) (*Record, error)
	Get(ctx context.Context, roomID string) (*Record, error)
	UpdateStatus(ctx context.Context, roomID string, status Status) (*Record, error)
	AppendPlayer(ctx context.Context, roomID string, player PlayerEntry) (*Record, error)
	// UpdateRoster replaces the player list and host, and recounts players.
	UpdateRoster(ctx context.Context, roomID string, roster Roster) (*Record, error)
	UpdateSnapshot(ctx context.Context, roomID string, snapshot []byte) error
	ListPublicWaiting(ctx context.Context) ([]Record, error)
	// ListOpen returns every record that is not closed, for rehydration.
	ListOpen(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, roomID string) error
	// PurgeOlderThan deletes records in status last updated more than age ago.
	PurgeOlderThan(ctx context.Context, status Status, age time.Duration) (int64, error)
}

// Pinger is implemented by gateways backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}
