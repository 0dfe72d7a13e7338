package rooms

import (
	"math/rand"
	"resourcerush/internal/economy"
	"resourcerush/internal/players"
	"resourcerush/internal/roundclock"
	"sync"
	"time"
)

type Visibility string

const (
	Public  = Visibility("public")
	Private = Visibility("private")
)

func (v Visibility) Valid() bool {
	return v == Public || v == Private
}

type Status string

const (
	Waiting  = Status("waiting")
	Playing  = Status("playing")
	Finished = Status("finished")
)

// Room is one isolated game. All fields are guarded by the room lock; callers
// outside the coordinator must hold it while reading.
type Room struct {
	mu sync.Mutex

	ID            string
	Name          string
	Visibility    Visibility
	Status        Status
	Clock         *roundclock.Clock
	Market        economy.Market
	RecentActions []string
	History       map[int][]string
	HostID        string
	Players       *players.Roster
	Exited        map[string]bool

	Winner         string
	Rankings       []Ranking
	PreviousWinner string

	CreatedAt    time.Time
	LastActivity time.Time

	// Closed is set exactly once by the coordinator. Every timer callback
	// checks it before touching the room.
	Closed bool
	Timers Timers
	Rand   *rand.Rand
}

// Ranking is one line of the settlement table, highest score first.
type Ranking struct {
	PlayerID   string `json:"playerId"`
	Name       string `json:"name"`
	FinalScore int    `json:"finalScore"`
}

func New(id, name string, vis Visibility, clock *roundclock.Clock, rng *rand.Rand, now time.Time) *Room {
	return &Room{
		ID:           id,
		Name:         name,
		Visibility:   vis,
		Status:       Waiting,
		Clock:        clock,
		Market:       economy.NewMarket(),
		History:      make(map[int][]string),
		Players:      players.NewRoster(),
		Exited:       make(map[string]bool),
		CreatedAt:    now,
		LastActivity: now,
		Rand:         rng,
	}
}

func (r *Room) Lock()   { r.mu.Lock() }
func (r *Room) Unlock() { r.mu.Unlock() }

// Host returns the host player, or nil when the room is empty.
func (r *Room) Host() *players.Player {
	if r.HostID == "" {
		return nil
	}
	return r.Players.Get(r.HostID)
}

// RecordAction prepends text to the recent actions (newest first, bounded by
// recentLimit) and appends it to the current round's history, which keeps the
// newest historyLimit entries.
func (r *Room) RecordAction(text string, recentLimit, historyLimit int) {
	r.RecentActions = append([]string{text}, r.RecentActions...)
	if len(r.RecentActions) > recentLimit {
		r.RecentActions = r.RecentActions[:recentLimit]
	}
	round := r.Clock.Round
	bucket := append(r.History[round], text)
	if len(bucket) > historyLimit {
		bucket = append([]string(nil), bucket[len(bucket)-historyLimit:]...)
	}
	r.History[round] = bucket
}

// Lookup resolves sabotage targets among the room's players.
func (r *Room) Lookup(name string) (economy.Party, bool) {
	p := r.Players.ByName(name)
	if p == nil {
		return economy.Party{}, false
	}
	return p.Party(), true
}

// AllGone reports whether every remaining player has exited or disconnected.
func (r *Room) AllGone() bool {
	for _, p := range r.Players.List() {
		if !r.Exited[p.ID] && p.Connected {
			return false
		}
	}
	return true
}
