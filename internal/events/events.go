package events

import (
	"context"
	"sync/atomic"
	"time"
)

type Kind string

const (
	RoomCreated   = Kind("room.created")
	RoomStarted   = Kind("room.started")
	RoundAdvanced = Kind("room.round")
	RoomFinished  = Kind("room.finished")
	RoomRematch   = Kind("room.rematch")
	RoomClosed    = Kind("room.closed")
	PlayerJoined  = Kind("player.joined")
	PlayerLeft    = Kind("player.left")
	ActionApplied = Kind("action.applied")
	ActionIgnored = Kind("action.ignored")
)

// RoomEvent describes one lifecycle change of a room. Events are
// notifications only; nothing reads them back into game state.
type RoomEvent struct {
	Kind    Kind      `json:"kind"`
	RoomID  string    `json:"roomId"`
	Round   int       `json:"round,omitempty"`
	Players int       `json:"players,omitempty"`
	Action  string    `json:"action,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

// Sink consumes events published on a Bus.
type Sink interface {
	Handle(RoomEvent)
}

type SinkFunc func(RoomEvent)

func (f SinkFunc) Handle(ev RoomEvent) { f(ev) }

const defaultBuffer = 256

type Bus struct {
	RoomEvents chan RoomEvent
	dropped    atomic.Int64
}

func NewBus() *Bus {
	return &Bus{
		RoomEvents: make(chan RoomEvent, defaultBuffer),
	}
}

// Publish queues ev without blocking. Events are dropped when the buffer is full.
func (b *Bus) Publish(ev RoomEvent) {
	if b == nil {
		return
	}
	select {
	case b.RoomEvents <- ev:
	default:
		b.dropped.Add(1)
	}
}

// Dropped is the number of events lost to a full buffer.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Run hands every event to each sink, in order, until ctx is done.
func (b *Bus) Run(ctx context.Context, sinks ...Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.RoomEvents:
			for _, s := range sinks {
				s.Handle(ev)
			}
		}
	}
}
