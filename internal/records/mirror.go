package records

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultMirrorBuffer  = 256
	DefaultMirrorTimeout = 5 * time.Second
)

type job struct {
	op     string
	roomID string
	run    func(ctx context.Context, gw Gateway) error
	done   chan struct{}
}

// Mirror queues gateway writes and applies them in order on a single worker
// goroutine. Enqueueing never blocks: when the queue is full the write is
// dropped and logged. Failed writes are logged and forgotten.
type Mirror struct {
	gw      Gateway
	jobs    chan job
	timeout time.Duration
	log     zerolog.Logger
	// OnDrop, if set, is called for every write dropped on a full queue.
	OnDrop func()
	// OnError, if set, is called with the op name of every failed write.
	OnError func(op string)
}

func NewMirror(gw Gateway, log zerolog.Logger, buffer int) *Mirror {
	if buffer <= 0 {
		buffer = DefaultMirrorBuffer
	}
	return &Mirror{
		gw:      gw,
		jobs:    make(chan job, buffer),
		timeout: DefaultMirrorTimeout,
		log:     log.With().Str("component", "mirror").Logger(),
	}
}

// Run applies queued writes until ctx is cancelled, then drains what is left.
func (m *Mirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.drain()
			return
		case j := <-m.jobs:
			m.apply(j)
		}
	}
}

func (m *Mirror) drain() {
	for {
		select {
		case j := <-m.jobs:
			m.apply(j)
		default:
			return
		}
	}
}

func (m *Mirror) apply(j job) {
	if j.done != nil {
		close(j.done)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := j.run(ctx, m.gw); err != nil {
		lvl := m.log.Warn()
		if errors.Is(err, ErrNotFound) {
			lvl = m.log.Debug()
		}
		lvl.Err(err).Str("op", j.op).Str("room_id", j.roomID).Msg("mirror write failed")
		if m.OnError != nil {
			m.OnError(j.op)
		}
	}
}

func (m *Mirror) enqueue(j job) {
	select {
	case m.jobs <- j:
	default:
		m.log.Warn().Str("op", j.op).Str("room_id", j.roomID).Msg("mirror queue full, dropping write")
		if m.OnDrop != nil {
			m.OnDrop()
		}
	}
}

// Flush blocks until every write queued before the call has been applied,
// or ctx is done.
func (m *Mirror) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case m.jobs <- job{op: "flush", done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mirror) Create(rec Record) {
	m.enqueue(job{op: "create", roomID: rec.RoomID, run: func(ctx context.Context, gw Gateway) error {
		_, err := gw.Create(ctx, rec)
		return err
	}})
}

func (m *Mirror) UpdateStatus(roomID string, status Status) {
	m.enqueue(job{op: "update_status", roomID: roomID, run: func(ctx context.Context, gw Gateway) error {
		_, err := gw.UpdateStatus(ctx, roomID, status)
		return err
	}})
}

func (m *Mirror) AppendPlayer(roomID string, player PlayerEntry) {
	m.enqueue(job{op: "append_player", roomID: roomID, run: func(ctx context.Context, gw Gateway) error {
		_, err := gw.AppendPlayer(ctx, roomID, player)
		return err
	}})
}

func (m *Mirror) UpdateRoster(roomID string, roster Roster) {
	m.enqueue(job{op: "update_roster", roomID: roomID, run: func(ctx context.Context, gw Gateway) error {
		_, err := gw.UpdateRoster(ctx, roomID, roster)
		return err
	}})
}

func (m *Mirror) UpdateSnapshot(roomID string, snapshot []byte) {
	m.enqueue(job{op: "update_snapshot", roomID: roomID, run: func(ctx context.Context, gw Gateway) error {
		return gw.UpdateSnapshot(ctx, roomID, snapshot)
	}})
}

func (m *Mirror) Purge(status Status, age time.Duration) {
	m.enqueue(job{op: "purge", roomID: string(status), run: func(ctx context.Context, gw Gateway) error {
		n, err := gw.PurgeOlderThan(ctx, status, age)
		if err == nil && n > 0 {
			m.log.Info().Int64("purged", n).Str("status", string(status)).Msg("purged old records")
		}
		return err
	}})
}
