package game

import (
	"context"
	"resourcerush/internal/records"
)

// RunJanitor sweeps on every cleanup interval until ctx is cancelled.
func (c *Coordinator) RunJanitor(ctx context.Context) {
	ticker := c.clock.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := c.Sweep(); n > 0 {
				c.log.Info().Int("closed", n).Msg("janitor closed stale rooms")
			}
		}
	}
}

// Sweep closes live rooms untouched for longer than the retention period and
// purges old finished and closed records. It returns the number of rooms
// closed.
func (c *Coordinator) Sweep() int {
	closed := 0
	for _, room := range c.store.List() {
		room.Lock()
		if !room.Closed && c.clock.Since(room.LastActivity) >= c.cfg.Retention {
			c.closeLocked(room, ReasonRetention)
			closed++
		}
		room.Unlock()
	}
	c.rec.Purge(records.StatusFinished, c.cfg.Retention)
	c.rec.Purge(records.StatusClosed, c.cfg.Retention)
	return closed
}
