package game

import (
	"context"
	"resourcerush/internal/economy"
	"resourcerush/internal/events"
	"resourcerush/internal/records"
	"resourcerush/internal/rooms"
	"resourcerush/internal/roundclock"
	"sort"
)

// startClock launches the goroutine that drives round and market ticks.
// The room lock must be held.
func (c *Coordinator) startClock(room *rooms.Room) {
	if room.Timers.LoopRunning() {
		return
	}
	ctx, cancel := context.WithCancel(c.ctx)
	room.Timers.SetLoop(cancel)
	go c.runClock(ctx, room.ID)
}

func (c *Coordinator) runClock(ctx context.Context, roomID string) {
	round := c.clock.NewTicker(c.cfg.TickInterval)
	defer round.Stop()
	market := c.clock.NewTicker(c.cfg.MarketInterval)
	defer market.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-round.Chan():
			c.tickRound(roomID)
		case <-market.Chan():
			c.tickMarket(roomID)
		}
	}
}

// tickRound advances the room's countdown by one unit.
func (c *Coordinator) tickRound(roomID string) {
	err := c.withRoom(roomID, func(room *rooms.Room) error {
		if room.Status != rooms.Playing || !room.Clock.Running() {
			return nil
		}
		outcome := room.Clock.Tick()
		if outcome != roundclock.Ticked {
			c.log.Debug().Str("room_id", room.ID).Str("outcome", outcome.String()).Int("round", room.Clock.Round).Msg("round clock")
		}
		switch outcome {
		case roundclock.Ticked:
			c.broadcastLive(room)
		case roundclock.RoundAdvanced:
			c.advanceRoundLocked(room)
		case roundclock.Finished:
			c.finishLocked(room)
		}
		return nil
	})
	if err != nil && err != ErrRoomNotFound {
		c.log.Warn().Err(err).Str("room_id", roomID).Msg("round tick")
	}
}

// tickMarket nudges every drift by a bounded random step.
func (c *Coordinator) tickMarket(roomID string) {
	err := c.withRoom(roomID, func(room *rooms.Room) error {
		if room.Status != rooms.Playing {
			return nil
		}
		room.Market.Fluctuate(room.Rand)
		c.broadcastLive(room)
		return nil
	})
	if err != nil && err != ErrRoomNotFound {
		c.log.Warn().Err(err).Str("room_id", roomID).Msg("market tick")
	}
}

// advanceRoundLocked runs after the clock rolled into a new round. The
// finished round's actions are already in History.
func (c *Coordinator) advanceRoundLocked(room *rooms.Room) {
	room.RecentActions = nil
	room.Market.Regenerate(room.Rand)

	c.broadcastState(room)
	c.persist(room)
	c.publish(events.RoomEvent{Kind: events.RoundAdvanced, RoomID: room.ID, Round: room.Clock.Round})
	c.log.Debug().Str("room_id", room.ID).Int("round", room.Clock.Round).Msg("round advanced")
}

// finishLocked settles the game: final scores, winner and rankings, then
// schedules the return to waiting.
func (c *Coordinator) finishLocked(room *rooms.Room) {
	room.Status = rooms.Finished
	room.Timers.StopLoop()
	room.RecentActions = nil

	list := room.Players.List()
	rankings := make([]rooms.Ranking, 0, len(list))
	for _, p := range list {
		score := economy.FinalScore(p.Wallet, room.Market)
		p.FinalScore = &score
		rankings = append(rankings, rooms.Ranking{PlayerID: p.ID, Name: p.Name, FinalScore: score})
	}
	// Ties keep join order.
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].FinalScore > rankings[j].FinalScore
	})
	room.Rankings = rankings
	room.Winner = ""
	if len(rankings) > 0 {
		room.Winner = rankings[0].Name
	}

	id := room.ID
	room.Timers.SetRematch(c.clock.AfterFunc(c.cfg.RematchDelay, func() { c.rematch(id) }))

	c.broadcastState(room)
	c.rec.UpdateStatus(room.ID, records.StatusFinished)
	c.persist(room)
	c.publish(events.RoomEvent{Kind: events.RoomFinished, RoomID: room.ID, Round: room.Clock.Round, Players: len(list)})
	c.log.Info().Str("room_id", room.ID).Str("winner", room.Winner).Msg("game finished")
}

// rematch puts a finished room back to waiting with fresh wallets so the
// same players can start again.
func (c *Coordinator) rematch(roomID string) {
	err := c.withRoom(roomID, func(room *rooms.Room) error {
		if room.Status != rooms.Finished {
			return nil
		}
		room.Status = rooms.Waiting
		room.Clock.Reset()
		room.Market.Reset()
		room.RecentActions = nil
		room.History = make(map[int][]string)
		room.PreviousWinner = room.Winner
		room.Winner = ""
		room.Rankings = nil
		room.Exited = make(map[string]bool)
		room.Players.ResetAll()
		room.Timers.StopRematch()

		c.broadcastState(room)
		c.rec.UpdateStatus(room.ID, records.StatusWaiting)
		c.persist(room)
		c.publish(events.RoomEvent{Kind: events.RoomRematch, RoomID: room.ID, Players: room.Players.Len()})
		c.log.Info().Str("room_id", room.ID).Str("previous_winner", room.PreviousWinner).Msg("room reset for rematch")
		return nil
	})
	if err != nil && err != ErrRoomNotFound {
		c.log.Warn().Err(err).Str("room_id", roomID).Msg("rematch")
	}
}

// idleExpired closes the room unless activity moved the deadline since the
// timer was armed.
func (c *Coordinator) idleExpired(roomID string) {
	room := c.store.Get(roomID)
	if room == nil {
		return
	}
	room.Lock()
	defer room.Unlock()
	if room.Closed {
		return
	}
	if idle := c.clock.Since(room.LastActivity); idle < c.cfg.IdleTimeout {
		room.Timers.ResetIdle(c.cfg.IdleTimeout - idle)
		return
	}
	c.closeLocked(room, ReasonIdle)
}
