package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"resourcerush/internal/economy"
	"resourcerush/internal/events"
	"resourcerush/internal/players"
	"resourcerush/internal/protocol"
	"resourcerush/internal/records"
	"resourcerush/internal/rooms"
	"resourcerush/internal/roundclock"
	"time"
)

// buildState renders the room as clients see it. The per-round action
// history is only included when withHistory is set. The room lock must be
// held.
func (c *Coordinator) buildState(room *rooms.Room, withHistory bool) protocol.RoomState {
	list := room.Players.List()
	ps := make([]protocol.PlayerState, 0, len(list))
	for _, p := range list {
		ps = append(ps, protocol.PlayerState{
			ID:          p.ID,
			Name:        p.Name,
			Tokens:      p.Wallet.Tokens,
			Assets:      p.Wallet.Holdings,
			TotalAssets: p.Wallet.TotalAssets(),
			LiveScore:   economy.LiveScore(p.Wallet),
			Connected:   p.Connected,
			IsHost:      p.ID == room.HostID,
			FinalScore:  p.FinalScore,
		})
	}

	var history map[int][]string
	if withHistory {
		history = make(map[int][]string, len(room.History))
		for round, texts := range room.History {
			history[round] = append([]string(nil), texts...)
		}
	}

	return protocol.RoomState{
		ID:             room.ID,
		Name:           room.Name,
		Visibility:     string(room.Visibility),
		Status:         string(room.Status),
		CurrentRound:   room.Clock.Round,
		MaxRounds:      room.Clock.MaxRounds,
		TimeRemaining:  room.Clock.Remaining,
		Players:        ps,
		MarketChanges:  room.Market.Entries(),
		RecentActions:  append([]string{}, room.RecentActions...),
		ActionHistory:  history,
		Host:           room.HostID,
		Winner:         room.Winner,
		Rankings:       append([]rooms.Ranking(nil), room.Rankings...),
		PreviousWinner: room.PreviousWinner,
		CreatedAt:      room.CreatedAt,
		LastActivity:   room.LastActivity,
	}
}

func (c *Coordinator) publicRoom(room *rooms.Room) protocol.PublicRoom {
	out := protocol.PublicRoom{
		ID:             room.ID,
		Name:           room.Name,
		Status:         string(room.Status),
		CurrentPlayers: room.Players.Len(),
		MaxPlayers:     c.cfg.MaxPlayers,
		CreatedAt:      room.CreatedAt,
	}
	if host := room.Host(); host != nil {
		out.HostName = host.Name
	}
	return out
}

func (c *Coordinator) snapshot(room *rooms.Room) []byte {
	data, err := json.Marshal(c.buildState(room, true))
	if err != nil {
		c.log.Error().Err(err).Str("room_id", room.ID).Msg("encoding snapshot")
		return nil
	}
	return data
}

// persist mirrors the room's current snapshot.
func (c *Coordinator) persist(room *rooms.Room) {
	if data := c.snapshot(room); data != nil {
		c.rec.UpdateSnapshot(room.ID, data)
	}
}

func (c *Coordinator) toConn(connID, typ string, payload any) {
	msg, err := protocol.Encode(typ, payload)
	if err != nil {
		c.log.Error().Err(err).Str("type", typ).Msg("encoding message")
		return
	}
	c.out.ToConn(connID, msg)
}

func (c *Coordinator) toRoom(room *rooms.Room, typ string, payload any) {
	msg, err := protocol.Encode(typ, payload)
	if err != nil {
		c.log.Error().Err(err).Str("type", typ).Msg("encoding message")
		return
	}
	c.out.ToRoom(room.ID, msg)
}

// broadcastState sends the full state, history included. It is used on
// membership and round boundaries.
func (c *Coordinator) broadcastState(room *rooms.Room) {
	c.toRoom(room, protocol.RoomStateType, c.buildState(room, true))
}

// broadcastLive sends the state without the action history, for the frequent
// tick and trade updates.
func (c *Coordinator) broadcastLive(room *rooms.Room) {
	c.toRoom(room, protocol.RoomStateType, c.buildState(room, false))
}

// Rehydrate restores every open room mirrored in gw. Players come back
// disconnected and can rejoin with their player ID. Records whose snapshot
// cannot be restored are marked closed. It returns the number of rooms
// restored.
func (c *Coordinator) Rehydrate(ctx context.Context, gw records.Gateway) (int, error) {
	recs, err := gw.ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing open rooms: %w", err)
	}

	restored := 0
	for _, rec := range recs {
		room, err := c.restore(rec)
		if err != nil {
			c.log.Warn().Err(err).Str("room_id", rec.RoomID).Msg("discarding unrestorable room")
			c.rec.UpdateStatus(rec.RoomID, records.StatusClosed)
			c.publish(events.RoomEvent{Kind: events.RoomClosed, RoomID: rec.RoomID, Reason: ReasonCorrupt})
			continue
		}
		if err := c.store.Insert(room); err != nil {
			room.Unlock()
			c.log.Warn().Err(err).Str("room_id", rec.RoomID).Msg("skipping rehydrated room")
			continue
		}
		c.armRestored(room)
		room.Unlock()

		restored++
		c.publish(events.RoomEvent{Kind: events.RoomCreated, RoomID: room.ID, Round: room.Clock.Round, Players: room.Players.Len()})
		c.log.Info().Str("room_id", room.ID).Str("status", string(room.Status)).Msg("room rehydrated")
	}
	return restored, nil
}

var errCorrupt = errors.New("corrupt snapshot")

// restore builds a locked room from a mirrored record.
func (c *Coordinator) restore(rec records.Record) (*rooms.Room, error) {
	if len(rec.Snapshot) == 0 {
		return nil, fmt.Errorf("%w: empty", errCorrupt)
	}
	var st protocol.RoomState
	if err := json.Unmarshal(rec.Snapshot, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if err := validateState(rec.RoomID, st); err != nil {
		return nil, err
	}

	maxRounds := st.MaxRounds
	if maxRounds <= 0 {
		maxRounds = c.cfg.MaxRounds
	}
	clock := roundclock.New(maxRounds, c.cfg.RoundDuration)
	clock.Round = st.CurrentRound
	clock.Remaining = st.TimeRemaining

	room := rooms.New(st.ID, st.Name, rooms.Visibility(st.Visibility), clock, c.newRand(), st.CreatedAt)
	room.Lock()
	room.Status = rooms.Status(st.Status)
	room.LastActivity = st.LastActivity
	room.HostID = st.Host
	room.RecentActions = append([]string(nil), st.RecentActions...)
	for round, texts := range st.ActionHistory {
		room.History[round] = append([]string(nil), texts...)
	}
	for _, e := range st.MarketChanges {
		if e.Resource.Valid() {
			room.Market[e.Resource] = e.Change
		}
	}
	joined := make(map[string]time.Time, len(rec.Players))
	for _, e := range rec.Players {
		joined[e.ID] = e.JoinedAt
	}
	for _, ps := range st.Players {
		room.Players.Restore(&players.Player{
			ID:         ps.ID,
			Name:       ps.Name,
			JoinedAt:   joined[ps.ID],
			Wallet:     economy.Wallet{Tokens: ps.Tokens, Holdings: ps.Assets},
			FinalScore: ps.FinalScore,
		})
	}
	// A waiting room's joins may have reached the record without a newer
	// snapshot. Nobody has traded yet, so they start with a fresh wallet.
	if room.Status == rooms.Waiting {
		for _, e := range rec.Players {
			if room.Players.Len() >= c.cfg.MaxPlayers {
				break
			}
			if e.ID == "" || e.Name == "" || room.Players.Get(e.ID) != nil || room.Players.NameTaken(e.Name) {
				continue
			}
			p := room.Players.Add(e.ID, e.Name, "")
			p.JoinedAt = e.JoinedAt
		}
	}
	room.Winner = st.Winner
	room.Rankings = append([]rooms.Ranking(nil), st.Rankings...)
	room.PreviousWinner = st.PreviousWinner
	if room.Host() == nil {
		room.HostID = st.Players[0].ID
	}
	return room, nil
}

func validateState(roomID string, st protocol.RoomState) error {
	switch {
	case st.ID == "" || st.ID != roomID:
		return fmt.Errorf("%w: room id %q does not match record %q", errCorrupt, st.ID, roomID)
	case len(st.Players) == 0:
		return fmt.Errorf("%w: no players", errCorrupt)
	case !rooms.Visibility(st.Visibility).Valid():
		return fmt.Errorf("%w: visibility %q", errCorrupt, st.Visibility)
	case st.CurrentRound < 1 || (st.MaxRounds > 0 && st.CurrentRound > st.MaxRounds+1):
		return fmt.Errorf("%w: round %d", errCorrupt, st.CurrentRound)
	}
	switch rooms.Status(st.Status) {
	case rooms.Waiting, rooms.Playing, rooms.Finished:
	default:
		return fmt.Errorf("%w: status %q", errCorrupt, st.Status)
	}
	seen := make(map[string]bool, len(st.Players))
	for _, p := range st.Players {
		if p.ID == "" || p.Name == "" || seen[p.ID] {
			return fmt.Errorf("%w: player %q", errCorrupt, p.ID)
		}
		if p.Tokens < 0 || p.Assets.Gold < 0 || p.Assets.Water < 0 || p.Assets.Oil < 0 {
			return fmt.Errorf("%w: negative wallet for %q", errCorrupt, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// armRestored starts the timers a restored room needs for its status. The
// room lock must be held and the room must already be in the store.
func (c *Coordinator) armRestored(room *rooms.Room) {
	id := room.ID
	remaining := c.cfg.IdleTimeout - c.clock.Since(room.LastActivity)
	if remaining < 0 {
		remaining = 0
	}
	room.Timers.SetIdle(c.clock.AfterFunc(remaining, func() { c.idleExpired(id) }))

	switch room.Status {
	case rooms.Playing:
		room.Clock.Start()
		c.startClock(room)
	case rooms.Finished:
		room.Timers.SetRematch(c.clock.AfterFunc(c.cfg.RematchDelay, func() { c.rematch(id) }))
	}
}
