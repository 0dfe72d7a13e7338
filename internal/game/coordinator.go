package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"resourcerush/internal/economy"
	"resourcerush/internal/events"
	"resourcerush/internal/metrics"
	"resourcerush/internal/players"
	"resourcerush/internal/protocol"
	"resourcerush/internal/records"
	"resourcerush/internal/rooms"
	"resourcerush/internal/roundclock"
	"resourcerush/internal/sessions"
	"resourcerush/internal/utility"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Close reasons.
const (
	ReasonAllExited = "All players exited"
	ReasonIdle      = "Closed due to inactivity"
	ReasonCorrupt   = "corrupt state"
	ReasonRetention = "Retention period expired"
)

// Broadcaster delivers encoded messages to connections grouped by room.
type Broadcaster interface {
	Join(roomID, connID string)
	Leave(roomID, connID string)
	DetachRoom(roomID string)
	ToRoom(roomID string, msg []byte)
	ToConn(connID string, msg []byte)
}

// Recorder is the fire-and-forget write side of the persistence gateway.
type Recorder interface {
	Create(rec records.Record)
	UpdateStatus(roomID string, status records.Status)
	AppendPlayer(roomID string, player records.PlayerEntry)
	UpdateRoster(roomID string, roster records.Roster)
	UpdateSnapshot(roomID string, snapshot []byte)
	Purge(status records.Status, age time.Duration)
}

type Deps struct {
	Store       *rooms.Store
	Sessions    *sessions.Directory
	Broadcaster Broadcaster
	Recorder    Recorder
	Bus         *events.Bus
	Metrics     *metrics.Metrics
	Clock       clockwork.Clock
	Logger      zerolog.Logger
	// Seed feeds the per-room market generators. Zero means time based.
	Seed int64
}

// Coordinator is the single authority over every live room. Each room is
// mutated only while its lock is held, so mutations of one room are
// serialized while different rooms proceed in parallel.
type Coordinator struct {
	cfg      Config
	store    *rooms.Store
	sessions *sessions.Directory
	out      Broadcaster
	rec      Recorder
	bus      *events.Bus
	metrics  *metrics.Metrics
	clock    clockwork.Clock
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	seedMu sync.Mutex
	seed   *rand.Rand
}

func NewCoordinator(cfg Config, deps Deps) *Coordinator {
	if deps.Store == nil {
		deps.Store = rooms.NewStore()
	}
	if deps.Sessions == nil {
		deps.Sessions = sessions.NewDirectory()
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = nopBroadcaster{}
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Seed == 0 {
		deps.Seed = time.Now().UnixNano()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		cfg:      cfg.withDefaults(),
		store:    deps.Store,
		sessions: deps.Sessions,
		out:      deps.Broadcaster,
		rec:      deps.Recorder,
		bus:      deps.Bus,
		metrics:  deps.Metrics,
		clock:    deps.Clock,
		log:      deps.Logger.With().Str("component", "coordinator").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		seed:     rand.New(rand.NewSource(deps.Seed)),
	}
}

func (c *Coordinator) Config() Config {
	return c.cfg
}

func (c *Coordinator) newRand() *rand.Rand {
	c.seedMu.Lock()
	defer c.seedMu.Unlock()
	return rand.New(rand.NewSource(c.seed.Int63()))
}

// withRoom runs fn with the room locked. A panic inside fn fails that room
// closed instead of taking the process down.
func (c *Coordinator) withRoom(roomID string, fn func(*rooms.Room) error) (err error) {
	room := c.store.Get(normalizeRoomID(roomID))
	if room == nil {
		return ErrRoomNotFound
	}
	room.Lock()
	defer room.Unlock()
	if room.Closed {
		return ErrRoomNotFound
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Str("room_id", room.ID).Interface("panic", r).Msg("room mutation panicked, closing room")
			c.closeLocked(room, ReasonCorrupt)
			err = fmt.Errorf("room %s: %v", room.ID, r)
		}
	}()
	return fn(room)
}

func normalizeRoomID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// CreateRoom opens a new waiting room with the creator as sole player and host.
func (c *Coordinator) CreateRoom(connID, name, creatorName string, vis rooms.Visibility) (roomID, playerID string, err error) {
	name = strings.TrimSpace(name)
	creatorName = strings.TrimSpace(creatorName)
	if name == "" || creatorName == "" {
		return "", "", fmt.Errorf("%w: room and player names are required", ErrInvalidRequest)
	}
	if vis == "" {
		vis = rooms.Public
	}
	if !vis.Valid() {
		return "", "", fmt.Errorf("%w: unknown visibility %q", ErrInvalidRequest, vis)
	}

	prev, hadPrev := c.sessions.Resolve(connID)

	now := c.clock.Now()
	room, err := c.store.Create(func(code string) *rooms.Room {
		r := rooms.New(code, name, vis, roundclock.New(c.cfg.MaxRounds, c.cfg.RoundDuration), c.newRand(), now)
		// Locked before it becomes visible in the store.
		r.Lock()
		return r
	})
	if err != nil {
		return "", "", fmt.Errorf("creating room: %w", err)
	}
	// Deferred first so it runs after the unlock.
	defer c.leavePrevious(connID, prev, hadPrev, "")
	defer room.Unlock()

	playerID = utility.NewPlayerID()
	creator := room.Players.Add(playerID, creatorName, connID)
	creator.JoinedAt = now
	room.HostID = creator.ID

	id := room.ID
	room.Timers.SetIdle(c.clock.AfterFunc(c.cfg.IdleTimeout, func() { c.idleExpired(id) }))

	c.attach(room, creator)
	c.toConn(connID, protocol.RoomCreatedType, protocol.RoomCreated{RoomID: room.ID, PlayerID: playerID})
	c.broadcastState(room)

	c.rec.Create(records.Record{
		RoomID:       room.ID,
		Name:         room.Name,
		Visibility:   string(room.Visibility),
		Status:       records.StatusWaiting,
		HostPlayerID: creator.ID,
		HostName:     creator.Name,
		Players:      []records.PlayerEntry{{ID: creator.ID, Name: creator.Name, JoinedAt: now}},
		MaxPlayers:   c.cfg.MaxPlayers,
		Snapshot:     c.snapshot(room),
		CreatedAt:    now,
	})
	c.publish(events.RoomEvent{Kind: events.RoomCreated, RoomID: room.ID, Players: 1})
	c.publish(events.RoomEvent{Kind: events.PlayerJoined, RoomID: room.ID, Players: 1})
	c.log.Info().Str("room_id", room.ID).Str("host", creator.Name).Str("visibility", string(vis)).Msg("room created")
	return room.ID, playerID, nil
}

// JoinRoom adds a new player to a waiting room.
func (c *Coordinator) JoinRoom(connID, roomID, playerName string) (playerID string, err error) {
	roomID = normalizeRoomID(roomID)
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return "", fmt.Errorf("%w: player name is required", ErrInvalidRequest)
	}
	prev, hadPrev := c.sessions.Resolve(connID)
	if hadPrev && prev.RoomID == roomID {
		return "", fmt.Errorf("%w: already in room %s", ErrInvalidRequest, roomID)
	}

	err = c.withRoom(roomID, func(room *rooms.Room) error {
		if room.Players.Len() >= c.cfg.MaxPlayers {
			return ErrRoomFull
		}
		if room.Status != rooms.Waiting {
			return ErrRoomNotJoinable
		}
		if room.Players.NameTaken(playerName) {
			return ErrPlayerNameTaken
		}

		playerID = utility.NewPlayerID()
		p := room.Players.Add(playerID, playerName, connID)
		p.JoinedAt = c.clock.Now()
		hostMoved := false
		if host := room.Host(); host == nil || !host.Connected {
			room.HostID = p.ID
			hostMoved = true
		}
		c.touch(room)
		c.attach(room, p)

		c.toConn(connID, protocol.RoomJoinedType, protocol.RoomJoined{RoomID: room.ID, PlayerID: p.ID})
		c.toRoom(room, protocol.PlayerJoinedType, protocol.PlayerJoined{PlayerName: p.Name})
		c.broadcastState(room)

		c.rec.AppendPlayer(room.ID, records.PlayerEntry{ID: p.ID, Name: p.Name, JoinedAt: p.JoinedAt})
		if hostMoved {
			c.rec.UpdateRoster(room.ID, rosterOf(room))
		}
		c.persist(room)
		c.publish(events.RoomEvent{Kind: events.PlayerJoined, RoomID: room.ID, Players: room.Players.Len()})
		c.log.Info().Str("room_id", room.ID).Str("player", p.Name).Msg("player joined")
		return nil
	})
	if err != nil {
		return "", err
	}
	c.leavePrevious(connID, prev, hadPrev, roomID)
	return playerID, nil
}

// RejoinRoom reattaches an existing player to a new connection.
func (c *Coordinator) RejoinRoom(connID, roomID, playerID string) error {
	roomID = normalizeRoomID(roomID)
	prev, hadPrev := c.sessions.Resolve(connID)

	err := c.withRoom(roomID, func(room *rooms.Room) error {
		p := room.Players.Get(playerID)
		if p == nil || room.Exited[playerID] {
			return ErrPlayerNotFound
		}
		if p.ConnID != "" && p.ConnID != connID {
			c.sessions.Unbind(p.ConnID)
			c.out.Leave(room.ID, p.ConnID)
		}
		room.Players.Reconnect(p.ID, connID)
		if host := room.Host(); host == nil || !host.Connected {
			room.HostID = p.ID
			c.rec.UpdateRoster(room.ID, rosterOf(room))
		}
		c.touch(room)
		c.attach(room, p)

		c.toConn(connID, protocol.RoomJoinedType, protocol.RoomJoined{RoomID: room.ID, PlayerID: p.ID})
		c.broadcastState(room)
		c.log.Info().Str("room_id", room.ID).Str("player", p.Name).Msg("player rejoined")
		return nil
	})
	if err != nil {
		return err
	}
	c.leavePrevious(connID, prev, hadPrev, roomID)
	return nil
}

// StartGame moves a waiting room to playing and starts its clock.
func (c *Coordinator) StartGame(roomID, requesterID string) error {
	return c.withRoom(roomID, func(room *rooms.Room) error {
		if room.HostID != requesterID {
			return ErrNotHost
		}
		if room.Status != rooms.Waiting {
			return fmt.Errorf("%w: game already %s", ErrInvalidRequest, room.Status)
		}
		if room.Players.Len() < c.cfg.MinPlayers {
			return ErrInsufficientPlayers
		}

		room.Status = rooms.Playing
		room.Clock.Reset()
		room.Clock.Start()
		room.RecentActions = nil
		c.touch(room)
		c.startClock(room)

		c.toRoom(room, protocol.RoomStartedType, protocol.RoomStarted{RoomID: room.ID})
		c.broadcastState(room)

		c.rec.UpdateStatus(room.ID, records.StatusPlaying)
		c.persist(room)
		c.publish(events.RoomEvent{Kind: events.RoomStarted, RoomID: room.ID, Round: room.Clock.Round, Players: room.Players.Len()})
		c.log.Info().Str("room_id", room.ID).Int("players", room.Players.Len()).Msg("game started")
		return nil
	})
}

// ApplyAction resolves one player action. Stale actions (room gone, not
// playing, unknown player) and economically invalid ones are absorbed
// without an error.
func (c *Coordinator) ApplyAction(roomID, playerID string, act economy.Action) error {
	err := c.withRoom(roomID, func(room *rooms.Room) error {
		if room.Status != rooms.Playing {
			return nil
		}
		p := room.Players.Get(playerID)
		if p == nil || room.Exited[playerID] {
			return nil
		}
		c.touch(room)

		res := economy.Apply(p.Party(), act, room.Market, room.Lookup)
		if !res.Applied() {
			c.publish(events.RoomEvent{Kind: events.ActionIgnored, RoomID: room.ID, Round: room.Clock.Round, Action: string(act.Kind())})
			return nil
		}
		room.RecordAction(res.Text, c.cfg.RecentActionsLimit, c.cfg.HistoryLimit)
		c.broadcastLive(room)
		c.publish(events.RoomEvent{Kind: events.ActionApplied, RoomID: room.ID, Round: room.Clock.Round, Action: string(act.Kind())})
		return nil
	})
	if errors.Is(err, ErrRoomNotFound) {
		return nil
	}
	return err
}

// HandleDisconnect marks the connection's player as disconnected. The player
// stays in the room; the host role moves to the earliest-joined connected
// player if needed.
func (c *Coordinator) HandleDisconnect(connID string) {
	b, ok := c.sessions.Unbind(connID)
	if !ok {
		return
	}
	err := c.withRoom(b.RoomID, func(room *rooms.Room) error {
		c.out.Leave(room.ID, connID)
		p := room.Players.Get(b.PlayerID)
		if p == nil || p.ConnID != connID {
			return nil
		}
		room.Players.Disconnect(p.ID)
		if room.HostID == p.ID {
			if next := room.Players.FirstConnected(); next != nil {
				room.HostID = next.ID
				c.rec.UpdateRoster(room.ID, rosterOf(room))
			}
		}
		c.broadcastState(room)
		c.toRoom(room, protocol.PlayerDisconnectedType, protocol.PlayerDisconnected{PlayerName: p.Name})
		c.publish(events.RoomEvent{Kind: events.PlayerLeft, RoomID: room.ID, Reason: "disconnected"})
		c.log.Info().Str("room_id", room.ID).Str("player", p.Name).Msg("player disconnected")
		return nil
	})
	if err != nil && !errors.Is(err, ErrRoomNotFound) {
		c.log.Warn().Err(err).Str("conn_id", connID).Msg("disconnect")
	}
}

// HandleExit removes a player for good. When everyone left is exited or
// disconnected the room is closed instead.
func (c *Coordinator) HandleExit(roomID, playerID string) error {
	return c.withRoom(roomID, func(room *rooms.Room) error {
		p := room.Players.Get(playerID)
		if p == nil {
			return ErrPlayerNotFound
		}
		room.Exited[p.ID] = true
		c.touch(room)

		if room.AllGone() {
			c.closeLocked(room, ReasonAllExited)
			return nil
		}

		if connID, ok := c.sessions.UnbindPlayer(room.ID, p.ID); ok {
			c.out.Leave(room.ID, connID)
		}
		room.Players.Remove(p.ID)
		delete(room.Exited, p.ID)
		if room.HostID == p.ID {
			room.HostID = ""
			if next := room.Players.FirstConnected(); next != nil {
				room.HostID = next.ID
			} else if list := room.Players.List(); len(list) > 0 {
				room.HostID = list[0].ID
			}
		}

		c.toRoom(room, protocol.PlayerDisconnectedType, protocol.PlayerDisconnected{PlayerName: p.Name, Reason: "exited"})
		c.broadcastState(room)
		c.rec.UpdateRoster(room.ID, rosterOf(room))
		c.persist(room)
		c.publish(events.RoomEvent{Kind: events.PlayerLeft, RoomID: room.ID, Players: room.Players.Len(), Reason: "exited"})
		c.log.Info().Str("room_id", room.ID).Str("player", p.Name).Msg("player exited")
		return nil
	})
}

// CloseRoom shuts a room down. Closing an unknown or already closed room
// is a no-op.
func (c *Coordinator) CloseRoom(roomID, reason string) {
	room := c.store.Get(normalizeRoomID(roomID))
	if room == nil {
		return
	}
	room.Lock()
	defer room.Unlock()
	c.closeLocked(room, reason)
}

// closeLocked is the single cancellation point of a room. Callers hold the
// room lock.
func (c *Coordinator) closeLocked(room *rooms.Room, reason string) {
	if room.Closed {
		return
	}
	room.Closed = true
	room.Timers.StopAll()

	c.toRoom(room, protocol.RoomClosedType, protocol.RoomClosed{Reason: reason})
	c.store.Delete(room.ID)
	c.rec.UpdateStatus(room.ID, records.StatusClosed)
	c.sessions.UnbindRoom(room.ID)
	c.out.DetachRoom(room.ID)

	c.publish(events.RoomEvent{Kind: events.RoomClosed, RoomID: room.ID, Round: room.Clock.Round, Reason: reason})
	c.log.Info().Str("room_id", room.ID).Str("reason", reason).Msg("room closed")
}

// ListPublic describes every public room, oldest first.
func (c *Coordinator) ListPublic() []protocol.PublicRoom {
	list := c.store.ListPublic()
	out := make([]protocol.PublicRoom, 0, len(list))
	for _, room := range list {
		room.Lock()
		if !room.Closed {
			out = append(out, c.publicRoom(room))
		}
		room.Unlock()
	}
	return out
}

// State returns the current snapshot of a room.
func (c *Coordinator) State(roomID string) (protocol.RoomState, error) {
	var state protocol.RoomState
	err := c.withRoom(roomID, func(room *rooms.Room) error {
		state = c.buildState(room, true)
		return nil
	})
	return state, err
}

// Stop cancels every room timer. Rooms are left open so their mirrored
// records can be rehydrated by the next process.
func (c *Coordinator) Stop() {
	c.cancel()
	for _, room := range c.store.List() {
		room.Lock()
		room.Timers.StopAll()
		room.Unlock()
	}
}

// leavePrevious exits the room connID was bound to before it moved into
// keep. Callers invoke it only once the move has succeeded, so a rejected
// create, join or rejoin leaves the previous room untouched.
func (c *Coordinator) leavePrevious(connID string, prev sessions.Binding, ok bool, keep string) {
	if !ok || prev.RoomID == keep {
		return
	}
	c.out.Leave(prev.RoomID, connID)
	if err := c.HandleExit(prev.RoomID, prev.PlayerID); err != nil && !errors.Is(err, ErrRoomNotFound) && !errors.Is(err, ErrPlayerNotFound) {
		c.log.Warn().Err(err).Str("room_id", prev.RoomID).Msg("leaving previous room")
	}
}

func (c *Coordinator) attach(room *rooms.Room, p *players.Player) {
	if p.ConnID == "" {
		return
	}
	c.sessions.Bind(p.ConnID, sessions.Binding{RoomID: room.ID, PlayerID: p.ID, Name: p.Name})
	c.out.Join(room.ID, p.ConnID)
}

// rosterOf is the durable view of a room's players and host.
func rosterOf(room *rooms.Room) records.Roster {
	list := room.Players.List()
	roster := records.Roster{Players: make([]records.PlayerEntry, 0, len(list))}
	for _, p := range list {
		roster.Players = append(roster.Players, records.PlayerEntry{ID: p.ID, Name: p.Name, JoinedAt: p.JoinedAt})
	}
	if host := room.Host(); host != nil {
		roster.HostPlayerID = host.ID
		roster.HostName = host.Name
	}
	return roster
}

// touch records activity and pushes the idle deadline back.
func (c *Coordinator) touch(room *rooms.Room) {
	room.LastActivity = c.clock.Now()
	room.Timers.ResetIdle(c.cfg.IdleTimeout)
}

func (c *Coordinator) publish(ev events.RoomEvent) {
	if ev.At.IsZero() {
		ev.At = c.clock.Now()
	}
	c.bus.Publish(ev)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Join(string, string)   {}
func (nopBroadcaster) Leave(string, string)  {}
func (nopBroadcaster) DetachRoom(string)     {}
func (nopBroadcaster) ToRoom(string, []byte) {}
func (nopBroadcaster) ToConn(string, []byte) {}

type nopRecorder struct{}

func (nopRecorder) Create(records.Record)                    {}
func (nopRecorder) UpdateStatus(string, records.Status)      {}
func (nopRecorder) AppendPlayer(string, records.PlayerEntry) {}
func (nopRecorder) UpdateRoster(string, records.Roster)      {}
func (nopRecorder) UpdateSnapshot(string, []byte)            {}
func (nopRecorder) Purge(records.Status, time.Duration)      {}
