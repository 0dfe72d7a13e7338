package protocol

import (
	"encoding/json"
	"resourcerush/internal/economy"
	"resourcerush/internal/rooms"
	"resourcerush/internal/roundclock"
	"time"
)

// Inbound message types.
const (
	CreateRoomType      = "create-room"
	JoinRoomType        = "join-room"
	RejoinRoomType      = "rejoin-room"
	GetRoomStateType    = "get-room-state"
	StartGameType       = "start-game"
	PlayerActionType    = "player-action"
	ExitRoomType        = "exit-room"
	ListPublicRoomsType = "list-public-rooms"
)

// Outbound message types.
const (
	RoomCreatedType        = "room-created"
	RoomJoinedType         = "room-joined"
	RoomStateType          = "room-state"
	RoomStartedType        = "room-started"
	PlayerJoinedType       = "player-joined"
	PlayerDisconnectedType = "player-disconnected"
	RoomClosedType         = "room-closed"
	ErrorType              = "error"
	PublicRoomsType        = "public-rooms"
)

// Inbound is a message received from a client. Payload is decoded lazily
// once the type is known.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound is the envelope of every message sent to clients.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type CreateRoom struct {
	Name       string `json:"name" validate:"required,max=40"`
	PlayerName string `json:"playerName" validate:"required,max=24"`
	Visibility string `json:"visibility" validate:"omitempty,oneof=public private"`
}

type JoinRoom struct {
	RoomID     string `json:"roomId" validate:"required"`
	PlayerName string `json:"playerName" validate:"required,max=24"`
}

type RejoinRoom struct {
	RoomID   string `json:"roomId" validate:"required"`
	PlayerID string `json:"playerId" validate:"required"`
}

type GetRoomState struct {
	RoomID string `json:"roomId" validate:"required"`
}

type PlayerAction struct {
	Kind       string `json:"kind" validate:"required,oneof=buy sell burn sabotage"`
	Resource   string `json:"resource" validate:"required,oneof=gold water oil"`
	Amount     int    `json:"amount" validate:"gt=0,max=1000000"`
	TargetName string `json:"targetName,omitempty" validate:"required_if=Kind sabotage"`
}

// Action converts a validated payload into an engine action.
func (p PlayerAction) Action() (economy.Action, error) {
	res, err := economy.ParseResource(p.Resource)
	if err != nil {
		return nil, err
	}
	return economy.NewAction(economy.Kind(p.Kind), res, p.Amount, p.TargetName)
}

type RoomCreated struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

type RoomJoined struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

type RoomStarted struct {
	RoomID string `json:"roomId"`
}

type PlayerJoined struct {
	PlayerName string `json:"playerName"`
}

type PlayerDisconnected struct {
	PlayerName string `json:"playerName"`
	Reason     string `json:"reason,omitempty"`
}

type RoomClosed struct {
	Reason string `json:"reason"`
}

type Error struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

type PublicRooms struct {
	Rooms []PublicRoom `json:"rooms"`
}

type PublicRoom struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Status         string    `json:"status"`
	CurrentPlayers int       `json:"currentPlayers"`
	MaxPlayers     int       `json:"maxPlayers"`
	HostName       string    `json:"hostName"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RoomState is the full snapshot of a room. It is both the room-state
// payload and the document mirrored to the persistence gateway.
type RoomState struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Visibility     string                `json:"visibility"`
	Status         string                `json:"status"`
	CurrentRound   int                   `json:"currentRound"`
	MaxRounds      int                   `json:"maxRounds"`
	TimeRemaining  roundclock.Countdown  `json:"timeRemaining"`
	Players        []PlayerState         `json:"players"`
	MarketChanges  []economy.MarketEntry `json:"marketChanges"`
	RecentActions  []string              `json:"recentActions"`
	ActionHistory  map[int][]string      `json:"actionHistory,omitempty"`
	Host           string                `json:"host"`
	Winner         string                `json:"winner,omitempty"`
	Rankings       []rooms.Ranking       `json:"rankings,omitempty"`
	PreviousWinner string                `json:"previousWinner,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	LastActivity   time.Time             `json:"lastActivity"`
}

type PlayerState struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Tokens      int              `json:"tokens"`
	Assets      economy.Holdings `json:"assets"`
	TotalAssets int              `json:"totalAssets"`
	LiveScore   int              `json:"liveScore"`
	Connected   bool             `json:"connected"`
	IsHost      bool             `json:"isHost"`
	FinalScore  *int             `json:"finalScore,omitempty"`
}
