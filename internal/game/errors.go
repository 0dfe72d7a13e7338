package game

import "errors"

// Rejected requests. The room is left untouched when one of these is returned.
var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrRoomNotJoinable     = errors.New("room is not accepting players")
	ErrNotHost             = errors.New("only the host can start the game")
	ErrInsufficientPlayers = errors.New("at least two players are needed to start")
	ErrPlayerNameTaken     = errors.New("player name already taken")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrNotInRoom           = errors.New("connection is not in a room")
	ErrInvalidRequest      = errors.New("invalid request")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrRoomNotFound, "RoomNotFound"},
	{ErrRoomFull, "RoomFull"},
	{ErrRoomNotJoinable, "RoomNotJoinable"},
	{ErrNotHost, "NotHost"},
	{ErrInsufficientPlayers, "InsufficientPlayers"},
	{ErrPlayerNameTaken, "PlayerNameTaken"},
	{ErrPlayerNotFound, "PlayerNotFound"},
	{ErrNotInRoom, "NotInRoom"},
	{ErrInvalidRequest, "InvalidRequest"},
}

// KindOf returns the wire kind of a rejected request, or "Internal".
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}
