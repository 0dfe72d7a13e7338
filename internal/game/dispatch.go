package game

import (
	"fmt"
	"resourcerush/internal/protocol"
	"resourcerush/internal/rooms"
)

// HandleMessage parses one raw client message and dispatches it.
func (c *Coordinator) HandleMessage(connID string, data []byte) {
	in, err := protocol.Parse(data)
	if err != nil {
		c.reject(connID, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	c.Handle(connID, in)
}

// Handle routes a parsed message to the matching operation. Rejections are
// answered with an error message to the sender only.
func (c *Coordinator) Handle(connID string, in protocol.Inbound) {
	if err := c.dispatch(connID, in); err != nil {
		c.reject(connID, in.Type, err)
	}
}

func (c *Coordinator) dispatch(connID string, in protocol.Inbound) error {
	switch in.Type {
	case protocol.CreateRoomType:
		var req protocol.CreateRoom
		if err := decode(in, &req); err != nil {
			return err
		}
		_, _, err := c.CreateRoom(connID, req.Name, req.PlayerName, rooms.Visibility(req.Visibility))
		return err

	case protocol.JoinRoomType:
		var req protocol.JoinRoom
		if err := decode(in, &req); err != nil {
			return err
		}
		_, err := c.JoinRoom(connID, req.RoomID, req.PlayerName)
		return err

	case protocol.RejoinRoomType:
		var req protocol.RejoinRoom
		if err := decode(in, &req); err != nil {
			return err
		}
		return c.RejoinRoom(connID, req.RoomID, req.PlayerID)

	case protocol.GetRoomStateType:
		var req protocol.GetRoomState
		if err := decode(in, &req); err != nil {
			return err
		}
		state, err := c.State(req.RoomID)
		if err != nil {
			return err
		}
		c.toConn(connID, protocol.RoomStateType, state)
		return nil

	case protocol.StartGameType:
		b, ok := c.sessions.Resolve(connID)
		if !ok {
			return ErrNotInRoom
		}
		return c.StartGame(b.RoomID, b.PlayerID)

	case protocol.PlayerActionType:
		var req protocol.PlayerAction
		if err := decode(in, &req); err != nil {
			return err
		}
		act, err := req.Action()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		b, ok := c.sessions.Resolve(connID)
		if !ok {
			c.log.Debug().Str("conn_id", connID).Msg("dropping action from unbound connection")
			return nil
		}
		return c.ApplyAction(b.RoomID, b.PlayerID, act)

	case protocol.ExitRoomType:
		b, ok := c.sessions.Resolve(connID)
		if !ok {
			return ErrNotInRoom
		}
		if err := c.HandleExit(b.RoomID, b.PlayerID); err != nil {
			return err
		}
		c.sessions.Unbind(connID)
		return nil

	case protocol.ListPublicRoomsType:
		c.toConn(connID, protocol.PublicRoomsType, protocol.PublicRooms{Rooms: c.ListPublic()})
		return nil
	}
	return fmt.Errorf("%w: unknown message type %q", ErrInvalidRequest, in.Type)
}

func decode(in protocol.Inbound, v any) error {
	if err := protocol.Decode(in.Payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func (c *Coordinator) reject(connID, typ string, err error) {
	kind := KindOf(err)
	c.metrics.Reject(kind)
	ev := c.log.Debug()
	if kind == "Internal" {
		ev = c.log.Error()
	}
	ev.Err(err).Str("conn_id", connID).Str("type", typ).Str("kind", kind).Msg("request rejected")

	c.toConn(connID, protocol.ErrorType, protocol.Error{Message: err.Error(), Kind: kind})
}
