package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"resourcerush/internal/broadcast"
	"resourcerush/internal/config"
	"resourcerush/internal/game"
	"resourcerush/internal/metrics"
	"resourcerush/internal/protocol"
	"resourcerush/internal/records"
	"resourcerush/internal/utility"
	"resourcerush/internal/wshub"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

type Server struct {
	Coord       *game.Coordinator
	Broadcaster *broadcast.Broadcaster
	Gateway     records.Gateway
	Metrics     *metrics.Metrics
	Config      config.Config
	Log         zerolog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.Config.AllowedOrigins,
	})
	if err != nil {
		s.Log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	connID := utility.NewConnID()
	send := s.Broadcaster.Register(connID)
	client := wshub.NewClient(connID, conn, send, s.Config.MessageRate, s.Config.MessageBurst)
	s.Metrics.ConnOpened()
	log := s.Log.With().Str("conn_id", connID).Logger()
	log.Debug().Str("remote", r.RemoteAddr).Msg("connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go client.WritePump(ctx)

	err = client.ReadPump(ctx, func(msg []byte) {
		s.Coord.HandleMessage(connID, msg)
	}, func() {
		s.Metrics.Reject("RateLimited")
	})
	if err != nil {
		log.Debug().Err(err).Msg("connection read ended")
	}

	s.Coord.HandleDisconnect(connID)
	s.Broadcaster.Unregister(connID)
	s.Metrics.ConnClosed()
	conn.Close(websocket.StatusNormalClosure, "")
	log.Debug().Msg("connection closed")
}

// handleListRooms serves public waiting rooms from the durable mirror.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	recs, err := s.Gateway.ListPublicWaiting(r.Context())
	if err != nil {
		s.Log.Warn().Err(err).Msg("listing public rooms")
		writeJSON(w, http.StatusServiceUnavailable, protocol.Error{Message: "room listing unavailable", Kind: "Internal"})
		return
	}
	out := protocol.PublicRooms{Rooms: make([]protocol.PublicRoom, 0, len(recs))}
	for _, rec := range recs {
		out.Rooms = append(out.Rooms, protocol.PublicRoom{
			ID:             rec.RoomID,
			Name:           rec.Name,
			Status:         string(rec.Status),
			CurrentPlayers: rec.CurrentPlayers,
			MaxPlayers:     rec.MaxPlayers,
			HostName:       rec.HostName,
			CreatedAt:      rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	state, err := s.Coord.State(r.PathValue("id"))
	if errors.Is(err, game.ErrRoomNotFound) {
		writeJSON(w, http.StatusNotFound, protocol.Error{Message: err.Error(), Kind: game.KindOf(err)})
		return
	}
	if err != nil {
		s.Log.Error().Err(err).Msg("reading room state")
		writeJSON(w, http.StatusInternalServerError, protocol.Error{Message: "internal error", Kind: "Internal"})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.Gateway.(records.Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_error", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
