package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const DefaultSubjectPrefix = "resourcerush"

// Publisher is the part of *nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink forwards room events to NATS as JSON on <prefix>.<kind>,
// e.g. resourcerush.room.closed.
type NATSSink struct {
	pub    Publisher
	prefix string
	log    zerolog.Logger
}

func NewNATSSink(pub Publisher, prefix string, log zerolog.Logger) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSink{pub: pub, prefix: prefix, log: log.With().Str("component", "nats").Logger()}
}

func (s *NATSSink) Subject(k Kind) string {
	return s.prefix + "." + string(k)
}

func (s *NATSSink) Handle(ev RoomEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal room event")
		return
	}
	if err := s.pub.Publish(s.Subject(ev.Kind), data); err != nil {
		s.log.Warn().Err(err).Str("room_id", ev.RoomID).Str("kind", string(ev.Kind)).Msg("publish room event")
	}
}

// ConnectNATS dials url with reconnects enabled forever.
func ConnectNATS(url string, log zerolog.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("resourcerush"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}
