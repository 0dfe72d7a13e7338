package metrics

import (
	"resourcerush/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "resourcerush"

// Metrics holds the server's Prometheus collectors. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	RoomsActive   prometheus.Gauge
	Connections   prometheus.Gauge
	PlayersJoined prometheus.Counter
	Actions       *prometheus.CounterVec
	Rounds        prometheus.Counter
	GamesFinished prometheus.Counter
	RoomsClosed   *prometheus.CounterVec
	MirrorDropped prometheus.Counter
	MirrorErrors  *prometheus.CounterVec
	Rejected      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Rooms currently held in memory.",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open WebSocket connections.",
		}),
		PlayersJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "players_joined_total",
			Help:      "Players added to rooms, including room creators.",
		}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Player actions by kind and whether they had an effect.",
		}, []string{"kind", "result"}),
		Rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_advanced_total",
			Help:      "Round rollovers across all rooms.",
		}),
		GamesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games that reached the final round.",
		}),
		RoomsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_closed_total",
			Help:      "Closed rooms by reason.",
		}, []string{"reason"}),
		MirrorDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_dropped_total",
			Help:      "Persistence writes dropped on a full queue.",
		}),
		MirrorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_errors_total",
			Help:      "Failed persistence writes by operation.",
		}, []string{"op"}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_rejected_total",
			Help:      "Inbound requests answered with an error, by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.RoomsActive, m.Connections, m.PlayersJoined, m.Actions, m.Rounds,
		m.GamesFinished, m.RoomsClosed, m.MirrorDropped, m.MirrorErrors, m.Rejected,
	)
	return m
}

// Handle updates collectors from a room event. It satisfies events.Sink.
func (m *Metrics) Handle(ev events.RoomEvent) {
	if m == nil {
		return
	}
	switch ev.Kind {
	case events.RoomCreated:
		m.RoomsActive.Inc()
	case events.RoomClosed:
		m.RoomsActive.Dec()
		m.RoomsClosed.WithLabelValues(ev.Reason).Inc()
	case events.PlayerJoined:
		m.PlayersJoined.Inc()
	case events.RoundAdvanced:
		m.Rounds.Inc()
	case events.RoomFinished:
		m.GamesFinished.Inc()
	case events.ActionApplied:
		m.Actions.WithLabelValues(ev.Action, "applied").Inc()
	case events.ActionIgnored:
		m.Actions.WithLabelValues(ev.Action, "no_effect").Inc()
	}
}

func (m *Metrics) ConnOpened() {
	if m != nil {
		m.Connections.Inc()
	}
}

func (m *Metrics) ConnClosed() {
	if m != nil {
		m.Connections.Dec()
	}
}

func (m *Metrics) MirrorDrop() {
	if m != nil {
		m.MirrorDropped.Inc()
	}
}

func (m *Metrics) MirrorError(op string) {
	if m != nil {
		m.MirrorErrors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) Reject(kind string) {
	if m != nil {
		m.Rejected.WithLabelValues(kind).Inc()
	}
}
