package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metric descriptors for the game server.
type Metrics struct {
	game      *Game
	startTime time.Time

	playersConnected *prometheus.GaugeVec
	playersTotal     prometheus.Gauge
	guildsTotal      prometheus.Gauge
	itemTemplates    prometheus.Gauge
	pendingQueries   prometheus.Gauge
	uptimeSeconds    prometheus.Gauge
}

// NewMetrics creates server gauges and registers them, together with the
// Go runtime collectors, on the game's registry.
func NewMetrics(game *Game, startTime time.Time) *Metrics {
	m := &Metrics{
		game:      game,
		startTime: startTime,
		playersConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "reagentbank_players_connected",
			Help: "Number of currently connected players by transport.",
		}, []string{"transport"}),
		playersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reagentbank_players_total",
			Help: "Total number of players in the world.",
		}),
		guildsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reagentbank_guilds_total",
			Help: "Total number of guilds in the world.",
		}),
		itemTemplates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reagentbank_item_templates",
			Help: "Item templates in the loaded catalog.",
		}),
		pendingQueries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reagentbank_pending_queries",
			Help: "Ledger queries waiting for their session callback.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reagentbank_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
	}

	game.Registry.MustRegister(
		m.playersConnected,
		m.playersTotal,
		m.guildsTotal,
		m.itemTemplates,
		m.pendingQueries,
		m.uptimeSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Update refreshes all gauge metrics from current game state.
func (m *Metrics) Update() {
	for transport, n := range m.game.ConnectionStats() {
		m.playersConnected.WithLabelValues(transport).Set(float64(n))
	}
	m.game.withLock(func() {
		m.playersTotal.Set(float64(len(m.game.DB.Players)))
		m.guildsTotal.Set(float64(len(m.game.DB.Guilds)))
	})
	m.itemTemplates.Set(float64(m.game.Items.Len()))
	_, pending := m.game.QueueStats()
	m.pendingQueries.Set(float64(pending))
	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())
}

// Handler returns an http.Handler that updates metrics before serving them.
func (m *Metrics) Handler() http.Handler {
	h := promhttp.HandlerFor(m.game.Registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update()
		h.ServeHTTP(w, r)
	})
}
