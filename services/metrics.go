package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 引擎指标，由 /metrics 暴露
var (
	BallsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cricket_balls_recorded_total",
		Help: "Total number of ball events recorded",
	})

	BallErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cricket_ball_errors_total",
		Help: "Total number of rejected ball events by error kind",
	}, []string{"kind"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cricket_cache_hits_total",
		Help: "Live view cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cricket_cache_misses_total",
		Help: "Live view cache misses",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cricket_events_published_total",
		Help: "Live events published to subscribers by type",
	}, []string{"type"})

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cricket_ws_clients",
		Help: "Currently connected WebSocket clients",
	})
)
