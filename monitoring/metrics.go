package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Total tickets issued per event",
		},
		[]string{"event_id"},
	)

	webhookOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_webhooks_total",
			Help: "Total checkout webhooks by selection mode and outcome",
		},
		[]string{"mode", "status"},
	)

	checkins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkins_total",
			Help: "Total ticket check-ins per event",
		},
		[]string{"event_id"},
	)

	hashResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hash_resolutions_total",
			Help: "Total hash lookups by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	hashIndexEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hash_index_entries_total",
			Help: "Current number of cached hash index entries",
		},
	)
)

type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	// Start metrics collection
	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()
		m.collectIndexMetrics(ctx)
	}
}

func (m *Monitor) collectIndexMetrics(ctx context.Context) {
	var count int64
	iter := m.redis.Scan(ctx, 0, "hashidx:*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return
	}
	hashIndexEntries.Set(float64(count))
}

// TrackTicketsIssued records newly issued tickets for an event.
func TrackTicketsIssued(eventID string, quantity int) {
	ticketsIssued.WithLabelValues(eventID).Add(float64(quantity))
}

// TrackWebhook records a checkout webhook outcome.
// Mode is "table" or "quantity", status "processed" or "rejected".
func TrackWebhook(mode, status string) {
	webhookOperations.WithLabelValues(mode, status).Inc()
}

// TrackCheckin records a door check-in for an event.
func TrackCheckin(eventID string) {
	checkins.WithLabelValues(eventID).Inc()
}

// TrackHashResolution records a hash lookup outcome.
// Kind is "access" or "order", status "hit" or "miss".
func TrackHashResolution(kind, status string) {
	hashResolutions.WithLabelValues(kind, status).Inc()
}
