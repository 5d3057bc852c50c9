package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"synthd/core/events"
)

type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking emitted vault events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "synthd",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of emitted vault events segmented by event type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

// RecordEmit increments the counter for the supplied event type.
func (m *eventMetrics) RecordEmit(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToLower(eventType))
	if normalized == "" {
		normalized = "unknown"
	}
	m.emitted.WithLabelValues(normalized).Inc()
}

// CountingEmitter forwards events to the wrapped sink while recording one
// counter increment per event type. A nil next sink only counts.
type CountingEmitter struct {
	next events.Emitter
}

func NewCountingEmitter(next events.Emitter) *CountingEmitter {
	return &CountingEmitter{next: next}
}

// Emit implements events.Emitter.
func (c *CountingEmitter) Emit(ev events.Event) {
	if ev == nil {
		return
	}
	Events().RecordEmit(ev.EventType())
	if c != nil && c.next != nil {
		c.next.Emit(ev)
	}
}
