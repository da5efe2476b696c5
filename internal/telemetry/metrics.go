package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink counts events per name and variant and observes dwell and
// scroll distributions
type MetricsSink struct {
	events      *prometheus.CounterVec
	engagements *prometheus.CounterVec
	dwell       *prometheus.HistogramVec
	scroll      *prometheus.HistogramVec
}

// NewMetricsSink creates the collectors and registers them with reg when non-nil
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	s := &MetricsSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedlens",
			Subsystem: "telemetry",
			Name:      "events_total",
			Help:      "Captured telemetry events",
		}, []string{"event", "variant"}),
		engagements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedlens",
			Subsystem: "telemetry",
			Name:      "engagements_total",
			Help:      "Post engagements by kind",
		}, []string{"variant", "engagement_type", "positive"}),
		dwell: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "feedlens",
			Subsystem: "telemetry",
			Name:      "dwell_seconds",
			Help:      "Post detail dwell time",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"variant"}),
		scroll: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "feedlens",
			Subsystem: "telemetry",
			Name:      "max_scroll_percent",
			Help:      "Maximum scroll depth reached per flush",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}, []string{"variant"}),
	}
	if reg != nil {
		reg.MustRegister(s.events, s.engagements, s.dwell, s.scroll)
	}
	return s
}

// Capture updates the collectors for the event
func (s *MetricsSink) Capture(_ context.Context, event string, props map[string]any) error {
	variant := stringProp(props, "variant")
	s.events.WithLabelValues(event, variant).Inc()

	switch event {
	case "post_engagement":
		s.engagements.WithLabelValues(variant, stringProp(props, "engagement_type"), stringProp(props, "is_positive")).Inc()
	case "post_dwell_time":
		if v, ok := numberProp(props, "dwell_time_seconds"); ok {
			s.dwell.WithLabelValues(variant).Observe(v)
		}
	case "post_scroll_depth":
		if v, ok := numberProp(props, "max_scroll_reached"); ok {
			s.scroll.WithLabelValues(variant).Observe(v)
		}
	}
	return nil
}

func (s *MetricsSink) Close() error { return nil }

func stringProp(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func numberProp(props map[string]any, key string) (float64, bool) {
	switch v := props[key].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
