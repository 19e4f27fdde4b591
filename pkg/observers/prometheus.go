package observers

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/metrics"
)

// PrometheusObserver exports client events as Prometheus instruments. Events
// named *_ms are observed as histograms; everything else counts.
type PrometheusObserver struct {
	events    *prometheus.CounterVec
	latencies *prometheus.HistogramVec
}

func NewPrometheusObserver(namespace string) *PrometheusObserver {
	return NewPrometheusObserverWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

func NewPrometheusObserverWithRegisterer(namespace string, reg prometheus.Registerer) *PrometheusObserver {
	factory := promauto.With(reg)
	return &PrometheusObserver{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_events_total",
			Help:      "Voice client events by name.",
		}, []string{"event"}),
		latencies: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "client_latency_ms",
			Help:      "Voice client latencies in milliseconds.",
			Buckets:   []float64{50, 100, 200, 300, 500, 700, 900, 1200, 2000, 5000},
		}, []string{"event"}),
	}
}

func (o *PrometheusObserver) RecordEvent(ev metrics.MetricsEvent) {
	if strings.HasSuffix(ev.Name, "_ms") {
		o.latencies.WithLabelValues(strings.TrimSuffix(ev.Name, "_ms")).Observe(ev.Value)
		return
	}
	o.events.WithLabelValues(ev.Name).Inc()
}

// MetricsHandler exposes the default registry for scraping.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
