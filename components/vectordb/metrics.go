package vectordb

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes index activity as prometheus collectors labelled by index name.
type Metrics struct {
	puts     *prometheus.CounterVec
	searches *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	records  *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		puts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "vectordb",
			Name:      "puts_total",
			Help:      "Number of records written.",
		}, []string{"index"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "vectordb",
			Name:      "searches_total",
			Help:      "Number of searches served.",
		}, []string{"index"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "vectordb",
			Name:      "search_duration_seconds",
			Help:      "Search latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"index"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "docqa",
			Subsystem: "vectordb",
			Name:      "records",
			Help:      "Number of records held by the index.",
		}, []string{"index"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.puts, m.searches, m.latency, m.records} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observePut(index string, count int) {
	if m == nil {
		return
	}
	m.puts.WithLabelValues(index).Inc()
	m.records.WithLabelValues(index).Set(float64(count))
}

func (m *Metrics) observeSearch(index string, d time.Duration) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(index).Inc()
	m.latency.WithLabelValues(index).Observe(d.Seconds())
}

func (m *Metrics) setRecords(index string, count int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(index).Set(float64(count))
}
