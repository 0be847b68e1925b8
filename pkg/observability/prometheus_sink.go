package observability

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricSink adapts the metric model onto a prometheus registry.
// Counter and amount metrics become prometheus counters, status metrics become
// gauges, and interval metrics become histograms observed in seconds.
type PrometheusMetricSink struct {
	registry   *prometheus.Registry
	namespace  string
	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram

	nextID    atomic.Int64
	intervals sync.Map // IntervalID -> time.Time
}

// NewPrometheusMetricSink creates a sink registering collectors on registry
// under the given namespace.
func NewPrometheusMetricSink(namespace string, registry *prometheus.Registry) *PrometheusMetricSink {
	return &PrometheusMetricSink{
		registry:   registry,
		namespace:  namespace,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Registry returns the underlying prometheus registry, for exposing /metrics.
func (s *PrometheusMetricSink) Registry() *prometheus.Registry {
	return s.registry
}

func (s *PrometheusMetricSink) Increment(metric *Metric) {
	s.counter(metric).Inc()
}

func (s *PrometheusMetricSink) Add(metric *Metric, amount int64) {
	s.counter(metric).Add(float64(amount))
}

func (s *PrometheusMetricSink) Set(metric *Metric, value int64) {
	s.gauge(metric).Set(float64(value))
}

func (s *PrometheusMetricSink) Begin(metric *Metric) IntervalID {
	id := IntervalID(s.nextID.Add(1))
	s.intervals.Store(id, time.Now())
	return id
}

func (s *PrometheusMetricSink) End(id IntervalID, metric *Metric) {
	if id == FilteredIntervalID {
		return
	}
	start, ok := s.intervals.LoadAndDelete(id)
	if !ok {
		return
	}
	s.histogram(metric).Observe(time.Since(start.(time.Time)).Seconds())
}

func (s *PrometheusMetricSink) CancelBegin(id IntervalID, metric *Metric) {
	if id == FilteredIntervalID {
		return
	}
	s.intervals.Delete(id)
}

func (s *PrometheusMetricSink) counter(metric *Metric) prometheus.Counter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.counters[metric.Name()]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: s.namespace,
		Name:      metric.Name(),
		Help:      metric.Description(),
	})
	s.registry.MustRegister(c)
	s.counters[metric.Name()] = c
	return c
}

func (s *PrometheusMetricSink) gauge(metric *Metric) prometheus.Gauge {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.gauges[metric.Name()]; ok {
		return g
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: s.namespace,
		Name:      metric.Name(),
		Help:      metric.Description(),
	})
	s.registry.MustRegister(g)
	s.gauges[metric.Name()] = g
	return g
}

func (s *PrometheusMetricSink) histogram(metric *Metric) prometheus.Histogram {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.histograms[metric.Name()]; ok {
		return h
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: s.namespace,
		Name:      metric.Name(),
		Help:      metric.Description(),
		Buckets:   prometheus.DefBuckets,
	})
	s.registry.MustRegister(h)
	s.histograms[metric.Name()] = h
	return h
}
