package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fields represents key-value pairs for labels/attributes
type Fields map[string]any

// MetricsProvider defines the interface for metrics collection,
// trimmed to the counter/histogram/exposition surface the query
// dispatcher and cmd/ binaries actually use.
type MetricsProvider interface {
	IncrementCounter(name string, labels Fields)
	ObserveHistogram(name string, value float64, labels Fields)

	// Handler exposes the metrics for scraping.
	Handler() http.Handler

	Close() error
}

// MetricsConfig holds configuration for metrics
type MetricsConfig struct {
	Provider  string // "prometheus"
	Namespace string
	Subsystem string
	Enabled   bool
}

// MetricsService is the main service for managing metrics
type MetricsService struct {
	config   MetricsConfig
	provider MetricsProvider
	mu       sync.RWMutex
}

// NewMetricsService creates a new metrics service
func NewMetricsService(config MetricsConfig) (*MetricsService, error) {
	var provider MetricsProvider
	var err error

	if !config.Enabled {
		provider = &noOpProvider{}
	} else {
		switch config.Provider {
		case "prometheus":
			provider, err = NewPrometheusProvider(config.Namespace, config.Subsystem)
		default:
			return nil, fmt.Errorf("unsupported metrics provider: %s", config.Provider)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}

	return &MetricsService{
		config:   config,
		provider: provider,
	}, nil
}

// IncrementCounter increments a counter by 1
func (s *MetricsService) IncrementCounter(name string, labels Fields) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.provider.IncrementCounter(name, labels)
}

// ObserveHistogram observes a value in a histogram
func (s *MetricsService) ObserveHistogram(name string, value float64, labels Fields) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.provider.ObserveHistogram(name, value, labels)
}

// Handler returns HTTP handler for metrics exposure
func (s *MetricsService) Handler() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider.Handler()
}

// Close closes the metrics service
func (s *MetricsService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider.Close()
}

// PrometheusProvider is the Prometheus-backed MetricsProvider.
type PrometheusProvider struct {
	registry   prometheus.Registerer
	gatherer   prometheus.Gatherer
	namespace  string
	subsystem  string
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	mu         sync.RWMutex
}

func NewPrometheusProvider(namespace, subsystem string) (*PrometheusProvider, error) {
	registry := prometheus.NewRegistry()

	return &PrometheusProvider{
		registry:   registry,
		gatherer:   registry,
		namespace:  namespace,
		subsystem:  subsystem,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}, nil
}

func (p *PrometheusProvider) counter(name, help string, labelKeys []string) *prometheus.CounterVec {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := p.metricKey(name)
	if counter, exists := p.counters[key]; exists {
		return counter
	}

	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: p.subsystem,
			Name:      name,
			Help:      help,
		},
		labelKeys,
	)

	if err := p.registry.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				p.counters[key] = existing
				return existing
			}
		}
		return counter
	}

	p.counters[key] = counter
	return counter
}

func (p *PrometheusProvider) IncrementCounter(name string, labels Fields) {
	labelKeys := extractLabelKeys(labels)
	counter := p.counter(name, fmt.Sprintf("Auto-generated counter for %s", name), labelKeys)
	counter.With(fieldsToPrometheusLabels(labels)).Inc()
}

func (p *PrometheusProvider) histogram(name, help string, labelKeys []string) *prometheus.HistogramVec {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := p.metricKey(name)
	if histogram, exists := p.histograms[key]; exists {
		return histogram
	}

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: p.subsystem,
			Name:      name,
			Help:      help,
			Buckets:   prometheus.DefBuckets,
		},
		labelKeys,
	)

	if err := p.registry.Register(histogram); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				p.histograms[key] = existing
				return existing
			}
		}
		return histogram
	}

	p.histograms[key] = histogram
	return histogram
}

func (p *PrometheusProvider) ObserveHistogram(name string, value float64, labels Fields) {
	labelKeys := extractLabelKeys(labels)
	histogram := p.histogram(name, fmt.Sprintf("Auto-generated histogram for %s", name), labelKeys)
	histogram.With(fieldsToPrometheusLabels(labels)).Observe(value)
}

func (p *PrometheusProvider) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func (p *PrometheusProvider) Close() error {
	return nil
}

func (p *PrometheusProvider) metricKey(name string) string {
	if p.subsystem != "" {
		return fmt.Sprintf("%s_%s_%s", p.namespace, p.subsystem, name)
	}
	return fmt.Sprintf("%s_%s", p.namespace, name)
}

// noOpProvider is used when metrics are disabled.
type noOpProvider struct{}

func (n *noOpProvider) IncrementCounter(name string, labels Fields)                {}
func (n *noOpProvider) ObserveHistogram(name string, value float64, labels Fields) {}
func (n *noOpProvider) Handler() http.Handler                                      { return http.NotFoundHandler() }
func (n *noOpProvider) Close() error                                               { return nil }

func fieldsToPrometheusLabels(fields Fields) prometheus.Labels {
	labels := make(prometheus.Labels, len(fields))
	for k, v := range fields {
		labels[k] = fmt.Sprintf("%v", v)
	}
	return labels
}

func extractLabelKeys(labels Fields) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	return keys
}
