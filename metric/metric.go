// Package metric provides Prometheus metrics collection and monitoring.
package metric

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/cpu"
)

// Metrics contains the Prometheus metrics server and registered custom metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	httpServer           *http.Server
	config               Config
	registry             *prometheus.Registry
	webSocketConnections prometheus.Gauge
	webRTCConnections    prometheus.Gauge
	cpuUsage             prometheus.Gauge
	memoryUsage          prometheus.Gauge
	networkUsage         *prometheus.GaugeVec
	calls                *prometheus.CounterVec
	requests             *prometheus.CounterVec
}

// New creates a new Metrics instance with the specified configuration.
func New(config Config) *Metrics {
	return &Metrics{
		config:   config,
		registry: prometheus.NewRegistry(),
		webSocketConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signaling_connections",
			Help: "Current number of signaling WebSocket connections.",
		}),
		webRTCConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webrtc_connections",
			Help: "Current number of peer sessions.",
		}),
		cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cpu_usage_percentage",
			Help: "CPU usage percentage.",
		}),
		memoryUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memory_usage_bytes",
			Help: "Current memory usage in bytes.",
		}),
		networkUsage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "network_usage_bytes",
			Help: "Media bytes moved since start.",
		}, []string{"direction"}), // Direction: "inbound" or "outbound"
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calls_total",
			Help: "Finished calls by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signaling_requests_total",
			Help: "Signaling requests by command and result.",
		}, []string{"command", "result"}),
	}
}

// RegisterMetrics registers custom metrics with the instance registry.
func (m *Metrics) RegisterMetrics() {
	m.registry.MustRegister(
		m.webSocketConnections,
		m.webRTCConnections,
		m.cpuUsage,
		m.memoryUsage,
		m.networkUsage,
		m.calls,
		m.requests,
	)
}

// Handler returns the HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Start initializes and starts the metrics HTTP server.
func (m *Metrics) Start() {
	if m.config.Port == 0 {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())
	m.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", m.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Info().Int("port", m.config.Port).Str("path", m.config.Path).Msg("starting metrics server")
		if err := m.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("error starting metrics server")
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (m *Metrics) Stop() error {
	if m.httpServer != nil {
		log.Info().Int("port", m.config.Port).Msg("stopping metrics server")
		return m.httpServer.Close()
	}
	return nil
}

// UpdateSystemMetrics samples memory and CPU usage until ctx is done.
func (m *Metrics) UpdateSystemMetrics(ctx context.Context) {
	interval := m.config.Interval
	if interval <= 0 {
		interval = DefaultMetricsInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.sampleSystem()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Metrics) sampleSystem() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.memoryUsage.Set(float64(memStats.Alloc))

	// A zero interval compares against the previous call instead of sleeping.
	percents, err := cpu.Percent(0, false)
	if err != nil {
		log.Debug().Err(err).Msg("failed to sample cpu usage")
		return
	}
	if len(percents) > 0 {
		m.cpuUsage.Set(percents[0])
	}
}

// IncrementWebSocketConnections increments the WebSocket connection count.
func (m *Metrics) IncrementWebSocketConnections() {
	if m == nil {
		return
	}
	m.webSocketConnections.Inc()
}

// DecrementWebSocketConnections decrements the WebSocket connection count.
func (m *Metrics) DecrementWebSocketConnections() {
	if m == nil {
		return
	}
	m.webSocketConnections.Dec()
}

// IncrementWebRTCConnections increments the WebRTC connection count.
func (m *Metrics) IncrementWebRTCConnections() {
	if m == nil {
		return
	}
	m.webRTCConnections.Inc()
}

// DecrementWebRTCConnections decrements the WebRTC connection count.
func (m *Metrics) DecrementWebRTCConnections() {
	if m == nil {
		return
	}
	m.webRTCConnections.Dec()
}

// AddNetworkUsage adds bytes to the network usage of a direction ("inbound" or "outbound").
func (m *Metrics) AddNetworkUsage(direction string, bytes int) {
	if m == nil {
		return
	}
	m.networkUsage.WithLabelValues(direction).Add(float64(bytes))
}

// ObserveCall counts a finished call.
func (m *Metrics) ObserveCall(outcome string) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(outcome).Inc()
}

// ObserveRequest counts a signaling request.
func (m *Metrics) ObserveRequest(command, result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(command, result).Inc()
}
