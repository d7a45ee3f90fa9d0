package metric_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studycall/metric"
)

func TestMetrics(t *testing.T) {
	t.Run("given two instances when registered then they do not collide", func(t *testing.T) {
		first := metric.New(metric.Config{Path: metric.DefaultMetricsPath})
		second := metric.New(metric.Config{Path: metric.DefaultMetricsPath})
		assert.NotPanics(t, first.RegisterMetrics)
		assert.NotPanics(t, second.RegisterMetrics)
	})

	t.Run("given recorded values when scraped then exposition contains them", func(t *testing.T) {
		m := metric.New(metric.Config{Path: metric.DefaultMetricsPath})
		m.RegisterMetrics()
		m.IncrementWebSocketConnections()
		m.IncrementWebRTCConnections()
		m.IncrementWebRTCConnections()
		m.DecrementWebRTCConnections()
		m.ObserveCall("completed")
		m.ObserveRequest("call:initiate", "ok")
		m.AddNetworkUsage("inbound", 1200)

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, "signaling_connections 1")
		assert.Contains(t, body, "webrtc_connections 1")
		assert.Contains(t, body, `calls_total{outcome="completed"} 1`)
		assert.Contains(t, body, `signaling_requests_total{command="call:initiate",result="ok"} 1`)
		assert.Contains(t, body, `network_usage_bytes{direction="inbound"} 1200`)
	})

	t.Run("given nil metrics when recording then nothing panics", func(t *testing.T) {
		var m *metric.Metrics
		assert.NotPanics(t, func() {
			m.IncrementWebSocketConnections()
			m.DecrementWebRTCConnections()
			m.ObserveCall("missed")
			m.AddNetworkUsage("inbound", 10)
		})
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  metric.Config
		wantErr bool
	}{
		{name: "given defaults when validated then succeed", config: metric.Config{Port: metric.DefaultMetricsPort, Path: metric.DefaultMetricsPath}},
		{name: "given disabled server when validated then path is not required", config: metric.Config{Port: 0}},
		{name: "given port out of range when validated then return error", config: metric.Config{Port: 70000, Path: "/m"}, wantErr: true},
		{name: "given relative path when validated then return error", config: metric.Config{Port: 9090, Path: "metrics"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, metric.ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}
