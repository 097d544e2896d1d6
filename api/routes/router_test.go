package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorbox-backend/internal/sweeps"
	"github.com/angelmondragon/vendorbox-backend/pkg/config"
	"github.com/angelmondragon/vendorbox-backend/pkg/logger"
	"github.com/angelmondragon/vendorbox-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type countingSweep struct{ calls int }

func (c *countingSweep) Execute(context.Context) sweeps.Result {
	c.calls++
	return sweeps.Result{OrdersExpired: c.calls, Errors: []string{}}
}

func TestRouterWiresAdminSurface(t *testing.T) {
	reg := prometheus.NewRegistry()
	sweepMetrics := metrics.NewSweepMetrics(reg)
	orderSweep := &countingSweep{}
	paymentSweep := &countingSweep{}
	router := NewRouter(
		&config.Config{App: config.AppConfig{Env: "dev"}},
		logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}),
		Deps{
			DB:                 stubPinger{},
			Redis:              stubPinger{},
			OrderExpiration:    orderSweep,
			PaymentCleanup:     paymentSweep,
			SweepMetrics:       sweepMetrics,
			PrometheusGatherer: reg,
		},
	)
	sweepMetrics.AddOrdersExpired(1)

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health/live", http.StatusOK},
		{http.MethodGet, "/health/ready", http.StatusOK},
		{http.MethodPost, "/admin/sweeps/order-expiration", http.StatusOK},
		{http.MethodPost, "/admin/sweeps/payment-cleanup", http.StatusOK},
		{http.MethodGet, "/admin/sweeps/metrics", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodPost, "/admin/sweeps/metrics/reset", http.StatusOK},
		{http.MethodGet, "/admin/sweeps/order-expiration", http.StatusMethodNotAllowed},
		{http.MethodPost, "/admin/alerts/recalculate", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		assert.Equal(t, tc.status, resp.Code, "%s %s", tc.method, tc.path)
		assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))
	}

	assert.Equal(t, 1, orderSweep.calls)
	assert.Equal(t, 1, paymentSweep.calls)
	assert.Zero(t, sweepMetrics.Snapshot().OrdersExpired)
}

func TestRouterExportsSweepCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	sweepMetrics := metrics.NewSweepMetrics(reg)
	sweepMetrics.AddPaymentsUpdated(3)
	router := NewRouter(&config.Config{}, nil, Deps{SweepMetrics: sweepMetrics, PrometheusGatherer: reg})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.True(t, strings.Contains(body, `sweep_items_total{kind="payments_updated"} 3`), body)
}
