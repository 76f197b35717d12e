package obs_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-manzano/internal/common"
	"github.com/noah-isme/backend-manzano/internal/obs"
)

func TestHTTPMetricsUseRoutePattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("elmanzano", []float64{10, 1}, registry)

	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/api/v1/catalog/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/cabana", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/catalog/{id}", "204")))
	require.Equal(t, 1, testutil.CollectAndCount(metrics.ReqDur))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.InFlight))

	again := obs.NewHTTPMetrics("elmanzano", nil, registry)
	require.Same(t, metrics.ReqTotal, again.ReqTotal, "re-registration reuses collectors")
}

func TestRequestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLoggerTo(&buf, "json", "info")

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Post("/api/v1/cart/items", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(common.SessionHeader, "sess-9")
		common.JSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "http_request", entry["message"])
	require.Equal(t, "/api/v1/cart/items", entry["route"])
	require.Equal(t, "sess-9", entry["cart_session"])
	require.Equal(t, "203.0.113.7", entry["client_ip"])
	require.EqualValues(t, 200, entry["status"])
}

func TestDomainMetricsCountOutcomes(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("test", registry)

	obs.ObserveCartOp("add", nil)
	obs.ObserveCartOp("add", errors.New("boom"))
	obs.ObserveSubmission("cotizacion", "sent")

	require.Equal(t, 1.0, testutil.ToFloat64(obs.CartOperationsTotal.WithLabelValues("add", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.CartOperationsTotal.WithLabelValues("add", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.SubmissionsTotal.WithLabelValues("cotizacion", "sent")))
}

func TestParseBucketsCSV(t *testing.T) {
	require.Equal(t, []float64{5, 12.5, 100}, obs.ParseBucketsCSV(" 5,12.5, x ,-1,100"))
	require.Nil(t, obs.ParseBucketsCSV(""))
}
