package app_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-manzano/internal/app"
	"github.com/noah-isme/backend-manzano/internal/common"
	"github.com/noah-isme/backend-manzano/internal/config"
	"github.com/noah-isme/backend-manzano/internal/quote"
)

const catalogJSON = `{"servicios":[
  {"id":"cabana","nombre":"Cabaña","precio_por_persona_noche":25000,"unidad_cobro":"persona_noche","categoria":"Cabañas"},
  {"id":"quincho","nombre":"Quincho","precio_por_persona_noche":40000,"unidad_cobro":"dia","categoria":"Eventos"}
]}`

type webhook struct {
	mu    sync.Mutex
	paths []string
	token string
	body  []byte
}

func newWebhook(t *testing.T) (*webhook, *httptest.Server) {
	t.Helper()
	wh := &webhook{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		wh.mu.Lock()
		wh.paths = append(wh.paths, r.URL.Path)
		wh.token = r.Header.Get(quote.TokenHeader)
		wh.body = data
		wh.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return wh, srv
}

func newConfig(t *testing.T, webhookURL string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "servicios.json")
	require.NoError(t, os.WriteFile(path, []byte(catalogJSON), 0o600))
	return &config.Config{
		AppEnv:          "test",
		CatalogPath:     path,
		CatalogCacheTTL: time.Minute,
		CartKeyPrefix:   "elmanzano_cart_v2",
		CartTTL:         time.Hour,
		CartLockTTL:     time.Second,
		WebhookBaseURL:  webhookURL,
		WebhookToken:    "secret",
		WebhookTimeout:  2 * time.Second,
		SubmitRateLimit: "100-M",
		IdempotencyTTL:  time.Minute,
		Obs:             config.Obs{MetricsNamespace: "elmanzano_test"},
	}
}

func do(t *testing.T, h http.Handler, method, path, session, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "198.51.100.10:4000"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(common.SessionHeader, session)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

type cartResponse struct {
	Data struct {
		Items        []json.RawMessage `json:"items"`
		Count        int               `json:"count"`
		Total        json.Number       `json:"total"`
		TotalDisplay string            `json:"totalDisplay"`
		Currency     string            `json:"currency"`
	} `json:"data"`
}

func decodeCart(t *testing.T, rr *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp
}

func runQuotationFlow(t *testing.T, deps *app.Dependencies, wh *webhook) {
	t.Helper()
	a, err := app.New(deps)
	require.NoError(t, err)
	h := a.Router

	rr := do(t, h, http.MethodPost, "/api/v1/cart/items", "", `{"id":"cabana","personas":2,"noches":2}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	session := rr.Header().Get(common.SessionHeader)
	require.NotEmpty(t, session)

	rr = do(t, h, http.MethodPost, "/api/v1/cart/items", session, `{"id":"quincho","dias":3}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, h, http.MethodGet, "/api/v1/cart", session, "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeCart(t, rr)
	require.Len(t, got.Data.Items, 2)
	require.Equal(t, 5, got.Data.Count)
	require.Equal(t, json.Number("220000"), got.Data.Total)
	require.Equal(t, "$220.000", got.Data.TotalDisplay)
	require.Equal(t, "CLP", got.Data.Currency)

	rr = do(t, h, http.MethodPost, "/api/v1/cotizacion", session, `{"nombre":"Ana","email":"ana@example.com","page":"/carrito"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	wh.mu.Lock()
	require.Equal(t, []string{quote.QuotationPath}, wh.paths)
	require.Equal(t, "secret", wh.token)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(wh.body, &payload))
	wh.mu.Unlock()
	require.Equal(t, "cotizacion", payload["tipo"])
	require.Equal(t, "/carrito", payload["page"])

	rr = do(t, h, http.MethodGet, "/api/v1/cart", session, "")
	require.Equal(t, 0, decodeCart(t, rr).Data.Count)
}

func TestQuotationFlowInMemory(t *testing.T) {
	wh, srv := newWebhook(t)
	deps := &app.Dependencies{Config: newConfig(t, srv.URL), Logger: zerolog.Nop(), HTTP: srv.Client()}
	runQuotationFlow(t, deps, wh)
}

func TestQuotationFlowWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	wh, srv := newWebhook(t)
	deps := &app.Dependencies{Config: newConfig(t, srv.URL), Logger: zerolog.Nop(), HTTP: srv.Client(), Redis: client}
	runQuotationFlow(t, deps, wh)
	require.True(t, mr.Exists("catalog:servicios"))
}

func TestOpsEndpoints(t *testing.T) {
	_, srv := newWebhook(t)
	deps := &app.Dependencies{
		Config:   newConfig(t, srv.URL),
		Logger:   zerolog.Nop(),
		HTTP:     srv.Client(),
		Registry: prometheus.NewRegistry(),
	}
	a, err := app.New(deps)
	require.NoError(t, err)

	rr := do(t, a.Router, http.MethodGet, "/health/live", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, a.Router, http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"catalog":"ok"`)

	rr = do(t, a.Router, http.MethodGet, "/api/v1/catalog", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	rr = do(t, a.Router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "elmanzano_test_http_requests_total")
	require.Contains(t, rr.Body.String(), "breaker_state")
}

func TestSubmitRoutesAreRateLimited(t *testing.T) {
	_, srv := newWebhook(t)
	cfg := newConfig(t, srv.URL)
	cfg.SubmitRateLimit = "1-M"
	a, err := app.New(&app.Dependencies{Config: cfg, Logger: zerolog.Nop(), HTTP: srv.Client()})
	require.NoError(t, err)

	body := `{"nombre":"Ana","email":"ana@example.com","mensaje":"Hola"}`
	rr := do(t, a.Router, http.MethodPost, "/api/v1/contacto", "", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = do(t, a.Router, http.MethodPost, "/api/v1/contacto", "", body)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := app.New(&app.Dependencies{})
	require.Error(t, err)
}
