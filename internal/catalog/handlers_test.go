package catalog_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-manzano/internal/catalog"
)

func newCatalogRouter(t *testing.T, src catalog.Source) http.Handler {
	t.Helper()
	svc, err := catalog.NewService(catalog.ServiceConfig{Source: src})
	require.NoError(t, err)
	h := catalog.NewHandler(catalog.HandlerConfig{Service: svc})
	r := chi.NewRouter()
	r.Get("/api/v1/catalog", h.List)
	r.Get("/api/v1/catalog/{id}", h.Detail)
	return r
}

func TestListGroupsServices(t *testing.T) {
	router := newCatalogRouter(t, &stubSource{doc: sampleDoc(t)})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data []catalog.GroupView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 3)
	cabana := resp.Data[0].Servicios[0]
	require.Equal(t, "$25.000", cabana.PrecioDisplay)
	require.Equal(t, json.Number("25000"), cabana.Precio)
	require.Equal(t, "POR PERSONA POR NOCHE", cabana.UnitLabel)
	require.Len(t, cabana.Inputs, 2)
	require.Equal(t, "personas", cabana.Inputs[0].Name)
	require.Equal(t, 2, cabana.Inputs[0].Default)

	quincho := resp.Data[1].Servicios[0]
	require.Len(t, quincho.Inputs, 1)
	require.Equal(t, "dias", quincho.Inputs[0].Name)
	require.NotNil(t, quincho.Imagenes)
}

func TestDetailNotFound(t *testing.T) {
	router := newCatalogRouter(t, &stubSource{doc: sampleDoc(t)})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/tinaja", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"unitLabel":"POR PERSONA"`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/missing", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), `"code":"NOT_FOUND"`)
}

func TestListUnavailable(t *testing.T) {
	router := newCatalogRouter(t, &stubSource{err: errors.New("down")})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Contains(t, rr.Body.String(), `"code":"CATALOG_UNAVAILABLE"`)
}
