package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-manzano/internal/catalog"
	"github.com/noah-isme/backend-manzano/internal/common"
	"github.com/noah-isme/backend-manzano/internal/pricing"
	"github.com/noah-isme/backend-manzano/internal/resilience"
)

const sampleDocument = `{"servicios":[
  {"id":"cabana-familiar","nombre":"Cabaña familiar","precio_por_persona_noche":25000,"unidad_cobro":"persona_noche","categoria":"Cabañas","imagenes":["/img/cabana.jpg"]},
  {"id":"quincho","nombre":"Quincho","precio_por_persona_noche":"40000","unidad_cobro":"DIA","categoria":"Eventos"},
  {"id":"","nombre":"Sin id"},
  {"id":"tinaja","nombre":"Tinaja caliente","precio_por_persona_noche":15000,"unidad_cobro":"persona"},
  {"id":"cabana-pareja","nombre":"Cabaña pareja","precio_por_persona_noche":30000,"categoria":" Cabañas "}
]}`

type stubSource struct {
	doc   catalog.Document
	err   error
	calls atomic.Int32
}

func (s *stubSource) Origin() string { return "stub" }

func (s *stubSource) Fetch(context.Context) (catalog.Document, error) {
	s.calls.Add(1)
	if s.err != nil {
		return catalog.Document{}, s.err
	}
	return s.doc, nil
}

func sampleDoc(t *testing.T) catalog.Document {
	t.Helper()
	doc, err := catalog.Decode([]byte(sampleDocument))
	require.NoError(t, err)
	return doc
}

func TestDecodeDropsEntriesWithoutID(t *testing.T) {
	doc := sampleDoc(t)
	require.Len(t, doc.Servicios, 4)
	require.True(t, decimal.NewFromInt(40000).Equal(doc.Servicios[1].PrecioPorPersonaNoche))
	require.Equal(t, pricing.Dia, doc.Servicios[1].Unidad())
	require.Equal(t, pricing.PersonaNoche, doc.Servicios[3].Unidad())

	empty, err := catalog.Decode([]byte(`{}`))
	require.NoError(t, err)
	require.NotNil(t, empty.Servicios)

	_, err = catalog.Decode([]byte(`{"servicios":`))
	require.Error(t, err)
}

func TestDecodeTreatsUnreadablePricesAsZero(t *testing.T) {
	doc, err := catalog.Decode([]byte(`{"servicios":[
  {"id":"a","precio_por_persona_noche":5000},
  {"id":"b","precio_por_persona_noche":"consultar"},
  {"id":"c","precio_por_persona_noche":""},
  {"id":"d"}
]}`))
	require.NoError(t, err)
	require.Len(t, doc.Servicios, 4)
	require.True(t, decimal.NewFromInt(5000).Equal(doc.Servicios[0].PrecioPorPersonaNoche))
	for _, svc := range doc.Servicios[1:] {
		require.True(t, svc.PrecioPorPersonaNoche.IsZero(), svc.ID)
	}

	line := doc.Servicios[1].Line(pricing.Dimensions{Personas: 2, Noches: 3})
	require.True(t, pricing.Subtotal(line).IsZero())
}

func TestGroupByCategoryKeepsFirstAppearanceOrder(t *testing.T) {
	groups := catalog.GroupByCategory(sampleDoc(t).Servicios)
	require.Len(t, groups, 3)
	require.Equal(t, "Cabañas", groups[0].Categoria)
	require.Equal(t, "cabanas", groups[0].Slug)
	require.Len(t, groups[0].Servicios, 2)
	require.Equal(t, "Eventos", groups[1].Categoria)
	require.Equal(t, catalog.DefaultCategory, groups[2].Categoria)
	require.Equal(t, "otros", groups[2].Slug)
}

func TestServicioLineCopiesCatalogFields(t *testing.T) {
	svc := sampleDoc(t).Servicios[0]
	line := svc.Line(pricing.Dimensions{Personas: 3, Noches: 2, Dias: 9})
	require.Equal(t, "cabana-familiar", line.ID)
	require.Equal(t, "/img/cabana.jpg", line.Imagen)
	require.Equal(t, "Cabañas", line.Categoria)
	require.Equal(t, pricing.Quantity(1), line.Dias)
	require.True(t, decimal.NewFromInt(150000).Equal(pricing.Subtotal(line)))

	uncategorised := sampleDoc(t).Servicios[2]
	require.Equal(t, "tinaja", uncategorised.ID)
	require.Empty(t, uncategorised.Line(pricing.Dimensions{Personas: 1}).Categoria)
	require.Equal(t, catalog.DefaultCategory, uncategorised.CategoryName())

	padded := sampleDoc(t).Servicios[3]
	require.Equal(t, "Cabañas", padded.Line(pricing.Dimensions{Personas: 1}).Categoria)
}

func TestServiceUsesSharedCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	src := &stubSource{doc: sampleDoc(t)}
	svc, err := catalog.NewService(catalog.ServiceConfig{Source: src, Cache: catalog.NewCache(client, time.Minute)})
	require.NoError(t, err)

	ctx := context.Background()
	first, err := svc.Servicios(ctx)
	require.NoError(t, err)
	second, err := svc.Servicios(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(1), src.calls.Load())
	require.Len(t, second, len(first))
	require.True(t, mr.Exists("catalog:servicios"))

	require.NoError(t, svc.Refresh(ctx))
	_, err = svc.Servicios(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(2), src.calls.Load())
}

func TestServiceServesPreviousDocumentOnFailure(t *testing.T) {
	src := &stubSource{doc: sampleDoc(t)}
	svc, err := catalog.NewService(catalog.ServiceConfig{Source: src})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.Document(ctx)
	require.NoError(t, err)

	src.err = errors.New("upstream down")
	doc, err := svc.Document(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Servicios, 4)
	require.NoError(t, svc.Ping(ctx))
}

func TestServiceUnavailableWithoutPreviousDocument(t *testing.T) {
	svc, err := catalog.NewService(catalog.ServiceConfig{Source: &stubSource{err: errors.New("boom")}})
	require.NoError(t, err)

	_, err = svc.Servicios(context.Background())
	require.ErrorIs(t, err, catalog.ErrUnavailable)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus)
}

func TestServiceFind(t *testing.T) {
	svc, err := catalog.NewService(catalog.ServiceConfig{Source: &stubSource{doc: sampleDoc(t)}})
	require.NoError(t, err)

	found, err := svc.Find(context.Background(), " quincho ")
	require.NoError(t, err)
	require.Equal(t, "Quincho", found.Nombre)

	_, err = svc.Find(context.Background(), "nope")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestNewServiceRequiresSource(t *testing.T) {
	_, err := catalog.NewService(catalog.ServiceConfig{})
	require.Error(t, err)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servicios.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDocument), 0o600))

	doc, err := catalog.FileSource{Path: path}.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Servicios, 4)

	_, err = catalog.FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.Fetch(context.Background())
	require.Error(t, err)
}

func TestHTTPSourceBypassesCaches(t *testing.T) {
	var cacheControl string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cacheControl = r.Header.Get("Cache-Control")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleDocument))
	}))
	t.Cleanup(srv.Close)

	src := catalog.HTTPSource{URL: srv.URL, Client: resilience.HTTPClient{Client: srv.Client()}}
	doc, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Servicios, 4)
	require.Equal(t, "no-store", cacheControl)
}

func TestHTTPSourceRejectsNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := catalog.HTTPSource{URL: srv.URL, Client: resilience.HTTPClient{Client: srv.Client()}}.Fetch(context.Background())
	require.ErrorContains(t, err, "HTTP 404")
}
