package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/koalabang/MUFCR6K2025/internal/muf"
	"github.com/koalabang/MUFCR6K2025/internal/store"
)

func f(v float64) *float64 { return &v }

func newTestApp(seriesStore *store.SeriesStore) *fiber.App {
	app := fiber.New()
	svc := muf.NewService(nil, muf.NewResolver(zap.NewNop()), seriesStore, zap.NewNop())
	RegisterRoutes(app, svc, nil)
	return app
}

func TestLatestEmptyReturns404(t *testing.T) {
	app := newTestApp(store.NewSeriesStore(0, 0))

	req := httptest.NewRequest(http.MethodGet, "/api/muf/latest", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestLatestReturnsRoundedPoint(t *testing.T) {
	seriesStore := store.NewSeriesStore(0, 0)
	seriesStore.Append(f(10.06), f(20.06), time.Now().UTC())

	app := newTestApp(seriesStore)

	req := httptest.NewRequest(http.MethodGet, "/api/muf/latest", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var p muf.Point
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if *p.Roquetes != 10.1 || *p.Arenosillo != 20.1 {
		t.Fatalf("expected rounded values 10.1/20.1, got %v/%v", *p.Roquetes, *p.Arenosillo)
	}
	if *p.Avg != 15.1 {
		t.Fatalf("expected rounded avg 15.1, got %v", *p.Avg)
	}
	if p.Status != muf.StatusFresh {
		t.Fatalf("expected fresh status, got %s", p.Status)
	}
}

func TestSeriesWindowValidation(t *testing.T) {
	app := newTestApp(store.NewSeriesStore(0, 0))

	for _, q := range []string{"window=0", "window=61", "window=-5"} {
		req := httptest.NewRequest(http.MethodGet, "/api/muf/series?"+q, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected status %d, got %d", q, http.StatusBadRequest, resp.StatusCode)
		}
	}
}

func TestSeriesWithPartialPoint(t *testing.T) {
	seriesStore := store.NewSeriesStore(0, 0)
	seriesStore.Append(nil, f(20.0), time.Now().UTC())

	app := newTestApp(seriesStore)

	req := httptest.NewRequest(http.MethodGet, "/api/muf/series?window=60", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var series muf.Series
	if err := json.NewDecoder(resp.Body).Decode(&series); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(series.Timestamps) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(series.Timestamps))
	}
	if series.Roquetes[0] != nil {
		t.Fatal("expected absent roquetes value")
	}
	if *series.Arenosillo[0] != 20.0 {
		t.Fatalf("expected arenosillo 20.0, got %v", *series.Arenosillo[0])
	}
	if series.Avg[0] != nil {
		t.Fatal("avg must be absent with one station value missing")
	}
}

func TestSeriesDefaultWindow(t *testing.T) {
	seriesStore := store.NewSeriesStore(0, 0)
	seriesStore.Append(f(10.0), f(20.0), time.Now().UTC())

	app := newTestApp(seriesStore)

	req := httptest.NewRequest(http.MethodGet, "/api/muf/series", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var series muf.Series
	if err := json.NewDecoder(resp.Body).Decode(&series); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(series.Timestamps) != 1 {
		t.Fatalf("expected 1 entry with the default window, got %d", len(series.Timestamps))
	}
}
