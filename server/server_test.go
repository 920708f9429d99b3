package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"property-analytics/config"
	"property-analytics/models"
	"property-analytics/services"
	"property-analytics/utils"
)

type stubFetcher struct {
	rows  []*models.RawListing
	err   error
	calls int
}

func (f *stubFetcher) Fetch() ([]*models.RawListing, error) {
	f.calls++
	return f.rows, f.err
}

func newTestServer(fetcher Fetcher) *Server {
	cfg := &config.Config{CacheTTLSeconds: 600, HTTPPort: "0", FXRateIDRUSD: 15000}
	logger := utils.NewNopLogger()
	clock := services.FixedClock{T: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)}
	return New(cfg, logger, fetcher, services.NewEnricher(logger, clock))
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&stubFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestListingsServedFromPrimedSnapshot(t *testing.T) {
	fetcher := &stubFetcher{}
	srv := newTestServer(fetcher)

	logger := utils.NewNopLogger()
	enricher := services.NewEnricher(logger, services.FixedClock{T: time.Now()})
	result, err := enricher.Enrich([]*models.RawListing{
		{PropertyID: "p1", ListingType: "for sale", Area: "Canggu", PriceIDR: "500000000"},
		{PropertyID: "p2", ListingType: "for rent", Area: "Ubud", PriceIDR: "15000000", RentPeriod: "monthly"},
	})
	require.NoError(t, err)
	srv.Prime(result)

	req := httptest.NewRequest(http.MethodGet, "/api/listings?listing_type=for+sale", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, fetcher.calls, "primed snapshot should not trigger a fetch")

	var payload struct {
		Total    int               `json:"total"`
		Matched  int               `json:"matched"`
		Listings []*models.Listing `json:"listings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, 2, payload.Total)
	require.Equal(t, 1, payload.Matched)
	require.Equal(t, "p1", payload.Listings[0].PropertyID)
}

func TestListingsCurrencyProjection(t *testing.T) {
	srv := newTestServer(&stubFetcher{})

	logger := utils.NewNopLogger()
	enricher := services.NewEnricher(logger, services.FixedClock{T: time.Now()})
	result, err := enricher.Enrich([]*models.RawListing{
		{PropertyID: "fx", ListingType: "for sale", PriceIDR: "1500000000"},
		{PropertyID: "paired", ListingType: "for sale", PriceIDR: "450000000", PriceUSD: "30500"},
	})
	require.NoError(t, err)
	srv.Prime(result)

	fetch := func(query string) []*models.Listing {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/listings"+query, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var payload struct {
			Currency string            `json:"currency"`
			Listings []*models.Listing `json:"listings"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		require.Len(t, payload.Listings, 2)
		return payload.Listings
	}

	usd := fetch("?currency=usd")
	require.Equal(t, 100000.0, *usd[0].PriceSaleIDR) // 1.5e9 / 15000
	require.Equal(t, 30500.0, *usd[1].PriceSaleIDR)  // paired price_usd wins

	idr := fetch("?currency=IDR")
	require.Equal(t, 1500000000.0, *idr[0].PriceSaleIDR)

	// the cached snapshot itself stays IDR-denominated
	require.Equal(t, 1500000000.0, *result.Listings[0].PriceSaleIDR)
}

func TestInsightsCurrencyProjection(t *testing.T) {
	srv := newTestServer(&stubFetcher{})

	logger := utils.NewNopLogger()
	enricher := services.NewEnricher(logger, services.FixedClock{T: time.Now()})
	result, err := enricher.Enrich([]*models.RawListing{
		{PropertyID: "p1", ListingType: "for rent", PriceIDR: "15000000", RentPeriod: "monthly"},
	})
	require.NoError(t, err)
	srv.Prime(result)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/insights?currency=USD", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.MarketReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, 1000.0, *report.MedianRentMonth) // 15M / 15000
}

func TestListingsTriggersPipelineWhenUnprimed(t *testing.T) {
	fetcher := &stubFetcher{rows: []*models.RawListing{
		{PropertyID: "p1", ListingType: "for sale", PriceIDR: "500000000"},
	}}
	srv := newTestServer(fetcher)

	req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, fetcher.calls)

	// Second request hits the cached snapshot.
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/listings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, fetcher.calls)
}

func TestListingsUnavailableWhenFetchFailsCold(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("sheet down")}
	srv := newTestServer(fetcher)

	req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStaleSnapshotServedWhenRefreshFails(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("sheet down")}
	srv := newTestServer(fetcher)
	srv.cfg.CacheTTLSeconds = 0 // every request is a refresh

	logger := utils.NewNopLogger()
	enricher := services.NewEnricher(logger, services.FixedClock{T: time.Now()})
	result, err := enricher.Enrich([]*models.RawListing{{PropertyID: "p1"}})
	require.NoError(t, err)
	srv.Prime(result)

	req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.GreaterOrEqual(t, fetcher.calls, 1)
}

func TestDiagnosticsEndpoint(t *testing.T) {
	srv := newTestServer(&stubFetcher{})

	logger := utils.NewNopLogger()
	enricher := services.NewEnricher(logger, services.FixedClock{T: time.Now()})
	result, err := enricher.Enrich([]*models.RawListing{
		{PropertyID: "p1", PriceIDR: "N/A", ScrapedAt: "garbage"},
	})
	require.NoError(t, err)
	srv.Prime(result)

	req := httptest.NewRequest(http.MethodGet, "/api/diagnostics", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var diag models.Diagnostics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diag))
	require.Equal(t, 1, diag.Rows)
	require.Equal(t, 1, diag.SentinelReplacements["price_idr"])
	require.Equal(t, 1, diag.ScrapedAtParseFailures["unparsed_format"])
}

func TestSpecFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/listings?listing_type=for+sale&areas=Canggu,Ubud&bedrooms=3-4,5%2B"+
			"&price_min=100000000&price_max=900000000&hide_outliers=true"+
			"&date_from=2024-01-01&assumed_freehold_horizon=25&currency=usd", nil)

	spec := specFromQuery(req)

	require.Equal(t, "for sale", spec.ListingType)
	require.Equal(t, []string{"Canggu", "Ubud"}, spec.Areas)
	require.Equal(t, []string{"3-4", "5+"}, spec.BedroomBuckets)
	require.Equal(t, 100000000.0, *spec.PriceMin)
	require.Equal(t, 900000000.0, *spec.PriceMax)
	require.True(t, spec.HideOutliers)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *spec.DateFrom)
	require.Equal(t, 25.0, spec.AssumedFreeholdHorizon)
	require.Equal(t, "USD", spec.Currency)
}

func TestSpecFromQueryDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)

	spec := specFromQuery(req)

	require.Empty(t, spec.ListingType)
	require.Nil(t, spec.Areas)
	require.Nil(t, spec.PriceMin)
	require.False(t, spec.HideOutliers)
	require.Equal(t, "IDR", spec.Currency)
	require.Equal(t, 30.0, spec.AssumedFreeholdHorizon)
}
