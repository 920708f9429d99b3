package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"property-analytics/config"
	"property-analytics/models"
	"property-analytics/services"
	"property-analytics/utils"
)

// Fetcher supplies the raw dataset for a pipeline run.
type Fetcher interface {
	Fetch() ([]*models.RawListing, error)
}

// Server exposes the enriched dataset to the dashboard UI. It owns the
// snapshot cache: the pipeline re-runs only when the cached snapshot is older
// than the TTL, so every filter change hits an in-memory artifact.
type Server struct {
	cfg      *config.Config
	logger   *utils.Logger
	fetcher  Fetcher
	enricher *services.Enricher
	insights *services.InsightService

	mu        sync.RWMutex
	snapshot  *models.EnrichResult
	fetchedAt time.Time
}

// New creates a Server around the given fetcher and enricher.
func New(cfg *config.Config, logger *utils.Logger, fetcher Fetcher, enricher *services.Enricher) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		fetcher:  fetcher,
		enricher: enricher,
		insights: services.NewInsightService(logger),
	}
}

// Prime installs an already-computed snapshot, so startup runs the pipeline
// exactly once.
func (s *Server) Prime(result *models.EnrichResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = result
	s.fetchedAt = time.Now()
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.logMiddleware)
	r.Use(recoverMiddleware(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/listings", s.handleListings)
		r.Get("/insights", s.handleInsights)
		r.Get("/diagnostics", s.handleDiagnostics)
	})
	return r
}

// ListenAndServe starts the HTTP server on the configured port.
func (s *Server) ListenAndServe() error {
	addr := ":" + s.cfg.HTTPPort
	s.logger.Info("[server] Listening on %s", addr)
	return http.ListenAndServe(addr, s.Router())
}

// ensureFresh returns the current snapshot, re-running the pipeline when the
// cached one is older than the TTL.
func (s *Server) ensureFresh() (*models.EnrichResult, error) {
	ttl := time.Duration(s.cfg.CacheTTLSeconds) * time.Second

	s.mu.RLock()
	snap, age := s.snapshot, time.Since(s.fetchedAt)
	s.mu.RUnlock()
	if snap != nil && age < ttl {
		return snap, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot != nil && time.Since(s.fetchedAt) < ttl {
		return s.snapshot, nil
	}

	s.logger.Info("[server] Snapshot stale (age %v), re-running pipeline", age.Truncate(time.Second))
	raw, err := s.fetcher.Fetch()
	if err != nil {
		// Serve the stale snapshot rather than erroring when a refresh fails.
		if s.snapshot != nil {
			s.logger.Warn("[server] Refresh failed, serving stale snapshot: %v", err)
			return s.snapshot, nil
		}
		return nil, err
	}
	result, err := s.enricher.Enrich(raw)
	if err != nil {
		return nil, err
	}
	s.snapshot = result
	s.fetchedAt = time.Now()
	return result, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ensureFresh()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	spec := specFromQuery(r)
	filtered := services.ApplyFilters(snap.Listings, spec)
	filtered = services.ProjectListings(filtered, spec.Currency, s.cfg.FXRateIDRUSD)

	writeJSON(w, http.StatusOK, map[string]any{
		"total":    len(snap.Listings),
		"matched":  len(filtered),
		"currency": spec.Currency,
		"listings": filtered,
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ensureFresh()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	spec := specFromQuery(r)
	filtered := services.ApplyFilters(snap.Listings, spec)
	filtered = services.ProjectListings(filtered, spec.Currency, s.cfg.FXRateIDRUSD)
	writeJSON(w, http.StatusOK, s.insights.Generate(filtered))
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ensureFresh()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap.Diagnostics)
}

// specFromQuery maps URL query parameters onto a FilterSpec. Absent
// parameters leave the corresponding predicate disabled.
func specFromQuery(r *http.Request) *models.FilterSpec {
	q := r.URL.Query()
	spec := models.DefaultFilterSpec()

	spec.ListingType = q.Get("listing_type")
	spec.PropertyTypes = splitParam(q.Get("property_types"))
	spec.Areas = splitParam(q.Get("areas"))
	spec.Ownership = splitParam(q.Get("ownership"))
	spec.PropertyStatus = splitParam(q.Get("property_status"))
	spec.SellerTypes = splitParam(q.Get("seller_types"))
	spec.BedroomBuckets = splitParam(q.Get("bedrooms"))

	spec.DateFrom = parseTimeParam(q.Get("date_from"))
	spec.DateTo = parseTimeParam(q.Get("date_to"))

	spec.PriceMin = parseFloatParam(q.Get("price_min"))
	spec.PriceMax = parseFloatParam(q.Get("price_max"))
	spec.RentMin = parseFloatParam(q.Get("rent_min"))
	spec.RentMax = parseFloatParam(q.Get("rent_max"))
	spec.BuildingSizeMin = parseFloatParam(q.Get("building_size_min"))
	spec.BuildingSizeMax = parseFloatParam(q.Get("building_size_max"))
	spec.LandSizeMin = parseFloatParam(q.Get("land_size_min"))
	spec.LandSizeMax = parseFloatParam(q.Get("land_size_max"))

	spec.HideOutliers = q.Get("hide_outliers") == "true"
	if v := parseFloatParam(q.Get("assumed_freehold_horizon")); v != nil {
		spec.AssumedFreeholdHorizon = *v
	}
	if c := q.Get("currency"); c != "" {
		spec.Currency = strings.ToUpper(c)
	}
	return spec
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFloatParam(raw string) *float64 {
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseTimeParam(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
