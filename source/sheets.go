package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"property-analytics/config"
	"property-analytics/models"
	"property-analytics/utils"
)

// SheetClient fetches the published-spreadsheet CSV exports that back the
// dashboard and maps them into raw listing rows.
type SheetClient struct {
	cfg    *config.Config
	logger *utils.Logger
	pool   *utils.WorkerPool
	retry  *utils.RetryConfig
	client *http.Client

	mu       sync.Mutex
	listings []*models.RawListing
}

// New creates a ready-to-use SheetClient.
func New(cfg *config.Config, logger *utils.Logger) *SheetClient {
	return &SheetClient{
		cfg:    cfg,
		logger: logger,
		pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch loads every configured sheet tab (or the local data file override)
// and returns the concatenated raw dataset. An empty spreadsheet yields an
// empty slice, not an error; a structurally broken CSV fails the fetch.
func (s *SheetClient) Fetch() ([]*models.RawListing, error) {
	if s.cfg.DataFile != "" {
		s.logger.Info("[source] Loading local data file %s", s.cfg.DataFile)
		return s.fetchFile(s.cfg.DataFile)
	}

	urls := s.cfg.SheetURLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("source: no sheet URLs configured (set SPREADSHEET_ID or SHEET_CSV_URLS)")
	}

	s.mu.Lock()
	s.listings = s.listings[:0]
	s.mu.Unlock()

	var firstErr error
	var errMu sync.Mutex
	visited := utils.NewStringSet()

	for _, link := range urls {
		if !visited.Add(link) {
			s.logger.Debug("[source] Duplicate sheet URL skipped: %s", link)
			continue
		}
		link := link
		tab := tabLabel(link)
		s.pool.Submit(func() {
			err := s.retry.Do("fetch "+tab, func() error {
				return s.fetchTab(link, tab)
			})
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		})
	}
	s.pool.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("[source] Fetched %d raw rows from %d sheet tab(s)", len(s.listings), len(urls))
	return s.listings, nil
}

// tabLabel names a tab after its sheet gid when the URL carries one, so
// diagnostics identify the worksheet instead of a positional index. URLs
// without a gid are used verbatim.
func tabLabel(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if gid := u.Query().Get("gid"); gid != "" {
			return "gid-" + gid
		}
	}
	return rawURL
}

func (s *SheetClient) fetchTab(link, tab string) error {
	resp, err := s.client.Get(link)
	if err != nil {
		return fmt.Errorf("source: get %s: %w", tab, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("source: get %s: unexpected status %d", tab, resp.StatusCode)
	}

	rows, err := parseCSV(resp.Body, tab)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listings = append(s.listings, rows...)
	s.mu.Unlock()
	return nil
}

func (s *SheetClient) fetchFile(path string) ([]*models.RawListing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	defer f.Close()
	return parseCSV(f, path)
}

// parseCSV reads one tabular CSV document. The header row is required; rows
// are mapped to raw listings by column name, with unknown columns ignored and
// absent columns left empty. Anything that cannot be read as rows at all is a
// structural failure.
func parseCSV(r io.Reader, sourceName string) ([]*models.RawListing, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return []*models.RawListing{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("source: %s: read header: %w", sourceName, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	var listings []*models.RawListing
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("source: %s: read row: %w", sourceName, err)
		}

		cell := func(column string) string {
			i, ok := index[column]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}

		listings = append(listings, &models.RawListing{
			PropertyID:        cell("property_id"),
			ListingType:       cell("listing_type"),
			PropertyType:      cell("property_type"),
			Area:              cell("area"),
			OwnershipType:     cell("ownership_type"),
			PropertyStatus:    cell("property_status"),
			SellerType:        cell("seller_type"),
			SourceCategory:    cell("source_category"),
			ListingAgencyType: cell("listing_agency_type"),
			Company:           cell("company"),
			AgentName:         cell("agent_name"),
			Description:       cell("description"),
			PriceIDR:          cell("price_idr"),
			PriceUSD:          cell("price_usd"),
			SalePriceIDR:      cell("sale_price_idr"),
			RentPriceMonthIDR: cell("rent_price_month_idr"),
			RentPeriod:        cell("rent_period"),
			Bedrooms:          cell("bedrooms"),
			Bathrooms:         cell("bathrooms"),
			LandSizeSQM:       cell("land_size_sqm"),
			BuildingSizeSQM:   cell("building_size_sqm"),
			LeaseDuration:     cell("lease_duration"),
			LeaseExpiryYear:   cell("lease_expiry_year"),
			ListingDate:       cell("listing_date"),
			ScrapedAt:         cell("scraped_at"),
			DataSource:        sourceName,
		})
	}

	return listings, nil
}
