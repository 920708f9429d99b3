package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"property-analytics/models"
)

// CSVWriter exports the enriched snapshot to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{
		"property_id", "listing_type", "area", "ownership_type", "property_status",
		"price_sale_idr", "rent_price_month_idr_norm", "adr_idr", "lease_years_remaining",
		"price_per_sqm_idr_calc", "price_per_sqm_land_idr_calc", "price_per_sqm_per_year",
		"price_per_sqm_per_year_freehold", "annual_rent_per_sqm", "yield_pct_proxy",
		"days_listed", "listing_date_effective", "is_outlier_any",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends the enriched rows to the CSV file.
func (c *CSVWriter) Write(listings []*models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		row := []string{
			l.PropertyID,
			l.ListingType,
			l.Area,
			l.OwnershipType,
			l.PropertyStatus,
			formatFloat(l.PriceSaleIDR),
			formatFloat(l.RentPriceMonthIDRNorm),
			formatFloat(l.ADRIDR),
			formatFloat(l.LeaseYearsRemaining),
			formatFloat(l.PricePerSQMIDR),
			formatFloat(l.PricePerSQMLandIDR),
			formatFloat(l.PricePerSQMPerYear),
			formatFloat(l.PricePerSQMPerYearFreehold),
			formatFloat(l.AnnualRentPerSQM),
			formatFloat(l.YieldPctProxy),
			formatFloat(l.DaysListed),
			formatTime(l.ListingDateEffective),
			strconv.FormatBool(l.IsOutlierAny),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
