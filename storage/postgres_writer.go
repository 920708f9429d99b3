package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"property-analytics/models"
)

// PostgresWriter persists the enriched snapshot to PostgreSQL so other tools
// can query the analytical dataset.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

// NewPostgresWriterWithDB wraps an existing connection without pinging or
// migrating. Used in tests.
func NewPostgresWriterWithDB(db *sql.DB) *PostgresWriter {
	return &PostgresWriter{db: db}
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS enriched_listings (
			id                        SERIAL PRIMARY KEY,
			property_id               TEXT        NOT NULL DEFAULT '',
			listing_type              VARCHAR(50) NOT NULL DEFAULT '',
			area                      TEXT        NOT NULL DEFAULT '',
			ownership_type            VARCHAR(50) NOT NULL DEFAULT '',
			property_status           VARCHAR(50) NOT NULL DEFAULT '',
			price_sale_idr            NUMERIC,
			rent_price_month_idr_norm NUMERIC,
			price_per_sqm_idr_calc    NUMERIC,
			price_per_sqm_per_year    NUMERIC,
			yield_pct_proxy           NUMERIC,
			days_listed               NUMERIC,
			is_outlier_any            BOOLEAN     NOT NULL DEFAULT FALSE,
			listing_date_effective    TIMESTAMPTZ,
			inserted_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_enriched_listings_area ON enriched_listings(area);
		CREATE INDEX IF NOT EXISTS idx_enriched_listings_type ON enriched_listings(listing_type);
		CREATE INDEX IF NOT EXISTS idx_enriched_listings_prop ON enriched_listings(property_id);
	`)
	return err
}

// Clear deletes the previous snapshot.
func (pw *PostgresWriter) Clear() error {
	_, err := pw.db.Exec("DELETE FROM enriched_listings")
	if err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	return nil
}

// Write batch-inserts the full enriched snapshot, clearing the old one first.
func (pw *PostgresWriter) Write(listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	if err := pw.Clear(); err != nil {
		return err
	}

	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := pw.insertBatch(listings[i:end]); err != nil {
			return err
		}
	}
	return nil
}

const insertColumns = 14

func (pw *PostgresWriter) insertBatch(batch []*models.Listing) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*insertColumns)

	for idx, l := range batch {
		base := idx * insertColumns
		placeholders := make([]string, insertColumns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			l.PropertyID, l.ListingType, l.Area, l.OwnershipType, l.PropertyStatus,
			nullableFloat(l.PriceSaleIDR), nullableFloat(l.RentPriceMonthIDRNorm),
			nullableFloat(l.PricePerSQMIDR), nullableFloat(l.PricePerSQMPerYear),
			nullableFloat(l.YieldPctProxy), nullableFloat(l.DaysListed),
			l.IsOutlierAny, nullableTime(l.ListingDateEffective), time.Now().UTC())
	}

	query := fmt.Sprintf(`
		INSERT INTO enriched_listings (
			property_id, listing_type, area, ownership_type, property_status,
			price_sale_idr, rent_price_month_idr_norm, price_per_sqm_idr_calc,
			price_per_sqm_per_year, yield_pct_proxy, days_listed,
			is_outlier_any, listing_date_effective, inserted_at
		)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves the stored snapshot (the analytical columns only).
func (pw *PostgresWriter) FetchAll() ([]*models.Listing, error) {
	rows, err := pw.db.Query(`
		SELECT property_id, listing_type, area, ownership_type, property_status,
		       price_sale_idr, rent_price_month_idr_norm, price_per_sqm_idr_calc,
		       price_per_sqm_per_year, yield_pct_proxy, days_listed,
		       is_outlier_any, listing_date_effective
		FROM enriched_listings
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		var (
			priceSale, rentNorm, ppsm, ppsy, yield, days sql.NullFloat64
			effective                                    sql.NullTime
		)
		if err := rows.Scan(
			&l.PropertyID, &l.ListingType, &l.Area, &l.OwnershipType, &l.PropertyStatus,
			&priceSale, &rentNorm, &ppsm, &ppsy, &yield, &days,
			&l.IsOutlierAny, &effective,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		l.PriceSaleIDR = fromNullFloat(priceSale)
		l.RentPriceMonthIDRNorm = fromNullFloat(rentNorm)
		l.PricePerSQMIDR = fromNullFloat(ppsm)
		l.PricePerSQMPerYear = fromNullFloat(ppsy)
		l.YieldPctProxy = fromNullFloat(yield)
		l.DaysListed = fromNullFloat(days)
		if effective.Valid {
			t := effective.Time
			l.ListingDateEffective = &t
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
