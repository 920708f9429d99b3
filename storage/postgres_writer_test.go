package storage

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"property-analytics/models"
)

func TestPostgresWriterWriteClearsThenInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM enriched_listings").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO enriched_listings").
		WillReturnResult(sqlmock.NewResult(0, 2))

	pw := NewPostgresWriterWithDB(db)
	listings := []*models.Listing{
		{
			PropertyID:   "p1",
			ListingType:  "for sale",
			Area:         "Canggu",
			PriceSaleIDR: models.Float(500000000),
		},
		{
			PropertyID:            "p2",
			ListingType:           "for rent",
			RentPriceMonthIDRNorm: models.Float(15000000),
			IsOutlierAny:          true,
		},
	}

	require.NoError(t, pw.Write(listings))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriterWriteEmptySnapshotIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pw := NewPostgresWriterWithDB(db)
	require.NoError(t, pw.Write(nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriterWriteBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM enriched_listings").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// 120 rows at batch size 50 → 3 INSERTs
	for i := 0; i < 3; i++ {
		mock.ExpectExec("INSERT INTO enriched_listings").
			WillReturnResult(sqlmock.NewResult(0, 50))
	}

	listings := make([]*models.Listing, 120)
	for i := range listings {
		listings[i] = &models.Listing{PropertyID: "p"}
	}

	pw := NewPostgresWriterWithDB(db)
	require.NoError(t, pw.Write(listings))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriterFetchAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	effective := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"property_id", "listing_type", "area", "ownership_type", "property_status",
		"price_sale_idr", "rent_price_month_idr_norm", "price_per_sqm_idr_calc",
		"price_per_sqm_per_year", "yield_pct_proxy", "days_listed",
		"is_outlier_any", "listing_date_effective",
	}).
		AddRow("p1", "for sale", "Canggu", "Leasehold", "", 500000000.0, nil, 5000000.0, 200000.0, nil, 14.0, false, effective).
		AddRow("p2", "for rent", "Ubud", "", "", nil, 15000000.0, nil, nil, nil, nil, true, nil)

	mock.ExpectQuery("SELECT (.+) FROM enriched_listings").WillReturnRows(rows)

	pw := NewPostgresWriterWithDB(db)
	got, err := pw.FetchAll()
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "p1", got[0].PropertyID)
	require.Equal(t, 500000000.0, *got[0].PriceSaleIDR)
	require.Nil(t, got[0].RentPriceMonthIDRNorm)
	require.Equal(t, effective, *got[0].ListingDateEffective)

	require.Equal(t, "p2", got[1].PropertyID)
	require.Nil(t, got[1].PriceSaleIDR)
	require.Equal(t, 15000000.0, *got[1].RentPriceMonthIDRNorm)
	require.True(t, got[1].IsOutlierAny)
	require.Nil(t, got[1].ListingDateEffective)
}
