package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"property-analytics/models"
)

func TestScalarToCurrencyIDRPassesThrough(t *testing.T) {
	v := models.Float(500000000)

	got := ScalarToCurrency(v, CurrencyIDR, models.Float(999), FXRateDefault)
	require.Equal(t, 500000000.0, *got)
	require.NotSame(t, v, got)

	require.Nil(t, ScalarToCurrency(nil, CurrencyIDR, models.Float(999), FXRateDefault))
}

func TestScalarToCurrencyUSDPrefersPairedValue(t *testing.T) {
	got := ScalarToCurrency(models.Float(450000000), CurrencyUSD, models.Float(33000), FXRateDefault)
	require.Equal(t, 33000.0, *got)
}

func TestScalarToCurrencyUSDFallsBackToFXRate(t *testing.T) {
	got := ScalarToCurrency(models.Float(450000000), CurrencyUSD, nil, FXRateDefault)
	require.Equal(t, 30000.0, *got)
}

func TestScalarToCurrencyUSDNilValueUsesPaired(t *testing.T) {
	got := ScalarToCurrency(nil, CurrencyUSD, models.Float(33000), FXRateDefault)
	require.Equal(t, 33000.0, *got)

	require.Nil(t, ScalarToCurrency(nil, CurrencyUSD, nil, FXRateDefault))
}

func TestSeriesToCurrencyIDRCopies(t *testing.T) {
	values := []*float64{models.Float(1), nil, models.Float(3)}

	out := SeriesToCurrency(values, CurrencyIDR, nil, FXRateDefault)
	require.Equal(t, values, out)

	out[0] = models.Float(99)
	require.Equal(t, 1.0, *values[0])
}

func TestSeriesToCurrencyUSDWholesaleFallback(t *testing.T) {
	values := []*float64{models.Float(450000000), models.Float(600000000)}
	fallbacks := []*float64{models.Float(33000), nil}

	// Any non-null paired value means the whole paired column wins.
	out := SeriesToCurrency(values, CurrencyUSD, fallbacks, FXRateDefault)
	require.Equal(t, 33000.0, *out[0])
	require.Nil(t, out[1])
}

func TestSeriesToCurrencyUSDDividesWhenNoPairedData(t *testing.T) {
	values := []*float64{models.Float(450000000), nil}
	fallbacks := []*float64{nil, nil}

	out := SeriesToCurrency(values, CurrencyUSD, fallbacks, FXRateDefault)
	require.Equal(t, 30000.0, *out[0])
	require.Nil(t, out[1])
}

func TestProjectListingsIDRReturnsInputUnchanged(t *testing.T) {
	listings := []*models.Listing{{PropertyID: "p1", PriceSaleIDR: models.Float(500000000)}}

	out := ProjectListings(listings, CurrencyIDR, FXRateDefault)

	require.Same(t, listings[0], out[0])
	require.Equal(t, 500000000.0, *out[0].PriceSaleIDR)
}

func TestProjectListingsUSDDividesDerivedMetrics(t *testing.T) {
	l := &models.Listing{
		PropertyID:            "p1",
		PriceSaleIDR:          models.Float(1500000000),
		RentPriceMonthIDRNorm: models.Float(15000000),
		ADRIDR:                models.Float(500000),
		PricePerSQMIDR:        models.Float(7500000),
		YieldPctProxy:         models.Float(8),
		DaysListed:            models.Float(14),
	}

	out := ProjectListings([]*models.Listing{l}, CurrencyUSD, 15000)

	require.Len(t, out, 1)
	require.Equal(t, 100000.0, *out[0].PriceSaleIDR)
	require.Equal(t, 1000.0, *out[0].RentPriceMonthIDRNorm)
	require.InDelta(t, 33.33, *out[0].ADRIDR, 0.01)
	require.Equal(t, 500.0, *out[0].PricePerSQMIDR)
	// ratios and day counts are currency-independent
	require.Equal(t, 8.0, *out[0].YieldPctProxy)
	require.Equal(t, 14.0, *out[0].DaysListed)

	// input rows stay IDR-denominated
	require.Equal(t, 1500000000.0, *l.PriceSaleIDR)
	require.Equal(t, 15000000.0, *l.RentPriceMonthIDRNorm)
}

func TestProjectListingsUSDPrefersPairedPrice(t *testing.T) {
	sale := &models.Listing{
		PriceIDR:     models.Float(450000000),
		PriceUSD:     models.Float(30500),
		PriceSaleIDR: models.Float(450000000),
	}
	rental := &models.Listing{
		PriceIDR: models.Float(15000000),
		PriceUSD: models.Float(1000),
	}

	out := ProjectListings([]*models.Listing{sale, rental}, CurrencyUSD, 15000)

	require.Equal(t, 30500.0, *out[0].PriceSaleIDR)
	require.Equal(t, 30500.0, *out[0].PriceIDR)
	// a rental row never inherits a sale price from the paired USD column
	require.Nil(t, out[1].PriceSaleIDR)
	require.Equal(t, 1000.0, *out[1].PriceIDR)
}

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "Rp 1,250,000", FormatMoney(models.Float(1250000), CurrencyIDR))
	require.Equal(t, "$33,000", FormatMoney(models.Float(33000), CurrencyUSD))
	require.Equal(t, "—", FormatMoney(nil, CurrencyIDR))
}
