package services

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"property-analytics/models"
)

// FXRateDefault is the fallback IDR-per-USD rate used when no paired USD
// value exists.
const FXRateDefault = 15000.0

// CurrencyIDR and CurrencyUSD are the supported display currencies.
const (
	CurrencyIDR = "IDR"
	CurrencyUSD = "USD"
)

var displayPrinter = message.NewPrinter(language.English)

// ScalarToCurrency projects one IDR-denominated value into the target display
// currency. IDR passes through unchanged; USD prefers the paired USD value
// and falls back to dividing by the FX rate. The input is never mutated.
func ScalarToCurrency(value *float64, currency string, fallback *float64, fxRate float64) *float64 {
	if value == nil {
		if currency == CurrencyUSD {
			return fallback
		}
		return nil
	}
	if currency != CurrencyUSD {
		return models.Float(*value)
	}
	if fallback != nil {
		return models.Float(*fallback)
	}
	return models.Float(*value / fxRate)
}

// SeriesToCurrency projects a whole column. The paired USD column, when it
// has any non-null value, is preferred wholesale; otherwise every IDR value
// is divided by the FX rate. Always returns a new series.
func SeriesToCurrency(values []*float64, currency string, fallbacks []*float64, fxRate float64) []*float64 {
	out := make([]*float64, len(values))
	if currency != CurrencyUSD {
		copy(out, values)
		return out
	}
	if anyNonNil(fallbacks) {
		copy(out, fallbacks)
		return out
	}
	for i, v := range values {
		if v != nil {
			out[i] = models.Float(*v / fxRate)
		}
	}
	return out
}

// ProjectListings expresses every monetary column of the dataset in the
// target display currency. IDR returns the input unchanged; USD returns
// copied rows with the price columns preferring the paired USD value and the
// derived metrics divided by the FX rate. Non-monetary columns (yield, days
// listed, sizes) pass through untouched.
func ProjectListings(listings []*models.Listing, currency string, fxRate float64) []*models.Listing {
	if currency != CurrencyUSD {
		return listings
	}
	if fxRate <= 0 {
		fxRate = FXRateDefault
	}

	out := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		cp := *l

		cp.PriceIDR = ScalarToCurrency(l.PriceIDR, CurrencyUSD, l.PriceUSD, fxRate)

		// The paired USD price only stands in for the sale price on rows that
		// actually have one; rental rows must not inherit a sale value.
		var salePaired *float64
		if l.PriceSaleIDR != nil {
			salePaired = l.PriceUSD
		}
		cp.PriceSaleIDR = ScalarToCurrency(l.PriceSaleIDR, CurrencyUSD, salePaired, fxRate)
		cp.SalePriceIDR = ScalarToCurrency(l.SalePriceIDR, CurrencyUSD, nil, fxRate)

		cp.RentPriceMonthIDR = ScalarToCurrency(l.RentPriceMonthIDR, CurrencyUSD, nil, fxRate)
		cp.RentPriceMonthIDRNorm = ScalarToCurrency(l.RentPriceMonthIDRNorm, CurrencyUSD, nil, fxRate)
		cp.ADRIDR = ScalarToCurrency(l.ADRIDR, CurrencyUSD, nil, fxRate)
		cp.PricePerSQMIDR = ScalarToCurrency(l.PricePerSQMIDR, CurrencyUSD, nil, fxRate)
		cp.PricePerSQMLandIDR = ScalarToCurrency(l.PricePerSQMLandIDR, CurrencyUSD, nil, fxRate)
		cp.PricePerSQMPerYear = ScalarToCurrency(l.PricePerSQMPerYear, CurrencyUSD, nil, fxRate)
		cp.PricePerSQMPerYearFreehold = ScalarToCurrency(l.PricePerSQMPerYearFreehold, CurrencyUSD, nil, fxRate)
		cp.PricePerSQMPerYearFreeholdAssumed = ScalarToCurrency(l.PricePerSQMPerYearFreeholdAssumed, CurrencyUSD, nil, fxRate)
		cp.AnnualRentPerSQM = ScalarToCurrency(l.AnnualRentPerSQM, CurrencyUSD, nil, fxRate)

		out = append(out, &cp)
	}
	return out
}

// FormatMoney renders a nullable amount with thousands separators and a
// currency prefix, for terminal reports and display payloads.
func FormatMoney(value *float64, currency string) string {
	if value == nil {
		return "—"
	}
	prefix := "Rp "
	if currency == CurrencyUSD {
		prefix = "$"
	}
	return displayPrinter.Sprintf("%s%.0f", prefix, *value)
}

func anyNonNil(values []*float64) bool {
	for _, v := range values {
		if v != nil {
			return true
		}
	}
	return false
}
