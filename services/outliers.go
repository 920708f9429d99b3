package services

import (
	"math"
	"sort"

	"property-analytics/models"
	"property-analytics/utils"
)

const (
	outlierLowerQuantile = 0.01
	outlierUpperQuantile = 0.99
)

// monitoredField binds one derived column to its value accessor and flag
// setter so the flagger can sweep the configured columns uniformly.
type monitoredField struct {
	name string
	get  func(*models.Listing) *float64
	set  func(*models.Listing, bool)
}

var monitoredFields = []monitoredField{
	{
		name: "price_sale_idr",
		get:  func(l *models.Listing) *float64 { return l.PriceSaleIDR },
		set:  func(l *models.Listing, v bool) { l.IsOutlierPriceSale = v },
	},
	{
		name: "rent_price_month_idr_norm",
		get:  func(l *models.Listing) *float64 { return l.RentPriceMonthIDRNorm },
		set:  func(l *models.Listing, v bool) { l.IsOutlierRentNorm = v },
	},
	{
		name: "price_per_sqm_idr_calc",
		get:  func(l *models.Listing) *float64 { return l.PricePerSQMIDR },
		set:  func(l *models.Listing, v bool) { l.IsOutlierPricePerSQM = v },
	},
	{
		name: "price_per_sqm_per_year",
		get:  func(l *models.Listing) *float64 { return l.PricePerSQMPerYear },
		set:  func(l *models.Listing, v bool) { l.IsOutlierPPSY = v },
	},
	{
		name: "annual_rent_per_sqm",
		get:  func(l *models.Listing) *float64 { return l.AnnualRentPerSQM },
		set:  func(l *models.Listing, v bool) { l.IsOutlierAnnualRentPerSQM = v },
	},
	{
		name: "yield_pct_proxy",
		get:  func(l *models.Listing) *float64 { return l.YieldPctProxy },
		set:  func(l *models.Listing, v bool) { l.IsOutlierYield = v },
	},
}

// OutlierFlagger annotates rows whose monitored values fall strictly outside
// the P1–P99 band of the full snapshot.
type OutlierFlagger struct {
	logger *utils.Logger
}

// NewOutlierFlagger creates an OutlierFlagger with the given logger.
func NewOutlierFlagger(logger *utils.Logger) *OutlierFlagger {
	return &OutlierFlagger{logger: logger}
}

// Flag recomputes every per-field flag and the aggregate flag in place, and
// returns the thresholds for diagnostics. Thresholds are always computed over
// the whole dataset, never a filtered subset, so flags stay stable across
// interactive filter changes. A field with no non-null values flags nothing.
func (f *OutlierFlagger) Flag(listings []*models.Listing) map[string]models.OutlierThreshold {
	thresholds := make(map[string]models.OutlierThreshold, len(monitoredFields))

	for _, field := range monitoredFields {
		values := make([]float64, 0, len(listings))
		for _, l := range listings {
			if v := field.get(l); v != nil {
				values = append(values, *v)
			}
		}
		if len(values) == 0 {
			for _, l := range listings {
				field.set(l, false)
			}
			continue
		}

		sort.Float64s(values)
		lower := quantile(values, outlierLowerQuantile)
		upper := quantile(values, outlierUpperQuantile)
		thresholds[field.name] = models.OutlierThreshold{Lower: lower, Upper: upper}

		flagged := 0
		for _, l := range listings {
			v := field.get(l)
			out := v != nil && (*v < lower || *v > upper)
			field.set(l, out)
			if out {
				flagged++
			}
		}
		if flagged > 0 {
			f.logger.Debug("[outliers] %s: %d rows outside [%.2f, %.2f]", field.name, flagged, lower, upper)
		}
	}

	for _, l := range listings {
		l.IsOutlierAny = l.IsOutlierPriceSale || l.IsOutlierRentNorm || l.IsOutlierPricePerSQM ||
			l.IsOutlierPPSY || l.IsOutlierAnnualRentPerSQM || l.IsOutlierYield
	}

	return thresholds
}

// quantile computes the q-th quantile of sorted values using linear
// interpolation between order statistics.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
