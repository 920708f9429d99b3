package services

import (
	"strings"
	"time"

	"property-analytics/models"
)

// bedroomBuckets maps the named dashboard buckets to inclusive ranges; a nil
// high bound is open-ended.
var bedroomBuckets = map[string]struct {
	low  float64
	high *float64
}{
	"1":   {low: 1, high: models.Float(1)},
	"2":   {low: 2, high: models.Float(2)},
	"3-4": {low: 3, high: models.Float(4)},
	"5+":  {low: 5, high: nil},
}

// ApplyFilters evaluates the filter spec against the enriched dataset and
// returns a new filtered view. The input is never mutated: every row in the
// result is a copy. A nil spec passes everything through.
func ApplyFilters(listings []*models.Listing, spec *models.FilterSpec) []*models.Listing {
	out := make([]*models.Listing, 0, len(listings))
	if spec == nil {
		spec = &models.FilterSpec{}
	}

	// Ownership filtering applies only to sale rows when the dataset carries
	// listing types at all; rental ownership metadata is unreliable.
	listingTypePresent := anyListingType(listings)

	for _, l := range listings {
		if !matchesFilters(l, spec, listingTypePresent) {
			continue
		}
		cp := *l
		if spec.AssumedFreeholdHorizon > 0 {
			cp.PricePerSQMPerYearFreeholdAssumed = divide(cp.PricePerSQMIDR, models.Float(spec.AssumedFreeholdHorizon))
		}
		out = append(out, &cp)
	}
	return out
}

func matchesFilters(l *models.Listing, spec *models.FilterSpec, listingTypePresent bool) bool {
	if !matchesDateRange(l, spec.DateFrom, spec.DateTo) {
		return false
	}

	if spec.ListingType != "" && !strings.EqualFold(l.ListingType, spec.ListingType) {
		return false
	}
	if !inSelection(l.PropertyType, spec.PropertyTypes) {
		return false
	}
	if !inSelection(l.Area, spec.Areas) {
		return false
	}
	if !matchesOwnership(l, spec.Ownership, listingTypePresent) {
		return false
	}
	if !inSelection(l.PropertyStatus, spec.PropertyStatus) {
		return false
	}
	if !inSelection(l.SellerType, spec.SellerTypes) {
		return false
	}
	if !matchesBedroomBuckets(l.Bedrooms, spec.BedroomBuckets) {
		return false
	}

	if !inRange(salePriceWithFallback(l), spec.PriceMin, spec.PriceMax) {
		return false
	}
	if !inRange(l.RentPriceMonthIDRNorm, spec.RentMin, spec.RentMax) {
		return false
	}
	if !inRange(l.BuildingSizeSQM, spec.BuildingSizeMin, spec.BuildingSizeMax) {
		return false
	}
	if !inRange(l.LandSizeSQM, spec.LandSizeMin, spec.LandSizeMax) {
		return false
	}

	if spec.HideOutliers && l.IsOutlierAny {
		return false
	}
	return true
}

// matchesDateRange anchors on the effective listing date; rows without a
// resolvable date are excluded only when a bound is set.
func matchesDateRange(l *models.Listing, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	anchor := l.ListingDateEffective
	if anchor == nil {
		anchor = l.ListingDate
	}
	if anchor == nil {
		anchor = l.ScrapedAt
	}
	if anchor == nil {
		return false
	}
	if from != nil && anchor.Before(*from) {
		return false
	}
	if to != nil && anchor.After(*to) {
		return false
	}
	return true
}

// matchesOwnership keeps every rental row regardless of its ownership value;
// only "for sale" rows must match the selection. When the dataset has no
// listing types at all, ownership filtering applies unconditionally.
func matchesOwnership(l *models.Listing, selection []string, listingTypePresent bool) bool {
	if len(selection) == 0 {
		return true
	}
	if listingTypePresent && !strings.EqualFold(l.ListingType, "for sale") {
		return true
	}
	return contains(selection, l.OwnershipType)
}

// matchesBedroomBuckets unions the selected named buckets; unknown bucket
// names are ignored.
func matchesBedroomBuckets(bedrooms *float64, selection []string) bool {
	if len(selection) == 0 {
		return true
	}
	any := false
	for _, name := range selection {
		b, ok := bedroomBuckets[name]
		if !ok {
			continue
		}
		any = true
		if bedrooms == nil {
			continue
		}
		if *bedrooms >= b.low && (b.high == nil || *bedrooms <= *b.high) {
			return true
		}
	}
	// A selection made only of unknown bucket names filters nothing.
	return !any
}

// salePriceWithFallback is the price-range basis: the derived sale price when
// populated, else the raw price.
func salePriceWithFallback(l *models.Listing) *float64 {
	if l.PriceSaleIDR != nil {
		return l.PriceSaleIDR
	}
	return l.PriceIDR
}

// inRange checks an inclusive range with optional bounds; a nil value fails
// only when a bound is set.
func inRange(v, min, max *float64) bool {
	if min == nil && max == nil {
		return true
	}
	if v == nil {
		return false
	}
	if min != nil && *v < *min {
		return false
	}
	if max != nil && *v > *max {
		return false
	}
	return true
}

// inSelection treats an empty selection as match-all.
func inSelection(value string, selection []string) bool {
	if len(selection) == 0 {
		return true
	}
	return contains(selection, value)
}

func contains(selection []string, value string) bool {
	for _, s := range selection {
		if s == value {
			return true
		}
	}
	return false
}

func anyListingType(listings []*models.Listing) bool {
	for _, l := range listings {
		if l.ListingType != "" {
			return true
		}
	}
	return false
}
