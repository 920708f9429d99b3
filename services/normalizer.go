package services

import (
	"strings"

	"property-analytics/models"
	"property-analytics/utils"
)

// sentinelTokens are the string values scraped sources use to mean "missing".
// The last entry is the mojibake form of the em-dash seen in mis-encoded
// exports.
var sentinelTokens = map[string]struct{}{
	"":       {},
	"None":   {},
	"none":   {},
	"N/A":    {},
	"n/a":    {},
	"NA":     {},
	"na":     {},
	"null":   {},
	"Null":   {},
	"-":      {},
	"—":      {},
	"â€”":    {},
}

// IsSentinel reports whether the cell, after trimming, is a recognized
// missing-value token.
func IsSentinel(cell string) bool {
	_, ok := sentinelTokens[strings.TrimSpace(cell)]
	return ok
}

// Normalizer replaces sentinel tokens with empty cells across all string
// columns of the raw dataset.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize returns a new dataset with every sentinel cell blanked, plus a
// per-column count of replaced cells. The input rows are never mutated, and
// running the result through Normalize again changes nothing.
func (n *Normalizer) Normalize(raw []*models.RawListing) ([]*models.RawListing, map[string]int) {
	replaced := make(map[string]int)
	out := make([]*models.RawListing, 0, len(raw))

	for _, r := range raw {
		cp := *r
		for _, col := range rawColumns(&cp) {
			if *col.cell != "" && IsSentinel(*col.cell) {
				*col.cell = ""
				replaced[col.name]++
			}
		}
		out = append(out, &cp)
	}

	if len(replaced) > 0 {
		n.logger.Debug("[normalizer] Replaced sentinel tokens in %d columns", len(replaced))
	}
	return out, replaced
}

type rawColumn struct {
	name string
	cell *string
}

// rawColumns enumerates every string column of a raw row under its source
// column name, so replacement counts line up with the sheet headers.
func rawColumns(r *models.RawListing) []rawColumn {
	return []rawColumn{
		{"property_id", &r.PropertyID},
		{"listing_type", &r.ListingType},
		{"property_type", &r.PropertyType},
		{"area", &r.Area},
		{"ownership_type", &r.OwnershipType},
		{"property_status", &r.PropertyStatus},
		{"seller_type", &r.SellerType},
		{"source_category", &r.SourceCategory},
		{"listing_agency_type", &r.ListingAgencyType},
		{"company", &r.Company},
		{"agent_name", &r.AgentName},
		{"description", &r.Description},
		{"price_idr", &r.PriceIDR},
		{"price_usd", &r.PriceUSD},
		{"sale_price_idr", &r.SalePriceIDR},
		{"rent_price_month_idr", &r.RentPriceMonthIDR},
		{"rent_period", &r.RentPeriod},
		{"bedrooms", &r.Bedrooms},
		{"bathrooms", &r.Bathrooms},
		{"land_size_sqm", &r.LandSizeSQM},
		{"building_size_sqm", &r.BuildingSizeSQM},
		{"lease_duration", &r.LeaseDuration},
		{"lease_expiry_year", &r.LeaseExpiryYear},
		{"listing_date", &r.ListingDate},
		{"scraped_at", &r.ScrapedAt},
	}
}
