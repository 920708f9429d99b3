package models

import "time"

// RawListing is one spreadsheet row exactly as fetched: every known source
// column is present as a string cell, with "" standing in for a cell that is
// missing or was blanked by sentinel normalization. Columns absent from the
// source simply arrive empty on every row.
type RawListing struct {
	PropertyID        string
	ListingType       string
	PropertyType      string
	Area              string
	OwnershipType     string
	PropertyStatus    string
	SellerType        string
	SourceCategory    string
	ListingAgencyType string
	Company           string
	AgentName         string
	Description       string

	PriceIDR          string
	PriceUSD          string
	SalePriceIDR      string
	RentPriceMonthIDR string
	RentPeriod        string
	Bedrooms          string
	Bathrooms         string
	LandSizeSQM       string
	BuildingSizeSQM   string
	LeaseDuration     string
	LeaseExpiryYear   string

	ListingDate string
	ScrapedAt   string

	// DataSource is the sheet tab the row came from.
	DataSource string
}

// Listing is a coerced and enriched row. Pointer fields are nullable: nil
// means the value could not be established, never a zero stand-in.
type Listing struct {
	PropertyID     string `json:"property_id"`
	ListingType    string `json:"listing_type,omitempty"`
	PropertyType   string `json:"property_type,omitempty"`
	Area           string `json:"area,omitempty"`
	OwnershipType  string `json:"ownership_type,omitempty"`
	PropertyStatus string `json:"property_status,omitempty"`
	SellerType     string `json:"seller_type,omitempty"`
	Company        string `json:"company,omitempty"`
	AgentName      string `json:"agent_name,omitempty"`
	Description    string `json:"description,omitempty"`
	RentPeriod     string `json:"rent_period,omitempty"`
	DataSource     string `json:"data_source,omitempty"`

	PriceIDR          *float64 `json:"price_idr"`
	PriceUSD          *float64 `json:"price_usd"`
	SalePriceIDR      *float64 `json:"sale_price_idr"`
	RentPriceMonthIDR *float64 `json:"rent_price_month_idr"`
	Bedrooms          *float64 `json:"bedrooms"`
	Bathrooms         *float64 `json:"bathrooms"`
	LandSizeSQM       *float64 `json:"land_size_sqm"`
	BuildingSizeSQM   *float64 `json:"building_size_sqm"`
	LeaseDuration     *float64 `json:"lease_duration"`
	LeaseExpiryYear   *float64 `json:"lease_expiry_year"`

	// LeaseDurationRaw keeps the source cell for the text fallback steps of
	// the lease-years chain ("25 years", bare numeric strings).
	LeaseDurationRaw string `json:"-"`

	ListingDate *time.Time `json:"listing_date"`
	ScrapedAt   *time.Time `json:"scraped_at"`

	// ScrapedAtRaw and the parse-fail reason survive coercion for diagnostics.
	ScrapedAtRaw             string `json:"-"`
	ScrapedAtParseFailReason string `json:"scraped_at_parse_fail_reason,omitempty"`

	// Derived fields.
	ListingDateEffective              *time.Time `json:"listing_date_effective"`
	PriceSaleIDR                      *float64   `json:"price_sale_idr"`
	RentPriceMonthIDRNorm             *float64   `json:"rent_price_month_idr_norm"`
	ADRIDR                            *float64   `json:"adr_idr"`
	LeaseYearsRemaining               *float64   `json:"lease_years_remaining"`
	PricePerSQMIDR                    *float64   `json:"price_per_sqm_idr_calc"`
	PricePerSQMLandIDR                *float64   `json:"price_per_sqm_land_idr_calc"`
	PricePerSQMPerYear                *float64   `json:"price_per_sqm_per_year"`
	PricePerSQMPerYearFreehold        *float64   `json:"price_per_sqm_per_year_freehold"`
	PricePerSQMPerYearFreeholdAssumed *float64   `json:"price_per_sqm_per_year_freehold_assumed,omitempty"`
	AnnualRentPerSQM                  *float64   `json:"annual_rent_per_sqm"`
	YieldPctProxy                     *float64   `json:"yield_pct_proxy"`
	DaysListed                        *float64   `json:"days_listed"`

	// Outlier flags, one per monitored derived field.
	IsOutlierPriceSale        bool `json:"is_outlier_price_sale_idr"`
	IsOutlierRentNorm         bool `json:"is_outlier_rent_price_month_idr_norm"`
	IsOutlierPricePerSQM      bool `json:"is_outlier_price_per_sqm_idr_calc"`
	IsOutlierPPSY             bool `json:"is_outlier_price_per_sqm_per_year"`
	IsOutlierAnnualRentPerSQM bool `json:"is_outlier_annual_rent_per_sqm"`
	IsOutlierYield            bool `json:"is_outlier_yield_pct_proxy"`
	IsOutlierAny              bool `json:"is_outlier_any"`
}

// OutlierThreshold is the P1/P99 band computed for one monitored field over
// the full enriched snapshot.
type OutlierThreshold struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Diagnostics collects the non-fatal data-quality signals of one pipeline run.
type Diagnostics struct {
	Rows                    int                         `json:"rows"`
	RawRows                 int                         `json:"raw_rows"`
	UniquePropertyIDs       int                         `json:"unique_property_ids"`
	DuplicatePropertyRows   int                         `json:"duplicate_property_rows"`
	SentinelReplacements    map[string]int              `json:"sentinel_replacements"`
	ScrapedAtParseFailures  map[string]int              `json:"scraped_at_parse_failures"`
	LeaseYearsFromDescCount int                         `json:"lease_years_from_description"`
	OutlierThresholds       map[string]OutlierThreshold `json:"outlier_thresholds"`
	SheetNames              []string                    `json:"sheet_names,omitempty"`
	ComputedAt              time.Time                   `json:"computed_at"`
}

// EnrichResult is the stable artifact one enrichment pass produces.
type EnrichResult struct {
	Listings    []*Listing   `json:"listings"`
	Diagnostics *Diagnostics `json:"diagnostics"`
}

// MarketReport holds the computed analytics over the enriched dataset.
type MarketReport struct {
	TotalListings     int            `json:"total_listings"`
	ForSale           int            `json:"for_sale"`
	ForRent           int            `json:"for_rent"`
	MedianPricePerSQM *float64       `json:"median_price_per_sqm_idr"`
	MedianRentMonth   *float64       `json:"median_rent_month_idr"`
	MedianYieldPct    *float64       `json:"median_yield_pct"`
	MedianDaysListed  *float64       `json:"median_days_listed"`
	OutlierCount      int            `json:"outlier_count"`
	ListingsByArea    map[string]int `json:"listings_by_area"`
	TopYield          []*Listing     `json:"top_yield"`
}

// Float is a convenience constructor for nullable numeric cells.
func Float(v float64) *float64 { return &v }

// Time is the *time.Time counterpart of Float.
func Time(t time.Time) *time.Time { return &t }
