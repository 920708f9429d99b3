package models

import "time"

// FilterSpec is the structured set of optional predicates the dashboard
// applies to the enriched dataset. Zero values mean "no filtering on this
// field": nil bounds are open-ended and empty selections match everything.
type FilterSpec struct {
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	ListingType    string   `json:"listing_type,omitempty"`
	PropertyTypes  []string `json:"property_types,omitempty"`
	Areas          []string `json:"areas,omitempty"`
	Ownership      []string `json:"ownership,omitempty"`
	PropertyStatus []string `json:"property_status,omitempty"`
	SellerTypes    []string `json:"seller_types,omitempty"`

	// BedroomBuckets holds named buckets: "1", "2", "3-4", "5+". Selected
	// buckets are unioned.
	BedroomBuckets []string `json:"bedroom_buckets,omitempty"`

	PriceMin        *float64 `json:"price_min,omitempty"`
	PriceMax        *float64 `json:"price_max,omitempty"`
	RentMin         *float64 `json:"rent_min,omitempty"`
	RentMax         *float64 `json:"rent_max,omitempty"`
	BuildingSizeMin *float64 `json:"building_size_min,omitempty"`
	BuildingSizeMax *float64 `json:"building_size_max,omitempty"`
	LandSizeMin     *float64 `json:"land_size_min,omitempty"`
	LandSizeMax     *float64 `json:"land_size_max,omitempty"`

	HideOutliers bool `json:"hide_outliers,omitempty"`

	// AssumedFreeholdHorizon, when positive, recomputes the assumed-freehold
	// PPSY column on the filtered view for display.
	AssumedFreeholdHorizon float64 `json:"assumed_freehold_horizon,omitempty"`

	Currency string `json:"currency,omitempty"`
}

// DefaultFilterSpec returns the all-pass spec the dashboard starts from.
func DefaultFilterSpec() *FilterSpec {
	return &FilterSpec{
		Currency:               "IDR",
		AssumedFreeholdHorizon: 30,
	}
}
