package services

import (
	"strconv"
	"strings"
	"time"

	"property-analytics/models"
	"property-analytics/utils"
)

// Parse-failure reasons recorded for scraped_at cells that survive every
// format attempt.
const (
	FailReasonSentinel = "sentinel"
	FailReasonBlank    = "blank"
	FailReasonUnparsed = "unparsed_format"
)

// scrapedAtFormats are the explicit layouts tried, in order, after the
// flexible ISO attempt.
var scrapedAtFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02-01-2006 15:04:05",
	"02/01/2006 15:04:05",
}

// flexibleFormats approximate the generic first-pass parse: ISO 8601 with and
// without timezone or time component.
var flexibleFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Coercer converts normalized raw rows into typed listings. Unparsable cells
// become nil, never errors.
type Coercer struct {
	logger *utils.Logger
}

// NewCoercer creates a Coercer with the given logger.
func NewCoercer(logger *utils.Logger) *Coercer {
	return &Coercer{logger: logger}
}

// Coerce converts every raw row into a typed Listing and tallies scraped_at
// parse failures by reason.
func (c *Coercer) Coerce(raw []*models.RawListing) ([]*models.Listing, map[string]int) {
	failures := make(map[string]int)
	out := make([]*models.Listing, 0, len(raw))

	for _, r := range raw {
		l := &models.Listing{
			PropertyID:     strings.TrimSpace(r.PropertyID),
			ListingType:    strings.TrimSpace(r.ListingType),
			PropertyType:   strings.TrimSpace(r.PropertyType),
			Area:           strings.TrimSpace(r.Area),
			OwnershipType:  strings.TrimSpace(r.OwnershipType),
			PropertyStatus: strings.TrimSpace(r.PropertyStatus),
			SellerType:     resolveSellerType(r),
			Company:        strings.TrimSpace(r.Company),
			AgentName:      strings.TrimSpace(r.AgentName),
			Description:    r.Description,
			RentPeriod:     strings.TrimSpace(r.RentPeriod),
			DataSource:     r.DataSource,

			PriceIDR:          ParseNumeric(r.PriceIDR),
			PriceUSD:          ParseNumeric(r.PriceUSD),
			SalePriceIDR:      ParseNumeric(r.SalePriceIDR),
			RentPriceMonthIDR: ParseNumeric(r.RentPriceMonthIDR),
			Bedrooms:          ParseNumeric(r.Bedrooms),
			Bathrooms:         ParseNumeric(r.Bathrooms),
			LandSizeSQM:       ParseNumeric(r.LandSizeSQM),
			BuildingSizeSQM:   ParseNumeric(r.BuildingSizeSQM),
			LeaseDuration:     ParseNumeric(r.LeaseDuration),
			LeaseExpiryYear:   ParseNumeric(r.LeaseExpiryYear),
			LeaseDurationRaw:  strings.TrimSpace(r.LeaseDuration),

			ScrapedAtRaw: r.ScrapedAt,
		}

		l.ScrapedAt, l.ScrapedAtParseFailReason = ParseScrapedAt(r.ScrapedAt)
		if l.ScrapedAtParseFailReason != "" {
			failures[l.ScrapedAtParseFailReason]++
		}

		l.ListingDate = parseFlexibleTime(r.ListingDate)

		out = append(out, l)
	}

	if total := failures[FailReasonSentinel] + failures[FailReasonBlank] + failures[FailReasonUnparsed]; total > 0 {
		c.logger.Debug("[coercer] scraped_at parse failures: %d sentinel, %d blank, %d unparsed",
			failures[FailReasonSentinel], failures[FailReasonBlank], failures[FailReasonUnparsed])
	}
	return out, failures
}

// ParseNumeric parses a cell with coerce semantics: thousands separators are
// tolerated, anything unparsable becomes nil.
func ParseNumeric(cell string) *float64 {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// ParseScrapedAt attempts the flexible parse first, then each explicit layout
// in order. Cells that defeat every attempt are classified into exactly one
// failure reason; parsed times are returned naive (timezone stripped).
func ParseScrapedAt(cell string) (*time.Time, string) {
	if t := parseFlexibleTime(cell); t != nil {
		return t, ""
	}
	s := strings.TrimSpace(cell)
	for _, layout := range scrapedAtFormats {
		if t, err := time.Parse(layout, s); err == nil {
			t = stripZone(t)
			return &t, ""
		}
	}
	return nil, classifyFailure(cell)
}

func classifyFailure(cell string) string {
	trimmed := strings.TrimSpace(cell)
	switch {
	case IsSentinel(cell):
		return FailReasonSentinel
	case trimmed == "":
		return FailReasonBlank
	default:
		return FailReasonUnparsed
	}
}

// parseFlexibleTime is the single-attempt parse used for listing_date.
func parseFlexibleTime(cell string) *time.Time {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	for _, layout := range flexibleFormats {
		if t, err := time.Parse(layout, s); err == nil {
			t = stripZone(t)
			return &t
		}
	}
	return nil
}

// stripZone converts a timestamp to its naive representation so values from
// mixed-offset sources compare consistently.
func stripZone(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// resolveSellerType picks the first populated cell among the aliased seller
// columns.
func resolveSellerType(r *models.RawListing) string {
	for _, cell := range []string{r.SellerType, r.SourceCategory, r.ListingAgencyType} {
		if s := strings.TrimSpace(cell); s != "" {
			return s
		}
	}
	return ""
}
