package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"property-analytics/models"
	"property-analytics/utils"
)

const (
	// adrDivisor converts a monthly rent to an average daily rate.
	adrDivisor = 30.0
	// weeksPerMonth converts a weekly rent to a monthly one.
	weeksPerMonth = 4.3
	// assumedFreeholdHorizonYears is the fixed horizon for the freehold PPSY
	// baseline.
	assumedFreeholdHorizonYears = 30.0
	// leaseYearsMin and leaseYearsMax bound every derived lease duration.
	leaseYearsMin = 1.0
	leaseYearsMax = 99.0
)

// leaseYearsRegexp captures "<n> years" style durations, including the
// Indonesian unit tokens th/tahun.
var leaseYearsRegexp = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:years|year|yrs|yr|th|tahun)`)

// Rent period unit aliases, lowercased. Indonesian terms appear alongside the
// English ones since the sources mix both.
var (
	dailyAliases   = map[string]struct{}{"day": {}, "daily": {}, "harian": {}}
	weeklyAliases  = map[string]struct{}{"week": {}, "weekly": {}, "mingguan": {}}
	monthlyAliases = map[string]struct{}{"month": {}, "monthly": {}, "bulanan": {}}
	yearlyAliases  = map[string]struct{}{"year": {}, "yearly": {}, "annual": {}, "annually": {}, "tahun": {}}
)

// Clock supplies the current timestamp for lease-expiry and days-listed math.
// Injected so enrichment stays deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. Used in tests.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }

// Enricher runs the full listing enrichment pipeline: sentinel
// normalization, type coercion, per-row derived fields, and outlier flags.
// Each pass is a pure function of its input plus the injected clock.
type Enricher struct {
	logger     *utils.Logger
	clock      Clock
	normalizer *Normalizer
	coercer    *Coercer
	flagger    *OutlierFlagger
}

// NewEnricher creates an Enricher with the given logger and clock.
func NewEnricher(logger *utils.Logger, clock Clock) *Enricher {
	return &Enricher{
		logger:     logger,
		clock:      clock,
		normalizer: NewNormalizer(logger),
		coercer:    NewCoercer(logger),
		flagger:    NewOutlierFlagger(logger),
	}
}

// Enrich is the main entry point: it turns raw rows into the enriched
// dataset. Per-row data issues never fail the pass; they surface as nil
// fields and diagnostic counters. An empty input yields an empty result.
func (e *Enricher) Enrich(raw []*models.RawListing) (*models.EnrichResult, error) {
	diag := &models.Diagnostics{
		RawRows:                len(raw),
		SentinelReplacements:   map[string]int{},
		ScrapedAtParseFailures: map[string]int{},
		OutlierThresholds:      map[string]models.OutlierThreshold{},
		ComputedAt:             e.clock.Now(),
	}

	if len(raw) == 0 {
		return &models.EnrichResult{Listings: []*models.Listing{}, Diagnostics: diag}, nil
	}

	normalized, replaced := e.normalizer.Normalize(raw)
	diag.SentinelReplacements = replaced

	listings, failures := e.coercer.Coerce(normalized)
	diag.ScrapedAtParseFailures = failures

	now := e.clock.Now()
	currentYear := now.Year()
	for _, l := range listings {
		e.deriveRow(l, now, currentYear, diag)
	}

	diag.OutlierThresholds = e.flagger.Flag(listings)

	diag.Rows = len(listings)
	diag.UniquePropertyIDs, diag.DuplicatePropertyRows = propertyIDStats(listings)
	diag.SheetNames = sheetNames(listings)

	e.logger.Info("[enricher] Enriched %d rows (%d duplicate property ids, %d lease years mined from descriptions)",
		diag.Rows, diag.DuplicatePropertyRows, diag.LeaseYearsFromDescCount)
	return &models.EnrichResult{Listings: listings, Diagnostics: diag}, nil
}

// deriveRow computes every derived field for one listing. Fields depend only
// on the row itself and the injected clock.
func (e *Enricher) deriveRow(l *models.Listing, now time.Time, currentYear int, diag *models.Diagnostics) {
	l.ListingDateEffective = effectiveListingDate(l)
	l.PriceSaleIDR = computeSalePrice(l)
	l.RentPriceMonthIDRNorm = normalizeMonthlyRent(l)
	l.ADRIDR = divide(l.RentPriceMonthIDRNorm, models.Float(adrDivisor))

	var fromDesc bool
	l.LeaseYearsRemaining, fromDesc = estimateLeaseYears(l, currentYear)
	if fromDesc {
		diag.LeaseYearsFromDescCount++
	}

	l.PricePerSQMIDR, l.PricePerSQMLandIDR = computePricePerSQM(l)

	if l.LeaseYearsRemaining != nil && *l.LeaseYearsRemaining > 0 {
		l.PricePerSQMPerYear = divide(l.PricePerSQMIDR, l.LeaseYearsRemaining)
	}
	l.PricePerSQMPerYearFreehold = divide(l.PricePerSQMIDR, models.Float(assumedFreeholdHorizonYears))

	l.AnnualRentPerSQM = computeAnnualRentPerSQM(l)
	l.YieldPctProxy = computeYieldProxy(l)
	l.DaysListed = computeDaysListed(l, now)
}

// effectiveListingDate anchors the row's timeline: the posted date when
// known, else the scrape time.
func effectiveListingDate(l *models.Listing) *time.Time {
	if l.ListingDate != nil {
		return l.ListingDate
	}
	return l.ScrapedAt
}

// computeSalePrice populates the sale price only for "for sale" rows,
// preferring the dedicated sale price over the generic price.
func computeSalePrice(l *models.Listing) *float64 {
	if !strings.EqualFold(l.ListingType, "for sale") {
		return nil
	}
	if l.SalePriceIDR != nil {
		return l.SalePriceIDR
	}
	return l.PriceIDR
}

// normalizeMonthlyRent expresses rent on a monthly basis. A direct monthly
// value always wins; otherwise the fallback price is converted according to
// the textual period unit. Unknown units stay nil.
func normalizeMonthlyRent(l *models.Listing) *float64 {
	if l.RentPriceMonthIDR != nil {
		return l.RentPriceMonthIDR
	}
	if l.PriceIDR == nil {
		return nil
	}
	period := strings.ToLower(strings.TrimSpace(l.RentPeriod))
	fallback := *l.PriceIDR
	switch {
	case inSet(period, dailyAliases):
		return models.Float(fallback * 30)
	case inSet(period, weeklyAliases):
		return models.Float(fallback * weeksPerMonth)
	case inSet(period, monthlyAliases):
		return models.Float(fallback)
	case inSet(period, yearlyAliases):
		return models.Float(fallback / 12)
	default:
		return nil
	}
}

// estimateLeaseYears resolves the remaining lease years for leasehold rows
// through an ordered chain of fallbacks; the first step that produces a value
// wins. The second return reports whether the value was mined from the
// free-text description, the least reliable signal.
func estimateLeaseYears(l *models.Listing, currentYear int) (*float64, bool) {
	if !strings.EqualFold(l.OwnershipType, "leasehold") {
		return nil, false
	}

	if v := leaseFromNumeric(l.LeaseDuration); v != nil {
		return v, false
	}
	if v := leaseFromText(l.LeaseDurationRaw); v != nil {
		return v, false
	}
	if v := leaseFromBareString(l.LeaseDurationRaw); v != nil {
		return v, false
	}
	if v := leaseFromExpiryYear(l.LeaseExpiryYear, currentYear); v != nil {
		return v, false
	}
	if v := leaseFromText(l.Description); v != nil {
		return v, true
	}
	return nil, false
}

// leaseFromNumeric: the lease_duration cell already coerced to a number.
func leaseFromNumeric(duration *float64) *float64 {
	if duration == nil {
		return nil
	}
	return models.Float(clampLeaseYears(*duration))
}

// leaseFromText: a number followed by a year-unit token inside free text.
func leaseFromText(text string) *float64 {
	m := leaseYearsRegexp.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil
	}
	years, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return models.Float(clampLeaseYears(years))
}

// leaseFromBareString: the lease_duration cell as a bare numeric string.
func leaseFromBareString(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	years, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return models.Float(clampLeaseYears(years))
}

// leaseFromExpiryYear: expiry year minus the current calendar year, when
// positive.
func leaseFromExpiryYear(expiry *float64, currentYear int) *float64 {
	if expiry == nil {
		return nil
	}
	years := *expiry - float64(currentYear)
	if years <= 0 {
		return nil
	}
	return models.Float(clampLeaseYears(years))
}

func clampLeaseYears(years float64) float64 {
	if years < leaseYearsMin {
		return leaseYearsMin
	}
	if years > leaseYearsMax {
		return leaseYearsMax
	}
	return years
}

// computePricePerSQM returns the building-basis price per sqm (falling back
// to land basis when the building size is missing or zero) and the dedicated
// land-basis value. A zero denominator means "no denominator", never a
// division.
func computePricePerSQM(l *models.Listing) (building, land *float64) {
	buildingBasis := divide(l.PriceSaleIDR, nonZero(l.BuildingSizeSQM))
	landBasis := divide(l.PriceSaleIDR, nonZero(l.LandSizeSQM))
	if buildingBasis != nil {
		return buildingBasis, landBasis
	}
	return landBasis, landBasis
}

func computeAnnualRentPerSQM(l *models.Listing) *float64 {
	if l.RentPriceMonthIDRNorm == nil {
		return nil
	}
	size := nonZero(l.BuildingSizeSQM)
	if size == nil {
		return nil
	}
	return models.Float(*l.RentPriceMonthIDRNorm * 12 / *size)
}

func computeYieldProxy(l *models.Listing) *float64 {
	if l.AnnualRentPerSQM == nil || l.PricePerSQMIDR == nil {
		return nil
	}
	return models.Float(*l.AnnualRentPerSQM / *l.PricePerSQMIDR * 100)
}

// computeDaysListed counts whole days between the effective listing date and
// the reference date (scrape time, else the processing timestamp), clamped at
// zero.
func computeDaysListed(l *models.Listing, now time.Time) *float64 {
	if l.ListingDateEffective == nil {
		return nil
	}
	reference := now
	if l.ScrapedAt != nil {
		reference = *l.ScrapedAt
	}
	days := int(reference.Sub(*l.ListingDateEffective).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return models.Float(float64(days))
}

// divide returns a/b as a new nullable value; nil when either side is nil.
func divide(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return models.Float(*a / *b)
}

// nonZero treats a zero-valued denominator as absent.
func nonZero(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

func inSet(s string, set map[string]struct{}) bool {
	_, ok := set[s]
	return ok
}

// sheetNames collects the distinct data sources in first-seen order.
func sheetNames(listings []*models.Listing) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, l := range listings {
		if l.DataSource == "" {
			continue
		}
		if _, ok := seen[l.DataSource]; ok {
			continue
		}
		seen[l.DataSource] = struct{}{}
		names = append(names, l.DataSource)
	}
	return names
}

func propertyIDStats(listings []*models.Listing) (unique, duplicates int) {
	seen := make(map[string]struct{}, len(listings))
	for _, l := range listings {
		if l.PropertyID == "" {
			continue
		}
		if _, dup := seen[l.PropertyID]; dup {
			duplicates++
			continue
		}
		seen[l.PropertyID] = struct{}{}
	}
	return len(seen), duplicates
}
