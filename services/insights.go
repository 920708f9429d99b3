package services

import (
	"fmt"
	"sort"
	"strings"

	"property-analytics/models"
	"property-analytics/utils"
)

// InsightService computes the market report over an enriched dataset.
type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate aggregates the headline KPIs of the dashboard: sale/rent mix,
// medians of the derived metrics, area distribution, and top-yield listings.
func (s *InsightService) Generate(listings []*models.Listing) *models.MarketReport {
	report := &models.MarketReport{
		ListingsByArea: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var pricePerSQM, rentNorm, yields, daysListed []float64
	var yieldListings []*models.Listing

	for _, l := range listings {
		switch strings.ToLower(l.ListingType) {
		case "for sale":
			report.ForSale++
		case "for rent":
			report.ForRent++
		}
		if l.PricePerSQMIDR != nil {
			pricePerSQM = append(pricePerSQM, *l.PricePerSQMIDR)
		}
		if l.RentPriceMonthIDRNorm != nil {
			rentNorm = append(rentNorm, *l.RentPriceMonthIDRNorm)
		}
		if l.YieldPctProxy != nil {
			yields = append(yields, *l.YieldPctProxy)
			yieldListings = append(yieldListings, l)
		}
		if l.DaysListed != nil {
			daysListed = append(daysListed, *l.DaysListed)
		}
		if l.Area != "" {
			report.ListingsByArea[l.Area]++
		}
		if l.IsOutlierAny {
			report.OutlierCount++
		}
	}

	report.MedianPricePerSQM = median(pricePerSQM)
	report.MedianRentMonth = median(rentNorm)
	report.MedianYieldPct = median(yields)
	report.MedianDaysListed = median(daysListed)

	// Top 5 by yield proxy
	sort.Slice(yieldListings, func(i, j int) bool {
		return *yieldListings[i].YieldPctProxy > *yieldListings[j].YieldPctProxy
	})
	if len(yieldListings) > 5 {
		report.TopYield = yieldListings[:5]
	} else {
		report.TopYield = yieldListings
	}

	return report
}

// Print renders the report to the terminal.
func (s *InsightService) Print(r *models.MarketReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 PROPERTY MARKET SNAPSHOT\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Total listings   : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Printf("  For sale         : \033[1m%d\033[0m\n", r.ForSale)
	fmt.Printf("  For rent         : \033[1m%d\033[0m\n", r.ForRent)
	fmt.Printf("  Outliers flagged : \033[1m%d\033[0m\n", r.OutlierCount)
	fmt.Println()

	// Market medians
	fmt.Printf("\033[1;33m  Market Medians\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Price / sqm      : \033[1;32m%s\033[0m\n", FormatMoney(r.MedianPricePerSQM, CurrencyIDR))
	fmt.Printf("  Monthly rent     : \033[1;32m%s\033[0m\n", FormatMoney(r.MedianRentMonth, CurrencyIDR))
	if r.MedianYieldPct != nil {
		fmt.Printf("  Yield proxy      : \033[1;32m%.2f%%\033[0m\n", *r.MedianYieldPct)
	} else {
		fmt.Printf("  Yield proxy      : —\n")
	}
	if r.MedianDaysListed != nil {
		fmt.Printf("  Days listed      : \033[1m%.0f\033[0m\n", *r.MedianDaysListed)
	} else {
		fmt.Printf("  Days listed      : —\n")
	}
	fmt.Println()

	// Top yield listings
	fmt.Printf("\033[1;33m  Top 5 Yield Proxies\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.TopYield) == 0 {
		fmt.Printf("  No yield data available\n")
	} else {
		for i, l := range r.TopYield {
			label := l.PropertyID
			if l.Area != "" {
				label += " · " + l.Area
			}
			fmt.Printf("  \033[1m%d.\033[0m %-40s \033[1;32m%.2f%%\033[0m\n",
				i+1, truncate(label, 38), *l.YieldPctProxy)
		}
	}
	fmt.Println()

	// Listings by area
	fmt.Printf("\033[1;33m  Listings by Area\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ListingsByArea) == 0 {
		fmt.Printf("  No area data\n")
	} else {
		type areaCount struct {
			area  string
			count int
		}
		var areas []areaCount
		for area, cnt := range r.ListingsByArea {
			areas = append(areas, areaCount{area, cnt})
		}
		sort.Slice(areas, func(i, j int) bool {
			return areas[i].count > areas[j].count
		})
		for _, ac := range areas {
			bar := strings.Repeat("█", ac.count)
			fmt.Printf("  %-30s %s (%d)\n", truncate(ac.area, 28), bar, ac.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

// median returns the middle value of an unsorted sample, or nil for an empty
// one.
func median(values []float64) *float64 {
	n := len(values)
	if n == 0 {
		return nil
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return models.Float(sorted[n/2])
	}
	return models.Float((sorted[n/2-1] + sorted[n/2]) / 2)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
