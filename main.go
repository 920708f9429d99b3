package main

import (
	"os"

	"property-analytics/config"
	"property-analytics/server"
	"property-analytics/services"
	"property-analytics/source"
	"property-analytics/storage"
	"property-analytics/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLogger(cfg.LogLevel)

	logger.Info("=== Property Market Analytics starting ===")
	logger.Info("Config — tabs: %d | concurrency: %d | cache TTL: %ds | FX fallback: %.0f IDR/USD",
		len(cfg.SheetURLs()), cfg.MaxConcurrency, cfg.CacheTTLSeconds, cfg.FXRateIDRUSD)

	sheets := source.New(cfg, logger)
	rawListings, err := sheets.Fetch()
	if err != nil {
		logger.Error("Sheet fetch failed: %v", err)
		os.Exit(1)
	}

	enricher := services.NewEnricher(logger, services.SystemClock{})
	result, err := enricher.Enrich(rawListings)
	if err != nil {
		logger.Error("Enrichment failed: %v", err)
		os.Exit(1)
	}

	if len(result.Listings) == 0 {
		logger.Warn("Enriched dataset is empty — nothing to persist")
	} else {
		csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			logger.Error("Failed to create CSV writer: %v", err)
			os.Exit(1)
		}
		if err := csvWriter.Write(result.Listings); err != nil {
			logger.Error("CSV export failed: %v", err)
		} else {
			logger.Info("Enriched snapshot saved to %s", cfg.CSVOutputPath)
		}
		_ = csvWriter.Close()

		pgWriter, err := storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			logger.Warn("PostgreSQL unavailable, skipping snapshot store: %v", err)
		} else {
			if err := pgWriter.Write(result.Listings); err != nil {
				logger.Error("PostgreSQL write failed: %v", err)
			} else {
				logger.Info("Enriched snapshot stored in PostgreSQL (table: enriched_listings)")
			}
			defer pgWriter.Close()
		}
	}

	insightSvc := services.NewInsightService(logger)
	report := insightSvc.Generate(result.Listings)
	insightSvc.Print(report)

	srv := server.New(cfg, logger, sheets, enricher)
	srv.Prime(result)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("HTTP server failed: %v", err)
		os.Exit(1)
	}
}
