package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/cloudmatch/backend/config"
	"github.com/cloudmatch/backend/internal/catalog"
	httpDelivery "github.com/cloudmatch/backend/internal/delivery/http"
	"github.com/cloudmatch/backend/internal/domain"
	"github.com/cloudmatch/backend/internal/infrastructure/cache"
	"github.com/cloudmatch/backend/internal/infrastructure/marketplace"
	"github.com/cloudmatch/backend/internal/infrastructure/suggest"
	"github.com/cloudmatch/backend/internal/usecase"
)

func main() {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting CloudMatch Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Cache Type: %s", cfg.Cache.Type)

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		log.Fatalf("Failed to load vendor catalog: %v", err)
	}

	var store domain.CacheStore
	switch cfg.Cache.Type {
	case "sqlite":
		sqliteStore, err := cache.NewSQLiteStore(cfg.Cache.Path, cache.Options{
			FuzzyThreshold: cfg.Cache.FuzzyThreshold,
			TTL:            cfg.Cache.TTL,
			MaxEntries:     cfg.Cache.MaxEntries,
		})
		if err != nil {
			log.Fatalf("Failed to open cache store: %v", err)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	default:
		store = cache.NewMemoryStore(cfg.Cache.FuzzyThreshold, cfg.Cache.TTL)
	}
	log.Printf("Cache: threshold=%d%%, ttl=%s, max=%d",
		cfg.Cache.FuzzyThreshold, cfg.Cache.TTL, cfg.Cache.MaxEntries)

	scrapeCfg := marketplace.Config{
		Timeout:       cfg.Scrape.Timeout,
		UserAgent:     cfg.Scrape.UserAgent,
		RatePerSecond: cfg.Scrape.RatePerSecond,
	}
	scrapers := marketplace.NewAll(scrapeCfg)

	var suggester domain.Suggester
	if cfg.Suggest.Enabled {
		suggester = suggest.NewClient(suggest.Config{
			BaseURL:        cfg.Suggest.BaseURL,
			APIKey:         cfg.Suggest.APIKey,
			Model:          cfg.Suggest.Model,
			MaxSuggestions: cfg.Suggest.MaxSuggestions,
		})
		log.Printf("Suggestions: model=%s via %s", cfg.Suggest.Model, cfg.Suggest.BaseURL)
	} else {
		log.Printf("Suggestions: disabled")
	}

	searchService := usecase.NewSearchService(cat, store, scrapers, suggester, usecase.SearchServiceConfig{
		MarketplaceTimeout: cfg.Scrape.Timeout,
		OverallTimeout:     cfg.Scrape.OverallTimeout,
		MaxResults:         cfg.Scrape.MaxResults,
		NoMatchThreshold:   cfg.Matching.NoMatchThreshold,
		ResolveThreshold:   cfg.Matching.ResolveThreshold,
		EnableDebugLogging: cfg.Matching.EnableDebugLogging,
	})

	log.Printf("Matching: no-match=%.0f%%, resolve=%.0f%%, debug=%v",
		cfg.Matching.NoMatchThreshold, cfg.Matching.ResolveThreshold, cfg.Matching.EnableDebugLogging)

	handler := httpDelivery.NewHandler(searchService, store, cat)
	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
