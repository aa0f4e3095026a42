package cmd

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"procurement-backend/internal/catalog"
	"procurement-backend/internal/llm"
	"procurement-backend/internal/pipeline"
	"procurement-backend/internal/services"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	if err := godotenv.Load(configPath); err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// ServiceConfig is shared by the api and worker binaries.
type ServiceConfig struct {
	DatabaseURL       string  `env:"DATABASE_URL" envDefault:"procurement.db"`
	RabbitMQURL       string  `env:"RABBITMQ_URL"` // empty = in-memory queue with in-process workers
	APIPort           string  `env:"API_PORT" envDefault:"8080"`
	WorkerConcurrency int     `env:"CONCURRENCY" envDefault:"4"`
	OpenAIAPIKey      string  `env:"OPENAI_API_KEY"`
	LLMModel          string  `env:"LLM_MODEL"`
	EmbeddingModel    string  `env:"EMBEDDING_MODEL"`
	CatalogURL        string  `env:"CATALOG_URL"`    // empty = seeded in-memory catalog
	ForecastURL       string  `env:"FORECAST_URL"`   // empty = catalog-derived local forecast
	SupplierURL       string  `env:"SUPPLIER_URL"`   // empty = canned local offers
	GeoURL            string  `env:"GEODISTANCE_URL"` // empty = haversine
	WarehouseLat      float64 `env:"WAREHOUSE_LAT" envDefault:"-23.5505"`
	WarehouseLon      float64 `env:"WAREHOUSE_LON" envDefault:"-46.6333"`
}

// BuildLLMClient returns nil when no API key is configured; every consumer
// falls back to its deterministic path in that case.
func BuildLLMClient(cfg ServiceConfig) llm.Client {
	if cfg.OpenAIAPIKey == "" {
		log.Println("OPENAI_API_KEY not set, running with deterministic fallbacks only")
		return nil
	}
	return llm.NewOpenAIClient(cfg.LLMModel, cfg.EmbeddingModel, 0.2)
}

func BuildCatalogStore(cfg ServiceConfig) catalog.Store {
	if cfg.CatalogURL != "" {
		return catalog.NewHTTPStore(cfg.CatalogURL)
	}
	log.Println("CATALOG_URL not set, using seeded in-memory catalog")
	return catalog.NewMemoryStore(catalog.SeedProducts()...)
}

func BuildPipeline(cfg ServiceConfig, store catalog.Store) *pipeline.Pipeline {
	var forecast services.ForecastService
	if cfg.ForecastURL != "" {
		forecast = services.NewHTTPForecastService(cfg.ForecastURL)
	} else {
		forecast = &services.LocalForecastService{Catalog: store}
	}

	var suppliers services.SupplierService
	if cfg.SupplierURL != "" {
		suppliers = services.NewHTTPSupplierService(cfg.SupplierURL)
	} else {
		suppliers = &services.LocalSupplierService{Catalog: store}
	}

	var geo services.GeoService
	if cfg.GeoURL != "" {
		geo = services.NewHTTPGeoService(cfg.GeoURL)
	} else {
		geo = services.HaversineGeoService{}
	}

	warehouse := services.Coordinates{Latitude: cfg.WarehouseLat, Longitude: cfg.WarehouseLon}
	return pipeline.New(store, forecast, suppliers, geo, warehouse)
}
