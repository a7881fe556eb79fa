package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Runtime configuration, loaded from the environment. Business thresholds
// that the original operators tuned by hand (far-distance cutoff, imminent
// deadline window, cache staleness) are surfaced here as named fields rather
// than buried as literals.
type Config struct {
	Port        string
	DBPath      string
	DatabaseURL string
	SeedPath    string

	WarehouseAddress string

	ORSAPIKey  string
	ORSBaseURL string

	AIAPIKey  string
	AIBaseURL string
	AIModel   string

	KafkaBrokers string
	KafkaTopic   string
	KafkaGroupID string
	FeedSource   string

	StatusBaseURL string

	// Staleness window applied symmetrically around "now" for route cache
	// hits, in hours.
	RouteCacheWindowHours int

	// Worker-pool caps per external dependency (distinct rate tolerances),
	// plus the orders-in-flight cap for one resolution batch.
	AIWorkers      int
	GeocodeWorkers int
	StatusWorkers  int
	ResolveWorkers int

	// Scheduler thresholds.
	FarDistanceKM    float64
	ImminentDeadline time.Duration
	OverdueAfter     time.Duration
	ResolveInterval  time.Duration
	DefaultPageSize  int
	MaxPageSize      int
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:             Get("PORT", "8080"),
		DBPath:           Get("DB_PATH", "data/dispatch.db"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SeedPath:         Get("SEED_PATH", "data/seeds/carriers.json"),
		WarehouseAddress: Get("WAREHOUSE_ADDRESS", "52 Thành Thái, Phường 12, Quận 10, TP.HCM"),
		ORSAPIKey:        os.Getenv("ORS_API_KEY"),
		ORSBaseURL:       Get("ORS_BASE_URL", "https://api.openrouteservice.org"),
		AIAPIKey:         os.Getenv("AI_API_KEY"),
		AIBaseURL:        Get("AI_BASE_URL", "https://generativelanguage.googleapis.com"),
		AIModel:          Get("AI_MODEL", "gemini-2.0-flash"),
		KafkaBrokers:     Get("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:       Get("KAFKA_TOPIC", "orders"),
		KafkaGroupID:     Get("KAFKA_GROUP_ID", "dispatch-worklist"),
		FeedSource:       Get("FEED_SOURCE", "order-feed"),
		StatusBaseURL:    Get("STATUS_BASE_URL", "http://localhost:9090"),
	}

	var err error
	if cfg.RouteCacheWindowHours, err = getInt("ROUTE_CACHE_WINDOW_HOURS", 72); err != nil {
		return nil, err
	}
	if cfg.AIWorkers, err = getInt("AI_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.GeocodeWorkers, err = getInt("GEOCODE_WORKERS", 5); err != nil {
		return nil, err
	}
	if cfg.StatusWorkers, err = getInt("STATUS_WORKERS", 8); err != nil {
		return nil, err
	}
	if cfg.ResolveWorkers, err = getInt("RESOLVE_WORKERS", 8); err != nil {
		return nil, err
	}
	if cfg.DefaultPageSize, err = getInt("DEFAULT_PAGE_SIZE", 50); err != nil {
		return nil, err
	}
	if cfg.MaxPageSize, err = getInt("MAX_PAGE_SIZE", 200); err != nil {
		return nil, err
	}

	farKM, err := getInt("FAR_DISTANCE_KM", 100)
	if err != nil {
		return nil, err
	}
	cfg.FarDistanceKM = float64(farKM)

	imminentH, err := getInt("IMMINENT_DEADLINE_HOURS", 2)
	if err != nil {
		return nil, err
	}
	cfg.ImminentDeadline = time.Duration(imminentH) * time.Hour

	overdueH, err := getInt("OVERDUE_AFTER_HOURS", 24)
	if err != nil {
		return nil, err
	}
	cfg.OverdueAfter = time.Duration(overdueH) * time.Hour

	resolveMin, err := getInt("RESOLVE_INTERVAL_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	cfg.ResolveInterval = time.Duration(resolveMin) * time.Minute

	return cfg, nil
}

// Get returns the env value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", key, v)
	}
	return n, nil
}
