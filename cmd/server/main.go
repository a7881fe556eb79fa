package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"dispatch-worklist-service/internal/adapters/ai"
	"dispatch-worklist-service/internal/adapters/cache"
	"dispatch-worklist-service/internal/adapters/distance"
	"dispatch-worklist-service/internal/adapters/feed"
	"dispatch-worklist-service/internal/adapters/repositories"
	"dispatch-worklist-service/internal/adapters/status"
	"dispatch-worklist-service/internal/api"
	"dispatch-worklist-service/internal/config"
	"dispatch-worklist-service/internal/platform/logging"
	"dispatch-worklist-service/internal/ports"
	"dispatch-worklist-service/internal/services"
)

// main is the application composition root. It wires concrete adapters
// (SQLite, ORS, the AI standardizer, Kafka) behind ports and starts the HTTP
// server plus the periodic resolution loop.
func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found (using environment variables)")
	}

	log, err := logging.New(os.Getenv("APP_ENV") != "production")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Fatalw("server exited", "error", err)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	// Schema and carrier seed run on startup for local setups; postgres
	// deployments migrate through cmd/dbtool instead.
	if err := initAndSeed(db, cfg.SeedPath, log); err != nil {
		return err
	}

	clock := ports.SystemClock{}

	provider, err := distance.NewORSMapProvider(cfg.ORSAPIKey, cfg.ORSBaseURL, cfg.GeocodeWorkers, log)
	if err != nil {
		return fmt.Errorf("init map provider: %w", err)
	}
	routeStore := cache.NewSqliteRouteStore(db)
	routes := cache.NewRouteCache(
		routeStore,
		provider,
		cfg.WarehouseAddress,
		time.Duration(cfg.RouteCacheWindowHours)*time.Hour,
		clock,
		log,
	)

	standardizer := ai.NewStandardizer(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, cfg.AIWorkers, log)

	orders := repositories.NewSqliteOrderRepository(db)
	addrs := repositories.NewSqliteAddressRepository(db)
	carriers := services.NewCarrierResolver(repositories.NewSqliteCarrierRepository(db))
	watermarks := repositories.NewSqliteWatermarkStore(db)

	resolver := services.NewResolver(
		orders, addrs, carriers, standardizer, routes,
		clock, log, cfg.ResolveWorkers, cfg.OverdueAfter,
	)

	scheduler := services.NewScheduler(orders, services.SchedulerConfig{
		FarDistanceKM:    cfg.FarDistanceKM,
		ImminentDeadline: cfg.ImminentDeadline,
		MaxPageSize:      cfg.MaxPageSize,
	}, clock, log)

	orderFeed := feed.NewKafkaFeed(feed.Config{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		GroupID: cfg.KafkaGroupID,
	}, log)
	defer orderFeed.Close()

	statusClient := status.NewClient(cfg.StatusBaseURL)
	ingestor := services.NewIngestor(
		orderFeed, orders, statusClient, watermarks,
		clock, log, cfg.FeedSource, cfg.StatusWorkers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go resolveLoop(ctx, ingestor, resolver, cfg.ResolveInterval, log)

	router := api.NewRouter(resolver, ingestor, scheduler, cfg.DefaultPageSize, log)

	// Timeouts are tuned for cold-cache resolution runs (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Infow("server stopped")
	return nil
}

// resolveLoop runs ingest-then-resolve on a fixed interval until the context
// is cancelled. Failures are logged and the next tick retries from scratch.
func resolveLoop(ctx context.Context, ingestor *services.Ingestor, resolver *services.Resolver, interval time.Duration, log *zap.SugaredLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		res, err := ingestor.Ingest(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Warnw("periodic ingest failed", "error", err)
			}
			continue
		}
		if res.Skipped {
			continue
		}

		resolved, err := resolver.ResolvePending(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Warnw("periodic resolve failed", "error", err)
			}
			continue
		}
		if len(resolved) > 0 {
			log.Infow("periodic resolve done", "resolved", len(resolved))
		}

		// Pick up route metrics that earlier cycles had to leave null.
		if _, err := resolver.RefreshRoutes(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warnw("periodic route refresh failed", "error", err)
		}
	}
}

func openDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("openDB: open sqlite database %q: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify sqlite connection to %q: %w", dbPath, err)
	}

	return db, nil
}

func initAndSeed(db *sql.DB, seedPath string, log *zap.SugaredLogger) error {
	if err := repositories.InitSchema(db); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if _, err := os.Stat(seedPath); os.IsNotExist(err) {
		log.Warnw("carrier seed file missing, skipping seed", "path", seedPath)
		return nil
	}

	if err := repositories.SeedCarriersFromJSON(db, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}
