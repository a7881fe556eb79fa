package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"dispatch-worklist-service/internal/adapters/repositories"
	"dispatch-worklist-service/internal/config"
	"dispatch-worklist-service/internal/migrate"
	"dispatch-worklist-service/internal/platform/db"
	"dispatch-worklist-service/internal/platform/logging"
)

// dbtool prepares a database for the service: SQLite schema plus carrier seed
// for local runs, or goose migrations against postgres with -migrate.
func main() {
	migrateFlag := flag.Bool("migrate", false, "apply postgres migrations to DATABASE_URL instead of preparing the local sqlite file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found (using environment variables)")
	}

	log, err := logging.New(true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if *migrateFlag {
		databaseURL := os.Getenv("DATABASE_URL")
		if strings.TrimSpace(databaseURL) == "" {
			log.Fatal("DATABASE_URL is required with -migrate")
		}

		// Round-trip through platform/db first so a bad DSN fails with a
		// clear connect error rather than mid-migration.
		conn, err := db.Open(databaseURL)
		if err != nil {
			log.Fatalw("connect failed", "error", err)
		}
		_ = conn.Close()

		if err := migrate.Up(databaseURL); err != nil {
			log.Fatalw("migrations failed", "error", err)
		}
		log.Infow("migrations applied")
		return
	}

	dbPath := config.Get("DB_PATH", "data/dispatch.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Fatalw("open sqlite failed", "path", dbPath, "error", err)
	}
	defer conn.Close()

	seedPath := config.Get("SEED_PATH", "data/seeds/carriers.json")
	if err := initAndSeed(conn, seedPath, log); err != nil {
		log.Fatalw("prepare database failed", "error", err)
	}
}

func initAndSeed(conn *sql.DB, seedPath string, log *zap.SugaredLogger) error {
	log.Infow("initializing schema")
	if err := repositories.InitSchema(conn); err != nil {
		return fmt.Errorf("schema initialization: %w", err)
	}

	log.Infow("seeding carriers", "path", seedPath)
	if err := repositories.SeedCarriersFromJSON(conn, seedPath); err != nil {
		return fmt.Errorf("seeding: %w", err)
	}
	log.Infow("seeding complete")

	return nil
}
