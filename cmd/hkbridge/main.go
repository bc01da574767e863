// hkbridge - HomeKit to MQTT bridge
//
// hkbridge watches HomeKit accessory state changes and republishes them
// to an MQTT broker according to user-defined subscriptions. Each
// subscription binds an accessory/characteristic pair to a topic suffix
// and a JSON payload template.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/hkbridge/migrations"

	"github.com/nerrad567/hkbridge/internal/bridge"
	"github.com/nerrad567/hkbridge/internal/infrastructure/config"
	"github.com/nerrad567/hkbridge/internal/infrastructure/database"
	"github.com/nerrad567/hkbridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/hkbridge/internal/infrastructure/logging"
	"github.com/nerrad567/hkbridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/hkbridge/internal/settings"
	"github.com/nerrad567/hkbridge/internal/subscription"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting hkbridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}

	// Persistence: opaque blob store plus typed views
	repo := settings.NewSQLiteRepository(db.DB)
	brokerStore := settings.NewBroker(repo)
	subStore := subscription.NewStore(settings.NewSubscriptions(repo))

	// Seed broker settings from config defaults on first run
	if err := seedBrokerSettings(ctx, repo, brokerStore, cfg.Broker); err != nil {
		return fmt.Errorf("seeding broker settings: %w", err)
	}

	// Optional event-history mirror
	var history bridge.History
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Warn("InfluxDB write failed", "error", err)
		})
		history = influxClient
		log.Info("InfluxDB event mirror enabled", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// Engine first, so the connection manager can read the current
	// broker settings on every connect attempt.
	var engine *bridge.Engine

	manager := mqtt.NewManager(func(_ context.Context) (mqtt.Settings, error) {
		s := engine.BrokerSettings()
		return mqtt.Settings{
			Host:     s.Host,
			Port:     s.Port,
			Username: s.Username,
			Password: s.Password,
		}, nil
	})
	manager.SetLogger(log.With("component", "mqtt"))
	defer func() {
		log.Info("disconnecting from MQTT")
		manager.Disconnect()
	}()

	engine, err = bridge.NewEngine(bridge.Options{
		LogCapacity: cfg.EventLog.Capacity,
		Store:       subStore,
		Broker:      manager,
		Settings:    brokerStore,
		History:     history,
		Logger:      log.With("component", "bridge"),
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	if err := engine.Load(ctx); err != nil {
		return fmt.Errorf("loading bridge state: %w", err)
	}

	engine.Start()
	defer engine.Close()

	// The event source integration attaches here via engine.AttachSource.
	// The connection itself is lazy: nothing is opened until the first
	// matched event triggers a publish.
	log.Info("hkbridge running",
		"subscriptions", len(engine.Subscriptions()),
		"event_log_capacity", cfg.EventLog.Capacity,
	)

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// seedBrokerSettings writes config defaults into the settings store on
// first run only; an existing persisted blob always wins.
func seedBrokerSettings(ctx context.Context, repo settings.Repository, store *settings.Broker, cfg config.BrokerConfig) error {
	_, err := repo.Get(ctx, settings.KeyBroker)
	if err == nil {
		return nil // user has saved settings; leave them alone
	}
	if !errors.Is(err, settings.ErrNotFound) {
		return err
	}

	return store.Save(ctx, settings.BrokerSettings{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.Username,
		Password:    cfg.Password,
		TopicPrefix: cfg.TopicPrefix,
	})
}

// getConfigPath returns the configuration file path.
//
// Priority: HKBRIDGE_CONFIG environment variable, then the first
// command-line argument, then the default path.
func getConfigPath() string {
	if path := os.Getenv("HKBRIDGE_CONFIG"); path != "" {
		return path
	}
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return defaultConfigPath
}
