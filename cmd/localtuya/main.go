// localtuya gateway - Tuya vacuum MQTT bridge and control plane.
//
// This is the main entry point for the gateway. It bridges TuyaMQTT
// datapoint traffic to semantic vacuum state and commands, persists the
// device registry in SQLite, and exposes a REST/WebSocket API for UIs
// and Home Assistant integrations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/konewka17/localtuya/migrations"

	"github.com/konewka17/localtuya/internal/api"
	"github.com/konewka17/localtuya/internal/audit"
	"github.com/konewka17/localtuya/internal/auth"
	"github.com/konewka17/localtuya/internal/bridges/tuya"
	"github.com/konewka17/localtuya/internal/device"
	"github.com/konewka17/localtuya/internal/infrastructure/config"
	"github.com/konewka17/localtuya/internal/infrastructure/database"
	"github.com/konewka17/localtuya/internal/infrastructure/influxdb"
	"github.com/konewka17/localtuya/internal/infrastructure/logging"
	"github.com/konewka17/localtuya/internal/infrastructure/mqtt"
	"github.com/konewka17/localtuya/internal/vacuum"
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
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo,funlen // startup wiring is inherently sequential
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting localtuya gateway",
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
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
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
	log.Info("database migrations complete")

	// Initialise device registry
	deviceRepo := device.NewSQLiteRepository(db.DB)
	deviceRegistry := device.NewRegistry(deviceRepo)
	deviceRegistry.SetLogger(log)

	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", deviceRegistry.GetDeviceCount())

	// Seed devices from file on first boot (existing devices win)
	if cfg.Bridge.DevicesFile != "" {
		created, seedErr := deviceRegistry.SeedFromFile(ctx, cfg.Bridge.DevicesFile)
		if seedErr != nil {
			return fmt.Errorf("seeding devices: %w", seedErr)
		}
		if created > 0 {
			log.Info("devices seeded from file", "path", cfg.Bridge.DevicesFile, "created", created)
		}
	}

	// Seed the initial owner account on first boot
	userRepo := auth.NewUserRepository(db.DB)
	tokenRepo := auth.NewTokenRepository(db.DB)
	if _, seedErr := auth.SeedOwner(ctx, userRepo, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding owner account: %w", seedErr)
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the API server
	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log,
		Registry:  deviceRegistry,
		MQTT:      mqttClient,
		DB:        db,
		UserRepo:  userRepo,
		TokenRepo: tokenRepo,
		AuditRepo: audit.NewSQLiteRepository(db.DB),
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Start the Tuya bridge (if enabled)
	if cfg.Bridge.Enabled {
		bridge, bridgeErr := startTuyaBridge(ctx, cfg, deviceRegistry, mqttClient, influxClient, log)
		if bridgeErr != nil {
			return fmt.Errorf("starting Tuya bridge: %w", bridgeErr)
		}
		defer func() {
			log.Info("stopping Tuya bridge")
			bridge.Stop()
		}()

		// The API executes commands through the bridge when both run
		// in the same process.
		apiServer.SetBridge(bridge)
	} else {
		log.Info("Tuya bridge disabled, commands flow over MQTT only")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Tuya bridge (if enabled)
	// 2. API server
	// 3. InfluxDB (if enabled)
	// 4. MQTT
	// 5. Database

	log.Info("localtuya gateway stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses LOCALTUYA_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LOCALTUYA_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// startTuyaBridge wires the bridge to the registry, MQTT, and telemetry.
func startTuyaBridge(ctx context.Context, cfg *config.Config, registry *device.Registry, mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) (*tuya.Bridge, error) {
	opts := tuya.BridgeOptions{
		ID:             cfg.Service.ID,
		Version:        version,
		MQTTClient:     &mqttBridgeAdapter{client: mqttClient},
		QoS:            byte(cfg.MQTT.QoS),
		HealthInterval: time.Duration(cfg.Bridge.HealthInterval) * time.Second,
		CommandTimeout: time.Duration(cfg.Bridge.CommandTimeout) * time.Second,
		Logger:         log,
		Registry:       &registryBridgeAdapter{registry: registry},
	}

	// Telemetry is optional - a nil interface must stay nil, so only
	// assign when the client exists.
	if influxClient != nil {
		opts.Telemetry = influxClient
	}

	bridge, err := tuya.NewBridge(opts)
	if err != nil {
		return nil, fmt.Errorf("creating bridge: %w", err)
	}

	if err := bridge.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting bridge: %w", err)
	}
	log.Info("Tuya bridge started", "devices", bridge.DeviceCount())

	return bridge, nil
}

// registryBridgeAdapter adapts *device.Registry to the bridge's registry
// interface, narrowing device.Device down to the fields the bridge needs.
type registryBridgeAdapter struct {
	registry *device.Registry
}

func (a *registryBridgeAdapter) ListEnabledDevices(ctx context.Context) ([]tuya.RegistryDevice, error) {
	devices, err := a.registry.ListEnabledDevices(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]tuya.RegistryDevice, 0, len(devices))
	for _, d := range devices {
		out = append(out, tuya.RegistryDevice{
			ID:      d.ID,
			Name:    d.Name,
			Options: d.Options,
		})
	}
	return out, nil
}

func (a *registryBridgeAdapter) SetDeviceState(ctx context.Context, id string, status vacuum.Status) error {
	return a.registry.SetDeviceState(ctx, id, status)
}

func (a *registryBridgeAdapter) TouchDevice(ctx context.Context, id string) error {
	return a.registry.TouchDevice(ctx, id)
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The difference is the Subscribe handler signature:
// - Infrastructure mqtt: func(topic string, payload []byte) error
// - Bridge expects:      func(topic string, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements tuya.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements tuya.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	// Wrap the void handler to return nil (bridge handlers don't return errors)
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements tuya.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// Disconnect implements tuya.MQTTClient.
// The MQTT client lifecycle is owned by run()'s defer chain, so this is a
// no-op here.
func (a *mqttBridgeAdapter) Disconnect(_ uint) {}
