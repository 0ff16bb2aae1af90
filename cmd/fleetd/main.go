// Gray Logic Fleet - device shadow registry
//
// fleetd keeps the desired and reported state of every gateway, module,
// endpoint and application in a site's fleet. Operators change desired
// state through the REST API; agents report over MQTT; registry changes
// are published back to MQTT and sync status is sampled into InfluxDB.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	_ "github.com/nerrad567/gray-logic-fleet/migrations"

	"github.com/nerrad567/gray-logic-fleet/internal/api"
	"github.com/nerrad567/gray-logic-fleet/internal/audit"
	"github.com/nerrad567/gray-logic-fleet/internal/auth"
	"github.com/nerrad567/gray-logic-fleet/internal/fleet"
	"github.com/nerrad567/gray-logic-fleet/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-fleet/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-fleet/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-fleet/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-fleet/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-fleet/internal/shadow"
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

// options holds the command-line flags.
type options struct {
	ConfigPath  string
	IssueToken  string
	MigrateDown bool
	ShowVersion bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if opts.ShowVersion {
		fmt.Printf("fleetd %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	if opts.IssueToken != "" {
		if err := issueToken(os.Stdout, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if opts.MigrateDown {
		if err := migrateDown(context.Background(), os.Stdout, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Cancel on Ctrl+C and SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses command-line arguments into options.
func parseFlags(args []string) (options, error) {
	var opts options

	flagSet := pflag.NewFlagSet("fleetd", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file (default: $GRAYLOGIC_CONFIG or "+defaultConfigPath+")")
	flagSet.StringVar(&opts.IssueToken, "issue-token", "", "print an access token for subject:role and exit")
	flagSet.BoolVar(&opts.MigrateDown, "migrate-down", false, "roll back the latest schema migration and exit")
	flagSet.BoolVar(&opts.ShowVersion, "version", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if opts.MigrateDown && opts.IssueToken != "" {
		return options{}, errors.New("--migrate-down and --issue-token are exclusive")
	}
	return opts, nil
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context, opts options) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Fleet",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath(opts.ConfigPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database and apply shadow schema
	db, err := database.OpenMigrated(ctx, database.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database ready", "path", cfg.Database.Path)

	registry := fleet.NewRegistry(shadow.NewSQLiteStore(db.DB))
	registry.SetLogger(log)
	registry.SetMaxRetries(cfg.Fleet.UpdateRetries)

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
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	registry.SetPublisher(fleet.NewMQTTEventPublisher(mqttClient, byte(cfg.Fleet.EventQoS))) //nolint:gosec // validated 0-2

	if cfg.Fleet.IngestReports {
		topic := mqtt.Topics{}.AllFleetReports()
		if subErr := mqttClient.Subscribe(topic, byte(cfg.MQTT.QoS), fleet.ReportHandler(registry)); subErr != nil { //nolint:gosec // validated 0-2
			return fmt.Errorf("subscribing to agent reports: %w", subErr)
		}
		defer func() {
			if unsubErr := mqttClient.Unsubscribe(topic); unsubErr != nil && !errors.Is(unsubErr, mqtt.ErrNotConnected) {
				log.Warn("error unsubscribing agent reports", "error", unsubErr)
			}
		}()
		log.Info("ingesting agent reports", "topic", topic, "subscriptions", mqttClient.SubscriptionCount())
	}

	// Connect to InfluxDB (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		registry.SetReportRecorder(influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	if interval := cfg.GetAuditInterval(); interval > 0 {
		var recorder fleet.SyncRecorder
		if influxClient != nil {
			recorder = influxClient
		}
		auditor := fleet.NewAuditor(registry, recorder, interval)
		auditor.SetLogger(log)
		go auditor.Run(ctx)
		log.Info("fleet auditor started", "interval", interval)
	}

	deps := api.Deps{
		Config:   cfg.API,
		Security: cfg.Security,
		Logger:   log,
		Registry: registry,
		Database: db,
		MQTT:     mqttClient,
		Audit:    audit.NewSQLiteRepository(db.DB),
		Version:  version,
	}
	if influxClient != nil {
		deps.InfluxDB = influxClient
	}
	apiServer, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred closes run in reverse: API, InfluxDB, MQTT, database.
	log.Info("Gray Logic Fleet stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// The --config flag wins, then GRAYLOGIC_CONFIG, then the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// migrateDown rolls back the most recent migration of the configured
// database and reports the resulting schema version on w.
func migrateDown(ctx context.Context, w io.Writer, opts options) error {
	cfg, err := config.Load(getConfigPath(opts.ConfigPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := database.Open(database.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // process exits next

	if err := db.MigrateDown(ctx); err != nil {
		return fmt.Errorf("rolling back migration: %w", err)
	}
	v, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if v == "" {
		v = "none"
	}
	_, err = fmt.Fprintf(w, "schema version: %s\n", v)
	return err
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when InfluxDB is disabled.
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

// issueToken loads the config and writes one access token to w. It is
// the bootstrap path for the first admin token.
func issueToken(w io.Writer, opts options) error {
	subject, role, ok := strings.Cut(opts.IssueToken, ":")
	if !ok || subject == "" {
		return fmt.Errorf("--issue-token must be subject:role, got %q", opts.IssueToken)
	}

	cfg, err := config.Load(getConfigPath(opts.ConfigPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := auth.GenerateAccessToken(subject, auth.Role(role), cfg.Security.JWT)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
