// Package bootstrap wires the process: configuration, logging, tracing,
// the database with migrations, optional Kafka emission, and the
// lifecycle service. Both entrypoints (console and API) share it.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/poised-pms/poised/config"
	"github.com/poised-pms/poised/internal/repositories/person"
	"github.com/poised-pms/poised/internal/repositories/project"
	"github.com/poised-pms/poised/pkg/database"
	"github.com/poised-pms/poised/pkg/events"
	"github.com/poised-pms/poised/pkg/kafka"
	"github.com/poised-pms/poised/pkg/lifecycle"
	"github.com/poised-pms/poised/pkg/tracing"
	"github.com/poised-pms/poised/pkg/tracing/exporters"
)

// App holds the wired process dependencies.
type App struct {
	Config  *config.Config
	Logger  ectologger.Logger
	DB      database.DB
	Service *lifecycle.Service

	producer       *kafka.Producer
	tracerProvider *sdktrace.TracerProvider
}

// New loads configuration, connects and migrates the database, and builds
// the lifecycle service. A missing .env file is not an error.
func New(ctx context.Context) (*App, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	tracerProvider, err := setupTracing(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DSN(), database.PoolConfig{
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(cfg, logger, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	var producer *kafka.Producer
	var emitter *events.Emitter
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		emitter = events.NewEmitter(producer, logger)
	}

	personRepo := person.NewRepository(db, logger)
	projectRepo := project.NewRepository(db, logger)
	service := lifecycle.NewService(personRepo, projectRepo, emitter, logger)

	return &App{
		Config:         cfg,
		Logger:         logger,
		DB:             db,
		Service:        service,
		producer:       producer,
		tracerProvider: tracerProvider,
	}, nil
}

// Close releases process dependencies in reverse wiring order.
func (a *App) Close(ctx context.Context) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.Logger.WithError(err).Error("failed to close kafka producer")
		}
	}
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			a.Logger.WithError(err).Error("failed to shut down tracer provider")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.WithError(err).Error("failed to close database")
		}
	}
}

func newLogger(cfg *config.Config) (ectologger.Logger, error) {
	if cfg.PrettyLogs {
		zapLogger, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
		return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}

func setupTracing(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	if !cfg.TracingEnabled {
		return nil, nil
	}

	var exporter sdktrace.SpanExporter
	switch cfg.TracingExporter {
	case "otlp":
		otlpExporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.OTLPEndpoint,
			Protocol: cfg.OTLPProtocol,
			Insecure: cfg.OTLPInsecure,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		exporter = otlpExporter
	default:
		exporter = &exporters.ConsoleExporter{}
	}

	res := sdkresource.NewWithAttributes(
		sdkresource.Default().SchemaURL(),
		attribute.String("service.name", cfg.AppName),
	)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.TracingSamplePct))),
	)
	otel.SetTracerProvider(tracerProvider)
	tracing.SetTracer(tracerProvider.Tracer(cfg.AppName))
	return tracerProvider, nil
}

func runMigrations(cfg *config.Config, logger ectologger.Logger, db database.DB) error {
	driver, err := migratepg.WithInstance(db.Unsafe().DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	migrationService := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return migrationService.Migrate(cfg.DatabaseName, driver)
}
