package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/reuniteio/reunite/config"
	feedbackrepo "github.com/reuniteio/reunite/internal/repositories/feedback"
	itemrepo "github.com/reuniteio/reunite/internal/repositories/item"
	matchrepo "github.com/reuniteio/reunite/internal/repositories/match"
	"github.com/reuniteio/reunite/pkg/database"
	"github.com/reuniteio/reunite/pkg/events"
	"github.com/reuniteio/reunite/pkg/graph"
	"github.com/reuniteio/reunite/pkg/kafka"
	"github.com/reuniteio/reunite/pkg/matching"
	"github.com/reuniteio/reunite/pkg/middleware"
	"github.com/reuniteio/reunite/pkg/processor"
	feedbackroute "github.com/reuniteio/reunite/pkg/routes/feedback"
	healthroute "github.com/reuniteio/reunite/pkg/routes/health"
	matchroute "github.com/reuniteio/reunite/pkg/routes/match"
	rankroute "github.com/reuniteio/reunite/pkg/routes/rank"
	"github.com/reuniteio/reunite/pkg/startup"
	"github.com/reuniteio/reunite/pkg/tracing"
	"github.com/reuniteio/reunite/pkg/tracing/exporters"
	"github.com/reuniteio/reunite/pkg/weights"
)

const version = "0.1.0"

// dependency adapts a pair of closures to the startup manager.
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string     { return d.name }
func (d *dependency) DependsOn() []string { return d.dependsOn }
func (d *dependency) Start(ctx context.Context) error {
	if d.start == nil {
		return nil
	}
	return d.start(ctx)
}
func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

// application holds everything built during startup so the stop closures can
// tear it down in reverse.
type application struct {
	cfg    *config.Config
	logger ectologger.Logger

	container ectocontainer.DIContainer

	sqlDB      *sqlx.DB
	db         database.DB
	graph      *graph.Client
	producer   *kafka.Producer
	consumer   *kafka.Consumer
	items      *itemrepo.Repository
	service    *matching.Service
	emitter    *events.Emitter
	projection *graph.ProjectionService
	tuner      *weights.Tuner
	echo       *echo.Echo
	checker    *healthroute.Checker
	traces     *sdktrace.TracerProvider
}

func main() {
	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	app := &application{cfg: cfg, logger: logger}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.initTracing(ctx); err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		os.Exit(1)
	}

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		logger.WithError(err).Error("Failed to create DI container")
		os.Exit(1)
	}
	app.container = container

	boot := startup.NewManager(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&dependency{
		name:  "postgres",
		start: app.startPostgres,
		stop:  app.stopPostgres,
	})
	boot.AddDependency(&dependency{
		name:  "graph",
		start: app.startGraph,
		stop:  app.stopGraph,
	})
	boot.AddDependency(&dependency{
		name:      "services",
		dependsOn: []string{"postgres", "graph"},
		start:     app.startServices,
	})
	boot.AddDependency(&dependency{
		name:      "kafka-consumer",
		dependsOn: []string{"services"},
		start:     app.startConsumer,
		stop:      app.stopConsumer,
	})
	boot.AddDependency(&dependency{
		name:      "http-server",
		dependsOn: []string{"services", "kafka-consumer"},
		start:     app.startHTTPServer,
		stop:      app.stopHTTPServer,
	})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	logger.WithField("port", cfg.Port).Infof("%s started", cfg.AppName)

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
	if app.traces != nil {
		_ = app.traces.Shutdown(shutdownCtx)
	}
	logger.Info("Shutdown complete")
}

func newLogger(cfg *config.Config) (ectologger.Logger, error) {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}

func (app *application) initTracing(ctx context.Context) error {
	if !app.cfg.TracingEnabled {
		tracing.SetTracer(otel.Tracer(app.cfg.AppName))
		return nil
	}

	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: app.cfg.OTLPEndpoint,
		Protocol: app.cfg.OTLPProtocol,
		Insecure: app.cfg.OTLPInsecure,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(app.cfg.AppName))
	app.traces = tp
	return nil
}

func (app *application) startPostgres(ctx context.Context) error {
	cfg := app.cfg
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword,
		cfg.DatabaseName, cfg.DatabaseSSLMode)

	db, err := sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrations := database.NewMigrationService(app.logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	app.sqlDB = db
	app.db = database.NewDatabaseInstance(db, app.logger)
	return nil
}

func (app *application) stopPostgres(ctx context.Context) error {
	if app.sqlDB == nil {
		return nil
	}
	return app.sqlDB.Close()
}

func (app *application) startGraph(ctx context.Context) error {
	if !app.cfg.GraphEnabled {
		return nil
	}

	client, err := graph.NewClient(graph.Config{
		Host:     app.cfg.GraphDBHost,
		Port:     app.cfg.GraphDBPort,
		Username: app.cfg.GraphDBUser,
		Password: app.cfg.GraphDBPassword,
	})
	if err != nil {
		return err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("graph database unreachable: %w", err)
	}

	app.graph = client
	return nil
}

func (app *application) stopGraph(ctx context.Context) error {
	if app.graph == nil {
		return nil
	}
	return app.graph.Close(ctx)
}

// startServices builds the repositories, ranking service, tuner, and event
// emitter, and registers them in the DI container for route handlers.
func (app *application) startServices(ctx context.Context) error {
	cfg := app.cfg

	items := itemrepo.NewRepository(app.db, app.logger)
	matches := matchrepo.NewRepository(app.db, app.logger)
	feedback := feedbackrepo.NewRepository(app.db, app.logger)

	store := weights.NewStore(cfg.InitialWeights())
	service, err := matching.NewService(app.logger, cfg.MatchingConfig(), store, items, matches)
	if err != nil {
		return err
	}

	if cfg.TunerEnabled {
		app.tuner = weights.NewTuner(store, app.logger, cfg.TunerConfig())
		app.seedTuner(ctx, feedback)
	}

	if cfg.KafkaOutputTopic != "" {
		app.producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, app.logger)
	}

	app.items = items
	app.service = service

	container := app.container
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, app.logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[database.DB](container, app.db); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*itemrepo.Repository](container, items); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*matchrepo.Repository](container, matches); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*feedbackrepo.Repository](container, feedback); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*matching.Service](container, service); err != nil {
		return err
	}
	if app.tuner != nil {
		if err := ectoinject.RegisterInstance[*weights.Tuner](container, app.tuner); err != nil {
			return err
		}
	}
	if app.producer != nil {
		app.emitter = events.NewEmitter(app.producer, app.logger)
		if err := ectoinject.RegisterInstance[*events.Emitter](container, app.emitter); err != nil {
			return err
		}
	}
	if app.graph != nil {
		app.projection = graph.NewProjectionService(app.graph, app.logger)
		if err := ectoinject.RegisterInstance[*graph.ProjectionService](container, app.projection); err != nil {
			return err
		}
	}

	return nil
}

// seedTuner replays recent stored judgements so a restart does not reset the
// feedback window.
func (app *application) seedTuner(ctx context.Context, repo *feedbackrepo.Repository) {
	recent, err := repo.ListRecent(ctx, app.cfg.TunerWindowSize)
	if err != nil {
		app.logger.WithError(err).Warn("Failed to seed tuner from stored feedback")
		return
	}

	// ListRecent is newest-first; the window wants chronological order.
	accepted := make([]bool, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		accepted = append(accepted, recent[i].Accepted)
	}
	app.tuner.Seed(accepted)
}

func (app *application) startConsumer(ctx context.Context) error {
	cfg := app.cfg
	if !cfg.KafkaConsumerEnabled {
		return nil
	}

	var emitter processor.MatchEmitter
	if app.emitter != nil {
		emitter = app.emitter
	}

	var projector processor.GraphProjector
	if app.projection != nil {
		projector = app.projection
	}

	proc := processor.NewProcessor(app.logger, app.items, app.service, emitter, projector, cfg.GeoCellPrecision)
	app.consumer = kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:       cfg.KafkaBrokers,
		Topic:         cfg.KafkaInputTopic,
		ConsumerGroup: cfg.KafkaConsumerGroup,
	}, app.logger, proc.HandleMessage)

	return app.consumer.Start(ctx)
}

func (app *application) stopConsumer(ctx context.Context) error {
	if app.consumer == nil {
		return nil
	}
	return app.consumer.Stop()
}

func (app *application) startHTTPServer(ctx context.Context) error {
	cfg := app.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(app.logger))
	e.HTTPErrorHandler = middleware.Error(app.logger)

	var consumerCheck healthroute.ConsumerHealth
	if app.consumer != nil {
		consumerCheck = app.consumer
	}
	var graphCheck healthroute.GraphPinger
	if app.graph != nil {
		graphCheck = app.graph
	}

	app.checker = healthroute.NewChecker(app.sqlDB, consumerCheck, graphCheck, version)
	app.checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	rankroute.Register(api.Group("/rank"))
	matchroute.Register(api.Group("/matches"))
	feedbackroute.Register(api.Group("/feedback"))

	app.echo = e

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()

	app.checker.SetReady(true)
	return nil
}

func (app *application) stopHTTPServer(ctx context.Context) error {
	if app.echo == nil {
		return nil
	}
	if app.checker != nil {
		app.checker.SetReady(false)
	}
	return app.echo.Shutdown(ctx)
}
