// API server entry point for the appeal engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/parcelworks/appealengine/internal/application/appeal"
	"github.com/parcelworks/appealengine/internal/config"
	"github.com/parcelworks/appealengine/internal/infrastructure/database/postgres"
	"github.com/parcelworks/appealengine/internal/infrastructure/database/postgres/repositories"
	"github.com/parcelworks/appealengine/internal/infrastructure/database/redis"
	"github.com/parcelworks/appealengine/internal/infrastructure/messaging/kafka"
	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/logging"
	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/prometheus"
	"github.com/parcelworks/appealengine/internal/infrastructure/opendata"
	"github.com/parcelworks/appealengine/internal/infrastructure/storage/minio"
	httpserver "github.com/parcelworks/appealengine/internal/interfaces/http"
	"github.com/parcelworks/appealengine/internal/interfaces/http/handlers"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("starting appeal engine api server",
		logging.Int("port", cfg.Server.Port),
		logging.String("mode", cfg.Server.Mode),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api server exited", logging.Err(err))
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	metrics := prometheus.NewCollector()

	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer conn.Close()

	propertyRepo := repositories.NewPostgresPropertyRepo(conn, logger)
	analysisRepo := repositories.NewPostgresAnalysisRepo(conn, logger)

	healthChecks := map[string]handlers.DependencyCheck{
		"postgres": conn.HealthCheck,
	}

	// Cache, event stream, and archive are optional; the service degrades
	// without them.
	var cache redis.Cache
	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, running without cache", logging.Err(err))
	} else {
		defer redisClient.Close()
		cache = redis.NewCache(redisClient, logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix+":"),
			redis.WithDefaultTTL(cfg.Redis.DefaultTTL),
		)
		healthChecks["redis"] = cache.Ping
	}

	deps := appeal.Deps{
		Properties:   propertyRepo,
		Analyses:     analysisRepo,
		Cache:        cache,
		Metrics:      metrics,
		Logger:       logger.Named("appeal"),
		DefaultLimit: cfg.Engine.DefaultLimit,
		MaxLimit:     cfg.Engine.MaxLimit,
		CacheTTL:     cfg.Engine.CacheTTL,
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, "apiserver", logger)
		defer producer.Close()
		deps.Publisher = producer
	} else {
		logger.Warn("kafka brokers not configured, async analysis is disabled")
	}

	if cfg.MinIO.Enabled {
		archive, err := minio.NewArchive(cfg.MinIO, logger)
		if err != nil {
			logger.Warn("report archive unavailable", logging.Err(err))
		} else {
			deps.Archive = archive
		}
	}

	portal := opendata.NewClient(cfg.OpenData, logger)
	deps.Loader = appeal.NewSubjectLoader(portal, cfg.OpenData.AssessmentsDataset)
	deps.Sources = []appeal.CandidateSource{
		appeal.NewSameBuildingSource(portal, cfg.OpenData.AssessmentsDataset),
		appeal.NewTownshipBedroomsSource(portal, cfg.OpenData.AssessmentsDataset),
		appeal.NewTownshipAgeSource(portal, cfg.OpenData.AssessmentsDataset),
		appeal.NewArmsLengthSalesSource(portal, cfg.OpenData.SalesDataset),
	}

	service := appeal.NewService(deps)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		AnalysisHandler: handlers.NewAnalysisHandler(service),
		PropertyHandler: handlers.NewPropertyHandler(service),
		HealthHandler:   handlers.NewHealthHandler(healthChecks),
		Logger:          logger.Named("http"),
		Metrics:         metrics,
		Mode:            cfg.Server.Mode,
	})
	server := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", logging.String("signal", sig.String()))
		return server.Stop(context.Background())
	}
}
