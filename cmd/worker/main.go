// Background worker entry point.  Consumes analysis requests from the event
// stream and runs them through the analysis service.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

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
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	concurrency := flag.Int("workers", 0, "number of concurrent consumers (overrides config)")
	probePort := flag.Int("probe-port", 8081, "health probe and metrics port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *concurrency > 0 {
		cfg.Worker.Concurrency = *concurrency
	}
	if cfg.Worker.Concurrency < 1 {
		cfg.Worker.Concurrency = 1
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("starting appeal engine worker",
		logging.Int("concurrency", cfg.Worker.Concurrency))

	if err := run(cfg, logger, *probePort); err != nil {
		logger.Fatal("worker exited", logging.Err(err))
	}
}

func run(cfg *config.Config, logger logging.Logger, probePort int) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required for the worker")
	}

	metrics := prometheus.NewCollector()

	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer conn.Close()

	deps := appeal.Deps{
		Properties:   repositories.NewPostgresPropertyRepo(conn, logger),
		Analyses:     repositories.NewPostgresAnalysisRepo(conn, logger),
		Metrics:      metrics,
		Logger:       logger.Named("appeal"),
		DefaultLimit: cfg.Engine.DefaultLimit,
		MaxLimit:     cfg.Engine.MaxLimit,
		CacheTTL:     cfg.Engine.CacheTTL,
	}

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, running without cache", logging.Err(err))
	} else {
		defer redisClient.Close()
		deps.Cache = redis.NewCache(redisClient, logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix+":"),
			redis.WithDefaultTTL(cfg.Redis.DefaultTTL),
		)
	}

	producer := kafka.NewProducer(cfg.Kafka, "worker", logger)
	defer producer.Close()
	deps.Publisher = producer

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

	handler := func(ctx context.Context, env *kafka.EventEnvelope) error {
		var payload kafka.AnalysisRequestedPayload
		if err := env.DecodePayload(&payload); err != nil {
			return err
		}

		logger.Info("processing analysis request",
			logging.String("pin", payload.PIN),
			logging.String("event_id", env.EventID))

		_, err := service.Analyze(ctx, appeal.AnalyzeRequest{
			PIN:     payload.PIN,
			Limit:   payload.Limit,
			Trigger: "worker",
		})
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Probe endpoint for orchestration.
	probeMux := http.NewServeMux()
	probeMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	probeMux.Handle("/metrics", metrics.Handler())
	probeSrv := &http.Server{Addr: fmt.Sprintf(":%d", probePort), Handler: probeMux}
	go func() {
		if err := probeSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("probe server failed", logging.Err(err))
		}
	}()
	defer probeSrv.Close()

	// One consumer per worker slot; the group balances partitions.
	var wg sync.WaitGroup
	consumers := make([]*kafka.Consumer, 0, cfg.Worker.Concurrency)
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		consumer := kafka.NewConsumer(cfg.Kafka, kafka.TopicAnalysisRequested, logger,
			kafka.WithDeadLetter(producer, cfg.Kafka.DeadLetterTopic),
			kafka.WithRetryPolicy(cfg.Worker.MaxRetries, time.Second),
		)
		consumers = append(consumers, consumer)

		wg.Add(1)
		go func(c *kafka.Consumer) {
			defer wg.Done()
			if err := c.Run(ctx, handler); err != nil {
				logger.Error("consumer stopped", logging.Err(err))
			}
		}(consumer)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logger.Info("shutting down", logging.String("signal", sig.String()))

	cancel()
	for _, c := range consumers {
		_ = c.Close()
	}
	wg.Wait()
	return nil
}
