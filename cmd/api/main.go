package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/swimmatch/internal/api"
	"example.com/swimmatch/internal/auth"
	"example.com/swimmatch/internal/config"
	"example.com/swimmatch/internal/consumer"
	"example.com/swimmatch/internal/domain"
	"example.com/swimmatch/internal/ingest"
	"example.com/swimmatch/internal/matching"
	persistence "example.com/swimmatch/internal/persistence/postgres"
	"example.com/swimmatch/internal/relay"
	httptransport "example.com/swimmatch/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)

	gateway := ingest.NewGatewayClient(cfg.GatewayURL, cfg.GatewayTimeout)
	var ingestor ingest.Adapter
	switch cfg.IngestPlatform {
	case ingest.PlatformGoogleFit:
		ingestor = ingest.NewGoogleFitAdapter(gateway, repo)
	case ingest.PlatformHealthKit:
		ingestor = ingest.NewHealthKitAdapter(gateway, repo)
	default:
		log.Fatalf("unknown ingest platform: %q", cfg.IngestPlatform)
	}

	matchCfg := matching.Config{Window: cfg.MatchWindow}
	if cfg.MatchTimezone != "" {
		loc, err := time.LoadLocation(cfg.MatchTimezone)
		if err != nil {
			log.Fatalf("invalid MATCH_TIMEZONE %q: %v", cfg.MatchTimezone, err)
		}
		matchCfg.Location = loc
	}
	match := func(workouts []domain.CanonicalWorkout, plans []domain.TrainingPlanEntry, offered map[string]struct{}) domain.MatchResult {
		return matching.Match(workouts, plans, offered, matchCfg)
	}

	producer := relay.NewKafkaProducer(cfg.KafkaBrokers, cfg.RelayTopic)
	defer producer.Close()
	publisher := relay.NewPublisher(producer)

	service := domain.NewService(ingestor, repo, publisher, match)

	// The plan consumer shares the service: the review set is in-process
	// session state, so snapshots must land in the same instance the HTTP
	// surface reads from.
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroup,
		Topic:           cfg.PlanTopic,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})
	proc := consumer.NewProcessor(reader, consumer.NewPlanHandler(service))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer reader.Close()

		log.Printf("plan consumer started (topic=%s, group=%s)", cfg.PlanTopic, cfg.ConsumerGroup)
		if err := proc.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("plan consumer stopped with error: %v", err)
		}
	}()

	if cfg.SyncInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(cfg.SyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					service.RefreshAll(ctx)
				}
			}
		}()
	}

	handler := api.NewHandler(service)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address: cfg.HTTPAddress,
	}, authMiddleware.Wrap(logger(mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("swimmatch listening on %s (platform=%s)", cfg.HTTPAddress, cfg.IngestPlatform)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	wg.Wait()
}
