// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"dealership-workers/internal/common/aws"
	"dealership-workers/internal/common/camunda"
	"dealership-workers/internal/common/config"
	"dealership-workers/internal/common/database"
	"dealership-workers/internal/common/logger"
	"dealership-workers/internal/common/observability"
	"dealership-workers/internal/matching"
	"dealership-workers/internal/store"

	aal "dealership-workers/internal/workers/leads/auto-assign-lead"
	ss "dealership-workers/internal/workers/leads/suggest-salesperson"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		RetryConfig:            camunda.DefaultRetryConfig,
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Elasticsearch (optional, only used for recommendation history) ---
	var indexer ss.Indexer
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, recommendation history disabled", zap.Error(err))
		} else {
			indexer = es
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- AWS notifications ---
	var publisher aal.Publisher
	if cfg.Notifications.Events.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("failed to create SNS client", zap.Error(err))
		}
		publisher = snsClient
	}
	var mailer aal.Mailer
	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("failed to create SES client", zap.Error(err))
		}
		mailer = sesClient
	}

	// --- Matching ---
	engine, err := matching.NewEngine(matching.SettingsFromConfig(cfg.Matching), log)
	if err != nil {
		zapLog.Fatal("invalid matching settings", zap.Error(err))
	}
	service := matching.NewService(engine, store.NewPostgresStore(pg.DB, log), log)

	// --- Workers ---
	var workers []worker.JobWorker

	{
		wcfg := config.GetWorkerConfig(cfg, ss.TaskType)
		hcfg := ss.LoadConfig()
		hcfg.Timeout = config.GetDuration(wcfg.Timeout)
		hcfg.RecommendationsIndex = cfg.Database.Elasticsearch.RecommendationsIdx
		hcfg.IndexHistory = indexer != nil

		handler := ss.NewHandler(hcfg, service, indexer, log)
		if jw := camunda.StartWorker(zeebe.GetClient(), ss.TaskType, wcfg, handler.Handle, obs, log); jw != nil {
			workers = append(workers, jw)
		}
	}

	{
		wcfg := config.GetWorkerConfig(cfg, aal.TaskType)
		n := cfg.Notifications
		hcfg := aal.LoadConfig()
		hcfg.Timeout = config.GetDuration(wcfg.Timeout)
		hcfg.DecisionCacheTTL = config.GetDuration(cfg.Matching.DecisionCacheTTL)
		hcfg.EventsEnabled, hcfg.TopicARN = n.Events.Enabled, n.Events.TopicARN
		hcfg.EmailEnabled, hcfg.FromEmail, hcfg.TriageEmail = n.Email.Enabled, n.Email.FromEmail, n.Email.TriageEmail

		handler := aal.NewHandler(hcfg, service, rdb.Client, publisher, mailer, log)
		if jw := camunda.StartWorker(zeebe.GetClient(), aal.TaskType, wcfg, handler.Handle, obs, log); jw != nil {
			workers = append(workers, jw)
		}
	}
	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		for name, ping := range map[string]func(context.Context) error{
			"postgres": pg.Ping,
			"redis":    rdb.Ping,
			"zeebe":    zeebe.HealthCheck,
		} {
			if err := ping(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		state := "ready"
		if status != http.StatusOK {
			state = "not_ready"
		}
		writeStatus(w, status, state, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Server.Address, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, jw := range workers {
		jw.Close()
		jw.AwaitClose()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string, checks map[string]string) {
	body := map[string]interface{}{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if checks != nil {
		body["checks"] = checks
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
