package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"banker/internal/account"
	"banker/internal/audit"
	"banker/internal/broadcast"
	"banker/internal/config"
	"banker/internal/ledger"
	"banker/internal/observability"
	"banker/internal/persistence"
	"banker/internal/rpc"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	logger := observability.NewLogger("banker")
	logger.Info().Msg("banker starting")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	metrics := observability.NewMetrics()
	health := observability.NewHealthChecker()

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open persistence store")
	}
	defer store.Close()

	accounts := ledger.New(logger)
	accounts.SetMetrics(metrics)
	seq, records, err := store.LoadAccounts(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("load persisted accounts")
	}
	for _, rec := range records {
		accounts.RestoreAccount(account.ParseKey(rec.Key), rec.Account)
	}
	logger.Info().Int("accounts", len(records)).Int64("seq", seq).Msg("restored accounts from store")

	if cfg.NATSURL != "" {
		publisher, err := broadcast.NewPublisher(ctx, cfg.NATSURL, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("broadcast disabled: could not connect to nats")
		} else {
			accounts.AddObserver(publisher)
			logger.Info().Str("url", cfg.NATSURL).Msg("broadcast connected")
		}
	}

	if cfg.AuditEnabled {
		auditClient, err := audit.NewClient(cfg.AMQPURL, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("audit disabled: could not connect to rabbitmq")
		} else {
			accounts.AddObserver(auditClient)
			defer auditClient.Close()
			logger.Info().Str("url", cfg.AMQPURL).Msg("audit connected")
		}
	}

	errChan := make(chan error, 4)

	rpcServer := rpc.NewServer(cfg.GRPCAddr, accounts, logger, metrics)
	go func() {
		errChan <- rpcServer.Serve(ctx)
	}()

	go runPeriodicSnapshots(ctx, accounts, store, cfg.SaveInterval, logger, metrics)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", health.LivenessHandler)
		mux.HandleFunc("/readyz", health.ReadinessHandler)
		metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			<-ctx.Done()
			shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			metricsServer.Shutdown(shutCtx)
		}()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	health.SetReady(true)
	logger.Info().Str("grpc_addr", cfg.GRPCAddr).Str("metrics_addr", cfg.MetricsAddr).Msg("banker ready")

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
	case err := <-errChan:
		logger.Error().Err(err).Msg("goroutine failed, shutting down")
	}

	cancel()
	health.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	finalSnapshotID := uuid.New().String()
	if err := saveSnapshot(shutdownCtx, accounts, store); err != nil {
		logger.Error().Err(err).Str("snapshot_id", finalSnapshotID).Msg("final snapshot failed")
	} else {
		logger.Info().Str("snapshot_id", finalSnapshotID).Msg("final snapshot saved")
	}

	logger.Info().Msg("banker shutdown complete")
}

func openStore(cfg *config.Config) (persistence.Store, error) {
	switch cfg.StoreBackend {
	case "postgres":
		return persistence.NewPostgresStore(cfg.PostgresURL)
	default:
		return persistence.NewSQLiteStore(cfg.SQLiteDBPath)
	}
}

func runPeriodicSnapshots(ctx context.Context, accounts *ledger.Accounts, store persistence.Store, interval time.Duration, logger zerolog.Logger, metrics *observability.Metrics) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			snapshotID := uuid.New().String()
			if err := saveSnapshot(ctx, accounts, store); err != nil {
				logger.Warn().Err(err).Str("snapshot_id", snapshotID).Msg("periodic snapshot failed")
				continue
			}
			metrics.SnapshotsSaved.Inc()
			metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
			logger.Debug().Str("snapshot_id", snapshotID).Dur("took", time.Since(start)).Msg("periodic snapshot saved")
		}
	}
}

var snapshotSeq int64

func saveSnapshot(ctx context.Context, accounts *ledger.Accounts, store persistence.Store) error {
	keys := accounts.Keys()
	records := make([]persistence.AccountRecord, 0, len(keys))
	for _, k := range keys {
		acc, err := accounts.GetAccount(ctx, k)
		if err != nil {
			continue
		}
		records = append(records, persistence.AccountRecord{Key: k.String(), Account: acc})
	}
	snapshotSeq++
	return store.SaveAccounts(ctx, snapshotSeq, records)
}
