// Command bidder is a synthetic load generator standing in for a real
// bid-time process: it authorizes, commits, cancels, and detaches bids
// against a pool of shadow accounts backed by a remote master, driving
// the same sync protocol a production bidder would.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"banker/internal/account"
	"banker/internal/money"
	"banker/internal/observability"
	"banker/internal/rpc"
	"banker/internal/shadow"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type bidderConfig struct {
	masterAddr   string
	shadowID     string
	accountKeys  []account.Key
	workers      int
	bidAmount    money.Amount
	syncInterval time.Duration
	metricsAddr  string
}

func loadConfig() bidderConfig {
	shadowID := getEnv("BIDDER_SHADOW_ID", fmt.Sprintf("bidder-%d", os.Getpid()))
	keysEnv := getEnv("BIDDER_ACCOUNT_KEYS", "campaign1:strategy1,campaign1:strategy2")

	var keys []account.Key
	for _, k := range strings.Split(keysEnv, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, account.ParseKey(k))
		}
	}

	return bidderConfig{
		masterAddr:   getEnv("BIDDER_MASTER_ADDR", "localhost:9090"),
		shadowID:     shadowID,
		accountKeys:  keys,
		workers:      getEnvInt("BIDDER_WORKERS", 4),
		bidAmount:    money.USDMicros(int64(getEnvInt("BIDDER_BID_MICROS", 500_000))),
		syncInterval: getEnvDuration("BIDDER_SYNC_INTERVAL", 500*time.Millisecond),
		metricsAddr:  getEnv("BIDDER_METRICS_ADDR", ":9091"),
	}
}

func main() {
	logger := observability.NewLogger("bidder")
	cfg := loadConfig()

	client, err := rpc.Dial(cfg.masterAddr)
	if err != nil {
		logger.Fatal().Err(err).Msg("dial master")
	}
	defer client.Close()

	metrics := observability.NewMetrics()
	shadows := shadow.New(cfg.shadowID, client)
	shadows.SetMetrics(metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{Addr: cfg.metricsAddr, Handler: mux}
		go func() {
			<-ctx.Done()
			metricsServer.Close()
		}()
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn().Err(err).Msg("metrics server failed")
		}
	}()

	for _, key := range cfg.accountKeys {
		if err := shadows.ActivateAccount(ctx, key); err != nil {
			logger.Fatal().Err(err).Str("key", key.String()).Msg("activate account")
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// detached hands off a bid authorized against one account to a
	// separate goroutine that commits it against a randomly chosen
	// account (possibly the same one), exercising the
	// detach/commitDetached custody handoff.
	detached := make(chan detachedHandoff, 256)

	for i := 0; i < cfg.workers; i++ {
		go bidWorker(ctx, i, cfg, shadows, detached, logger)
	}
	go detachCommitWorker(ctx, cfg, shadows, detached, logger)
	go syncLoop(ctx, cfg.syncInterval, shadows, logger)

	logger.Info().
		Str("master", cfg.masterAddr).
		Str("shadow_id", cfg.shadowID).
		Int("workers", cfg.workers).
		Msg("bidder running")

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")

	cancel()
	finalCtx, finalCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer finalCancel()
	if err := shadows.Sync(finalCtx); err != nil {
		logger.Warn().Err(err).Msg("final sync failed")
	}
	logger.Info().Msg("bidder shutdown complete")
}

type detachedHandoff struct {
	fromKey  account.Key
	toKey    account.Key
	detached shadow.DetachedBid
	spent    money.Amount
}

// bidWorker repeatedly authorizes a bid against one of the bidder's
// accounts, then either cancels it, commits it directly, or detaches
// it for the detachCommitWorker to settle against a randomly chosen
// account. When the handoff channel is full the worker commits the
// detached bid against its source account itself.
func bidWorker(ctx context.Context, id int, cfg bidderConfig, shadows *shadow.ShadowAccounts, detached chan<- detachedHandoff, logger zerolog.Logger) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
	seq := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		key := cfg.accountKeys[rng.Intn(len(cfg.accountKeys))]
		bidID := fmt.Sprintf("%s-w%d-%d", cfg.shadowID, id, seq)
		seq++

		if err := shadows.AuthorizeBid(key, bidID, cfg.bidAmount); err != nil {
			time.Sleep(5 * time.Millisecond)
			continue
		}

		switch rng.Intn(3) {
		case 0:
			_ = shadows.CancelBid(key, bidID)

		case 1:
			spent := scaleDown(cfg.bidAmount, rng)
			_ = shadows.CommitBid(key, bidID, spent, nil)

		default:
			db, err := shadows.DetachBid(key, bidID)
			if err != nil {
				continue
			}
			destKey := cfg.accountKeys[rng.Intn(len(cfg.accountKeys))]
			select {
			case detached <- detachedHandoff{fromKey: key, toKey: destKey, detached: db, spent: scaleDown(cfg.bidAmount, rng)}:
			case <-ctx.Done():
				return
			default:
				// backlog full: settle it ourselves rather than block the bidding path
				_ = shadows.CommitDetachedBid(key, db, scaleDown(cfg.bidAmount, rng), nil)
			}
		}

		time.Sleep(time.Millisecond)
	}
}

// detachCommitWorker drains detached bids and settles them against
// their destination account, standing in for the second bidder process
// that would normally own that custody handoff.
func detachCommitWorker(ctx context.Context, cfg bidderConfig, shadows *shadow.ShadowAccounts, detached <-chan detachedHandoff, logger zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case h := <-detached:
			if err := shadows.CommitDetachedBid(h.toKey, h.detached, h.spent, nil); err != nil {
				logger.Warn().Err(err).Msg("commit detached bid failed")
			}
		}
	}
}

// syncLoop periodically pushes local deltas to the master and pulls
// its authoritative state back down.
func syncLoop(ctx context.Context, interval time.Duration, shadows *shadow.ShadowAccounts, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := shadows.Sync(ctx); err != nil {
				logger.Warn().Err(err).Msg("sync failed")
			}
		}
	}
}

func scaleDown(amount money.Amount, rng *rand.Rand) money.Amount {
	frac := 0.5 + rng.Float64()*0.5
	return money.Amount{Currency: amount.Currency, Units: int64(float64(amount.Units) * frac)}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
