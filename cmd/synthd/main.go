package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"synthd/config"
	"synthd/core/events"
	"synthd/crypto"
	"synthd/gateway/middleware"
	"synthd/gateway/routes"
	nativecommon "synthd/native/common"
	"synthd/native/oracle"
	"synthd/native/token"
	"synthd/native/vault"
	"synthd/observability"
	"synthd/observability/logging"
	synthotel "synthd/observability/otel"
	"synthd/storage"
)

const (
	authSecretEnv   = "SYNTHD_GATEWAY_SECRET"
	otlpEndpointEnv = "SYNTHD_OTLP_ENDPOINT"
	envNameEnv      = "SYNTHD_ENV"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envNameEnv))

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("synthd", env, logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if endpoint := strings.TrimSpace(os.Getenv(otlpEndpointEnv)); endpoint != "" {
		shutdown, err := synthotel.Init(ctx, synthotel.Config{
			ServiceName: "synthd",
			Environment: env,
			Endpoint:    endpoint,
			Insecure:    true,
			Traces:      true,
			Metrics:     true,
		})
		if err != nil {
			logger.Error("failed to initialise telemetry", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown failed", slog.Any("error", err))
			}
		}()
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	engine, prices, aggregator, pauses, err := buildEngine(cfg, db, logger)
	if err != nil {
		logger.Error("failed to build vault engine", slog.Any("error", err))
		os.Exit(1)
	}

	authSecret := strings.TrimSpace(os.Getenv(authSecretEnv))
	if authSecret == "" {
		logger.Warn("gateway auth disabled; admin endpoints are open", "component", "gateway")
	}

	handler := routes.New(routes.Config{
		Engine:       engine,
		ManualOracle: prices,
		PriceReader:  aggregator,
		Pauses:       pauses,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    authSecret != "",
			HMACSecret: authSecret,
		}, logger),
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}),
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{
			ServiceName: "synthd",
			LogRequests: true,
			Enabled:     true,
		}, logger),
	})

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           otelhttp.NewHandler(handler, "synthd.gateway"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", cfg.ListenAddress, "network", cfg.NetworkName)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", slog.Any("error", err))
			os.Exit(1)
		}
	}
}

// buildEngine assembles the vault engine over its persistence, oracle, and
// token dependencies from the loaded configuration. The engine reads prices
// through the aggregator so the freshness window applies to valuation, not
// just to gateway quote reads.
func buildEngine(cfg *config.Config, db storage.Database, logger *slog.Logger) (*vault.Engine, *oracle.ManualOracle, *oracle.Aggregator, *nativecommon.Pauses, error) {
	minHealth, err := cfg.MinHealthFactorInt()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	params := vault.RiskParameters{
		LiquidationThresholdPct: cfg.Risk.LiquidationThresholdPct,
		LiquidationBonusPct:     cfg.Risk.LiquidationBonusPct,
		MinHealthFactor:         minHealth,
	}

	moduleAddr := vaultModuleAddress()
	prices := oracle.NewManualOracle()
	aggregator := oracle.NewAggregator(cfg.Oracle.Sources, time.Duration(cfg.Oracle.MaxQuoteAgeSecs)*time.Second)
	aggregator.Register("manual", prices)
	synth := token.NewLedger(moduleAddr)

	engine, err := vault.NewEngine(moduleAddr, params, cfg.CollateralAssets, cfg.PriceFeeds, aggregator, synth)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	engine.SetState(storage.NewPositionStore(db))

	assets := make(map[string]*token.Asset, len(cfg.CollateralAssets))
	for _, symbol := range cfg.CollateralAssets {
		asset := token.NewAsset(symbol)
		assets[symbol] = asset
		if err := engine.SetCollateralToken(symbol, asset); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	if err := seedGenesis(cfg.Genesis, assets, moduleAddr); err != nil {
		return nil, nil, nil, nil, err
	}

	pauses := nativecommon.NewPauses()
	pauses.Set("vault", cfg.Pauses.Vault)
	pauses.Set("oracle", cfg.Pauses.Oracle)
	observability.Vault().SetPause(cfg.Pauses.Vault)
	engine.SetPauses(pauses)

	engine.SetEmitter(observability.NewCountingEmitter(events.LogEmitter{Logger: logger}))

	logger.Info("vault engine ready",
		"module", moduleAddr.String(),
		"assets", strings.Join(cfg.CollateralAssets, ","),
	)
	return engine, prices, aggregator, pauses, nil
}

// seedGenesis credits configured collateral balances and pre-approves the
// vault module as spender so deposits work against the in-process asset
// ledgers from the first request.
func seedGenesis(allocations []config.GenesisAllocation, assets map[string]*token.Asset, module crypto.Address) error {
	for _, alloc := range allocations {
		asset, ok := assets[alloc.Asset]
		if !ok {
			return fmt.Errorf("genesis allocation references unknown asset %q", alloc.Asset)
		}
		account, err := crypto.DecodeAddress(alloc.Address)
		if err != nil {
			return fmt.Errorf("genesis allocation for %q: %w", alloc.Asset, err)
		}
		amount, ok := new(big.Int).SetString(alloc.Amount, 10)
		if !ok || amount.Sign() <= 0 {
			return fmt.Errorf("genesis allocation for %q: invalid amount %q", alloc.Asset, alloc.Amount)
		}
		asset.Credit(account, amount)
		asset.Approve(account, module, amount)
	}
	return nil
}

// vaultModuleAddress derives the fixed custody address collateral is held
// under. Deriving it from a constant keeps the address stable across restarts.
func vaultModuleAddress() crypto.Address {
	digest := ethcrypto.Keccak256([]byte("synthd/native/vault/module"))
	return crypto.NewAddress(crypto.SynPrefix, digest[12:])
}
