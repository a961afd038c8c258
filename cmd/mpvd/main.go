package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mpvledger/config"
	"mpvledger/core/events"
	"mpvledger/native/assets"
	"mpvledger/native/multisig"
	"mpvledger/native/registry"
	"mpvledger/native/token"
	"mpvledger/native/whitelist"
	"mpvledger/observability"
	"mpvledger/observability/logging"
	"mpvledger/state"
	"mpvledger/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	initConfig := flag.Bool("init", false, "Write a starter configuration file and exit")
	flag.Parse()

	if *initConfig {
		if err := config.WriteDefault(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *configFile)
		return
	}

	env := strings.TrimSpace(os.Getenv("MPV_ENV"))
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Service, env)

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	sys, err := buildSystem(cfg, logger)
	if err != nil {
		logger.Error("failed to bootstrap ledger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	manager := state.NewManager(db)
	restored, err := manager.Restore(sys)
	if err != nil {
		logger.Error("failed to restore snapshot", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if restored {
		logger.Info("restored ledger snapshot")
	} else {
		logger.Info("starting from bootstrap configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{Addr: cfg.MetricsAddress, Handler: mux}
	go func() {
		logger.Info("metrics listener started", slog.String("address", cfg.MetricsAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", slog.String("error", err.Error()))
		}
	}()

	interval := time.Duration(cfg.SnapshotInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := manager.Save(sys); err != nil {
				logger.Error("snapshot failed", slog.String("error", err.Error()))
			}
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics shutdown failed", slog.String("error", err.Error()))
			}
			if err := manager.Save(sys); err != nil {
				logger.Error("final snapshot failed", slog.String("error", err.Error()))
				os.Exit(1)
			}
			return
		}
	}
}

// buildSystem assembles and cross-wires every engine from the bootstrap
// configuration. A stored snapshot, when present, overwrites the seeded state
// afterwards.
func buildSystem(cfg *config.Config, logger *slog.Logger) (*state.System, error) {
	emitter := events.MultiEmitter{
		observability.LogEmitter{Logger: logger},
		observability.MetricsEmitter{},
	}

	wallets := make(map[registry.Role]*multisig.Wallet, len(registry.Roles))
	for _, role := range registry.Roles {
		signers, required, err := cfg.RoleSigners(role.String())
		if err != nil {
			return nil, err
		}
		wallet, err := multisig.NewWallet(role.String(), signers, required)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", role, err)
		}
		wallet.SetEmitter(emitter)
		wallets[role] = wallet
	}

	reg, err := registry.NewRegistry(wallets, cfg.Governance.ThresholdPercent)
	if err != nil {
		return nil, err
	}
	reg.SetEmitter(emitter)

	wl := whitelist.New()
	wl.SetEmitter(emitter)

	dailyLimit, err := cfg.DailyLimit()
	if err != nil {
		return nil, err
	}
	tok := token.New(cfg.Token.Name, cfg.Token.Symbol, cfg.Token.Decimals)
	tok.SetEmitter(emitter)
	tok.SetWhitelist(wl)
	tok.SetPauseView(reg)
	if err := tok.SetInitialDailyLimit(dailyLimit); err != nil {
		return nil, err
	}

	fee, err := cfg.RedemptionFee()
	if err != nil {
		return nil, err
	}
	feeReceiver, err := cfg.FeeReceiver()
	if err != nil {
		return nil, err
	}
	mintingReceiver, err := cfg.MintingReceiver()
	if err != nil {
		return nil, err
	}
	ledger := assets.NewLedger(fee, feeReceiver, mintingReceiver)
	ledger.SetEmitter(emitter)
	ledger.SetToken(tok)
	ledger.SetRedemptionGate(wallets[registry.RoleRedemptionAdmin])
	wallets[registry.RoleRedemptionAdmin].SetTransactor(ledger.EscrowAccount())

	// The asset ledger's module account is the only caller the token
	// accepts for escrow moves, minting, and burning.
	tok.SetMintingAdmin(ledger.EscrowAccount())
	tok.SetRedemptionAdmin(ledger.EscrowAccount())
	tok.SetLedgerModule(ledger.EscrowAccount())

	reg.SetWhitelist(wl)
	reg.SetAssets(ledger)
	reg.SetToken(tok)

	return &state.System{
		Registry:  reg,
		Whitelist: wl,
		Assets:    ledger,
		Token:     tok,
	}, nil
}
