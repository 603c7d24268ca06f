package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mshankarrao/Investment-dao/internal/api"
	"github.com/mshankarrao/Investment-dao/internal/chain"
	"github.com/mshankarrao/Investment-dao/internal/config"
	"github.com/mshankarrao/Investment-dao/internal/events"
	"github.com/mshankarrao/Investment-dao/internal/health"
	"github.com/mshankarrao/Investment-dao/internal/indexer"
	"github.com/mshankarrao/Investment-dao/internal/logger"
	"github.com/mshankarrao/Investment-dao/internal/scheduler"
	"github.com/mshankarrao/Investment-dao/internal/storage"
)

var (
	interval string
	once     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the DAO node",
	Long: `Start the embedded dev chain, project its event stream into PostgreSQL,
snapshot holder balances on a schedule, and serve the HTTP API.`,
	RunE: runNode,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&interval, "interval", "", "snapshot interval - duration (5m, 1h) or cron (\"*/5 * * * *\") - overrides config")
	runCmd.Flags().BoolVar(&once, "once", false, "snapshot once at startup instead of running the scheduler")
}

func runNode(cmd *cobra.Command, args []string) error {
	// Setup logger (log-level from global flag)
	logger.Setup(logLevel)

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		slog.Info("Signal received, graceful shutdown", "signal", sig)
		cancel()
	}()

	// Load config
	cfg, databaseURL, err := config.LoadWithDefaults(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}

	// Override log level if set in config
	if cfg.LogLevel != "" {
		logger.Setup(cfg.LogLevel)
	}

	// Use interval from flag if provided, otherwise from config
	snapshotInterval := interval
	if snapshotInterval == "" {
		snapshotInterval = cfg.SnapshotInterval
	}

	slog.Info("Configuration loaded",
		"config_path", cfgFile,
		"symbol", cfg.Token.Symbol,
		"holders", len(cfg.Token.Holders),
		"snapshot_interval", snapshotInterval,
	)

	// Connect to PostgreSQL
	store, err := storage.NewStore(ctx, databaseURL)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		return err
	}
	defer store.Close()
	slog.Info("PostgreSQL connection established")

	// Apply migrations
	if err := storage.RunMigrations(ctx, databaseURL); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return err
	}

	genesis, err := buildGenesis(cfg)
	if err != nil {
		slog.Error("Invalid genesis configuration", "error", err)
		return err
	}

	// The indexer must subscribe before the chain is constructed so the
	// genesis distribution is projected like any later record.
	bus := events.NewBus(slog.Default())
	ix := indexer.New(store, cfg.Token.Decimals, indexer.Options{Logger: slog.Default()})
	ix.Start(ctx, bus)
	defer ix.Stop()

	ch, err := chain.New(genesis, nil, bus, slog.Default())
	if err != nil {
		slog.Error("Failed to start dev chain", "error", err)
		return err
	}

	slog.Info("Dev chain started",
		"symbol", cfg.Token.Symbol,
		"holders", len(cfg.Token.Holders),
		"treasury", ch.TreasuryAddress().Hex(),
	)

	// Snapshot job that tracks execution status for the health checker
	var healthChecker *health.Checker
	snapshotJob := func(jobCtx context.Context) error {
		err := ix.Snapshot(jobCtx, ch)
		if healthChecker != nil {
			healthChecker.UpdateLastRun(err == nil)
		}
		return err
	}

	var expectedInterval time.Duration
	var sched *scheduler.Scheduler

	if once || snapshotInterval == "" {
		// One snapshot at startup; the health check for the job stays
		// disabled because there is no schedule to miss.
		if err := snapshotJob(ctx); err != nil {
			slog.Error("Snapshot failed", "error", err)
		}
	} else {
		schedulerCfg := scheduler.Config{
			Name:           "snapshot",
			Interval:       snapshotInterval,
			Timezone:       cfg.GetTimezone(),
			RunImmediately: cfg.ShouldRunImmediately(),
			Logger:         slog.Default(),
		}

		sched, err = scheduler.NewScheduler(ctx, schedulerCfg, snapshotJob)
		if err != nil {
			slog.Error("Failed to create scheduler", "error", err)
			return fmt.Errorf("scheduler creation failed: %w", err)
		}
		defer sched.Stop()

		expectedInterval, err = sched.GetExpectedInterval()
		if err != nil {
			// Fallback to conservative estimate for irregular cron expressions
			expectedInterval = 5 * time.Minute
			slog.Warn("Could not determine exact interval, using conservative estimate",
				"interval", expectedInterval)
		}
	}

	healthChecker = health.NewChecker(store, ch, expectedInterval)

	srv := api.NewServer(ch, store, healthChecker.Handler(), slog.Default())

	httpPort := cfg.HTTPPort
	if httpPort == 0 {
		httpPort = 8080 // Default port
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", httpPort),
		Handler: srv.Router(),
	}

	go func() {
		slog.Info("HTTP server starting", "port", httpPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Ensure HTTP server shutdown on exit
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	// Start the scheduler
	if sched != nil {
		if err := sched.Start(); err != nil {
			slog.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("scheduler start failed: %w", err)
		}
	}

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("Shutdown requested, stopping node")
	return nil
}

func buildGenesis(cfg *config.Config) (chain.Genesis, error) {
	tokenCfg, err := cfg.GenesisToken()
	if err != nil {
		return chain.Genesis{}, fmt.Errorf("token genesis: %w", err)
	}
	params, err := cfg.GovernorParams()
	if err != nil {
		return chain.Genesis{}, fmt.Errorf("governor: %w", err)
	}
	return chain.Genesis{
		Token:    tokenCfg,
		Governor: params,
		Treasury: cfg.TreasuryAddress(),
	}, nil
}
