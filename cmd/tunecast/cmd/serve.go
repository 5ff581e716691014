package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/tunecast/internal/config"
	internalhttp "github.com/jmylchreest/tunecast/internal/http"
	"github.com/jmylchreest/tunecast/internal/http/handlers"
	"github.com/jmylchreest/tunecast/internal/livestream"
	"github.com/jmylchreest/tunecast/internal/startup"
	"github.com/jmylchreest/tunecast/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tunecast server",
	Long: `Start the tunecast HTTP server and API.

The server provides:
- REST API for opening and managing live stream sessions
- Raw byte-stream delivery at /live/{sessionID}
- Health check endpoint
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8090, "Port to listen on")
	serveCmd.Flags().String("temp-dir", "", "Directory for live capture temp files (default: system temp dir)")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("storage.temp_dir", serveCmd.Flags().Lookup("temp-dir"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	allocator := livestream.NewTempPathAllocator(cfg.Storage.TempDir)

	// Clean up temp files orphaned by a previous unclean shutdown.
	sweep := func() {
		removed, err := startup.CleanupOrphanedTempFiles(logger, allocator.Root(), cfg.Storage.OrphanMaxAge)
		if err != nil {
			logger.Warn("failed to clean orphaned temp files",
				slog.String("error", err.Error()),
			)
		} else if removed > 0 {
			logger.Info("cleaned orphaned temp files",
				slog.Int("removed_count", removed),
			)
		}
	}
	sweep()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Storage.OrphanSweepSchedule, sweep); err != nil {
		return fmt.Errorf("scheduling orphan sweep: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	relayCfg := livestream.Config{
		WarmupThreshold:      cfg.Relay.WarmupThreshold,
		SeekBackBytes:        cfg.Relay.SeekBackBytes,
		ChunkSize:            cfg.Relay.ChunkSize,
		PollInterval:         cfg.Relay.PollInterval,
		EmptyReadLimit:       cfg.Relay.EmptyReadLimit,
		TailEmptyReadLimit:   cfg.Relay.TailEmptyReadLimit,
		VolatileTailSegments: cfg.Relay.VolatileTailSegments,
		CleanupAttempts:      cfg.Relay.CleanupAttempts,
		CleanupRetryDelay:    cfg.Relay.CleanupRetryDelay,
	}
	manager := livestream.NewManager(allocator, relayCfg, cfg.Relay.MaxSessions, logger)

	serverConfig := internalhttp.ServerConfig{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		ReadTimeout: cfg.Server.ReadTimeout,
		// Live deliveries are open-ended; a write timeout would cut streams off.
		WriteTimeout:    0,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	server := internalhttp.NewServer(serverConfig, logger, version.Version)

	healthHandler := handlers.NewHealthHandler(version.Version).WithManager(manager)
	healthHandler.Register(server.API())

	liveStreamHandler := handlers.NewLiveStreamHandler(manager).WithLogger(logger)
	liveStreamHandler.Register(server.API())
	liveStreamHandler.RegisterChiRoutes(server.Router())

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting tunecast server",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.String("temp_dir", allocator.Root()),
		slog.String("version", version.Version),
	)

	err := server.ListenAndServe(ctx)

	// Tear down remaining sessions so their temp files are removed.
	manager.CloseAll()

	return err
}
