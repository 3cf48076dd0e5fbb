package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"shoplist-backend/application/services"
	"shoplist-backend/infrastructure/persistence/file"
	"shoplist-backend/interfaces/http/rest"
	ws "shoplist-backend/interfaces/websocket"
	"shoplist-backend/internal/config"
	"shoplist-backend/pkg/observability"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		log.Fatalf("invalid log level %q: %v", cfg.Logging.Level, err)
	}
	logger, err := newLogger(cfg.Logging.Format, level)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, *configPath, level, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, configPath string, level zap.AtomicLevel, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)

	store := file.NewStore(cfg.Data.Dir, metrics, logger)
	if err := store.EnsureDataFiles(); err != nil {
		return fmt.Errorf("failed to initialize data files: %w", err)
	}
	logger.Info("data files checked", zap.String("dir", cfg.Data.Dir))

	hub := ws.NewHub(metrics, logger)
	go hub.Run()
	defer hub.Stop()

	broadcaster := ws.NewBroadcaster(hub, logger)
	service := services.NewListService(store, store, broadcaster, metrics, logger)
	session := ws.NewSession(service, metrics, logger)
	wsServer := ws.NewServer(hub, session, &ws.ServerConfig{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}, logger)

	sweeper := services.NewRetentionSweeper(service, cfg.History.SweepInterval, cfg.History.RetentionWindow, logger)
	go sweeper.Run(ctx)

	watcher := config.NewWatcher(configPath, func(next *config.Config) {
		if err := level.UnmarshalText([]byte(next.Logging.Level)); err != nil {
			logger.Warn("ignoring invalid log level from reloaded config",
				zap.String("level", next.Logging.Level))
		}
		sweeper.SetWindow(next.History.RetentionWindow)
	}, logger)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Warn("config watcher stopped", zap.Error(err))
		}
	}()

	handler := rest.NewHandler(service, logger)
	router := rest.NewRouter(handler, wsServer.HandleWebSocket, metrics.Handler(), logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		logger.Info("server stopped gracefully")
		return nil
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}
}

func newLogger(format string, level zap.AtomicLevel) (*zap.Logger, error) {
	var cfg zap.Config
	switch format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = level
	return cfg.Build()
}
