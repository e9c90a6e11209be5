package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jmbish04/ai-proxy-gateway/internal/config"
	"github.com/jmbish04/ai-proxy-gateway/internal/metrics"
	"github.com/jmbish04/ai-proxy-gateway/internal/models"
	"github.com/jmbish04/ai-proxy-gateway/internal/provider"
	geminiprovider "github.com/jmbish04/ai-proxy-gateway/internal/provider/gemini"
	openaiprovider "github.com/jmbish04/ai-proxy-gateway/internal/provider/openai"
	workersaiprovider "github.com/jmbish04/ai-proxy-gateway/internal/provider/workersai"
	"github.com/jmbish04/ai-proxy-gateway/internal/router"
	"github.com/jmbish04/ai-proxy-gateway/internal/server"
	"github.com/jmbish04/ai-proxy-gateway/internal/storage"
	"github.com/jmbish04/ai-proxy-gateway/internal/storage/sqlite"
	"github.com/jmbish04/ai-proxy-gateway/internal/telemetry"
	"github.com/jmbish04/ai-proxy-gateway/internal/tokens"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.Init("ai-proxy-gateway", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	counter := tokens.NewRegistry()
	modelReg := models.NewRegistry()

	providers := provider.NewRegistry()
	providers.Register(newWorkersAI(cfg, counter, logger))
	providers.Register(newOpenAI(cfg, counter))
	providers.Register(newGemini(cfg, counter, logger))

	proxy := router.New(providers, modelReg, logger)

	store, err := newStore(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	srv := server.New(server.Options{
		Config:  cfg,
		Logger:  logger,
		Proxy:   proxy,
		Tokens:  counter,
		Models:  modelReg,
		Metrics: metrics.New(),
		Store:   store,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	for tag, available := range proxy.Availability() {
		logger.Info("provider registered",
			slog.String("provider", string(tag)),
			slog.Bool("available", available))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func newWorkersAI(cfg *config.Config, counter *tokens.Registry, logger *slog.Logger) *workersaiprovider.Provider {
	var opts []workersaiprovider.ProviderOption
	if cfg.Providers.WorkersAI.BaseURL != "" {
		opts = append(opts, workersaiprovider.WithBaseURL(cfg.Providers.WorkersAI.BaseURL))
	}
	return workersaiprovider.New(cfg.Providers.WorkersAI.AccountID, cfg.Providers.WorkersAI.APIToken, counter, logger, opts...)
}

func newOpenAI(cfg *config.Config, counter *tokens.Registry) *openaiprovider.Provider {
	var opts []openaiprovider.ProviderOption
	if cfg.Providers.OpenAI.BaseURL != "" {
		opts = append(opts, openaiprovider.WithBaseURL(cfg.Providers.OpenAI.BaseURL))
	}
	return openaiprovider.New(cfg.Providers.OpenAI.APIKey, counter, opts...)
}

func newGemini(cfg *config.Config, counter *tokens.Registry, logger *slog.Logger) *geminiprovider.Provider {
	var opts []geminiprovider.ProviderOption
	if cfg.Providers.Gemini.BaseURL != "" {
		opts = append(opts, geminiprovider.WithBaseURL(cfg.Providers.Gemini.BaseURL))
	}
	return geminiprovider.New(cfg.Providers.Gemini.APIKey, counter, logger, opts...)
}

func newStore(cfg *config.Config, logger *slog.Logger) (storage.InteractionStore, error) {
	switch cfg.Storage.Type {
	case "sqlite":
		path := cfg.Storage.SQLite.Path
		if path == "" {
			path = "./data/gateway.db"
		}
		logger.Info("interaction log enabled", slog.String("path", path))
		return sqlite.New(path)
	default:
		return storage.Nop{}, nil
	}
}
