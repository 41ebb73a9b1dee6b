package rerankd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/go-reranker"
	"github.com/soundprediction/go-reranker/pkg/backend"
	"github.com/soundprediction/go-reranker/pkg/cache"
	"github.com/soundprediction/go-reranker/pkg/config"
	"github.com/soundprediction/go-reranker/pkg/health"
	"github.com/soundprediction/go-reranker/pkg/logger"
	"github.com/soundprediction/go-reranker/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the rerank HTTP service",
	Long: `Start the rerank HTTP service.

The service provides endpoints for:
- Scoring a single (query, passage) pair
- Batch scoring of many pairs
- Ranking a set of passages against one query
- Health checks

The backend readiness monitor runs in the background; the service answers
health checks immediately and rejects scoring requests until the backend
reports ready.`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
	serveMode string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "Server host")
	serveCmd.Flags().IntVar(&servePort, "port", 8000, "Server port")
	serveCmd.Flags().StringVar(&serveMode, "mode", "release", "Server mode (debug, release, test)")

	serveCmd.Flags().String("backend", "direct", "Scoring backend (direct, remote, generative)")
	serveCmd.Flags().String("model", "", "Model name")
	serveCmd.Flags().String("base-url", "", "Backend base URL (remote and generative backends)")
	serveCmd.Flags().String("api-key", "", "Backend API key")
	serveCmd.Flags().Bool("no-normalize", false, "Disable sigmoid normalization by default")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrideConfigWithFlags(cmd, cfg)

	if err := validateServeConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.NewDefault(logger.ParseLevel(cfg.Log.Level))

	be, err := backend.New(backend.Config{
		Provider: backend.Provider(cfg.Backend.Provider),
		Model:    cfg.Backend.Model,
		BaseURL:  cfg.Backend.BaseURL,
		APIKey:   cfg.Backend.APIKey,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create backend: %w", err)
	}

	monitor := health.NewMonitor(be, cfg.Backend.Model, health.Config{
		Interval:    cfg.Readiness.Interval,
		MaxAttempts: cfg.Readiness.Attempts,
		Warmup:      cfg.Readiness.Warmup,
	}, log)

	svc := reranker.New(be, monitor, reranker.Config{
		Normalize:      cfg.Rerank.Normalize,
		Timeout:        cfg.Rerank.Timeout,
		MaxConcurrency: cfg.Rerank.MaxConcurrency,
		CacheTTL:       cfg.Cache.TTL,
	}, log)
	defer svc.Close()

	if cfg.Cache.Enabled {
		scoreCache, err := cache.NewBadgerCache(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("failed to open score cache: %w", err)
		}
		svc.SetCache(scoreCache)
		log.Info("score cache enabled", "path", cfg.Cache.Path, "ttl", cfg.Cache.TTL)
	}

	// The monitor polls in the background so the server can answer health
	// checks while the backend loads. A failed backend leaves the process
	// serving 503s rather than exiting.
	monitorCtx, monitorCancel := context.WithCancel(context.Background())
	defer monitorCancel()
	go func() {
		state := monitor.WaitUntilReady(monitorCtx)
		if state == health.StateFailed {
			log.Error("backend never became ready; scoring requests will be rejected",
				"backend", svc.BackendName(), "model", cfg.Backend.Model)
		}
	}()

	srv := server.New(cfg, svc, log)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		log.Info("server stopped gracefully")
		return nil
	}
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serveMode
	}

	if cmd.Flags().Changed("backend") {
		cfg.Backend.Provider, _ = cmd.Flags().GetString("backend")
	}
	if cmd.Flags().Changed("model") {
		cfg.Backend.Model, _ = cmd.Flags().GetString("model")
	}
	if cmd.Flags().Changed("base-url") {
		cfg.Backend.BaseURL, _ = cmd.Flags().GetString("base-url")
	}
	if cmd.Flags().Changed("api-key") {
		cfg.Backend.APIKey, _ = cmd.Flags().GetString("api-key")
	}
	if cmd.Flags().Changed("no-normalize") {
		noNorm, _ := cmd.Flags().GetBool("no-normalize")
		cfg.Rerank.Normalize = !noNorm
	}
}

func validateServeConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}

	switch backend.Provider(cfg.Backend.Provider) {
	case backend.ProviderDirect:
	case backend.ProviderRemote, backend.ProviderGenerative:
		if cfg.Backend.BaseURL == "" {
			return fmt.Errorf("base URL is required for the %s backend", cfg.Backend.Provider)
		}
	default:
		return fmt.Errorf("unknown backend provider: %q", cfg.Backend.Provider)
	}

	return nil
}
