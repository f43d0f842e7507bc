package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"github.com/mcpindex/registry-proxy/internal/api"
	"github.com/mcpindex/registry-proxy/internal/config"
	"github.com/mcpindex/registry-proxy/internal/db"
	"github.com/mcpindex/registry-proxy/internal/listing"
	"github.com/mcpindex/registry-proxy/internal/policy"
	"github.com/mcpindex/registry-proxy/internal/service"
	"github.com/mcpindex/registry-proxy/internal/service/catalog"
	"github.com/mcpindex/registry-proxy/internal/store"
	"github.com/mcpindex/registry-proxy/internal/syncer"
	"github.com/mcpindex/registry-proxy/internal/upstream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the registry proxy server",
	Long: `Start the registry proxy server to serve catalog data.

The server requires a configuration file (--config) that specifies:
- The upstream registry URL
- Database connection parameters
- Sync, listing and filtering settings

See examples/ directory for sample configurations.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time
	serverReadTimeout      = 10 * time.Second // Enough for headers and small requests
	serverIdleTimeout      = 60 * time.Second // Keep connections alive for reuse
	upstreamClientTimeout  = 30 * time.Second
)

func init() {
	serveCmd.Flags().String("address", "", "Address to listen on (overrides config)")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		slog.Error("Failed to bind config flag", "error", err)
		os.Exit(1)
	}

	// Mark config as required
	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		slog.Error("Failed to mark config flag as required", "error", err)
		os.Exit(1)
	}
}

// buildCatalogService wires the store, exclusion policy, upstream client,
// listing engine and sync engine into a catalog service.
func buildCatalogService(cfg *config.Config, pool *pgxpool.Pool) (service.CatalogService, error) {
	var blacklist, deniedKeywords []string
	var nameFilter *policy.NameFilter
	if cfg.Filter != nil {
		blacklist = cfg.Filter.Blacklist
		deniedKeywords = cfg.Filter.DeniedKeywords
		if cfg.Filter.Names != nil {
			nameFilter = policy.NewNameFilter(cfg.Filter.Names.Include, cfg.Filter.Names.Exclude)
		}
	}

	pol, err := policy.New(blacklist, deniedKeywords)
	if err != nil {
		return nil, fmt.Errorf("failed to build exclusion policy: %w", err)
	}

	idx := store.New(pool)
	client := upstream.NewHTTPClient(cfg.Registry.URL, upstreamClientTimeout)
	clientFactory := func(baseURL string) upstream.Client {
		return upstream.NewHTTPClient(baseURL, upstreamClientTimeout)
	}

	lister := listing.New(cfg.Registry.URL, client, pol, cfg.Listing.AllowedNames)
	syncEngine := syncer.New(cfg.Registry.URL, clientFactory, pol, nameFilter, idx)

	return catalog.New(
		catalog.WithUpstreamClient(client),
		catalog.WithListingEngine(lister),
		catalog.WithSyncEngine(syncEngine),
		catalog.WithIndex(idx),
		catalog.WithTracer(otel.Tracer("registry-proxy")),
	)
}

// syncOptionsFromConfig translates the configured sync settings into
// service-level options for background runs.
func syncOptionsFromConfig(cfg *config.Config) []service.Option[service.SyncOptions] {
	var opts []service.Option[service.SyncOptions]
	if cfg.Sync.MaxApps > 0 {
		opts = append(opts, service.WithMaxApps(cfg.Sync.MaxApps))
	}
	if cfg.Sync.OnlyWithRemotes {
		opts = append(opts, service.WithOnlyWithRemotes())
	}
	return opts
}

// runBackgroundSync runs a sync on every tick until the context is cancelled.
func runBackgroundSync(ctx context.Context, svc service.CatalogService, cfg *config.Config, interval time.Duration) {
	slog.InfoContext(ctx, "Starting background sync loop", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := svc.Sync(ctx, syncOptionsFromConfig(cfg)...)
			if err != nil {
				slog.ErrorContext(ctx, "Background sync failed", "error", err)
				continue
			}
			slog.InfoContext(ctx, "Background sync finished",
				"synced", result.Synced,
				"skipped", result.Skipped,
				"errors", result.Errors,
				"duration_ms", result.DurationMs)
		}
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Load and validate configuration
	configPath := viper.GetString("config")
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Database == nil {
		return fmt.Errorf("database configuration is required")
	}

	address := viper.GetString("address")
	if address == "" {
		address = cfg.Server.Address
	}
	requestTimeout, err := time.ParseDuration(cfg.Server.RequestTimeout)
	if err != nil {
		return fmt.Errorf("invalid request timeout: %w", err)
	}

	slog.InfoContext(ctx, "Loaded configuration",
		"path", configPath,
		"registry_url", cfg.Registry.URL,
		"address", address)

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	svc, err := buildCatalogService(cfg, pool)
	if err != nil {
		return fmt.Errorf("failed to create catalog service: %w", err)
	}

	// Start the optional background sync loop
	syncCtx, syncCancel := context.WithCancel(context.Background())
	defer syncCancel()
	if cfg.Sync.Interval != "" {
		interval, err := time.ParseDuration(cfg.Sync.Interval)
		if err != nil {
			return fmt.Errorf("invalid sync interval: %w", err)
		}
		go runBackgroundSync(syncCtx, svc, cfg, interval)
	}

	// Create the registry server with middleware
	router := api.NewServer(svc,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(requestTimeout),
			api.LoggingMiddleware,
		),
	)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: requestTimeout + 5*time.Second, // Must outlast the middleware timeout
		IdleTimeout:  serverIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		slog.Info("Server listening", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	syncCancel()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	slog.Info("Server shutdown complete")
	return nil
}
