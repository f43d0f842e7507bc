package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcpindex/registry-proxy/internal/config"
	"github.com/mcpindex/registry-proxy/internal/db"
	"github.com/mcpindex/registry-proxy/internal/service"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a one-shot catalog sync",
	Long: `Walk the upstream registry feed and upsert every surviving entity into the
local catalog, then print the run summary as JSON on stdout.

The configured sync settings apply unless overridden by flags.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	syncCmd.Flags().String("registry-url", "", "Registry URL to sync from (overrides config)")
	syncCmd.Flags().Int("max-apps", 0, "Cap on synced entities (overrides config, 0 = use config)")
	syncCmd.Flags().Bool("only-with-remotes", false, "Skip entities without remote endpoints")

	if err := syncCmd.MarkFlagRequired("config"); err != nil {
		slog.Error("Failed to mark config flag as required", "error", err)
		os.Exit(1)
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Database == nil {
		return fmt.Errorf("database configuration is required")
	}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	svc, err := buildCatalogService(cfg, pool)
	if err != nil {
		return fmt.Errorf("failed to create catalog service: %w", err)
	}

	opts := syncOptionsFromConfig(cfg)
	if registryURL, _ := cmd.Flags().GetString("registry-url"); registryURL != "" {
		opts = append(opts, service.WithRegistryURL(registryURL))
	}
	if maxApps, _ := cmd.Flags().GetInt("max-apps"); maxApps > 0 {
		opts = append(opts, service.WithMaxApps(maxApps))
	}
	if onlyWithRemotes, _ := cmd.Flags().GetBool("only-with-remotes"); onlyWithRemotes {
		opts = append(opts, service.WithOnlyWithRemotes())
	}

	result, err := svc.Sync(ctx, opts...)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format sync result: %w", err)
	}
	fmt.Println(string(output))

	if result.Errors > 0 {
		slog.Warn("Sync completed with errors", "errors", result.Errors)
	}
	return nil
}
