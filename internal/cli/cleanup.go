package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/fetcher/internal/core/config"
	"github.com/vietddude/fetcher/internal/infra/cache"
	"github.com/vietddude/stylelog"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Sweep expired and corrupt entries from the cache directory",
	Run:   runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) {
	stylelog.InitDefault()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	c, err := cache.New(cfg.Cache.Dir, time.Duration(cfg.Cache.DefaultTTLSeconds)*time.Second, nil)
	if err != nil {
		slog.Error("Failed to open cache", "error", err)
		os.Exit(1)
	}

	removed := c.CleanupExpired()
	slog.Info("Cache sweep complete", "dir", cfg.Cache.Dir, "removed", removed)
}
