package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/revu/internal/config"
	"github.com/joescharf/revu/internal/store"
)

var cacheOlderThan time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the fetched file contents cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cachePruneRun(cmd)
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and age",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cacheStatsRun(cmd)
	},
}

func init() {
	cachePruneCmd.Flags().DurationVar(&cacheOlderThan, "older-than", 0, "Prune entries older than this (default: cache.ttl)")
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}

// openCache opens and migrates the configured cache database.
func openCache(cmd *cobra.Command) (*store.SQLiteStore, config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, config.Config{}, err
	}
	s, err := store.NewSQLiteStore(cfg.CachePath)
	if err != nil {
		return nil, config.Config{}, err
	}
	if err := s.Migrate(cmd.Context()); err != nil {
		_ = s.Close()
		return nil, config.Config{}, fmt.Errorf("migrate cache: %w", err)
	}
	return s, cfg, nil
}

func cachePruneRun(cmd *cobra.Command) error {
	s, cfg, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	age := cacheOlderThan
	if age <= 0 {
		age = cfg.CacheTTL
	}
	n, err := s.Prune(cmd.Context(), time.Now().Add(-age))
	if err != nil {
		return err
	}
	ui.Success("Pruned %d cache entries older than %s", n, age)
	return nil
}

func cacheStatsRun(cmd *cobra.Command) error {
	s, cfg, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.Stats(cmd.Context())
	if err != nil {
		return err
	}
	ui.Info("Cache: %s", cfg.CachePath)
	table := ui.Table([]string{"ENTRIES", "BYTES", "OLDEST"})
	oldest := "-"
	if !st.Oldest.IsZero() {
		oldest = st.Oldest.Local().Format(time.DateTime)
	}
	_ = table.Append([]string{fmt.Sprint(st.Entries), fmt.Sprint(st.Bytes), oldest})
	return table.Render()
}
