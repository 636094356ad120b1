package cli

import (
	"bufio"
	"fmt"
	"strings"

	"aks/internal/cache"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all cached responses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logger := newLogger(cmd.ErrOrStderr(), verbose)

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !cfg.Cache.Redis.Enabled {
			fmt.Fprintln(out, "Response cache is not enabled in configuration.")
			return nil
		}

		force, _ := cmd.Flags().GetBool("force")
		if !force {
			fmt.Fprint(out, "Are you sure you want to clear all cached responses? (y/N): ")
			line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if strings.ToLower(strings.TrimSpace(line)) != "y" {
				fmt.Fprintln(out, "Operation cancelled.")
				return nil
			}
		}

		mgr := cache.Open(cmd.Context(), cfg.Cache.Redis, logger)
		if mgr == nil {
			return fmt.Errorf("redis at %s is not reachable", cfg.Cache.Redis.URL)
		}
		defer mgr.Close()

		n, err := mgr.Clear(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Fprintf(out, "Successfully cleared %d cache entries.\n", n)
		return nil
	},
}
