package cli

import (
	"fmt"
	"io"
	"strings"

	"aks/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long:  "Print the configuration after the config file, .env, environment and flags are applied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asTOML, _ := cmd.Flags().GetBool("toml"); asTOML {
			data, err := cfg.Encode()
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = out.Write(data)
			return err
		}

		path, _ := cmd.Flags().GetString("config")
		showConfig(out, cfg, path)
		return nil
	},
}

func showConfig(w io.Writer, cfg *config.Config, path string) {
	key := "not set"
	if cfg.ResolveAPIKey() != "" {
		key = "set"
	}

	redis := "disabled"
	if cfg.Cache.Redis.Enabled {
		redis = fmt.Sprintf("%s (ttl %dh)", cfg.Cache.Redis.URL, cfg.Cache.Redis.TTLHours)
	}

	fmt.Fprintln(w, titleStyle.Render("Current configuration")+" "+mutedStyle.Render("("+path+")"))
	fmt.Fprintf(w, "├─ Provider: %s\n", cfg.LLM.Provider)
	fmt.Fprintf(w, "├─ Model: %s\n", cfg.LLM.Model)
	fmt.Fprintf(w, "├─ API key: %s\n", key)
	fmt.Fprintf(w, "├─ Max tokens: %d\n", cfg.LLM.MaxTokens)
	fmt.Fprintf(w, "├─ Temperature: %.1f\n", cfg.LLM.Temperature)
	fmt.Fprintf(w, "├─ Token limit: %d\n", cfg.Budget.TokenLimit)
	fmt.Fprintf(w, "├─ Auto confirm: %v\n", cfg.Budget.AutoConfirm)
	fmt.Fprintf(w, "├─ Default extensions: %s\n", strings.Join(cfg.Selection.DefaultExtensions, " "))
	fmt.Fprintf(w, "├─ Include hidden: %v\n", cfg.Selection.IncludeHidden)
	fmt.Fprintf(w, "├─ History: %d lines from %s\n", cfg.Query.HistoryLines, cfg.Query.HistoryFile)
	fmt.Fprintf(w, "├─ Response file: %s\n", cfg.Output.ResponseFile)
	fmt.Fprintf(w, "└─ Redis cache: %s\n", redis)
}
