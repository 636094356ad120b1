package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"aks/internal/cache"
	"aks/internal/config"
	"aks/internal/prompt"
	"aks/internal/query"

	"github.com/spf13/cobra"
)

const Version = "1.0.0"

// historyFromConfig is the --query-history value when the flag is given
// without a line count.
const historyFromConfig = -1

var rootCmd = &cobra.Command{
	Use:   "aks [FILES...]",
	Short: "Ask LLM Tool - share your codebase with an LLM",
	Long: `aks concatenates source files into one prompt, checks it against a token
budget and sends it with your query to an LLM. The answer is appended to
response.md.

Without FILES, every .cpp, .hpp, .h and .py file under the current
directory is used. FILES may be paths or glob patterns (*.py, src/**/*.cpp).`,
	Example: `  aks -q "Where is the config parsed?"
  aks "src/**/*.go" -x "*_test.go" -f question.txt
  aks --all -x poetry.lock "tests/*" -H=20`,
	Version:       Version,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	RunE: runAsk,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Ask LLM Tool v%s\n", Version)
	},
}

func runAsk(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(cmd.ErrOrStderr(), verbose)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts, err := optionsFromFlags(cmd, args, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	p := newPipeline(cfg, cmd.OutOrStdout(), logger)
	if !opts.NoCache && !opts.DryRun {
		p.cache = cache.Open(ctx, cfg.Cache.Redis, logger)
		defer p.cache.Close()
	}

	return p.run(ctx, opts)
}

// loadConfig reads the config file and applies the flag overrides shared
// by every command that needs a validated config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.LLM.Provider, _ = flags.GetString("provider")
	}
	if flags.Changed("model") {
		cfg.LLM.Model, _ = flags.GetString("model")
	}
	if flags.Changed("limit") {
		cfg.Budget.TokenLimit, _ = flags.GetInt("limit")
	}
	if yes, _ := flags.GetBool("yes"); yes {
		cfg.Budget.AutoConfirm = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func optionsFromFlags(cmd *cobra.Command, args []string, cfg *config.Config) (runOptions, error) {
	flags := cmd.Flags()

	opts := runOptions{Patterns: args}
	opts.All, _ = flags.GetBool("all")
	opts.Excludes, _ = flags.GetStringArray("exclude")
	opts.NoCache, _ = flags.GetBool("no-cache")
	opts.DryRun, _ = flags.GetBool("dry-run")

	opts.Query.Text, _ = flags.GetString("query")
	opts.Query.File, _ = flags.GetString("query-file")
	opts.Query.HistoryFile = cfg.Query.HistoryFile

	if flags.Changed("query-history") {
		n, _ := flags.GetInt("query-history")
		if n == historyFromConfig {
			n = cfg.Query.HistoryLines
		}
		if n <= 0 {
			return opts, fmt.Errorf("--query-history needs a positive line count, got %d", n)
		}
		opts.Query.HistoryLines = n
	}

	return opts, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// Report prints err for the user and returns the process exit code.
func Report(w io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, prompt.ErrBudgetDeclined):
		fmt.Fprintln(w, "Aborted.")
		if errors.Is(err, prompt.ErrNotInteractive) {
			fmt.Fprintln(w, mutedStyle.Render("stdin is not a terminal; pass --yes or set budget.auto_confirm to send over-limit prompts"))
		}
		return 2
	case errors.Is(err, query.ErrConflictingSources):
		fmt.Fprintf(w, "Error: %v\n", err)
		fmt.Fprintln(w, mutedStyle.Render("Run 'aks --help' for usage."))
		return 1
	default:
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		return 1
	}
}

func addAskFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArrayP("exclude", "x", nil, "Glob pattern to exclude (repeatable)")
	f.Bool("all", false, "Include all files recursively (FILES become exclusions)")
	f.StringP("query", "q", "", "Your query about the codebase")
	f.StringP("query-file", "f", "", "Read the query from a file")
	f.IntP("query-history", "H", 0, "Use the last N shell history lines as the query (-H=N; bare -H uses query.history_lines)")
	f.Lookup("query-history").NoOptDefVal = fmt.Sprint(historyFromConfig)
	f.String("provider", "", "LLM provider (xai, openai, ollama, gemini)")
	f.String("model", "", "LLM model name")
	f.Int("limit", prompt.DefaultLimit, "Token budget before asking for confirmation")
	f.BoolP("yes", "y", false, "Send over-limit prompts without asking")
	f.Bool("no-cache", false, "Bypass the response cache")
	f.Bool("dry-run", false, "Stop after the budget report; nothing is sent")
	cmd.MarkFlagsMutuallyExclusive("query", "query-file", "query-history")
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", config.DefaultPath, "Path to the configuration file")
	pf.Bool("verbose", false, "Enable debug logging")

	addAskFlags(rootCmd)

	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
	configCmd.Flags().Bool("toml", false, "Print the configuration as TOML")
	cacheClearCmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")
	historyCmd.Flags().Bool("no-tui", false, "Print the history instead of opening the TUI")
	historyCmd.Flags().IntP("last", "n", 0, "Only show the last N entries")

	cacheCmd.AddCommand(cacheClearCmd)

	// Disable default help command
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
