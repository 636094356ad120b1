package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"aks/internal/config"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default aks.toml in the current directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		force, _ := cmd.Flags().GetBool("force")

		if err := initializeProject(path, force); err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, successStyle.Render("aks initialized successfully!"))
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Created:\n  - %s    (configuration)\n\n", path)
		fmt.Fprintln(out, "Next steps:")
		fmt.Fprintf(out, "  1. Edit %s to pick a provider and model\n", path)
		fmt.Fprintln(out, "  2. Export XAI_API_KEY (or OPENAI_API_KEY, GEMINI_API_KEY), or put it in .env")
		fmt.Fprintln(out, `  3. Run 'aks -q "your question"'`)
		return nil
	},
}

func initializeProject(path string, force bool) error {
	if path == "" {
		path = config.DefaultPath
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return config.Save(config.Default(), path)
}
