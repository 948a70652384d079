package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lapakbot/lapak/internal/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write a default configuration file",
	Long: `Write a configuration file populated with defaults.
Edit the file afterwards to set the AI provider API key, or export it
as LAPAK_AI_API_KEY.`,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)

	cfg := config.DefaultConfig()
	if err := loader.Save(cfg); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Configuration written.")
	fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
	return nil
}
