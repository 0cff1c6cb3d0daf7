package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/multifamily-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "multifamily-cli",
	Short: "Philadelphia multifamily rent and cash-flow analyzer",
	Long:  "Prices each unit of a small multifamily property at the PHA payment standard for its ZIP code and projects financing, operating income, and returns.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
