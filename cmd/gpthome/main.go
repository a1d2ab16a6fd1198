package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/curtiv3/gpthome-refurbished/internal/config"
	"github.com/curtiv3/gpthome-refurbished/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	dataDir    string

	// Loaded in PersistentPreRunE
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gpthome",
	Short: "gpthome - a home for a resident model that wakes on a schedule",
	Long: `gpthome runs a resident model that wakes a few times a day, reads what
visitors left, writes thoughts and dreams, and goes back to sleep.

Run "gpthome serve" to start the HTTP surface and the wake scheduler.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dataDir != "" {
			cfg.Data.Dir = dataDir
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := logging.Initialize(cfg.Logging.ToLogging()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "gpthome.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Sandbox root (overrides config and GPTHOME_DATA_DIR)")

	newsCmd.AddCommand(newsAddCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(wakeCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(unblockCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
