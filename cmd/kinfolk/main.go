package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/kinfolk/internal/config"
	"github.com/dukerupert/kinfolk/internal/logging"
)

var (
	// configFile is set by the --config flag.
	configFile string

	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kinfolk",
	Short: "Kinfolk keeps track of people, households and their photos",
	Long: `Kinfolk is a small JSON API for managing people, the households they
belong to and the images attached to both.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./kinfolk.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	cfg = c
	logger = logging.Setup(cfg.LogLevel, cfg.LogFormat)
	return nil
}
