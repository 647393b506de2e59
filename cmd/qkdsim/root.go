package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jaskrrish/qkdsim/internal/config"
)

var cfgFile string
var cfg *config.Config
var log = logrus.New()

// rootCmd is the base command when qkdsim is invoked without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "qkdsim",
	Short: "BB84 quantum key distribution simulator",
	Long: `qkdsim simulates the BB84 quantum key distribution protocol end to
end: photon generation and transmission through a noisy, lossy channel,
detection, sifting, error estimation, classical reconciliation, privacy
amplification, and optional eavesdropping and decoy-state analysis.`,
}

// Execute runs the root command; called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.qkdsim.yaml)")
}

func initConfig() {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg = loaded

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
}
