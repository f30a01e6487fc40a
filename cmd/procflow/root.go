package main

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "procflow",
	Short:   "Embeddable process orchestration engine",
	Long:    "procflow deploys workflow definitions and executes their instances:\nactivities, guarded transitions, parallel joins, multi-instance\nreplication, called sub-workflows and timers.",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the YAML configuration file")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
