// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the readings-engine CLI: the
// extraction, log inspection, and database loading surface for a
// git-versioned reading notes archive.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the readings-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "readings-engine",
	Short: "Index reading notes from a git-versioned archive",
	Long: `readings-engine turns a git repository of markdown reading notes into a
durable, replayable change log. Git history is the source of truth: each
run diffs the repository against the last recorded commit and appends one
immutable extraction file describing exactly which note items were added,
updated, or deleted.

Downstream consumers (search indexes, databases, dashboards) replay the
extraction log to reconstruct current state.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./readings-engine.yaml or ~/.config/readings-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("readings-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "readings-engine"))
		}
	}

	viper.SetEnvPrefix("READINGS_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// stringSetting resolves a string setting: an explicitly set flag wins,
// then the config file / environment, then the flag default.
func stringSetting(cmd *cobra.Command, flag, key string) string {
	if cmd.Flags().Changed(flag) || !viper.IsSet(key) {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}
	return viper.GetString(key)
}

func intSetting(cmd *cobra.Command, flag, key string) int {
	if cmd.Flags().Changed(flag) || !viper.IsSet(key) {
		v, _ := cmd.Flags().GetInt(flag)
		return v
	}
	return viper.GetInt(key)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
