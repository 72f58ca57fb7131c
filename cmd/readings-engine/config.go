// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

const defaultConfigFile = "readings-engine.yaml"

// fileConfig is the on-disk representation of the configuration.
// Durations are stored in string form ("30s") so the file stays
// hand-editable.
type fileConfig struct {
	Extraction extractionSettings `yaml:"extraction"`
	Database   databaseSettings   `yaml:"database"`
}

type extractionSettings struct {
	NotesDir    string `yaml:"notes_dir"`
	IndexDir    string `yaml:"index_dir"`
	GitDir      string `yaml:"git_dir,omitempty"`
	FilePattern string `yaml:"file_pattern"`
	GitTimeout  string `yaml:"git_timeout"`
}

type databaseSettings struct {
	Path       string `yaml:"path"`
	MaxResults int    `yaml:"max_results"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Extraction: extractionSettings{
			NotesDir:    "notes",
			IndexDir:    "index",
			FilePattern: "*.md",
			GitTimeout:  (30 * time.Second).String(),
		},
		Database: databaseSettings{
			Path:       "index/readings.db",
			MaxResults: 20,
		},
	}
}

// effectiveFileConfig overlays config file and environment values onto
// the defaults, mirroring what the extract and load commands resolve.
func effectiveFileConfig() fileConfig {
	cfg := defaultFileConfig()

	if viper.IsSet("extraction.notes_dir") {
		cfg.Extraction.NotesDir = viper.GetString("extraction.notes_dir")
	}
	if viper.IsSet("extraction.index_dir") {
		cfg.Extraction.IndexDir = viper.GetString("extraction.index_dir")
	}
	if viper.IsSet("extraction.git_dir") {
		cfg.Extraction.GitDir = viper.GetString("extraction.git_dir")
	}
	if viper.IsSet("extraction.file_pattern") {
		cfg.Extraction.FilePattern = viper.GetString("extraction.file_pattern")
	}
	if viper.IsSet("extraction.git_timeout") {
		cfg.Extraction.GitTimeout = viper.GetDuration("extraction.git_timeout").String()
	}
	if viper.IsSet("database.path") {
		cfg.Database.Path = viper.GetString("database.path")
	}
	if viper.IsSet("database.max_results") {
		cfg.Database.MaxResults = viper.GetInt("database.max_results")
	}
	return cfg
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and scaffold configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := effectiveFileConfig()
		data, err := yaml.Marshal(&cfg)
		if err != nil {
			return fmt.Errorf("marshaling configuration: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a " + defaultConfigFile + " with default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			return fmt.Errorf("%s already exists, refusing to overwrite", defaultConfigFile)
		}

		cfg := defaultFileConfig()
		data, err := yaml.Marshal(&cfg)
		if err != nil {
			return fmt.Errorf("marshaling configuration: %w", err)
		}
		if err := os.WriteFile(defaultConfigFile, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", defaultConfigFile, err)
		}
		fmt.Println("Wrote", defaultConfigFile)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
