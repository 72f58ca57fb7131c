// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/readings-engine/internal/extraction"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Inspect the extraction log",
	Long: `Log reads the append-only extraction log. Use subcommands to list the
log segments in order, show the latest checkpoint, or replay the whole
log into the current item set.`,
}

var logListCmd = &cobra.Command{
	Use:   "list",
	Short: "List extraction files in chronological order",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := logStoreFromFlags(cmd)
		paths, err := store.ListChronological()
		if err != nil {
			return err
		}
		for _, path := range paths {
			fmt.Println(filepath.Base(path))
		}
		return nil
	},
}

var logLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent extraction and its commit checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := logStoreFromFlags(cmd)
		latest, path, err := store.Latest(os.Stderr)
		if err != nil {
			return err
		}
		if latest == nil {
			fmt.Println("no extractions recorded")
			return nil
		}
		fmt.Printf("%s\n  commit:   %s\n  type:     %s\n  items:    %d\n",
			filepath.Base(path), latest.Metadata.GitCommitHash,
			latest.Metadata.ExtractionType, len(latest.Items))
		return nil
	},
}

var logReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay the whole log and print the current item set",
	Long: `Replay applies every extraction file in chronological order and prints
the resulting item set as JSON. This is the same materialization
downstream consumers perform.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := logStoreFromFlags(cmd)
		items, err := store.Replay()
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	},
}

func logStoreFromFlags(cmd *cobra.Command) *extraction.Store {
	return extraction.NewStore(stringSetting(cmd, "index-dir", "extraction.index_dir"))
}

func init() {
	for _, c := range []*cobra.Command{logListCmd, logLatestCmd, logReplayCmd} {
		c.Flags().String("index-dir", "index", "directory containing extraction files")
		logCmd.AddCommand(c)
	}

	rootCmd.AddCommand(logCmd)
}
