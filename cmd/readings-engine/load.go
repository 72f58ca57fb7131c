// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/readings-engine/internal/extraction"
	"github.com/pdiddy/readings-engine/internal/load"
	"github.com/pdiddy/readings-engine/pkg/types"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Materialize the extraction log into a SQLite database",
	Long: `Load replays the extraction log into a relational SQLite database with
full-text search over item content. The database keeps its own replay
checkpoint, so repeated syncs only apply new extraction files.`,
}

// --- sync subcommand ---

var loadSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Apply new extraction files to the database",
	RunE:  runLoadSync,
}

func runLoadSync(cmd *cobra.Command, args []string) error {
	store, err := load.NewStore(databaseConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	logStore := extraction.NewStore(stringSetting(cmd, "index-dir", "extraction.index_dir"))
	_, err = store.Sync(context.Background(), logStore, os.Stdout)
	return err
}

// --- query subcommand ---

var loadQueryCmd = &cobra.Command{
	Use:   "query [terms]",
	Short: "Search materialized items with full-text search and filters",
	RunE:  runLoadQuery,
}

func runLoadQuery(cmd *cobra.Command, args []string) error {
	store, err := load.NewStore(databaseConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := load.QueryOptions{Query: strings.Join(args, " ")}
	opts.Section, _ = cmd.Flags().GetString("section")
	opts.Author, _ = cmd.Flags().GetString("author")
	opts.BookTitle, _ = cmd.Flags().GetString("book")
	opts.MaxResults, _ = cmd.Flags().GetInt("limit")

	if opts.IsEmpty() {
		return fmt.Errorf("provide search terms or a filter (--section, --author, --book)")
	}

	results, err := store.Query(context.Background(), opts)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range results {
		fmt.Printf("%s (%s %s) [%s]\n  %s\n",
			r.BookTitle, r.AuthorFirstName, r.AuthorLastName, r.Section, r.Content)
	}
	fmt.Fprintf(os.Stderr, "%d result(s)\n", len(results))
	return nil
}

// --- stats subcommand ---

var loadStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database row counts and the replay checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := load.NewStore(databaseConfig(cmd))
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.CollectStats(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("books:      %d\nitems:      %d\ncheckpoint: %s\n",
			stats.Books, stats.Items, stats.Checkpoint)
		return nil
	},
}

func databaseConfig(cmd *cobra.Command) types.DatabaseConfig {
	return types.DatabaseConfig{
		Path:       stringSetting(cmd, "db", "database.path"),
		MaxResults: intSetting(cmd, "limit", "database.max_results"),
	}
}

func init() {
	for _, c := range []*cobra.Command{loadSyncCmd, loadQueryCmd, loadStatsCmd} {
		c.Flags().String("db", "index/readings.db", "SQLite database file")
		c.Flags().Int("limit", 20, "maximum number of query results")
		loadCmd.AddCommand(c)
	}
	loadSyncCmd.Flags().String("index-dir", "index", "directory containing extraction files")
	loadQueryCmd.Flags().String("section", "", "filter by section label")
	loadQueryCmd.Flags().String("author", "", "filter by author last name")
	loadQueryCmd.Flags().String("book", "", "filter by book title")
	loadQueryCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(loadCmd)
}
