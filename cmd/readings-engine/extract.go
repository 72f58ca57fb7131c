// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/readings-engine/internal/extraction"
	"github.com/pdiddy/readings-engine/internal/gitrepo"
	"github.com/pdiddy/readings-engine/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract note changes into the append-only log",
	Long: `Extract diffs the notes repository against the last recorded commit and
appends one extraction file with the resulting add/update/delete
operations. The first run (or --full) scans every note file instead.

With no committed changes since the last run, extract is a no-op and
writes nothing.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("notes-dir", "notes", "directory containing markdown note files")
	extractCmd.Flags().String("index-dir", "index", "directory to append extraction files to")
	extractCmd.Flags().String("git-dir", "", "git repository root (default: auto-detect from notes-dir)")
	extractCmd.Flags().String("pattern", "*.md", "note file pattern")
	extractCmd.Flags().Duration("git-timeout", 30*time.Second, "timeout for each git call")
	extractCmd.Flags().Bool("full", false, "force a full re-extraction instead of incremental")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := extractionConfig(cmd)

	if info, err := os.Stat(cfg.NotesDir); err != nil || !info.IsDir() {
		return fmt.Errorf("notes directory %s does not exist", cfg.NotesDir)
	}

	repoRoot := cfg.GitDir
	if repoRoot == "" {
		root, err := gitrepo.FindRoot(cfg.NotesDir)
		if err != nil {
			return err
		}
		repoRoot = root
	}

	provider, err := gitrepo.New(repoRoot, cfg.GitTimeout)
	if err != nil {
		return err
	}

	runner := extraction.NewRunner(cfg, repoRoot, provider, extraction.NewStore(cfg.IndexDir))

	full, _ := cmd.Flags().GetBool("full")
	var result extraction.Result
	if full {
		result, err = runner.RunFull(context.Background(), os.Stdout)
	} else {
		result, err = runner.RunIncremental(context.Background(), os.Stdout)
	}
	if errors.Is(err, extraction.ErrIndexLocked) {
		return fmt.Errorf("another extraction is writing to %s, retry later: %w", cfg.IndexDir, err)
	}
	if err != nil {
		return err
	}

	if result.Status == extraction.RunNoOp {
		fmt.Println("nothing to extract")
	}
	return nil
}

func extractionConfig(cmd *cobra.Command) types.ExtractionConfig {
	timeout, _ := cmd.Flags().GetDuration("git-timeout")
	if viper.IsSet("extraction.git_timeout") && !cmd.Flags().Changed("git-timeout") {
		timeout = viper.GetDuration("extraction.git_timeout")
	}

	return types.ExtractionConfig{
		NotesDir:    stringSetting(cmd, "notes-dir", "extraction.notes_dir"),
		IndexDir:    stringSetting(cmd, "index-dir", "extraction.index_dir"),
		GitDir:      stringSetting(cmd, "git-dir", "extraction.git_dir"),
		FilePattern: stringSetting(cmd, "pattern", "extraction.file_pattern"),
		GitTimeout:  timeout,
	}
}
