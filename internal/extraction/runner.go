// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extraction

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/pdiddy/readings-engine/internal/gitrepo"
	"github.com/pdiddy/readings-engine/internal/notes"
	"github.com/pdiddy/readings-engine/pkg/types"
)

// RunStatus is the terminal state of one orchestrator invocation.
// A failed run is reported through the error return instead; it writes
// nothing, leaving the index directory exactly as it was.
type RunStatus string

const (
	// RunWritten means one new extraction file was appended.
	RunWritten RunStatus = "written"

	// RunNoOp means there was nothing to record: same commit as the
	// checkpoint, or no changes touching note items.
	RunNoOp RunStatus = "noop"
)

// Result reports what a run did.
type Result struct {
	Status RunStatus

	// Path is the appended extraction file, set when Status is RunWritten.
	Path string
}

// Runner drives full and incremental extraction runs end to end. It
// holds no state of its own beyond what the Store keeps on disk.
type Runner struct {
	cfg      types.ExtractionConfig
	repoRoot string
	provider gitrepo.Provider
	store    *Store
	detector *Detector

	// now is a seam for tests; defaults to time.Now.
	now func() time.Time
}

// NewRunner returns a Runner. repoRoot must be the root of the
// repository that provider operates on; cfg.NotesDir must lie inside it.
func NewRunner(cfg types.ExtractionConfig, repoRoot string, provider gitrepo.Provider, store *Store) *Runner {
	return &Runner{
		cfg:      cfg,
		repoRoot: repoRoot,
		provider: provider,
		store:    store,
		detector: NewDetector(provider),
		now:      time.Now,
	}
}

// RunFull parses every note file in the notes directory, tags every
// item as an add, and appends one extraction file with no previous
// checkpoint. The file is written even when no items were found, so the
// commit checkpoint exists for later incremental runs.
func (r *Runner) RunFull(ctx context.Context, w io.Writer) (Result, error) {
	head, err := r.provider.Head(ctx)
	if err != nil {
		return Result{}, err
	}
	commitTS, err := r.provider.CommitTimestamp(ctx, head)
	if err != nil {
		return Result{}, err
	}

	paths, err := filepath.Glob(filepath.Join(r.cfg.NotesDir, r.cfg.FilePattern))
	if err != nil {
		return Result{}, fmt.Errorf("scanning notes directory: %w", err)
	}
	sort.Strings(paths)

	var items []types.Item
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		rel, err := filepath.Rel(r.repoRoot, path)
		if err != nil {
			return Result{}, fmt.Errorf("resolving %s against repository root: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		dater := func(line string) string {
			date, _ := r.provider.LineAddedDate(ctx, head, rel, line)
			return date
		}
		books, err := notes.ParseFile(path, dater)
		if err != nil {
			return Result{}, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}

		fileItems := ItemsFromBooks(books, filepath.Base(path), types.OpAdd)
		fmt.Fprintf(w, "parsed  %s (%d items)\n", filepath.Base(path), len(fileItems))
		items = append(items, fileItems...)
	}

	path, err := r.append(types.ExtractionFull, head, commitTS, "", items)
	if err != nil {
		return Result{}, err
	}
	fmt.Fprintf(w, "full extraction: %d items -> %s\n", len(items), filepath.Base(path))
	return Result{Status: RunWritten, Path: path}, nil
}

// RunIncremental diffs the repository against the last checkpoint and
// appends one extraction file covering exactly what changed. Falls back
// to a full run when no checkpoint exists. No-ops, writing nothing, when
// the commit is unchanged or no change touches note items.
func (r *Runner) RunIncremental(ctx context.Context, w io.Writer) (Result, error) {
	latest, _, err := r.store.Latest(w)
	if err != nil {
		return Result{}, err
	}
	if latest == nil {
		fmt.Fprintln(w, "no previous extraction found, running full extraction")
		return r.RunFull(ctx, w)
	}
	prev := latest.Metadata.GitCommitHash

	head, err := r.provider.Head(ctx)
	if err != nil {
		return Result{}, err
	}
	if head == prev {
		fmt.Fprintf(w, "no new commits since %s\n", shortHash(prev))
		return Result{Status: RunNoOp}, nil
	}

	notesRel, err := filepath.Rel(r.repoRoot, r.cfg.NotesDir)
	if err != nil {
		return Result{}, fmt.Errorf("resolving notes directory against repository root: %w", err)
	}
	pattern := filepath.ToSlash(filepath.Join(notesRel, r.cfg.FilePattern))

	changes, err := r.provider.DiffNameStatus(ctx, prev, head, pattern)
	if err != nil {
		return Result{}, err
	}
	if len(changes) == 0 {
		fmt.Fprintf(w, "no note changes between %s and %s\n", shortHash(prev), shortHash(head))
		return Result{Status: RunNoOp}, nil
	}

	var items []types.Item
	for _, change := range changes {
		fmt.Fprintf(w, "%-8s %s\n", statusWord(change.Status), change.Path)
		ops, err := r.detector.DetectFile(ctx, change, prev, head, w)
		if err != nil {
			return Result{}, fmt.Errorf("detecting changes in %s: %w", change.Path, err)
		}
		items = append(items, ops...)
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "changed files produced no item operations")
		return Result{Status: RunNoOp}, nil
	}

	commitTS, err := r.provider.CommitTimestamp(ctx, head)
	if err != nil {
		return Result{}, err
	}

	path, err := r.append(types.ExtractionIncremental, head, commitTS, prev, items)
	if err != nil {
		return Result{}, err
	}
	fmt.Fprintf(w, "incremental extraction: %d operations -> %s\n", len(items), filepath.Base(path))
	return Result{Status: RunWritten, Path: path}, nil
}

func (r *Runner) append(kind types.ExtractionType, head, commitTS, prev string, items []types.Item) (string, error) {
	meta := types.ExtractionMetadata{
		Timestamp:          r.now().UTC().Format(time.RFC3339),
		GitCommitHash:      head,
		GitCommitTimestamp: commitTS,
		ExtractionType:     kind,
		PreviousCommitHash: prev,
		NotesDirectory:     r.cfg.NotesDir,
	}
	return r.store.Append(meta, items)
}

func statusWord(s types.FileStatus) string {
	switch s {
	case types.StatusAdded:
		return "added"
	case types.StatusDeleted:
		return "deleted"
	default:
		return "modified"
	}
}
