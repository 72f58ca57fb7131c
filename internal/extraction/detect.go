// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pdiddy/readings-engine/internal/gitrepo"
	"github.com/pdiddy/readings-engine/internal/notes"
	"github.com/pdiddy/readings-engine/pkg/types"
)

// Detector computes per-item operations for one changed file by
// comparing its parsed contents at two commits. File contents come from
// the provider, never the working tree, so a run is a pure function of
// the two commits it records.
type Detector struct {
	provider gitrepo.Provider
}

// NewDetector returns a Detector backed by the given provider.
func NewDetector(provider gitrepo.Provider) *Detector {
	return &Detector{provider: provider}
}

// DetectFile computes add/update/delete operations for a single changed
// file between prevCommit and headCommit. Warnings about inconsistent
// history go to w; they do not fail the run.
func (d *Detector) DetectFile(ctx context.Context, change types.FileChange, prevCommit, headCommit string, w io.Writer) ([]types.Item, error) {
	switch change.Status {
	case types.StatusAdded:
		items, err := d.itemsAtCommit(ctx, headCommit, change.Path, types.OpAdd)
		if err != nil {
			return nil, err
		}
		return items, nil

	case types.StatusDeleted:
		items, err := d.itemsAtCommit(ctx, prevCommit, change.Path, types.OpDelete)
		if errors.Is(err, gitrepo.ErrNotFoundAtCommit) {
			// The file is gone now and was never at the checkpoint
			// either: nothing to record.
			fmt.Fprintf(w, "warning: %s absent at %s, skipping delete\n", change.Path, shortHash(prevCommit))
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return items, nil

	case types.StatusModified:
		current, err := d.itemsAtCommit(ctx, headCommit, change.Path, types.OpAdd)
		if err != nil {
			return nil, err
		}

		previous, err := d.itemsAtCommit(ctx, prevCommit, change.Path, types.OpDelete)
		if errors.Is(err, gitrepo.ErrNotFoundAtCommit) {
			fmt.Fprintf(w, "warning: %s absent at %s, treating all items as new\n", change.Path, shortHash(prevCommit))
			previous = nil
		} else if err != nil {
			return nil, err
		}

		return diffItemSets(previous, current), nil
	}

	return nil, fmt.Errorf("unknown change status %q for %s", change.Status, change.Path)
}

// itemsAtCommit reads, parses, and flattens one file version. The line
// dater is bound to the same commit so both sides of a comparison
// resolve read-dates identically.
func (d *Detector) itemsAtCommit(ctx context.Context, commit, path string, op types.Operation) ([]types.Item, error) {
	content, err := d.provider.ShowFile(ctx, commit, path)
	if err != nil {
		return nil, err
	}

	dater := func(line string) string {
		date, _ := d.provider.LineAddedDate(ctx, commit, path, line)
		return date
	}

	books := notes.Parse(content, filepath.Base(path), dater)
	return ItemsFromBooks(books, filepath.Base(path), op), nil
}

// diffItemSets compares two versions of the same file, keyed by item ID.
// IDs only in current become adds, IDs only in previous become deletes,
// and IDs in both become updates when a non-identity field (date_read,
// source_file) drifted. Content changes never produce updates: content
// is part of the ID, so they surface as a delete/add pair.
func diffItemSets(previous, current []types.Item) []types.Item {
	prevByID := make(map[string]types.Item, len(previous))
	for _, item := range previous {
		prevByID[item.ID] = item
	}
	currByID := make(map[string]struct{}, len(current))
	for _, item := range current {
		currByID[item.ID] = struct{}{}
	}

	var ops []types.Item
	for _, item := range current {
		prev, ok := prevByID[item.ID]
		if !ok {
			item.Operation = types.OpAdd
			ops = append(ops, item)
			continue
		}
		if item.DateRead != prev.DateRead || item.SourceFile != prev.SourceFile {
			item.Operation = types.OpUpdate
			ops = append(ops, item)
		}
	}
	for _, item := range previous {
		if _, ok := currByID[item.ID]; !ok {
			item.Operation = types.OpDelete
			ops = append(ops, item)
		}
	}
	return ops
}

func shortHash(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
