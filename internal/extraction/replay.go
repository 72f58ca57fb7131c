// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extraction

import (
	"fmt"
	"sort"

	"github.com/pdiddy/readings-engine/pkg/types"
)

// Replay folds every extraction file in chronological order into the
// current item set: adds and updates overwrite by ID, deletes remove.
// Unlike checkpoint scanning, a corrupt file here is fatal: consumers
// depend on a complete replay for correctness.
func (s *Store) Replay() ([]types.Item, error) {
	paths, err := s.ListChronological()
	if err != nil {
		return nil, err
	}

	state := make(map[string]types.Item)
	order := make(map[string]int)
	next := 0

	for _, path := range paths {
		ef, err := ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		for _, item := range ef.Items {
			switch item.Operation {
			case types.OpAdd, types.OpUpdate:
				if _, ok := state[item.ID]; !ok {
					order[item.ID] = next
					next++
				}
				state[item.ID] = item
			case types.OpDelete:
				delete(state, item.ID)
				delete(order, item.ID)
			}
		}
	}

	items := make([]types.Item, 0, len(state))
	for _, item := range state {
		items = append(items, item)
	}
	// First-seen order keeps replay output deterministic.
	sort.Slice(items, func(i, j int) bool {
		return order[items[i].ID] < order[items[j].ID]
	})
	return items, nil
}

// ExtractionsSince returns the extraction files recorded after the one
// whose commit hash equals checkpoint, in chronological order. This is
// the resume path for consumers that track the last commit they fully
// applied. An unknown checkpoint returns everything.
func (s *Store) ExtractionsSince(checkpoint string) ([]*types.ExtractionFile, error) {
	paths, err := s.ListChronological()
	if err != nil {
		return nil, err
	}

	all := make([]*types.ExtractionFile, 0, len(paths))
	for _, path := range paths {
		ef, err := ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		all = append(all, ef)
	}

	if checkpoint == "" {
		return all, nil
	}
	for i, ef := range all {
		if ef.Metadata.GitCommitHash == checkpoint {
			return all[i+1:], nil
		}
	}
	// Checkpoint not in the log (e.g. consumer predates a wipe): replay
	// everything rather than silently skipping history.
	return all, nil
}
