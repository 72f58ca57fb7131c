// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extraction turns committed note changes into an append-only,
// content-addressed operation log. It owns the change detector, the
// extraction log store, the full/incremental orchestrator, and the
// replay helpers downstream consumers use to rebuild state.
package extraction

import (
	"github.com/pdiddy/readings-engine/internal/itemid"
	"github.com/pdiddy/readings-engine/pkg/types"
)

// ItemsFromBooks flattens parsed books into addressable items, computing
// each content-derived ID and tagging every item with op. Books with no
// sections and sections with no entries contribute nothing.
func ItemsFromBooks(books []types.Book, sourceFile string, op types.Operation) []types.Item {
	var items []types.Item
	for _, book := range books {
		for _, sec := range book.Sections {
			for _, content := range sec.Entries {
				items = append(items, types.Item{
					ID: itemid.Compute(
						book.Title, book.AuthorLastName, book.AuthorFirstName,
						sec.Name, content,
					),
					Operation:       op,
					BookTitle:       book.Title,
					AuthorFirstName: book.AuthorFirstName,
					AuthorLastName:  book.AuthorLastName,
					Section:         sec.Name,
					Content:         content,
					SourceFile:      sourceFile,
					DateRead:        book.DateRead,
				})
			}
		}
	}
	return items
}
