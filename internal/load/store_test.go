// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package load

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/readings-engine/internal/extraction"
	"github.com/pdiddy/readings-engine/internal/itemid"
	"github.com/pdiddy/readings-engine/pkg/types"
)

func makeItem(title, last, first, section, content string, op types.Operation) types.Item {
	return types.Item{
		ID:              itemid.Compute(title, last, first, section, content),
		Operation:       op,
		BookTitle:       title,
		AuthorFirstName: first,
		AuthorLastName:  last,
		Section:         section,
		Content:         content,
		SourceFile:      strings.ToLower(last) + ".md",
	}
}

func makeMeta(ts, commit, prev string) types.ExtractionMetadata {
	kind := types.ExtractionIncremental
	if prev == "" {
		kind = types.ExtractionFull
	}
	return types.ExtractionMetadata{
		Timestamp:          ts,
		GitCommitHash:      commit,
		GitCommitTimestamp: ts,
		ExtractionType:     kind,
		PreviousCommitHash: prev,
		NotesDirectory:     "notes",
	}
}

func testStores(t *testing.T) (*Store, *extraction.Store) {
	t.Helper()
	dir := t.TempDir()

	store, err := NewStore(types.DatabaseConfig{Path: filepath.Join(dir, "readings.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return store, extraction.NewStore(filepath.Join(dir, "index"))
}

func TestSyncAppliesExtractions(t *testing.T) {
	store, logStore := testStores(t)
	ctx := context.Background()

	items := []types.Item{
		makeItem("The Dispossessed", "Le Guin", "Ursula K", "notes", "An ambiguous utopia", types.OpAdd),
		makeItem("The Dispossessed", "Le Guin", "Ursula K", "excerpts", "You cannot buy the revolution.", types.OpAdd),
		makeItem("Lost in the Funhouse", "Barth", "John", "notes", "For whom is the funhouse fun?", types.OpAdd),
	}
	if _, err := logStore.Append(makeMeta("2025-01-10T10:00:00Z", "aaa1111", ""), items); err != nil {
		t.Fatal(err)
	}

	summary, err := store.Sync(ctx, logStore, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Applied != 1 || summary.Added != 3 {
		t.Fatalf("summary = %+v", summary)
	}

	stats, err := store.CollectStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Books != 2 || stats.Items != 3 {
		t.Errorf("stats = %+v, want 2 books and 3 items", stats)
	}
	if stats.Checkpoint != "aaa1111" {
		t.Errorf("checkpoint = %q", stats.Checkpoint)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	store, logStore := testStores(t)
	ctx := context.Background()

	items := []types.Item{makeItem("Book", "Barth", "John", "notes", "n1", types.OpAdd)}
	if _, err := logStore.Append(makeMeta("2025-01-10T10:00:00Z", "aaa1111", ""), items); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Sync(ctx, logStore, &strings.Builder{}); err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	summary, err := store.Sync(ctx, logStore, &out)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Applied != 0 {
		t.Errorf("second sync applied %d files, want 0", summary.Applied)
	}
	if !strings.Contains(out.String(), "up to date") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSyncResumesFromCheckpoint(t *testing.T) {
	store, logStore := testStores(t)
	ctx := context.Background()

	if _, err := logStore.Append(makeMeta("2025-01-10T10:00:00Z", "aaa1111", ""),
		[]types.Item{makeItem("Book", "Barth", "John", "notes", "n1", types.OpAdd)}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Sync(ctx, logStore, &strings.Builder{}); err != nil {
		t.Fatal(err)
	}

	if _, err := logStore.Append(makeMeta("2025-01-11T10:00:00Z", "bbb2222", "aaa1111"),
		[]types.Item{makeItem("Book", "Barth", "John", "notes", "n2", types.OpAdd)}); err != nil {
		t.Fatal(err)
	}

	summary, err := store.Sync(ctx, logStore, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Applied != 1 || summary.Added != 1 {
		t.Fatalf("summary = %+v, want exactly the new file applied", summary)
	}

	stats, err := store.CollectStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Items != 2 || stats.Checkpoint != "bbb2222" {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSyncDeleteAndOrphanBooks(t *testing.T) {
	store, logStore := testStores(t)
	ctx := context.Background()

	only := makeItem("Doomed Book", "Barth", "John", "notes", "only note", types.OpAdd)
	keeper := makeItem("Kept Book", "Calvino", "Italo", "notes", "stays", types.OpAdd)
	if _, err := logStore.Append(makeMeta("2025-01-10T10:00:00Z", "aaa1111", ""),
		[]types.Item{only, keeper}); err != nil {
		t.Fatal(err)
	}

	tombstone := only
	tombstone.Operation = types.OpDelete
	if _, err := logStore.Append(makeMeta("2025-01-11T10:00:00Z", "bbb2222", "aaa1111"),
		[]types.Item{tombstone}); err != nil {
		t.Fatal(err)
	}

	summary, err := store.Sync(ctx, logStore, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Deleted != 1 {
		t.Errorf("summary = %+v", summary)
	}

	// The book with no remaining items goes with its last item.
	stats, err := store.CollectStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Books != 1 || stats.Items != 1 {
		t.Errorf("stats = %+v, want 1 book and 1 item", stats)
	}
}

func TestSyncUpdateOverwrites(t *testing.T) {
	store, logStore := testStores(t)
	ctx := context.Background()

	item := makeItem("Book", "Barth", "John", "notes", "n1", types.OpAdd)
	if _, err := logStore.Append(makeMeta("2025-01-10T10:00:00Z", "aaa1111", ""),
		[]types.Item{item}); err != nil {
		t.Fatal(err)
	}

	updated := item
	updated.Operation = types.OpUpdate
	updated.DateRead = "2025-01-05"
	if _, err := logStore.Append(makeMeta("2025-01-11T10:00:00Z", "bbb2222", "aaa1111"),
		[]types.Item{updated}); err != nil {
		t.Fatal(err)
	}

	summary, err := store.Sync(ctx, logStore, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Added != 1 || summary.Updated != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	results, err := store.Query(ctx, QueryOptions{BookTitle: "Book"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].DateRead != "2025-01-05" {
		t.Errorf("results = %+v", results)
	}
}

func TestQueryFullTextAndFilters(t *testing.T) {
	store, logStore := testStores(t)
	ctx := context.Background()

	items := []types.Item{
		makeItem("The Dispossessed", "Le Guin", "Ursula K", "notes", "An ambiguous utopia on Anarres", types.OpAdd),
		makeItem("The Dispossessed", "Le Guin", "Ursula K", "excerpts", "You cannot buy the revolution.", types.OpAdd),
		makeItem("Invisible Cities", "Calvino", "Italo", "notes", "Cities and memory", types.OpAdd),
	}
	if _, err := logStore.Append(makeMeta("2025-01-10T10:00:00Z", "aaa1111", ""), items); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Sync(ctx, logStore, &strings.Builder{}); err != nil {
		t.Fatal(err)
	}

	results, err := store.Query(ctx, QueryOptions{Query: "utopia"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].BookTitle != "The Dispossessed" {
		t.Fatalf("full text: %+v", results)
	}

	results, err = store.Query(ctx, QueryOptions{Author: "Le Guin"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("author filter: %+v", results)
	}

	results, err = store.Query(ctx, QueryOptions{Author: "Le Guin", Section: "excerpts"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || !strings.Contains(results[0].Content, "revolution") {
		t.Errorf("combined filter: %+v", results)
	}

	results, err = store.Query(ctx, QueryOptions{Query: "memory", Author: "Le Guin"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("cross filter should exclude: %+v", results)
	}
}

func TestQueryMaxResults(t *testing.T) {
	store, logStore := testStores(t)
	ctx := context.Background()

	var items []types.Item
	for _, content := range []string{"n1", "n2", "n3", "n4", "n5"} {
		items = append(items, makeItem("Book", "Barth", "John", "notes", content, types.OpAdd))
	}
	if _, err := logStore.Append(makeMeta("2025-01-10T10:00:00Z", "aaa1111", ""), items); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Sync(ctx, logStore, &strings.Builder{}); err != nil {
		t.Fatal(err)
	}

	results, err := store.Query(ctx, QueryOptions{BookTitle: "Book", MaxResults: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestCheckpointEmptyDatabase(t *testing.T) {
	store, _ := testStores(t)

	checkpoint, err := store.Checkpoint(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if checkpoint != "" {
		t.Errorf("checkpoint = %q, want empty", checkpoint)
	}
}
