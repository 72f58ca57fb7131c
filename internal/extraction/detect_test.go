// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extraction

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/readings-engine/internal/gitrepo"
	"github.com/pdiddy/readings-engine/pkg/types"
)

// fakeProvider serves file contents and metadata from memory, standing
// in for git across the extraction tests.
type fakeProvider struct {
	head       string
	timestamps map[string]string
	// files maps commit -> path -> content. A missing path reports
	// ErrNotFoundAtCommit like the real provider.
	files   map[string]map[string]string
	changes []types.FileChange
	// dates maps "commit|line" -> date for LineAddedDate.
	dates map[string]string
}

func (f *fakeProvider) Head(context.Context) (string, error) {
	return f.head, nil
}

func (f *fakeProvider) CommitTimestamp(_ context.Context, commit string) (string, error) {
	if ts, ok := f.timestamps[commit]; ok {
		return ts, nil
	}
	return "2025-01-10T12:00:00Z", nil
}

func (f *fakeProvider) DiffNameStatus(_ context.Context, _, _, _ string) ([]types.FileChange, error) {
	return f.changes, nil
}

func (f *fakeProvider) ShowFile(_ context.Context, commit, path string) (string, error) {
	content, ok := f.files[commit][path]
	if !ok {
		return "", fmt.Errorf("%s at %s: %w", path, commit, gitrepo.ErrNotFoundAtCommit)
	}
	return content, nil
}

func (f *fakeProvider) LineAddedDate(_ context.Context, commit, _, line string) (string, error) {
	return f.dates[commit+"|"+line], nil
}

const (
	commitPrev = "1111111111111111111111111111111111111111"
	commitHead = "2222222222222222222222222222222222222222"
)

func opsByKind(items []types.Item) map[types.Operation][]types.Item {
	byKind := make(map[types.Operation][]types.Item)
	for _, item := range items {
		byKind[item.Operation] = append(byKind[item.Operation], item)
	}
	return byKind
}

func TestDetectAddedFile(t *testing.T) {
	provider := &fakeProvider{
		files: map[string]map[string]string{
			commitHead: {"notes/barth__john.md": "# Book\n\n## Notes\n- n1\n- n2\n"},
		},
	}
	d := NewDetector(provider)

	items, err := d.DetectFile(context.Background(),
		types.FileChange{Path: "notes/barth__john.md", Status: types.StatusAdded},
		commitPrev, commitHead, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	for _, item := range items {
		if item.Operation != types.OpAdd {
			t.Errorf("operation = %q, want add", item.Operation)
		}
		if item.SourceFile != "barth__john.md" {
			t.Errorf("source file = %q", item.SourceFile)
		}
	}
}

func TestDetectDeletedFile(t *testing.T) {
	provider := &fakeProvider{
		files: map[string]map[string]string{
			commitPrev: {"notes/barth__john.md": "# Book\n\n## Notes\n- n1\n- n2\n- n3\n"},
		},
	}
	d := NewDetector(provider)

	items, err := d.DetectFile(context.Background(),
		types.FileChange{Path: "notes/barth__john.md", Status: types.StatusDeleted},
		commitPrev, commitHead, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	for _, item := range items {
		if item.Operation != types.OpDelete {
			t.Errorf("operation = %q, want delete", item.Operation)
		}
	}
}

func TestDetectDeletedFileMissingAtPrevious(t *testing.T) {
	// Inconsistent history: the deleted file was never at the
	// checkpoint. Warn and move on, nothing fatal.
	provider := &fakeProvider{files: map[string]map[string]string{}}
	d := NewDetector(provider)

	var warnings strings.Builder
	items, err := d.DetectFile(context.Background(),
		types.FileChange{Path: "notes/ghost__file.md", Status: types.StatusDeleted},
		commitPrev, commitHead, &warnings)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want none", len(items))
	}
	if !strings.Contains(warnings.String(), "warning") {
		t.Errorf("expected a warning, got %q", warnings.String())
	}
}

func TestDetectModifiedAddsAndDeletes(t *testing.T) {
	provider := &fakeProvider{
		files: map[string]map[string]string{
			commitPrev: {"notes/b.md": "# Book\n\n## Notes\n- keep\n- drop\n"},
			commitHead: {"notes/b.md": "# Book\n\n## Notes\n- keep\n- fresh\n"},
		},
	}
	d := NewDetector(provider)

	items, err := d.DetectFile(context.Background(),
		types.FileChange{Path: "notes/b.md", Status: types.StatusModified},
		commitPrev, commitHead, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}

	byKind := opsByKind(items)
	if len(byKind[types.OpAdd]) != 1 || byKind[types.OpAdd][0].Content != "fresh" {
		t.Errorf("adds = %+v", byKind[types.OpAdd])
	}
	if len(byKind[types.OpDelete]) != 1 || byKind[types.OpDelete][0].Content != "drop" {
		t.Errorf("deletes = %+v", byKind[types.OpDelete])
	}
	// "keep" is unchanged and must not appear at all.
	if len(items) != 2 {
		t.Errorf("got %d operations, want 2: %+v", len(items), items)
	}
}

func TestDetectModifiedUnchangedFileEmitsNothing(t *testing.T) {
	content := "# Book\n\n## Notes\n- same\n"
	provider := &fakeProvider{
		files: map[string]map[string]string{
			commitPrev: {"notes/b.md": content},
			commitHead: {"notes/b.md": content},
		},
	}
	d := NewDetector(provider)

	items, err := d.DetectFile(context.Background(),
		types.FileChange{Path: "notes/b.md", Status: types.StatusModified},
		commitPrev, commitHead, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("got %+v, want no operations", items)
	}
}

func TestDetectTitleChangeIsDeleteAddPair(t *testing.T) {
	// Fixing a typo in a book title replaces every item's identity:
	// delete old ids, add new ids, no updates.
	provider := &fakeProvider{
		files: map[string]map[string]string{
			commitPrev: {"notes/b.md": "# Teh Book\n\n## Notes\n- n1\n- n2\n"},
			commitHead: {"notes/b.md": "# The Book\n\n## Notes\n- n1\n- n2\n"},
		},
	}
	d := NewDetector(provider)

	items, err := d.DetectFile(context.Background(),
		types.FileChange{Path: "notes/b.md", Status: types.StatusModified},
		commitPrev, commitHead, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}

	byKind := opsByKind(items)
	if len(byKind[types.OpAdd]) != 2 || len(byKind[types.OpDelete]) != 2 {
		t.Fatalf("adds=%d deletes=%d, want 2 and 2", len(byKind[types.OpAdd]), len(byKind[types.OpDelete]))
	}
	if len(byKind[types.OpUpdate]) != 0 {
		t.Errorf("title change must not produce updates: %+v", byKind[types.OpUpdate])
	}
	for _, add := range byKind[types.OpAdd] {
		if add.BookTitle != "The Book" {
			t.Errorf("add title = %q", add.BookTitle)
		}
	}
	for _, del := range byKind[types.OpDelete] {
		if del.BookTitle != "Teh Book" {
			t.Errorf("delete title = %q", del.BookTitle)
		}
	}
}

func TestDetectDateDriftIsUpdate(t *testing.T) {
	// Same content, but the read-date resolves differently now:
	// identity is unchanged, so this is an update.
	content := "# Book\n\n## Notes\n- n1\n"
	provider := &fakeProvider{
		files: map[string]map[string]string{
			commitPrev: {"notes/b.md": content},
			commitHead: {"notes/b.md": content},
		},
		dates: map[string]string{
			commitPrev + "|# Book": "2024-01-01",
			commitHead + "|# Book": "2024-02-02",
		},
	}
	d := NewDetector(provider)

	items, err := d.DetectFile(context.Background(),
		types.FileChange{Path: "notes/b.md", Status: types.StatusModified},
		commitPrev, commitHead, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 1 || items[0].Operation != types.OpUpdate {
		t.Fatalf("got %+v, want one update", items)
	}
	if items[0].DateRead != "2024-02-02" {
		t.Errorf("update carries DateRead %q, want the current value", items[0].DateRead)
	}
}

func TestDetectModifiedMissingAtPreviousTreatsAllAsNew(t *testing.T) {
	provider := &fakeProvider{
		files: map[string]map[string]string{
			commitHead: {"notes/b.md": "# Book\n\n## Notes\n- n1\n"},
		},
	}
	d := NewDetector(provider)

	var warnings strings.Builder
	items, err := d.DetectFile(context.Background(),
		types.FileChange{Path: "notes/b.md", Status: types.StatusModified},
		commitPrev, commitHead, &warnings)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Operation != types.OpAdd {
		t.Fatalf("got %+v, want one add", items)
	}
	if !strings.Contains(warnings.String(), "warning") {
		t.Errorf("expected a warning, got %q", warnings.String())
	}
}
