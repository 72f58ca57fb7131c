// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/readings-engine/pkg/types"
)

const (
	filePrefix = "extraction_"
	fileSuffix = ".json"
	lockFile   = ".extraction.lock"

	// filenameTimeLayout keeps lexicographic and chronological order
	// identical, so the latest checkpoint is the last name in a sorted
	// listing.
	filenameTimeLayout = "20060102_150405"
)

// ErrIndexLocked indicates another writer holds the index directory
// lock. The caller should retry the whole run later.
var ErrIndexLocked = errors.New("index directory locked by another writer")

// Store manages the append-only sequence of extraction files in one
// index directory. Reads are safe for concurrent consumers; Append
// serializes writers through an advisory lock file.
type Store struct {
	dir string
}

// NewStore returns a Store over the given index directory. The
// directory is created lazily on first append.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the index directory.
func (s *Store) Dir() string { return s.dir }

// Filename builds an extraction filename from a run timestamp and the
// commit it extracted: extraction_<YYYYMMDD_HHMMSS>_<commit7>.json.
func Filename(ts time.Time, commit string) string {
	return filePrefix + ts.Format(filenameTimeLayout) + "_" + shortHash(commit) + fileSuffix
}

// parseFilename extracts the timestamp and commit hash embedded in an
// extraction filename. ok is false for names outside the convention.
func parseFilename(name string) (ts time.Time, commit string, ok bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, "", false
	}
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)

	// <YYYYMMDD>_<HHMMSS>_<commit>
	parts := strings.Split(trimmed, "_")
	if len(parts) != 3 {
		return time.Time{}, "", false
	}
	ts, err := time.Parse(filenameTimeLayout, parts[0]+"_"+parts[1])
	if err != nil {
		return time.Time{}, "", false
	}
	return ts, parts[2], true
}

// ListChronological returns the paths of all valid extraction files in
// the index directory, oldest first. Names outside the filename
// convention are ignored. A missing directory yields an empty list.
func (s *Store) ListChronological() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading index directory %s: %w", s.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, _, ok := parseFilename(entry.Name()); ok {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(s.dir, name)
	}
	return paths, nil
}

// Latest reads the most recent extraction file, the checkpoint an
// incremental run resumes from. Unreadable files are skipped with a
// warning on w rather than failing the scan; they are never deleted.
// Returns (nil, "", nil) when no usable extraction exists, the trigger
// for a full run.
func (s *Store) Latest(w io.Writer) (*types.ExtractionFile, string, error) {
	paths, err := s.ListChronological()
	if err != nil {
		return nil, "", err
	}

	// Newest first; fall back past corrupt files.
	for i := len(paths) - 1; i >= 0; i-- {
		ef, err := ReadFile(paths[i])
		if err != nil {
			fmt.Fprintf(w, "warning: skipping unreadable extraction file %s: %v\n", filepath.Base(paths[i]), err)
			continue
		}
		return ef, paths[i], nil
	}
	return nil, "", nil
}

// Append atomically writes one new extraction file and returns its
// path. The file is written to a temporary name in the index directory
// and renamed into place, so readers never observe a partial file. A
// second concurrent writer gets ErrIndexLocked instead of a conflicting
// append.
func (s *Store) Append(meta types.ExtractionMetadata, items []types.Item) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating index directory: %w", err)
	}

	unlock, err := s.lock()
	if err != nil {
		return "", err
	}
	defer unlock()

	ts, err := time.Parse(time.RFC3339, meta.Timestamp)
	if err != nil {
		return "", fmt.Errorf("metadata timestamp %q: %w", meta.Timestamp, err)
	}

	data, err := json.MarshalIndent(types.ExtractionFile{Metadata: meta, Items: items}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding extraction file: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".extraction-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing extraction file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	final := filepath.Join(s.dir, Filename(ts.UTC(), meta.GitCommitHash))
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("publishing extraction file: %w", err)
	}
	return final, nil
}

// lock takes the advisory writer lock for the index directory. The
// returned func releases it.
func (s *Store) lock() (func(), error) {
	path := filepath.Join(s.dir, lockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrIndexLocked, path)
		}
		return nil, fmt.Errorf("taking index lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return func() { os.Remove(path) }, nil
}

// ReadFile reads and decodes one extraction file.
func ReadFile(path string) (*types.ExtractionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading extraction file: %w", err)
	}
	var ef types.ExtractionFile
	if err := json.Unmarshal(data, &ef); err != nil {
		return nil, fmt.Errorf("parsing extraction file %s: %w", filepath.Base(path), err)
	}
	return &ef, nil
}
