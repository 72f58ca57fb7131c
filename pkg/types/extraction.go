// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ExtractionType distinguishes a full scan from an incremental diff run.
type ExtractionType string

const (
	ExtractionFull        ExtractionType = "full"
	ExtractionIncremental ExtractionType = "incremental"
)

// ExtractionMetadata describes one extraction run. One record is written
// per extraction file.
type ExtractionMetadata struct {
	// Timestamp is the wall-clock time of the run, ISO-8601.
	Timestamp string `json:"timestamp" yaml:"timestamp"`

	// GitCommitHash is the repository HEAD the run extracted against.
	GitCommitHash string `json:"git_commit_hash" yaml:"git_commit_hash"`

	// GitCommitTimestamp is the committer timestamp of that commit, ISO-8601.
	GitCommitTimestamp string `json:"git_commit_timestamp" yaml:"git_commit_timestamp"`

	// ExtractionType is "full" or "incremental".
	ExtractionType ExtractionType `json:"extraction_type" yaml:"extraction_type"`

	// PreviousCommitHash is the checkpoint the diff was computed from.
	// Empty (null) for the first/full run.
	PreviousCommitHash string `json:"previous_commit_hash" yaml:"previous_commit_hash"`

	// NotesDirectory is the directory the notes were read from.
	NotesDirectory string `json:"notes_directory" yaml:"notes_directory"`
}

// ExtractionFile is one immutable log segment: run metadata plus the
// ordered list of item operations recorded in that run. Once written it
// is never edited.
type ExtractionFile struct {
	Metadata ExtractionMetadata `json:"extraction_metadata" yaml:"extraction_metadata"`
	Items    []Item             `json:"items" yaml:"items"`
}

// FileStatus classifies a file-level change between two commits.
type FileStatus string

const (
	StatusAdded    FileStatus = "A"
	StatusModified FileStatus = "M"
	StatusDeleted  FileStatus = "D"
)

// FileChange is one changed path from a diff between two commits.
// Transient: produced by the version-control provider, consumed by the
// change detector, never persisted.
type FileChange struct {
	// Path is relative to the repository root.
	Path string

	Status FileStatus
}
