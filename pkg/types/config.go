// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ExtractionConfig holds settings for the extraction stage.
type ExtractionConfig struct {
	// NotesDir is the directory containing markdown note files.
	NotesDir string `json:"notes_dir" yaml:"notes_dir"`

	// IndexDir is the directory extraction files are appended to
	// (default "index").
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// GitDir is the repository root. Empty means auto-detect by walking
	// up from NotesDir.
	GitDir string `json:"git_dir,omitempty" yaml:"git_dir,omitempty"`

	// FilePattern restricts diffs and scans to matching note files
	// (default "*.md").
	FilePattern string `json:"file_pattern" yaml:"file_pattern"`

	// GitTimeout bounds each git subprocess call (default 30s).
	GitTimeout time.Duration `json:"git_timeout" yaml:"git_timeout"`
}

// DatabaseConfig holds settings for the relational loader.
type DatabaseConfig struct {
	// Path is the SQLite database file (default "index/readings.db").
	Path string `json:"path" yaml:"path"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// Config groups all stage configurations.
type Config struct {
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Database   DatabaseConfig   `json:"database" yaml:"database"`
}
