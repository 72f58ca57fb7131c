// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Operation tags an item within one extraction run.
type Operation string

const (
	OpAdd    Operation = "add"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Item is the atomic unit of change tracking: one note or excerpt with
// its content-derived identity. Items are immutable values; a content
// change produces a different ID, never a mutated item.
type Item struct {
	// ID is the content-addressed identity: "sha256:" followed by the
	// hex digest over (book_title, author_last_name, author_first_name,
	// section, content). Identical inputs always yield the identical ID.
	ID string `json:"item_id" yaml:"item_id"`

	// Operation records how this item changed in the run it belongs to.
	Operation Operation `json:"operation" yaml:"operation"`

	// BookTitle is the title of the book the item was found under.
	BookTitle string `json:"book_title" yaml:"book_title"`

	// AuthorFirstName and AuthorLastName come from the note filename.
	AuthorFirstName string `json:"author_first_name" yaml:"author_first_name"`
	AuthorLastName  string `json:"author_last_name" yaml:"author_last_name"`

	// Section is the category label the item appeared under
	// (e.g. "notes", "excerpts").
	Section string `json:"section" yaml:"section"`

	// Content is the literal text of the note.
	Content string `json:"content" yaml:"content"`

	// SourceFile is the note filename the item came from.
	SourceFile string `json:"source_file" yaml:"source_file"`

	// DateRead is the ISO date the book was read, resolved from history.
	// Empty when unknown.
	DateRead string `json:"date_read,omitempty" yaml:"date_read,omitempty"`
}

// Book is the parsed structure of one book heading in a note file:
// metadata plus ordered sections of entries. Produced by the notes
// parser and flattened into Items by the extractor.
type Book struct {
	Title           string    `json:"title" yaml:"title"`
	AuthorFirstName string    `json:"author_first_name" yaml:"author_first_name"`
	AuthorLastName  string    `json:"author_last_name" yaml:"author_last_name"`
	DateRead        string    `json:"date_read,omitempty" yaml:"date_read,omitempty"`
	SourceFile      string    `json:"source_file" yaml:"source_file"`
	Sections        []Section `json:"sections" yaml:"sections"`
}

// Section is one category of entries within a Book. Section order and
// entry order follow the source file, keeping extraction deterministic.
type Section struct {
	Name    string   `json:"name" yaml:"name"`
	Entries []string `json:"entries" yaml:"entries"`
}
