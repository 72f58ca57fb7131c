// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notes parses markdown note files into books, sections, and
// entries. Parsing works from bytes plus a logical filename so that
// historical file versions served out of git history never have to be
// written to disk first.
package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pdiddy/readings-engine/pkg/types"
)

// LineDater resolves the date a given source line was introduced,
// returning "" when unknown. The extraction stage binds one to git
// blame; a nil dater leaves DateRead empty.
type LineDater func(line string) string

// sectionNames are headings that mark a section even when written at
// book-title level ("# Notes" instead of "## Notes").
var sectionNames = map[string]bool{
	"terms": true, "notes": true, "excerpts": true, "threads": true,
	"ideas": true, "representations": true, "images": true,
	"same time": true, "thread": true, "note": true, "excerpt": true,
	"term": true,
}

// ParseFile reads and parses one note file from disk.
func ParseFile(path string, dater LineDater) ([]types.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading note file: %w", err)
	}
	return Parse(string(data), filepath.Base(path), dater), nil
}

// Parse extracts all books with their sections from note file content.
// sourceFile is the logical filename, used for author attribution. A
// file with no book headings yields an empty slice, never an error.
func Parse(content, sourceFile string, dater LineDater) []types.Book {
	first, last := AuthorFromFilename(sourceFile)

	var (
		books   []types.Book
		book    *types.Book
		section string
		entries []string
	)

	saveSection := func() {
		if book != nil && section != "" && len(entries) > 0 {
			book.Sections = append(book.Sections, types.Section{
				Name:    strings.ToLower(strings.TrimSpace(section)),
				Entries: entries,
			})
		}
		section = ""
		entries = nil
	}
	saveBook := func() {
		saveSection()
		if book != nil {
			books = append(books, *book)
		}
		book = nil
	}

	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "# ") && !strings.HasPrefix(line, "## "):
			title := strings.TrimSpace(line[2:])
			if sectionNames[strings.ToLower(title)] {
				// A section written at title level, not a new book.
				saveSection()
				section = title
				continue
			}

			saveBook()
			var dateRead string
			if dater != nil {
				dateRead = dater(line)
			}
			book = &types.Book{
				Title:           title,
				AuthorFirstName: first,
				AuthorLastName:  last,
				DateRead:        dateRead,
				SourceFile:      sourceFile,
			}

		case strings.HasPrefix(line, "## "):
			saveSection()
			section = strings.TrimSpace(line[3:])

		case book != nil && section != "":
			stripped := strings.TrimSpace(line)
			if stripped == "" {
				continue
			}
			switch {
			case strings.HasPrefix(line, "    ") && len(entries) > 0:
				// Indented continuation belongs to the previous entry.
				entries[len(entries)-1] += "\n" + stripped
			case strings.HasPrefix(stripped, "- "):
				entries = append(entries, stripped[2:])
			default:
				entries = append(entries, stripped)
			}
		}
	}
	saveBook()

	return books
}

// AuthorFromFilename derives author names from a note filename.
// The convention is last_name__first_name.md: a double underscore
// separates last from first name, single underscores are spaces, and
// each word is capitalized. Without a double underscore the whole stem
// is treated as the last name.
//
//	le_guin__ursula_k.md -> ("Ursula K", "Le Guin")
//	barth__john.md       -> ("John", "Barth")
func AuthorFromFilename(filename string) (first, last string) {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	if parts := strings.Split(stem, "__"); len(parts) == 2 {
		return capitalizeWords(parts[1]), capitalizeWords(parts[0])
	}
	return "", capitalizeWords(stem)
}

func capitalizeWords(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	r := []rune(strings.ToLower(w))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
