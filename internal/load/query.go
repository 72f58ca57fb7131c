// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package load

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// QueryOptions holds parameters for database queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string over item content.
	Query string

	// Section filters by section label (e.g. "notes", "excerpts").
	Section string

	// Author filters by author last name.
	Author string

	// BookTitle filters by exact book title.
	BookTitle string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Section == "" && q.Author == "" && q.BookTitle == ""
}

// QueryResult is one item with its book context.
type QueryResult struct {
	ItemID          string `json:"item_id"`
	BookTitle       string `json:"book_title"`
	AuthorFirstName string `json:"author_first_name"`
	AuthorLastName  string `json:"author_last_name"`
	Section         string `json:"section"`
	Content         string `json:"content"`
	SourceFile      string `json:"source_file"`
	DateRead        string `json:"date_read,omitempty"`
}

// Query searches materialized items with optional full-text search and
// structured filters. Full-text queries rank by relevance; filter-only
// queries sort by author, book, and section.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT i.id, b.title, b.author_first_name, b.author_last_name,
				i.section, i.content, i.source_file, i.date_read
			FROM items_fts
			JOIN items i ON i.rowid = items_fts.rowid
			JOIN books b ON i.book_id = b.id
			WHERE items_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT i.id, b.title, b.author_first_name, b.author_last_name,
				i.section, i.content, i.source_file, i.date_read
			FROM items i
			JOIN books b ON i.book_id = b.id
			WHERE 1=1`)
	}

	if opts.Section != "" {
		qb.WriteString(` AND i.section = ?`)
		args = append(args, opts.Section)
	}
	if opts.Author != "" {
		qb.WriteString(` AND b.author_last_name = ?`)
		args = append(args, opts.Author)
	}
	if opts.BookTitle != "" {
		qb.WriteString(` AND b.title = ?`)
		args = append(args, opts.BookTitle)
	}

	if useFTS {
		qb.WriteString(` ORDER BY items_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY b.author_last_name, b.title, i.section, i.rowid`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			r        QueryResult
			dateRead sql.NullString
		)
		if err := rows.Scan(&r.ItemID, &r.BookTitle, &r.AuthorFirstName, &r.AuthorLastName,
			&r.Section, &r.Content, &r.SourceFile, &dateRead); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		r.DateRead = dateRead.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// Stats summarizes the materialized database.
type Stats struct {
	Books      int    `json:"books"`
	Items      int    `json:"items"`
	Checkpoint string `json:"checkpoint,omitempty"`
}

// CollectStats returns row counts and the replay checkpoint.
func (s *Store) CollectStats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM books`).Scan(&st.Books); err != nil {
		return Stats{}, fmt.Errorf("counting books: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM items`).Scan(&st.Items); err != nil {
		return Stats{}, fmt.Errorf("counting items: %w", err)
	}
	checkpoint, err := s.Checkpoint(ctx)
	if err != nil {
		return Stats{}, err
	}
	st.Checkpoint = checkpoint
	return st, nil
}
