package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/bibhub/internal/names"
	"github.com/matsen/bibhub/internal/reference"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
//
// The database is an index over the library JSONL and can always be rebuilt
// from it; the full entry is stored as JSON alongside the searchable columns.
type DB struct {
	db *sql.DB
}

const selectEntryFields = `entry_json`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			doi TEXT,
			title TEXT,
			container_title TEXT,
			issued_year INTEGER,
			source TEXT,
			entry_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_entries_doi ON entries(doi) WHERE doi IS NOT NULL AND doi != '';

		-- Full-text search virtual table (standalone, not external content)
		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			id,
			title,
			abstract,
			authors_text,
			container_title,
			keywords,
			issued_year
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromJSONL clears the database and rebuilds it from a JSONL file.
func (d *DB) RebuildFromJSONL(jsonlPath string) (int, error) {
	entries, err := ReadAll(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}
	return d.Rebuild(entries)
}

// Rebuild replaces the database contents with entries in one transaction.
func (d *DB) Rebuild(entries []reference.Entry) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return 0, fmt.Errorf("clearing entries table: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM entries_fts"); err != nil {
		return 0, fmt.Errorf("clearing entries_fts table: %w", err)
	}

	entryStmt, err := tx.Prepare(`
		INSERT INTO entries (id, type, doi, title, container_title, issued_year, source, entry_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing entries insert: %w", err)
	}
	defer entryStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO entries_fts (id, title, abstract, authors_text, container_title, keywords, issued_year)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("marshaling %s: %w", e.ID, err)
		}

		year := sql.NullInt64{}
		if y, _, _ := e.Issued.Start(); y != 0 {
			year = sql.NullInt64{Int64: int64(y), Valid: true}
		}

		_, err = entryStmt.Exec(
			e.ID, e.Type,
			nullableStringValue(reference.NormalizeDOI(e.Get(reference.FieldDOI))),
			nullableStringValue(e.Get(reference.FieldTitle)),
			nullableStringValue(e.Get(reference.FieldContainerTitle)),
			year, nullableStringValue(e.Source()), string(data),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting entry %s: %w", e.ID, err)
		}

		yearText := ""
		if year.Valid {
			yearText = strconv.FormatInt(year.Int64, 10)
		}
		_, err = ftsStmt.Exec(
			e.ID, e.Get(reference.FieldTitle), e.Get(reference.FieldAbstract),
			formatAuthorsText(e), e.Get(reference.FieldContainerTitle),
			e.Get(reference.FieldKeyword), yearText,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return len(entries), nil
}

// formatAuthorsText creates a searchable text representation of all
// contributors.
func formatAuthorsText(e reference.Entry) string {
	var out []string
	for _, group := range [][]reference.Person{e.Author, e.Editor, e.Translator} {
		for _, p := range group {
			out = append(out, names.Serialize(p, names.StyleNatural))
		}
	}
	return strings.Join(out, ", ")
}

// GetByID retrieves an entry by its ID. Returns nil, nil when absent.
func (d *DB) GetByID(id string) (*reference.Entry, error) {
	row := d.db.QueryRow(`SELECT `+selectEntryFields+` FROM entries WHERE id = ?`, id)
	return scanEntry(row)
}

// GetByDOI retrieves an entry by normalized DOI. Returns nil, nil when absent.
func (d *DB) GetByDOI(doi string) (*reference.Entry, error) {
	row := d.db.QueryRow(`SELECT `+selectEntryFields+` FROM entries WHERE doi = ?`, reference.NormalizeDOI(doi))
	return scanEntry(row)
}

// Search performs a full-text search and returns matching entries.
func (d *DB) Search(query string, limit int) ([]reference.Entry, error) {
	return d.SearchWithFilters(SearchFilters{Keyword: query}, limit)
}

// SearchFilters contains optional filters for SearchWithFilters.
type SearchFilters struct {
	Keyword  string   // General keyword search across all text columns
	Authors  []string // Contributor names (AND logic, prefix matching)
	Title    string   // Search in title only (FTS)
	YearFrom int      // Minimum issued year (0 = no minimum)
	YearTo   int      // Maximum issued year (0 = no maximum)
	Type     string   // Exact canonical type
}

// SearchWithFilters performs a search with multiple optional filters.
// Returns entries matching ALL specified criteria (AND logic), ordered by id.
func (d *DB) SearchWithFilters(filters SearchFilters, limit int) ([]reference.Entry, error) {
	var ftsTerms []string
	var args []interface{}

	if q := prepareFTSQuery(filters.Keyword); q != "" {
		ftsTerms = append(ftsTerms, q)
	}
	if q := prepareFTSQuery(filters.Title); q != "" {
		ftsTerms = append(ftsTerms, "title:"+q)
	}
	for _, author := range filters.Authors {
		if q := prepareAuthorQuery(author); q != "" {
			ftsTerms = append(ftsTerms, "authors_text:"+q)
		}
	}

	var query string
	if len(ftsTerms) > 0 {
		query = `SELECT ` + selectEntryFields + `
			FROM entries
			WHERE id IN (SELECT id FROM entries_fts WHERE entries_fts MATCH ?)`
		args = append(args, strings.Join(ftsTerms, " AND "))
	} else {
		query = `SELECT ` + selectEntryFields + ` FROM entries WHERE 1=1`
	}

	if filters.YearFrom > 0 {
		query += " AND issued_year >= ?"
		args = append(args, filters.YearFrom)
	}
	if filters.YearTo > 0 {
		query += " AND issued_year <= ?"
		args = append(args, filters.YearTo)
	}
	if filters.Type != "" {
		query += " AND type = ?"
		args = append(args, filters.Type)
	}

	query += " ORDER BY id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// prepareAuthorQuery prepares a name for FTS5 search with prefix matching,
// so "Tim" matches "Timothy".
func prepareAuthorQuery(author string) string {
	parts := strings.Fields(author)
	if len(parts) == 0 {
		return ""
	}

	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		escaped := strings.ReplaceAll(part, "\"", "\"\"")
		terms = append(terms, "\""+escaped+"\"*")
	}

	// Use OR for multi-word author queries (match any part)
	return "(" + strings.Join(terms, " OR ") + ")"
}

// ListAll returns all entries ordered by id, optionally limited.
func (d *DB) ListAll(limit int) ([]reference.Entry, error) {
	query := `SELECT ` + selectEntryFields + ` FROM entries ORDER BY id`
	var args []interface{}

	if limit > 0 {
		query += " LIMIT ?"
		args = []interface{}{limit}
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Count returns the total number of entries.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count)
	return count, err
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*reference.Entry, error) {
	var data string
	if err := s.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var e reference.Entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, fmt.Errorf("parsing entry JSON: %w", err)
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]reference.Entry, error) {
	var entries []reference.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if e != nil {
			entries = append(entries, *e)
		}
	}
	return entries, rows.Err()
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// FTS5 uses double quotes for phrase matching
	if strings.ContainsAny(query, "\"*+-:(){}[]^~.,/") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}
