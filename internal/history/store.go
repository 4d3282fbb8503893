// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records every search run in a local SQLite database so
// past months can be listed and compared without querying the archives.
// Runs are written after a search completes and are never read back into
// a search.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/listsearch/pkg/types"
)

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Run is one stored search run.
type Run struct {
	ID         int64
	Author     string
	Emails     []string
	Year       int
	Month      time.Month
	Sources    []string
	Total      int
	Patched    int
	Replied    int
	Others     int
	Duplicates int
	Errors     []string
	CreatedAt  time.Time
}

// Message is one stored record of a run.
type Message struct {
	MessageID string
	Subject   string
	Date      time.Time
	Source    string
	Bucket    types.Bucket
}

// NewStore opens or creates the history database at path, creating parent
// directories and the schema as needed.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			author TEXT NOT NULL,
			emails TEXT NOT NULL,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL,
			sources TEXT,
			total INTEGER NOT NULL,
			patched INTEGER NOT NULL,
			replied INTEGER NOT NULL,
			others INTEGER NOT NULL,
			duplicates INTEGER NOT NULL,
			errors TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			message_id TEXT NOT NULL,
			subject TEXT NOT NULL,
			date TEXT,
			source TEXT,
			bucket TEXT NOT NULL,
			PRIMARY KEY (run_id, message_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_period ON runs(year, month)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

const dateFmt = "2006-01-02"

// SaveRun stores the request summary, report counts and every merged record
// in one transaction and returns the new run ID.
func (s *Store) SaveRun(ctx context.Context, req types.SearchRequest, rep types.Report, records map[string]types.EmailRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	emailsJSON, _ := json.Marshal(req.AuthorEmails)
	sources := make([]string, 0, len(req.Sources))
	for _, src := range req.Sources {
		sources = append(sources, src.String())
	}
	sourcesJSON, _ := json.Marshal(sources)
	errorsJSON, _ := json.Marshal(rep.SourceErrors)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (author, emails, year, month, sources, total, patched, replied, others, duplicates, errors, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.AuthorName, string(emailsJSON), req.Year, int(req.Month), string(sourcesJSON),
		rep.Total, rep.PatchedCount, rep.RepliedCount, rep.OthersCount, rep.DuplicatesDropped,
		string(errorsJSON), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	buckets := bucketsBySubject(rep)
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (run_id, message_id, subject, date, source, bucket) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for id, rec := range records {
		date := ""
		if rec.HasDate() {
			date = rec.Date.Format(dateFmt)
		}
		bucket, ok := buckets[rec.Subject]
		if !ok {
			bucket = types.BucketOthers
		}
		if _, err := stmt.ExecContext(ctx, runID, id, rec.Subject, date, rec.Source, string(bucket)); err != nil {
			return 0, fmt.Errorf("inserting message %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

func bucketsBySubject(rep types.Report) map[string]types.Bucket {
	m := make(map[string]types.Bucket)
	for _, agg := range rep.Patched {
		m[agg.Subject] = types.BucketPatched
	}
	for _, agg := range rep.Replied {
		m[agg.Subject] = types.BucketReplied
	}
	for _, agg := range rep.Others {
		m[agg.Subject] = types.BucketOthers
	}
	return m
}

// ListOptions filters ListRuns. Zero values match everything.
type ListOptions struct {
	Author string
	Year   int
	Month  time.Month
	Limit  int
}

// ListRuns returns stored runs, newest first.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if opts.Author != "" {
		where = append(where, "author = ?")
		args = append(args, opts.Author)
	}
	if opts.Year != 0 {
		where = append(where, "year = ?")
		args = append(args, opts.Year)
	}
	if opts.Month != 0 {
		where = append(where, "month = ?")
		args = append(args, int(opts.Month))
	}

	query := `SELECT id, author, emails, year, month, sources, total, patched, replied, others, duplicates, errors, created_at FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                            Run
			month                        int
			emails, sources, errs, stamp string
		)
		if err := rows.Scan(&r.ID, &r.Author, &emails, &r.Year, &month, &sources,
			&r.Total, &r.Patched, &r.Replied, &r.Others, &r.Duplicates, &errs, &stamp); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Month = time.Month(month)
		json.Unmarshal([]byte(emails), &r.Emails)
		json.Unmarshal([]byte(sources), &r.Sources)
		json.Unmarshal([]byte(errs), &r.Errors)
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, stamp)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Messages returns the stored records of a run ordered by date and subject.
func (s *Store) Messages(ctx context.Context, runID int64) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, subject, date, source, bucket FROM messages
		 WHERE run_id = ? ORDER BY date = '', date, subject`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var (
			m            Message
			date, bucket string
		)
		if err := rows.Scan(&m.MessageID, &m.Subject, &date, &m.Source, &bucket); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if date != "" {
			m.Date, _ = time.Parse(dateFmt, date)
		}
		m.Bucket = types.Bucket(bucket)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
