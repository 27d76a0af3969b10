package scanlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tagbrain/internal/metadata"
	"tagbrain/internal/services"
)

// Type distinguishes automatic scans from manual fixes.
type Type int

const (
	TypeScan Type = 0
	TypeFix  Type = 1
)

func (t Type) String() string {
	switch t {
	case TypeFix:
		return "fix"
	default:
		return "scan"
	}
}

// Entry is one row of the scan log.
type Entry struct {
	ID            int64              `json:"id"`
	Type          Type               `json:"type"`
	CreatedAt     time.Time          `json:"created_at"`
	Success       bool               `json:"success"`
	Message       string             `json:"message,omitempty"`
	OldMetadata   *metadata.Metadata `json:"old_metadata,omitempty"`
	NewMetadata   *metadata.Metadata `json:"new_metadata,omitempty"`
	SourcePath    string             `json:"source_path"`
	TargetPath    string             `json:"target_path,omitempty"`
	AcoustIDScore *float64           `json:"acoustid_score,omitempty"`
	RetryCount    *int               `json:"retry_count,omitempty"`
	CorrelationID string             `json:"correlation_id,omitempty"`
}

const entryColumns = "id, type, created_at, success, message, old_metadata, new_metadata, source_path, target_path, acoustid_score, retry_count, correlation_id"

// Insert appends entry and returns its id. CreatedAt defaults to now.
func (s *Store) Insert(ctx context.Context, entry Entry) (int64, error) {
	if entry.SourcePath == "" {
		return 0, services.Wrap(services.ErrValidation, "scanlog", "insert", "source path is required", nil)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	oldJSON, err := encodeMetadata(entry.OldMetadata)
	if err != nil {
		return 0, err
	}
	newJSON, err := encodeMetadata(entry.NewMetadata)
	if err != nil {
		return 0, err
	}

	res, err := s.execWithRetry(ctx,
		`INSERT INTO log (type, created_at, success, message, old_metadata, new_metadata, source_path, target_path, acoustid_score, retry_count, correlation_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int(entry.Type),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(entry.Success),
		nullableString(entry.Message),
		oldJSON,
		newJSON,
		entry.SourcePath,
		nullableString(entry.TargetPath),
		nullableFloat(entry.AcoustIDScore),
		nullableInt(entry.RetryCount),
		nullableString(entry.CorrelationID),
	)
	if err != nil {
		return 0, fmt.Errorf("insert log entry: %w", err)
	}
	return res.LastInsertId()
}

// List returns one page of entries, newest first, plus the total row count.
// Pages are zero-based.
func (s *Store) List(ctx context.Context, limit, page int) ([]Entry, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if page < 0 {
		page = 0
	}
	entries, err := s.query(ctx,
		"SELECT "+entryColumns+" FROM log ORDER BY id DESC LIMIT ? OFFSET ?",
		limit, limit*page)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(*) FROM log").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count log entries: %w", err)
	}
	return entries, total, nil
}

// ListFailed returns every failed entry, newest first.
func (s *Store) ListFailed(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, "SELECT "+entryColumns+" FROM log WHERE success = 0 ORDER BY id DESC")
}

// Get returns the entry with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+entryColumns+" FROM log WHERE id = ?", id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "scanlog", "get", fmt.Sprintf("entry %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get log entry: %w", err)
	}
	return entry, nil
}

// Clear deletes entries and returns how many were removed. With keepFailed
// only successful entries are deleted.
func (s *Store) Clear(ctx context.Context, keepFailed bool) (int64, error) {
	query := "DELETE FROM log"
	if keepFailed {
		query += " WHERE success = 1"
	}
	res, err := s.execWithRetry(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("clear log: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}
