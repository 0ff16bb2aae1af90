package shadow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-backed store.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

const selectColumns = `
	SELECT id, module_id, etag, admin, desired, reported,
		connection_state, created_at, updated_at
	FROM shadow_records`

// Get retrieves a record by ID and module ID.
func (s *SQLiteStore) Get(ctx context.Context, id, moduleID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ? AND module_id = ?`, id, moduleID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying shadow record: %w", err)
	}
	return rec, nil
}

// Update applies a merge patch to an existing record.
func (s *SQLiteStore) Update(ctx context.Context, id, moduleID string, patch *Patch, expectedToken string) (string, error) {
	if patch != nil && patch.ID != "" && patch.ID != id {
		return "", fmt.Errorf("%w: patch id %q does not match %q", ErrInvalidPatch, patch.ID, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx, selectColumns+` WHERE id = ? AND module_id = ?`, id, moduleID)
	current, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("querying shadow record: %w", err)
	}
	if expectedToken != "" && expectedToken != current.ConcurrencyToken {
		return "", ErrConcurrencyConflict
	}

	next := Apply(current, patch)
	next.UpdatedAt = s.now().UTC()
	next.ConcurrencyToken = uuid.NewString()

	cols, err := encodeColumns(next)
	if err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE shadow_records
		SET device_type = ?, site_id = ?, disabled = ?, etag = ?,
		    admin = ?, desired = ?, updated_at = ?
		WHERE id = ? AND module_id = ?`,
		cols.deviceType, cols.siteID, cols.disabled, next.ConcurrencyToken,
		cols.admin, cols.desired, next.UpdatedAt.Format(time.RFC3339Nano),
		id, moduleID,
	)
	if err != nil {
		return "", fmt.Errorf("updating shadow record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing shadow record: %w", err)
	}
	return next.ConcurrencyToken, nil
}

// Create inserts a new record built from patch.
func (s *SQLiteStore) Create(ctx context.Context, patch *Patch) (string, error) {
	if patch == nil || patch.ID == "" {
		return "", fmt.Errorf("%w: create requires an id", ErrInvalidPatch)
	}

	rec := Apply(nil, patch)
	now := s.now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.ConcurrencyToken = uuid.NewString()

	cols, err := encodeColumns(rec)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO shadow_records (
			id, module_id, device_type, site_id, disabled, etag,
			admin, desired, reported, connection_state, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?, ?)`,
		rec.ID, rec.ModuleID, cols.deviceType, cols.siteID, cols.disabled, rec.ConcurrencyToken,
		cols.admin, cols.desired,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return "", ErrAlreadyExists
		}
		return "", fmt.Errorf("inserting shadow record: %w", err)
	}
	return rec.ConcurrencyToken, nil
}

// Delete removes a record.
func (s *SQLiteStore) Delete(ctx context.Context, id, moduleID, expectedToken string) error {
	query := `DELETE FROM shadow_records WHERE id = ? AND module_id = ?`
	args := []any{id, moduleID}
	if expectedToken != "" {
		query += ` AND etag = ?`
		args = append(args, expectedToken)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting shadow record: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// Distinguish a stale token from a missing record.
	if expectedToken != "" {
		if _, err := s.Get(ctx, id, moduleID); err == nil {
			return ErrConcurrencyConflict
		}
	}
	return ErrNotFound
}

// List returns the records matching q.
func (s *SQLiteStore) List(ctx context.Context, q Query) ([]*Record, error) {
	var where []string
	var args []any
	if q.DeviceType != "" {
		where = append(where, "device_type = ?")
		args = append(args, q.DeviceType)
	}
	if q.SiteID != "" {
		where = append(where, "site_id = ?")
		args = append(args, q.SiteID)
	}
	if !q.IncludeDisabled {
		where = append(where, "disabled = 0")
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id, module_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying shadow records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning shadow record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shadow records: %w", err)
	}
	return records, nil
}

// Report applies agent-reported state to a record with MergeReported.
func (s *SQLiteStore) Report(ctx context.Context, id, moduleID string, reported Properties, connected *bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx, selectColumns+` WHERE id = ? AND module_id = ?`, id, moduleID)
	current, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("querying shadow record: %w", err)
	}

	if len(reported) > 0 {
		current.Reported = MergeReported(current.Reported, reported)
	}
	if connected != nil {
		current.ConnectionState = connected
	}

	cols, err := encodeColumns(current)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE shadow_records
		SET device_type = ?, site_id = ?, reported = ?, connection_state = ?, updated_at = ?
		WHERE id = ? AND module_id = ?`,
		cols.deviceType, cols.siteID, cols.reported, nullableBool(current.ConnectionState),
		s.now().UTC().Format(time.RFC3339Nano),
		id, moduleID,
	)
	if err != nil {
		return fmt.Errorf("updating reported state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reported state: %w", err)
	}
	return nil
}

// columns holds a record's encoded and denormalised column values.
type columns struct {
	deviceType string
	siteID     string
	disabled   int
	admin      []byte
	desired    []byte
	reported   []byte
}

func encodeColumns(rec *Record) (*columns, error) {
	if rec.Admin == nil {
		rec.Admin = Properties{}
	}

	admin, err := MarshalProperties(rec.Admin)
	if err != nil {
		return nil, fmt.Errorf("marshalling admin: %w", err)
	}
	desired, err := MarshalProperties(rec.Desired)
	if err != nil {
		return nil, fmt.Errorf("marshalling desired: %w", err)
	}
	reported, err := MarshalProperties(rec.Reported)
	if err != nil {
		return nil, fmt.Errorf("marshalling reported: %w", err)
	}

	cols := &columns{
		deviceType: rec.DeviceType(),
		siteID:     siteOf(rec),
		admin:      admin,
		desired:    desired,
		reported:   reported,
	}
	if b, ok := Bool(rec.Admin[AttrIsDisabled]); ok && b {
		cols.disabled = 1
	}
	return cols, nil
}

// siteOf returns the admin site, falling back to reported then desired.
func siteOf(rec *Record) string {
	for _, bag := range []Properties{rec.Admin, rec.Reported, rec.Desired} {
		if s, ok := bag[AttrSiteID].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(scanner rowScanner) (*Record, error) {
	var rec Record
	var admin, desired, reported []byte
	var connection sql.NullBool
	var createdAt, updatedAt string

	if err := scanner.Scan(
		&rec.ID, &rec.ModuleID, &rec.ConcurrencyToken,
		&admin, &desired, &reported,
		&connection, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if rec.Admin, err = UnmarshalProperties(admin); err != nil {
		return nil, fmt.Errorf("decoding admin: %w", err)
	}
	if rec.Admin == nil {
		rec.Admin = Properties{}
	}
	if rec.Desired, err = UnmarshalProperties(desired); err != nil {
		return nil, fmt.Errorf("decoding desired: %w", err)
	}
	if rec.Reported, err = UnmarshalProperties(reported); err != nil {
		return nil, fmt.Errorf("decoding reported: %w", err)
	}
	if connection.Valid {
		c := connection.Bool
		rec.ConnectionState = &c
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		rec.UpdatedAt = t
	}
	return &rec, nil
}

// nullableBool returns a sql.NullBool for optional bool pointers.
func nullableBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
