// Package sqlitestore is a worldstore.Backend keeping every collection in
// one SQLite table.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.mercari.io/worldstore"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var _ worldstore.Backend = (*Store)(nil)

//go:embed schema.sql
var schemaSQL string

// Store persists records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the database at path and creates the records table.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlitestore: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlitestore: ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// NewClient opens path and puts it behind a worldstore.Client.
func NewClient(path string) (worldstore.Client, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	return worldstore.NewClient(s), nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func (s *Store) FindByID(ctx context.Context, key worldstore.Key) (*worldstore.Record, error) {
	rec := &worldstore.Record{Key: key}
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT v, d FROM records WHERE collection = ? AND id = ?`,
		key.Collection, key.ID,
	).Scan(&rec.V, &rec.D)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, worldstore.ErrNoSuchRecord
	} else if err != nil {
		return nil, fmt.Errorf("sqlitestore: find %s: %w", key.String(), err)
	}
	return rec, nil
}

func (s *Store) Find(ctx context.Context, q *worldstore.Query) ([]*worldstore.Record, error) {
	var (
		where = []string{"collection = ?"}
		args  = []interface{}{q.Collection}
	)
	if len(q.IDs) != 0 {
		marks := make([]string, len(q.IDs))
		for idx, id := range q.IDs {
			marks[idx] = "?"
			args = append(args, id)
		}
		where = append(where, "id IN ("+strings.Join(marks, ", ")+")")
	}
	if q.StartAfter != "" {
		where = append(where, "id > ?")
		args = append(args, q.StartAfter)
	}
	if 0 < q.VersionBelow {
		where = append(where, "v < ?")
		args = append(args, q.VersionBelow)
	}
	stmt := "SELECT id, v, d FROM records WHERE " + strings.Join(where, " AND ") + " ORDER BY id"
	if 0 < q.Limit {
		stmt += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: find in %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var list []*worldstore.Record
	for rows.Next() {
		rec := &worldstore.Record{Key: worldstore.Key{Collection: q.Collection}}
		if err := rows.Scan(&rec.Key.ID, &rec.V, &rec.D); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan: %w", err)
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: find in %s: %w", q.Collection, err)
	}
	return list, nil
}

func (s *Store) Create(ctx context.Context, rec *worldstore.Record) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO records (collection, id, v, d) VALUES (?, ?, ?, ?)`,
		rec.Key.Collection, rec.Key.ID, rec.V, rec.D,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return worldstore.ErrRecordExists
		}
		return fmt.Errorf("sqlitestore: create %s: %w", rec.Key.String(), err)
	}
	return nil
}

func (s *Store) FindByIDAndUpdate(ctx context.Context, key worldstore.Key, rec *worldstore.Record, upsert bool) (*worldstore.Record, error) {
	var (
		res sql.Result
		err error
	)
	if upsert {
		res, err = s.sqlDB.ExecContext(ctx,
			`INSERT INTO records (collection, id, v, d) VALUES (?, ?, ?, ?)
			 ON CONFLICT (collection, id) DO UPDATE SET v = excluded.v, d = excluded.d`,
			key.Collection, key.ID, rec.V, rec.D,
		)
	} else {
		res, err = s.sqlDB.ExecContext(ctx,
			`UPDATE records SET v = ?, d = ? WHERE collection = ? AND id = ?`,
			rec.V, rec.D, key.Collection, key.ID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: update %s: %w", key.String(), err)
	}
	if !upsert {
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: update %s: %w", key.String(), err)
		}
		if n == 0 {
			return nil, worldstore.ErrNoSuchRecord
		}
	}

	stored := *rec
	stored.Key = key
	return &stored, nil
}

func (s *Store) Exists(ctx context.Context, key worldstore.Key) (bool, error) {
	var one int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT 1 FROM records WHERE collection = ? AND id = ?`,
		key.Collection, key.ID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("sqlitestore: exists %s: %w", key.String(), err)
	}
	return true, nil
}

func (s *Store) Delete(ctx context.Context, key worldstore.Key) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND id = ?`,
		key.Collection, key.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: delete %s: %w", key.String(), err)
	}
	return nil
}
