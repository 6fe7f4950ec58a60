package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

/*
// All time values are stored as unix microseconds.
// Video positions are stored in whole seconds.
*/

type Storage struct {
	db *sql.DB
}

// New opens sqlite database.
//
// Foreign keys are always enabled, transactions
// take the write lock on begin.
func New(storagePath string) (*Storage, error) {
	const op = "storage.sqlite.New"

	db, err := sql.Open("sqlite3", dsn(storagePath))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Stop() error {
	return s.db.Close()
}

func dsn(storagePath string) string {
	sep := "?"
	if strings.Contains(storagePath, "?") {
		sep = "&"
	}
	return storagePath + sep + "_foreign_keys=on&_txlock=immediate&_busy_timeout=5000"
}

type scanner interface {
	Scan(dest ...any) error
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMicro()
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func fromNullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

func fromNullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func fromNullTime(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.UnixMicro(n.Int64).UTC()
	return &t
}

func fromMicro(mus int64) time.Time {
	return time.UnixMicro(mus).UTC()
}
