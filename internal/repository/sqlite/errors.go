package sqlite

import (
	"errors"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/sakif/listmate/internal/apperror"
	"github.com/sakif/listmate/internal/validation"
)

// translate turns a UNIQUE constraint failure into an
// apperror.ConstraintViolation on the offending column. Other errors are
// returned unchanged.
func translate(err error) error {
	if !isUniqueViolation(err) {
		return err
	}
	return apperror.ConstraintViolation(violatedColumn(err), validation.MsgTaken)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// violatedColumn reads the column out of SQLite's message, e.g.
// "UNIQUE constraint failed: users.provider, users.uid" → "uid".
// For a composite key the last column names the conflict.
func violatedColumn(err error) string {
	msg := err.Error()
	idx := strings.LastIndex(msg, "constraint failed:")
	if idx < 0 {
		return "base"
	}
	cols := strings.Split(msg[idx+len("constraint failed:"):], ",")
	last := strings.TrimSpace(cols[len(cols)-1])
	if i := strings.IndexAny(last, " )"); i >= 0 {
		last = last[:i]
	}
	if _, col, ok := strings.Cut(last, "."); ok {
		return col
	}
	return last
}
