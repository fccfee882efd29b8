package repositories

import (
	"errors"
	"strings"

	"boutique/internal/apperror"
	"boutique/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

const pgUniqueViolation = "23505"

// uniqueViolation extracts the offending column from a driver-level unique
// constraint error. Postgres reports the index name (idx_users_email), SQLite
// the qualified column (UNIQUE constraint failed: users.email).
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		name := pgErr.ConstraintName
		if i := strings.LastIndex(name, "_"); i >= 0 {
			name = name[i+1:]
		}
		return name, true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		msg := sqliteErr.Error()
		if i := strings.LastIndex(msg, ": "); i >= 0 {
			msg = msg[i+2:]
		}
		msg, _, _ = strings.Cut(msg, ",")
		if i := strings.LastIndex(msg, "."); i >= 0 {
			msg = msg[i+1:]
		}
		return strings.TrimSpace(msg), true
	}
	return "", false
}

// userConflict converts a unique violation on a user row into a ConflictError.
func userConflict(err error, user *models.User) (*apperror.ConflictError, bool) {
	field, ok := uniqueViolation(err)
	if !ok {
		return nil, false
	}
	ce := &apperror.ConflictError{Field: field}
	switch field {
	case "email":
		ce.Value = user.Email
	case "username":
		ce.Value = user.Username
	}
	return ce, true
}
