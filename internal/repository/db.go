package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

// DBTX is the query surface shared by pgxpool.Pool, pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is a DBTX that can open transactions.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

const rowSavepoint = "conform_row"

// IsConstraintViolation reports whether err is an integrity constraint
// violation (SQLSTATE class 23).
func IsConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return strings.HasPrefix(pgErr.Code, "23")
}

// execUnderSavepoint runs one statement inside a savepoint. A constraint
// violation rolls back to the savepoint, leaving the enclosing transaction
// usable, and is returned as a CONSTRAINT_VIOLATION domain error.
func execUnderSavepoint(ctx context.Context, db DBTX, table, query string, args ...any) (int64, error) {
	if _, err := db.Exec(ctx, "SAVEPOINT "+rowSavepoint); err != nil {
		return 0, err
	}

	cmd, err := db.Exec(ctx, query, args...)
	if err != nil {
		if IsConstraintViolation(err) {
			if _, rbErr := db.Exec(ctx, "ROLLBACK TO SAVEPOINT "+rowSavepoint); rbErr != nil {
				return 0, rbErr
			}
			return 0, apperrors.NewConstraintError(table, err)
		}
		return 0, err
	}

	if _, err := db.Exec(ctx, "RELEASE SAVEPOINT "+rowSavepoint); err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
