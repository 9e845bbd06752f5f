package dbctx

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// MaxAttempts bounds how often Transact replays a batch that lost a lock race.
const MaxAttempts = 3

// Transact runs fn in one transaction and replays it when the store reports
// a deadlock or serialization failure. Every attempt either commits or rolls
// back as a whole.
func Transact(ctx context.Context, db *gorm.DB, fn func(dbc Context) error) error {
	var err error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(Context{Ctx: ctx, Tx: tx})
		})
		if err == nil || !IsRetryable(err) || attempt == MaxAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt*25) * time.Millisecond):
		}
	}
	return err
}

// IsRetryable reports lock-race failures: Postgres serialization (40001),
// deadlock (40P01) and lock_not_available (55P03), or a busy SQLite file.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "40001", "40P01", "55P03":
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") || strings.Contains(msg, "database is locked")
}

// IsUniqueViolation reports a unique constraint failure on either driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "sqlstate 23505")
}
