package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	retryInitialInterval = 50 * time.Millisecond
	retryMaxInterval     = 500 * time.Millisecond
	retryMaxRetries      = uint64(3)
)

// IsRetryableError checks if the given error is transient.
// The caller's deadline is final, an expired context is never retried.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	// PostgreSQL connection (08), serialization (40), resource (53) and operator (57) classes
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		switch {
		case strings.HasPrefix(pgerr.Code, "08"),
			pgerr.Code == "40001", // serialization_failure
			pgerr.Code == "40P01", // deadlock_detected
			strings.HasPrefix(pgerr.Code, "53"),
			pgerr.Code == "57P01", // admin_shutdown
			pgerr.Code == "57P03", // cannot_connect_now
			pgerr.Code == "55P03": // lock_not_available
			return true
		default:
			return false
		}
	}

	// MySQL lock wait timeout and deadlock
	var myerr *mysql.MySQLError
	if errors.As(err, &myerr) {
		return myerr.Number == 1205 || myerr.Number == 1213
	}

	errMsg := err.Error()
	if strings.Contains(errMsg, "database is locked") ||
		strings.Contains(errMsg, "database table is locked") ||
		strings.Contains(errMsg, "connection reset by peer") ||
		strings.Contains(errMsg, "broken pipe") ||
		strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "bad connection") ||
		strings.Contains(errMsg, "i/o timeout") ||
		strings.Contains(errMsg, "EOF") {
		return true
	}

	return false
}

// retryRead runs a read until it succeeds, fails permanently or the context ends.
func retryRead[T any](ctx context.Context, operation func(context.Context) (T, error)) (T, error) {
	var (
		result  T
		lastErr error
	)

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(retryInitialInterval),
		backoff.WithMaxInterval(retryMaxInterval),
	), retryMaxRetries)

	err := backoff.Retry(func() error {
		var err error

		result, err = operation(ctx)
		if err != nil {
			lastErr = err
			if !IsRetryableError(err) {
				return backoff.Permanent(err)
			}

			return err
		}

		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		if lastErr != nil {
			return result, lastErr
		}

		return result, err
	}

	return result, nil
}
