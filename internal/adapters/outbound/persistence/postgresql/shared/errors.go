package shared

import (
	"context"
	"database/sql/driver"
	stderrors "errors"
	"net"

	apperrors "housebalance/internal/shared_kernel/errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgSerializationFailed = "40001"
	pgDeadlockDetected    = "40P01"
)

// StoreError classifies a database failure. Connectivity problems and
// timeouts are reported as unavailable so callers can retry later.
func StoreError(code, message string, err error) *apperrors.AppError {
	details := map[string]any{"error": err.Error()}
	if IsConnectivityError(err) {
		return apperrors.NewUnavailable(code, message, details)
	}
	return apperrors.NewInternal(code, message, details)
}

func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, driver.ErrBadConn) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if stderrors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailed || pgErr.Code == pgDeadlockDetected
	}
	return false
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !stderrors.As(err, &pgErr) {
		return false
	}

	return pgErr.Code == pgUniqueViolation
}

func UniqueViolationConstraint(err error) string {
	var pgErr *pgconn.PgError
	if !stderrors.As(err, &pgErr) {
		return ""
	}
	return pgErr.ConstraintName
}
