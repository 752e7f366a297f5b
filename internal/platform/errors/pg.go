package errors

import (
	stderrs "errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes the ledger can hit
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
	pgStringTruncation    = "22001"
	pgInvalidText         = "22P02"
	pgSerialization       = "40001"
	pgDeadlock            = "40P01"
	pgReadOnly            = "25006"
	pgCannotConnectNow    = "57P03"
	pgUndefinedTable      = "42P01"
)

// DBErrorCode maps a Postgres error to an ErrorCode
// ok is false when err carries no PgError
func DBErrorCode(err error) (code ErrorCode, ok bool) {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeUnknown, false
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return ErrorCodeDuplicateKey, true
	case pgForeignKeyViolation, pgStringTruncation, pgInvalidText:
		return ErrorCodeInvalidArgument, true
	case pgNotNullViolation, pgCheckViolation:
		return ErrorCodeValidation, true
	case pgReadOnly, pgCannotConnectNow, pgSerialization, pgDeadlock:
		return ErrorCodeUnavailable, true
	case pgUndefinedTable:
		// ledger tables are created by nhanes-prep run --ensure-schema
		return ErrorCodeUnavailable, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err with its mapped code; nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	if code, ok := DBErrorCode(err); ok {
		return Wrap(err, code, msg)
	}
	return Wrap(err, ErrorCodeDB, msg)
}
