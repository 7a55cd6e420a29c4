package db

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQL error codes the handlers map to client errors.
const (
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeInvalidText         = "22P02"
	codeInvalidDatetime     = "22007"
	codeDatetimeOverflow    = "22008"
	codeNumericOutOfRange   = "22003"
)

// IsForeignKeyViolation reports whether err is a referential integrity failure.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

// IsInvalidInput reports whether the database rejected a value supplied by
// the caller.
func IsInvalidInput(err error) bool {
	return hasCode(err, codeCheckViolation, codeInvalidText, codeInvalidDatetime, codeDatetimeOverflow, codeNumericOutOfRange)
}

func hasCode(err error, codes ...string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	for _, c := range codes {
		if string(pqErr.Code) == c {
			return true
		}
	}
	return false
}
