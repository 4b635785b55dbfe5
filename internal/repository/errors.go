// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"strings"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as deleting an
// event that already has paid tickets.
var ErrConflict = errors.New("conflict")

// MySQL error numbers surfaced in driver messages.
const (
	mysqlDuplicateEntry = "1062"
	mysqlNoReferenced   = "1452"
)

func isMySQLError(err error, code string) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), code)
}
