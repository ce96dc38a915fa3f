// Package postgres provides the database/sql + github.com/lib/pq
// realizations of every repository port, one table per entity. Plain SQL
// text (no query builder framework), context-scoped queries, and one shared
// wrapErr helper translating driver errors into the apperrors taxonomy.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
)

// wrapErr classifies a database/sql error: sql.ErrNoRows becomes not-found
// (callers pass the entity/id for the message), a unique_violation becomes
// conflict, anything else becomes an internal failure.
func wrapErr(operation, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(entity, id)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return apperrors.Conflict(fmt.Sprintf("%s violates a uniqueness constraint", entity))
	}
	return apperrors.Wrap(apperrors.KindInternal, fmt.Sprintf("postgres %s %s failed", entity, operation), err)
}
