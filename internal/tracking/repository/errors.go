package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/nholding/trashinator/internal/tracking/domain"
)

// PostgreSQL SQLSTATE codes the repository translates.
const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
)

// translateError maps driver errors onto the domain error kinds. Errors the
// driver did not raise are returned unchanged.
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case pqUniqueViolation:
		if pqErr.Table != "waste_records" {
			return err
		}
		return fmt.Errorf("%w (%s)", domain.ErrDuplicateRecord, pqErr.Constraint)
	case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
		return fmt.Errorf("%w: %s", domain.ErrConcurrencyConflict, pqErr.Message)
	default:
		return err
	}
}
