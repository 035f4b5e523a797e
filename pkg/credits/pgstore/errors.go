package pgstore

import (
	"errors"

	"github.com/dmitrymomot/creditkit/pkg/pg"
)

var (
	ErrQueryFailed = errors.New("pgstore: query failed")
	ErrScanFailed  = errors.New("pgstore: failed to scan row")
	// ErrConstraintViolation marks a unique or foreign key violation that an
	// ON CONFLICT clause did not absorb, e.g. a ledger row for an unknown user.
	ErrConstraintViolation = errors.New("pgstore: constraint violation")
)

func queryError(err error) error {
	if pg.IsDuplicateKeyError(err) || pg.IsForeignKeyViolationError(err) {
		return errors.Join(ErrQueryFailed, ErrConstraintViolation, err)
	}
	return errors.Join(ErrQueryFailed, err)
}
