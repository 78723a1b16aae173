package postgres

import (
	"errors"
	"fmt"

	"github.com/astralune/dome-go/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// translateDBErr maps driver errors to repository-level errors.
func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		// foreign_key_violation: the referenced row is missing
		case "23503":
			return repository.ErrNotFound
		// unique_violation
		case "23505":
			return repository.ErrConflict
		// serialization_failure, deadlock_detected, lock_not_available
		case "40001", "40P01", "55P03":
			return repository.ErrContention
		}
	}

	return err
}

// wrapDBErr translates err and wraps it with the operation name.
func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s:%w", op, translateDBErr(err))
}
