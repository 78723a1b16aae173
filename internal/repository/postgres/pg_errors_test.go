package postgres

import (
	"errors"
	"testing"

	"github.com/astralune/dome-go/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslateDBErr(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "no rows", in: pgx.ErrNoRows, want: repository.ErrNotFound},
		{name: "foreign key violation", in: &pgconn.PgError{Code: "23503"}, want: repository.ErrNotFound},
		{name: "unique violation", in: &pgconn.PgError{Code: "23505"}, want: repository.ErrConflict},
		{name: "serialization failure", in: &pgconn.PgError{Code: "40001"}, want: repository.ErrContention},
		{name: "deadlock", in: &pgconn.PgError{Code: "40P01"}, want: repository.ErrContention},
		{name: "lock timeout", in: &pgconn.PgError{Code: "55P03"}, want: repository.ErrContention},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translateDBErr(tt.in))
		})
	}
}

func TestTranslateDBErr_PassesThroughUnknown(t *testing.T) {
	err := errors.New("connection reset")
	assert.Equal(t, err, translateDBErr(err))

	pgErr := &pgconn.PgError{Code: "42P01"} // undefined_table
	assert.Equal(t, error(pgErr), translateDBErr(pgErr))
}

func TestWrapDBErr(t *testing.T) {
	err := wrapDBErr("postgres.BookingRepo.Create", pgx.ErrNoRows)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Contains(t, err.Error(), "postgres.BookingRepo.Create")

	assert.NoError(t, wrapDBErr("op", nil))
}
