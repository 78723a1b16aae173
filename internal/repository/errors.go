package repository

import (
	"errors"
	"fmt"

	"github.com/astralune/dome-go/internal/domain"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrContention = errors.New("could not serialize access, retry")
)

// SeatsTakenError enumerates the requested seats that already have tickets.
// It wraps ErrConflict so callers can match either the sentinel or the
// coordinates.
type SeatsTakenError struct {
	Seats []domain.SeatRef
}

func (e *SeatsTakenError) Error() string {
	return fmt.Sprintf("seats already taken: %v", e.Seats)
}

func (e *SeatsTakenError) Unwrap() error { return ErrConflict }
