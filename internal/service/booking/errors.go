package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/astralune/dome-go/internal/domain"
)

var (
	ErrNoTickets      = errors.New("no tickets requested")
	ErrBatchTooLarge  = errors.New("too many tickets in one reservation")
	ErrSeasonNotFound = errors.New("show season not found")
	ErrSeatsTaken     = errors.New("some seats are already taken")
	ErrContention     = errors.New("booking contention, retry")
)

// SeatsTakenError names every requested seat that is already booked.
type SeatsTakenError struct {
	Seats []domain.SeatRef
}

func (e *SeatsTakenError) Error() string {
	return fmt.Sprintf("seats already taken: %v", e.Seats)
}

func (e *SeatsTakenError) Unwrap() error { return ErrSeatsTaken }

// RateLimitedError tells the client when it may retry.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}
