// Package booking implements the reservation engine: batch seat booking that
// either commits every requested ticket or none of them.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/astralune/dome-go/internal/domain"
	"github.com/astralune/dome-go/internal/repository"
)

// SeasonResolver resolves the dome whose geometry governs a season.
type SeasonResolver interface {
	DomeForSeason(ctx context.Context, seasonID int64) (*domain.PlanetariumDome, error)
}

// ReservationStore persists reservation batches atomically. CreateReservation
// must guarantee that concurrent batches for overlapping seats cannot both
// commit: at most one wins, the rest observe *repository.SeatsTakenError or
// repository.ErrConflict.
type ReservationStore interface {
	CreateReservation(ctx context.Context, userID int64, reqs []domain.TicketRequest, lockTimeout time.Duration) (*domain.ReservationWithTickets, error)
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.ReservationWithTickets, error)
}

type Limiter interface {
	Allow(ctx context.Context, suffix string) (bool, int64, time.Duration, error)
}

type SeasonCache interface {
	InvalidateSeason(ctx context.Context, seasonID int64) error
}

type ChangePublisher interface {
	PublishSeasonChanged(ctx context.Context, seasonID int64) error
}

type Config struct {
	MaxBatchSize int
	LockTimeout  time.Duration
	DefaultPage  int
	MaxPage      int
}

type Service struct {
	seasons SeasonResolver
	store   ReservationStore
	cache   SeasonCache
	pubsub  ChangePublisher
	limiter Limiter
	cfg     Config
}

func New(
	seasons SeasonResolver,
	store ReservationStore,
	cache SeasonCache,
	pubsub ChangePublisher,
	limiter Limiter,
	cfg Config,
) *Service {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 50
	}

	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 3 * time.Second
	}

	if cfg.DefaultPage <= 0 {
		cfg.DefaultPage = 20
	}

	if cfg.MaxPage <= 0 {
		cfg.MaxPage = 100
	}

	return &Service{
		seasons: seasons,
		store:   store,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		cfg:     cfg,
	}
}

// CreateReservation books every requested seat as one reservation, or nothing.
//
// Geometry is validated against each season's dome before any write. The
// atomic check-and-insert itself is delegated to the store; see
// ReservationStore for the concurrency contract.
//
// Returns:
//   - ErrSeasonNotFound when a requested season does not exist.
//   - *domain.SeatRangeError when a coordinate is outside the dome's grid.
//   - *SeatsTakenError (wrapping ErrSeatsTaken) when any seat is booked.
//   - ErrContention when the serializing lock could not be acquired in time.
func (s *Service) CreateReservation(
	ctx context.Context,
	userID int64,
	reqs []domain.TicketRequest,
	rlKey string,
) (*domain.ReservationWithTickets, error) {
	const op = "service.booking.CreateReservation"

	if len(reqs) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrNoTickets)
	}

	if len(reqs) > s.cfg.MaxBatchSize {
		return nil, fmt.Errorf("%s:%w", op, ErrBatchTooLarge)
	}

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s:%w", op, &RateLimitedError{RetryAfter: retry})
		}
	}

	domes := make(map[int64]*domain.PlanetariumDome)
	for _, req := range reqs {
		dome, ok := domes[req.SeasonID]
		if !ok {
			var err error
			dome, err = s.seasons.DomeForSeason(ctx, req.SeasonID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, fmt.Errorf("%s: season %d:%w", op, req.SeasonID, ErrSeasonNotFound)
				}

				return nil, fmt.Errorf("%s:%w", op, err)
			}
			domes[req.SeasonID] = dome
		}

		if err := domain.ValidateSeat(req.Row, req.Seat, dome); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	res, err := s.store.CreateReservation(ctx, userID, reqs, s.cfg.LockTimeout)
	if err != nil {
		var takenErr *repository.SeatsTakenError
		if errors.As(err, &takenErr) {
			return nil, fmt.Errorf("%s:%w", op, &SeatsTakenError{Seats: takenErr.Seats})
		}

		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrSeatsTaken)
		}

		if errors.Is(err, repository.ErrContention) {
			return nil, fmt.Errorf("%s:%w", op, ErrContention)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	for seasonID := range domes {
		if s.cache != nil {
			_ = s.cache.InvalidateSeason(ctx, seasonID)
		}
		if s.pubsub != nil {
			_ = s.pubsub.PublishSeasonChanged(ctx, seasonID)
		}
	}

	return res, nil
}

// ListReservations returns the user's reservations, newest first.
func (s *Service) ListReservations(
	ctx context.Context,
	userID int64,
	limit, offset int,
) ([]domain.ReservationWithTickets, error) {
	const op = "service.booking.ListReservations"

	if limit <= 0 {
		limit = s.cfg.DefaultPage
	}

	if limit > s.cfg.MaxPage {
		limit = s.cfg.MaxPage
	}

	out, err := s.store.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
