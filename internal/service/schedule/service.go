// Package schedule is the scheduling ledger: it binds shows to domes at a
// point in time and resolves which dome's geometry governs a season.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/astralune/dome-go/internal/domain"
	"github.com/astralune/dome-go/internal/repository"
	postgresrepo "github.com/astralune/dome-go/internal/repository/postgres"
)

type Service struct {
	store *postgresrepo.Store
}

func New(store *postgresrepo.Store) *Service {
	return &Service{store: store}
}

func (s *Service) CreateSeason(ctx context.Context, showID, domeID int64, showTime time.Time) (*domain.ShowSeason, error) {
	const op = "service.schedule.CreateSeason"

	// verify both references up front for a precise error
	if _, err := s.store.Catalog().GetShow(ctx, showID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrShowNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if _, err := s.store.Catalog().GetDome(ctx, domeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrDomeNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	id, err := s.store.Schedule().CreateSeason(ctx, showID, domeID, showTime)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &domain.ShowSeason{ID: id, ShowID: showID, DomeID: domeID, ShowTime: showTime}, nil
}

func (s *Service) GetSeason(ctx context.Context, id int64) (*domain.ShowSeason, error) {
	const op = "service.schedule.GetSeason"

	season, err := s.store.Schedule().GetSeason(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrSeasonNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return season, nil
}

// DomeForSeason resolves the dome governing seat geometry for the season.
func (s *Service) DomeForSeason(ctx context.Context, seasonID int64) (*domain.PlanetariumDome, error) {
	const op = "service.schedule.DomeForSeason"

	dome, err := s.store.Schedule().DomeForSeason(ctx, seasonID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrSeasonNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return dome, nil
}
