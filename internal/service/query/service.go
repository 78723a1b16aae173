// Package query is the read-side facade: filtered listings and cached detail
// reads for clients.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/astralune/dome-go/internal/domain"
	"github.com/astralune/dome-go/internal/repository"
	postgresrepo "github.com/astralune/dome-go/internal/repository/postgres"
	redisrepo "github.com/astralune/dome-go/internal/repository/redis"
)

type Config struct {
	ShowDetailTTL   time.Duration
	SeasonDetailTTL time.Duration
	DefaultPage     int
	MaxPage         int
}

type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.ShowDetailTTL <= 0 {
		cfg.ShowDetailTTL = 60 * time.Second
	}

	if cfg.SeasonDetailTTL <= 0 {
		cfg.SeasonDetailTTL = 15 * time.Second
	}

	if cfg.DefaultPage <= 0 {
		cfg.DefaultPage = 20
	}

	if cfg.MaxPage <= 0 {
		cfg.MaxPage = 100
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// ListShows returns shows matching the filter. Title matching is a
// case-insensitive substring; results are stable regardless of call order.
func (s *Service) ListShows(ctx context.Context, f postgresrepo.ShowFilter) ([]domain.AstronomyShow, error) {
	const op = "service.query.ListShows"

	f.Limit, f.Offset = s.clampPage(f.Limit, f.Offset)

	shows, err := s.store.Query().ListShows(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return shows, nil
}

// GetShow retrieves one show through the cache.
func (s *Service) GetShow(ctx context.Context, id int64) (*domain.AstronomyShow, error) {
	const op = "service.query.GetShow"

	key := redisrepo.KeyShowDetail(id)

	show, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.ShowDetailTTL,
		func(ctx context.Context) (domain.AstronomyShow, error) {
			sh, err := s.store.Catalog().GetShow(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.AstronomyShow{}, ErrShowNotFound
				}

				return domain.AstronomyShow{}, err
			}

			return *sh, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &show, nil
}

func (s *Service) ListSeasons(ctx context.Context, f postgresrepo.SeasonFilter) ([]domain.SeasonDetail, error) {
	const op = "service.query.ListSeasons"

	f.Limit, f.Offset = s.clampPage(f.Limit, f.Offset)

	seasons, err := s.store.Query().ListSeasons(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return seasons, nil
}

// GetSeason retrieves one season with availability counts through the cache.
// The cache entry is invalidated after every committed booking for the
// season, so staleness is bounded by the TTL only on quiet seasons.
func (s *Service) GetSeason(ctx context.Context, id int64) (*domain.SeasonDetail, error) {
	const op = "service.query.GetSeason"

	key := redisrepo.KeySeasonDetail(id)

	season, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.SeasonDetailTTL,
		func(ctx context.Context) (domain.SeasonDetail, error) {
			sd, err := s.store.Query().GetSeasonDetail(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.SeasonDetail{}, ErrSeasonNotFound
				}

				return domain.SeasonDetail{}, err
			}

			return *sd, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &season, nil
}

func (s *Service) clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.cfg.DefaultPage
	}

	if limit > s.cfg.MaxPage {
		limit = s.cfg.MaxPage
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
