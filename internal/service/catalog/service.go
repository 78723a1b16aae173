// Package catalog manages the reference data: show themes, planetarium domes
// and astronomy shows.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/astralune/dome-go/internal/domain"
	"github.com/astralune/dome-go/internal/repository"
	postgresrepo "github.com/astralune/dome-go/internal/repository/postgres"
	redisrepo "github.com/astralune/dome-go/internal/repository/redis"
	"github.com/astralune/dome-go/internal/uow"
	"github.com/google/uuid"
)

type Config struct {
	UploadsDir string
}

type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	uow   *uow.UoW
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.UploadsDir == "" {
		cfg.UploadsDir = "uploads/astronomy-shows"
	}

	return &Service{
		store: store,
		cache: cache,
		uow:   uow.NewUoW(store),
		cfg:   cfg,
	}
}

func (s *Service) CreateTheme(ctx context.Context, name string) (*domain.ShowTheme, error) {
	const op = "service.catalog.CreateTheme"

	id, err := s.store.Catalog().CreateTheme(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrThemeConflict)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &domain.ShowTheme{ID: id, Name: name}, nil
}

func (s *Service) ListThemes(ctx context.Context) ([]domain.ShowTheme, error) {
	const op = "service.catalog.ListThemes"

	themes, err := s.store.Catalog().ListThemes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return themes, nil
}

func (s *Service) CreateDome(ctx context.Context, name string, rows, seatsInRow int) (*domain.PlanetariumDome, error) {
	const op = "service.catalog.CreateDome"

	if rows < 1 || seatsInRow < 1 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidDimensions)
	}

	id, err := s.store.Catalog().CreateDome(ctx, name, rows, seatsInRow)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &domain.PlanetariumDome{ID: id, Name: name, Rows: rows, SeatsInRow: seatsInRow}, nil
}

func (s *Service) GetDome(ctx context.Context, id int64) (*domain.PlanetariumDome, error) {
	const op = "service.catalog.GetDome"

	dome, err := s.store.Catalog().GetDome(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrDomeNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return dome, nil
}

func (s *Service) ListDomes(ctx context.Context) ([]domain.PlanetariumDome, error) {
	const op = "service.catalog.ListDomes"

	domes, err := s.store.Catalog().ListDomes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return domes, nil
}

// UpdateDome applies a partial update to a dome's name or grid. Nil fields
// keep their current value. The read, the shrink check and the update run in
// one transaction under the dome's advisory lock, which the booking path also
// acquires: a concurrent booking cannot slip between the check and the
// update, and concurrent patches cannot overwrite each other's fields.
// Shrinking the grid below any already-booked coordinate is rejected: the
// tickets would become retroactively invalid against the validator.
func (s *Service) UpdateDome(ctx context.Context, id int64, name *string, rows, seatsInRow *int) (*domain.PlanetariumDome, error) {
	const op = "service.catalog.UpdateDome"

	var dome *domain.PlanetariumDome

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		repo := s.store.Catalog().With(tx)

		if err := repo.LockDome(ctx, id); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		d, err := repo.GetDome(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrDomeNotFound)
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if name != nil {
			d.Name = *name
		}
		if rows != nil {
			d.Rows = *rows
		}
		if seatsInRow != nil {
			d.SeatsInRow = *seatsInRow
		}

		if d.Rows < 1 || d.SeatsInRow < 1 {
			return fmt.Errorf("%s:%w", op, ErrInvalidDimensions)
		}

		maxRow, maxSeat, err := repo.MaxBookedCoords(ctx, id)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if maxRow > d.Rows || maxSeat > d.SeatsInRow {
			return fmt.Errorf("%s:%w", op, ErrDomeShrinkBlocked)
		}

		if err := repo.UpdateDome(ctx, d); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		dome = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	return dome, nil
}

func (s *Service) CreateShow(ctx context.Context, title, description string, themeIDs []int64) (*domain.AstronomyShow, error) {
	const op = "service.catalog.CreateShow"

	var show *domain.AstronomyShow

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		id, err := s.store.Catalog().With(tx).CreateShow(ctx, title, description)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if len(themeIDs) > 0 {
			if err := s.store.Catalog().With(tx).SetShowThemes(ctx, id, themeIDs); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%s:%w", op, ErrThemeNotFound)
				}

				return fmt.Errorf("%s:%w", op, err)
			}
		}

		created, err := s.store.Catalog().With(tx).GetShow(ctx, id)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		show = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return show, nil
}

func (s *Service) GetShow(ctx context.Context, id int64) (*domain.AstronomyShow, error) {
	const op = "service.catalog.GetShow"

	show, err := s.store.Catalog().GetShow(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrShowNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return show, nil
}

// UpdateShow applies a partial update. Nil fields keep their current value;
// a non-nil empty theme list clears the tags.
func (s *Service) UpdateShow(ctx context.Context, id int64, title, description *string, themeIDs *[]int64) (*domain.AstronomyShow, error) {
	const op = "service.catalog.UpdateShow"

	var show *domain.AstronomyShow

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Catalog().With(tx).UpdateShow(ctx, id, title, description); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrShowNotFound)
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if themeIDs != nil {
			if err := s.store.Catalog().With(tx).SetShowThemes(ctx, id, *themeIDs); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%s:%w", op, ErrThemeNotFound)
				}

				return fmt.Errorf("%s:%w", op, err)
			}
		}

		updated, err := s.store.Catalog().With(tx).GetShow(ctx, id)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		show = updated

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateShow(ctx, id)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return show, nil
}

// UploadShowImage stores the image under the uploads dir as
// <slug>-<uuid><ext> and persists the path on the show.
func (s *Service) UploadShowImage(ctx context.Context, showID int64, filename string, src io.Reader) (string, error) {
	const op = "service.catalog.UploadShowImage"

	show, err := s.store.Catalog().GetShow(ctx, showID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%s:%w", op, ErrShowNotFound)
		}

		return "", fmt.Errorf("%s:%w", op, err)
	}

	if err := os.MkdirAll(s.cfg.UploadsDir, 0o755); err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	name := fmt.Sprintf("%s-%s%s", slugify(show.Title), uuid.New(), filepath.Ext(filename))
	path := filepath.Join(s.cfg.UploadsDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("%s:%w", op, err)
	}

	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	if err := s.store.Catalog().SetShowImage(ctx, showID, path); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%s:%w", op, err)
	}

	_ = s.cache.InvalidateShow(ctx, showID)

	return path, nil
}
