package postgres

import (
	"context"
	"time"

	"github.com/astralune/dome-go/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScheduleRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ScheduleRepo) With(db DB) *ScheduleRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ScheduleRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *ScheduleRepo) CreateSeason(ctx context.Context, showID, domeID int64, showTime time.Time) (int64, error) {
	const op = "postgres.ScheduleRepo.CreateSeason"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO show_seasons(show_id, dome_id, show_time)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		showID, domeID, showTime,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *ScheduleRepo) GetSeason(ctx context.Context, id int64) (*domain.ShowSeason, error) {
	const op = "postgres.ScheduleRepo.GetSeason"

	db := r.handle()

	var ss domain.ShowSeason
	err := db.QueryRow(ctx,
		`SELECT id, show_id, dome_id, show_time
		 FROM show_seasons WHERE id = $1`,
		id,
	).Scan(&ss.ID, &ss.ShowID, &ss.DomeID, &ss.ShowTime)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &ss, nil
}

// DomeForSeason resolves the dome whose geometry governs tickets for the
// season. Returns repository.ErrNotFound when the season does not exist.
func (r *ScheduleRepo) DomeForSeason(ctx context.Context, seasonID int64) (*domain.PlanetariumDome, error) {
	const op = "postgres.ScheduleRepo.DomeForSeason"

	db := r.handle()

	var d domain.PlanetariumDome
	err := db.QueryRow(ctx,
		`SELECT d.id, d.name, d.rows, d.seats_in_row
		 FROM show_seasons ss
		 JOIN planetarium_domes d ON d.id = ss.dome_id
		 WHERE ss.id = $1`,
		seasonID,
	).Scan(&d.ID, &d.Name, &d.Rows, &d.SeatsInRow)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &d, nil
}
