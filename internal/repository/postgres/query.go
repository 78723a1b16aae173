package postgres

import (
	"context"
	"time"

	"github.com/astralune/dome-go/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ShowFilter narrows ListShows. Title is a case-insensitive substring match,
// ThemeID restricts to shows tagged with the theme. Zero values mean "any".
type ShowFilter struct {
	Title   string
	ThemeID int64
	Limit   int
	Offset  int
}

// SeasonFilter narrows ListSeasons. Zero values mean "any"; Date matches the
// calendar day of show_time.
type SeasonFilter struct {
	ShowID int64
	Date   *time.Time
	Limit  int
	Offset int
}

type QueryRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *QueryRepo) With(db DB) *QueryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *QueryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *QueryRepo) ListShows(ctx context.Context, f ShowFilter) ([]domain.AstronomyShow, error) {
	const op = "postgres.QueryRepo.ListShows"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT DISTINCT s.id, s.title, s.description, s.image_path
		 FROM astronomy_shows s
		 LEFT JOIN astronomy_show_themes ast ON ast.show_id = s.id
		 WHERE ($1 = '' OR s.title ILIKE '%' || $1 || '%')
		   AND ($2 = 0 OR ast.theme_id = $2)
		 ORDER BY s.title
		 LIMIT $3 OFFSET $4`,
		f.Title, f.ThemeID, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.AstronomyShow
	var ids []int64
	index := make(map[int64]int)

	for rows.Next() {
		var s domain.AstronomyShow
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.ImagePath); err != nil {
			return nil, wrapDBErr(op, err)
		}
		index[s.ID] = len(out)
		ids = append(ids, s.ID)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	if len(ids) == 0 {
		return out, nil
	}

	trows, err := db.Query(ctx,
		`SELECT ast.show_id, st.id, st.name
		 FROM astronomy_show_themes ast
		 JOIN show_themes st ON st.id = ast.theme_id
		 WHERE ast.show_id = ANY($1)
		 ORDER BY st.name`,
		ids,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer trows.Close()

	for trows.Next() {
		var showID int64
		var t domain.ShowTheme
		if err := trows.Scan(&showID, &t.ID, &t.Name); err != nil {
			return nil, wrapDBErr(op, err)
		}
		if i, ok := index[showID]; ok {
			out[i].Themes = append(out[i].Themes, t)
		}
	}
	if err := trows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *QueryRepo) ListSeasons(ctx context.Context, f SeasonFilter) ([]domain.SeasonDetail, error) {
	const op = "postgres.QueryRepo.ListSeasons"

	db := r.handle()

	var date any
	if f.Date != nil {
		date = *f.Date
	}

	rows, err := db.Query(ctx,
		`SELECT ss.id, ss.show_id, ss.dome_id, ss.show_time,
		        s.title, d.name, d.rows * d.seats_in_row,
		        COUNT(t.id)
		 FROM show_seasons ss
		 JOIN astronomy_shows s ON s.id = ss.show_id
		 JOIN planetarium_domes d ON d.id = ss.dome_id
		 LEFT JOIN tickets t ON t.season_id = ss.id
		 WHERE ($1 = 0 OR ss.show_id = $1)
		   AND ($2::timestamptz IS NULL OR ss.show_time::date = $2::date)
		 GROUP BY ss.id, ss.show_id, ss.dome_id, ss.show_time, s.title, d.name, d.rows, d.seats_in_row
		 ORDER BY ss.show_time
		 LIMIT $3 OFFSET $4`,
		f.ShowID, date, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.SeasonDetail
	for rows.Next() {
		var sd domain.SeasonDetail
		if err := rows.Scan(
			&sd.ID,
			&sd.ShowID,
			&sd.DomeID,
			&sd.ShowTime,
			&sd.ShowTitle,
			&sd.DomeName,
			&sd.Capacity,
			&sd.TicketsSold,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, sd)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *QueryRepo) GetSeasonDetail(ctx context.Context, id int64) (*domain.SeasonDetail, error) {
	const op = "postgres.QueryRepo.GetSeasonDetail"

	db := r.handle()

	var sd domain.SeasonDetail
	err := db.QueryRow(ctx,
		`SELECT ss.id, ss.show_id, ss.dome_id, ss.show_time,
		        s.title, d.name, d.rows * d.seats_in_row,
		        (SELECT COUNT(*) FROM tickets t WHERE t.season_id = ss.id)
		 FROM show_seasons ss
		 JOIN astronomy_shows s ON s.id = ss.show_id
		 JOIN planetarium_domes d ON d.id = ss.dome_id
		 WHERE ss.id = $1`,
		id,
	).Scan(
		&sd.ID,
		&sd.ShowID,
		&sd.DomeID,
		&sd.ShowTime,
		&sd.ShowTitle,
		&sd.DomeName,
		&sd.Capacity,
		&sd.TicketsSold,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &sd, nil
}
