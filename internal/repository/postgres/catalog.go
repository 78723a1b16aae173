package postgres

import (
	"context"

	"github.com/astralune/dome-go/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *CatalogRepo) CreateTheme(ctx context.Context, name string) (int64, error) {
	const op = "postgres.CatalogRepo.CreateTheme"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO show_themes(name)
		 VALUES ($1)
		 RETURNING id`,
		name,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *CatalogRepo) ListThemes(ctx context.Context) ([]domain.ShowTheme, error) {
	const op = "postgres.CatalogRepo.ListThemes"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, name FROM show_themes ORDER BY name`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.ShowTheme
	for rows.Next() {
		var t domain.ShowTheme
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CatalogRepo) CreateDome(ctx context.Context, name string, rowCount, seatsInRow int) (int64, error) {
	const op = "postgres.CatalogRepo.CreateDome"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO planetarium_domes(name, rows, seats_in_row)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		name, rowCount, seatsInRow,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *CatalogRepo) GetDome(ctx context.Context, id int64) (*domain.PlanetariumDome, error) {
	const op = "postgres.CatalogRepo.GetDome"

	db := r.handle()

	var d domain.PlanetariumDome
	err := db.QueryRow(ctx,
		`SELECT id, name, rows, seats_in_row
		 FROM planetarium_domes WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.Name, &d.Rows, &d.SeatsInRow)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &d, nil
}

func (r *CatalogRepo) ListDomes(ctx context.Context) ([]domain.PlanetariumDome, error) {
	const op = "postgres.CatalogRepo.ListDomes"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, name, rows, seats_in_row
		 FROM planetarium_domes
		 ORDER BY name`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.PlanetariumDome
	for rows.Next() {
		var d domain.PlanetariumDome
		if err := rows.Scan(&d.ID, &d.Name, &d.Rows, &d.SeatsInRow); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CatalogRepo) UpdateDome(ctx context.Context, d *domain.PlanetariumDome) error {
	const op = "postgres.CatalogRepo.UpdateDome"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE planetarium_domes
		 SET name = $2, rows = $3, seats_in_row = $4
		 WHERE id = $1`,
		d.ID, d.Name, d.Rows, d.SeatsInRow,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}

// LockDome takes the dome's transaction-scoped advisory lock. Grid shrinks
// and bookings both acquire it, so a shrink check cannot interleave with a
// ticket insert in the same dome. Meant to run inside a transaction.
func (r *CatalogRepo) LockDome(ctx context.Context, domeID int64) error {
	const op = "postgres.CatalogRepo.LockDome"

	if _, err := r.handle().Exec(ctx,
		`SELECT pg_advisory_xact_lock($1)`,
		advisoryKey(domeLockClass, domeID),
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// MaxBookedCoords returns the highest booked row and seat number across all
// tickets in every season of the dome. Both are zero when nothing is booked.
func (r *CatalogRepo) MaxBookedCoords(ctx context.Context, domeID int64) (int, int, error) {
	const op = "postgres.CatalogRepo.MaxBookedCoords"

	db := r.handle()

	var maxRow, maxSeat int
	err := db.QueryRow(ctx,
		`SELECT COALESCE(MAX(t."row"), 0), COALESCE(MAX(t.seat), 0)
		 FROM tickets t
		 JOIN show_seasons ss ON ss.id = t.season_id
		 WHERE ss.dome_id = $1`,
		domeID,
	).Scan(&maxRow, &maxSeat)
	if err != nil {
		return 0, 0, wrapDBErr(op, err)
	}

	return maxRow, maxSeat, nil
}

func (r *CatalogRepo) CreateShow(ctx context.Context, title, description string) (int64, error) {
	const op = "postgres.CatalogRepo.CreateShow"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO astronomy_shows(title, description)
		 VALUES ($1, $2)
		 RETURNING id`,
		title, description,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *CatalogRepo) GetShow(ctx context.Context, id int64) (*domain.AstronomyShow, error) {
	const op = "postgres.CatalogRepo.GetShow"

	db := r.handle()

	var s domain.AstronomyShow
	err := db.QueryRow(ctx,
		`SELECT id, title, description, image_path
		 FROM astronomy_shows WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Title, &s.Description, &s.ImagePath)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	rows, err := db.Query(ctx,
		`SELECT st.id, st.name
		 FROM show_themes st
		 JOIN astronomy_show_themes ast ON ast.theme_id = st.id
		 WHERE ast.show_id = $1
		 ORDER BY st.name`,
		id,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	for rows.Next() {
		var t domain.ShowTheme
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, wrapDBErr(op, err)
		}
		s.Themes = append(s.Themes, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &s, nil
}

func (r *CatalogRepo) UpdateShow(ctx context.Context, id int64, title, description *string) error {
	const op = "postgres.CatalogRepo.UpdateShow"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE astronomy_shows
		 SET title       = COALESCE($2, title),
		     description = COALESCE($3, description)
		 WHERE id = $1`,
		id, title, description,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}

// SetShowThemes replaces the show's theme set. Meant to run inside a
// transaction together with the show insert or update.
func (r *CatalogRepo) SetShowThemes(ctx context.Context, showID int64, themeIDs []int64) error {
	const op = "postgres.CatalogRepo.SetShowThemes"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`DELETE FROM astronomy_show_themes WHERE show_id = $1`,
		showID,
	); err != nil {
		return wrapDBErr(op, err)
	}

	batch := &pgx.Batch{}
	for _, themeID := range themeIDs {
		batch.Queue(
			`INSERT INTO astronomy_show_themes(show_id, theme_id)
			 VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			showID, themeID,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CatalogRepo) SetShowImage(ctx context.Context, showID int64, path string) error {
	const op = "postgres.CatalogRepo.SetShowImage"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE astronomy_shows SET image_path = $2 WHERE id = $1`,
		showID, path,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}
