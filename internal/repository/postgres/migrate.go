package postgres

import (
	"context"
	"fmt"
)

// schema is applied at startup. Statements are idempotent so repeated boots
// are safe. The unique index on (season_id, row, seat) is the storage-level
// guarantee that no seat is ever double-booked, independent of application
// logic.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS show_themes (
		id   bigserial PRIMARY KEY,
		name text NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS astronomy_shows (
		id          bigserial PRIMARY KEY,
		title       text NOT NULL,
		description text NOT NULL DEFAULT '',
		image_path  text NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS astronomy_show_themes (
		show_id  bigint NOT NULL REFERENCES astronomy_shows(id) ON DELETE CASCADE,
		theme_id bigint NOT NULL REFERENCES show_themes(id) ON DELETE CASCADE,
		PRIMARY KEY (show_id, theme_id)
	)`,
	`CREATE TABLE IF NOT EXISTS planetarium_domes (
		id           bigserial PRIMARY KEY,
		name         text NOT NULL,
		rows         int NOT NULL CHECK (rows >= 1),
		seats_in_row int NOT NULL CHECK (seats_in_row >= 1)
	)`,
	`CREATE TABLE IF NOT EXISTS show_seasons (
		id        bigserial PRIMARY KEY,
		show_id   bigint NOT NULL REFERENCES astronomy_shows(id) ON DELETE CASCADE,
		dome_id   bigint NOT NULL REFERENCES planetarium_domes(id) ON DELETE CASCADE,
		show_time timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id         uuid PRIMARY KEY,
		user_id    bigint NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id             uuid PRIMARY KEY,
		season_id      bigint NOT NULL REFERENCES show_seasons(id),
		reservation_id uuid NOT NULL REFERENCES reservations(id) ON DELETE CASCADE,
		"row"          int NOT NULL CHECK ("row" >= 1),
		seat           int NOT NULL CHECK (seat >= 1),
		UNIQUE (season_id, "row", seat)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_show_seasons_show_time ON show_seasons (show_time)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_reservation ON tickets (reservation_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations (user_id, created_at DESC)`,
}

func (s *Store) Migrate(ctx context.Context) error {
	const op = "postgres.Store.Migrate"

	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	return nil
}
