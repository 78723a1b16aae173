package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/astralune/dome-go/internal/domain"
	"github.com/astralune/dome-go/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// CreateReservation atomically books every requested seat or none of them.
//
// The check-and-insert runs under one transaction holding per-season and
// per-dome advisory locks, so concurrent requests for the same season
// serialize and the loser sees an exact *repository.SeatsTakenError. The dome
// locks serialize bookings against grid shrinks: geometry is re-read and
// re-validated inside the transaction after the locks are held, so a shrink
// committed after the caller's validation surfaces as
// *domain.SeatRangeError. A season that does not exist yields
// repository.ErrNotFound. The unique index on (season_id, row, seat)
// backstops the same guarantee at the storage level; a violation surfaces as
// repository.ErrConflict. Lock acquisition is bounded by lockTimeout;
// exceeding it yields repository.ErrContention.
func (r *BookingRepo) CreateReservation(
	ctx context.Context,
	userID int64,
	reqs []domain.TicketRequest,
	lockTimeout time.Duration,
) (*domain.ReservationWithTickets, error) {
	const op = "postgres.BookingRepo.CreateReservation"

	if r.db != nil {
		res, err := r.createReservationCore(ctx, r.db, userID, reqs, lockTimeout)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		return res, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer tx.Rollback(ctx)

	res, err := r.createReservationCore(ctx, tx, userID, reqs, lockTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return res, nil
}

func (r *BookingRepo) createReservationCore(
	ctx context.Context,
	db DB,
	userID int64,
	reqs []domain.TicketRequest,
	lockTimeout time.Duration,
) (*domain.ReservationWithTickets, error) {
	if lockTimeout > 0 {
		if _, err := db.Exec(ctx,
			fmt.Sprintf(`SET LOCAL lock_timeout = '%dms'`, lockTimeout.Milliseconds()),
		); err != nil {
			return nil, err
		}
	}

	seasonIDs := distinctSeasons(reqs)

	domeBySeason, err := r.seasonDomes(ctx, db, seasonIDs)
	if err != nil {
		return nil, err
	}

	// Lock every affected season and dome in ascending key order so
	// concurrent multi-season batches cannot deadlock each other.
	keys := make([]int64, 0, 2*len(seasonIDs))
	for _, seasonID := range seasonIDs {
		keys = append(keys, advisoryKey(seasonLockClass, seasonID))
	}
	domeSeen := make(map[int64]struct{})
	for _, domeID := range domeBySeason {
		if _, ok := domeSeen[domeID]; !ok {
			domeSeen[domeID] = struct{}{}
			keys = append(keys, advisoryKey(domeLockClass, domeID))
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, key := range keys {
		if _, err := db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
			return nil, err
		}
	}

	// Geometry is re-read after the dome locks are held: a grid shrink
	// commits under the same lock, so whatever we see now stays true for
	// the rest of the transaction.
	domes, err := r.domeGeometry(ctx, db, domeBySeason)
	if err != nil {
		return nil, err
	}
	for _, req := range reqs {
		dome := domes[domeBySeason[req.SeasonID]]
		if err := domain.ValidateSeat(req.Row, req.Seat, dome); err != nil {
			return nil, err
		}
	}

	taken, err := r.takenSeats(ctx, db, reqs)
	if err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		return nil, &repository.SeatsTakenError{Seats: taken}
	}

	reservationID := uuid.New()

	var res domain.ReservationWithTickets
	res.Reservation.ID = reservationID
	res.Reservation.UserID = userID

	if err := db.QueryRow(ctx,
		`INSERT INTO reservations(id, user_id)
		 VALUES ($1, $2)
		 RETURNING created_at`,
		reservationID, userID,
	).Scan(&res.Reservation.CreatedAt); err != nil {
		return nil, err
	}

	batch := &pgx.Batch{}
	for _, req := range reqs {
		t := domain.Ticket{
			ID:            uuid.New(),
			SeasonID:      req.SeasonID,
			ReservationID: reservationID,
			Row:           req.Row,
			Seat:          req.Seat,
		}
		batch.Queue(
			`INSERT INTO tickets(id, season_id, reservation_id, "row", seat)
			 VALUES ($1, $2, $3, $4, $5)`,
			t.ID, t.SeasonID, t.ReservationID, t.Row, t.Seat,
		)
		res.Tickets = append(res.Tickets, t)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return nil, err
	}

	return &res, nil
}

func (r *BookingRepo) seasonDomes(
	ctx context.Context,
	db DB,
	seasonIDs []int64,
) (map[int64]int64, error) {
	rows, err := db.Query(ctx,
		`SELECT id, dome_id
		 FROM show_seasons
		 WHERE id = ANY($1)`,
		seasonIDs,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make(map[int64]int64, len(seasonIDs))
	for rows.Next() {
		var seasonID, domeID int64
		if err := rows.Scan(&seasonID, &domeID); err != nil {
			return nil, err
		}
		out[seasonID] = domeID
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, seasonID := range seasonIDs {
		if _, ok := out[seasonID]; !ok {
			return nil, fmt.Errorf("season %d:%w", seasonID, repository.ErrNotFound)
		}
	}

	return out, nil
}

func (r *BookingRepo) domeGeometry(
	ctx context.Context,
	db DB,
	domeBySeason map[int64]int64,
) (map[int64]*domain.PlanetariumDome, error) {
	ids := make([]int64, 0, len(domeBySeason))
	seen := make(map[int64]struct{}, len(domeBySeason))
	for _, domeID := range domeBySeason {
		if _, ok := seen[domeID]; !ok {
			seen[domeID] = struct{}{}
			ids = append(ids, domeID)
		}
	}

	rows, err := db.Query(ctx,
		`SELECT id, name, rows, seats_in_row
		 FROM planetarium_domes
		 WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make(map[int64]*domain.PlanetariumDome, len(ids))
	for rows.Next() {
		var d domain.PlanetariumDome
		if err := rows.Scan(&d.ID, &d.Name, &d.Rows, &d.SeatsInRow); err != nil {
			return nil, err
		}
		out[d.ID] = &d
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, domeID := range ids {
		if _, ok := out[domeID]; !ok {
			return nil, fmt.Errorf("dome %d:%w", domeID, repository.ErrNotFound)
		}
	}

	return out, nil
}

func (r *BookingRepo) takenSeats(
	ctx context.Context,
	db DB,
	reqs []domain.TicketRequest,
) ([]domain.SeatRef, error) {
	seasonIDs := make([]int64, len(reqs))
	rowNums := make([]int, len(reqs))
	seatNums := make([]int, len(reqs))
	for i, req := range reqs {
		seasonIDs[i] = req.SeasonID
		rowNums[i] = req.Row
		seatNums[i] = req.Seat
	}

	rows, err := db.Query(ctx,
		`SELECT t.season_id, t."row", t.seat
		 FROM tickets t
		 WHERE (t.season_id, t."row", t.seat) IN (
			SELECT * FROM unnest($1::bigint[], $2::int[], $3::int[])
		 )
		 ORDER BY t.season_id, t."row", t.seat`,
		seasonIDs, rowNums, seatNums,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var taken []domain.SeatRef
	for rows.Next() {
		var ref domain.SeatRef
		if err := rows.Scan(&ref.SeasonID, &ref.Row, &ref.Seat); err != nil {
			return nil, err
		}
		taken = append(taken, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return taken, nil
}

// ListForUser returns the user's reservations, newest first, each with its
// tickets ordered by row then seat.
func (r *BookingRepo) ListForUser(
	ctx context.Context,
	userID int64,
	limit, offset int,
) ([]domain.ReservationWithTickets, error) {
	const op = "postgres.BookingRepo.ListForUser"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, user_id, created_at
		 FROM reservations
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.ReservationWithTickets
	var ids []uuid.UUID
	index := make(map[uuid.UUID]int)

	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.CreatedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}
		index[res.ID] = len(out)
		ids = append(ids, res.ID)
		out = append(out, domain.ReservationWithTickets{Reservation: res})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	if len(ids) == 0 {
		return out, nil
	}

	trows, err := db.Query(ctx,
		`SELECT id, season_id, reservation_id, "row", seat
		 FROM tickets
		 WHERE reservation_id = ANY($1)
		 ORDER BY "row", seat`,
		ids,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer trows.Close()

	for trows.Next() {
		var t domain.Ticket
		if err := trows.Scan(&t.ID, &t.SeasonID, &t.ReservationID, &t.Row, &t.Seat); err != nil {
			return nil, wrapDBErr(op, err)
		}
		if i, ok := index[t.ReservationID]; ok {
			out[i].Tickets = append(out[i].Tickets, t)
		}
	}
	if err := trows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func distinctSeasons(reqs []domain.TicketRequest) []int64 {
	seen := make(map[int64]struct{}, len(reqs))
	var ids []int64
	for _, req := range reqs {
		if _, ok := seen[req.SeasonID]; !ok {
			seen[req.SeasonID] = struct{}{}
			ids = append(ids, req.SeasonID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
