package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/astralune/dome-go/internal/domain"
	pgclient "github.com/astralune/dome-go/internal/postgres"
	"github.com/astralune/dome-go/internal/repository"
	postgresrepo "github.com/astralune/dome-go/internal/repository/postgres"
	"github.com/astralune/dome-go/internal/service/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestStore starts a throwaway Postgres container, applies the schema and
// returns a ready store.
func newTestStore(t *testing.T) *postgresrepo.Store {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "dome",
				"POSTGRES_PASSWORD": "dome",
				"POSTGRES_DB":       "dome",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://dome:dome@%s:%s/dome?sslmode=disable", host, port.Port())

	pool, err := pgclient.New(ctx, pgclient.Config{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := postgresrepo.NewStore(pool)
	require.NoError(t, store.Migrate(ctx))

	return store
}

func seedSeason(t *testing.T, store *postgresrepo.Store, rows, seatsInRow int) (seasonID, domeID int64) {
	t.Helper()

	ctx := context.Background()

	showID, err := store.Catalog().CreateShow(ctx, "Northern Lights", "")
	require.NoError(t, err)

	domeID, err = store.Catalog().CreateDome(ctx, "Main Dome", rows, seatsInRow)
	require.NoError(t, err)

	seasonID, err = store.Schedule().CreateSeason(ctx, showID, domeID, time.Now().Add(24*time.Hour))
	require.NoError(t, err)

	return seasonID, domeID
}

func TestCreateReservation_ConcurrentSameSeatOneWinner(t *testing.T) {
	store := newTestStore(t)
	seasonID, _ := seedSeason(t, store, 10, 20)

	ctx := context.Background()
	const attempts = 8

	errs := make([]error, attempts)
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = store.Bookings().CreateReservation(
				ctx,
				int64(i+1),
				[]domain.TicketRequest{{SeasonID: seasonID, Row: 1, Seat: 1}},
				3*time.Second,
			)
		}(i)
	}

	close(start)
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}

		var taken *repository.SeatsTakenError
		if errors.As(err, &taken) {
			assert.Equal(t,
				[]domain.SeatRef{{SeasonID: seasonID, Row: 1, Seat: 1}},
				taken.Seats,
			)
			continue
		}

		assert.ErrorIs(t, err, repository.ErrConflict)
	}
	assert.Equal(t, 1, winners)
}

func TestCreateReservation_ReportsContestedCoordinates(t *testing.T) {
	store := newTestStore(t)
	seasonID, _ := seedSeason(t, store, 10, 20)

	ctx := context.Background()

	_, err := store.Bookings().CreateReservation(
		ctx,
		1,
		[]domain.TicketRequest{{SeasonID: seasonID, Row: 2, Seat: 3}},
		3*time.Second,
	)
	require.NoError(t, err)

	_, err = store.Bookings().CreateReservation(
		ctx,
		2,
		[]domain.TicketRequest{
			{SeasonID: seasonID, Row: 2, Seat: 3},
			{SeasonID: seasonID, Row: 2, Seat: 4},
		},
		3*time.Second,
	)

	var taken *repository.SeatsTakenError
	require.ErrorAs(t, err, &taken)
	assert.Equal(t, []domain.SeatRef{{SeasonID: seasonID, Row: 2, Seat: 3}}, taken.Seats)

	// the whole batch rolled back, the free seat stays free
	_, err = store.Bookings().CreateReservation(
		ctx,
		3,
		[]domain.TicketRequest{{SeasonID: seasonID, Row: 2, Seat: 4}},
		3*time.Second,
	)
	assert.NoError(t, err)
}

func TestCreateReservation_RevalidatesGeometryInTransaction(t *testing.T) {
	store := newTestStore(t)
	seasonID, _ := seedSeason(t, store, 2, 2)

	ctx := context.Background()

	_, err := store.Bookings().CreateReservation(
		ctx,
		1,
		[]domain.TicketRequest{{SeasonID: seasonID, Row: 3, Seat: 1}},
		3*time.Second,
	)

	var rangeErr *domain.SeatRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "row", rangeErr.Field)
	assert.Equal(t, 2, rangeErr.Bound)
}

func TestCreateReservation_MissingSeason(t *testing.T) {
	store := newTestStore(t)

	ctx := context.Background()

	_, err := store.Bookings().CreateReservation(
		ctx,
		1,
		[]domain.TicketRequest{{SeasonID: 9999, Row: 1, Seat: 1}},
		3*time.Second,
	)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateDome_ShrinkBlockedByExistingTickets(t *testing.T) {
	store := newTestStore(t)
	seasonID, domeID := seedSeason(t, store, 10, 20)

	ctx := context.Background()

	_, err := store.Bookings().CreateReservation(
		ctx,
		1,
		[]domain.TicketRequest{{SeasonID: seasonID, Row: 10, Seat: 20}},
		3*time.Second,
	)
	require.NoError(t, err)

	svc := catalog.New(store, nil, catalog.Config{})

	nine := 9
	_, err = svc.UpdateDome(ctx, domeID, nil, &nine, nil)
	assert.ErrorIs(t, err, catalog.ErrDomeShrinkBlocked)

	// a name-only patch goes through and preserves the grid
	name := "Renamed Dome"
	updated, err := svc.UpdateDome(ctx, domeID, &name, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Dome", updated.Name)
	assert.Equal(t, 10, updated.Rows)
	assert.Equal(t, 20, updated.SeatsInRow)
}

func TestSetShowThemes_MissingTheme(t *testing.T) {
	store := newTestStore(t)

	ctx := context.Background()

	showID, err := store.Catalog().CreateShow(ctx, "Cosmic Dust", "")
	require.NoError(t, err)

	err = store.Catalog().SetShowThemes(ctx, showID, []int64{9999})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
