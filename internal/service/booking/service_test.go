package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/astralune/dome-go/internal/domain"
	"github.com/astralune/dome-go/internal/repository"
	"github.com/astralune/dome-go/internal/service/booking"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock implementations

type MockSeasonResolver struct {
	mock.Mock
}

func (m *MockSeasonResolver) DomeForSeason(ctx context.Context, seasonID int64) (*domain.PlanetariumDome, error) {
	args := m.Called(ctx, seasonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlanetariumDome), args.Error(1)
}

type MockReservationStore struct {
	mock.Mock
}

func (m *MockReservationStore) CreateReservation(
	ctx context.Context,
	userID int64,
	reqs []domain.TicketRequest,
	lockTimeout time.Duration,
) (*domain.ReservationWithTickets, error) {
	args := m.Called(ctx, userID, reqs, lockTimeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReservationWithTickets), args.Error(1)
}

func (m *MockReservationStore) ListForUser(
	ctx context.Context,
	userID int64,
	limit, offset int,
) ([]domain.ReservationWithTickets, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReservationWithTickets), args.Error(1)
}

type MockSeasonCache struct {
	mock.Mock
}

func (m *MockSeasonCache) InvalidateSeason(ctx context.Context, seasonID int64) error {
	args := m.Called(ctx, seasonID)
	return args.Error(0)
}

type MockChangePublisher struct {
	mock.Mock
}

func (m *MockChangePublisher) PublishSeasonChanged(ctx context.Context, seasonID int64) error {
	args := m.Called(ctx, seasonID)
	return args.Error(0)
}

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, suffix string) (bool, int64, time.Duration, error) {
	args := m.Called(ctx, suffix)
	return args.Bool(0), args.Get(1).(int64), args.Get(2).(time.Duration), args.Error(3)
}

func sampleDome() *domain.PlanetariumDome {
	return &domain.PlanetariumDome{ID: 1, Name: "Main Dome", Rows: 10, SeatsInRow: 20}
}

func newService(seasons *MockSeasonResolver, store *MockReservationStore) *booking.Service {
	return booking.New(seasons, store, nil, nil, nil, booking.Config{})
}

func TestCreateReservation_Success(t *testing.T) {
	seasons := new(MockSeasonResolver)
	store := new(MockReservationStore)
	cache := new(MockSeasonCache)
	pubsub := new(MockChangePublisher)

	svc := booking.New(seasons, store, cache, pubsub, nil, booking.Config{})

	ctx := context.Background()
	reqs := []domain.TicketRequest{
		{SeasonID: 5, Row: 1, Seat: 1},
		{SeasonID: 5, Row: 10, Seat: 20},
	}

	created := &domain.ReservationWithTickets{
		Reservation: domain.Reservation{ID: uuid.New(), UserID: 9, CreatedAt: time.Now()},
		Tickets: []domain.Ticket{
			{SeasonID: 5, Row: 1, Seat: 1},
			{SeasonID: 5, Row: 10, Seat: 20},
		},
	}

	seasons.On("DomeForSeason", ctx, int64(5)).Return(sampleDome(), nil).Once()
	store.On("CreateReservation", ctx, int64(9), reqs, mock.AnythingOfType("time.Duration")).
		Return(created, nil)
	cache.On("InvalidateSeason", ctx, int64(5)).Return(nil)
	pubsub.On("PublishSeasonChanged", ctx, int64(5)).Return(nil)

	res, err := svc.CreateReservation(ctx, 9, reqs, "")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.Tickets, 2)

	seasons.AssertExpectations(t)
	store.AssertExpectations(t)
	cache.AssertExpectations(t)
	pubsub.AssertExpectations(t)
}

func TestCreateReservation_EmptyBatch(t *testing.T) {
	seasons := new(MockSeasonResolver)
	store := new(MockReservationStore)
	svc := newService(seasons, store)

	_, err := svc.CreateReservation(context.Background(), 9, nil, "")
	assert.ErrorIs(t, err, booking.ErrNoTickets)
	store.AssertNotCalled(t, "CreateReservation")
}

func TestCreateReservation_RangeErrorAbortsWholeBatch(t *testing.T) {
	seasons := new(MockSeasonResolver)
	store := new(MockReservationStore)
	svc := newService(seasons, store)

	ctx := context.Background()
	seasons.On("DomeForSeason", ctx, int64(5)).Return(sampleDome(), nil)

	// one invalid seat among valid ones: nothing may reach the store
	reqs := []domain.TicketRequest{
		{SeasonID: 5, Row: 1, Seat: 1},
		{SeasonID: 5, Row: 11, Seat: 1},
		{SeasonID: 5, Row: 2, Seat: 2},
	}

	_, err := svc.CreateReservation(ctx, 9, reqs, "")

	var rangeErr *domain.SeatRangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, "row", rangeErr.Field)
	assert.Equal(t, 10, rangeErr.Bound)

	store.AssertNotCalled(t, "CreateReservation")
}

func TestCreateReservation_SeasonNotFound(t *testing.T) {
	seasons := new(MockSeasonResolver)
	store := new(MockReservationStore)
	svc := newService(seasons, store)

	ctx := context.Background()
	seasons.On("DomeForSeason", ctx, int64(404)).Return(nil, repository.ErrNotFound)

	_, err := svc.CreateReservation(ctx, 9, []domain.TicketRequest{{SeasonID: 404, Row: 1, Seat: 1}}, "")
	assert.ErrorIs(t, err, booking.ErrSeasonNotFound)
	store.AssertNotCalled(t, "CreateReservation")
}

func TestCreateReservation_ConflictCarriesCoordinates(t *testing.T) {
	seasons := new(MockSeasonResolver)
	store := new(MockReservationStore)
	svc := newService(seasons, store)

	ctx := context.Background()
	contested := []domain.SeatRef{{SeasonID: 5, Row: 1, Seat: 1}}

	seasons.On("DomeForSeason", ctx, int64(5)).Return(sampleDome(), nil)
	store.On("CreateReservation", ctx, int64(9), mock.Anything, mock.Anything).
		Return(nil, &repository.SeatsTakenError{Seats: contested})

	_, err := svc.CreateReservation(ctx, 9, []domain.TicketRequest{{SeasonID: 5, Row: 1, Seat: 1}}, "")

	assert.ErrorIs(t, err, booking.ErrSeatsTaken)

	var takenErr *booking.SeatsTakenError
	require.True(t, errors.As(err, &takenErr))
	assert.Equal(t, contested, takenErr.Seats)
}

func TestCreateReservation_UniqueIndexBackstop(t *testing.T) {
	seasons := new(MockSeasonResolver)
	store := new(MockReservationStore)
	svc := newService(seasons, store)

	ctx := context.Background()
	seasons.On("DomeForSeason", ctx, int64(5)).Return(sampleDome(), nil)
	store.On("CreateReservation", ctx, int64(9), mock.Anything, mock.Anything).
		Return(nil, repository.ErrConflict)

	_, err := svc.CreateReservation(ctx, 9, []domain.TicketRequest{{SeasonID: 5, Row: 3, Seat: 5}}, "")
	assert.ErrorIs(t, err, booking.ErrSeatsTaken)
}

func TestCreateReservation_ContentionIsDistinctFromConflict(t *testing.T) {
	seasons := new(MockSeasonResolver)
	store := new(MockReservationStore)
	svc := newService(seasons, store)

	ctx := context.Background()
	seasons.On("DomeForSeason", ctx, int64(5)).Return(sampleDome(), nil)
	store.On("CreateReservation", ctx, int64(9), mock.Anything, mock.Anything).
		Return(nil, repository.ErrContention)

	_, err := svc.CreateReservation(ctx, 9, []domain.TicketRequest{{SeasonID: 5, Row: 3, Seat: 5}}, "")
	assert.ErrorIs(t, err, booking.ErrContention)
	assert.NotErrorIs(t, err, booking.ErrSeatsTaken)
}

func TestCreateReservation_RateLimited(t *testing.T) {
	seasons := new(MockSeasonResolver)
	store := new(MockReservationStore)
	limiter := new(MockLimiter)

	svc := booking.New(seasons, store, nil, nil, limiter, booking.Config{})

	ctx := context.Background()
	limiter.On("Allow", ctx, "ip:10.0.0.1").Return(false, int64(11), 30*time.Second, nil)

	_, err := svc.CreateReservation(ctx, 9, []domain.TicketRequest{{SeasonID: 5, Row: 1, Seat: 1}}, "ip:10.0.0.1")

	var rlErr *booking.RateLimitedError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, 30*time.Second, rlErr.RetryAfter)

	seasons.AssertNotCalled(t, "DomeForSeason")
	store.AssertNotCalled(t, "CreateReservation")
}

func TestCreateReservation_BatchTooLarge(t *testing.T) {
	seasons := new(MockSeasonResolver)
	store := new(MockReservationStore)
	svc := booking.New(seasons, store, nil, nil, nil, booking.Config{MaxBatchSize: 2})

	reqs := []domain.TicketRequest{
		{SeasonID: 5, Row: 1, Seat: 1},
		{SeasonID: 5, Row: 1, Seat: 2},
		{SeasonID: 5, Row: 1, Seat: 3},
	}

	_, err := svc.CreateReservation(context.Background(), 9, reqs, "")
	assert.ErrorIs(t, err, booking.ErrBatchTooLarge)
}

func TestListReservations_ClampsPaging(t *testing.T) {
	seasons := new(MockSeasonResolver)
	store := new(MockReservationStore)
	svc := booking.New(seasons, store, nil, nil, nil, booking.Config{DefaultPage: 20, MaxPage: 100})

	ctx := context.Background()
	store.On("ListForUser", ctx, int64(9), 20, 0).Return([]domain.ReservationWithTickets{}, nil).Once()
	store.On("ListForUser", ctx, int64(9), 100, 0).Return([]domain.ReservationWithTickets{}, nil).Once()

	_, err := svc.ListReservations(ctx, 9, 0, 0)
	require.NoError(t, err)

	_, err = svc.ListReservations(ctx, 9, 5000, 0)
	require.NoError(t, err)

	store.AssertExpectations(t)
}
