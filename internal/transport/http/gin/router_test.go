package httpgin

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/astralune/dome-go/internal/domain"
	"github.com/astralune/dome-go/internal/service"
	"github.com/astralune/dome-go/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(&service.Services{}, nil, testSecret, logger)
}

func TestRouter_Healthz(t *testing.T) {
	r := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_RequestIDGenerated(t *testing.T) {
	r := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	r := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestRouter_ShowFullUpdateNotAllowed(t *testing.T) {
	r := testRouter()

	for _, method := range []string{http.MethodPut, http.MethodDelete} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, "/astronomy-shows/1", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "1", true))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
	}
}

func TestRouter_ResourcesRequireAuth(t *testing.T) {
	r := testRouter()

	for _, path := range []string{
		"/show-themes",
		"/planetarium-domes",
		"/astronomy-shows",
		"/show-seasons",
		"/reservations",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRouter_MutationsRequireStaff(t *testing.T) {
	r := testRouter()

	for _, path := range []string{
		"/show-themes",
		"/planetarium-domes",
		"/astronomy-shows",
		"/show-seasons",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "1", false))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
}

type fixedSeasonResolver struct {
	dome domain.PlanetariumDome
}

func (r fixedSeasonResolver) DomeForSeason(ctx context.Context, seasonID int64) (*domain.PlanetariumDome, error) {
	d := r.dome
	return &d, nil
}

type noopReservationStore struct{}

func (noopReservationStore) CreateReservation(ctx context.Context, userID int64, reqs []domain.TicketRequest, lockTimeout time.Duration) (*domain.ReservationWithTickets, error) {
	return &domain.ReservationWithTickets{}, nil
}

func (noopReservationStore) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.ReservationWithTickets, error) {
	return nil, nil
}

func bookingRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	svcs := &service.Services{
		Booking: booking.New(
			fixedSeasonResolver{dome: domain.PlanetariumDome{ID: 1, Rows: 10, SeatsInRow: 20}},
			noopReservationStore{},
			nil,
			nil,
			nil,
			booking.Config{},
		),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(svcs, nil, testSecret, logger)
}

func postReservation(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "42", false))
	r.ServeHTTP(w, req)
	return w
}

func TestCreateReservation_ZeroRowReportsFieldError(t *testing.T) {
	r := bookingRouter()

	w := postReservation(t, r, `{"tickets":[{"season_id":1,"row":0,"seat":5}]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t,
		`{"errors":{"row":"row number must be in available range: (1, rows): (1, 10)"}}`,
		w.Body.String(),
	)
}

func TestCreateReservation_ZeroSeatReportsFieldError(t *testing.T) {
	r := bookingRouter()

	w := postReservation(t, r, `{"tickets":[{"season_id":1,"row":3,"seat":0}]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t,
		`{"errors":{"seat":"seat number must be in available range: (1, seats_in_row): (1, 20)"}}`,
		w.Body.String(),
	)
}

func TestCreateReservation_NegativeRowSameShapeAsZero(t *testing.T) {
	r := bookingRouter()

	zero := postReservation(t, r, `{"tickets":[{"season_id":1,"row":0,"seat":5}]}`)
	negative := postReservation(t, r, `{"tickets":[{"season_id":1,"row":-1,"seat":5}]}`)

	assert.Equal(t, http.StatusBadRequest, zero.Code)
	assert.Equal(t, http.StatusBadRequest, negative.Code)
	assert.JSONEq(t, zero.Body.String(), negative.Body.String())
}

func TestCreateReservation_ValidSeatAccepted(t *testing.T) {
	r := bookingRouter()

	w := postReservation(t, r, `{"tickets":[{"season_id":1,"row":1,"seat":1}]}`)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestWriteJSONWithCache_NotModified(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/v", func(c *gin.Context) {
		writeJSONWithCache(c, http.StatusOK, gin.H{"n": 1}, "public, max-age=15", true)
	})

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/v", nil))
	assert.Equal(t, http.StatusOK, w1.Code)

	tag := w1.Header().Get("ETag")
	assert.NotEmpty(t, tag)

	w2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v", nil)
	req.Header.Set("If-None-Match", tag)
	r.ServeHTTP(w2, req)

	assert.Equal(t, http.StatusNotModified, w2.Code)
	assert.Empty(t, w2.Body.String())
}
