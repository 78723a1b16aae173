package httpgin

import (
	"time"

	"github.com/astralune/dome-go/internal/domain"
)

type CreateThemeRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateDomeRequest struct {
	Name       string `json:"name" binding:"required"`
	Rows       int    `json:"rows" binding:"required,gt=0"`
	SeatsInRow int    `json:"seats_in_row" binding:"required,gt=0"`
}

type UpdateDomeRequest struct {
	Name       *string `json:"name"`
	Rows       *int    `json:"rows"`
	SeatsInRow *int    `json:"seats_in_row"`
}

type CreateShowRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	ThemeIDs    []int64 `json:"theme_ids"`
}

type UpdateShowRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	ThemeIDs    *[]int64 `json:"theme_ids"`
}

type CreateSeasonRequest struct {
	ShowID   int64  `json:"show_id" binding:"required"`
	DomeID   int64  `json:"dome_id" binding:"required"`
	ShowTime string `json:"show_time" binding:"required"`
}

type CreateReservationRequest struct {
	Tickets []TicketInput `json:"tickets" binding:"required,min=1,dive"`
}

// Row and Seat deliberately carry no binding rules: range checking belongs to
// the seat validator, so zero and negative coordinates produce the same
// field-level error shape as any other out-of-range value.
type TicketInput struct {
	SeasonID int64 `json:"season_id" binding:"required"`
	Row      int   `json:"row"`
	Seat     int   `json:"seat"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// FieldErrorResponse carries per-field validation messages, keyed by the
// JSON field name.
type FieldErrorResponse struct {
	Errors map[string]string `json:"errors"`
}

type SeatsTakenResponse struct {
	Error string           `json:"error"`
	Seats []domain.SeatRef `json:"seats"`
}

type UploadImageResponse struct {
	Image string `json:"image"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
