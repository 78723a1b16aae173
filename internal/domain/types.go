package domain

import (
	"time"

	"github.com/google/uuid"
)

type ShowTheme struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type AstronomyShow struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Themes      []ShowTheme `json:"themes"`
	ImagePath   string      `json:"image,omitempty"`
}

type PlanetariumDome struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Rows       int    `json:"rows"`
	SeatsInRow int    `json:"seats_in_row"`
}

// Capacity is the total number of addressable seats in the dome.
func (d *PlanetariumDome) Capacity() int {
	return d.Rows * d.SeatsInRow
}

// ShowSeason is one scheduled showing of a show in a dome. It is the binding
// that decides which dome's geometry governs tickets booked for it.
type ShowSeason struct {
	ID       int64     `json:"id"`
	ShowID   int64     `json:"show_id"`
	DomeID   int64     `json:"dome_id"`
	ShowTime time.Time `json:"show_time"`
}

type SeasonDetail struct {
	ShowSeason
	ShowTitle   string `json:"show_title"`
	DomeName    string `json:"dome_name"`
	Capacity    int    `json:"capacity"`
	TicketsSold int    `json:"tickets_sold"`
}

type Reservation struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Ticket struct {
	ID            uuid.UUID `json:"id"`
	SeasonID      int64     `json:"season_id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	Row           int       `json:"row"`
	Seat          int       `json:"seat"`
}

type ReservationWithTickets struct {
	Reservation Reservation `json:"reservation"`
	Tickets     []Ticket    `json:"tickets"`
}

// TicketRequest is one requested seat in a reservation batch.
type TicketRequest struct {
	SeasonID int64
	Row      int
	Seat     int
}

// SeatRef identifies one seat within a season.
type SeatRef struct {
	SeasonID int64 `json:"season_id"`
	Row      int   `json:"row"`
	Seat     int   `json:"seat"`
}
