package domain

import "fmt"

// SeatRangeError reports a seat coordinate outside the dome's grid. Field is
// "row" or "seat", Bound the inclusive upper limit of the valid range.
type SeatRangeError struct {
	Field string
	Value int
	Bound int
}

func (e *SeatRangeError) Error() string {
	bound := "rows"
	if e.Field == "seat" {
		bound = "seats_in_row"
	}
	return fmt.Sprintf(
		"%s number must be in available range: (1, %s): (1, %d)",
		e.Field, bound, e.Bound,
	)
}

// ValidateSeat checks that (row, seat) is addressable in the dome's grid.
// Row is checked before seat so that a request with both coordinates out of
// range always reports the row. Pure function, no I/O.
func ValidateSeat(row, seat int, dome *PlanetariumDome) error {
	if row < 1 || row > dome.Rows {
		return &SeatRangeError{Field: "row", Value: row, Bound: dome.Rows}
	}
	if seat < 1 || seat > dome.SeatsInRow {
		return &SeatRangeError{Field: "seat", Value: seat, Bound: dome.SeatsInRow}
	}
	return nil
}
