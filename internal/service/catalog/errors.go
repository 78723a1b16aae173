package catalog

import "errors"

var (
	ErrInvalidDimensions = errors.New("rows and seats_in_row must be positive")
	ErrThemeConflict     = errors.New("theme already exists")
	ErrThemeNotFound     = errors.New("theme not found")
	ErrShowNotFound      = errors.New("astronomy show not found")
	ErrDomeNotFound      = errors.New("planetarium dome not found")
	ErrDomeShrinkBlocked = errors.New("dome has booked seats outside the new bounds")
)
