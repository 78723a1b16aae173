package schedule

import "errors"

var (
	ErrSeasonNotFound = errors.New("show season not found")
	ErrShowNotFound   = errors.New("astronomy show not found")
	ErrDomeNotFound   = errors.New("planetarium dome not found")
)
