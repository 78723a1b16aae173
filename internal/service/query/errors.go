package query

import "errors"

var (
	ErrShowNotFound   = errors.New("astronomy show not found")
	ErrSeasonNotFound = errors.New("show season not found")
)
