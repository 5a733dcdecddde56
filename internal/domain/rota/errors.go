package rota

import "errors"

var (
	ErrInvalidCellKey = errors.New("invalid cell key")
	ErrInvalidPeriod  = errors.New("invalid period")
)
