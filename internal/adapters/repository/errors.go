package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrNilSetter         = errors.New("nil snapshot setter")
)
