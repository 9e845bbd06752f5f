package services

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrStoreWrite   = errors.New("store write failed")
	ErrUnsupported  = errors.New("unsupported for this storage type")
)
