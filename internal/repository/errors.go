package repository

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrTxAborted         = errors.New("transaction aborted")
	ErrInvalidQuery      = errors.New("invalid query")
)
