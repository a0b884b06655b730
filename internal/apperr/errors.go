package apperr

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrQueueFull = errors.New("rebuild queue full")
	ErrDisabled  = errors.New("disabled")
)
