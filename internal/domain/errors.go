package domain

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected request")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrRender             = errors.New("render failure")
	ErrDuplicateID        = errors.New("duplicate payment id")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrWatchTimeout       = errors.New("watch timed out")
)
