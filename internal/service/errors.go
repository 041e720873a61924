package service

import "errors"

// ErrInvalidInput wraps every request validation failure so surfaces can map it to a 400.
var ErrInvalidInput = errors.New("invalid input")

// ErrUnavailable marks a dependency that is not wired in this deployment.
var ErrUnavailable = errors.New("service unavailable")
