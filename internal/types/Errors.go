package types

import "errors"

// ErrValidation marks malformed or out-of-range caller input. It is never retried.
var ErrValidation = errors.New("validation error")

// ErrDataUnavailable marks missing market data for a single pool or category.
var ErrDataUnavailable = errors.New("data unavailable")
