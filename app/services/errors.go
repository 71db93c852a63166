package services

import (
	"errors"
	"fmt"
)

// ErrInvalid marks errors caused by bad caller input.
var ErrInvalid = errors.New("invalid request")

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalid, err)
}

func invalidf(format string, args ...any) error {
	return invalid(fmt.Errorf(format, args...))
}
