package application

import (
	"context"
	"errors"
	"fmt"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// ErrValidation marks input rejected before any state was touched.
var ErrValidation = errors.New("validation")

// Validation returns an error matching ErrValidation with msg as its detail.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
