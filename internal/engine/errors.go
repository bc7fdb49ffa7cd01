package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineUnavailable is returned when a derivation is requested while the engine is not Ready.
	ErrEngineUnavailable = errors.New("derivation engine unavailable")
	// ErrEngineLoadTimeout is returned when initialization does not finish within the configured bound.
	ErrEngineLoadTimeout = errors.New("derivation engine load timed out")
	// ErrDerivationFailure matches every *DerivationError.
	ErrDerivationFailure = errors.New("derivation failure")
)

// DerivationError carries the non-zero status returned by the hash primitive.
type DerivationError struct {
	Code int
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("derivation failure: status %d", e.Code)
}

func (e *DerivationError) Is(target error) bool {
	return target == ErrDerivationFailure
}
