package tokens

import "github.com/pkg/errors"

var (
	// ErrInvariantViolation is returned when a merged chain table lacks
	// a well-known token or holds it under the wrong variant.
	ErrInvariantViolation = errors.New("token invariant violation")

	// ErrMissingNative wraps ErrInvariantViolation for NATIVE.
	ErrMissingNative = errors.Wrap(ErrInvariantViolation, "missing native token")

	// ErrMissingWrappedNative wraps ErrInvariantViolation for WNATIVE.
	ErrMissingWrappedNative = errors.Wrap(ErrInvariantViolation, "missing wrapped native token")
)
