package generator

import "errors"

var (
	// ErrEmptyCharset is returned when no character class is enabled.
	ErrEmptyCharset = errors.New("no character class enabled")
	// ErrInvalidLength is returned for password lengths outside [MinLength, MaxLength].
	ErrInvalidLength = errors.New("password length out of range")
	// ErrInsufficientEntropyBytes is returned when the derived block is shorter than the password.
	ErrInsufficientEntropyBytes = errors.New("derived key material shorter than requested length")
)
