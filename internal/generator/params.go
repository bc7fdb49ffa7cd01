package generator

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MinLength     = 6
	MaxLength     = 64
	DefaultLength = 16

	// Field values treated as "not set" when building entry names.
	DefaultAccount = "default"
	DefaultDevice  = "default"
	DefaultVersion = "00"
)

// DerivationParams is the non-secret metadata that, together with the master
// passphrase, reproduces one password. Field order and JSON names are part of
// the persisted vault format.
type DerivationParams struct {
	Service    string `json:"service"`
	Account    string `json:"account"`
	Device     string `json:"device"`
	Version    string `json:"version"`
	Length     int    `json:"length"`
	UseLower   bool   `json:"useLower"`
	UseUpper   bool   `json:"useUpper"`
	UseDigits  bool   `json:"useDigits"`
	UseSymbols bool   `json:"useSymbols"`
}

// NewParams returns params for service with the documented defaults:
// account/device "default", version "00", length 16, every class enabled.
func NewParams(service string) DerivationParams {
	return DerivationParams{
		Service:    service,
		Account:    DefaultAccount,
		Device:     DefaultDevice,
		Version:    DefaultVersion,
		Length:     DefaultLength,
		UseLower:   true,
		UseUpper:   true,
		UseDigits:  true,
		UseSymbols: true,
	}
}

// Flags returns the character-class selection of p.
func (p DerivationParams) Flags() Flags {
	return Flags{
		Lower:   p.UseLower,
		Upper:   p.UseUpper,
		Digits:  p.UseDigits,
		Symbols: p.UseSymbols,
	}
}

// Salt returns the canonical salt string for p.
func (p DerivationParams) Salt() string {
	return Salt(p.Service, p.Account, p.Device, p.Version)
}

// Validate checks p before any derivation is attempted.
func (p DerivationParams) Validate() error {
	if strings.TrimSpace(p.Service) == "" {
		return errors.New("service is required")
	}
	if p.Length < MinLength || p.Length > MaxLength {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidLength, p.Length, MinLength, MaxLength)
	}
	if !p.Flags().Any() {
		return ErrEmptyCharset
	}
	return nil
}
